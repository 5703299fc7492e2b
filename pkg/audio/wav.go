package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// WAV describes decoded PCM extracted from a RIFF/WAVE container.
type WAV struct {
	PCM           []byte
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// ErrNotWAV is returned by [ParseWAV] when the input is not a RIFF/WAVE file.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE container")

// EncodeWAV wraps s16le PCM in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bits = 16
	blockAlign := channels * bits / 8

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bits)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}

// ParseWAV walks the RIFF chunks of wav and returns the PCM payload together
// with the format from the "fmt " chunk. Chunk sizes are honoured, so
// non-canonical headers (LIST, fact, extended fmt) are handled.
//
// A data chunk whose declared size overruns the buffer (common for streamed
// WAV where the size is 0xFFFFFFFF) is truncated to what is available.
func ParseWAV(wav []byte) (WAV, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return WAV{}, ErrNotWAV
	}

	var out WAV
	haveFmt := false
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(wav) {
				return WAV{}, fmt.Errorf("audio: fmt chunk truncated (%d bytes)", size)
			}
			if format := binary.LittleEndian.Uint16(wav[body:]); format != 1 {
				return WAV{}, fmt.Errorf("audio: unsupported WAV format tag %d", format)
			}
			out.Channels = int(binary.LittleEndian.Uint16(wav[body+2:]))
			out.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4:]))
			out.BitsPerSample = int(binary.LittleEndian.Uint16(wav[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return WAV{}, errors.New("audio: data chunk before fmt chunk")
			}
			end := body + size
			if size < 0 || end > len(wav) {
				end = len(wav)
			}
			out.PCM = wav[body:end]
			return out, nil
		}

		off = body + size
		if size%2 != 0 {
			off++
		}
	}
	return WAV{}, errors.New("audio: WAV missing data chunk")
}

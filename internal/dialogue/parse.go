package dialogue

import (
	"encoding/json"
	"strings"
)

// Parsed is the result of interpreting a raw model reply. It is either
// [Structured] or [Unstructured].
type Parsed interface {
	// Reply converts the parse result into the fields the interviewer uses.
	Reply() Reply
}

// Structured is a reply that decoded as the expected JSON object.
type Structured struct {
	Evaluation   string `json:"evaluation"`
	NextQuestion string `json:"next_question"`
	raw          string
}

// Reply implements [Parsed].
func (s Structured) Reply() Reply {
	return Reply{Evaluation: s.Evaluation, NextQuestion: s.NextQuestion, Raw: s.raw}
}

// Unstructured is a reply that was not a JSON object. The whole text is used
// as the next question.
type Unstructured struct {
	Raw string
}

// Reply implements [Parsed].
func (u Unstructured) Reply() Reply {
	return Reply{Evaluation: UnstructuredEvaluation, NextQuestion: u.Raw, Raw: u.Raw}
}

// Parse interprets a model reply. A JSON object, optionally wrapped in a
// Markdown code fence or surrounded by prose, yields [Structured]. Anything
// else yields [Unstructured] with the trimmed text.
func Parse(raw string) Parsed {
	text := strings.TrimSpace(raw)
	if s, ok := decodeObject(stripFence(text)); ok {
		s.raw = raw
		return s
	}
	if i, j := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); i >= 0 && j > i {
		if s, ok := decodeObject(text[i : j+1]); ok {
			s.raw = raw
			return s
		}
	}
	return Unstructured{Raw: text}
}

func decodeObject(text string) (Structured, bool) {
	if !strings.HasPrefix(text, "{") {
		return Structured{}, false
	}
	var s Structured
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Structured{}, false
	}
	s.Evaluation = strings.TrimSpace(s.Evaluation)
	s.NextQuestion = strings.TrimSpace(s.NextQuestion)
	return s, true
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/MrWong99/intervox/internal/config"
)

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	writeStartupSummary(os.Stdout, cfg)
}

func writeStartupSummary(w io.Writer, cfg *config.Config) {
	p := cfg.Providers
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║        Intervox — startup summary     ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printProvider(w, "LLM", p.LLM.Name, p.LLM.Model)
	printProvider(w, "STT", p.STT.Name, p.STT.Model)
	printProvider(w, "STT fallback", p.STTFallback.Name, p.STTFallback.Model)
	printProvider(w, "TTS", p.TTS.Name, p.TTS.Model)
	printProvider(w, "TTS fallback", p.TTSFallback.Name, p.TTSFallback.Model)
	printRow(w, "Audio", strconv.Itoa(cfg.Audio.SampleRate)+" Hz / "+strconv.Itoa(cfg.Audio.FrameMs)+" ms")
	printRow(w, "Session", strconv.Itoa(cfg.Interview.SessionMinutes)+" min")
	if cfg.Storage.PostgresDSN != "" {
		printRow(w, "Records", "file + postgres")
	} else {
		printRow(w, "Records", "file")
	}
	if cfg.Server.AuthSecret != "" {
		printRow(w, "Auth", "bearer token")
	} else {
		printRow(w, "Auth", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		printRow(w, "Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func printProvider(w io.Writer, kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printRow(w, kind, value)
}

func printRow(w io.Writer, label, value string) {
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Fprintf(w, "║  %-12s   : %-19s ║\n", label, value)
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetup_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("view")
	logger.Info().Str("session", "abc").Msg("Session opened")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not a JSON line: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"level":     "info",
		"component": "view",
		"session":   "abc",
		"message":   "Session opened",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("cli")
	logger.Info().Msg("API client ready")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("pretty output should not be JSON, got %q", output)
	}
	if !strings.Contains(output, "API client ready") || !strings.Contains(output, "cli") {
		t.Errorf("pretty output missing message or component: %q", output)
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("pagination")
	logger.Debug().Msg("request flow")
	logger.Info().Msg("accumulation complete")
	logger.Warn().Msg("page fetch failed")

	output := buf.String()
	if strings.Contains(output, "request flow") || strings.Contains(output, "accumulation complete") {
		t.Errorf("messages below warn were written: %q", output)
	}
	if !strings.Contains(output, "page fetch failed") {
		t.Errorf("warn message missing: %q", output)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("GlobalLevel() = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestSetup_NilOutputWritesToStderr(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stderr")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	orig := os.Stderr
	os.Stderr = f
	defer func() {
		os.Stderr = orig
		Setup(Config{Level: LevelInfo, Output: orig})
	}()

	Setup(Config{Level: LevelInfo})
	log.Info().Msg("to stderr")

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to stderr") {
		t.Errorf("stderr got %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	Setup(Config{Level: "verbose", Output: &bytes.Buffer{}})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("GlobalLevel() = %v, want info", zerolog.GlobalLevel())
	}
}

// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GetLevel()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(prev)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarn)

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below level were logged: %q", out)
	}
	if !strings.Contains(out, "shown 3") || !strings.Contains(out, "shown 4") {
		t.Errorf("expected warn and error messages, got %q", out)
	}
}

func TestComponentLogger(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelDebug)

	For("engine").Debugf("started %s", "worker")
	if out := buf.String(); !strings.Contains(out, "[DEBUG] engine: started worker") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigure(t *testing.T) {
	captureOutput(t)

	Configure("error", false)
	if GetLevel() != LevelError {
		t.Errorf("level = %v, want ERROR", GetLevel())
	}
	Configure("error", true)
	if GetLevel() != LevelDebug {
		t.Errorf("verbose level = %v, want DEBUG", GetLevel())
	}
	Configure("nonsense", false)
	if GetLevel() != LevelInfo {
		t.Errorf("fallback level = %v, want INFO", GetLevel())
	}
}

package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(Config{Level: level, Output: buf})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)
	log.Errorf("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("missing WARN line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("missing ERROR line: %q", out)
	}
}

func TestMessageWithoutArgsIsNotFormatted(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, DEBUG)

	msg := "100% done"
	log.log(INFO, msg)

	if !strings.Contains(buf.String(), "100% done") {
		t.Errorf("expected literal message, got %q", buf.String())
	}
}

func TestFormatArgIsLiteral(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, DEBUG)

	log.Error("%s", "disk 50% full")

	if !strings.Contains(buf.String(), "[ERROR] disk 50% full") {
		t.Errorf("expected argument printed verbatim, got %q", buf.String())
	}
}

func TestNamedAddsTag(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Prefix: "app", Output: &buf})

	log.Named("store").Infof("put %s", "a1")

	if !strings.Contains(buf.String(), "app [store] put a1") {
		t.Errorf("expected prefix and tag, got %q", buf.String())
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)
	code := -1
	log.exit = func(c int) { code = c }

	log.Fatalf("boom")

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", DEBUG, true},
		{"INFO", INFO, true},
		{" warning ", WARN, true},
		{"Error", ERROR, true},
		{"fatal", FATAL, true},
		{"verbose", INFO, false},
		{"", INFO, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

package logx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in, zerolog.InfoLevel); got != c.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	l.Info("ignored", String("k", "v"))
	l.With(Int("n", 1)).Error("still ignored")
}

type recordingSender struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingSender) SendLogLine(ctx context.Context, text string) error {
	r.mu.Lock()
	r.lines = append(r.lines, text)
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

func TestChatSinkFiltersBelowMinLevel(t *testing.T) {
	sender := &recordingSender{}
	svc, log := New(Config{
		Level:   "debug",
		Console: false,
		Chat:    ChatConfig{Enabled: true, MinLevel: "warn", RatePerSec: 100},
	}, sender)
	defer svc.Close()

	log.Info("below threshold")
	log.Warn("mirrored line")

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sender.count(); got != 1 {
		t.Fatalf("expected exactly the warn line in chat, got %d", got)
	}
}

package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/config"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

func TestCronSpec(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
		ok   bool
	}{
		{"default daily", Config{Enabled: true}, "0 9 * * *", true},
		{"explicit daily", Config{Enabled: true, DailyAt: "18:30"}, "30 18 * * *", true},
		{"interval wins", Config{Enabled: true, DailyAt: "09:00", Interval: 2 * time.Hour}, "@every 2h0m0s", true},
		{"interval too small", Config{Enabled: true, Interval: time.Second}, "", false},
		{"bad daily", Config{Enabled: true, DailyAt: "24:00"}, "", false},
		{"bad timezone", Config{Enabled: true, Timezone: "Nowhere/Nope"}, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec, _, err := cronSpec(c.cfg)
			if c.ok != (err == nil) {
				t.Fatalf("err = %v, want ok=%v", err, c.ok)
			}
			if c.ok && spec != c.want {
				t.Fatalf("spec = %q, want %q", spec, c.want)
			}
		})
	}
}

func TestFromFile(t *testing.T) {
	cfg, err := FromFile(config.CycleConfig{Enabled: true, Interval: "90m", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if cfg.Interval != 90*time.Minute || cfg.Timezone != "UTC" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := FromFile(config.CycleConfig{Enabled: true, Interval: "often"}); err == nil {
		t.Fatal("expected interval parse error")
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	var fired atomic.Int32
	s := New(Config{Enabled: false}, func(context.Context) { fired.Add(1) }, logx.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop(context.Background())
	if fired.Load() != 0 {
		t.Fatal("disabled trigger fired")
	}
}

func TestStopWaitsForInFlightJob(t *testing.T) {
	release := make(chan struct{})
	var done atomic.Bool
	s := New(Config{Enabled: true, Interval: time.Minute}, func(ctx context.Context) {
		<-release
		done.Store(true)
	}, logx.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	go s.fire()
	time.Sleep(20 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if !done.Load() {
		t.Fatal("Stop returned before the in-flight job finished")
	}
}

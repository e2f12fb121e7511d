// Package schedule triggers the daily announcement cycle. It is a thin
// wrapper over robfig/cron: one job, either a wall-clock daily trigger
// or a fixed interval.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EduardaSRBastos/astro-alert/internal/config"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// Config selects the trigger.
type Config struct {
	Enabled  bool
	DailyAt  string        // "HH:MM" wall clock, default "09:00"
	Interval time.Duration // when > 0, replaces the daily trigger
	Timezone string        // IANA name, default local
}

// FromFile maps the file config section.
func FromFile(cc config.CycleConfig) (Config, error) {
	out := Config{Enabled: cc.Enabled, DailyAt: cc.DailyAt, Timezone: cc.Timezone}
	if strings.TrimSpace(cc.Interval) != "" {
		d, err := config.ParseDurationField("cycle.interval", cc.Interval)
		if err != nil {
			return Config{}, err
		}
		out.Interval = d
	}
	return out, nil
}

// Service runs the registered job on the configured trigger.
type Service struct {
	log logx.Logger
	job func(ctx context.Context)

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, job func(ctx context.Context), log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, job: job, cfg: cfg}
}

// Start registers the trigger and begins firing. Idempotent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}

	spec, loc, err := cronSpec(s.cfg)
	if err != nil {
		return err
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, s.fire); err != nil {
		s.cancel()
		return fmt.Errorf("register trigger %q: %w", spec, err)
	}
	c.Start()
	s.c = c
	s.log.Info("cycle trigger started",
		logx.String("spec", spec),
		logx.String("tz", loc.String()))
	return nil
}

// Stop halts the trigger and waits for an in-flight run, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Apply restarts the trigger when the config changed. Safe to call
// while running.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	same := cfg == s.cfg
	s.mu.Unlock()
	if same {
		return nil
	}

	s.Stop(context.Background())
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return s.Start()
}

func (s *Service) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	s.job(ctx)
}

// cronSpec maps the config onto a cron expression and location.
func cronSpec(cfg Config) (string, *time.Location, error) {
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", nil, fmt.Errorf("cycle timezone: %w", err)
		}
		loc = l
	}

	if cfg.Interval > 0 {
		if cfg.Interval < time.Minute {
			return "", nil, fmt.Errorf("cycle interval %s below 1m", cfg.Interval)
		}
		return "@every " + cfg.Interval.String(), loc, nil
	}

	at := strings.TrimSpace(cfg.DailyAt)
	if at == "" {
		at = "09:00"
	}
	hour, minute, err := config.ParseHHMM(at)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), loc, nil
}

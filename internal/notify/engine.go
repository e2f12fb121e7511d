package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/almanac"
	"github.com/EduardaSRBastos/astro-alert/internal/geolocate"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// Announcer delivers one cycle's digest to the chat. Delivery failures
// are logged but never unwind the cycle: the state write has already
// committed, so a retry would re-announce.
type Announcer interface {
	Announce(ctx context.Context, d Digest) error
}

// Engine runs the daily cycle: resolve the dataset, diff it against
// the persisted state, announce whatever changed.
type Engine struct {
	phases  *almanac.PhaseResolver
	eclipse *almanac.EclipseScanner
	geo     *geolocate.Resolver
	tracker *Tracker
	ann     Announcer
	log     logx.Logger

	now func() time.Time
}

func NewEngine(phases *almanac.PhaseResolver, eclipse *almanac.EclipseScanner, geo *geolocate.Resolver, tracker *Tracker, ann Announcer, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		phases:  phases,
		eclipse: eclipse,
		geo:     geo,
		tracker: tracker,
		ann:     ann,
		log:     log,
		now:     time.Now,
	}
}

// Gather resolves the full dataset for one cycle. Any provider failure
// aborts the whole gather: announcing from a partial dataset would
// advance some fingerprints and not others.
func (e *Engine) Gather(ctx context.Context) (Events, error) {
	now := e.now().UTC()
	loc := e.geo.Resolve(ctx)
	ev := Events{Now: now, Location: loc}

	phases, err := e.phases.Upcoming(now)
	if err != nil {
		return Events{}, fmt.Errorf("moon phases: %w", err)
	}
	ev.Phases = phases
	if len(phases) > 0 {
		ev.NextPhase = &phases[0]
	}
	if full, ok, err := e.phases.NextFullMoon(now); err != nil {
		return Events{}, fmt.Errorf("full moon: %w", err)
	} else if ok {
		ev.FullMoon = &full
	}

	obs := loc.Observer()
	if solar, ok, err := e.eclipse.NextSolar(ctx, obs, now); err != nil {
		return Events{}, fmt.Errorf("solar eclipse: %w", err)
	} else if ok {
		ev.Solar = &solar
	}
	if lunar, ok, err := e.eclipse.NextLunar(ctx, obs, now); err != nil {
		return Events{}, fmt.Errorf("lunar eclipse: %w", err)
	} else if ok {
		ev.Lunar = &lunar
	}
	return ev, nil
}

// RunCycle executes one complete cycle. The returned error covers
// dataset and persistence failures; announcement delivery errors are
// logged and swallowed.
func (e *Engine) RunCycle(ctx context.Context) error {
	began := time.Now()
	ev, err := e.Gather(ctx)
	if err != nil {
		return err
	}

	d, err := e.tracker.Evaluate(ctx, ev)
	if err != nil {
		return err
	}
	if d.Empty() {
		e.log.Info("cycle complete, nothing new",
			logx.Duration("took", time.Since(began)))
		return nil
	}

	e.log.Info("cycle complete",
		logx.Bool("phase", d.NewPhase != nil),
		logx.Bool("full_moon", d.NewFullMoon != nil),
		logx.Bool("solar", d.NewSolar != nil),
		logx.Bool("lunar", d.NewLunar != nil),
		logx.Int("alerts", len(d.Alerts)),
		logx.Duration("took", time.Since(began)))

	if e.ann != nil {
		if err := e.ann.Announce(ctx, d); err != nil {
			e.log.Warn("announcement delivery failed", logx.Err(err))
		}
	}
	return nil
}

// SetClock overrides the time source; tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

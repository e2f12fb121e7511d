// Package almanac derives user-facing celestial events from the raw
// ephemeris: upcoming moon-phase transitions and the next solar/lunar
// eclipse visible from an observer location.
//
// Results are deterministic per UTC calendar date, so both resolvers
// memoize on the date in an explicitly bounded cache.
package almanac

import (
	"sync"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/ephemeris"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

const (
	// phaseWindow spans slightly more than one lunation, so every
	// window holds 4-5 transitions covering all four kinds.
	phaseWindow = 30 * 24 * time.Hour

	// cacheLimit bounds the per-date memoization maps. Eviction is
	// FIFO; with a daily key the bound is weeks of headroom.
	cacheLimit = 64
)

// MoonPhaseEvent is one phase transition inside the lookahead window.
type MoonPhaseEvent struct {
	Kind ephemeris.PhaseKind
	At   time.Time
}

// PhaseResolver finds upcoming phase transitions. Safe for concurrent
// use; the underlying provider is pure so cached results are exact.
type PhaseResolver struct {
	prov ephemeris.Provider
	log  logx.Logger

	mu    sync.Mutex
	cache map[string][]MoonPhaseEvent
	order []string
}

func NewPhaseResolver(prov ephemeris.Provider, log logx.Logger) *PhaseResolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PhaseResolver{
		prov:  prov,
		log:   log,
		cache: make(map[string][]MoonPhaseEvent),
	}
}

// Upcoming returns the chronological phase transitions within 30 days
// of today's UTC date. An empty slice means none found; that is not an
// error.
func (r *PhaseResolver) Upcoming(today time.Time) ([]MoonPhaseEvent, error) {
	start := dayStart(today)
	key := dateKey(start)

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	crossings, err := r.prov.PhaseCrossings(start, start.Add(phaseWindow))
	if err != nil {
		return nil, err
	}
	events := make([]MoonPhaseEvent, 0, len(crossings))
	for _, c := range crossings {
		events = append(events, MoonPhaseEvent{Kind: c.Kind, At: c.At})
	}

	r.mu.Lock()
	r.store(key, events)
	r.mu.Unlock()
	return events, nil
}

// NextPhase returns the first upcoming transition of any kind.
func (r *PhaseResolver) NextPhase(today time.Time) (MoonPhaseEvent, bool, error) {
	events, err := r.Upcoming(today)
	if err != nil || len(events) == 0 {
		return MoonPhaseEvent{}, false, err
	}
	return events[0], true, nil
}

// NextFullMoon returns the first full moon within the window.
func (r *PhaseResolver) NextFullMoon(today time.Time) (MoonPhaseEvent, bool, error) {
	events, err := r.Upcoming(today)
	if err != nil {
		return MoonPhaseEvent{}, false, err
	}
	for _, e := range events {
		if e.Kind == ephemeris.FullMoon {
			return e, true, nil
		}
	}
	return MoonPhaseEvent{}, false, nil
}

// store must run with mu held.
func (r *PhaseResolver) store(key string, events []MoonPhaseEvent) {
	if _, ok := r.cache[key]; ok {
		return
	}
	r.cache[key] = events
	r.order = append(r.order, key)
	for len(r.order) > cacheLimit {
		delete(r.cache, r.order[0])
		r.order = r.order[1:]
	}
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

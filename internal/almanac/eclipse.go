package almanac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/ephemeris"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

const (
	// solarScanStep bounds the timing error to ±5 minutes against the
	// true first contact, which is fine for date/hour announcements.
	solarScanStep = 10 * time.Minute

	// scanHorizon caps both eclipse searches at five years out.
	scanHorizon = 5 * 365 * 24 * time.Hour

	// ctxCheckEvery keeps cancellation responsive without a ctx check
	// on every 10-minute sample.
	ctxCheckEvery = 1024
)

// SolarEclipseKind classifies a solar eclipse at its predicted instant.
type SolarEclipseKind int

const (
	SolarPartial SolarEclipseKind = iota
	SolarAnnular
	SolarTotal
)

func (k SolarEclipseKind) String() string {
	switch k {
	case SolarTotal:
		return "Total"
	case SolarAnnular:
		return "Annular"
	case SolarPartial:
		return "Partial"
	default:
		return "unknown"
	}
}

// SolarEclipse is the first solar eclipse found within the horizon.
type SolarEclipse struct {
	Kind SolarEclipseKind
	At   time.Time
}

// LunarEclipse is the first horizon-visible lunar eclipse found.
type LunarEclipse struct {
	Category ephemeris.LunarCategory
	At       time.Time
}

type solarEntry struct {
	ec SolarEclipse
	ok bool
}

type lunarEntry struct {
	ec LunarEclipse
	ok bool
}

// EclipseScanner time-steps forward from "today" to find the first
// eclipse of each kind. The scan is linear by design: eclipse geometry
// is not monotonic, so bisection cannot be trusted to find the first
// crossing, while a fixed-step scan has a bounded, predictable cost.
type EclipseScanner struct {
	prov ephemeris.Provider
	log  logx.Logger

	mu    sync.Mutex
	solar map[string]solarEntry
	lunar map[string]lunarEntry
	order []string
}

func NewEclipseScanner(prov ephemeris.Provider, log logx.Logger) *EclipseScanner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &EclipseScanner{
		prov:  prov,
		log:   log,
		solar: make(map[string]solarEntry),
		lunar: make(map[string]lunarEntry),
	}
}

// NextSolar scans 10-minute steps for the first instant where the
// sun-moon separation drops below the sum of the apparent radii.
// ok=false means no eclipse within the horizon, which is a defined
// outcome and not an error.
func (s *EclipseScanner) NextSolar(ctx context.Context, obs ephemeris.Observer, today time.Time) (SolarEclipse, bool, error) {
	start := dayStart(today)
	key := "s|" + scanKey(start, obs)

	s.mu.Lock()
	if e, ok := s.solar[key]; ok {
		s.mu.Unlock()
		return e.ec, e.ok, nil
	}
	s.mu.Unlock()

	end := start.Add(scanHorizon)
	began := time.Now()
	for i, t := 0, start; t.Before(end); i, t = i+1, t.Add(solarScanStep) {
		if i%ctxCheckEvery == 0 && ctx.Err() != nil {
			return SolarEclipse{}, false, ctx.Err()
		}
		sep, err := s.prov.AngularSeparation(ephemeris.Sun, ephemeris.Moon, obs, t)
		if err != nil {
			return SolarEclipse{}, false, err
		}
		// Cheap reject: nowhere near conjunction.
		if sep >= 1.5 {
			continue
		}
		sunR, err := s.prov.ApparentRadius(ephemeris.Sun, obs, t)
		if err != nil {
			return SolarEclipse{}, false, err
		}
		moonR, err := s.prov.ApparentRadius(ephemeris.Moon, obs, t)
		if err != nil {
			return SolarEclipse{}, false, err
		}
		if sep < sunR+moonR {
			ec := SolarEclipse{Kind: classifySolar(sep, sunR, moonR), At: t}
			s.log.Debug("solar eclipse found",
				logx.Time("at", t),
				logx.String("kind", ec.Kind.String()),
				logx.Duration("scan_took", time.Since(began)))
			s.remember(key, func() { s.solar[key] = solarEntry{ec: ec, ok: true} })
			return ec, true, nil
		}
	}
	s.remember(key, func() { s.solar[key] = solarEntry{} })
	return SolarEclipse{}, false, nil
}

// NextLunar walks the provider's candidate list and accepts the first
// one above the observer's horizon at the predicted instant. Candidates
// at or below the horizon are skipped and the scan continues.
func (s *EclipseScanner) NextLunar(ctx context.Context, obs ephemeris.Observer, today time.Time) (LunarEclipse, bool, error) {
	start := dayStart(today)
	key := "l|" + scanKey(start, obs)

	s.mu.Lock()
	if e, ok := s.lunar[key]; ok {
		s.mu.Unlock()
		return e.ec, e.ok, nil
	}
	s.mu.Unlock()

	cands, err := s.prov.LunarEclipses(start, start.Add(scanHorizon))
	if err != nil {
		return LunarEclipse{}, false, err
	}
	for _, c := range cands {
		if ctx.Err() != nil {
			return LunarEclipse{}, false, ctx.Err()
		}
		alt, err := s.prov.Altitude(ephemeris.Moon, obs, c.At)
		if err != nil {
			return LunarEclipse{}, false, err
		}
		if alt > 0 {
			ec := LunarEclipse{Category: c.Category, At: c.At}
			s.remember(key, func() { s.lunar[key] = lunarEntry{ec: ec, ok: true} })
			return ec, true, nil
		}
	}
	s.remember(key, func() { s.lunar[key] = lunarEntry{} })
	return LunarEclipse{}, false, nil
}

// classifySolar applies the strict-< classification: ties at
// separation == sunRadius fall through to Partial, a radius tie with
// the disc covered resolves to Total.
func classifySolar(sep, sunR, moonR float64) SolarEclipseKind {
	if sep < sunR {
		if moonR >= sunR {
			return SolarTotal
		}
		return SolarAnnular
	}
	return SolarPartial
}

// remember must be called without mu held; fn inserts one cache entry.
// The first writer wins: two scans racing on the same key must not
// push duplicate eviction slots.
func (s *EclipseScanner) remember(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.solar[key]; ok {
		return
	}
	if _, ok := s.lunar[key]; ok {
		return
	}
	fn()
	s.order = append(s.order, key)
	for len(s.order) > 2*cacheLimit {
		old := s.order[0]
		delete(s.solar, old)
		delete(s.lunar, old)
		s.order = s.order[1:]
	}
}

func scanKey(start time.Time, obs ephemeris.Observer) string {
	return fmt.Sprintf("%s|%.3f|%.3f", dateKey(start), obs.Latitude, obs.Longitude)
}

package ephemeris

import (
	"errors"
	"testing"
	"time"
)

func utc(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestPhaseCrossingsMarch2024(t *testing.T) {
	p, err := NewMeeus()
	if err != nil {
		t.Fatalf("NewMeeus: %v", err)
	}

	start := utc(2024, time.March, 1, 0, 0)
	crossings, err := p.PhaseCrossings(start, start.Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("PhaseCrossings: %v", err)
	}

	if len(crossings) < 4 || len(crossings) > 5 {
		t.Fatalf("expected 4-5 crossings in a 30-day window, got %d", len(crossings))
	}
	seen := map[PhaseKind]bool{}
	for i, c := range crossings {
		seen[c.Kind] = true
		if c.At.Before(start) || !c.At.Before(start.Add(30*24*time.Hour)) {
			t.Fatalf("crossing %v outside window", c.At)
		}
		if i > 0 && c.At.Before(crossings[i-1].At) {
			t.Fatalf("crossings not chronological: %v before %v", c.At, crossings[i-1].At)
		}
	}
	for _, k := range []PhaseKind{NewMoon, FirstQuarter, FullMoon, LastQuarter} {
		if !seen[k] {
			t.Fatalf("phase %v missing from 30-day window", k)
		}
	}

	// Reference: full moon 2024-03-25 07:00 UTC.
	want := utc(2024, time.March, 25, 7, 0)
	var full time.Time
	for _, c := range crossings {
		if c.Kind == FullMoon {
			full = c.At
			break
		}
	}
	if d := full.Sub(want); d < -12*time.Hour || d > 12*time.Hour {
		t.Fatalf("full moon instant %v too far from reference %v", full, want)
	}
}

func TestApparentRadii(t *testing.T) {
	p, _ := NewMeeus()
	at := utc(2024, time.June, 1, 0, 0)
	obs := Observer{Latitude: 38.7, Longitude: -9.1}

	sun, err := p.ApparentRadius(Sun, obs, at)
	if err != nil {
		t.Fatalf("sun radius: %v", err)
	}
	if sun < 0.25 || sun > 0.28 {
		t.Fatalf("sun apparent radius out of range: %f", sun)
	}

	moon, err := p.ApparentRadius(Moon, obs, at)
	if err != nil {
		t.Fatalf("moon radius: %v", err)
	}
	if moon < 0.23 || moon > 0.31 {
		t.Fatalf("moon apparent radius out of range: %f", moon)
	}
}

func TestSunAltitudeEquatorNoon(t *testing.T) {
	p, _ := NewMeeus()
	// Near the March equinox the sun passes close to the zenith at the
	// equator around solar noon.
	alt, err := p.Altitude(Sun, Observer{}, utc(2024, time.March, 20, 12, 0))
	if err != nil {
		t.Fatalf("Altitude: %v", err)
	}
	if alt < 80 {
		t.Fatalf("expected near-zenith sun, got altitude %f", alt)
	}
}

func TestLunarEclipsesMarch2025(t *testing.T) {
	p, _ := NewMeeus()
	// 2025-03-14 carried a total lunar eclipse.
	start := utc(2025, time.March, 1, 0, 0)
	cands, err := p.LunarEclipses(start, start.Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("LunarEclipses: %v", err)
	}
	if len(cands) == 0 {
		t.Fatal("expected a lunar eclipse candidate in March 2025")
	}
	c := cands[0]
	want := utc(2025, time.March, 14, 6, 58)
	if d := c.At.Sub(want); d < -24*time.Hour || d > 24*time.Hour {
		t.Fatalf("candidate %v too far from reference %v", c.At, want)
	}
	if c.Category == LunarPenumbral {
		t.Fatalf("expected umbral eclipse, got %s", c.Category)
	}
}

func TestFailedProviderFailsClosed(t *testing.T) {
	p := Failed(errors.New("dataset missing"))
	if _, err := p.Altitude(Moon, Observer{}, time.Now()); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("want ErrProviderUnavailable, got %v", err)
	}
	if _, err := p.PhaseCrossings(time.Now(), time.Now().Add(time.Hour)); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("want ErrProviderUnavailable, got %v", err)
	}
}

package notify

import (
	"strings"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/almanac"
)

// Fingerprints identify an announced event by what the reader would
// see, not by the computed instant: a phase is its kind plus UTC date,
// an eclipse just its UTC date. Re-deriving the same event with a
// slightly different timestamp therefore never re-announces it.

func phaseFingerprint(e almanac.MoonPhaseEvent) string {
	return e.Kind.String() + "|" + dateFingerprint(e.At)
}

func dateFingerprint(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

func phaseList(events []almanac.MoonPhaseEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, phaseFingerprint(e))
	}
	return out
}

func sameList(a, b []string) bool {
	return strings.Join(a, "\n") == strings.Join(b, "\n")
}

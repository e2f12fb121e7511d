package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/almanac"
	"github.com/EduardaSRBastos/astro-alert/internal/ephemeris"
	"github.com/EduardaSRBastos/astro-alert/internal/geolocate"
	"github.com/EduardaSRBastos/astro-alert/internal/notify"
)

// Times render in the observer's clock when the geolocation lookup
// yielded an offset, otherwise in UTC.

func clockFor(loc geolocate.Location) *time.Location {
	if loc.UTCOffset == 0 {
		return time.UTC
	}
	return time.FixedZone(offsetLabel(loc.UTCOffset), int(loc.UTCOffset/time.Second))
}

func offsetLabel(off time.Duration) string {
	sign := "+"
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("UTC%s%02d%02d", sign, int(off.Hours()), int(off.Minutes())%60)
}

func formatDate(t time.Time, loc geolocate.Location) string {
	return t.In(clockFor(loc)).Format("02/01/2006")
}

func stampAt(t time.Time, loc geolocate.Location) string {
	clk := clockFor(loc)
	zone := "UTC"
	if clk != time.UTC {
		zone = offsetLabel(loc.UTCOffset)
	}
	return t.In(clk).Format("02/01/2006 at 15:04") + " (" + zone + ")"
}

func phaseEmoji(kind ephemeris.PhaseKind) string {
	switch kind {
	case ephemeris.NewMoon:
		return "🌑"
	case ephemeris.FirstQuarter:
		return "🌓"
	case ephemeris.FullMoon:
		return "🌕"
	case ephemeris.LastQuarter:
		return "🌗"
	default:
		return "🌙"
	}
}

func renderPhase(ev almanac.MoonPhaseEvent, loc geolocate.Location) string {
	return fmt.Sprintf("%s %s on %s", phaseEmoji(ev.Kind), ev.Kind, stampAt(ev.At, loc))
}

func renderPhaseList(events []almanac.MoonPhaseEvent, loc geolocate.Location) string {
	if len(events) == 0 {
		return "No phase transitions found in the next 30 days."
	}
	var b strings.Builder
	b.WriteString("Moon phases in the next 30 days:\n")
	for _, ev := range events {
		b.WriteString(renderPhase(ev, loc))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSolar(ec almanac.SolarEclipse, loc geolocate.Location) string {
	return fmt.Sprintf("🌞 %s solar eclipse on %s — viewed from %s",
		ec.Kind, stampAt(ec.At, loc), loc.Region)
}

func renderLunar(ec almanac.LunarEclipse, loc geolocate.Location) string {
	return fmt.Sprintf("🌘 %s lunar eclipse on %s — visible from %s",
		ec.Category, stampAt(ec.At, loc), loc.Region)
}

func renderAlert(a notify.Alert, loc geolocate.Location) string {
	lead := "2 hours"
	if a.Band == "12h" {
		lead = "12 hours"
	}
	return fmt.Sprintf("⏰ %s in about %s (%s)", a.Label, lead, stampAt(a.At, loc))
}

// renderDigest turns one cycle's digest into channel messages, one
// per announcement.
func renderDigest(d notify.Digest) []string {
	var out []string
	loc := d.Location
	if d.NewPhase != nil {
		out = append(out, "Moon phase update: "+renderPhase(*d.NewPhase, loc))
	}
	if d.NewFullMoon != nil {
		out = append(out, "🌕 Next full moon: "+stampAt(d.NewFullMoon.At, loc))
	}
	if d.NewSolar != nil {
		out = append(out, renderSolar(*d.NewSolar, loc))
	}
	if d.NewLunar != nil {
		out = append(out, renderLunar(*d.NewLunar, loc))
	}
	if d.PhasesChanged {
		out = append(out, renderPhaseList(d.Phases, loc))
	}
	for _, a := range d.Alerts {
		out = append(out, renderAlert(a, loc))
	}
	return out
}

// renderError keeps chat output short; detail goes to the log.
func renderError(err error) string {
	if errors.Is(err, ephemeris.ErrProviderUnavailable) {
		return "Error: ephemeris data is unavailable right now."
	}
	return "Error: could not compute the answer, try again later."
}

package state

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("state storage disabled")

// Config configures persistence.
//
// Driver values:
//   - "file": single JSON document, written atomically
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Event categories tracked independently for change detection and
// pre-event alerts.
const (
	CategoryMoonPhase    = "moon_phase"
	CategoryFullMoon     = "full_moon"
	CategorySolarEclipse = "solar_eclipse"
	CategoryLunarEclipse = "lunar_eclipse"
)

// AlertMark records which pre-event alerts already fired for the
// current fingerprint of a category.
type AlertMark string

const (
	AlertNone     AlertMark = ""
	Alert12hFired AlertMark = "12h-fired"
	Alert2hFired  AlertMark = "2h-fired"
)

// Document is the whole persisted state. Fingerprints are opaque
// strings owned by the notify package; an empty fingerprint means the
// category has never been announced.
type Document struct {
	LastPhase        string               `json:"last_phase,omitempty"`
	LastFullMoon     string               `json:"last_full_moon,omitempty"`
	LastSolarEclipse string               `json:"last_solar_eclipse,omitempty"`
	LastLunarEclipse string               `json:"last_lunar_eclipse,omitempty"`
	UpcomingPhases   []string             `json:"upcoming_phases,omitempty"`
	Alerts           map[string]AlertMark `json:"alerts,omitempty"`
	UpdatedAt        time.Time            `json:"updated_at,omitzero"`
}

// Mark returns the alert marker for a category.
func (d *Document) Mark(category string) AlertMark {
	if d.Alerts == nil {
		return AlertNone
	}
	return d.Alerts[category]
}

// SetMark records an alert marker, dropping the map entry when the
// marker resets to AlertNone.
func (d *Document) SetMark(category string, m AlertMark) {
	if m == AlertNone {
		delete(d.Alerts, category)
		return
	}
	if d.Alerts == nil {
		d.Alerts = make(map[string]AlertMark)
	}
	d.Alerts[category] = m
}

// Clone deep-copies the document so in-flight mutations never leak
// into a previously returned snapshot.
func (d Document) Clone() Document {
	out := d
	if d.UpcomingPhases != nil {
		out.UpcomingPhases = append([]string(nil), d.UpcomingPhases...)
	}
	if d.Alerts != nil {
		out.Alerts = make(map[string]AlertMark, len(d.Alerts))
		for k, v := range d.Alerts {
			out.Alerts[k] = v
		}
	}
	return out
}

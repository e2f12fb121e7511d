// Package notify decides what the bot announces: it diffs each
// cycle's dataset against the persisted fingerprints and emits a
// digest of new events plus any pre-event alerts due.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/almanac"
	"github.com/EduardaSRBastos/astro-alert/internal/geolocate"
	"github.com/EduardaSRBastos/astro-alert/internal/state"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// Events is the dataset resolved for one cycle. Nil pointers mean the
// search found nothing, which is a defined outcome.
type Events struct {
	Now      time.Time
	Location geolocate.Location

	Phases    []almanac.MoonPhaseEvent
	NextPhase *almanac.MoonPhaseEvent
	FullMoon  *almanac.MoonPhaseEvent
	Solar     *almanac.SolarEclipse
	Lunar     *almanac.LunarEclipse
}

// Alert is a pre-event reminder that entered one of the lead bands.
type Alert struct {
	Category string
	Band     string // "2h" or "12h"
	Label    string
	At       time.Time
}

// Digest is what one cycle decided to announce. Nil/false fields mean
// the category is unchanged since the previous run.
type Digest struct {
	At       time.Time
	Location geolocate.Location

	NewPhase    *almanac.MoonPhaseEvent
	NewFullMoon *almanac.MoonPhaseEvent
	NewSolar    *almanac.SolarEclipse
	NewLunar    *almanac.LunarEclipse

	PhasesChanged bool
	Phases        []almanac.MoonPhaseEvent

	Alerts []Alert
}

// Empty reports whether the cycle produced nothing to announce.
func (d Digest) Empty() bool {
	return d.NewPhase == nil && d.NewFullMoon == nil && d.NewSolar == nil &&
		d.NewLunar == nil && !d.PhasesChanged && len(d.Alerts) == 0
}

// Tracker compares a cycle's dataset against the persisted document
// and decides what is new. All decisions of a cycle commit in a single
// document write; if that write fails the whole cycle is discarded and
// nothing is announced.
type Tracker struct {
	store state.Store
	log   logx.Logger

	mu sync.Mutex
}

func NewTracker(store state.Store, log logx.Logger) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{store: store, log: log}
}

// Evaluate runs the change detection for one cycle. It holds the
// tracker lock across load, decide and save, so concurrent cycles
// serialize instead of interleaving partial state.
func (t *Tracker) Evaluate(ctx context.Context, ev Events) (Digest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.store.Load(ctx)
	if err != nil {
		return Digest{}, fmt.Errorf("load state: %w", err)
	}

	d := Digest{At: ev.Now, Location: ev.Location, Phases: ev.Phases}

	if ev.NextPhase != nil {
		if fp := phaseFingerprint(*ev.NextPhase); fp != doc.LastPhase {
			doc.LastPhase = fp
			doc.SetMark(state.CategoryMoonPhase, state.AlertNone)
			d.NewPhase = ev.NextPhase
		}
	}
	if ev.FullMoon != nil {
		if fp := dateFingerprint(ev.FullMoon.At); fp != doc.LastFullMoon {
			doc.LastFullMoon = fp
			doc.SetMark(state.CategoryFullMoon, state.AlertNone)
			d.NewFullMoon = ev.FullMoon
		}
	}
	if ev.Solar != nil {
		if fp := dateFingerprint(ev.Solar.At); fp != doc.LastSolarEclipse {
			doc.LastSolarEclipse = fp
			doc.SetMark(state.CategorySolarEclipse, state.AlertNone)
			d.NewSolar = ev.Solar
		}
	}
	if ev.Lunar != nil {
		if fp := dateFingerprint(ev.Lunar.At); fp != doc.LastLunarEclipse {
			doc.LastLunarEclipse = fp
			doc.SetMark(state.CategoryLunarEclipse, state.AlertNone)
			d.NewLunar = ev.Lunar
		}
	}

	if list := phaseList(ev.Phases); !sameList(list, doc.UpcomingPhases) {
		doc.UpcomingPhases = list
		d.PhasesChanged = true
	}

	d.Alerts = collectAlerts(&doc, ev)

	if err := t.store.Save(ctx, doc); err != nil {
		// The document on disk still describes the previous cycle, so
		// announcing now would repeat on the next successful run.
		return Digest{}, fmt.Errorf("persist state: %w", err)
	}
	return d, nil
}

// collectAlerts walks every category with a known next event and fires
// the band alerts that have not fired yet for the current fingerprint.
func collectAlerts(doc *state.Document, ev Events) []Alert {
	var alerts []Alert
	add := func(category, label string, at time.Time) {
		band := bandFor(at.Sub(ev.Now))
		if band == "" {
			return
		}
		mark := doc.Mark(category)
		switch band {
		case "2h":
			if mark == state.Alert2hFired {
				return
			}
			doc.SetMark(category, state.Alert2hFired)
		case "12h":
			if mark != state.AlertNone {
				return
			}
			doc.SetMark(category, state.Alert12hFired)
		}
		alerts = append(alerts, Alert{Category: category, Band: band, Label: label, At: at})
	}

	if ev.NextPhase != nil {
		add(state.CategoryMoonPhase, ev.NextPhase.Kind.String(), ev.NextPhase.At)
	}
	if ev.FullMoon != nil {
		add(state.CategoryFullMoon, "Full Moon", ev.FullMoon.At)
	}
	if ev.Solar != nil {
		add(state.CategorySolarEclipse, ev.Solar.Kind.String()+" solar eclipse", ev.Solar.At)
	}
	if ev.Lunar != nil {
		add(state.CategoryLunarEclipse, string(ev.Lunar.Category)+" lunar eclipse", ev.Lunar.At)
	}
	return alerts
}

// bandFor maps time-to-event onto the alert bands. The bands are
// half-open on the low side so an event 1.5h out no longer qualifies,
// and one 2.5h out still does.
func bandFor(until time.Duration) string {
	h := until.Hours()
	switch {
	case h > 1.5 && h <= 2.5:
		return "2h"
	case h > 11.5 && h <= 12.5:
		return "12h"
	}
	return ""
}

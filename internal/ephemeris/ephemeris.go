package ephemeris

import (
	"errors"
	"time"
)

// ErrProviderUnavailable reports that the underlying ephemeris source
// failed. No retries happen at this layer; the calling schedule decides.
var ErrProviderUnavailable = errors.New("ephemeris provider unavailable")

// Body identifies a celestial body the provider knows about.
type Body int

const (
	Sun Body = iota
	Moon
)

func (b Body) String() string {
	switch b {
	case Sun:
		return "Sun"
	case Moon:
		return "Moon"
	default:
		return "unknown"
	}
}

// Observer is a geographic location on Earth.
type Observer struct {
	Latitude  float64 // degrees, north positive
	Longitude float64 // degrees, east positive
}

// PhaseKind is one of the four principal moon phases.
type PhaseKind int

const (
	NewMoon PhaseKind = iota
	FirstQuarter
	FullMoon
	LastQuarter
)

func (k PhaseKind) String() string {
	switch k {
	case NewMoon:
		return "New Moon"
	case FirstQuarter:
		return "First Quarter"
	case FullMoon:
		return "Full Moon"
	case LastQuarter:
		return "Last Quarter"
	default:
		return "unknown"
	}
}

// PhaseCrossing is a discrete instant where the sun–moon elongation
// crosses a quarter boundary.
type PhaseCrossing struct {
	Kind PhaseKind
	At   time.Time
}

// LunarCategory is the provider-defined lunar-eclipse classification.
type LunarCategory string

const (
	LunarTotal     LunarCategory = "Total"
	LunarPartial   LunarCategory = "Partial"
	LunarPenumbral LunarCategory = "Penumbral"
)

// LunarCandidate is a geocentric lunar-eclipse instant. Whether it is
// visible from a given observer is the caller's concern.
type LunarCandidate struct {
	At       time.Time
	Category LunarCategory
}

// Provider is the query surface the rest of the app computes against.
//
// All methods are pure functions of their inputs: no caching here
// (caching belongs to the resolvers), no retries, no hidden state.
// Angles are degrees, instants UTC.
type Provider interface {
	// AngularSeparation is the apparent angle between two bodies as
	// seen from the observer.
	AngularSeparation(a, b Body, obs Observer, at time.Time) (float64, error)

	// ApparentRadius is half the angle the body's disc subtends at the
	// observer, from physical radius and line-of-sight distance.
	ApparentRadius(b Body, obs Observer, at time.Time) (float64, error)

	// Altitude is the body's topocentric altitude above the observer's
	// horizon.
	Altitude(b Body, obs Observer, at time.Time) (float64, error)

	// PhaseCrossings enumerates quarter-boundary crossings of the moon's
	// phase angle in [start, end), in chronological order.
	PhaseCrossings(start, end time.Time) ([]PhaseCrossing, error)

	// LunarEclipses enumerates geocentric lunar-eclipse instants in
	// [start, end), in chronological order.
	LunarEclipses(start, end time.Time) ([]LunarCandidate, error)
}

// Failed returns a provider that fails every query with the given
// startup error wrapped in ErrProviderUnavailable. Used when the
// ephemeris model cannot be initialized: the process fails closed for
// its remaining lifetime instead of retrying per call.
func Failed(cause error) Provider { return failedProvider{cause: cause} }

type failedProvider struct{ cause error }

func (p failedProvider) err() error {
	if p.cause == nil {
		return ErrProviderUnavailable
	}
	return errors.Join(ErrProviderUnavailable, p.cause)
}

func (p failedProvider) AngularSeparation(a, b Body, obs Observer, at time.Time) (float64, error) {
	return 0, p.err()
}

func (p failedProvider) ApparentRadius(b Body, obs Observer, at time.Time) (float64, error) {
	return 0, p.err()
}

func (p failedProvider) Altitude(b Body, obs Observer, at time.Time) (float64, error) {
	return 0, p.err()
}

func (p failedProvider) PhaseCrossings(start, end time.Time) ([]PhaseCrossing, error) {
	return nil, p.err()
}

func (p failedProvider) LunarEclipses(start, end time.Time) ([]LunarCandidate, error) {
	return nil, p.err()
}

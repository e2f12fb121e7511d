// Package ephemeris answers geometric questions about the sun and moon
// for an observer on Earth: angular separation, apparent disc radius,
// altitude above the horizon, quarter-phase crossings, and lunar
// eclipse candidates.
//
// The Provider interface is the adapter boundary: results arrive as
// typed values in degrees and UTC instants, and any failure of the
// underlying model surfaces as ErrProviderUnavailable. Providers are
// pure; memoization lives in the almanac layer.
package ephemeris

package state

// Package state persists what the bot has already announced: one
// fingerprint per event category, the upcoming-phase list, and the
// pre-event alert markers.
//
// The file driver is the default. A save either fully replaces the
// previous document or leaves it untouched.

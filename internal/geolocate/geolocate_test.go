package geolocate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

func TestParseUTCOffset(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"+0000", 0, true},
		{"+0100", time.Hour, true},
		{"-0930", -(9*time.Hour + 30*time.Minute), true},
		{"+1345", 13*time.Hour + 45*time.Minute, true},
		{"0100", 0, false},
		{"+1", 0, false},
		{"+2460", 0, false},
		{"+-130", 0, false},
		{"+1a30", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseUTCOffset(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseUTCOffset(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"latitude": 38.72, "longitude": -9.14, "region": "Lisbon", "utc_offset": "+0100"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	loc, err := c.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if loc.Region != "Lisbon" || loc.Latitude != 38.72 || loc.UTCOffset != time.Hour {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestLookupMissingCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"region": "Nowhere"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Lookup(context.Background()); err == nil {
		t.Fatal("expected error for response without coordinates")
	}
}

func TestResolverDegradesToUnknownOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(NewClient(srv.URL, time.Second), logx.Nop())
	if got := r.Resolve(context.Background()); got != Unknown {
		t.Fatalf("expected Unknown sentinel, got %+v", got)
	}
	// Second resolve must not retry the lookup.
	_ = r.Resolve(context.Background())
	if calls != 1 {
		t.Fatalf("expected exactly one lookup call, got %d", calls)
	}
}

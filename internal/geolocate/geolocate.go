// Package geolocate maps the host's network location to geographic
// coordinates via an ipapi-style JSON endpoint. Lookup failures never
// propagate past the Resolver: callers get the Unknown sentinel and the
// bot keeps running with a zero offset.
package geolocate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/ephemeris"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

const defaultEndpoint = "https://ipapi.co/json/"

// Location is the observer position plus presentation metadata.
type Location struct {
	Latitude  float64
	Longitude float64
	Region    string
	UTCOffset time.Duration
}

// Unknown is the degraded fallback when lookup fails.
var Unknown = Location{Region: "Unknown"}

// Observer converts to the ephemeris coordinate type.
func (l Location) Observer() ephemeris.Observer {
	return ephemeris.Observer{Latitude: l.Latitude, Longitude: l.Longitude}
}

type apiResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Region    string   `json:"region"`
	UTCOffset string   `json:"utc_offset"`
}

// Client queries the geolocation endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

// Lookup fetches the current network location. Malformed or missing
// coordinate fields are an error here; the Resolver decides how to
// degrade.
func (c *Client) Lookup(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("User-Agent", "astro-alert/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geolocation response: %w", err)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return Location{}, fmt.Errorf("geolocation response missing coordinates")
	}

	loc := Location{
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
		Region:    body.Region,
	}
	if loc.Region == "" {
		loc.Region = Unknown.Region
	}
	if off, ok := ParseUTCOffset(body.UTCOffset); ok {
		loc.UTCOffset = off
	}
	return loc, nil
}

// ParseUTCOffset parses a ±HHMM offset label. Anything but a sign
// followed by four ASCII digits is rejected.
func ParseUTCOffset(s string) (time.Duration, bool) {
	if len(s) != 5 {
		return 0, false
	}
	sign := time.Duration(1)
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, false
	}
	for i := 1; i < 5; i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	hh := int(s[1]-'0')*10 + int(s[2]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return sign * (time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), true
}

// Resolver performs the lookup at most once per process and caches the
// result for the remaining lifetime. A failed lookup caches Unknown;
// re-resolution is deliberately not offered.
type Resolver struct {
	client *Client
	log    logx.Logger

	once sync.Once
	loc  Location
}

func NewResolver(client *Client, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{client: client, log: log}
}

// Resolve returns the cached location, looking it up on first call.
// It never returns an error: failures degrade to Unknown.
func (r *Resolver) Resolve(ctx context.Context) Location {
	r.once.Do(func() {
		loc, err := r.client.Lookup(ctx)
		if err != nil {
			r.log.Warn("geolocation failed; using Unknown", logx.Err(err))
			r.loc = Unknown
			return
		}
		r.log.Info("observer location resolved",
			logx.Float64("lat", loc.Latitude),
			logx.Float64("lon", loc.Longitude),
			logx.String("region", loc.Region))
		r.loc = loc
	})
	return r.loc
}

package ephemeris

import (
	"fmt"
	"math"
	"time"
)

// Meeus is a self-contained ephemeris computed from truncated
// Meeus-style series: low-precision solar position (Astronomical
// Algorithms ch. 25), the main ELP terms for the lunar position and
// distance (ch. 47), and a Danjon-factor shadow model for lunar
// eclipses (ch. 54). Accuracy is a few arcminutes, comfortably inside
// the date/hour granularity announcements need.
type Meeus struct{}

// NewMeeus builds the computed provider. The error return keeps the
// constructor shape uniform with dataset-backed providers.
func NewMeeus() (*Meeus, error) { return &Meeus{}, nil }

const (
	earthRadiusKm = 6378.14
	sunRadiusKm   = 696000.0
	moonRadiusKm  = 1737.4
	kmPerAU       = 149597870.7

	// Crossing scan resolution: the elongation moves ~0.5°/hour, so an
	// hourly scan cannot skip a quarter boundary.
	crossingScanStep = time.Hour
	crossingRefine   = time.Minute
)

type equatorial struct {
	ra   float64 // degrees
	dec  float64 // degrees
	dist float64 // km
}

func (m *Meeus) AngularSeparation(a, b Body, obs Observer, at time.Time) (float64, error) {
	ea, err := m.apparent(a, obs, at)
	if err != nil {
		return 0, err
	}
	eb, err := m.apparent(b, obs, at)
	if err != nil {
		return 0, err
	}
	return separation(ea, eb), nil
}

func (m *Meeus) ApparentRadius(b Body, obs Observer, at time.Time) (float64, error) {
	eq, err := m.apparent(b, obs, at)
	if err != nil {
		return 0, err
	}
	var r float64
	switch b {
	case Sun:
		r = sunRadiusKm
	case Moon:
		r = moonRadiusKm
	default:
		return 0, fmt.Errorf("%w: no radius model for body %d", ErrProviderUnavailable, b)
	}
	return rad2deg(math.Asin(r / eq.dist)), nil
}

func (m *Meeus) Altitude(b Body, obs Observer, at time.Time) (float64, error) {
	eq, err := m.apparent(b, obs, at)
	if err != nil {
		return 0, err
	}
	return altitude(eq, obs, at), nil
}

// apparent returns the body's equatorial position as seen by the
// observer: topocentric for the Moon (parallax up to ~1°), geocentric
// for the Sun (parallax under 9 arcseconds, ignored).
func (m *Meeus) apparent(b Body, obs Observer, at time.Time) (equatorial, error) {
	switch b {
	case Sun:
		return sunEquatorial(at), nil
	case Moon:
		return topocentric(moonEquatorial(at), obs, at), nil
	default:
		return equatorial{}, fmt.Errorf("%w: unknown body %d", ErrProviderUnavailable, b)
	}
}

func (m *Meeus) PhaseCrossings(start, end time.Time) ([]PhaseCrossing, error) {
	var out []PhaseCrossing
	err := m.scanElongation(start, end, func(kind PhaseKind, at time.Time) {
		out = append(out, PhaseCrossing{Kind: kind, At: at})
	})
	return out, err
}

func (m *Meeus) LunarEclipses(start, end time.Time) ([]LunarCandidate, error) {
	var out []LunarCandidate
	err := m.scanElongation(start, end, func(kind PhaseKind, at time.Time) {
		if kind != FullMoon {
			return
		}
		if cat, ok := lunarEclipseAt(at); ok {
			out = append(out, LunarCandidate{At: at, Category: cat})
		}
	})
	return out, err
}

// scanElongation walks [start, end) in hourly steps and reports every
// quarter-boundary crossing of the sun–moon elongation, refined to
// minute precision.
func (m *Meeus) scanElongation(start, end time.Time, emit func(PhaseKind, time.Time)) error {
	if !start.Before(end) {
		return nil
	}
	boundaries := [...]struct {
		deg  float64
		kind PhaseKind
	}{
		{0, NewMoon},
		{90, FirstQuarter},
		{180, FullMoon},
		{270, LastQuarter},
	}

	prev := elongation(start)
	for t := start; t.Before(end); t = t.Add(crossingScanStep) {
		next := t.Add(crossingScanStep)
		cur := elongation(next)
		advance := normalize360(cur - prev)
		for _, b := range boundaries {
			offset := normalize360(b.deg - prev)
			if offset < advance {
				at := refineCrossing(t, next, b.deg)
				if !at.Before(start) && at.Before(end) {
					emit(b.kind, at)
				}
			}
		}
		prev = cur
	}
	return nil
}

// refineCrossing bisects [lo, hi] for the instant the elongation
// reaches target. The elongation is monotonic over a single hour, so
// plain bisection on the signed offset is safe.
func refineCrossing(lo, hi time.Time, target float64) time.Time {
	for hi.Sub(lo) > crossingRefine {
		mid := lo.Add(hi.Sub(lo) / 2)
		// Signed distance from target in (-180, 180]; negative means the
		// boundary is still ahead.
		d := normalize360(elongation(mid) - target)
		if d > 180 {
			d -= 360
		}
		if d < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2).Truncate(time.Minute)
}

// elongation is the moon's ecliptic longitude minus the sun's, in
// [0, 360): 0 new moon, 90 first quarter, 180 full, 270 last quarter.
func elongation(at time.Time) float64 {
	return normalize360(moonLongitude(at) - sunLongitude(at))
}

// lunarEclipseAt classifies the Earth-shadow geometry at a full-moon
// instant. Shadow radii use the Danjon enlargement factor 1.02.
func lunarEclipseAt(at time.Time) (LunarCategory, bool) {
	moon := moonEquatorial(at)
	sun := sunEquatorial(at)

	antisolar := equatorial{ra: normalize360(sun.ra + 180), dec: -sun.dec}
	sep := separation(moon, antisolar)

	parallaxMoon := rad2deg(math.Asin(earthRadiusKm / moon.dist))
	parallaxSun := rad2deg(math.Asin(earthRadiusKm / sun.dist))
	sunR := rad2deg(math.Asin(sunRadiusKm / sun.dist))
	moonR := rad2deg(math.Asin(moonRadiusKm / moon.dist))

	umbra := 1.02 * (parallaxMoon + parallaxSun - sunR)
	penumbra := 1.02 * (parallaxMoon + parallaxSun + sunR)

	switch {
	case sep <= umbra-moonR:
		return LunarTotal, true
	case sep <= umbra+moonR:
		return LunarPartial, true
	case sep <= penumbra+moonR:
		return LunarPenumbral, true
	default:
		return "", false
	}
}

// ---- positional models ----

func julianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/86400000.0 + 2440587.5
}

func julianCenturies(t time.Time) float64 {
	return (julianDay(t) - 2451545.0) / 36525.0
}

func daysSinceJ2000(t time.Time) float64 {
	return julianDay(t) - 2451545.0
}

// obliquity of the ecliptic, degrees.
func obliquity(T float64) float64 {
	return 23.4392911 - 0.0130042*T
}

// sunLongitude is the sun's apparent ecliptic longitude, degrees.
func sunLongitude(at time.Time) float64 {
	T := julianCenturies(at)
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := deg2rad(357.52911 + 35999.05029*T - 0.0001537*T*T)
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)
	// -0.00569 approximates aberration.
	return normalize360(L0 + C - 0.00569)
}

func sunEquatorial(at time.Time) equatorial {
	T := julianCenturies(at)
	lambda := deg2rad(sunLongitude(at))
	eps := deg2rad(obliquity(T))

	M := deg2rad(357.52911 + 35999.05029*T - 0.0001537*T*T)
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(M) +
		(0.019993-0.000101*T)*math.Sin(2*M) +
		0.000289*math.Sin(3*M)
	e := 0.016708634 - 0.000042037*T
	nu := M + deg2rad(C)
	distAU := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(nu))

	ra := rad2deg(math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda)))
	dec := rad2deg(math.Asin(math.Sin(eps) * math.Sin(lambda)))
	return equatorial{ra: normalize360(ra), dec: dec, dist: distAU * kmPerAU}
}

// moonLongitude is the moon's geocentric ecliptic longitude, degrees,
// from the dominant ELP terms.
func moonLongitude(at time.Time) float64 {
	T := julianCenturies(at)
	Lp := 218.3164477 + 481267.88123421*T
	D := deg2rad(normalize360(297.8501921 + 445267.1114034*T))
	M := deg2rad(normalize360(357.5291092 + 35999.0502909*T))
	Mp := deg2rad(normalize360(134.9633964 + 477198.8675055*T))
	F := deg2rad(normalize360(93.2720950 + 483202.0175233*T))

	lon := Lp +
		6.288774*math.Sin(Mp) +
		1.274027*math.Sin(2*D-Mp) +
		0.658314*math.Sin(2*D) +
		0.213618*math.Sin(2*Mp) -
		0.185116*math.Sin(M) -
		0.114332*math.Sin(2*F) +
		0.058793*math.Sin(2*D-2*Mp) +
		0.057066*math.Sin(2*D-M-Mp) +
		0.053322*math.Sin(2*D+Mp) +
		0.045758*math.Sin(2*D-M)
	return normalize360(lon)
}

func moonEquatorial(at time.Time) equatorial {
	T := julianCenturies(at)
	D := deg2rad(normalize360(297.8501921 + 445267.1114034*T))
	Mp := deg2rad(normalize360(134.9633964 + 477198.8675055*T))
	F := deg2rad(normalize360(93.2720950 + 483202.0175233*T))

	lambda := deg2rad(moonLongitude(at))
	beta := deg2rad(5.128122*math.Sin(F) +
		0.280602*math.Sin(Mp+F) +
		0.277693*math.Sin(Mp-F) +
		0.173237*math.Sin(2*D-F) +
		0.055413*math.Sin(2*D+F-Mp) +
		0.046271*math.Sin(2*D-F-Mp))
	dist := 385000.56 -
		20905.355*math.Cos(Mp) -
		3699.111*math.Cos(2*D-Mp) -
		2955.968*math.Cos(2*D) -
		569.925*math.Cos(2*Mp) -
		246.158*math.Cos(2*D+Mp)

	eps := deg2rad(obliquity(T))
	sinL, cosL := math.Sincos(lambda)
	sinB, cosB := math.Sincos(beta)

	ra := rad2deg(math.Atan2(sinL*math.Cos(eps)-math.Tan(beta)*math.Sin(eps), cosL))
	dec := rad2deg(math.Asin(sinB*math.Cos(eps) + cosB*math.Sin(eps)*sinL))
	return equatorial{ra: normalize360(ra), dec: dec, dist: dist}
}

// topocentric shifts a geocentric position to the observer using the
// standard horizontal-parallax correction (sea-level observer).
func topocentric(eq equatorial, obs Observer, at time.Time) equatorial {
	pi := math.Asin(earthRadiusKm / eq.dist)

	latRad := deg2rad(obs.Latitude)
	rhoSin := 0.99883 * math.Sin(latRad)
	rhoCos := 0.99883 * math.Cos(latRad)

	H := deg2rad(hourAngle(eq.ra, obs.Longitude, at))
	decRad := deg2rad(eq.dec)

	sinPi := math.Sin(pi)
	dAlpha := math.Atan2(-rhoCos*sinPi*math.Sin(H),
		math.Cos(decRad)-rhoCos*sinPi*math.Cos(H))
	decTopo := math.Atan2(math.Sin(decRad)-rhoSin*sinPi,
		math.Cos(decRad)-rhoCos*sinPi*math.Cos(H))

	return equatorial{
		ra:   normalize360(eq.ra + rad2deg(dAlpha)),
		dec:  rad2deg(decTopo),
		dist: eq.dist,
	}
}

// altitude of a position above the observer's horizon, degrees.
func altitude(eq equatorial, obs Observer, at time.Time) float64 {
	H := deg2rad(hourAngle(eq.ra, obs.Longitude, at))
	latRad := deg2rad(obs.Latitude)
	decRad := deg2rad(eq.dec)
	sinAlt := math.Sin(latRad)*math.Sin(decRad) +
		math.Cos(latRad)*math.Cos(decRad)*math.Cos(H)
	return rad2deg(math.Asin(clamp(sinAlt, -1, 1)))
}

// hourAngle of a right ascension for the observer's meridian, degrees.
func hourAngle(raDeg, lonDeg float64, at time.Time) float64 {
	d := daysSinceJ2000(at)
	gmst := 280.46061837 + 360.98564736629*d
	lst := normalize360(gmst + lonDeg)
	h := normalize360(lst - raDeg)
	if h > 180 {
		h -= 360
	}
	return h
}

// separation between two equatorial positions, degrees.
func separation(a, b equatorial) float64 {
	ra1, dec1 := deg2rad(a.ra), deg2rad(a.dec)
	ra2, dec2 := deg2rad(b.ra), deg2rad(b.dec)
	cosPsi := math.Sin(dec1)*math.Sin(dec2) +
		math.Cos(dec1)*math.Cos(dec2)*math.Cos(ra1-ra2)
	return rad2deg(math.Acos(clamp(cosPsi, -1, 1)))
}

func normalize360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

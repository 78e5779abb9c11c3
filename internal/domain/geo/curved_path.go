package geo

import "math"

const (
	// DefaultSteps is the number of Bézier segments in a leg arc.
	DefaultSteps = 32
	// DefaultCurveRatio is the bow height as a fraction of the chord length.
	DefaultCurveRatio = 0.15
)

// PathOptions tunes the arc. Steps below 1 fall back to DefaultSteps and an
// unusable CurveRatio to DefaultCurveRatio; a zero CurveRatio draws a straight line.
type PathOptions struct {
	Steps      int
	CurveRatio float64
}

// DefaultPathOptions returns the options used for leg rendering.
func DefaultPathOptions() PathOptions {
	return PathOptions{Steps: DefaultSteps, CurveRatio: DefaultCurveRatio}
}

func (o PathOptions) normalized() PathOptions {
	if o.Steps < 1 {
		o.Steps = DefaultSteps
	}
	if o.CurveRatio < 0 || math.IsNaN(o.CurveRatio) || math.IsInf(o.CurveRatio, 0) {
		o.CurveRatio = DefaultCurveRatio
	}
	return o
}

// CurvedPath is a sampled arc between two points. It is derived data and is
// rebuilt on every request.
type CurvedPath struct {
	Origin      GeoPoint   `json:"origin"`
	Destination GeoPoint   `json:"destination"`
	Points      []GeoPoint `json:"points"`
}

// IsDegenerate reports whether origin and destination coincide.
func (p CurvedPath) IsDegenerate() bool {
	return p.Origin == p.Destination
}

// Bounds returns the south-west and north-east corners enclosing every point.
func (p CurvedPath) Bounds() (sw, ne GeoPoint) {
	if len(p.Points) == 0 {
		return p.Origin, p.Origin
	}
	sw, ne = p.Points[0], p.Points[0]
	for _, pt := range p.Points[1:] {
		sw.Lat = math.Min(sw.Lat, pt.Lat)
		sw.Lng = math.Min(sw.Lng, pt.Lng)
		ne.Lat = math.Max(ne.Lat, pt.Lat)
		ne.Lng = math.Max(ne.Lng, pt.Lng)
	}
	return sw, ne
}

// BuildCurvedPath samples a quadratic Bézier arc from origin to destination.
// The control point sits on the perpendicular bisector of the chord, offset
// by CurveRatio times the chord length, so A→B and B→A bow to opposite sides.
// Interpolation is planar in lat/lng; the result is for drawing, not navigation.
//
// The returned slice always has Steps+1 points, starts at origin and ends at
// destination. Coincident endpoints yield Steps+1 copies of origin.
func BuildCurvedPath(origin, destination GeoPoint, opts PathOptions) CurvedPath {
	opts = opts.normalized()
	points := make([]GeoPoint, opts.Steps+1)

	if origin == destination {
		for i := range points {
			points[i] = origin
		}
		return CurvedPath{Origin: origin, Destination: destination, Points: points}
	}

	// Work on half-coordinates so finite inputs near the float64 limit do not
	// overflow before the ratio is applied.
	mid := GeoPoint{
		Lat: origin.Lat/2 + destination.Lat/2,
		Lng: origin.Lng/2 + destination.Lng/2,
	}
	halfLat := destination.Lat/2 - origin.Lat/2
	halfLng := destination.Lng/2 - origin.Lng/2

	// (-dLng, dLat) is the chord rotated 90° counter-clockwise. Its length
	// equals the chord length, so scaling it by CurveRatio offsets the control
	// point by CurveRatio chord lengths without a division.
	control := GeoPoint{
		Lat: mid.Lat - 2*(halfLng*opts.CurveRatio),
		Lng: mid.Lng + 2*(halfLat*opts.CurveRatio),
	}

	for i := 0; i <= opts.Steps; i++ {
		t := float64(i) / float64(opts.Steps)
		a := (1 - t) * (1 - t)
		b := 2 * (1 - t) * t
		c := t * t
		points[i] = GeoPoint{
			Lat: a*origin.Lat + b*control.Lat + c*destination.Lat,
			Lng: a*origin.Lng + b*control.Lng + c*destination.Lng,
		}
	}
	points[0] = origin
	points[opts.Steps] = destination

	return CurvedPath{
		Origin:      origin,
		Destination: destination,
		Points:      points,
	}
}

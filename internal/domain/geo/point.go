package geo

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0
	kmPerNm       = 1.852
)

// GeoPoint is a WGS-84 coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewGeoPoint returns a point after checking it is finite and within range.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate reports whether the point is a usable map coordinate.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("coordinates must be finite, got (%v, %v)", p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lng)
	}
	return nil
}

// String formats the point as "lat,lng".
func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// DistanceKm returns the great-circle (haversine) distance to q in kilometers.
func (p GeoPoint) DistanceKm(q GeoPoint) float64 {
	dLat := degreesToRadians(q.Lat - p.Lat)
	dLng := degreesToRadians(q.Lng - p.Lng)

	lat1Rad := degreesToRadians(p.Lat)
	lat2Rad := degreesToRadians(q.Lat)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// KmToNm converts kilometers to nautical miles.
func KmToNm(km float64) float64 {
	return km / kmPerNm
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

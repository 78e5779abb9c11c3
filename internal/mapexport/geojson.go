// Package mapexport renders leg routes as GeoJSON (RFC 7946) for map widgets.
package mapexport

import (
	"github.com/aerocharter/service-flightpath/internal/domain/geo"
	"github.com/aerocharter/service-flightpath/internal/domain/itinerary"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Airport roles used in Point feature properties.
const (
	RoleOrigin      = "origin"
	RoleDestination = "destination"
	RoleStopover    = "stopover"
)

// LegRoutesToFeatureCollection returns one LineString per leg followed by one
// Point per distinct airport, in first-seen order. The collection carries a
// bbox enclosing every arc so clients can fit the map viewport.
func LegRoutesToFeatureCollection(routes []itinerary.LegRoute) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(routes) == 0 {
		return fc
	}

	var bound orb.Bound
	for i, route := range routes {
		line := toLineString(route.Path.Points)
		if i == 0 {
			bound = line.Bound()
		} else {
			bound = bound.Union(line.Bound())
		}

		f := geojson.NewFeature(line)
		f.ID = route.Sequence
		f.Properties["kind"] = "leg"
		f.Properties["sequence"] = route.Sequence
		f.Properties["origin"] = route.Origin.Code
		f.Properties["destination"] = route.Destination.Code
		f.Properties["distance_km"] = route.DistanceKm
		f.Properties["distance_nm"] = route.DistanceNm
		f.Properties["estimated_duration_min"] = route.EstimatedDurationMin
		fc.Append(f)
	}

	for _, ap := range airports(routes) {
		f := geojson.NewFeature(toPoint(ap.endpoint.Point))
		f.ID = ap.endpoint.Code
		f.Properties["kind"] = "airport"
		f.Properties["code"] = ap.endpoint.Code
		f.Properties["name"] = ap.endpoint.Name
		f.Properties["role"] = ap.role
		fc.Append(f)
	}

	fc.BBox = geojson.NewBBox(bound)
	return fc
}

type airport struct {
	endpoint itinerary.Endpoint
	role     string
}

// airports lists each airport once in first-seen order. The first departure
// is the origin and the last arrival the destination. When the trip ends back
// at its origin, the arrival furthest from home is the destination instead.
// Every other airport is a stopover.
func airports(routes []itinerary.LegRoute) []airport {
	home := routes[0].Origin
	destination := routes[len(routes)-1].Destination
	if destination.Code == home.Code {
		var furthest float64
		for _, r := range routes {
			if d := home.Point.DistanceKm(r.Destination.Point); d > furthest {
				furthest = d
				destination = r.Destination
			}
		}
	}

	seen := make(map[string]bool)
	var out []airport
	add := func(ep itinerary.Endpoint) {
		if seen[ep.Code] {
			return
		}
		seen[ep.Code] = true
		role := RoleStopover
		switch ep.Code {
		case home.Code:
			role = RoleOrigin
		case destination.Code:
			role = RoleDestination
		}
		out = append(out, airport{endpoint: ep, role: role})
	}

	for _, r := range routes {
		add(r.Origin)
		add(r.Destination)
	}
	return out
}

func toPoint(p geo.GeoPoint) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func toLineString(points []geo.GeoPoint) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = toPoint(p)
	}
	return ls
}

// Package geo ranks catalog listings by great-circle distance from a selected location.
package geo

import (
	"math"
	"sort"
	"strings"
)

// EarthRadiusKM is the mean Earth radius used by Haversine.
const EarthRadiusKM = 6371.0

// DefaultRadiusKM is the search radius applied when callers pass zero.
const DefaultRadiusKM = 40.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within the legal coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can leave h just outside [0,1] for antipodal points
	h = math.Min(math.Max(h, 0), 1)
	return 2 * EarthRadiusKM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Box is a latitude/longitude rectangle in decimal degrees. MinLng > MaxLng
// means the box crosses the antimeridian.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns the smallest rectangle holding every point within
// radiusKM of center. Boxes touching a pole span all longitudes.
func BoundingBox(center Point, radiusKM float64) Box {
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	angular := radiusKM / EarthRadiusKM
	dLat := angular * 180 / math.Pi
	box := Box{MinLat: center.Lat - dLat, MaxLat: center.Lat + dLat, MinLng: -180, MaxLng: 180}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		return box
	}
	ratio := math.Sin(angular) / math.Cos(toRadians(center.Lat))
	if ratio >= 1 {
		return box
	}
	dLng := math.Asin(ratio) * 180 / math.Pi
	box.MinLng, box.MaxLng = center.Lng-dLng, center.Lng+dLng
	if box.MinLng < -180 {
		box.MinLng += 360
	}
	if box.MaxLng > 180 {
		box.MaxLng -= 360
	}
	return box
}

// CrossesAntimeridian reports whether the longitude range wraps past ±180.
func (b Box) CrossesAntimeridian() bool { return b.MinLng > b.MaxLng }

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Ranked pairs an item with its distance from the reference point.
type Ranked[T any] struct {
	Item       T
	DistanceKM float64
}

// CoordsFunc extracts optional coordinates from an item.
type CoordsFunc[T any] func(T) (Point, bool)

// Distance returns the distance to item, or +Inf when the item has no coordinates.
func Distance[T any](ref Point, item T, coords CoordsFunc[T]) float64 {
	p, ok := coords(item)
	if !ok {
		return math.Inf(1)
	}
	return Haversine(ref, p)
}

// FilterByProximity keeps items within radiusKM of ref, nearest first. Items
// without coordinates are infinitely far and therefore always excluded. Ties
// keep input order.
func FilterByProximity[T any](items []T, ref Point, radiusKM float64, coords CoordsFunc[T]) []Ranked[T] {
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	out := make([]Ranked[T], 0, len(items))
	for _, item := range items {
		d := Distance(ref, item, coords)
		if !(d <= radiusKM) {
			continue
		}
		out = append(out, Ranked[T]{Item: item, DistanceKM: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKM < out[j].DistanceKM
	})
	return out
}

// FilterByCity keeps items whose free-text location contains city, ignoring case.
// An empty city keeps everything.
func FilterByCity[T any](items []T, city string, location func(T) string) []T {
	needle := strings.ToLower(strings.TrimSpace(city))
	if needle == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(location(item)), needle) {
			out = append(out, item)
		}
	}
	return out
}

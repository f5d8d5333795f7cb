package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bangalore = Point{Lat: 12.9716, Lng: 77.5946}
	mumbai    = Point{Lat: 19.0760, Lng: 72.8777}
)

type listing struct {
	name     string
	location string
	coords   *Point
}

func listingCoords(l listing) (Point, bool) {
	if l.coords == nil {
		return Point{}, false
	}
	return *l.coords, true
}

func TestHaversineSamePointIsZero(t *testing.T) {
	assert.InDelta(t, 0, Haversine(bangalore, bangalore), 1e-9)
}

func TestHaversineBangaloreToMumbai(t *testing.T) {
	d := Haversine(bangalore, mumbai)
	assert.InDelta(t, 842, d, 5)
	assert.InDelta(t, d, Haversine(mumbai, bangalore), 1e-9, "distance is symmetric")
}

func TestFilterByProximityExcludesFarAndUnknown(t *testing.T) {
	near := Point{Lat: 12.9352, Lng: 77.6245}
	items := []listing{
		{name: "mumbai", coords: &mumbai},
		{name: "no-coords", location: "Bangalore"},
		{name: "koramangala", coords: &near},
		{name: "centre", coords: &bangalore},
	}

	got := FilterByProximity(items, bangalore, 40, listingCoords)

	require.Len(t, got, 2)
	assert.Equal(t, "centre", got[0].Item.name)
	assert.InDelta(t, 0, got[0].DistanceKM, 1e-9)
	assert.Equal(t, "koramangala", got[1].Item.name)
	assert.Less(t, got[1].DistanceKM, 40.0)
}

func TestFilterByProximityDefaultsRadius(t *testing.T) {
	items := []listing{{name: "centre", coords: &bangalore}, {name: "mumbai", coords: &mumbai}}
	got := FilterByProximity(items, bangalore, 0, listingCoords)
	require.Len(t, got, 1)
	assert.Equal(t, "centre", got[0].Item.name)
}

func TestDistanceWithoutCoordsIsInfinite(t *testing.T) {
	assert.True(t, math.IsInf(Distance(bangalore, listing{name: "x"}, listingCoords), 1))
}

func TestFilterByCityIsCaseInsensitiveSubstring(t *testing.T) {
	items := []listing{
		{name: "a", location: "Indiranagar, Bengaluru"},
		{name: "b", location: "Bandra West, Mumbai"},
		{name: "c", location: "BENGALURU"},
	}
	got := FilterByCity(items, " bengaluru ", func(l listing) string { return l.location })
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].name)
	assert.Equal(t, "c", got[1].name)

	assert.Len(t, FilterByCity(items, "", func(l listing) string { return l.location }), 3)
}

func TestPointValid(t *testing.T) {
	assert.True(t, bangalore.Valid())
	assert.False(t, Point{Lat: 77.59, Lng: 192.97}.Valid())
}

func TestHaversineAntipodesStayFinite(t *testing.T) {
	for _, lat := range []float64{0, 1e-9, 12.9716, 45, 89.999999} {
		a := Point{Lat: lat, Lng: 77.5946}
		b := Point{Lat: -lat, Lng: 77.5946 - 180}
		d := Haversine(a, b)
		require.False(t, math.IsNaN(d), "lat %v", lat)
		assert.InDelta(t, math.Pi*EarthRadiusKM, d, 1e-3)
	}
}

func TestFilterByProximityDropsUnmeasurableItems(t *testing.T) {
	nan := Point{Lat: math.NaN(), Lng: 77}
	items := []listing{{name: "broken", coords: &nan}, {name: "centre", coords: &bangalore}}
	got := FilterByProximity(items, bangalore, 40, listingCoords)
	require.Len(t, got, 1)
	assert.Equal(t, "centre", got[0].Item.name)
}

func TestBoundingBoxHoldsTheRadius(t *testing.T) {
	box := BoundingBox(bangalore, 40)
	assert.False(t, box.CrossesAntimeridian())
	assert.True(t, box.Contains(bangalore))
	assert.False(t, box.Contains(mumbai))
	// points on the circle in each compass direction stay inside
	for _, p := range []Point{
		{Lat: bangalore.Lat + 0.359, Lng: bangalore.Lng},
		{Lat: bangalore.Lat - 0.359, Lng: bangalore.Lng},
		{Lat: bangalore.Lat, Lng: bangalore.Lng + 0.368},
		{Lat: bangalore.Lat, Lng: bangalore.Lng - 0.368},
	} {
		require.LessOrEqual(t, Haversine(bangalore, p), 40.0)
		assert.True(t, box.Contains(p), "%+v", p)
	}

	edge := Point{Lat: BoundingBox(bangalore, 0).MaxLat, Lng: bangalore.Lng}
	assert.InDelta(t, DefaultRadiusKM, Haversine(bangalore, edge), 1e-6)
}

func TestBoundingBoxEdges(t *testing.T) {
	fiji := Point{Lat: -17.7, Lng: 179.9}
	box := BoundingBox(fiji, 100)
	assert.True(t, box.CrossesAntimeridian())
	assert.True(t, box.Contains(Point{Lat: -17.7, Lng: -179.8}))
	assert.False(t, box.Contains(Point{Lat: -17.7, Lng: 0}))

	polar := BoundingBox(Point{Lat: 89.9, Lng: 10}, 50)
	assert.Equal(t, 90.0, polar.MaxLat)
	assert.Equal(t, -180.0, polar.MinLng)
	assert.Equal(t, 180.0, polar.MaxLng)
}

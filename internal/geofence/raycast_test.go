package geofence

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func squareRing(x1, y1, x2, y2 float64) orb.Ring {
	return orb.Ring{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}
}

func TestPointInRing(t *testing.T) {
	square := squareRing(0, 0, 10, 10)

	assert.True(t, pointInRing(5, 5, square))
	assert.False(t, pointInRing(15, 15, square))
	assert.False(t, pointInRing(-1, 5, square))
	assert.True(t, pointInRing(0.001, 0.001, square))
	assert.False(t, pointInRing(5, 5, orb.Ring{}))
}

func TestShapeMembership_HolePunchesOut(t *testing.T) {
	shape := Shape{
		Shell: []Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0}},
		Holes: [][]Coordinate{{{Lat: 2, Lon: 2}, {Lat: 2, Lon: 4}, {Lat: 4, Lon: 4}, {Lat: 4, Lon: 2}}},
	}

	points := []orb.Point{
		{3, 3}, // inside the hole
		{5, 5}, // inside the shell, outside the hole
		{15, 15},
	}
	got := shapeMembership(points, shape)
	assert.Equal(t, []bool{false, true, false}, got)
}

func TestAnyShapeMembership(t *testing.T) {
	shapes := []Shape{
		{Shell: []Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0}}},
		{Shell: []Coordinate{{Lat: 5, Lon: 5}, {Lat: 5, Lon: 7}, {Lat: 7, Lon: 7}, {Lat: 7, Lon: 5}}},
	}

	points := []orb.Point{{1, 1}, {6, 6}, {3, 3}}
	assert.Equal(t, []bool{true, true, false}, anyShapeMembership(points, shapes))

	// No shapes at all: nothing is a member.
	assert.Equal(t, []bool{false, false, false}, anyShapeMembership(points, nil))
}

func TestMembership_MatchesSequentialEvaluation(t *testing.T) {
	ring := squareRing(0, 0, 100, 100)

	// Enough points to force the work across several goroutines.
	points := make([]orb.Point, 1000)
	for i := range points {
		points[i] = orb.Point{float64(i%200) - 50, float64(i % 150)}
	}

	got := Membership(points, ring)
	for i, p := range points {
		assert.Equal(t, pointInRing(p[0], p[1], ring), got[i], "point %d (%v)", i, p)
	}
}

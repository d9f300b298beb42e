package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewport_Area(t *testing.T) {
	v := Viewport{Lat1: 51.0, Lat2: 52.0, Lon1: -1.0, Lon2: 1.0}
	assert.InDelta(t, 2.0, v.Area(), 1e-12)

	// Orientation must not matter.
	flipped := Viewport{Lat1: 52.0, Lat2: 51.0, Lon1: 1.0, Lon2: -1.0}
	assert.InDelta(t, v.Area(), flipped.Area(), 1e-12)
}

func TestViewport_SplitLongerDimension(t *testing.T) {
	// Longitude span is wider, so the split must be along longitude.
	v := Viewport{Lat1: 51.0, Lat2: 51.5, Lon1: -1.0, Lon2: 1.0}
	a, b := v.Split()

	assert.Equal(t, v.Lat1, a.Lat1)
	assert.Equal(t, v.Lat2, a.Lat2)
	assert.Equal(t, v.Lat1, b.Lat1)
	assert.Equal(t, v.Lat2, b.Lat2)
	assert.Equal(t, 0.0, a.Lon2)
	assert.Equal(t, 0.0, b.Lon1)
	assert.InDelta(t, v.Area(), a.Area()+b.Area(), 1e-12)
}

func TestViewport_SplitLatitudeWhenTaller(t *testing.T) {
	v := Viewport{Lat1: 50.0, Lat2: 54.0, Lon1: 0.0, Lon2: 1.0}
	a, b := v.Split()

	assert.Equal(t, 52.0, a.Lat2)
	assert.Equal(t, 52.0, b.Lat1)
	assert.Equal(t, v.Lon1, a.Lon1)
	assert.Equal(t, v.Lon2, a.Lon2)
	assert.InDelta(t, v.Area(), a.Area()+b.Area(), 1e-12)
}

func TestViewport_Degenerate(t *testing.T) {
	point := Viewport{Lat1: 51.0, Lat2: 51.0, Lon1: 0.5, Lon2: 0.5}
	assert.True(t, point.Degenerate(1e-6))

	wide := Viewport{Lat1: 51.0, Lat2: 51.0, Lon1: 0.0, Lon2: 1.0}
	assert.False(t, wide.Degenerate(1e-6))
}

func TestProgress(t *testing.T) {
	p := NewProgress(4.0)
	p.Add(1.0)
	p.Add(3.0)

	assert.Equal(t, 4.0, p.Covered())
	assert.Equal(t, 2, p.Leaves())
	assert.InDelta(t, 1.0, p.Fraction(), 1e-12)
}

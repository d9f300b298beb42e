package geofence

import (
	"runtime"
	"sync"

	"github.com/paulmach/orb"
)

// pointInRing is the even-odd crossing-number test: a horizontal ray cast
// from the point crosses ring edges, and the point is inside iff the count
// is odd. Boundary ties fall wherever the crossing rule puts them; callers
// must not rely on edge-exact behavior.
func pointInRing(x, y float64, ring orb.Ring) bool {
	n := len(ring)
	if n == 0 {
		return false
	}

	inside := false
	p1x, p1y := ring[0][0], ring[0][1]
	for i := 1; i <= n; i++ {
		p2x, p2y := ring[i%n][0], ring[i%n][1]
		if y > min(p1y, p2y) && y <= max(p1y, p2y) && x <= max(p1x, p2x) {
			var xints float64
			if p1y != p2y {
				xints = (y-p1y)*(p2x-p1x)/(p2y-p1y) + p1x
			}
			if p1x == p2x || x <= xints {
				inside = !inside
			}
		}
		p1x, p1y = p2x, p2y
	}
	return inside
}

// Membership evaluates pointInRing for many points against one ring,
// data-parallel across the available cores. Points are independent; there is
// no shared mutable state.
func Membership(points []orb.Point, ring orb.Ring) []bool {
	result := make([]bool, len(points))
	if len(points) == 0 {
		return result
	}

	workers := runtime.NumCPU()
	chunk := (len(points) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(points); start += chunk {
		end := start + chunk
		if end > len(points) {
			end = len(points)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				result[i] = pointInRing(points[i][0], points[i][1], ring)
			}
		}(start, end)
	}
	wg.Wait()
	return result
}

// shapeMembership tests points against a shape: inside the shell and not
// inside any hole.
func shapeMembership(points []orb.Point, shape Shape) []bool {
	member := Membership(points, shape.ShellRing())
	for _, hole := range shape.HoleRings() {
		inHole := Membership(points, hole)
		for i := range member {
			member[i] = member[i] && !inHole[i]
		}
	}
	return member
}

// anyShapeMembership ORs shapeMembership across a set of shapes.
func anyShapeMembership(points []orb.Point, shapes []Shape) []bool {
	result := make([]bool, len(points))
	for _, shape := range shapes {
		member := shapeMembership(points, shape)
		for i := range result {
			result[i] = result[i] || member[i]
		}
	}
	return result
}

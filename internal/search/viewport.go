package search

import "math"

// Viewport is a lat/lon bounding rectangle submitted to the area-search API.
type Viewport struct {
	Lat1 float64
	Lat2 float64
	Lon1 float64
	Lon2 float64
}

// Area returns the geographic size of the rectangle (Δlat × Δlon). Leaf
// areas summed across a whole search must equal the root's area.
func (v Viewport) Area() float64 {
	return math.Abs(v.Lat1-v.Lat2) * math.Abs(v.Lon1-v.Lon2)
}

// Split divides the viewport into two equal halves along its longer
// dimension, keeping the halves as square as possible.
func (v Viewport) Split() (Viewport, Viewport) {
	a, b := v, v
	if math.Abs(v.Lon1-v.Lon2) > math.Abs(v.Lat1-v.Lat2) {
		mid := (v.Lon1 + v.Lon2) / 2
		a.Lon2 = mid
		b.Lon1 = mid
	} else {
		mid := (v.Lat1 + v.Lat2) / 2
		a.Lat2 = mid
		b.Lat1 = mid
	}
	return a, b
}

// Degenerate reports whether both dimensions have collapsed below the given
// span. Such a box can no longer be meaningfully split and must be treated
// as a leaf regardless of its result count.
func (v Viewport) Degenerate(minSpan float64) bool {
	return math.Abs(v.Lat1-v.Lat2) < minSpan && math.Abs(v.Lon1-v.Lon2) < minSpan
}

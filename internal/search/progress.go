package search

import "sync"

// Progress accumulates the geographic area covered by completed leaf
// searches against the root viewport's area.
type Progress struct {
	mu      sync.Mutex
	target  float64
	covered float64
	leaves  int
}

// NewProgress creates a progress accumulator with the given target area.
func NewProgress(target float64) *Progress {
	return &Progress{target: target}
}

// Add credits one leaf's area.
func (p *Progress) Add(area float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.covered += area
	p.leaves++
}

// Covered returns the summed leaf area so far.
func (p *Progress) Covered() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.covered
}

// Target returns the root viewport's area.
func (p *Progress) Target() float64 {
	return p.target
}

// Leaves returns the number of completed leaf searches.
func (p *Progress) Leaves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leaves
}

// Fraction returns covered/target, or 1 for an empty root box.
func (p *Progress) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target == 0 {
		return 1
	}
	return p.covered / p.target
}

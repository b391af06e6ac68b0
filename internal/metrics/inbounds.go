package metrics

import (
	"math"

	"github.com/san-kum/axis/internal/dynamo"
)

const DefaultBound = 10.0

// InBounds is the fraction of frames in which every body stayed within
// bound of the origin. Non-finite positions count as out of bounds.
type InBounds struct {
	name       string
	bound      float64
	violations int
	samples    int
}

func NewInBounds(bound float64) *InBounds {
	return &InBounds{
		name:  "in_bounds",
		bound: bound,
	}
}

func (s *InBounds) Name() string {
	return s.name
}

func (s *InBounds) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	if !x.IsValid() {
		s.violations++
		return
	}
	for b := 0; b+2 < len(x); b += 3 {
		if math.Sqrt(x[b]*x[b]+x[b+1]*x[b+1]+x[b+2]*x[b+2]) > s.bound {
			s.violations++
			break
		}
	}
}

func (s *InBounds) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *InBounds) Reset() {
	s.violations = 0
	s.samples = 0
}

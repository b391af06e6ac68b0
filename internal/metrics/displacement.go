package metrics

import (
	"math"

	"github.com/san-kum/axis/internal/dynamo"
)

// Displacement is the largest distance any body has moved from where it
// was first observed.
type Displacement struct {
	start dynamo.State
	max   float64
}

func NewDisplacement() *Displacement { return &Displacement{} }

func (d *Displacement) Name() string { return "displacement" }

func (d *Displacement) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if d.start == nil {
		d.start = x.Clone()
		return
	}
	n := min(len(x), len(d.start)) / 3
	for b := 0; b < n; b++ {
		dx := x[3*b] - d.start[3*b]
		dy := x[3*b+1] - d.start[3*b+1]
		dz := x[3*b+2] - d.start[3*b+2]
		if dist := math.Sqrt(dx*dx + dy*dy + dz*dz); dist > d.max {
			d.max = dist
		}
	}
}

func (d *Displacement) Value() float64 { return d.max }

func (d *Displacement) Reset() {
	d.start = nil
	d.max = 0
}

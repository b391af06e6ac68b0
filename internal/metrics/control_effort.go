package metrics

import (
	"math"

	"github.com/san-kum/axis/internal/dynamo"
)

// ControlEffort is the time-weighted mean of the summed absolute actuator
// commands. Each command is held until the next observation.
type ControlEffort struct {
	integral float64
	start    float64
	lastT    float64
	last     float64
	peak     float64
	samples  int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	effort := 0.0
	for _, v := range u {
		effort += math.Abs(v)
	}
	if c.samples == 0 {
		c.start = t
	} else if dt := t - c.lastT; dt > 0 {
		c.integral += c.last * dt
	}
	c.lastT, c.last = t, effort
	c.peak = max(c.peak, effort)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	switch elapsed := c.lastT - c.start; {
	case c.samples == 0:
		return 0
	case elapsed <= 0:
		return c.last
	default:
		return c.integral / elapsed
	}
}

// Peak is the largest summed command seen in one frame.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() { *c = ControlEffort{} }

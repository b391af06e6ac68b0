package metrics

import "github.com/san-kum/axis/internal/dynamo"

// Metric accumulates a scalar over an episode. x holds the body positions
// of one frame as consecutive x, y, z triples.
type Metric interface {
	Name() string
	Observe(x dynamo.State, u dynamo.Control, t float64)
	Value() float64
	Reset()
}

// Default returns the metrics recorded for every episode.
func Default() []Metric {
	return []Metric{NewControlEffort(), NewDisplacement(), NewInBounds(DefaultBound)}
}

// Collect returns the current value of each metric by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

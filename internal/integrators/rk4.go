package integrators

import "github.com/san-kum/axis/internal/dynamo"

// Classic fourth-order Runge-Kutta tableau.
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6}
)

// RK4 keeps its stage buffers between steps; it is not safe for concurrent
// use. Each physics data instance owns one.
type RK4 struct {
	k     [4]dynamo.State
	probe dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.probe) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.probe = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.resize(n)

	for s := range r.k {
		copy(r.probe, x)
		if s > 0 {
			h := rk4Nodes[s] * dt
			for i, d := range r.k[s-1] {
				r.probe[i] += h * d
			}
		}
		copy(r.k[s], dyn.Derive(r.probe, u, t+rk4Nodes[s]*dt))
	}

	next := x.Clone()
	for s, w := range rk4Weights {
		for i, d := range r.k[s] {
			next[i] += dt * w * d
		}
	}
	return next
}

package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/axis/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int   { return 2 }
func (s *simpleDynamics) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x0 := dynamo.State{1.0, 0.0}
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	x := x0
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, u, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestSemiImplicitEulerBounded(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewSemiImplicitEuler()

	x := dynamo.State{1.0, 0.0}
	for i := 0; i < 10000; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*0.01, 0.01)
	}

	// symplectic: the oscillator neither blows up nor dies out
	energy := 0.5 * (x[0]*x[0] + x[1]*x[1])
	if energy < 0.45 || energy > 0.55 {
		t.Errorf("energy drifted: %.4f", energy)
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{"Euler", false},
		{"RK4", false},
		{"explicit", false},
		{"implicitfast", true},
	}
	for _, tt := range tests {
		_, err := ByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err=%v, wantErr=%v", tt.name, err, tt.wantErr)
		}
	}
}

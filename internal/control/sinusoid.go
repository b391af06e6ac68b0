package control

import (
	"math"

	"github.com/san-kum/axis/internal/dynamo"
)

type Wave int

const (
	Sin Wave = iota
	Cos
)

// Term drives one actuator with Amp * fn(Freq*t + Phase).
type Term struct {
	Fn    Wave
	Amp   float64
	Freq  float64
	Phase float64
}

func (tm Term) At(t float64) float64 {
	arg := tm.Freq*t + tm.Phase
	if tm.Fn == Cos {
		return tm.Amp * math.Cos(arg)
	}
	return tm.Amp * math.Sin(arg)
}

// Sinusoid is an open-loop periodic policy, one term per actuator.
type Sinusoid struct {
	Terms []Term
}

func NewSinusoid(terms ...Term) *Sinusoid {
	return &Sinusoid{Terms: terms}
}

func (s *Sinusoid) Compute(in Input) dynamo.Control {
	u := make(dynamo.Control, len(s.Terms))
	for i, tm := range s.Terms {
		u[i] = tm.At(in.Time)
	}
	return u
}

// HumanoidWave animates the humanoid preset: head, left arm, right arm,
// left leg, right leg. Limbs on opposite sides swing in antiphase.
func HumanoidWave() *Sinusoid {
	return NewSinusoid(
		Term{Fn: Cos, Amp: 0.06, Freq: 0.5},
		Term{Fn: Sin, Amp: 0.1, Freq: 1.2},
		Term{Fn: Sin, Amp: -0.1, Freq: 1.2},
		Term{Fn: Sin, Amp: 0.08, Freq: 2.0},
		Term{Fn: Sin, Amp: -0.08, Freq: 2.0},
	)
}

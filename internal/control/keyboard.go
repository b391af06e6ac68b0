package control

import (
	"sync/atomic"

	"github.com/san-kum/axis/internal/dynamo"
)

const humanoidKeyCommand = 0.16

type Binding struct {
	Key      string
	Actuator int
	Value    float64
}

// Keyboard maps held keys to actuator commands. When several bindings for
// one actuator are held, the first one listed wins. Unbound actuators get 0.
type Keyboard struct {
	Dim      int
	Bindings []Binding
}

func NewKeyboard(dim int, bindings ...Binding) *Keyboard {
	return &Keyboard{Dim: dim, Bindings: bindings}
}

func (k *Keyboard) Compute(in Input) dynamo.Control {
	u := make(dynamo.Control, k.Dim)
	set := make([]bool, k.Dim)
	for _, b := range k.Bindings {
		if b.Actuator < 0 || b.Actuator >= k.Dim || set[b.Actuator] {
			continue
		}
		if in.held(b.Key) {
			u[b.Actuator] = b.Value
			set[b.Actuator] = true
		}
	}
	return u
}

// HumanoidKeys binds q/e to the head, a and d to the arms, w and s to the
// legs of the humanoid preset.
func HumanoidKeys() *Keyboard {
	v := humanoidKeyCommand
	return NewKeyboard(5,
		Binding{Key: "q", Actuator: 0, Value: v},
		Binding{Key: "e", Actuator: 0, Value: -v},
		Binding{Key: "a", Actuator: 1, Value: v},
		Binding{Key: "d", Actuator: 2, Value: v},
		Binding{Key: "w", Actuator: 3, Value: v},
		Binding{Key: "s", Actuator: 4, Value: v},
	)
}

// Switch selects between a manual and an automatic policy. It starts in
// automatic mode.
type Switch struct {
	Manual Policy
	Auto   Policy

	manual atomic.Bool
}

func NewSwitch(manual, auto Policy) *Switch {
	return &Switch{Manual: manual, Auto: auto}
}

func (s *Switch) Toggle() bool {
	for {
		old := s.manual.Load()
		if s.manual.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Switch) IsManual() bool { return s.manual.Load() }

// HandleKey toggles the mode on "m".
func (s *Switch) HandleKey(key string) bool {
	if key != "m" {
		return false
	}
	s.Toggle()
	return true
}

func (s *Switch) Compute(in Input) dynamo.Control {
	if s.manual.Load() {
		return s.Manual.Compute(in)
	}
	return s.Auto.Compute(in)
}

package control

import (
	"fmt"
	"strings"

	"github.com/san-kum/axis/internal/dynamo"
)

// Keys reports whether a key is currently held. Keys are lower case.
type Keys interface {
	Has(key string) bool
}

type Input struct {
	Time float64
	Keys Keys
}

func (in Input) held(key string) bool {
	return in.Keys != nil && in.Keys.Has(key)
}

type Policy interface {
	Compute(in Input) dynamo.Control
}

// KeyHandler is implemented by policies that react to key presses.
type KeyHandler interface {
	HandleKey(key string) bool
}

// Names lists the policies accepted by New.
var Names = []string{"none", "wave", "keyboard", "humanoid"}

// New returns a policy by name for a model with dim actuators.
func New(name string, dim int) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return NewNone(dim), nil
	case "wave":
		return HumanoidWave(), nil
	case "keyboard":
		return HumanoidKeys(), nil
	case "humanoid":
		return NewSwitch(HumanoidKeys(), HumanoidWave()), nil
	default:
		return nil, fmt.Errorf("unknown policy: %s", name)
	}
}

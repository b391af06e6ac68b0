package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/axis/internal/dynamo"
)

// ByName returns the integrator selected by a model option name.
// An empty name selects the semi-implicit Euler default.
func ByName(name string) (dynamo.Integrator, error) {
	switch strings.ToLower(name) {
	case "", "euler":
		return NewSemiImplicitEuler(), nil
	case "explicit":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}

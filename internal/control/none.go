package control

import "github.com/san-kum/axis/internal/dynamo"

// None commands zero on every actuator. Its value is the actuator count.
type None int

func NewNone(dim int) None { return None(max(dim, 0)) }

func (n None) Compute(Input) dynamo.Control {
	return make(dynamo.Control, int(n))
}

package physics

import (
	"math"

	"github.com/san-kum/axis/internal/dynamo"
)

// jointSystem is the reduced-coordinate dynamics of every hinge and slide
// joint in a model. Joints are treated as gravity compensated: only motor
// torque, damping and stiffness act on them.
// State: [q1..qN, v1..vN]
type jointSystem struct {
	m    *Model
	dofs []int   // joint indices in state order
	acts [][]int // actuator indices driving each dof
}

func newJointSystem(m *Model) *jointSystem {
	js := &jointSystem{m: m}
	slot := make(map[int]int)
	for i, j := range m.joints {
		if j.kind == jointFree {
			continue
		}
		slot[i] = len(js.dofs)
		js.dofs = append(js.dofs, i)
	}
	js.acts = make([][]int, len(js.dofs))
	for a, act := range m.actuators {
		if k, ok := slot[act.joint]; ok {
			js.acts[k] = append(js.acts[k], a)
		}
	}
	return js
}

func (js *jointSystem) StateDim() int   { return 2 * len(js.dofs) }
func (js *jointSystem) ControlDim() int { return len(js.m.actuators) }

func (js *jointSystem) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	n := len(js.dofs)
	deriv := make(dynamo.State, 2*n)

	for k, ji := range js.dofs {
		j := &js.m.joints[ji]
		q, v := x[k], x[n+k]

		torque := 0.0
		for _, a := range js.acts[k] {
			if a < len(u) {
				torque += js.m.actuators[a].force(u[a])
			}
		}
		torque -= j.damping*v + j.stiffness*q

		deriv[k] = v
		deriv[n+k] = torque / j.inertia
	}
	return deriv
}

// gather copies joint coordinates out of qpos/qvel into x.
func (js *jointSystem) gather(qpos, qvel []float64, x dynamo.State) {
	n := len(js.dofs)
	for k, ji := range js.dofs {
		j := &js.m.joints[ji]
		x[k] = qpos[j.qposAdr]
		x[n+k] = qvel[j.dofAdr]
	}
}

func (js *jointSystem) scatter(x dynamo.State, qpos, qvel []float64) {
	n := len(js.dofs)
	for k, ji := range js.dofs {
		j := &js.m.joints[ji]
		qpos[j.qposAdr] = x[k]
		qvel[j.dofAdr] = x[n+k]
	}
}

func (a *actuator) force(ctrl float64) float64 {
	if a.limited {
		ctrl = math.Max(a.lo, math.Min(a.hi, ctrl))
	}
	return a.gear * ctrl
}

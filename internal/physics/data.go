package physics

import (
	"github.com/san-kum/axis/internal/dynamo"
	"github.com/san-kum/axis/internal/engine"
)

// Data is the mutable simulation state for one Model.
type Data struct {
	qpos  []float64
	qvel  []float64
	ctrl  []float64
	xpos  []float64
	xquat []float64
	time  float64

	sys        *jointSystem
	integrator dynamo.Integrator
	x          dynamo.State

	deleted bool
}

var _ engine.Data = (*Data)(nil)

func (d *Data) XPos() []float64  { return d.xpos }
func (d *Data) XQuat() []float64 { return d.xquat }
func (d *Data) Ctrl() []float64  { return d.ctrl }
func (d *Data) Qpos() []float64  { return d.qpos }
func (d *Data) Qvel() []float64  { return d.qvel }
func (d *Data) Time() float64    { return d.time }

// Delete releases the data. Calling it twice is a no-op.
func (d *Data) Delete() { d.deleted = true }

func (d *Data) Deleted() bool { return d.deleted }

func (d *Data) reset(m *Model) {
	copy(d.qpos, m.qpos0)
	clear(d.qvel)
	clear(d.ctrl)
	d.time = 0
	m.forward(d.qpos, d.xpos, d.xquat)
}

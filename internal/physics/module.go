package physics

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/integrators"
)

var (
	ErrForeign = errors.New("physics: value was not created by this module")
	ErrDeleted = errors.New("physics: use of deleted value")
)

// Ground contact is a per-unit-mass spring damper against z=0.
const (
	contactStiffness = 4000.0
	contactDamping   = 80.0
	groundFriction   = 4.0
	angularDamping   = 0.5
)

// Module is the built-in engine. It is safe for concurrent use by viewers
// that each own their Model and Data.
type Module struct {
	fs *MemFS
}

var _ engine.Module = (*Module)(nil)

func NewModule() *Module {
	return &Module{fs: NewMemFS()}
}

func (mod *Module) FS() engine.FS { return mod.fs }

// MemFS exposes the concrete filesystem for reads in tests and tools.
func (mod *Module) MemFS() *MemFS { return mod.fs }

func (mod *Module) LoadModel(path string) (engine.Model, error) {
	src, err := mod.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (mod *Module) NewData(em engine.Model) (engine.Data, error) {
	m, ok := em.(*Model)
	if !ok {
		return nil, ErrForeign
	}
	if m.deleted {
		return nil, ErrDeleted
	}

	integ, err := integrators.ByName(m.integrator)
	if err != nil {
		return nil, err
	}
	sys := newJointSystem(m)
	d := &Data{
		qpos:       make([]float64, m.nq),
		qvel:       make([]float64, m.nv),
		ctrl:       make([]float64, len(m.actuators)),
		xpos:       make([]float64, 3*m.BodyCount()),
		xquat:      make([]float64, 4*m.BodyCount()),
		sys:        sys,
		integrator: integ,
		x:          make([]float64, sys.StateDim()),
	}
	d.reset(m)
	return d, nil
}

func unwrap(em engine.Model, ed engine.Data) (*Model, *Data, error) {
	m, ok := em.(*Model)
	if !ok {
		return nil, nil, ErrForeign
	}
	d, ok := ed.(*Data)
	if !ok {
		return nil, nil, ErrForeign
	}
	if m.deleted || d.deleted {
		return nil, nil, ErrDeleted
	}
	if len(d.qpos) != m.nq {
		return nil, nil, fmt.Errorf("physics: data does not belong to model %q", m.name)
	}
	return m, d, nil
}

// Step advances the simulation by one model timestep. Foreign or deleted
// values are ignored.
func (mod *Module) Step(em engine.Model, ed engine.Data) {
	m, d, err := unwrap(em, ed)
	if err != nil {
		return
	}
	dt := m.timestep

	if d.sys.StateDim() > 0 {
		d.sys.gather(d.qpos, d.qvel, d.x)
		next := d.integrator.Step(d.sys, d.x, d.ctrl, d.time, dt)
		if next.IsValid() {
			d.sys.scatter(next, d.qpos, d.qvel)
		}
	}

	for i := range m.joints {
		if m.joints[i].kind == jointFree {
			m.stepFree(&m.joints[i], d, dt)
		}
	}

	d.time += dt
	m.forward(d.qpos, d.xpos, d.xquat)
}

func (m *Model) stepFree(j *joint, d *Data, dt float64) {
	q := d.qpos[j.qposAdr : j.qposAdr+7]
	v := d.qvel[j.dofAdr : j.dofAdr+6]

	acc := m.gravity
	if m.hasGround {
		if pen := m.bodyRadius[j.body] - q[2]; pen > 0 {
			acc[2] += contactStiffness*pen - contactDamping*math.Min(v[2], 0)
			acc[0] -= groundFriction * v[0]
			acc[1] -= groundFriction * v[1]
			for k := 3; k < 6; k++ {
				v[k] *= 1 - angularDamping*dt*groundFriction
			}
		}
	}

	// semi-implicit: velocity first, then position with the new velocity
	for k := 0; k < 3; k++ {
		v[k] += acc[k] * dt
		q[k] += v[k] * dt
	}

	rot := mgl64.Quat{W: q[3], V: mgl64.Vec3{q[4], q[5], q[6]}}
	omega := mgl64.Quat{V: mgl64.Vec3{v[3], v[4], v[5]}}
	dq := omega.Mul(rot).Scale(0.5 * dt)
	rot = rot.Add(dq).Normalize()
	q[3], q[4], q[5], q[6] = rot.W, rot.V[0], rot.V[1], rot.V[2]
}

// ResetData restores the initial pose, zeroes velocities, controls and time.
func (mod *Module) ResetData(em engine.Model, ed engine.Data) {
	m, d, err := unwrap(em, ed)
	if err != nil {
		return
	}
	d.reset(m)
}

// Loader loads a fresh built-in module.
type Loader struct{}

var _ engine.Loader = Loader{}

func (Loader) Load(ctx context.Context) (engine.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewModule(), nil
}

package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/engine"
)

type jointKind int

const (
	jointFree jointKind = iota
	jointHinge
	jointSlide
)

type joint struct {
	name      string
	kind      jointKind
	body      int
	axis      mgl64.Vec3
	pos       mgl64.Vec3
	damping   float64
	stiffness float64
	armature  float64
	qposAdr   int
	dofAdr    int

	// effective inertia about the joint axis, filled by finalize
	inertia float64
}

type actuator struct {
	name    string
	joint   int
	gear    float64
	limited bool
	lo, hi  float64
}

// Model is the compiled, read-only description of a simulated system.
type Model struct {
	name       string
	timestep   float64
	gravity    mgl64.Vec3
	integrator string

	bodyParent []int
	bodyName   []string
	bodyPos    []mgl64.Vec3
	bodyQuat   []mgl64.Quat
	bodyMass   []float64
	bodyJnt    [][]int
	// bounding radius of each body's own geoms, used for ground contact
	bodyRadius []float64

	joints    []joint
	actuators []actuator
	nq, nv    int
	qpos0     []float64

	geomBody []int
	geomType []engine.GeomType
	geomSize []float64
	geomRGBA []float64
	geomPos  []float64
	geomQuat []float64

	hasGround bool
	deleted   bool
}

var _ engine.Model = (*Model)(nil)

func (m *Model) Name() string { return m.name }
func (m *Model) GeomCount() int { return len(m.geomBody) }
func (m *Model) BodyCount() int { return len(m.bodyParent) }
func (m *Model) ActuatorCount() int { return len(m.actuators) }
func (m *Model) Timestep() float64 { return m.timestep }
func (m *Model) GeomBodyID() []int { return m.geomBody }
func (m *Model) GeomType() []engine.GeomType { return m.geomType }
func (m *Model) GeomSize() []float64 { return m.geomSize }
func (m *Model) GeomRGBA() []float64 { return m.geomRGBA }
func (m *Model) GeomPos() []float64 { return m.geomPos }
func (m *Model) GeomQuat() []float64 { return m.geomQuat }
func (m *Model) NQ() int { return m.nq }
func (m *Model) NV() int { return m.nv }

func (m *Model) ActuatorNames() []string {
	names := make([]string, len(m.actuators))
	for i, a := range m.actuators {
		names[i] = a.name
	}
	return names
}

// Delete releases the model. Calling it twice is a no-op.
func (m *Model) Delete() { m.deleted = true }

func (m *Model) Deleted() bool { return m.deleted }

func geomRadius(t engine.GeomType, size []float64) float64 {
	switch t {
	case engine.GeomSphere:
		return size[0]
	case engine.GeomCapsule:
		return size[0] + size[1]
	case engine.GeomCylinder:
		return math.Hypot(size[0], size[1])
	case engine.GeomBox, engine.GeomEllipsoid:
		return math.Sqrt(size[0]*size[0] + size[1]*size[1] + size[2]*size[2])
	default:
		return 0.05
	}
}

func (m *Model) finalize() {
	nbody := len(m.bodyParent)
	m.bodyRadius = make([]float64, nbody)

	for g, b := range m.geomBody {
		t := m.geomType[g]
		if t == engine.GeomPlane {
			if b == 0 {
				m.hasGround = true
			}
			continue
		}
		off := mgl64.Vec3{m.geomPos[3*g], m.geomPos[3*g+1], m.geomPos[3*g+2]}.Len()
		r := off + geomRadius(t, m.geomSize[3*g:3*g+3])
		m.bodyRadius[b] = math.Max(m.bodyRadius[b], r)
	}

	// children are always appended after their parent
	subtree := make([]float64, nbody)
	copy(subtree, m.bodyMass)
	for b := nbody - 1; b > 0; b-- {
		if p := m.bodyParent[b]; p > 0 {
			subtree[p] += subtree[b]
		}
	}

	for i := range m.joints {
		j := &m.joints[i]
		lever := math.Max(m.bodyRadius[j.body], 0.05)
		j.inertia = j.armature + math.Max(subtree[j.body], 1e-3)*lever*lever
	}

	m.qpos0 = make([]float64, m.nq)
	xpos, xquat := m.restPose()
	for _, j := range m.joints {
		if j.kind != jointFree {
			continue
		}
		p, q := xpos[j.body], xquat[j.body]
		copy(m.qpos0[j.qposAdr:], []float64{p[0], p[1], p[2], q.W, q.V[0], q.V[1], q.V[2]})
	}
}

// restPose computes world body poses with every joint at zero.
func (m *Model) restPose() ([]mgl64.Vec3, []mgl64.Quat) {
	n := len(m.bodyParent)
	xpos := make([]mgl64.Vec3, n)
	xquat := make([]mgl64.Quat, n)
	xquat[0] = mgl64.QuatIdent()
	for b := 1; b < n; b++ {
		p := m.bodyParent[b]
		xpos[b] = xpos[p].Add(xquat[p].Rotate(m.bodyPos[b]))
		xquat[b] = xquat[p].Mul(m.bodyQuat[b]).Normalize()
	}
	return xpos, xquat
}

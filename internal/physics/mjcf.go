package physics

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/integrators"
)

const (
	defaultTimestep = 0.002
	defaultGeomMass = 1.0
	defaultArmature = 0.01
)

type xmlMujoco struct {
	XMLName   xml.Name     `xml:"mujoco"`
	Model     string       `xml:"model,attr"`
	Option    xmlOption    `xml:"option"`
	World     xmlBody      `xml:"worldbody"`
	Actuators xmlActuators `xml:"actuator"`
}

type xmlOption struct {
	Timestep   string `xml:"timestep,attr"`
	Gravity    string `xml:"gravity,attr"`
	Integrator string `xml:"integrator,attr"`
}

type xmlBody struct {
	Name      string     `xml:"name,attr"`
	Pos       string     `xml:"pos,attr"`
	Quat      string     `xml:"quat,attr"`
	Joints    []xmlJoint `xml:"joint"`
	FreeJoint []struct{} `xml:"freejoint"`
	Geoms     []xmlGeom  `xml:"geom"`
	Bodies    []xmlBody  `xml:"body"`
}

type xmlJoint struct {
	Name      string `xml:"name,attr"`
	Type      string `xml:"type,attr"`
	Axis      string `xml:"axis,attr"`
	Pos       string `xml:"pos,attr"`
	Damping   string `xml:"damping,attr"`
	Stiffness string `xml:"stiffness,attr"`
	Armature  string `xml:"armature,attr"`
}

type xmlGeom struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
	Size string `xml:"size,attr"`
	RGBA string `xml:"rgba,attr"`
	Pos  string `xml:"pos,attr"`
	Quat string `xml:"quat,attr"`
	Mass string `xml:"mass,attr"`
}

type xmlActuators struct {
	Motors []xmlMotor `xml:"motor"`
}

type xmlMotor struct {
	Name        string `xml:"name,attr"`
	Joint       string `xml:"joint,attr"`
	Gear        string `xml:"gear,attr"`
	CtrlLimited string `xml:"ctrllimited,attr"`
	CtrlRange   string `xml:"ctrlrange,attr"`
}

func parseFloats(s string, n int, def []float64) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		out := make([]float64, n)
		copy(out, def)
		return out, nil
	}
	if len(fields) > n {
		return nil, fmt.Errorf("expected at most %d values, got %q", n, s)
	}
	out := make([]float64, n)
	copy(out, def)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloat(s string, def float64) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// Parse compiles a model description into a Model.
func Parse(src []byte) (*Model, error) {
	var doc xmlMujoco
	if err := xml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrModelParse, err)
	}

	m, err := compile(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrModelParse, err)
	}
	return m, nil
}

func compile(doc *xmlMujoco) (*Model, error) {
	m := &Model{name: doc.Model}

	ts, err := parseFloat(doc.Option.Timestep, defaultTimestep)
	if err != nil {
		return nil, fmt.Errorf("option timestep: %w", err)
	}
	if ts <= 0 {
		return nil, fmt.Errorf("option timestep must be positive, got %g", ts)
	}
	m.timestep = ts

	g, err := parseFloats(doc.Option.Gravity, 3, []float64{0, 0, -9.81})
	if err != nil {
		return nil, fmt.Errorf("option gravity: %w", err)
	}
	m.gravity = mgl64.Vec3{g[0], g[1], g[2]}
	if _, err := integrators.ByName(doc.Option.Integrator); err != nil {
		return nil, fmt.Errorf("option integrator: %w", err)
	}
	m.integrator = doc.Option.Integrator

	// body 0 is the world
	m.addBody(-1, "world", mgl64.Vec3{}, mgl64.QuatIdent())
	if err := m.addGeoms(0, doc.World.Geoms); err != nil {
		return nil, err
	}
	for i := range doc.World.Bodies {
		if err := m.addBodyTree(0, &doc.World.Bodies[i]); err != nil {
			return nil, err
		}
	}

	for _, motor := range doc.Actuators.Motors {
		if err := m.addMotor(motor); err != nil {
			return nil, err
		}
	}

	m.finalize()
	return m, nil
}

func (m *Model) addBody(parent int, name string, pos mgl64.Vec3, quat mgl64.Quat) int {
	id := len(m.bodyParent)
	m.bodyParent = append(m.bodyParent, parent)
	m.bodyName = append(m.bodyName, name)
	m.bodyPos = append(m.bodyPos, pos)
	m.bodyQuat = append(m.bodyQuat, quat.Normalize())
	m.bodyMass = append(m.bodyMass, 0)
	m.bodyJnt = append(m.bodyJnt, nil)
	return id
}

func (m *Model) addBodyTree(parent int, b *xmlBody) error {
	p, err := parseFloats(b.Pos, 3, nil)
	if err != nil {
		return fmt.Errorf("body %q pos: %w", b.Name, err)
	}
	q, err := parseFloats(b.Quat, 4, []float64{1, 0, 0, 0})
	if err != nil {
		return fmt.Errorf("body %q quat: %w", b.Name, err)
	}

	id := m.addBody(parent, b.Name, mgl64.Vec3{p[0], p[1], p[2]}, mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}})

	if len(b.FreeJoint) > 0 {
		if err := m.addJoint(id, xmlJoint{Type: "free"}); err != nil {
			return err
		}
	}
	for _, j := range b.Joints {
		if err := m.addJoint(id, j); err != nil {
			return err
		}
	}
	if err := m.addGeoms(id, b.Geoms); err != nil {
		return err
	}
	for i := range b.Bodies {
		if err := m.addBodyTree(id, &b.Bodies[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) addJoint(body int, j xmlJoint) error {
	kind := j.Type
	if kind == "" {
		kind = "hinge"
	}

	jt := joint{name: j.Name, body: body, qposAdr: m.nq, dofAdr: m.nv}
	switch kind {
	case "free":
		if m.bodyParent[body] != 0 {
			return fmt.Errorf("joint %q: free joints are only allowed on top-level bodies", j.Name)
		}
		jt.kind = jointFree
		m.nq += 7
		m.nv += 6
	case "hinge":
		jt.kind = jointHinge
		m.nq++
		m.nv++
	case "slide":
		jt.kind = jointSlide
		m.nq++
		m.nv++
	default:
		return fmt.Errorf("joint %q: unsupported type %q", j.Name, kind)
	}

	axis, err := parseFloats(j.Axis, 3, []float64{0, 0, 1})
	if err != nil {
		return fmt.Errorf("joint %q axis: %w", j.Name, err)
	}
	jt.axis = mgl64.Vec3{axis[0], axis[1], axis[2]}
	if jt.kind != jointFree {
		if jt.axis.Len() == 0 {
			return fmt.Errorf("joint %q: zero axis", j.Name)
		}
		jt.axis = jt.axis.Normalize()
	}

	pos, err := parseFloats(j.Pos, 3, nil)
	if err != nil {
		return fmt.Errorf("joint %q pos: %w", j.Name, err)
	}
	jt.pos = mgl64.Vec3{pos[0], pos[1], pos[2]}

	if jt.damping, err = parseFloat(j.Damping, 0); err != nil {
		return fmt.Errorf("joint %q damping: %w", j.Name, err)
	}
	if jt.stiffness, err = parseFloat(j.Stiffness, 0); err != nil {
		return fmt.Errorf("joint %q stiffness: %w", j.Name, err)
	}
	if jt.armature, err = parseFloat(j.Armature, defaultArmature); err != nil {
		return fmt.Errorf("joint %q armature: %w", j.Name, err)
	}

	m.bodyJnt[body] = append(m.bodyJnt[body], len(m.joints))
	m.joints = append(m.joints, jt)
	return nil
}

func (m *Model) addGeoms(body int, geoms []xmlGeom) error {
	for _, g := range geoms {
		kind := g.Type
		if kind == "" {
			kind = "sphere"
		}
		gt, ok := engine.ParseGeomType(kind)
		if !ok {
			return fmt.Errorf("geom %q: unknown type %q", g.Name, kind)
		}

		size, err := parseFloats(g.Size, 3, nil)
		if err != nil {
			return fmt.Errorf("geom %q size: %w", g.Name, err)
		}
		rgba, err := parseFloats(g.RGBA, 4, []float64{0.5, 0.5, 0.5, 1})
		if err != nil {
			return fmt.Errorf("geom %q rgba: %w", g.Name, err)
		}
		pos, err := parseFloats(g.Pos, 3, nil)
		if err != nil {
			return fmt.Errorf("geom %q pos: %w", g.Name, err)
		}
		quat, err := parseFloats(g.Quat, 4, []float64{1, 0, 0, 0})
		if err != nil {
			return fmt.Errorf("geom %q quat: %w", g.Name, err)
		}
		mass, err := parseFloat(g.Mass, defaultGeomMass)
		if err != nil {
			return fmt.Errorf("geom %q mass: %w", g.Name, err)
		}

		m.geomBody = append(m.geomBody, body)
		m.geomType = append(m.geomType, gt)
		m.geomSize = append(m.geomSize, size...)
		m.geomRGBA = append(m.geomRGBA, rgba...)
		m.geomPos = append(m.geomPos, pos...)
		q := mgl64.Quat{W: quat[0], V: mgl64.Vec3{quat[1], quat[2], quat[3]}}.Normalize()
		m.geomQuat = append(m.geomQuat, q.W, q.V[0], q.V[1], q.V[2])
		if body != 0 && gt != engine.GeomPlane {
			m.bodyMass[body] += mass
		}
	}
	return nil
}

func (m *Model) addMotor(x xmlMotor) error {
	jid := -1
	for i, j := range m.joints {
		if j.name != "" && j.name == x.Joint {
			jid = i
			break
		}
	}
	if jid < 0 {
		return fmt.Errorf("motor %q: unknown joint %q", x.Name, x.Joint)
	}
	if m.joints[jid].kind == jointFree {
		return fmt.Errorf("motor %q: cannot drive free joint %q", x.Name, x.Joint)
	}

	gear, err := parseFloat(x.Gear, 1)
	if err != nil {
		return fmt.Errorf("motor %q gear: %w", x.Name, err)
	}
	rng, err := parseFloats(x.CtrlRange, 2, nil)
	if err != nil {
		return fmt.Errorf("motor %q ctrlrange: %w", x.Name, err)
	}
	limited := x.CtrlLimited == "true" || (x.CtrlLimited == "" && (rng[0] != 0 || rng[1] != 0))

	m.actuators = append(m.actuators, actuator{
		name:    x.Name,
		joint:   jid,
		gear:    gear,
		limited: limited,
		lo:      rng[0],
		hi:      rng[1],
	})
	return nil
}

package engine

import "context"

type GeomType int

const (
	GeomPlane GeomType = iota
	GeomHField
	GeomSphere
	GeomCapsule
	GeomEllipsoid
	GeomCylinder
	GeomBox
	GeomMesh
)

var geomNames = map[string]GeomType{
	"plane":     GeomPlane,
	"hfield":    GeomHField,
	"sphere":    GeomSphere,
	"capsule":   GeomCapsule,
	"ellipsoid": GeomEllipsoid,
	"cylinder":  GeomCylinder,
	"box":       GeomBox,
	"mesh":      GeomMesh,
}

// ParseGeomType maps a model-description type name to its GeomType.
func ParseGeomType(name string) (GeomType, bool) {
	t, ok := geomNames[name]
	return t, ok
}

func (g GeomType) String() string {
	for name, t := range geomNames {
		if t == g {
			return name
		}
	}
	return "unknown"
}

// MountKind selects the backing store of a virtual filesystem mount.
type MountKind string

const MEMFS MountKind = "MEMFS"

type FS interface {
	Mkdir(path string) error
	Mount(kind MountKind, root, mountpoint string) error
	WriteFile(path string, data []byte) error
	Unlink(path string) error
}

type Model interface {
	GeomCount() int
	BodyCount() int
	ActuatorCount() int
	// Timestep is the fixed engine step in seconds.
	Timestep() float64

	GeomBodyID() []int
	GeomType() []GeomType
	GeomSize() []float64
	GeomRGBA() []float64
	GeomPos() []float64
	GeomQuat() []float64
	ActuatorNames() []string

	Delete()
}

type Data interface {
	XPos() []float64
	XQuat() []float64
	Ctrl() []float64
	Qpos() []float64
	Qvel() []float64
	Time() float64

	Delete()
}

type Module interface {
	FS() FS
	LoadModel(path string) (Model, error)
	NewData(m Model) (Data, error)
	Step(m Model, d Data)
	ResetData(m Model, d Data)
}

// Loader loads an engine module at runtime.
type Loader interface {
	Load(ctx context.Context) (Module, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Module, error)

func (f LoaderFunc) Load(ctx context.Context) (Module, error) { return f(ctx) }

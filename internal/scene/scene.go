package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

type Color struct {
	R, G, B float64
}

type GeometryKind string

const (
	KindPlane    GeometryKind = "plane"
	KindSphere   GeometryKind = "sphere"
	KindCylinder GeometryKind = "cylinder"
	KindBox      GeometryKind = "box"
)

// Geometry describes a primitive mesh shape. Only the fields relevant to
// Kind are set.
type Geometry struct {
	Kind         GeometryKind `json:"kind"`
	Width        float64      `json:"width,omitempty"`
	Height       float64      `json:"height,omitempty"`
	Depth        float64      `json:"depth,omitempty"`
	Radius       float64      `json:"radius,omitempty"`
	RadiusTop    float64      `json:"radiusTop,omitempty"`
	RadiusBottom float64      `json:"radiusBottom,omitempty"`
	Segments     int          `json:"segments,omitempty"`
}

func PlaneGeometry(w, h float64) Geometry {
	return Geometry{Kind: KindPlane, Width: w, Height: h}
}

func SphereGeometry(r float64, segments int) Geometry {
	return Geometry{Kind: KindSphere, Radius: r, Segments: segments}
}

func CylinderGeometry(rTop, rBottom, h float64, segments int) Geometry {
	return Geometry{Kind: KindCylinder, RadiusTop: rTop, RadiusBottom: rBottom, Height: h, Segments: segments}
}

func BoxGeometry(w, h, d float64) Geometry {
	return Geometry{Kind: KindBox, Width: w, Height: h, Depth: d}
}

type Material struct {
	Color       Color   `json:"color"`
	Opacity     float64 `json:"opacity"`
	Transparent bool    `json:"transparent"`
}

// NewMaterial builds a material from an RGBA tuple. Alpha below one makes it
// transparent.
func NewMaterial(r, g, b, a float64) Material {
	return Material{Color: Color{r, g, b}, Opacity: a, Transparent: a < 1}
}

var nextID atomic.Int64

// Node is a group or, when Geometry is set, a mesh.
type Node struct {
	ID       int64
	Name     string
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Geometry *Geometry
	Material *Material
	Children []*Node

	parent *Node
}

func NewGroup(name string) *Node {
	return &Node{ID: nextID.Add(1), Name: name, Rotation: mgl64.QuatIdent()}
}

func NewMesh(g Geometry, m Material) *Node {
	n := NewGroup("")
	n.Geometry = &g
	n.Material = &m
	return n
}

func (n *Node) IsMesh() bool { return n.Geometry != nil }

func (n *Node) Parent() *Node { return n.parent }

// Add attaches child to n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// SetQuaternion sets the rotation from components in x, y, z, w order.
func (n *Node) SetQuaternion(x, y, z, w float64) {
	n.Rotation = mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}

// Quaternion returns the rotation in x, y, z, w order.
func (n *Node) Quaternion() [4]float64 {
	return [4]float64{n.Rotation.V[0], n.Rotation.V[1], n.Rotation.V[2], n.Rotation.W}
}

func (n *Node) LocalMatrix() mgl64.Mat4 {
	return mgl64.Translate3D(n.Position[0], n.Position[1], n.Position[2]).Mul4(n.Rotation.Normalize().Mat4())
}

func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Traverse visits n and all descendants depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

type LightKind string

const (
	AmbientLight     LightKind = "ambient"
	DirectionalLight LightKind = "directional"
)

type Light struct {
	Kind      LightKind  `json:"kind"`
	Color     Color      `json:"color"`
	Intensity float64    `json:"intensity"`
	Position  mgl64.Vec3 `json:"position"`
}

// Scene is the root of a render graph.
type Scene struct {
	Root       *Node
	Background Color
	Lights     []Light
}

func New() *Scene {
	return &Scene{Root: NewGroup("scene")}
}

func (s *Scene) Add(n *Node) { s.Root.Add(n) }

// Meshes returns every mesh node in traversal order.
func (s *Scene) Meshes() []*Node {
	var out []*Node
	s.Root.Traverse(func(n *Node) {
		if n.IsMesh() {
			out = append(out, n)
		}
	})
	return out
}

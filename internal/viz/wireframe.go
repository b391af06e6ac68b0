package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/scene"
)

const circleSegments = 16

type Edge struct {
	Start, End mgl64.Vec3
}

// Outline returns the edges drawn for a primitive, in the mesh's own frame.
// Primitives are centered on the origin; cylinders run along y and planes
// lie in the xy plane.
func Outline(g scene.Geometry) []Edge {
	switch g.Kind {
	case scene.KindBox:
		return boxEdges(g.Width/2, g.Height/2, g.Depth/2)
	case scene.KindSphere:
		var out []Edge
		out = append(out, circle(g.Radius, 0, axisXY)...)
		out = append(out, circle(g.Radius, 0, axisXZ)...)
		out = append(out, circle(g.Radius, 0, axisYZ)...)
		return out
	case scene.KindCylinder:
		h := g.Height / 2
		out := append(circle(g.RadiusTop, h, axisXZ), circle(g.RadiusBottom, -h, axisXZ)...)
		for i := 0; i < 4; i++ {
			a := float64(i) * math.Pi / 2
			top := mgl64.Vec3{g.RadiusTop * math.Cos(a), h, g.RadiusTop * math.Sin(a)}
			bottom := mgl64.Vec3{g.RadiusBottom * math.Cos(a), -h, g.RadiusBottom * math.Sin(a)}
			out = append(out, Edge{top, bottom})
		}
		return out
	case scene.KindPlane:
		return planeEdges(g.Width/2, g.Height/2, 4)
	}
	return nil
}

func boxEdges(x, y, z float64) []Edge {
	v := []mgl64.Vec3{{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z}, {-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}
	ei := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	out := make([]Edge, 0, len(ei))
	for _, e := range ei {
		out = append(out, Edge{v[e[0]], v[e[1]]})
	}
	return out
}

// planeEdges draws the plane border and an n-by-n grid.
func planeEdges(w, h float64, n int) []Edge {
	out := make([]Edge, 0, 2*(n+1))
	for i := 0; i <= n; i++ {
		t := -1 + 2*float64(i)/float64(n)
		out = append(out,
			Edge{mgl64.Vec3{t * w, -h, 0}, mgl64.Vec3{t * w, h, 0}},
			Edge{mgl64.Vec3{-w, t * h, 0}, mgl64.Vec3{w, t * h, 0}},
		)
	}
	return out
}

type plane int

const (
	axisXY plane = iota
	axisXZ
	axisYZ
)

func circle(r, offset float64, p plane) []Edge {
	pt := func(a float64) mgl64.Vec3 {
		c, s := r*math.Cos(a), r*math.Sin(a)
		switch p {
		case axisXY:
			return mgl64.Vec3{c, s, offset}
		case axisXZ:
			return mgl64.Vec3{c, offset, s}
		default:
			return mgl64.Vec3{offset, c, s}
		}
	}
	out := make([]Edge, 0, circleSegments)
	for i := 0; i < circleSegments; i++ {
		a0 := 2 * math.Pi * float64(i) / circleSegments
		a1 := 2 * math.Pi * float64(i+1) / circleSegments
		out = append(out, Edge{pt(a0), pt(a1)})
	}
	return out
}

// Project maps a world point to canvas dots. ok is false for points behind
// the near plane.
func Project(viewProj mgl64.Mat4, p mgl64.Vec3, w, h int) (x, y int, ok bool) {
	clip := viewProj.Mul4x1(p.Vec4(1))
	if clip[3] <= 1e-9 {
		return 0, 0, false
	}
	nx, ny := clip[0]/clip[3], clip[1]/clip[3]
	x = int(math.Round((nx + 1) / 2 * float64(w-1)))
	y = int(math.Round((1 - ny) / 2 * float64(h-1)))
	return x, y, true
}

// DrawScene draws every mesh of s as seen from cam.
func DrawScene(c *Canvas, s *scene.Scene, cam *scene.Camera) {
	w, h := c.DotSize()
	viewProj := cam.ProjectionMatrix().Mul4(cam.ViewMatrix())
	for _, n := range s.Meshes() {
		world := n.WorldMatrix()
		for _, e := range Outline(*n.Geometry) {
			a := mgl64.TransformCoordinate(e.Start, world)
			b := mgl64.TransformCoordinate(e.End, world)
			x0, y0, ok0 := Project(viewProj, a, w, h)
			x1, y1, ok1 := Project(viewProj, b, w, h)
			if !ok0 || !ok1 {
				continue
			}
			if outside(x0, y0, x1, y1, w, h) {
				continue
			}
			c.DrawLine(x0, y0, x1, y1)
		}
	}
}

// outside rejects edges entirely off one side of the canvas so far-away
// projections do not walk huge lines.
func outside(x0, y0, x1, y1, w, h int) bool {
	return (x0 < 0 && x1 < 0) || (y0 < 0 && y1 < 0) || (x0 >= w && x1 >= w) || (y0 >= h && y1 >= h) ||
		absInt(x1-x0) > 8*w || absInt(y1-y0) > 8*h
}

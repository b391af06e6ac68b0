package viewer

import (
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/scene"
)

const meshSegments = 16

// GeometryFor picks the renderer primitive for an engine geom. Capsules
// are drawn as cylinders; kinds without a primitive become a small box.
func GeometryFor(t engine.GeomType, size []float64) scene.Geometry {
	switch t {
	case engine.GeomPlane:
		return scene.PlaneGeometry(size[0]*2, size[1]*2)
	case engine.GeomSphere:
		return scene.SphereGeometry(size[0], meshSegments)
	case engine.GeomCapsule, engine.GeomCylinder:
		return scene.CylinderGeometry(size[0], size[0], size[1]*2, meshSegments)
	case engine.GeomBox:
		return scene.BoxGeometry(size[0]*2, size[2]*2, size[1]*2)
	default:
		return scene.BoxGeometry(0.1, 0.1, 0.1)
	}
}

// buildScene creates one group per body that owns a geom and attaches a
// mesh per geom. It returns the groups keyed by body id.
func buildScene(s *scene.Scene, m engine.Model) map[int]*scene.Node {
	bodies := make(map[int]*scene.Node)
	bodyIDs := m.GeomBodyID()
	types := m.GeomType()
	size, rgba := m.GeomSize(), m.GeomRGBA()
	pos, quat := m.GeomPos(), m.GeomQuat()

	for g := 0; g < m.GeomCount(); g++ {
		id := bodyIDs[g]
		group, ok := bodies[id]
		if !ok {
			group = scene.NewGroup("")
			bodies[id] = group
			s.Add(group)
		}

		c := rgba[4*g : 4*g+4]
		mesh := scene.NewMesh(GeometryFor(types[g], size[3*g:3*g+3]), scene.NewMaterial(c[0], c[1], c[2], c[3]))
		setPose(mesh, pos, quat, g)
		group.Add(mesh)
	}
	return bodies
}

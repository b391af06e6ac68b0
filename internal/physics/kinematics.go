package physics

import "github.com/go-gl/mathgl/mgl64"

// forward fills the world pose of every body from qpos.
func (m *Model) forward(qpos, xpos, xquat []float64) {
	pos := make([]mgl64.Vec3, len(m.bodyParent))
	rot := make([]mgl64.Quat, len(m.bodyParent))
	rot[0] = mgl64.QuatIdent()

	for b := 1; b < len(m.bodyParent); b++ {
		p := m.bodyParent[b]
		pos[b] = pos[p].Add(rot[p].Rotate(m.bodyPos[b]))
		rot[b] = rot[p].Mul(m.bodyQuat[b])

		for _, ji := range m.bodyJnt[b] {
			j := &m.joints[ji]
			q := qpos[j.qposAdr:]
			switch j.kind {
			case jointFree:
				pos[b] = mgl64.Vec3{q[0], q[1], q[2]}
				rot[b] = mgl64.Quat{W: q[3], V: mgl64.Vec3{q[4], q[5], q[6]}}
			case jointHinge:
				r := mgl64.QuatRotate(q[0], j.axis)
				// rotate about the joint anchor, not the body origin
				shift := j.pos.Sub(r.Rotate(j.pos))
				pos[b] = pos[b].Add(rot[b].Rotate(shift))
				rot[b] = rot[b].Mul(r)
			case jointSlide:
				pos[b] = pos[b].Add(rot[b].Rotate(j.axis.Mul(q[0])))
			}
		}
		rot[b] = rot[b].Normalize()

		xpos[3*b], xpos[3*b+1], xpos[3*b+2] = pos[b][0], pos[b][1], pos[b][2]
		xquat[4*b], xquat[4*b+1], xquat[4*b+2], xquat[4*b+3] = rot[b].W, rot[b].V[0], rot[b].V[1], rot[b].V[2]
	}
	xquat[0] = 1
}

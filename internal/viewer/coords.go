package viewer

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/scene"
)

// The engine is z-up and the renderer is y-up.

// ToRenderPos converts position i of a stride-3 engine buffer:
// (x, y, z) becomes (x, z, -y).
func ToRenderPos(buf []float64, i int) mgl64.Vec3 {
	return mgl64.Vec3{buf[3*i], buf[3*i+2], -buf[3*i+1]}
}

// ToRenderQuat converts quaternion i of a stride-4, w-first engine buffer
// into renderer x, y, z, w order: (q0, q1, q2, q3) becomes
// (-q1, -q3, q2, -q0).
func ToRenderQuat(buf []float64, i int) [4]float64 {
	return [4]float64{-buf[4*i+1], -buf[4*i+3], buf[4*i+2], -buf[4*i]}
}

func setPose(n *scene.Node, pos, quat []float64, i int) {
	n.Position = ToRenderPos(pos, i)
	q := ToRenderQuat(quat, i)
	n.SetQuaternion(q[0], q[1], q[2], q[3])
}

package scene

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera. FOV is the vertical field of view in
// degrees.
type Camera struct {
	FOV, Aspect, Near, Far float64
	Position, Target, Up   mgl64.Vec3
}

func NewPerspectiveCamera(fov, aspect, near, far float64) *Camera {
	return &Camera{
		FOV: fov, Aspect: aspect, Near: near, Far: far,
		Position: mgl64.Vec3{0, 0, 1},
		Up:       mgl64.Vec3{0, 1, 0},
	}
}

func (c *Camera) LookAt(target mgl64.Vec3) { c.Target = target }

func (c *Camera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) ProjectionMatrix() mgl64.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// Controls are per-frame camera controllers.
type Controls interface {
	Update() bool
	Dispose()
}

// OrbitControls orbits a camera around a target. Rotate and Zoom may be
// called from any goroutine; Update applies them on the frame goroutine.
type OrbitControls struct {
	EnableDamping bool
	DampingFactor float64
	MinDistance   float64
	MaxDistance   float64

	mu       sync.Mutex
	camera   *Camera
	target   mgl64.Vec3
	dTheta   float64
	dPhi     float64
	scale    float64
	disposed bool
}

func NewOrbitControls(cam *Camera) *OrbitControls {
	return &OrbitControls{
		EnableDamping: true,
		DampingFactor: 0.1,
		MinDistance:   0.2,
		MaxDistance:   100,
		camera:        cam,
		target:        cam.Target,
		scale:         1,
	}
}

func (o *OrbitControls) SetTarget(t mgl64.Vec3) {
	o.mu.Lock()
	o.target = t
	o.camera.Target = t
	o.mu.Unlock()
}

// Rotate queues an orbit by azimuth dTheta and polar dPhi radians.
func (o *OrbitControls) Rotate(dTheta, dPhi float64) {
	o.mu.Lock()
	o.dTheta += dTheta
	o.dPhi += dPhi
	o.mu.Unlock()
}

// Zoom scales the camera distance; factors below one move closer.
func (o *OrbitControls) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	o.mu.Lock()
	o.scale *= factor
	o.mu.Unlock()
}

// Update moves the camera and reports whether it changed.
func (o *OrbitControls) Update() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		return false
	}

	offset := o.camera.Position.Sub(o.target)
	radius := offset.Len()
	if radius == 0 {
		radius = o.MinDistance
	}
	theta := math.Atan2(offset[0], offset[2])
	phi := math.Acos(clamp(offset[1]/radius, -1, 1))

	damp := 1.0
	if o.EnableDamping {
		damp = o.DampingFactor
	}
	theta += o.dTheta * damp
	phi += o.dPhi * damp
	const eps = 1e-6
	phi = clamp(phi, eps, math.Pi-eps)
	radius = clamp(radius*o.scale, o.MinDistance, o.MaxDistance)

	sinPhi := math.Sin(phi)
	next := o.target.Add(mgl64.Vec3{
		radius * sinPhi * math.Sin(theta),
		radius * math.Cos(phi),
		radius * sinPhi * math.Cos(theta),
	})
	changed := next.Sub(o.camera.Position).Len() > 1e-9
	o.camera.Position = next
	o.camera.Target = o.target

	if o.EnableDamping {
		o.dTheta *= 1 - o.DampingFactor
		o.dPhi *= 1 - o.DampingFactor
	} else {
		o.dTheta, o.dPhi = 0, 0
	}
	o.scale = 1
	return changed
}

// Dispose detaches the controls. Calling it twice is a no-op.
func (o *OrbitControls) Dispose() {
	o.mu.Lock()
	o.disposed = true
	o.mu.Unlock()
}

func (o *OrbitControls) Disposed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disposed
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

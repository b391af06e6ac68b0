package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/control"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/scene"
)

const (
	WorkDir   = "/working"
	ModelPath = WorkDir + "/model.xml"
)

// The model file path is shared by every viewer on a module, so writing
// and parsing it must not interleave.
var modelFileMu sync.Mutex

// Frame is what observers see after each rendered frame. Slices are copies.
type Frame struct {
	Seq     uint64
	SimTime float64
	Steps   int
	Paused  bool
	XPos    []float64
	Ctrl    []float64
}

// FrameObserver is notified on the frame goroutine after each render.
type FrameObserver interface {
	ObserveFrame(f Frame)
}

type FrameObserverFunc func(f Frame)

func (fn FrameObserverFunc) ObserveFrame(f Frame) { fn(f) }

type Options struct {
	// ModelXML is used when set; otherwise ModelURL is fetched; otherwise
	// the default box model is shown.
	ModelXML   string
	ModelURL   string
	HTTPClient *http.Client

	Width, Height int
	Paused        bool

	Engine      *engine.Cache
	NewRenderer func(w, h int) (scene.Renderer, error)
	Host        scene.Host
	NewControls func(cam *scene.Camera) scene.Controls
	Scheduler   Scheduler
	Clock       func() time.Time

	Policy    control.Policy
	KeyHold   time.Duration
	Observers []FrameObserver
	Logger    *slog.Logger
}

type Viewer struct {
	mu sync.Mutex

	opts   Options
	logger *slog.Logger
	clock  func() time.Time
	epoch  time.Time

	module   engine.Module
	model    engine.Model
	data     engine.Data
	scene    *scene.Scene
	camera   *scene.Camera
	renderer scene.Renderer
	controls scene.Controls
	bodies   map[int]*scene.Node
	keys     *control.KeyState

	acc      *Accumulator
	paused   bool
	disposed bool
	cancel   func()
	seq      uint64
}

// New loads the engine, builds the world and scene, attaches the renderer
// surface to the host and schedules the first frame. On failure every
// resource acquired so far is released and an *InitError is returned.
func New(ctx context.Context, opts Options) (*Viewer, error) {
	v := &Viewer{
		opts:   opts,
		logger: opts.Logger,
		clock:  opts.Clock,
		paused: opts.Paused,
		keys:   control.NewKeyState(opts.KeyHold),
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.clock == nil {
		v.clock = time.Now
	}
	if v.opts.Scheduler == nil {
		v.opts.Scheduler = NewTickerScheduler(config.DefaultFPS)
	}
	if ts, ok := v.opts.Scheduler.(TickerScheduler); ok && ts.Clock == nil {
		ts.Clock = v.clock
		v.opts.Scheduler = ts
	}
	if v.opts.Width <= 0 || v.opts.Height <= 0 {
		v.opts.Width, v.opts.Height = config.DefaultWidth, config.DefaultHeight
	}

	if err := v.init(ctx); err != nil {
		v.Dispose()
		v.logger.Error("viewer init failed", "stage", StageOf(err), "error", err)
		return nil, err
	}
	return v, nil
}

func (v *Viewer) init(ctx context.Context) error {
	if v.opts.Engine == nil {
		return &InitError{StageModuleLoad, ErrNoEngine}
	}
	mod, err := v.opts.Engine.Get(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrNilModule) {
			return &InitError{StageNilModule, err}
		}
		return &InitError{StageModuleLoad, err}
	}
	v.module = mod

	src, err := v.modelSource(ctx)
	if err != nil {
		return &InitError{StageModelFetch, err}
	}
	if err := v.loadModel(src); err != nil {
		return err
	}

	data, err := mod.NewData(v.model)
	if err != nil {
		return &InitError{StageData, err}
	}
	v.data = data

	v.scene = scene.New()
	v.scene.Background = scene.Color{R: 0.96, G: 0.96, B: 0.96}
	v.scene.Lights = []scene.Light{
		{Kind: scene.AmbientLight, Color: scene.Color{R: 1, G: 1, B: 1}, Intensity: 0.6},
		{Kind: scene.DirectionalLight, Color: scene.Color{R: 1, G: 1, B: 1}, Intensity: 0.8, Position: mgl64.Vec3{3, 3, 3}},
	}
	v.bodies = buildScene(v.scene, v.model)

	v.camera = scene.NewPerspectiveCamera(45, float64(v.opts.Width)/float64(v.opts.Height), 0.001, 100)
	v.camera.Position = mgl64.Vec3{2, 2, 2}
	v.camera.LookAt(mgl64.Vec3{0, 0, 0})

	if v.opts.NewRenderer == nil {
		return &InitError{StageRenderer, ErrNoRenderer}
	}
	r, err := v.opts.NewRenderer(v.opts.Width, v.opts.Height)
	if err != nil {
		return &InitError{StageRenderer, err}
	}
	v.renderer = r
	r.SetSize(v.opts.Width, v.opts.Height)

	if v.opts.Host == nil {
		return &InitError{StageAttach, ErrNoHost}
	}
	if err := v.opts.Host.Append(r.Surface()); err != nil {
		return &InitError{StageAttach, err}
	}

	if v.opts.NewControls != nil {
		v.controls = v.opts.NewControls(v.camera)
	} else {
		oc := scene.NewOrbitControls(v.camera)
		oc.SetTarget(mgl64.Vec3{0, 0.5, 0})
		v.controls = oc
	}

	v.epoch = v.clock()
	v.acc = NewAccumulator(0, v.model.Timestep()*1000)
	v.syncBodies()

	v.logger.Info("viewer ready",
		"bodies", len(v.bodies), "geoms", v.model.GeomCount(),
		"actuators", v.model.ActuatorCount(), "timestep", v.model.Timestep())

	v.mu.Lock()
	v.schedule()
	v.mu.Unlock()
	return nil
}

func (v *Viewer) modelSource(ctx context.Context) (string, error) {
	if v.opts.ModelXML != "" {
		return v.opts.ModelXML, nil
	}
	if v.opts.ModelURL == "" {
		return config.DefaultModel(), nil
	}

	client := v.opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.opts.ModelURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("fetch %s: status %d", v.opts.ModelURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (v *Viewer) loadModel(src string) error {
	fs := v.module.FS()

	modelFileMu.Lock()
	defer modelFileMu.Unlock()

	if err := fs.Mkdir(WorkDir); err != nil && !errors.Is(err, engine.ErrExist) {
		return &InitError{StageFilesystem, err}
	}
	if err := fs.Mount(engine.MEMFS, ".", WorkDir); err != nil {
		return &InitError{StageFilesystem, err}
	}
	if err := fs.WriteFile(ModelPath, []byte(src)); err != nil {
		return &InitError{StageFilesystem, err}
	}

	m, err := v.module.LoadModel(ModelPath)
	if err != nil {
		return &InitError{StageModelParse, err}
	}
	v.model = m
	return nil
}

// schedule must be called with mu held.
func (v *Viewer) schedule() {
	if v.disposed {
		return
	}
	v.cancel = v.opts.Scheduler.Request(v.frame)
}

func (v *Viewer) nowMS(t time.Time) float64 {
	return float64(t.Sub(v.epoch)) / float64(time.Millisecond)
}

func (v *Viewer) frame(now time.Time) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.cancel = nil

	v.controls.Update()

	steps := 0
	if !v.paused {
		steps = v.acc.Advance(v.nowMS(now), v.step)
	}
	v.syncBodies()
	v.renderer.Render(v.scene, v.camera)

	v.seq++
	f := Frame{
		Seq:     v.seq,
		SimTime: v.data.Time(),
		Steps:   steps,
		Paused:  v.paused,
		XPos:    append([]float64(nil), v.data.XPos()...),
		Ctrl:    append([]float64(nil), v.data.Ctrl()...),
	}
	observers := v.opts.Observers
	v.schedule()
	v.mu.Unlock()

	for _, o := range observers {
		o.ObserveFrame(f)
	}
}

// step applies the control policy and advances the engine once.
func (v *Viewer) step() {
	if v.opts.Policy != nil {
		u := v.opts.Policy.Compute(control.Input{Time: v.acc.Marker / 1000, Keys: v.keys})
		copy(v.data.Ctrl(), u)
	}
	v.module.Step(v.model, v.data)
}

func (v *Viewer) syncBodies() {
	pos, quat := v.data.XPos(), v.data.XQuat()
	for b := 0; b < v.model.BodyCount(); b++ {
		if n, ok := v.bodies[b]; ok {
			setPose(n, pos, quat, b)
		}
	}
}

// Reset restores the world to its initial state.
func (v *Viewer) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.module.ResetData(v.model, v.data)
	v.acc.Sync(v.nowMS(v.clock()))
	v.syncBodies()
	v.logger.Info("viewer reset")
}

func (v *Viewer) SetPaused(paused bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed || v.paused == paused {
		return
	}
	v.paused = paused
	if !paused {
		v.acc.Sync(v.nowMS(v.clock()))
	}
}

func (v *Viewer) TogglePause() {
	v.mu.Lock()
	paused := !v.paused
	v.mu.Unlock()
	v.SetPaused(paused)
}

// KeyDown records a held key. Space resets the world and keys the policy
// handles, such as the manual toggle, are forwarded to it.
func (v *Viewer) KeyDown(key string) {
	key = strings.ToLower(key)
	switch key {
	case " ", "space":
		v.Reset()
		return
	}
	v.keys.Press(key)
	if h, ok := v.opts.Policy.(control.KeyHandler); ok && h.HandleKey(key) {
		v.logger.Debug("policy key", "key", key)
	}
}

func (v *Viewer) KeyUp(key string) {
	v.keys.Release(strings.ToLower(key))
}

// Orbit forwards camera interaction when the controls support it.
func (v *Viewer) Orbit(dTheta, dPhi, zoom float64) {
	v.mu.Lock()
	oc, ok := v.controls.(*scene.OrbitControls)
	v.mu.Unlock()
	if !ok {
		return
	}
	if dTheta != 0 || dPhi != 0 {
		oc.Rotate(dTheta, dPhi)
	}
	if zoom > 0 && zoom != 1 {
		oc.Zoom(zoom)
	}
}

func (v *Viewer) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.disposed:
		return "disposed"
	case v.paused:
		return "paused"
	default:
		return "running"
	}
}

// Bodies returns the number of body proxies in the scene.
func (v *Viewer) Bodies() int { return len(v.bodies) }

// Proxy returns the render group of a body, if it has one.
func (v *Viewer) Proxy(body int) (*scene.Node, bool) {
	n, ok := v.bodies[body]
	return n, ok
}

func (v *Viewer) Model() engine.Model { return v.model }

func (v *Viewer) Scene() *scene.Scene { return v.scene }

func (v *Viewer) Camera() *scene.Camera { return v.camera }

// Dispose cancels the pending frame and releases, in order, the renderer
// surface and renderer, the data, the model and the controls. It is safe
// to call more than once and on a partially initialized viewer.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.disposed {
		return
	}
	v.disposed = true

	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}

	if v.renderer != nil {
		surf := v.renderer.Surface()
		if v.opts.Host != nil && v.opts.Host.Contains(surf) {
			if err := v.opts.Host.Remove(surf); err != nil {
				v.logger.Warn("detach surface", "error", err)
			}
		}
		v.renderer.Dispose()
	}
	if v.data != nil {
		v.data.Delete()
	}
	if v.model != nil {
		v.model.Delete()
	}
	if v.controls != nil {
		v.controls.Dispose()
	}
	v.logger.Debug("viewer disposed")
}

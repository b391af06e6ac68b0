package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/control"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/physics"
	"github.com/san-kum/axis/internal/scene"
)

type fakeSurface string

func (s fakeSurface) ID() string { return string(s) }

type fakeRenderer struct {
	surf     fakeSurface
	renders  int
	disposed int
	onRender func(s *scene.Scene, c *scene.Camera)
}

func (r *fakeRenderer) Surface() scene.Surface { return r.surf }
func (r *fakeRenderer) SetSize(w, h int)       {}
func (r *fakeRenderer) Dispose()               { r.disposed++ }

func (r *fakeRenderer) Render(s *scene.Scene, c *scene.Camera) {
	r.renders++
	if r.onRender != nil {
		r.onRender(s, c)
	}
}

type failingHost struct {
	*scene.MemoryHost
	err error
}

func (h failingHost) Append(scene.Surface) error { return h.err }

// trackingModule records the models and data it hands out.
type trackingModule struct {
	engine.Module

	mu     sync.Mutex
	models []engine.Model
	datas  []engine.Data
}

func (m *trackingModule) LoadModel(path string) (engine.Model, error) {
	model, err := m.Module.LoadModel(path)
	if err == nil {
		m.mu.Lock()
		m.models = append(m.models, model)
		m.mu.Unlock()
	}
	return model, err
}

func (m *trackingModule) NewData(model engine.Model) (engine.Data, error) {
	d, err := m.Module.NewData(model)
	if err == nil {
		m.mu.Lock()
		m.datas = append(m.datas, d)
		m.mu.Unlock()
	}
	return d, err
}

var discard = slog.New(slog.DiscardHandler)

var _ = Describe("Viewer", func() {
	var (
		epoch  time.Time
		sched  *ManualScheduler
		host   *scene.MemoryHost
		rend   *fakeRenderer
		mod    *trackingModule
		frames []Frame
		opts   Options
	)

	ms := func(n int) time.Time { return epoch.Add(time.Duration(n) * time.Millisecond) }

	BeforeEach(func() {
		epoch = time.Unix(1000, 0)
		sched = &ManualScheduler{}
		host = scene.NewMemoryHost()
		rend = &fakeRenderer{surf: "canvas"}
		mod = &trackingModule{Module: physics.NewModule()}
		frames = nil

		opts = Options{
			ModelXML:    config.DefaultModel(),
			Width:       400,
			Height:      300,
			Engine:      engine.NewCache(engine.LoaderFunc(func(context.Context) (engine.Module, error) { return mod, nil }), discard),
			NewRenderer: func(w, h int) (scene.Renderer, error) { return rend, nil },
			Host:        host,
			Scheduler:   sched,
			Clock:       func() time.Time { return epoch },
			Observers:   []FrameObserver{FrameObserverFunc(func(f Frame) { frames = append(frames, f) })},
			Logger:      discard,
		}
	})

	Describe("initialization", func() {
		It("creates one proxy per body that owns a geom", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			Expect(v.Bodies()).To(Equal(2))
			_, ok := v.Proxy(0)
			Expect(ok).To(BeTrue())
			box, ok := v.Proxy(1)
			Expect(ok).To(BeTrue())
			Expect(box.Children).To(HaveLen(1))
			Expect(box.Children[0].Geometry.Kind).To(Equal(scene.KindBox))
		})

		It("places proxies in render coordinates", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			box, _ := v.Proxy(1)
			Expect(box.Position.ApproxEqual(mgl64.Vec3{0, 1, 0})).To(BeTrue())
		})

		It("attaches the surface and schedules the first frame", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			Expect(host.Contains(rend.surf)).To(BeTrue())
			Expect(sched.Pending()).To(BeTrue())
			Expect(v.Status()).To(Equal("running"))
		})

		It("fetches the model when only a URL is given", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, config.GetPreset("shapes").XML)
			}))
			defer srv.Close()

			opts.ModelXML = ""
			opts.ModelURL = srv.URL
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()
			Expect(v.Bodies()).To(Equal(5))
		})
	})

	Describe("frame loop", func() {
		It("steps the engine on a fixed timestep", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			Expect(sched.Fire(ms(10))).To(BeTrue())
			Expect(frames).To(HaveLen(1))
			Expect(frames[0].Steps).To(Equal(5))
			Expect(frames[0].SimTime).To(BeNumerically("~", 0.01, 1e-9))
			Expect(sched.Pending()).To(BeTrue())
		})

		It("stamps ticker frames with the viewer clock", func() {
			var calls atomic.Int64
			opts.Clock = func() time.Time { return ms(int(calls.Add(1)) * 10) }
			opts.Scheduler = TickerScheduler{Interval: time.Millisecond}
			got := make(chan Frame, 16)
			opts.Observers = []FrameObserver{FrameObserverFunc(func(f Frame) {
				select {
				case got <- f:
				default:
				}
			})}

			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			var f Frame
			Eventually(got).Should(Receive(&f))
			Expect(f.Steps).To(BeNumerically(">", 0))
		})

		It("snaps the marker after a stall instead of catching up", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			sched.Fire(ms(100))
			Expect(frames[0].Steps).To(Equal(0))
			Expect(v.acc.Marker).To(Equal(100.0))

			sched.Fire(ms(104))
			Expect(frames[1].Steps).To(Equal(2))
		})

		It("updates body poses before rendering", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			var renderedY float64
			rend.onRender = func(*scene.Scene, *scene.Camera) {
				box, _ := v.Proxy(1)
				renderedY = box.Position[1]
			}
			sched.Fire(ms(10))

			Expect(rend.renders).To(Equal(1))
			Expect(renderedY).To(BeNumerically("<", 1.0))
			Expect(renderedY).To(Equal(ToRenderPos(v.data.XPos(), 1)[1]))
		})

		It("renders but does not step while paused", func() {
			opts.Paused = true
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			sched.Fire(ms(10))
			Expect(frames[0].Steps).To(Equal(0))
			Expect(rend.renders).To(Equal(1))
			Expect(v.Status()).To(Equal("paused"))

			v.SetPaused(false)
			Expect(v.Status()).To(Equal("running"))
		})

		It("applies the control policy before each step", func() {
			opts.ModelXML = config.GetPreset("humanoid").XML
			opts.Policy = control.HumanoidWave()
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			sched.Fire(ms(20))
			Expect(frames[0].Steps).To(Equal(2))
			Expect(frames[0].Ctrl).To(HaveLen(5))
			Expect(frames[0].Ctrl[0]).To(BeNumerically("~", 0.06, 1e-3))
		})

		It("resets the world on space", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			sched.Fire(ms(10))
			Expect(v.data.Time()).To(BeNumerically(">", 0))

			v.KeyDown(" ")
			Expect(v.data.Time()).To(Equal(0.0))
		})

		It("forwards the manual toggle to the policy", func() {
			sw := control.NewSwitch(control.HumanoidKeys(), control.HumanoidWave())
			opts.Policy = sw
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			defer v.Dispose()

			v.KeyDown("M")
			Expect(sw.IsManual()).To(BeTrue())
		})
	})

	Describe("Dispose", func() {
		It("releases every resource once", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())
			oc := v.controls.(*scene.OrbitControls)

			v.Dispose()
			Expect(host.Contains(rend.surf)).To(BeFalse())
			Expect(rend.disposed).To(Equal(1))
			Expect(mod.datas[0].(*physics.Data).Deleted()).To(BeTrue())
			Expect(mod.models[0].(*physics.Model).Deleted()).To(BeTrue())
			Expect(oc.Disposed()).To(BeTrue())
			Expect(sched.Pending()).To(BeFalse())
			Expect(v.Status()).To(Equal("disposed"))

			Expect(v.Dispose).NotTo(Panic())
			Expect(rend.disposed).To(Equal(1))
			Expect(sched.Fire(ms(10))).To(BeFalse())
		})

		It("tolerates a surface that was already detached", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(host.Remove(rend.surf)).To(Succeed())
			Expect(v.Dispose).NotTo(Panic())
			Expect(rend.disposed).To(Equal(1))
		})

		It("drops a frame that fires after disposal", func() {
			v, err := New(context.Background(), opts)
			Expect(err).NotTo(HaveOccurred())

			v.Dispose()
			v.frame(ms(10))
			Expect(rend.renders).To(Equal(0))
			Expect(frames).To(BeEmpty())
		})
	})

	Describe("initialization failures", func() {
		It("reports a module load failure", func() {
			opts.Engine = engine.NewCache(engine.LoaderFunc(func(context.Context) (engine.Module, error) {
				return nil, errors.New("script failed")
			}), discard)

			_, err := New(context.Background(), opts)
			Expect(StageOf(err)).To(Equal(StageModuleLoad))
			Expect(errors.Is(err, engine.ErrModuleLoad)).To(BeTrue())
			Expect(rend.disposed).To(Equal(0))
		})

		It("reports a nil module", func() {
			opts.Engine = engine.NewCache(engine.LoaderFunc(func(context.Context) (engine.Module, error) {
				return nil, nil
			}), discard)

			_, err := New(context.Background(), opts)
			Expect(StageOf(err)).To(Equal(StageNilModule))
		})

		It("reports a model parse failure", func() {
			opts.ModelXML = "<mujoco><worldbody>"

			_, err := New(context.Background(), opts)
			Expect(StageOf(err)).To(Equal(StageModelParse))
			Expect(errors.Is(err, engine.ErrModelParse)).To(BeTrue())
		})

		It("reports a failed model fetch", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusInternalServerError)
			}))
			defer srv.Close()

			opts.ModelXML = ""
			opts.ModelURL = srv.URL
			_, err := New(context.Background(), opts)
			Expect(StageOf(err)).To(Equal(StageModelFetch))
		})

		It("releases model and data when the renderer fails", func() {
			opts.NewRenderer = func(int, int) (scene.Renderer, error) { return nil, errors.New("no gl") }

			_, err := New(context.Background(), opts)
			Expect(StageOf(err)).To(Equal(StageRenderer))
			Expect(mod.datas[0].(*physics.Data).Deleted()).To(BeTrue())
			Expect(mod.models[0].(*physics.Model).Deleted()).To(BeTrue())
		})

		It("releases the renderer when the surface cannot be attached", func() {
			opts.Host = failingHost{MemoryHost: host, err: errors.New("detached document")}

			_, err := New(context.Background(), opts)
			Expect(StageOf(err)).To(Equal(StageAttach))
			Expect(rend.disposed).To(Equal(1))
			Expect(mod.models[0].(*physics.Model).Deleted()).To(BeTrue())
			Expect(host.Len()).To(Equal(0))
		})
	})

	It("loads the engine once for concurrent viewers", func() {
		var loads atomic.Int32
		cache := engine.NewCache(engine.LoaderFunc(func(context.Context) (engine.Module, error) {
			loads.Add(1)
			time.Sleep(20 * time.Millisecond)
			return physics.NewModule(), nil
		}), discard)

		var surfaces atomic.Int32
		opts.Engine = cache
		opts.Observers = nil
		opts.NewRenderer = func(int, int) (scene.Renderer, error) {
			return &fakeRenderer{surf: fakeSurface(fmt.Sprintf("canvas-%d", surfaces.Add(1)))}, nil
		}

		const n = 8
		var wg sync.WaitGroup
		viewers := make([]*Viewer, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				defer GinkgoRecover()
				o := opts
				o.Scheduler = &ManualScheduler{}
				viewers[idx], errs[idx] = New(context.Background(), o)
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			Expect(errs[i]).NotTo(HaveOccurred())
			viewers[i].Dispose()
		}
		Expect(loads.Load()).To(Equal(int32(1)))
		Expect(cache.Loads()).To(Equal(1))
		Expect(host.Len()).To(Equal(0))
	})
})

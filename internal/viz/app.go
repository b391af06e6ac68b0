package viz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/control"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/scene"
	"github.com/san-kum/axis/internal/viewer"
)

const (
	defaultCols = 72
	defaultRows = 20
	orbitStep   = 0.1
	zoomStep    = 1.1
)

type Options struct {
	Title      string
	ModelXML   string
	Engine     *engine.Cache
	Policy     control.Policy
	PolicyName string
	FPS        int
	Paused     bool
	// KeyHold is how long a key counts as held; terminals send no key-up.
	KeyHold   time.Duration
	Observers []viewer.FrameObserver
	Logger    *slog.Logger

	Input  io.Reader
	Output io.Writer
}

// App is the Bubble Tea model hosting a viewer. Frames are fired from the
// program's tick so rendering stays on the UI goroutine.
type App struct {
	opts     Options
	viewer   *viewer.Viewer
	renderer *Renderer
	sched    *viewer.ManualScheduler
	interval time.Duration

	last   viewer.Frame
	width  int
	height int
}

type tickMsg time.Time

func NewApp(ctx context.Context, opts Options) (*App, error) {
	if opts.FPS <= 0 {
		opts.FPS = config.DefaultFPS
	}
	if opts.KeyHold <= 0 {
		opts.KeyHold = config.DefaultKeyHold
	}
	a := &App{
		opts:     opts,
		renderer: NewRenderer(defaultCols, defaultRows),
		sched:    &viewer.ManualScheduler{},
		interval: time.Second / time.Duration(opts.FPS),
		width:    defaultCols + 2,
		height:   defaultRows + 6,
	}

	observers := append([]viewer.FrameObserver{viewer.FrameObserverFunc(a.observe)}, opts.Observers...)
	v, err := viewer.New(ctx, viewer.Options{
		ModelXML: opts.ModelXML,
		Width:    defaultCols * 2,
		Height:   defaultRows * 4,
		Paused:   opts.Paused,
		Engine:   opts.Engine,
		NewRenderer: func(w, h int) (scene.Renderer, error) {
			return a.renderer, nil
		},
		Host:      scene.NewMemoryHost(),
		Scheduler: a.sched,
		Policy:    opts.Policy,
		KeyHold:   opts.KeyHold,
		Observers: observers,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.viewer = v
	return a, nil
}

func (a *App) observe(f viewer.Frame) { a.last = f }

func (a *App) Viewer() *viewer.Viewer { return a.viewer }

func (a *App) Close() { a.viewer.Dispose() }

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) Init() tea.Cmd { return a.tick() }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.renderer.Resize(max(10, msg.Width-2), max(4, msg.Height-6))
		a.resizeCamera()
		return a, nil
	case tickMsg:
		a.sched.Fire(time.Time(msg))
		return a, a.tick()
	}
	return a, nil
}

// resizeCamera matches the projection to the canvas; braille dots are
// about as wide as they are tall.
func (a *App) resizeCamera() {
	if cam := a.viewer.Camera(); cam != nil {
		w, h := a.renderer.canvasDots()
		cam.Aspect = float64(w) / float64(h)
	}
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "ctrl+c", "esc":
		return tea.Quit
	case " ":
		a.viewer.KeyDown("space")
	case "p":
		a.viewer.TogglePause()
	case "left":
		a.viewer.Orbit(orbitStep, 0, 0)
	case "right":
		a.viewer.Orbit(-orbitStep, 0, 0)
	case "up":
		a.viewer.Orbit(0, orbitStep, 0)
	case "down":
		a.viewer.Orbit(0, -orbitStep, 0)
	case "+", "=":
		a.viewer.Orbit(0, 0, 1/zoomStep)
	case "-", "_":
		a.viewer.Orbit(0, 0, zoomStep)
	default:
		if len(key) == 1 {
			a.viewer.KeyDown(key)
		}
	}
	return nil
}

func (a *App) View() string {
	var b strings.Builder

	title := a.opts.Title
	if title == "" {
		title = "axis"
	}
	b.WriteString(Title.Render(title) + "  " + Subtle.Render(a.opts.PolicyName) + "\n")
	b.WriteString(Panel.Render(a.renderer.Frame()) + "\n")

	status := a.viewer.Status()
	switch {
	case status == "paused":
		status = StatusPaused.Render("PAUSED")
	case a.manual():
		status = StatusManual.Render("MANUAL")
	default:
		status = StatusRunning.Render("RUNNING")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		status, "  ",
		Metric("t", fmt.Sprintf("%.2fs", a.last.SimTime)), "  ",
		Metric("frame", fmt.Sprintf("%d", a.last.Seq)), "  ",
		ControlBar(a.last.Ctrl, 0.2, 8),
	) + "\n")
	b.WriteString(KeyHint.Render("space reset · p pause · m manual · q/e/a/d/w/s control · arrows orbit · +/- zoom · ctrl+c quit"))
	return b.String()
}

func (a *App) manual() bool {
	sw, ok := a.opts.Policy.(*control.Switch)
	return ok && sw.IsManual()
}

// Run shows a viewer in the terminal until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	app, err := NewApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return RunApp(ctx, app)
}

// RunApp runs an app built by NewApp. The caller still owns Close.
func RunApp(ctx context.Context, app *App) error {
	popts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if app.opts.Input != nil {
		popts = append(popts, tea.WithInput(app.opts.Input))
	}
	if app.opts.Output != nil {
		popts = append(popts, tea.WithOutput(app.opts.Output))
	}
	_, err := tea.NewProgram(app, popts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

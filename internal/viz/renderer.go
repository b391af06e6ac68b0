package viz

import (
	"sync"

	"github.com/google/uuid"
	"github.com/san-kum/axis/internal/scene"
)

type surface string

func (s surface) ID() string { return string(s) }

// Renderer draws scene wireframes into a braille canvas. The last rendered
// frame is kept for the terminal view to display.
type Renderer struct {
	surface surface

	mu       sync.Mutex
	canvas   *Canvas
	frame    string
	frames   uint64
	disposed bool
}

func NewRenderer(cols, rows int) *Renderer {
	return &Renderer{
		surface: surface("tty-" + uuid.NewString()),
		canvas:  NewCanvas(cols, rows),
	}
}

func (r *Renderer) Surface() scene.Surface { return r.surface }

// SetSize takes a pixel size and keeps the canvas cell grid; the terminal
// decides the cell grid through Resize.
func (r *Renderer) SetSize(w, h int) {}

// Resize changes the canvas to cols x rows cells.
func (r *Renderer) Resize(cols, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cols != r.canvas.Cols || rows != r.canvas.Rows {
		r.canvas.Resize(cols, rows)
	}
}

func (r *Renderer) Render(s *scene.Scene, c *scene.Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.canvas.Clear()
	DrawScene(r.canvas, s, c)
	r.frame = r.canvas.String()
	r.frames++
}

// Frame returns the last rendered frame.
func (r *Renderer) Frame() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *Renderer) Dispose() {
	r.mu.Lock()
	r.disposed = true
	r.mu.Unlock()
}

func (r *Renderer) canvasDots() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.DotSize()
}

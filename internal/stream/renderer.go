package stream

import (
	"sync"

	"github.com/google/uuid"
	"github.com/san-kum/axis/internal/scene"
)

type surface string

func (s surface) ID() string { return string(s) }

// Renderer presents a scene to a websocket client. Nothing is sent until
// its surface is attached to the Conn.
type Renderer struct {
	conn    *Conn
	surface surface

	mu       sync.Mutex
	w, h     int
	seq      uint64
	sent     bool
	disposed bool
}

func NewRenderer(c *Conn) *Renderer {
	return &Renderer{conn: c, surface: surface("ws-" + uuid.NewString())}
}

func (r *Renderer) Surface() scene.Surface { return r.surface }

func (r *Renderer) SetSize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w != r.w || h != r.h {
		r.w, r.h = w, h
		r.sent = false
	}
}

func (r *Renderer) Render(s *scene.Scene, c *scene.Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed || !r.conn.Contains(r.surface) {
		return
	}
	if !r.sent {
		if err := r.conn.Send(sceneMsg(s, r.w, r.h)); err != nil {
			return
		}
		r.sent = true
	}
	r.seq++
	r.conn.Offer(frameMsg(r.seq, s, c))
}

// Frames returns how many frames Render has produced.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

func (r *Renderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.disposed = true
	r.conn.Offer(StatusMsg{Type: TypeDispose, Status: "disposed"})
}

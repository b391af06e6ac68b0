package scene

import (
	"errors"
	"sync"
)

var ErrNotAttached = errors.New("scene: surface is not attached")

// Surface is the drawable a renderer presents into.
type Surface interface {
	ID() string
}

type Renderer interface {
	Surface() Surface
	SetSize(w, h int)
	Render(s *Scene, c *Camera)
	Dispose()
}

// Host is the document a renderer's surface is attached to.
type Host interface {
	Append(s Surface) error
	Contains(s Surface) bool
	Remove(s Surface) error
}

// MemoryHost is a Host that only tracks attachment, for renderers that
// draw without a document.
type MemoryHost struct {
	mu       sync.Mutex
	surfaces map[string]Surface
}

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{surfaces: make(map[string]Surface)}
}

func (h *MemoryHost) Append(s Surface) error {
	h.mu.Lock()
	h.surfaces[s.ID()] = s
	h.mu.Unlock()
	return nil
}

func (h *MemoryHost) Contains(s Surface) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.surfaces[s.ID()]
	return ok
}

func (h *MemoryHost) Remove(s Surface) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.surfaces[s.ID()]; !ok {
		return ErrNotAttached
	}
	delete(h.surfaces, s.ID())
	return nil
}

func (h *MemoryHost) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.surfaces)
}

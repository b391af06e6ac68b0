package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/axis/internal/scene"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxInbound = 4 << 10

	DefaultQueue = 8
)

var ErrClosed = errors.New("stream: connection closed")

// Handler receives client input. *viewer.Viewer implements it.
type Handler interface {
	KeyDown(key string)
	KeyUp(key string)
	Orbit(dTheta, dPhi, zoom float64)
	Reset()
	SetPaused(paused bool)
	TogglePause()
	Status() string
}

// Conn is a scene.Host over a websocket. Outgoing messages go through a
// bounded queue drained by a single writer; frames are dropped when the
// client falls behind.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	stopped   chan struct{}
	broken    atomic.Bool
	closeOnce sync.Once

	mu       sync.Mutex
	attached map[string]scene.Surface

	dropped atomic.Uint64
}

func NewConn(ws *websocket.Conn, queue int, logger *slog.Logger) *Conn {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		ws:       ws,
		logger:   logger,
		send:     make(chan []byte, queue),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		attached: make(map[string]scene.Surface),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) Append(s scene.Surface) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	c.attached[s.ID()] = s
	c.mu.Unlock()
	return nil
}

func (c *Conn) Contains(s scene.Surface) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.attached[s.ID()]
	return ok
}

func (c *Conn) Remove(s scene.Surface) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attached[s.ID()]; !ok {
		return scene.ErrNotAttached
	}
	delete(c.attached, s.ID())
	return nil
}

// Dropped reports how many frames were discarded for a slow client.
func (c *Conn) Dropped() uint64 { return c.dropped.Load() }

// Send queues v, waiting for room. It fails once the connection closes.
func (c *Conn) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Offer queues v only if there is room and reports whether it did.
func (c *Conn) Offer(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("encode message", "error", err)
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// writeLoop is the only writer until it stops; Close takes over after.
func (c *Conn) writeLoop() {
	defer close(c.stopped)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case b := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.logger.Debug("websocket write", "error", err)
				c.broken.Store(true)
				go c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.broken.Store(true)
				go c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Serve reads client messages and forwards them to h until the client
// disconnects or ctx is canceled.
func (c *Conn) Serve(ctx context.Context, h Handler) error {
	c.ws.SetReadLimit(maxInbound)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	for {
		var in Inbound
		if err := c.ws.ReadJSON(&in); err != nil {
			c.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		Dispatch(in, h)
		if in.Type == TypeStatus || in.Type == TypePause || in.Type == TypeReset {
			c.Offer(StatusMsg{Type: TypeStatus, Status: h.Status()})
		}
	}
}

// Dispatch applies one inbound message to h. Unknown types are ignored.
func Dispatch(in Inbound, h Handler) {
	switch in.Type {
	case TypeKey:
		if in.Key != "" {
			h.KeyDown(in.Key)
		}
	case TypeKeyUp:
		if in.Key != "" {
			h.KeyUp(in.Key)
		}
	case TypeOrbit:
		h.Orbit(in.DTheta, in.DPhi, in.Zoom)
	case TypeReset:
		h.Reset()
	case TypePause:
		if in.Paused != nil {
			h.SetPaused(*in.Paused)
		} else {
			h.TogglePause()
		}
	}
}

// Close writes the messages still queued, then the close frame, all within
// writeWait, and closes the socket. Messages queued after Close are lost.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.stopped
		deadline := time.Now().Add(writeWait)
		if !c.broken.Load() {
			c.flush(deadline)
		}
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.ws.Close()
	})
}

func (c *Conn) flush(deadline time.Time) {
	c.ws.SetWriteDeadline(deadline)
	for {
		select {
		case b := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.logger.Debug("websocket flush", "error", err)
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) Done() <-chan struct{} { return c.done }

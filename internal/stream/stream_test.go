package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/san-kum/axis/internal/scene"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []string
	paused bool
}

func (h *recordingHandler) add(e string) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHandler) KeyDown(k string) { h.add("down:" + k) }
func (h *recordingHandler) KeyUp(k string) { h.add("up:" + k) }
func (h *recordingHandler) Orbit(dTheta, dPhi, zoom float64) { h.add("orbit") }
func (h *recordingHandler) Reset() { h.add("reset") }
func (h *recordingHandler) SetPaused(p bool) { h.paused = p; h.add("set-pause") }
func (h *recordingHandler) TogglePause() { h.paused = !h.paused; h.add("toggle") }
func (h *recordingHandler) Status() string {
	if h.paused {
		return "paused"
	}
	return "running"
}

func (h *recordingHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func TestDispatch(t *testing.T) {
	h := &recordingHandler{}
	yes := true
	for _, in := range []Inbound{
		{Type: TypeKey, Key: "q"},
		{Type: TypeKey},
		{Type: TypeKeyUp, Key: "q"},
		{Type: TypeOrbit, DTheta: 0.1},
		{Type: TypeReset},
		{Type: TypePause, Paused: &yes},
		{Type: TypePause},
		{Type: "bogus"},
	} {
		Dispatch(in, h)
	}

	want := "down:q up:q orbit reset set-pause toggle"
	if got := strings.Join(h.Events(), " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if h.paused {
		t.Error("expected toggle to unpause")
	}
}

func testScene() (*scene.Scene, *scene.Camera) {
	s := scene.New()
	body := scene.NewGroup("1")
	body.Position = mgl64.Vec3{1, 2, 3}
	box := scene.NewMesh(scene.BoxGeometry(1, 1, 1), scene.NewMaterial(1, 0, 0, 1))
	body.Add(box)
	s.Add(body)
	return s, scene.NewPerspectiveCamera(45, 4.0/3, 0.001, 100)
}

func serve(t *testing.T, fn func(c *Conn)) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		fn(NewConn(ws, 4, nil))
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	return client
}

func TestRendererSendsSceneThenFrames(t *testing.T) {
	s, cam := testScene()
	client := serve(t, func(c *Conn) {
		r := NewRenderer(c)
		r.SetSize(400, 300)
		r.Render(s, cam) // not attached yet
		c.Append(r.Surface())
		r.Render(s, cam)
		r.Render(s, cam)
	})

	var sm SceneMsg
	if err := client.ReadJSON(&sm); err != nil {
		t.Fatal(err)
	}
	if sm.Type != TypeScene || sm.Width != 400 || len(sm.Nodes) != 2 {
		t.Fatalf("unexpected scene message %+v", sm)
	}
	if sm.Nodes[1].Geometry == nil || sm.Nodes[1].Parent != sm.Nodes[0].ID {
		t.Errorf("expected mesh under body group, got %+v", sm.Nodes[1])
	}

	for seq := uint64(1); seq <= 2; seq++ {
		var fm FrameMsg
		if err := client.ReadJSON(&fm); err != nil {
			t.Fatal(err)
		}
		if fm.Type != TypeFrame || fm.Seq != seq {
			t.Fatalf("expected frame %d, got %+v", seq, fm)
		}
		if len(fm.Poses) != 1 || fm.Poses[0].Position != [3]float64{1, 2, 3} {
			t.Errorf("unexpected poses %+v", fm.Poses)
		}
		if fm.Camera.FOV != 45 {
			t.Errorf("expected camera fov 45, got %f", fm.Camera.FOV)
		}
	}
}

func TestServeForwardsInput(t *testing.T) {
	h := &recordingHandler{}
	done := make(chan error, 1)
	client := serve(t, func(c *Conn) {
		done <- c.Serve(context.Background(), h)
	})

	client.WriteJSON(Inbound{Type: TypeKey, Key: "w"})
	client.WriteJSON(Inbound{Type: TypePause})

	var st StatusMsg
	if err := client.ReadJSON(&st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "paused" {
		t.Errorf("expected paused status, got %+v", st)
	}

	client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean close, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
	if got := h.Events(); len(got) != 2 || got[0] != "down:w" {
		t.Errorf("unexpected events %v", got)
	}
}

func TestConnHost(t *testing.T) {
	attached := make(chan bool, 3)
	serve(t, func(c *Conn) {
		r := NewRenderer(c)
		c.Append(r.Surface())
		attached <- c.Contains(r.Surface())
		c.Remove(r.Surface())
		attached <- c.Contains(r.Surface())
		c.Close()
		attached <- c.Append(r.Surface()) == ErrClosed
	})
	for i, want := range []bool{true, false, true} {
		select {
		case got := <-attached:
			if got != want {
				t.Errorf("step %d: expected %v", i, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout")
		}
	}
}

func TestCloseFlushesQueue(t *testing.T) {
	for i := 0; i < 20; i++ {
		client := serve(t, func(c *Conn) {
			c.Send(StatusMsg{Type: TypeStatus, Status: "loading"})
			c.Send(StatusMsg{Type: TypeStatus, Status: "error", Error: "boom"})
			c.Close()
		})

		var got []string
		for {
			var st StatusMsg
			if err := client.ReadJSON(&st); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					t.Fatalf("run %d: expected normal close, got %v", i, err)
				}
				break
			}
			got = append(got, st.Status)
		}
		if len(got) != 2 || got[1] != "error" {
			t.Fatalf("run %d: expected loading then error, got %v", i, got)
		}
	}
}

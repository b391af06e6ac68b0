package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/axis/internal/backend"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/physics"
	"github.com/san-kum/axis/internal/stream"
)

type fakeTasks struct {
	list []backend.Task
	err  error
}

func (f *fakeTasks) ListTasks(ctx context.Context) ([]backend.Task, error) {
	return f.list, f.err
}

func (f *fakeTasks) GetTask(ctx context.Context, id int) (*backend.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.list {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &backend.StatusError{Code: http.StatusNotFound, Detail: "Task not found"}
}

func (f *fakeTasks) AdminOverview(ctx context.Context) (*backend.Overview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Overview{Users: []backend.User{{ID: "u1", Email: "a@b.c"}}, Tasks: f.list}, nil
}

type fakeExchanger struct{ err error }

func (f fakeExchanger) ExchangeSession(ctx context.Context, token string) (*backend.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Session{UserID: "u1", SessionID: "s1", Cookie: "s1"}, nil
}

var sampleTasks = []backend.Task{
	{ID: 7, Name: "推方块", Description: "把方块推到绿色区域", Difficulty: "中等", ExpectedDuration: 3, SuccessRate: 72.5},
	{ID: 2, Name: "抓取", Difficulty: "专家", ExpectedDuration: 5, SuccessRate: 10},
	{ID: 3, Name: "堆叠", Difficulty: "新手", ExpectedDuration: 2, SuccessRate: 99.4},
	{ID: 4, Name: "整理", Difficulty: "unknown", ExpectedDuration: 8, SuccessRate: 50},
}

func newTestServer(t *testing.T, src TaskSource, ex fakeExchanger) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, src, ex, physics.Loader{})
}

func newTestServerWith(t *testing.T, src TaskSource, ex fakeExchanger, loader engine.Loader) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Viewer.Record = false
	s, err := NewServer(Options{
		Tasks:     src,
		Exchanger: ex,
		Engine:    engine.NewCache(loader, nil),
		Config:    cfg,
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestTaskDetail(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{list: sampleTasks}, fakeExchanger{})

	code, body := get(t, srv, "/task-detail?id=7")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"推方块", "★★★☆☆", "73%", "3 分钟", "开始任务", "/task-running?id=7"} {
		if !strings.Contains(body, want) {
			t.Errorf("detail page missing %q", want)
		}
	}
}

func TestTaskPagesNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{list: sampleTasks}, fakeExchanger{})

	for _, path := range []string{
		"/task-detail?id=99",
		"/task-detail?id=abc",
		"/task-detail",
		"/task-running?id=0",
		"/task-done?id=-1",
		"/no-such-page",
	} {
		code, body := get(t, srv, path)
		if code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, code)
		}
		if !strings.Contains(body, "未找到该任务") {
			t.Errorf("%s: expected not-found page", path)
		}
	}
}

func TestTaskPagesBackendDown(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{err: errors.New("connection refused")}, fakeExchanger{})

	code, body := get(t, srv, "/tasks")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"暂无任务数据。", "暂无可用任务，请稍后再试。"} {
		if !strings.Contains(body, want) {
			t.Errorf("tasks page missing %q", want)
		}
	}

	if code, _ := get(t, srv, "/task-done?id=7"); code != http.StatusNotFound {
		t.Errorf("expected 404 when backend is down, got %d", code)
	}

	code, body = get(t, srv, "/admin/database")
	if code != http.StatusOK || !strings.Contains(body, "无法加载数据库信息") || !strings.Contains(body, "暂无用户数据。") {
		t.Errorf("expected admin error state, got %d", code)
	}
}

func TestTaskList(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{list: sampleTasks}, fakeExchanger{})

	_, body := get(t, srv, "/tasks")
	if !strings.Contains(body, `href="/task-detail?id=7">开始第一个任务`) {
		t.Error("expected first highlighted task as primary action")
	}
	if strings.Count(body, "card highlight") != 3 {
		t.Errorf("expected 3 highlighted tasks, got %d", strings.Count(body, "card highlight"))
	}
	for _, want := range []string{"完成率: 99%", "预计: 8 分钟", "★☆☆☆☆", "★★★★★", "★★☆☆☆"} {
		if !strings.Contains(body, want) {
			t.Errorf("tasks page missing %q", want)
		}
	}
}

func TestRunningAndDone(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{list: sampleTasks}, fakeExchanger{})

	_, body := get(t, srv, "/task-running?id=2")
	for _, want := range []string{"任务运行", "重置任务", "/ws/viewer?task=2", "加载模拟中..."} {
		if !strings.Contains(body, want) {
			t.Errorf("running page missing %q", want)
		}
	}

	_, body = get(t, srv, "/task-done?id=2")
	for _, want := range []string{"已完成", "用时：约 5 分钟", "难度：专家", "平均完成率：10%", "再次挑战"} {
		if !strings.Contains(body, want) {
			t.Errorf("done page missing %q", want)
		}
	}
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{}, fakeExchanger{})
	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/tasks" {
		t.Errorf("expected redirect to /tasks, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	code, body := get(t, srv, "/healthz")
	if code != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("unexpected health response %d %s", code, body)
	}

	if code, body := get(t, srv, "/static/viewer.js"); code != http.StatusOK || !strings.Contains(body, "WebSocket") {
		t.Errorf("expected viewer script, got %d", code)
	}
}

func TestSessionExchange(t *testing.T) {
	const token = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1MSIsImVtYWlsIjoiYUBiLmMifQ.c2ln"

	srv := newTestServer(t, &fakeTasks{}, fakeExchanger{})
	resp, err := srv.Client().Post(srv.URL+"/auth/session", "application/json", strings.NewReader(`{"token":"`+token+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"display_name":"a@b.c"`) {
		t.Errorf("unexpected response %d %s", resp.StatusCode, body)
	}
	if len(resp.Cookies()) != 1 || resp.Cookies()[0].Name != backend.SessionCookie {
		t.Errorf("expected session cookie, got %v", resp.Cookies())
	}

	rejected := newTestServer(t, &fakeTasks{}, fakeExchanger{err: &backend.StatusError{Code: http.StatusUnauthorized, Detail: "invalid token"}})
	resp, err = rejected.Client().Post(rejected.URL+"/auth/session", "application/json", strings.NewReader(`{"token":"`+token+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(string(body), `"detail":"invalid token"`) {
		t.Errorf("expected backend detail, got %d %s", resp.StatusCode, body)
	}
}

func TestViewerSocket(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{}, fakeExchanger{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/viewer?model=humanoid"

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var sawScene bool
	for {
		var msg map[string]any
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		switch msg["type"] {
		case stream.TypeScene:
			sawScene = true
		case stream.TypeFrame:
			if !sawScene {
				t.Fatal("frame arrived before scene")
			}
			ws.WriteJSON(stream.Inbound{Type: stream.TypeKey, Key: "m"})
			return
		case stream.TypeStatus:
			if msg["status"] == "error" {
				t.Fatalf("viewer failed: %v", msg["error"])
			}
		}
	}
}

func TestViewerSocketUnknownModel(t *testing.T) {
	srv := newTestServer(t, &fakeTasks{}, fakeExchanger{})
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/viewer?model=/etc/passwd", nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", resp)
	}
}

func TestViewerSocketInitError(t *testing.T) {
	failing := engine.LoaderFunc(func(ctx context.Context) (engine.Module, error) {
		return nil, errors.New("wasm unavailable")
	})
	srv := newTestServerWith(t, &fakeTasks{}, fakeExchanger{}, failing)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/viewer?model=box"

	for i := 0; i < 20; i++ {
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatal(err)
		}
		ws.SetReadDeadline(time.Now().Add(5 * time.Second))

		var last stream.StatusMsg
		for {
			var msg stream.StatusMsg
			if err := ws.ReadJSON(&msg); err != nil {
				break
			}
			last = msg
		}
		ws.Close()

		if last.Status != "error" || !strings.Contains(last.Error, "wasm unavailable") {
			t.Fatalf("run %d: expected error status, got %+v", i, last)
		}
	}
}

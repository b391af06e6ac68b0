package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/san-kum/axis/internal/backend"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/tasks"
)

const adminRows = 20

type taskView struct {
	ID          int
	Name        string
	Description string
	Difficulty  string
	Stars       string
	Rate        int
	Duration    int
	Thumbnail   string
}

func newTaskView(t backend.Task) taskView {
	return taskView{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Difficulty:  t.Difficulty,
		Stars:       tasks.StarString(tasks.Stars(t.Difficulty)),
		Rate:        tasks.RoundRate(t.SuccessRate),
		Duration:    t.ExpectedDuration,
		Thumbnail:   t.Thumbnail,
	}
}

func taskViews(list []backend.Task) []taskView {
	out := make([]taskView, 0, len(list))
	for _, t := range list {
		out = append(out, newTaskView(t))
	}
	return out
}

type page struct {
	Title   string
	Section string

	Tasks     []taskView
	Highlight []taskView
	PrimaryID int

	Task   taskView
	Socket string

	Users  []backend.User
	Failed bool

	Presets []string
	Model   string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error("render page", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "notfound", page{Title: "未找到", Section: "404"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Tasks.ListTasks(r.Context())
	if err != nil {
		s.logger.Warn("list tasks", "error", err)
		list = nil
	}
	views := taskViews(list)
	top := taskViews(tasks.Highlight(list, tasks.HighlightSize))
	s.render(w, http.StatusOK, "tasks", page{
		Title:     "任务大厅",
		Section:   "任务大厅",
		Tasks:     views,
		Highlight: top,
		PrimaryID: tasks.PrimaryID(tasks.Highlight(list, tasks.HighlightSize)),
	})
}

// loadTask resolves the id query parameter. Any failure is reported as a
// missing task.
func (s *Server) loadTask(r *http.Request) (taskView, bool) {
	id, ok := tasks.ParseID(r.URL.Query().Get("id"))
	if !ok {
		return taskView{}, false
	}
	t, err := s.opts.Tasks.GetTask(r.Context(), id)
	if err != nil {
		s.logger.Warn("get task", "id", id, "error", err)
		return taskView{}, false
	}
	return newTaskView(*t), true
}

func (s *Server) taskPage(name, section string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := s.loadTask(r)
		if !ok {
			s.notFound(w, r)
			return
		}
		s.render(w, http.StatusOK, name, page{Title: t.Name, Section: section, Task: t})
	}
}

func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTask(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	q := url.Values{}
	q.Set("task", strconv.Itoa(t.ID))
	if m := r.URL.Query().Get("model"); m != "" {
		q.Set("model", m)
	}
	s.render(w, http.StatusOK, "running", page{
		Title:   t.Name,
		Section: "任务运行",
		Task:    t,
		Socket:  "/ws/viewer?" + q.Encode(),
	})
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	p := page{Title: "数据总览", Section: "数据总览"}
	o, err := s.opts.Tasks.AdminOverview(r.Context())
	if err != nil {
		s.logger.Warn("admin overview", "error", err)
		p.Failed = true
	} else {
		p.Users = o.Users[:min(len(o.Users), adminRows)]
		p.Tasks = taskViews(o.Tasks[:min(len(o.Tasks), adminRows)])
	}
	s.render(w, http.StatusOK, "admin", p)
}

func (s *Server) handleMujoco(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	if config.GetPreset(model) == nil {
		model = s.defaultPreset()
	}
	q := url.Values{}
	q.Set("model", model)
	if pol := r.URL.Query().Get("policy"); pol != "" {
		q.Set("policy", pol)
	}
	s.render(w, http.StatusOK, "mujoco", page{
		Title:   "模拟查看器",
		Section: "模拟",
		Presets: config.ListPresets(),
		Model:   model,
		Socket:  "/ws/viewer?" + q.Encode(),
	})
}

func (s *Server) defaultPreset() string {
	if config.GetPreset(s.cfg.Viewer.Model) != nil {
		return s.cfg.Viewer.Model
	}
	return "box"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

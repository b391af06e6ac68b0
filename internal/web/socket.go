package web

import (
	"net/http"
	"strconv"

	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/control"
	"github.com/san-kum/axis/internal/scene"
	"github.com/san-kum/axis/internal/storage"
	"github.com/san-kum/axis/internal/stream"
	"github.com/san-kum/axis/internal/tasks"
	"github.com/san-kum/axis/internal/viewer"
)

// handleViewerSocket runs one viewer per websocket client. Only built-in
// presets can be loaded from the browser.
func (s *Server) handleViewerSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("model")
	if name == "" {
		name = s.defaultPreset()
	}
	preset := config.GetPreset(name)
	if preset == nil {
		http.Error(w, "unknown model", http.StatusBadRequest)
		return
	}
	policyName := q.Get("policy")
	if policyName == "" {
		policyName = preset.Policy
	}
	policy, err := control.New(policyName, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	width, height := queryInt(q.Get("w"), s.cfg.Viewer.Width), queryInt(q.Get("h"), s.cfg.Viewer.Height)
	taskID, _ := tasks.ParseID(q.Get("task"))

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	logger := s.logger.With("model", preset.Name, "policy", policyName, "remote", r.RemoteAddr)
	conn := stream.NewConn(ws, stream.DefaultQueue, logger)
	defer conn.Close()
	conn.Offer(stream.StatusMsg{Type: stream.TypeStatus, Status: "loading"})

	var rec *storage.Recorder
	var observers []viewer.FrameObserver
	if s.opts.Store != nil && s.cfg.Viewer.Record {
		rec = s.opts.Store.NewRecorder(storage.Metadata{TaskID: taskID, Model: preset.Name, Policy: policyName}, logger)
		observers = append(observers, rec)
	}

	v, err := viewer.New(r.Context(), viewer.Options{
		ModelXML: preset.XML,
		Width:    width,
		Height:   height,
		Paused:   s.cfg.Viewer.Paused,
		Engine:   s.opts.Engine,
		NewRenderer: func(w, h int) (scene.Renderer, error) {
			return stream.NewRenderer(conn), nil
		},
		Host:      conn,
		Scheduler: viewer.NewTickerScheduler(s.cfg.Viewer.FPS),
		Policy:    policy,
		KeyHold:   s.cfg.Viewer.KeyHold,
		Observers: observers,
		Logger:    logger,
	})
	if err != nil {
		conn.Send(stream.StatusMsg{Type: stream.TypeStatus, Status: "error", Error: err.Error()})
		return
	}
	conn.Offer(stream.StatusMsg{Type: stream.TypeStatus, Status: v.Status()})

	if err := conn.Serve(r.Context(), v); err != nil {
		logger.Debug("viewer socket closed", "error", err)
	}
	v.Dispose()

	if rec != nil {
		rec.SetTimestep(v.Model().Timestep())
		if _, err := rec.Close(); err != nil {
			logger.Error("save episode", "error", err)
		}
	}
}

func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 4096 {
		return def
	}
	return n
}

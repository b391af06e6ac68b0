package web

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/san-kum/axis/internal/auth"
	"github.com/san-kum/axis/internal/backend"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// TaskSource is the part of the backend the pages read from.
type TaskSource interface {
	ListTasks(ctx context.Context) ([]backend.Task, error)
	GetTask(ctx context.Context, id int) (*backend.Task, error)
	AdminOverview(ctx context.Context) (*backend.Overview, error)
}

type Options struct {
	Tasks     TaskSource
	Exchanger auth.Exchanger
	Engine    *engine.Cache
	// Store receives recorded episodes; nil disables recording.
	Store  *storage.Store
	Config *config.Config
	Logger *slog.Logger
}

type Server struct {
	opts     Options
	cfg      *config.Config
	logger   *slog.Logger
	pages    map[string]*template.Template
	upgrader websocket.Upgrader
}

var pageNames = []string{"tasks", "detail", "running", "done", "admin", "mujoco", "notfound"}

func NewServer(opts Options) (*Server, error) {
	s := &Server{
		opts:   opts,
		cfg:    opts.Config,
		logger: opts.Logger,
		pages:  make(map[string]*template.Template, len(pageNames)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 << 10,
		},
	}
	if s.cfg == nil {
		s.cfg = config.DefaultConfig()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		s.pages[name] = t
	}
	return s, nil
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tasks", http.StatusFound)
	}).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	r.HandleFunc("/tasks", s.handleTasks).Methods("GET")
	r.HandleFunc("/task-detail", s.taskPage("detail", "任务详情")).Methods("GET")
	r.HandleFunc("/task-running", s.handleRunning).Methods("GET")
	r.HandleFunc("/task-done", s.taskPage("done", "任务完成")).Methods("GET")
	r.HandleFunc("/admin/database", s.handleAdmin).Methods("GET")
	r.HandleFunc("/mujoco", s.handleMujoco).Methods("GET")

	r.HandleFunc("/ws/viewer", s.handleViewerSocket).Methods("GET")
	r.HandleFunc("/auth/session", s.handleSession).Methods("POST")

	static, _ := fs.Sub(staticFS, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.NotFoundHandler = http.HandlerFunc(s.notFound)
	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	loads := 0
	if s.opts.Engine != nil {
		loads = s.opts.Engine.Loads()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "engine_loads": loads})
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

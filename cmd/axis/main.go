package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/axis/internal/auth"
	"github.com/san-kum/axis/internal/backend"
	"github.com/san-kum/axis/internal/config"
	"github.com/san-kum/axis/internal/control"
	"github.com/san-kum/axis/internal/engine"
	"github.com/san-kum/axis/internal/logging"
	"github.com/san-kum/axis/internal/physics"
	"github.com/san-kum/axis/internal/storage"
	"github.com/san-kum/axis/internal/tasks"
	"github.com/san-kum/axis/internal/viewer"
	"github.com/san-kum/axis/internal/viz"
	"github.com/san-kum/axis/internal/web"
	"github.com/spf13/cobra"
)

var (
	configFile string
	apiBase    string
	dataDir    string
	logLevel   string
	logFile    string

	listenAddr string

	policyName string
	fps        int
	paused     bool
	record     bool

	token string

	column string
	width  int
)

// app is the per-command runtime built from the resolved configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	close  func() error
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "axis",
		Short:         "task catalog and robot simulation viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "backend api base url")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "episode directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write json logs to this file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the task pages and the viewer socket",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address")
	serveCmd.Flags().BoolVar(&record, "record", false, "record viewer sessions as episodes")

	viewCmd := &cobra.Command{
		Use:   "view [preset|file]",
		Short: "show a model in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  view,
	}
	viewCmd.Flags().StringVar(&policyName, "policy", "", "control policy ("+strings.Join(control.Names, ", ")+")")
	viewCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "frame rate")
	viewCmd.Flags().BoolVar(&paused, "paused", false, "start paused")
	viewCmd.Flags().BoolVar(&record, "record", false, "save the session as an episode")

	tasksCmd := &cobra.Command{
		Use:   "tasks [id]",
		Short: "list tasks or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listTasks,
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "exchange an access token for a backend session",
		Args:  cobra.NoArgs,
		RunE:  login,
	}
	loginCmd.Flags().StringVar(&token, "token", "", "access token (defaults to AXIS_ACCESS_TOKEN)")

	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "list recorded episodes",
		Args:  cobra.NoArgs,
		RunE:  listEpisodes,
	}
	exportCmd := &cobra.Command{
		Use:   "export [episode_id]",
		Short: "export an episode as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportEpisode,
	}
	episodesCmd.AddCommand(exportCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [episode_id]",
		Short: "plot episode columns",
		Args:  cobra.ExactArgs(1),
		RunE:  plotEpisode,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "column to plot (default: first six)")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in models",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPOLICY\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Policy, p.Description)
			}
			w.Flush()
		},
	}

	rootCmd.AddCommand(serveCmd, viewCmd, tasksCmd, loginCmd, episodesCmd, plotCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup resolves the configuration, applies flags that were set and builds
// the logger.
func setup(cmd *cobra.Command, logTo *os.File) (*app, error) {
	cfg, err := config.Resolve(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.APIBase = apiBase
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = listenAddr
	}
	if flags.Changed("record") {
		cfg.Viewer.Record = record
	}
	if flags.Changed("policy") {
		cfg.Viewer.Policy = policyName
	}
	if flags.Changed("paused") {
		cfg.Viewer.Paused = paused
	}
	if flags.Changed("fps") {
		cfg.Viewer.FPS = fps
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lvl, _ := config.ParseLevel(cfg.LogLevel)
	logging.SetLevel(lvl)
	logger, closeFn, err := logging.New(logTo, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger, close: closeFn}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (a *app) client() *backend.Client {
	return backend.NewClient(backend.ResolveAPIBase(a.cfg.APIBase, a.logger), &http.Client{Timeout: 15 * time.Second}, a.logger)
}

func (a *app) store() (*storage.Store, error) {
	st := storage.New(a.cfg.DataDir)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("init episode store: %w", err)
	}
	return st, nil
}

func serve(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	var st *storage.Store
	if a.cfg.Viewer.Record {
		if st, err = a.store(); err != nil {
			return err
		}
	}

	client := a.client()
	srv, err := web.NewServer(web.Options{
		Tasks:     client,
		Exchanger: client,
		Engine:    engine.NewCache(physics.Loader{}, a.logger),
		Store:     st,
		Config:    a.cfg,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := srv.ListenAndServe(ctx, a.cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func view(cmd *cobra.Command, args []string) error {
	logOut, err := os.CreateTemp("", "axis-view-*.log")
	if err != nil {
		return err
	}
	defer logOut.Close()

	a, err := setup(cmd, logOut)
	if err != nil {
		return err
	}
	defer a.close()

	ref := a.cfg.Viewer.Model
	if len(args) == 1 {
		ref = args[0]
	}
	xml, err := config.ModelSource(ref)
	if err != nil {
		return fmt.Errorf("model %s: %w", ref, err)
	}

	name := a.cfg.Viewer.Policy
	if p := config.GetPreset(ref); p != nil && !cmd.Flags().Changed("policy") {
		name = p.Policy
	}
	policy, err := control.New(name, 0)
	if err != nil {
		return err
	}

	var rec *storage.Recorder
	var observers []viewer.FrameObserver
	if a.cfg.Viewer.Record {
		st, err := a.store()
		if err != nil {
			return err
		}
		rec = st.NewRecorder(storage.Metadata{Model: ref, Policy: name}, a.logger)
		observers = append(observers, rec)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tui, err := viz.NewApp(ctx, viz.Options{
		Title:      "axis · " + ref,
		ModelXML:   xml,
		Engine:     engine.NewCache(physics.Loader{}, a.logger),
		Policy:     policy,
		PolicyName: name,
		FPS:        a.cfg.Viewer.FPS,
		Paused:     a.cfg.Viewer.Paused,
		KeyHold:    a.cfg.Viewer.KeyHold,
		Observers:  observers,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	runErr := viz.RunApp(ctx, tui)
	tui.Close()

	if rec != nil {
		rec.SetTimestep(tui.Viewer().Model().Timestep())
		id, err := rec.Close()
		if err != nil {
			return fmt.Errorf("save episode: %w", err)
		}
		if id != "" {
			fmt.Printf("episode saved: %s (%d frames)\n", id, rec.Frames())
		}
	}
	return runErr
}

func listTasks(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()
	client := a.client()

	if len(args) == 1 {
		id, ok := tasks.ParseID(args[0])
		if !ok {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		t, err := client.GetTask(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n\n", t.Name, t.Description)
		fmt.Printf("difficulty: %s (%s)\n", tasks.StarString(tasks.Stars(t.Difficulty)), t.Difficulty)
		fmt.Printf("duration:   %d min\n", t.ExpectedDuration)
		fmt.Printf("success:    %d%%\n", tasks.RoundRate(t.SuccessRate))
		return nil
	}

	list, err := client.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDIFFICULTY\tDURATION\tSUCCESS")
	for _, t := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d min\t%d%%\n",
			t.ID,
			t.Name,
			tasks.StarString(tasks.Stars(t.Difficulty)),
			t.ExpectedDuration,
			tasks.RoundRate(t.SuccessRate),
		)
	}
	return w.Flush()
}

func login(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	tok := a.cfg.AccessToken
	if cmd.Flags().Changed("token") {
		tok = token
	}
	if strings.TrimSpace(tok) == "" {
		return errors.New("no access token: pass --token or set AXIS_ACCESS_TOKEN")
	}
	provider, err := auth.NewTokenProvider(tok)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	syncer := auth.NewSynchronizer(provider, a.client(), a.cfg.Auth, a.logger)
	sess, err := syncer.Sync(ctx)
	if err != nil {
		if msg := auth.Message(err); msg != "" {
			return errors.New(msg)
		}
		return err
	}

	u, _ := provider.User()
	fmt.Printf("signed in as %s\n", auth.DisplayName(u))
	fmt.Printf("user:    %s\n", sess.UserID)
	fmt.Printf("session: %s\n", sess.SessionID)
	return nil
}

func listEpisodes(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	episodes, err := storage.New(a.cfg.DataDir).List()
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		fmt.Println("no episodes found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tPOLICY\tTASK\tTIME\tDURATION\tSTEPS\tIN_BOUNDS")
	for _, ep := range episodes {
		task := "-"
		if ep.TaskID > 0 {
			task = fmt.Sprint(ep.TaskID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2fs\t%d\t%.2f\n",
			ep.ID,
			ep.Model,
			ep.Policy,
			task,
			ep.Timestamp.Format("2006-01-02 15:04:05"),
			ep.Duration,
			ep.Steps,
			ep.Metrics["in_bounds"],
		)
	}
	return w.Flush()
}

func exportEpisode(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()
	return storage.New(a.cfg.DataDir).ExportJSON(os.Stdout, args[0])
}

func plotEpisode(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	st := storage.New(a.cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	header, err := st.Columns(args[0])
	if err != nil {
		return err
	}
	cols := header[1:]

	indices := make([]int, 0, 6)
	if column != "" {
		i := slices.Index(cols, column)
		if i < 0 {
			return fmt.Errorf("unknown column %q (have %s)", column, strings.Join(cols, ", "))
		}
		indices = append(indices, i)
	} else {
		for i := 0; i < len(cols) && i < 6; i++ {
			indices = append(indices, i)
		}
	}

	fmt.Printf("episode: %s\n", meta.ID)
	fmt.Printf("model:   %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(states))

	for _, idx := range indices {
		data := make([]float64, len(states))
		for i := range states {
			if idx < len(states[i]) {
				data[i] = states[i][idx]
			}
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(width),
			asciigraph.Caption(cols[idx]),
		))
		fmt.Println()
	}
	return nil
}

package storage

import (
	"log/slog"
	"sync"

	"github.com/san-kum/axis/internal/dynamo"
	"github.com/san-kum/axis/internal/metrics"
	"github.com/san-kum/axis/internal/viewer"
)

// MaxFrames bounds how many frames a recorder keeps in memory.
const MaxFrames = 200_000

// Recorder collects viewer frames into an episode. Only frames in which
// the simulation advanced are kept.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	mu      sync.Mutex
	meta    Metadata
	ep      Episode
	metrics []metrics.Metric
	steps   int
	closed  bool
}

func (s *Store) NewRecorder(meta Metadata, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   s,
		logger:  logger,
		meta:    meta,
		metrics: metrics.Default(),
	}
}

func (r *Recorder) ObserveFrame(f viewer.Frame) {
	if f.Steps == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.ep.Times) >= MaxFrames {
		return
	}

	r.steps += f.Steps
	r.ep.Times = append(r.ep.Times, f.SimTime)
	r.ep.States = append(r.ep.States, f.XPos)
	r.ep.Controls = append(r.ep.Controls, f.Ctrl)
	for _, m := range r.metrics {
		m.Observe(dynamo.State(f.XPos), dynamo.Control(f.Ctrl), f.SimTime)
	}
}

// Frames returns the number of recorded frames.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ep.Times)
}

// Close saves the episode and returns its id. Empty episodes are not
// saved and return an empty id. Later frames are ignored.
func (r *Recorder) Close() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", nil
	}
	r.closed = true
	if len(r.ep.Times) == 0 {
		return "", nil
	}

	meta := r.meta
	meta.Steps = r.steps
	meta.Duration = r.ep.Times[len(r.ep.Times)-1] - r.ep.Times[0]
	meta.Bodies = len(r.ep.States[0]) / 3
	meta.Metrics = metrics.Collect(r.metrics)

	id, err := r.store.Save(meta, &r.ep)
	if err != nil {
		return "", err
	}
	r.logger.Info("episode saved", "id", id, "frames", len(r.ep.Times), "steps", meta.Steps)
	return id, nil
}

// SetTimestep records the model timestep once it is known.
func (r *Recorder) SetTimestep(dt float64) {
	r.mu.Lock()
	r.meta.Timestep = dt
	r.mu.Unlock()
}

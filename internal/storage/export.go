package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Metadata
	Times   []float64   `json:"times"`
	States  [][]float64 `json:"states"`
	Columns []string    `json:"columns"`
}

// ExportJSON writes an episode's metadata and rows as one JSON document.
func (s *Store) ExportJSON(w io.Writer, id string) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(id)
	if err != nil {
		return err
	}
	cols, err := s.Columns(id)
	if err != nil && len(times) > 0 {
		return err
	}

	data := ExportData{
		Metadata: *meta,
		Times:    times,
		States:   states,
		Columns:  cols,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFanout(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "axis.log")

	SetLevel(slog.LevelInfo)
	logger, closeFn, err := New(&buf, path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("viewer ready", "bodies", 2)
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "msg=\"viewer ready\" bodies=2") {
		t.Errorf("unexpected text output %q", buf.String())
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug record should be filtered")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(raw), &rec); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", raw, err)
	}
	if rec["msg"] != "viewer ready" || rec["bodies"] != float64(2) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLevelChange(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(&buf, "")
	if err != nil {
		t.Fatal(err)
	}
	SetLevel(slog.LevelDebug)
	defer SetLevel(slog.LevelInfo)

	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("expected debug record after level change")
	}
}

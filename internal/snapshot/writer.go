package snapshot

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const summaryFileName = "summary.json"

// SummaryData holds the metadata of the latest published view.
type SummaryData struct {
	CycleID     string `json:"cycle_id"`
	Round       uint64 `json:"round"`
	TotalUsers  int    `json:"total_users"`
	PPPUsers    int    `json:"ppp_users"`
	SOCKSUsers  int    `json:"socks_users"`
	Devices     int    `json:"devices"`
	Unreachable int    `json:"unreachable"`
	Timestamp   string `json:"timestamp"`
}

// Writer is a sink that keeps the latest view on disk. Each publish replaces
// the previous files, so only one cycle is ever stored.
type Writer struct {
	path string
	dir  string
}

// NewWriter creates a writer for cfg.Path and makes sure its directory exists.
func NewWriter(cfg config.SnapshotConfig) (*Writer, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Writer{path: cfg.Path, dir: dir}, nil
}

func (*Writer) Name() string { return "snapshot" }

// Publish writes view to the snapshot file and refreshes summary.json next
// to it.
func (w *Writer) Publish(_ context.Context, view model.View) error {
	if err := w.writeJSON(w.path, view); err != nil {
		return err
	}

	unreachable := 0
	for _, d := range view.Devices {
		if !d.Reachable {
			unreachable++
		}
	}
	summary := SummaryData{
		CycleID:     view.CycleID,
		Round:       view.Round,
		TotalUsers:  view.Summary.Total,
		PPPUsers:    view.Summary.PPP,
		SOCKSUsers:  view.Summary.SOCKS,
		Devices:     len(view.Devices),
		Unreachable: unreachable,
		Timestamp:   view.PublishedAt.UTC().Format(time.RFC3339),
	}
	return w.writeJSON(filepath.Join(w.dir, summaryFileName), summary)
}

// writeJSON encodes v into a temporary file and renames it over path, so
// readers never observe a partially written file.
func (w *Writer) writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(w.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", path, err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode json for '%s': %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for '%s': %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace '%s': %w", path, err)
	}
	return nil
}

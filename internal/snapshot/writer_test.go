package snapshot

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(round uint64, users ...string) model.View {
	v := model.View{
		CycleID:     "cycle",
		Round:       round,
		PublishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Devices: []model.DeviceStatus{
			{Class: model.ClassPPP, Name: "ppp-1", Address: "10.0.0.1", Reachable: true},
			{Class: model.ClassSOCKS, Name: "socks-1", Address: "10.0.1.1", Reachable: false},
		},
	}
	for _, u := range users {
		v.Rows = append(v.Rows, model.AggregatedRow{User: u, Class: model.ClassPPP, Uptime: "1h"})
	}
	v.Summary = model.Summary{Total: len(users), PPP: len(users)}
	return v
}

func TestWriter_Publish(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "latest.json")

	w, err := NewWriter(config.SnapshotConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "snapshot", w.Name())

	require.NoError(t, w.Publish(context.Background(), view(1, "alice", "bob")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.View
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, view(1, "alice", "bob"), got)

	data, err = os.ReadFile(filepath.Join(dir, "state", "summary.json"))
	require.NoError(t, err)
	var summary SummaryData
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, SummaryData{
		CycleID:     "cycle",
		Round:       1,
		TotalUsers:  2,
		PPPUsers:    2,
		Devices:     2,
		Unreachable: 1,
		Timestamp:   "2026-03-01T12:00:00Z",
	}, summary)
}

func TestWriter_OverwritesPreviousCycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")

	w, err := NewWriter(config.SnapshotConfig{Path: path})
	require.NoError(t, err)

	require.NoError(t, w.Publish(context.Background(), view(1, "alice", "bob")))
	require.NoError(t, w.Publish(context.Background(), view(2, "alice")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.View
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, uint64(2), got.Round)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "alice", got.Rows[0].User)

	// Only the two live files remain; temp files are cleaned up.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"latest.json", "summary.json"}, names)
}

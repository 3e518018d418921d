package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrana/ibvs/internal/camera"
	"github.com/jrana/ibvs/internal/loop"
)

func sampleResult() *loop.Result {
	return &loop.Result{
		Poses: []camera.Pose{
			{X: 0.3},
			{X: 0.25, Z: 0.1},
		},
		Velocities: [][]float64{
			{-0.5, 1.2},
			{-0.4, 1.0},
		},
		ErrorNorms: []float64{0.8, 0.6},
		Times:      []float64{0.0, 0.05},
		Metrics:    map[string]float64{"control_effort": 1.55},
		Converged:  false,
		Iterations: 2,
	}
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		ControlMode:     "2xz",
		InteractionMode: "curr",
		NumPoints:       4,
		Dt:              0.05,
		MaxIters:        500,
		Tolerance:       0.01,
		Gains:           []float64{1, 1},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(sampleMeta(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.ControlMode != "2xz" {
		t.Errorf("expected control mode 2xz, got %s", meta.ControlMode)
	}
	if meta.NumPoints != 4 {
		t.Errorf("expected 4 points, got %d", meta.NumPoints)
	}
	if meta.Iterations != 2 {
		t.Errorf("expected 2 iterations, got %d", meta.Iterations)
	}
	if meta.Metrics["control_effort"] != 1.55 {
		t.Errorf("expected control_effort 1.55, got %f", meta.Metrics["control_effort"])
	}

	rows, times, err := st.LoadIterations(runID)
	if err != nil {
		t.Fatalf("load iterations failed: %v", err)
	}
	if len(rows) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 rows and 2 times, got %d and %d", len(rows), len(times))
	}
	// time, then x y z yaw err_norm v0 v1 per row.
	if len(rows[0]) != 7 {
		t.Fatalf("expected 7 columns, got %d", len(rows[0]))
	}
	if rows[1][2] != 0.1 {
		t.Errorf("expected z 0.1 in second row, got %f", rows[1][2])
	}
	if rows[0][5] != -0.5 {
		t.Errorf("expected v0 -0.5 in first row, got %f", rows[0][5])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save(sampleMeta(), sampleResult()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(sampleMeta(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(dir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "iterations.csv")); os.IsNotExist(err) {
		t.Error("iterations.csv not created")
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(sampleMeta(), sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var out struct {
		Meta  RunMetadata `json:"meta"`
		Times []float64   `json:"times"`
		Rows  [][]float64 `json:"rows"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if out.Meta.ID != runID {
		t.Errorf("expected id %s, got %s", runID, out.Meta.ID)
	}
	if len(out.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(out.Rows))
	}
}

// Package storage persists servo runs as a directory per run: metadata.json
// with the run parameters and summary, iterations.csv with the trajectory.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jrana/ibvs/internal/loop"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata summarizes one stored servo run.
type RunMetadata struct {
	ID              string             `json:"id"`
	ControlMode     string             `json:"control_mode"`
	InteractionMode string             `json:"interaction_mode"`
	NumPoints       int                `json:"num_points"`
	Timestamp       time.Time          `json:"timestamp"`
	Dt              float64            `json:"dt"`
	MaxIters        int                `json:"max_iters"`
	Tolerance       float64            `json:"tolerance"`
	Gains           []float64          `json:"gains"`
	Converged       bool               `json:"converged"`
	Iterations      int                `json:"iterations"`
	Metrics         map[string]float64 `json:"metrics"`
}

// Save writes a run directory and returns its ID. The metadata's ID,
// timestamp, convergence flag, iteration count, and metrics are filled from
// the result.
func (s *Store) Save(meta RunMetadata, result *loop.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.ControlMode, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Converged = result.Converged
	meta.Iterations = result.Iterations
	meta.Metrics = result.Metrics

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "iterations.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(result.Poses) == 0 {
		return runID, nil
	}

	header := []string{"time", "x", "y", "z", "yaw", "err_norm"}
	for i := range result.Velocities[0] {
		header = append(header, fmt.Sprintf("v%d", i))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range result.Poses {
		pose := result.Poses[i]
		row := []string{
			formatFloat(result.Times[i]),
			formatFloat(pose.X),
			formatFloat(pose.Y),
			formatFloat(pose.Z),
			formatFloat(pose.Yaw),
			formatFloat(result.ErrorNorms[i]),
		}
		for _, v := range result.Velocities[i] {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// List returns the metadata of every stored run.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadIterations reads one run's trajectory. Each row holds the columns after
// the time column, in file order (pose x/y/z/yaw, err_norm, velocities).
func (s *Store) LoadIterations(runID string) (rows [][]float64, times []float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "iterations.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times = make([]float64, 0, len(records)-1)
	rows = make([][]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, v)
		}
		times = append(times, t)
		rows = append(rows, row)
	}
	return rows, times, nil
}

type jsonExport struct {
	Meta  RunMetadata `json:"meta"`
	Times []float64   `json:"times"`
	Rows  [][]float64 `json:"rows"`
}

// ExportJSON writes one run (metadata plus trajectory) as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, times, err := s.LoadIterations(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonExport{Meta: *meta, Times: times, Rows: rows})
}

// Package viz renders servo runs in the terminal: asciigraph charts of stored
// trajectories, and a live bubbletea view of the image plane while a loop is
// running.
package viz

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
)

var velocityCaptions = map[string][]string{
	"2xz":   {"x velocity", "z velocity"},
	"2zy":   {"z velocity", "y angular velocity"},
	"4xyzy": {"x velocity", "y velocity", "z velocity", "y angular velocity"},
}

// PlotRun charts the feature error norm and every velocity component of a
// stored trajectory. Rows are storage.LoadIterations rows: pose x/y/z/yaw,
// err_norm, then velocities.
func PlotRun(w io.Writer, controlMode string, rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("viz: no data to plot")
	}

	const (
		errNormCol  = 4
		velocityCol = 5
	)

	col := func(idx int) []float64 {
		data := make([]float64, len(rows))
		for i, row := range rows {
			if idx < len(row) {
				data[i] = row[idx]
			}
		}
		return data
	}

	plot := func(data []float64, caption string) {
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Fprintln(w, graph)
		fmt.Fprintln(w)
	}

	plot(col(errNormCol), "feature error norm")

	captions := velocityCaptions[controlMode]
	numVels := len(rows[0]) - velocityCol
	for i := 0; i < numVels; i++ {
		caption := fmt.Sprintf("v%d", i)
		if i < len(captions) {
			caption = captions[i]
		}
		plot(col(velocityCol+i), caption)
	}

	return nil
}

package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jrana/ibvs/internal/camera"
	"github.com/jrana/ibvs/internal/config"
	"github.com/jrana/ibvs/internal/loop"
	"github.com/jrana/ibvs/internal/servo"
	"github.com/jrana/ibvs/internal/storage"
	"github.com/jrana/ibvs/internal/viz"
)

var (
	dataDir     string
	configFile  string
	preset      string
	controlMode string
	interaction string
	gains       []float64
	dt          float64
	maxIters    int
	tolerance   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ibvs",
		Short: "image-based visual servoing lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ibvs", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a servo loop to convergence",
		RunE:  runServo,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a servo loop with live visualization",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [mode]",
		Short: "list available presets for a control mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for mode: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modesCmd := &cobra.Command{
		Use:   "modes",
		Short: "list control and interaction modes",
		RunE:  listModes,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, presetsCmd, modesCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&controlMode, "mode", "2xz", "control mode (2xz, 2zy, 4xyzy)")
	cmd.Flags().StringVar(&interaction, "interaction", "curr", "interaction matrix source (curr, desired, mean)")
	cmd.Flags().Float64SliceVar(&gains, "gains", nil, "per-axis control gains")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "integration timestep")
	cmd.Flags().IntVar(&maxIters, "iters", config.DefaultMaxIters, "maximum iterations")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "convergence tolerance on the error norm")
}

// buildConfig layers preset, config file, and CLI flags, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(controlMode, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(controlMode))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("mode") {
		cfg.ControlMode = controlMode
	}
	if cmd.Flags().Changed("interaction") {
		cfg.InteractionMode = interaction
	}
	if cmd.Flags().Changed("gains") {
		cfg.Gains = gains
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("iters") {
		cfg.MaxIters = maxIters
	}
	if cmd.Flags().Changed("tol") {
		cfg.Tolerance = tolerance
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildController assembles the controller and camera for a config.
func buildController(cfg *config.Config) (*servo.Controller, *camera.Camera, error) {
	cm, im, err := cfg.Modes()
	if err != nil {
		return nil, nil, err
	}

	ctrl, err := servo.New(cm, im, len(cfg.Scene))
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.Gains) > 0 {
		if err := ctrl.SetGains(cfg.Gains); err != nil {
			return nil, nil, err
		}
	}

	return ctrl, camera.New(cfg.CameraPose()), nil
}

func runServo(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctrl, cam, err := buildController(cfg)
	if err != nil {
		return err
	}

	lp, err := loop.New(ctrl, cam, cfg.ScenePoints(), cfg.TargetPose())
	if err != nil {
		return err
	}
	lp.AddMetric(loop.NewControlEffort())
	lp.AddMetric(loop.NewSettlingIterations(cfg.Tolerance))

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s servo (%s interaction)...\n", cfg.ControlMode, cfg.InteractionMode)
	start := time.Now()

	result, err := lp.Run(context.Background(), loop.Config{
		Dt:        cfg.Dt,
		MaxIters:  cfg.MaxIters,
		Tolerance: cfg.Tolerance,
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunMetadata{
		ControlMode:     cfg.ControlMode,
		InteractionMode: cfg.InteractionMode,
		NumPoints:       len(cfg.Scene),
		Dt:              cfg.Dt,
		MaxIters:        cfg.MaxIters,
		Tolerance:       cfg.Tolerance,
		Gains:           cfg.Gains,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("iterations: %d\n", result.Iterations)
	fmt.Printf("converged: %v\n", result.Converged)
	if n := len(result.ErrorNorms); n > 0 {
		fmt.Printf("final error norm: %.6f\n", result.ErrorNorms[n-1])
	}
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctrl, cam, err := buildController(cfg)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(ctrl, cam, cfg.ScenePoints(), cfg.TargetPose(), cfg.Dt, cfg.MaxIters, cfg.Tolerance)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tINTERACTION\tTIME\tITERS\tCONVERGED\tDT\tTOL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%v\t%.4fs\t%.4f\n",
			run.ID,
			run.ControlMode,
			run.InteractionMode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Iterations,
			run.Converged,
			run.Dt,
			run.Tolerance,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	rows, _, err := st.LoadIterations(runID)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("mode: %s (%s interaction)\n", meta.ControlMode, meta.InteractionMode)
	fmt.Printf("samples: %d\n\n", len(rows))

	return viz.PlotRun(os.Stdout, meta.ControlMode, rows)
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	rows, times, err := st.LoadIterations(runID)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time", "x", "y", "z", "yaw", "err_norm"}
	for i := 0; i < len(rows[0])-5; i++ {
		header = append(header, fmt.Sprintf("v%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range rows {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64)}
		for _, val := range rows[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.ExportJSON(os.Stdout, args[0])
}

func listModes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROL MODE\tDOF\tVELOCITIES")
	fmt.Fprintln(w, "2xz\t2\tvx, vz")
	fmt.Fprintln(w, "2zy\t2\tvz, wy")
	fmt.Fprintln(w, "4xyzy\t4\tvx, vy, vz, wy")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "INTERACTION\tDEPTHS REQUIRED")
	fmt.Fprintln(w, "curr\tcurrent points")
	fmt.Fprintln(w, "desired\tdesired points")
	fmt.Fprintln(w, "mean\tcurrent and desired points")
	return w.Flush()
}

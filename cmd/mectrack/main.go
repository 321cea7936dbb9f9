package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/spf13/cobra"

	"github.com/san-kum/mectrack/internal/analysis"
	"github.com/san-kum/mectrack/internal/batch"
	"github.com/san-kum/mectrack/internal/config"
	"github.com/san-kum/mectrack/internal/drive"
	"github.com/san-kum/mectrack/internal/follow"
	"github.com/san-kum/mectrack/internal/geom"
	"github.com/san-kum/mectrack/internal/metrics"
	"github.com/san-kum/mectrack/internal/sim"
	"github.com/san-kum/mectrack/internal/store"
	"github.com/san-kum/mectrack/internal/traj"
	"github.com/san-kum/mectrack/internal/tui"
	"github.com/san-kum/mectrack/internal/tune"
	"github.com/san-kum/mectrack/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	mode       string
	period     float64
	kp         float64
	ki         float64
	kd         float64
	rotKp      float64
	lag        float64
	slip       float64
	wheelCap   float64
	// Plot sizing
	plotWidth  int
	plotHeight int
	followPlot bool
	// SVG export
	svgOut    string
	svgWidth  int
	svgHeight int
	// Tune ranges
	tuneMetric string
	kpMin      float64
	kpMax      float64
	kpSteps    int
	kiMin      float64
	kiMax      float64
	kiSteps    int
	kdMin      float64
	kdMax      float64
	kdSteps    int
	topN       int
	tuneSave   string
	// Sample trajectory name
	sampleName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mectrack",
		Short: "mecanum trajectory tracking lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mectrack", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	followCmd := &cobra.Command{
		Use:   "follow [trajectory]...",
		Short: "follow trajectories headless and save the runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFollow,
	}
	addConfigFlags(followCmd)
	followCmd.Flags().BoolVar(&followPlot, "plot", false, "plot each run after it completes")

	liveCmd := &cobra.Command{
		Use:   "live [trajectory]",
		Short: "follow a trajectory with a live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "chart height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a run's tracking error",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&plotWidth, "width", 80, "chart width")
	analyzeCmd.Flags().IntVar(&plotHeight, "height", 10, "chart height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a run's path as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&svgOut, "out", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width in px")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height in px")

	tuneCmd := &cobra.Command{
		Use:   "tune [trajectory]",
		Short: "grid-search translation gains on a trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  runTune,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "tracking_rms", "metric to minimize")
	tuneCmd.Flags().Float64Var(&kpMin, "kp-min", 0, "kp range start")
	tuneCmd.Flags().Float64Var(&kpMax, "kp-max", 8, "kp range end")
	tuneCmd.Flags().IntVar(&kpSteps, "kp-steps", 9, "kp grid points")
	tuneCmd.Flags().Float64Var(&kiMin, "ki-min", 0, "ki range start")
	tuneCmd.Flags().Float64Var(&kiMax, "ki-max", 0, "ki range end")
	tuneCmd.Flags().IntVar(&kiSteps, "ki-steps", 1, "ki grid points")
	tuneCmd.Flags().Float64Var(&kdMin, "kd-min", 0, "kd range start")
	tuneCmd.Flags().Float64Var(&kdMax, "kd-max", 0, "kd range end")
	tuneCmd.Flags().IntVar(&kdSteps, "kd-steps", 1, "kd grid points")
	tuneCmd.Flags().IntVar(&topN, "top", 5, "rows to print")
	tuneCmd.Flags().StringVar(&tuneSave, "save", "", "write best config to file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE:  listPresets,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario]",
		Short: "run a scripted scenario of tracking runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sampleCmd := &cobra.Command{
		Use:   "sample [file]",
		Short: "write the demo trajectory to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  writeSample,
	}
	sampleCmd.Flags().StringVar(&sampleName, "name", "", "trajectory name")

	rootCmd.AddCommand(followCmd, liveCmd, listCmd, plotCmd, analyzeCmd, exportCmd, exportSVGCmd, tuneCmd, batchCmd, presetsCmd, sampleCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration")
	cmd.Flags().StringVar(&mode, "mode", config.ModeChassis, "drive output: chassis or wheels")
	cmd.Flags().Float64Var(&period, "period", config.DefaultPeriod, "control period in seconds")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "translation kp")
	cmd.Flags().Float64Var(&ki, "ki", 0, "translation ki")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "translation kd")
	cmd.Flags().Float64Var(&rotKp, "rot-kp", config.DefaultRotKp, "rotation kp")
	cmd.Flags().Float64Var(&lag, "lag", 0.1, "plant velocity lag time constant")
	cmd.Flags().Float64Var(&slip, "slip", 0.05, "plant slip fraction")
	cmd.Flags().Float64Var(&wheelCap, "cap", config.DefaultWheelCap, "wheel speed cap in m/s")
}

// buildConfig layers preset, config file, and explicitly set flags, in
// that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("mode") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("period") {
		cfg.Period = period
	}
	if cmd.Flags().Changed("kp") {
		cfg.Translation.Kp = kp
	}
	if cmd.Flags().Changed("ki") {
		cfg.Translation.Ki = ki
	}
	if cmd.Flags().Changed("kd") {
		cfg.Translation.Kd = kd
	}
	if cmd.Flags().Changed("rot-kp") {
		cfg.Rotation.Kp = rotKp
	}
	if cmd.Flags().Changed("lag") {
		cfg.Plant.Lag = lag
	}
	if cmd.Flags().Changed("slip") {
		cfg.Plant.Slip = slip
	}
	if cmd.Flags().Changed("cap") {
		cfg.Frame.WheelCap = wheelCap
		cfg.Plant.WheelCap = wheelCap
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildDrive wires a follower builder to the plant in the configured
// output mode.
func buildDrive(cfg *config.Config, plant *sim.Plant) (*follow.Builder, error) {
	fc := follow.Config{
		Pose:        plant.Pose,
		Reset:       plant.ResetPose,
		Translation: cfg.Translation.Gains(),
		Rotation:    cfg.Rotation.Gains(),
	}
	if cfg.Mode == config.ModeWheels {
		fc.Kinematics = cfg.Kinematics()
		fc.MaxWheelSpeed = cfg.Frame.WheelCap
		fc.Wheels = plant.SetWheelSpeeds
	} else {
		fc.Chassis = func(c drive.ChassisSpeeds) {
			plant.SetVelocity(r3.Vector{X: c.VX, Y: c.VY}, r3.Vector{Z: c.Omega})
		}
	}
	return follow.NewBuilder(fc)
}

func newLogger() golog.Logger {
	if verbose {
		return golog.NewDevelopmentLogger("mectrack")
	}
	return golog.NewLogger("mectrack")
}

func loadTrajectory(arg string) (*traj.Trajectory, error) {
	if arg == "demo" {
		return demoTrajectory(), nil
	}
	return traj.Load(arg)
}

// demoTrajectory is an L-shaped out-and-back path with a quarter turn,
// enough to exercise both axes and the heading controller.
func demoTrajectory() *traj.Trajectory {
	const step = 0.02
	corner := geom.Pose{X: 1.5}
	far := geom.Pose{X: 1.5, Y: 1.0, Heading: math.Pi / 2}
	return traj.Concat("demo",
		traj.Linear("out", geom.Pose{}, corner, 2.0, step),
		traj.Linear("turn", corner, far, 2.0, step),
		traj.Linear("home", far, geom.Pose{}, 2.5, step),
	)
}

// runFollow tracks each trajectory in turn on one shared builder and
// plant; every file gets a fresh follower and a saved run.
func runFollow(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	logger := newLogger()
	plant := sim.NewPlant(cfg.PlantConfig())
	builder, err := buildDrive(cfg, plant)
	if err != nil {
		return err
	}

	type row struct {
		name  string
		id    string
		steps int
		m     map[string]float64
	}
	rows := make([]row, 0, len(args))

	start := time.Now()
	for _, arg := range args {
		tr, err := loadTrajectory(arg)
		if err != nil {
			return err
		}
		builder.ResetPose(tr)

		ses, err := sim.NewSession(builder.Follower(tr), plant, tr, cfg.Period, logger)
		if err != nil {
			return err
		}
		for _, m := range metrics.Standard() {
			ses.AddMetric(m)
		}
		if verbose {
			ses.AddObserver(sim.NewTraceObserver(logger, 0))
		}

		fmt.Printf("following %s in %s mode...\n", tr.Name, builder.Mode())
		res, err := ses.Run(context.Background())
		if err != nil {
			return err
		}

		runID, err := st.Save(tr.Name, cfg.Mode, cfg.Period, tr.Duration(), res)
		if err != nil {
			return err
		}
		rows = append(rows, row{name: tr.Name, id: runID, steps: res.Steps(), m: res.Metrics})

		if followPlot {
			refPath := viz.RefPath(res)
			canvas := viz.NewCanvas(60, 14)
			canvas.FitPaths(refPath, res.Poses)
			canvas.PlotPath(refPath)
			canvas.PlotPath(res.Poses)
			fmt.Print(canvas.String())
			fmt.Println(viz.Series(viz.DeviationSeries(res), 60, 8, "translation deviation"))
		}
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRAJECTORY\tRUN ID\tSTEPS\tRMS\tMAX\tHEADING\tEFFORT\tSETTLED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.4f\t%.3f\t%.2f\n",
			r.name, r.id, r.steps,
			r.m["tracking_rms"], r.m["tracking_max"], r.m["heading_rms"],
			r.m["control_effort"], r.m["settled_fraction"])
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	tr, err := loadTrajectory(args[0])
	if err != nil {
		return err
	}

	plant := sim.NewPlant(cfg.PlantConfig())
	builder, err := buildDrive(cfg, plant)
	if err != nil {
		return err
	}

	return tui.Run(builder, tr, plant, cfg.Period)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTRAJECTORY\tMODE\tTIME\tDURATION\tPERIOD\tSTEPS\tRMS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.3fs\t%d\t%.4f\n",
			run.ID,
			run.Trajectory,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Period,
			run.Steps,
			run.Metrics["tracking_rms"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.LoadMeta(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if res.Steps() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("trajectory: %s (%s mode)\n", meta.Trajectory, meta.Mode)
	fmt.Printf("samples: %d\n\n", res.Steps())

	refPath := viz.RefPath(res)
	canvas := viz.NewCanvas(60, 16)
	canvas.FitPaths(refPath, res.Poses)
	canvas.PlotPath(refPath)
	canvas.PlotPath(res.Poses)
	fmt.Println("overhead path (reference and driven):")
	fmt.Print(canvas.String())
	fmt.Println()

	n := res.Steps()
	refXs := make([]float64, n)
	refYs := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		refXs[i] = res.Refs[i].X
		refYs[i] = res.Refs[i].Y
		xs[i] = res.Poses[i].X
		ys[i] = res.Poses[i].Y
	}

	fmt.Println(viz.Compare(refXs, xs, plotWidth, plotHeight, "x position"))
	fmt.Println()
	fmt.Println(viz.Compare(refYs, ys, plotWidth, plotHeight, "y position"))
	fmt.Println()
	fmt.Println(viz.Series(viz.DeviationSeries(res), plotWidth, plotHeight, "translation deviation"))

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.LoadMeta(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	spec, err := analysis.PowerSpectrum(viz.DeviationSeries(res), meta.Period)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("trajectory: %s (%s mode)\n\n", meta.Trajectory, meta.Mode)
	fmt.Println(viz.Series(spec.Mags[1:], plotWidth, plotHeight, "deviation spectrum"))

	freq, mag := spec.Peak()
	if freq == 0 || mag < 1e-9 {
		fmt.Println("\nno dominant oscillation")
		return nil
	}
	fmt.Printf("\ndominant oscillation: %.3f hz (period %.3f s)\n", freq, 1/freq)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := batch.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	runner := batch.NewRunner(st, loadTrajectory, newLogger())
	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))

	results, runErr := runner.Run(context.Background(), sc)
	for _, r := range results {
		fmt.Printf("  %-20s %s  rms=%.4f\n", r.Label, r.RunID, r.Metrics["tracking_rms"])
	}
	return runErr
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	meta, err := st.LoadMeta(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	return store.ExportJSON(os.Stdout, meta, res)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := store.New(dataDir)
	res, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	if svgOut == "" {
		return viz.PathSVG(os.Stdout, viz.RefPath(res), res.Poses, svgWidth, svgHeight)
	}

	f, err := os.Create(svgOut)
	if err != nil {
		return err
	}
	if err := viz.PathSVG(f, viz.RefPath(res), res.Poses, svgWidth, svgHeight); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	tr, err := loadTrajectory(args[0])
	if err != nil {
		return err
	}

	logger := newLogger()
	kpVals := tune.Range(kpMin, kpMax, kpSteps)
	kiVals := tune.Range(kiMin, kiMax, kiSteps)
	kdVals := tune.Range(kdMin, kdMax, kdSteps)
	grid := tune.NewGrid(tuneMetric,
		tune.Param{Name: "kp", Values: kpVals},
		tune.Param{Name: "ki", Values: kiVals},
		tune.Param{Name: "kd", Values: kdVals},
	)

	build := func(pt tune.Point) (*sim.Session, error) {
		c := *cfg
		c.Translation.Kp = pt["kp"]
		c.Translation.Ki = pt["ki"]
		c.Translation.Kd = pt["kd"]

		plant := sim.NewPlant(c.PlantConfig())
		builder, err := buildDrive(&c, plant)
		if err != nil {
			return nil, err
		}
		builder.ResetPose(tr)
		ses, err := sim.NewSession(builder.Follower(tr), plant, tr, c.Period, logger)
		if err != nil {
			return nil, err
		}
		for _, m := range metrics.Standard() {
			ses.AddMetric(m)
		}
		return ses, nil
	}

	runs := len(kpVals) * len(kiVals) * len(kdVals)
	fmt.Printf("searching %d gain combinations on %s...\n", runs, tr.Name)
	start := time.Now()
	results, err := grid.Search(context.Background(), build)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	top := topN
	if top > len(results) {
		top = len(results)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KP\tKI\tKD\t%s\n", strings.ToUpper(tuneMetric))
	for _, r := range results[:top] {
		fmt.Fprintf(w, "%.3f\t%.3f\t%.3f\t%.6f\n", r.Point["kp"], r.Point["ki"], r.Point["kd"], r.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best := results[0]
	fmt.Printf("\nbest: kp=%.3f ki=%.3f kd=%.3f (%s=%.6f)\n",
		best.Point["kp"], best.Point["ki"], best.Point["kd"], tuneMetric, best.Score)

	if tuneSave != "" {
		tuned := *cfg
		tuned.Translation.Kp = best.Point["kp"]
		tuned.Translation.Ki = best.Point["ki"]
		tuned.Translation.Kd = best.Point["kd"]
		if err := config.Save(tuneSave, &tuned); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", tuneSave)
	}

	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODE\tPERIOD\tKP\tKI\tKD\tROT KP")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%.3fs\t%.2f\t%.2f\t%.2f\t%.2f\n",
			name, p.Mode, p.Period, p.Translation.Kp, p.Translation.Ki, p.Translation.Kd, p.Rotation.Kp)
	}
	return w.Flush()
}

func writeSample(cmd *cobra.Command, args []string) error {
	tr := demoTrajectory()
	if sampleName != "" {
		tr.Name = sampleName
	}
	if err := traj.Save(args[0], tr); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.1fs, %d states)\n", args[0], tr.Duration(), len(tr.States))
	return nil
}

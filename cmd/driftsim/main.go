package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/experiment"
	"github.com/san-kum/driftsim/internal/export"
	"github.com/san-kum/driftsim/internal/logging"
	"github.com/san-kum/driftsim/internal/metrics"
	"github.com/san-kum/driftsim/internal/observability"
	"github.com/san-kum/driftsim/internal/optim"
	"github.com/san-kum/driftsim/internal/sim"
	"github.com/san-kum/driftsim/internal/spill"
	"github.com/san-kum/driftsim/internal/storage"
	"github.com/san-kum/driftsim/internal/tui"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	trace     bool

	configFile string
	preset     string
	timeStep   int64
	duration   int64
	seed       int64
	numLEs     int
	uncertain  bool
	workers    int
	policy     string
	ensemble   int
	saveConfig string

	metricsAddr string
	frameRate   int

	sweepParams []string
	sweepMetric string

	lat  float64
	long float64
	at   int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "driftsim",
		Short:         "lagrangian element trajectory simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".driftsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "print OpenTelemetry spans to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and save its trajectories",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().Int64Var(&timeStep, "step", int64(config.DefaultTimeStep), "time step in seconds")
	runCmd.Flags().Int64Var(&duration, "duration", int64(config.DefaultDuration), "run length in seconds")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	runCmd.Flags().IntVar(&numLEs, "les", config.DefaultNumLEs, "number of LEs to release")
	runCmd.Flags().BoolVar(&uncertain, "uncertain", false, "also advance an uncertainty twin")
	runCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "goroutines per step (and concurrent ensemble members)")
	runCmd.Flags().StringVar(&policy, "policy", "abort", "mover failure policy (abort, skip)")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 0, "run N seeded members instead of a single run")
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved config to this path")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation drawing the LE cloud in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 10, "frame rate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	moversCmd := &cobra.Command{
		Use:   "movers",
		Short: "list mover kinds and integrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			fmt.Println("movers:")
			for _, k := range reg.ListMovers() {
				fmt.Printf("  %s\n", k)
			}
			fmt.Println("integrators:")
			for _, i := range reg.ListIntegrators() {
				fmt.Printf("  %s\n", i)
			}
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := config.ListGroups()
			if len(args) == 1 {
				groups = []string{args[0]}
			}
			for _, g := range groups {
				presets := config.ListPresets(g)
				if len(presets) == 0 {
					fmt.Printf("no presets for group: %s\n", g)
					continue
				}
				fmt.Printf("presets for %s:\n", g)
				for _, p := range presets {
					fmt.Printf("  %s/%s\n", g, p)
				}
			}
			return nil
		},
	}

	velocityCmd := &cobra.Command{
		Use:   "velocity",
		Short: "describe each mover's velocity at a point",
		Args:  cobra.NoArgs,
		RunE:  queryVelocity,
	}
	addScenarioFlags(velocityCmd)
	velocityCmd.Flags().Float64Var(&lat, "lat", 0, "latitude (defaults to the spill)")
	velocityCmd.Flags().Float64Var(&long, "long", 0, "longitude (defaults to the spill)")
	velocityCmd.Flags().Int64Var(&at, "at", 0, "model time in seconds")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot spread and centroid drift over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and trajectories to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [file]",
		Short: "draw run trajectories to an SVG file",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a parameter grid and rank it by a metric",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "mover.field=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "spread_m", "metric to rank by, smallest first")

	rootCmd.AddCommand(sweepCmd, runCmd, liveCmd, listCmd, moversCmd, presetsCmd, velocityCmd, plotCmd, exportCmd, exportJSONCmd, exportSVGCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (group/name)")
}

// resolveConfig layers defaults, then a preset, then a config file, then any
// flags set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		group, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be group/name, got %q", preset)
		}
		cfg = config.GetPreset(group, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("step") {
		cfg.TimeStep = drift.Seconds(timeStep)
	}
	if flags.Changed("duration") {
		cfg.Duration = drift.Seconds(duration)
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	} else if cfg.Seed == 0 && flags.Lookup("seed") != nil {
		cfg.Seed = seed
	}
	if flags.Changed("les") {
		cfg.Spill.NumLEs = numLEs
	}
	if flags.Changed("uncertain") {
		cfg.Uncertain = uncertain
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("policy") {
		cfg.FailurePolicy = policy
	}
	if flags.Changed("log-level") || cfg.Logging.Level == "" {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") || cfg.Logging.Format == "" {
		cfg.Logging.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewFromEnv(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signalContext()
	defer stop()

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     trace,
		ServiceName: "driftsim",
		Output:      os.Stderr,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
		}
	}()

	reg := prometheus.NewRegistry()
	collector, err := observability.NewStepCollector(reg)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: collector.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server failed", logging.Err(err))
			}
		}()
		defer srv.Close()
		log.Info(ctx, "serving metrics", logging.String("addr", metricsAddr))
	}

	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry(),
		experiment.WithLogger(log),
		experiment.WithCollector(collector),
	)

	if ensemble > 0 {
		return runEnsemble(ctx, exp, st, cfg)
	}

	if err := exp.Setup(); err != nil {
		return err
	}

	fmt.Printf("running %s (%d LEs, %d movers)...\n", cfg.Name, cfg.Spill.NumLEs, len(cfg.Movers))
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	if result.Skipped > 0 {
		fmt.Printf("mover skips: %d\n", result.Skipped)
	}
	printMetrics(result.Metrics)
	return nil
}

func runEnsemble(ctx context.Context, exp *experiment.Experiment, st *storage.Store, cfg *config.Config) error {
	fmt.Printf("running %d members of %s...\n", ensemble, cfg.Name)
	start := time.Now()

	results, err := exp.RunEnsemble(ctx, ensemble)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tSEED\tRUN ID\tSPREAD (m)\tCENTROID DRIFT (m)")
	for i, res := range results {
		member := cfg.Clone()
		member.Seed = cfg.Seed + int64(i)
		runID, err := st.Save(member, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%.1f\t%.1f\n", i, member.Seed, runID,
			res.Metrics["spread_m"], res.Metrics["centroid_drift_m"])
	}
	return w.Flush()
}

func printMetrics(m map[string]float64) {
	fmt.Println("\nmetrics:")
	for _, name := range []string{"centroid_drift_m", "spread_m", "max_depth_m", "beached_fraction", "drift_period_s"} {
		if v, ok := m[name]; ok {
			fmt.Printf("  %s: %.3f\n", name, v)
		}
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	exp := experiment.New(cfg, nil)
	if err := exp.Setup(); err != nil {
		return err
	}

	r := tui.NewLiveRenderer(os.Stdout, cfg.Name, cfg.Origin(), frameRate)
	exp.Simulator().AddObserver(r)
	// pace the run so frames are visible
	exp.Simulator().AddObserver(sim.ObserverFunc(func(int, drift.Seconds, *spill.LESet, *spill.LESet) {
		time.Sleep(time.Second / time.Duration(max(frameRate, 1)))
	}))

	r.Start()
	defer r.Stop()

	result, err := exp.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if result != nil {
		printMetrics(result.Metrics)
	}
	return nil
}

func queryVelocity(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	m, err := experiment.New(cfg, nil).BuildMap(cfg.Seed)
	if err != nil {
		return err
	}

	p := cfg.Origin()
	if cmd.Flags().Changed("lat") {
		p.Lat = lat
	}
	if cmd.Flags().Changed("long") {
		p.Long = long
	}
	t := drift.Seconds(at)

	fmt.Printf("velocities at %s, t=%d\n", p, t)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MOVER\tKIND\t3D\tARROW DEPTH\tVELOCITY")
	for _, mv := range m.Movers() {
		desc := "-"
		if err := mv.PrepareForStep(t, t+cfg.TimeStep, t, false); err != nil {
			desc = "error: " + err.Error()
		} else if s, ok := mv.VelocityAtPoint(p); ok {
			desc = s
		}
		mv.StepDone()
		fmt.Fprintf(w, "%s\t%s\t%v\t%.1f\t%s\n", mv.Name(), mv.ClassID(), mv.Is3D(), mv.ArrowDepth(), desc)
	}
	return w.Flush()
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
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tSTEP\tLES\tUNCERTAIN\tMOVERS")

	for _, run := range runs {
		names := make([]string, len(run.Movers))
		for i, m := range run.Movers {
			names[i] = m.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%ds\t%ds\t%d\t%v\t%s\n",
			shortID(run.ID),
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.TimeStep,
			run.NumLEs,
			run.Uncertain,
			strings.Join(names, ","),
		)
	}

	return w.Flush()
}

// shortID is the listing form of a run id.
func shortID(id string) string {
	return id[:min(8, len(id))]
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectories(runID)
	if err != nil {
		return err
	}
	if len(tr.Forecast) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", len(tr.Forecast))

	origin, _ := metrics.CentroidOf(tr.Forecast[0])
	spread := make([]float64, len(tr.Forecast))
	drifted := make([]float64, len(tr.Forecast))
	for i, frame := range tr.Forecast {
		spread[i] = metrics.SpreadOf(frame)
		if c, ok := metrics.CentroidOf(frame); ok {
			drifted[i] = metrics.Distance(origin, c)
		}
	}

	series := []struct {
		caption string
		data    []float64
	}{
		{"forecast spread (m)", spread},
		{"centroid drift (m)", drifted},
	}
	if len(tr.Uncertain) > 0 {
		u := make([]float64, len(tr.Uncertain))
		for i, frame := range tr.Uncertain {
			u[i] = metrics.SpreadOf(frame)
		}
		series = append(series, struct {
			caption string
			data    []float64
		}{"uncertainty spread (m)", u})
	}

	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	return st.ExportJSON(os.Stdout, runID)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectories(runID)
	if err != nil {
		return err
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.TrajectoriesSVG(f, tr.Forecast, tr.Uncertain, export.DefaultSVGOptions()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepParams) == 0 {
		return fmt.Errorf("sweep needs at least one --param")
	}

	params := make([]optim.Param, 0, len(sweepParams))
	for _, s := range sweepParams {
		p, err := optim.ParseParam(s)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	ctx, stop := signalContext()
	defer stop()

	g := optim.NewGridSearch(params...)
	fmt.Printf("sweeping %d configurations of %s...\n", g.Size(), cfg.Name)
	points, err := g.Search(ctx, cfg, sweepMetric)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(params)+1)
	for _, p := range params {
		header = append(header, strings.ToUpper(p.Key()))
	}
	fmt.Fprintln(w, strings.Join(append(header, strings.ToUpper(sweepMetric)), "\t"))
	for _, pt := range points {
		row := make([]string, 0, len(params)+1)
		for _, p := range params {
			row = append(row, fmt.Sprintf("%g", pt.Params[p.Key()]))
		}
		row = append(row, fmt.Sprintf("%.3f", pt.Value))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

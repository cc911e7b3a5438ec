package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/san-kum/gravsim/internal/automation"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/experiment"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	runName    string
	outFile    string
	noSave     bool
	withBodies bool

	method    string
	theta     float64
	dt        float64
	steps     int
	dims      int
	softening float64
	merge     float64
	workers   int

	genKind string
	bodies  int
	seed    uint64

	thetas []float64
	theme  string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepCount int

	trials   int
	radius   float64
	parallel int

	gridAxes   []string
	gridMetric string
)

func main() {
	env, err := config.GetEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(env)

	rootCmd := &cobra.Command{
		Use:           "gravsim",
		Short:         "Barnes-Hut gravity simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the result",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "step a simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme: "+strings.Join(viz.ThemeNames(), ", "))

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "plot the series of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run-id]",
		Short: "write the series (or final bodies) of a run as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportCSVCmd.Flags().BoolVar(&withBodies, "bodies", false, "export the final population instead of the series")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run-id]",
		Short: "write a run as a single json document",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare steps per second of every force method",
		Args:  cobra.NoArgs,
		RunE:  benchMethods,
	}
	addSimFlags(benchCmd)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "measure tree force error and node visits across theta",
		Args:  cobra.NoArgs,
		RunE:  compareTheta,
	}
	addSimFlags(compareCmd)
	compareCmd.Flags().Float64SliceVar(&thetas, "thetas", []float64{0.1, 0.3, 0.5, 0.7, 1.0}, "opening angles to compare")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run once per value of a parameter",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "theta", "parameter: "+strings.Join(automation.Params(), ", "))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1.0, "last value")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 5, "number of values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run one trial per seed and count bound populations",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addSimFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of seeds, starting at --seed")
	monteCarloCmd.Flags().Float64Var(&radius, "radius", 0, "bound radius around the center of mass, 0 uses 10x the generator extent")
	monteCarloCmd.Flags().IntVar(&parallel, "parallel", 0, "trials running at once, 0 uses every CPU")

	gridCmd := &cobra.Command{
		Use:   "grid",
		Short: "search parameter combinations for the lowest metric value",
		Args:  cobra.NoArgs,
		RunE:  runGrid,
	}
	addSimFlags(gridCmd)
	gridCmd.Flags().StringArrayVar(&gridAxes, "axis", nil, "name=v1,v2,... (repeatable), names: "+strings.Join(automation.Params(), ", "))
	gridCmd.Flags().StringVar(&gridMetric, "metric", "energy_drift", "metric to minimize")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, benchCmd, compareCmd,
		sweepCmd, scenarioCmd, monteCarloCmd, gridCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("gravsim failed")
		os.Exit(1)
	}
}

func setupLogging(env config.Env) {
	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil {
		println("failed to parse LogLevel: '" + env.LogLevel + "', setting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !env.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func addSimFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (.yaml, .yml, .gcfg or .ini)")
	f.StringVar(&preset, "preset", "", "start from a preset")
	f.StringVar(&method, "method", def.Simulation.Method, "force method: "+strings.Join(sim.Methods, ", "))
	f.Float64Var(&theta, "theta", def.Simulation.Theta, "opening angle")
	f.Float64Var(&dt, "dt", def.Simulation.Dt, "time step")
	f.IntVar(&steps, "steps", def.Simulation.Steps, "number of steps, 0 runs until interrupted")
	f.IntVar(&dims, "dims", def.Simulation.Dimensions, "spatial dimensions (2 or 3)")
	f.Float64Var(&softening, "softening", def.Simulation.Softening, "softening length")
	f.Float64Var(&merge, "merge", def.Simulation.MergeThreshold, "merge distance, 0 disables merging")
	f.IntVar(&workers, "workers", 0, "worker goroutines, 0 uses every CPU")
	f.StringVar(&genKind, "generator", def.Generator.Kind, "initial population")
	f.IntVar(&bodies, "bodies", def.Generator.N, "number of bodies")
	f.Uint64Var(&seed, "seed", def.Generator.Seed, "generator seed")
}

// loadConfig layers the defaults, a preset, a config file and explicitly
// set flags, in that order. Values the file leaves out keep the preset's.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, errors.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("method") {
		cfg.Simulation.Method = method
	}
	if flags.Changed("theta") {
		cfg.Simulation.Theta = theta
	}
	if flags.Changed("dt") {
		cfg.Simulation.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Simulation.Steps = steps
	}
	if flags.Changed("dims") {
		cfg.Simulation.Dimensions = dims
	}
	if flags.Changed("softening") {
		cfg.Simulation.Softening = softening
	}
	if flags.Changed("merge") {
		cfg.Simulation.MergeThreshold = merge
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers = workers
	}
	if flags.Changed("generator") {
		cfg.Generator.Kind = genKind
	}
	if flags.Changed("bodies") {
		cfg.Generator.N = bodies
	}
	if flags.Changed("seed") {
		cfg.Generator.Seed = seed
	}
	if flags.Changed("name") {
		cfg.Output.Name = runName
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	expCfg := cfg.ExperimentConfig()
	exp := experiment.New(expCfg)
	if err := exp.Setup(); err != nil {
		return err
	}
	initial := len(exp.Bodies())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := exp.Run(ctx)
	switch {
	case errors.Is(err, sim.ErrNumericFault):
		log.Fatal().Err(err).Msg("numerical divergence")
	case errors.Is(err, context.Canceled):
		log.Warn().Msgf("interrupted after %d steps", result.StepsTaken)
	case err != nil:
		return err
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		var series []metrics.Sample
		if exp.Series() != nil {
			series = exp.Series().Samples()
		}
		runID, err := st.Save(storage.Run{
			Name:          cfg.Output.Name,
			Config:        expCfg.Sim,
			Generator:     expCfg.Generator,
			InitialBodies: initial,
			Result:        result,
			Series:        series,
		})
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("steps: %d (%.1f steps/s)\n", result.StepsTaken, result.StepsPerSecond())
	fmt.Printf("bodies: %d -> %d (%d merges)\n", initial, len(result.Bodies), result.Merges)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	printMetrics(os.Stdout, result.Metrics)
	return nil
}

func printMetrics(w io.Writer, values map[string]float64) {
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %g\n", name, values[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expCfg := cfg.ExperimentConfig()
	expCfg.Sim.LogEvery = 0

	exp := experiment.New(expCfg)
	if err := exp.Setup(); err != nil {
		return err
	}

	final, err := viz.Run(exp.GetSimulator(), exp.Bodies(), theme)
	if err != nil {
		return err
	}
	if final.Err() != nil {
		log.Fatal().Err(final.Err()).Msg("numerical divergence")
	}
	fmt.Printf("stopped after %d steps with %d bodies\n", final.Steps(), len(final.Bodies()))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMETHOD\tDIM\tGENERATOR\tBODIES\tSTEPS\tMERGES\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d->%d\t%d\t%d\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			run.Dimensions,
			run.Generator,
			run.InitialBodies,
			run.FinalBodies,
			run.Steps,
			run.Merges,
			run.EnergyDrift,
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
	samples, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return errors.Errorf("run %s has no series to plot", runID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("method: %s, %dD, %d samples\n\n", meta.Method, meta.Dimensions, len(samples))

	plots := []struct {
		caption string
		field   func(metrics.Sample) float64
	}{
		{"bodies", func(s metrics.Sample) float64 { return float64(s.Bodies) }},
		{"total mass", func(s metrics.Sample) float64 { return s.TotalMass }},
		{"total energy", func(s metrics.Sample) float64 { return s.Energy }},
		{"momentum", func(s metrics.Sample) float64 { return s.Momentum }},
	}
	for _, p := range plots {
		data := metrics.Column(samples, p.field)
		if allZero(data) {
			continue
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		))
		fmt.Println()
	}
	return nil
}

func allZero(data []float64) bool {
	for _, v := range data {
		if v != 0 {
			return false
		}
	}
	return true
}

// output returns stdout or the --output file.
func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", outFile)
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	w, done, err := output()
	if err != nil {
		return err
	}
	if withBodies {
		bs, err := st.LoadBodies(args[0])
		if err != nil {
			done()
			return err
		}
		err = storage.WriteBodiesCSV(w, bs)
		if cerr := done(); err == nil {
			err = cerr
		}
		return err
	}

	samples, err := st.LoadSeries(args[0])
	if err != nil {
		done()
		return err
	}
	err = storage.WriteSeriesCSV(w, samples)
	if cerr := done(); err == nil {
		err = cerr
	}
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, done, err := output()
	if err != nil {
		return err
	}
	err = storage.New(dataDir).ExportJSON(args[0], w)
	if cerr := done(); err == nil {
		err = cerr
	}
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tGENERATOR\tBODIES\tDIM\tMETHOD\tSTEPS\tMERGE")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		n := fmt.Sprintf("%d", p.Generator.N)
		if p.Generator.Kind == "solar" {
			n = "3"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%g\n",
			name,
			p.Generator.Kind,
			n,
			p.Simulation.Dimensions,
			p.Simulation.Method,
			p.Simulation.Steps,
			p.Simulation.MergeThreshold,
		)
	}
	return w.Flush()
}

func benchMethods(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("steps") && configFile == "" && preset == "" {
		cfg.Simulation.Steps = 20
	}
	expCfg := cfg.ExperimentConfig()
	expCfg.Sim.LogEvery = 0

	exp := experiment.New(expCfg)
	if err := exp.Setup(); err != nil {
		return err
	}

	fmt.Printf("benchmarking %d bodies in %dD for %d steps\n\n", len(exp.Bodies()), expCfg.Sim.Dimensions, expCfg.Sim.Steps)
	results, err := experiment.Bench(cmd.Context(), expCfg.Sim, exp.Bodies(), sim.Methods)
	if errors.Is(err, sim.ErrNumericFault) {
		log.Fatal().Err(err).Msg("numerical divergence")
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tSTEPS\tTIME\tSTEPS/SEC\tDRIFT")
	for i, res := range results {
		fmt.Fprintf(w, "%s\t%d\t%v\t%.1f\t%.2e\n",
			sim.Methods[i], res.StepsTaken, res.Elapsed, res.StepsPerSecond(), res.EnergyDrift)
	}
	return w.Flush()
}

func compareTheta(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	expCfg := cfg.ExperimentConfig()
	exp := experiment.New(expCfg)
	if err := exp.Setup(); err != nil {
		return err
	}

	rows, err := experiment.CompareForces(expCfg.Sim, exp.Bodies(), thetas)
	if err != nil {
		return err
	}

	fmt.Printf("%d bodies in %dD against the direct sum\n\n", len(exp.Bodies()), expCfg.Sim.Dimensions)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tTHETA\tRMS ERROR\tMAX ERROR\tVISITS\tOF DIRECT")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.2f\t%.2e\t%.2e\t%d\t%.1f%%\n",
			r.Method, r.Theta, r.RMSError, r.MaxError, r.Visits,
			100*float64(r.Visits)/float64(max(r.DirectVisits, 1)))
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(cmd.Context(), automation.ParameterSweep{
		Base:  cfg,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Count: sweepCount,
	})
	if errors.Is(err, sim.ErrNumericFault) {
		log.Fatal().Err(err).Msg("numerical divergence")
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tBODIES\tMERGES\tDRIFT\tSTEPS/SEC\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%d\t%d\t%.2e\t%.1f\n", r.Value, r.Bodies, r.Merges, r.EnergyDrift, r.StepsPerSecond)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	bound := radius
	if bound <= 0 {
		bound = 10 * cfg.Generator.Extent
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), automation.MonteCarloConfig{
		Base:     cfg,
		Trials:   trials,
		Radius:   bound,
		Parallel: parallel,
	})
	if errors.Is(err, sim.ErrNumericFault) {
		log.Fatal().Err(err).Msg("numerical divergence")
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tBODIES\tMERGES\tDRIFT\tBOUND")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.2e\t%v\n", r.Trial, r.Seed, r.Bodies, r.Merges, r.EnergyDrift, r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\n%d bound, %d escaped (radius %g)\n", stable, unstable, bound)
	return nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	grid, err := automation.ParseGrid(gridAxes, gridMetric)
	if err != nil {
		return err
	}
	best, value, err := grid.Search(cmd.Context(), cfg)
	if errors.Is(err, sim.ErrNumericFault) {
		log.Fatal().Err(err).Msg("numerical divergence")
	}
	if err != nil {
		return err
	}

	fmt.Printf("lowest %s: %.4g\n", gridMetric, value)
	for _, name := range grid.Params {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	results, err := automation.RunScenario(cmd.Context(), scenario)
	if errors.Is(err, sim.ErrNumericFault) {
		log.Fatal().Err(err).Msg("numerical divergence")
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n\n", scenario.Name, scenario.Description)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTEPS\tBODIES\tMERGES\tDRIFT")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2e\n",
			r.Name, r.Result.StepsTaken, len(r.Result.Bodies), r.Result.Merges, r.Result.EnergyDrift)
	}
	return w.Flush()
}

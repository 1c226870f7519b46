package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/config"
	"github.com/san-kum/cellsim/internal/dataset"
	"github.com/san-kum/cellsim/internal/dynamo"
	"github.com/san-kum/cellsim/internal/experiment"
	"github.com/san-kum/cellsim/internal/observer"
	"github.com/san-kum/cellsim/internal/report"
	"github.com/san-kum/cellsim/internal/storage"
	"github.com/san-kum/cellsim/internal/sweep"
	"github.com/san-kum/cellsim/internal/viz"
)

var log = logrus.New()

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	dt         float64
	duration   float64
	ambientC   float64
	initialSOC float64
	integrator string
	amps       float64

	datasetDir string
	batteryID  string
	cycle      int
	replay     bool

	fastGain  float64
	learnRate float64

	sweepMetric string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cellsim",
		Short: "lithium-ion cell simulator and adaptive state estimator",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cellsim", "run data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	simulateCmd := &cobra.Command{
		Use:   "simulate [profile]",
		Short: "simulate a discharge under a load profile",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulate,
	}
	addRunFlags(simulateCmd)
	simulateCmd.Flags().Float64Var(&amps, "amps", 1.0, "constant profile current (A)")

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "track a measured discharge with the adaptive estimator",
		RunE:  runEstimate,
	}
	addRunFlags(estimateCmd)
	estimateCmd.Flags().StringVar(&datasetDir, "dataset", "", "NASA archive root (metadata.csv + data/)")
	estimateCmd.Flags().StringVar(&batteryID, "battery", "B0005", "battery id")
	estimateCmd.Flags().IntVar(&cycle, "cycle", 1, "discharge cycle number (1-based)")
	estimateCmd.Flags().Float64Var(&fastGain, "fast-gain", 0, "override fast SOC gain")
	estimateCmd.Flags().Float64Var(&learnRate, "learn-rate", 0, "override resistance learning rate")
	estimateCmd.Flags().BoolVar(&replay, "replay", false, "replay the cycle's current trace physics-only, no correction")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid-search estimator gains against a measured cycle",
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&datasetDir, "dataset", "", "NASA archive root")
	sweepCmd.Flags().StringVar(&batteryID, "battery", "B0005", "battery id")
	sweepCmd.Flags().IntVar(&cycle, "cycle", 1, "discharge cycle number")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "voltage_rmse", "metric to minimize")

	liveCmd := &cobra.Command{
		Use:   "live [profile]",
		Short: "watch a discharge in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().Float64Var(&amps, "amps", 1.0, "constant profile current (A)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "render voltage/SOC/resistance plots for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in run presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(simulateCmd, estimateCmd, sweepCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", 1.0, "timestep (s)")
	cmd.Flags().Float64Var(&duration, "time", 3600, "duration (s)")
	cmd.Flags().Float64Var(&ambientC, "ambient", 25.0, "ambient temperature (°C)")
	cmd.Flags().Float64Var(&initialSOC, "soc", 1.0, "initial state of charge")
	cmd.Flags().StringVar(&integrator, "integrator", "euler", "integrator")
	cmd.Flags().StringVar(&configFile, "config", "", "run config file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "built-in preset name")
}

// resolveConfig layers preset, config file and flags, later sources winning.
func resolveConfig(cmd *cobra.Command, profileName string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("ambient") {
		cfg.AmbientC = ambientC
	}
	if cmd.Flags().Changed("soc") {
		cfg.InitialSOC = initialSOC
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if profileName != "" {
		cfg.Profile.Name = profileName
	}
	if cmd.Flags().Changed("amps") {
		cfg.Profile.Amps = amps
	}
	return cfg, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	profileName := ""
	if len(args) > 0 {
		profileName = args[0]
	}
	cfg, err := resolveConfig(cmd, profileName)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	exp, err := experiment.New(reg, cfg.Experiment(), nil)
	if err != nil {
		return err
	}
	exp.SetLogger(log)

	log.WithFields(logrus.Fields{
		"profile":    cfg.Profile.Name,
		"integrator": cfg.Integrator,
		"duration":   cfg.Duration,
	}).Info("starting simulation")

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	id, err := saveRun("simulate", cfg, result)
	if err != nil {
		return err
	}

	printSummary(result)
	fmt.Printf("\nsaved run %s\n", id)
	return nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, "")
	if err != nil {
		return err
	}
	if datasetDir == "" {
		datasetDir = cfg.Dataset.Dir
	}
	if datasetDir == "" {
		return fmt.Errorf("--dataset is required (NASA archive root)")
	}
	if cfg.Dataset.Battery != "" && !cmd.Flags().Changed("battery") {
		batteryID = cfg.Dataset.Battery
	}
	if cfg.Dataset.Cycle > 0 && !cmd.Flags().Changed("cycle") {
		cycle = cfg.Dataset.Cycle
	}

	loader := dataset.NewLoader(datasetDir)
	samples, meta, err := loader.LoadDischarge(batteryID, cycle)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"battery": batteryID,
		"cycle":   cycle,
		"file":    meta.Filename,
		"samples": len(samples),
	}).Info("loaded discharge cycle")

	if meta.AmbientC != 0 {
		cfg.AmbientC = meta.AmbientC
	}
	ecfg := cfg.Experiment()
	if cmd.Flags().Changed("fast-gain") {
		ecfg.Gains.FastGain = fastGain
	}
	if cmd.Flags().Changed("learn-rate") {
		ecfg.Gains.LearnRate = learnRate
	}
	if replay {
		ecfg.Replay = true
		if !cmd.Flags().Changed("time") && len(samples) > 0 {
			ecfg.Duration = samples[len(samples)-1].Time
		}
	}

	reg := experiment.NewRegistry()
	exp, err := experiment.New(reg, ecfg, samples)
	if err != nil {
		return err
	}
	exp.SetLogger(log)

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	cfg.Dataset = config.DatasetConfig{Dir: datasetDir, Battery: batteryID, Cycle: cycle}
	kind := "estimate"
	if replay {
		kind = "replay"
	}
	id, err := saveRun(kind, cfg, result)
	if err != nil {
		return err
	}

	printSummary(result)
	for _, w := range result.Warnings {
		log.Warn(w.Error())
	}
	fmt.Printf("\nsaved run %s\n", id)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, "")
	if err != nil {
		return err
	}
	if datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}

	loader := dataset.NewLoader(datasetDir)
	samples, _, err := loader.LoadDischarge(batteryID, cycle)
	if err != nil {
		return err
	}

	grid, err := sweep.NewGrid(
		[]string{"fast_gain", "learn_rate"},
		[][]float64{
			{0.005, 0.01, 0.02, 0.05},
			{1e-5, 5e-5, 2e-4},
		},
	)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	s := sweep.New(grid, sweepMetric)

	outcomes, err := s.Run(context.Background(), func(point map[string]float64) (*experiment.Experiment, error) {
		ecfg := cfg.Experiment()
		ecfg.Gains = observer.DefaultGains()
		ecfg.Gains.FastGain = point["fast_gain"]
		ecfg.Gains.LearnRate = point["learn_rate"]
		return experiment.New(reg, ecfg, samples)
	})
	if err != nil {
		return err
	}

	best, err := sweep.Best(outcomes)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "fast_gain\tlearn_rate\t"+sweepMetric)
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%.4g\t%.4g\terror: %v\n", o.Point["fast_gain"], o.Point["learn_rate"], o.Err)
			continue
		}
		fmt.Fprintf(w, "%.4g\t%.4g\t%.6f\n", o.Point["fast_gain"], o.Point["learn_rate"], o.Score)
	}
	w.Flush()

	fmt.Printf("\nbest: fast_gain=%.4g learn_rate=%.4g (%s=%.6f)\n",
		best.Point["fast_gain"], best.Point["learn_rate"], sweepMetric, best.Score)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	profileName := ""
	if len(args) > 0 {
		profileName = args[0]
	}
	cfg, err := resolveConfig(cmd, profileName)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	exp, err := experiment.New(reg, cfg.Experiment(), nil)
	if err != nil {
		return err
	}

	load, err := reg.Profile(cfg.Profile.Name, cfg.Experiment().ProfileParams)
	if err != nil {
		return err
	}

	initial := battery.NewCellState(exp.Params(), cfg.InitialSOC, cfg.AmbientC)
	return viz.Run(exp.Engine(), load, initial, cfg.AmbientC)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no saved runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTEPS\tSKIPPED\tRMSE")
	for _, r := range runs {
		rmse := "-"
		if v, ok := r.Metrics["voltage_rmse"]; ok {
			rmse = fmt.Sprintf("%.5f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Kind, r.Steps, r.Skipped, rmse)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	records, err := st.LoadRecords(args[0])
	if err != nil {
		return err
	}

	paths, err := report.WriteAll(args[0]+"_plots", records)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func saveRun(kind string, cfg *config.Config, result *dynamo.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(storage.RunMetadata{
		Kind:       kind,
		Profile:    cfg.Profile.Name,
		Dataset:    cfg.Dataset.Battery,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
	}, result)
}

func printSummary(result *dynamo.Result) {
	fmt.Printf("steps: %d  skipped: %d\n", result.StepsTaken, result.Skipped)
	for name, v := range result.Metrics {
		fmt.Printf("%s: %.6f\n", name, v)
	}

	if len(result.Records) > 1 {
		voltages := make([]float64, len(result.Records))
		for i, r := range result.Records {
			voltages[i] = r.Voltage
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(voltages,
			asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("terminal voltage (V)")))
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/kimnl/internal/config"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	strategy   string
	workers    int
	numbering  string
	// neighbors
	showAtoms bool
	showPlot  bool
	// bench
	benchLattice string
	benchMaxRep  int
	// plot
	histWidth float64
)

// main registers the kimnl commands and executes the root command, exiting
// with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "kimnl",
		Short:         "periodic neighbor lists and native potential bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kimnl", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", "", "neighbor strategy override (cell-list, brute-force)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "neighbor build workers (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&numbering, "numbering", "", "numbering override (zero, one)")

	computeCmd := &cobra.Command{
		Use:   "compute",
		Short: "evaluate energy and forces and store the run",
		Args:  cobra.NoArgs,
		RunE:  runCompute,
	}

	neighborsCmd := &cobra.Command{
		Use:   "neighbors",
		Short: "build neighbor lists and report statistics",
		Args:  cobra.NoArgs,
		RunE:  runNeighbors,
	}
	neighborsCmd.Flags().BoolVar(&showAtoms, "atoms", false, "print every source atom's neighbors")
	neighborsCmd.Flags().BoolVar(&showPlot, "plot", false, "plot neighbor distance histogram")
	neighborsCmd.Flags().Float64Var(&histWidth, "bin", 0.1, "histogram bin width")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "browse neighbor lists and forces interactively",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-atom force magnitudes of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare neighbor strategies on growing crystals",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().StringVar(&benchLattice, "lattice", "fcc", "lattice kind (sc, bcc, fcc)")
	benchCmd.Flags().IntVar(&benchMaxRep, "max-repeat", 6, "largest repeat per axis")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPresets,
	}

	rootCmd.AddCommand(computeCmd, neighborsCmd, inspectCmd, listCmd, showCmd, plotCmd, benchCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig resolves --preset, then --config, then the default dimer, and
// applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case configFile != "":
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Name == "" || cfg.Name == "dimer" {
			cfg.Name = strings.TrimSuffix(strings.TrimSuffix(baseName(configFile), ".yaml"), ".yml")
		}
	default:
		cfg = config.DefaultConfig()
	}

	if strategy != "" {
		cfg.Neighbors.Strategy = strategy
	}
	if workers > 0 {
		cfg.Neighbors.Workers = workers
	}
	if numbering != "" {
		cfg.Model.Numbering = numbering
	}
	return cfg, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func runPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, name := range config.ListPresets() {
			fmt.Println(name)
		}
		return nil
	}
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s", args[0])
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

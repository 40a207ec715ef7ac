package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/calc"
	"github.com/san-kum/kimnl/internal/config"
	"github.com/san-kum/kimnl/internal/native"
	"github.com/san-kum/kimnl/internal/neighbor"
	"github.com/san-kum/kimnl/internal/storage"
	"github.com/san-kum/kimnl/internal/tui"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
)

func newModel(cfg *config.Config) (*native.Model, error) {
	base, err := cfg.Model.NumberingBase()
	if err != nil {
		return nil, err
	}
	return native.NewLennardJones(native.LJParams{
		Epsilon:               cfg.Model.Epsilon,
		Sigma:                 cfg.Model.Sigma,
		Cutoff:                cfg.Model.Cutoff,
		Species:               cfg.Model.Species,
		Numbering:             base,
		RequestGhostNeighbors: cfg.Model.RequestGhostNeighbors,
		Logger:                slog.Default(),
	})
}

// evaluate runs one calculation for cfg. The returned calculator still holds
// its container; callers close it.
func evaluate(cfg *config.Config) (*native.Model, *calc.Calculator, *atoms.Configuration, *calc.Result, error) {
	conf, err := cfg.Configuration()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	strat, err := neighbor.ParseStrategy(cfg.Neighbors.Strategy)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	model, err := newModel(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	calculator := calc.New(model, calc.Options{Strategy: strat, Workers: cfg.Neighbors.Workers, Logger: slog.Default()})
	result, err := calculator.Calculate(conf)
	if err != nil {
		calculator.Close()
		model.Close()
		return nil, nil, nil, nil, err
	}
	return model, calculator, conf, result, nil
}

func runCompute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	model, calculator, _, result, err := evaluate(cfg)
	if err != nil {
		return err
	}
	defer model.Close()
	defer calculator.Close()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Config:    cfg.Name,
		Model:     model.Name(),
		Cutoff:    cfg.Model.Cutoff,
		Numbering: model.Numbering().String(),
		Strategy:  cfg.Neighbors.Strategy,
		Atoms:     result.NumReal,
		Ghosts:    result.NumGhosts,
		Energy:    result.Energy,
		MaxForce:  result.MaxForce(),
		Virial:    result.Virial,
		Queries:   result.Queries,
		BuildMs:   float64(result.BuildTime.Microseconds()) / 1000,
		CalcMs:    float64(result.CalcTime.Microseconds()) / 1000,
	}, result.Forces)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	fmt.Println(titleStyle.Render(cfg.Name))
	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
	}
	row("run id", runID)
	row("atoms", fmt.Sprintf("%d real, %d ghost", result.NumReal, result.NumGhosts))
	row("energy", fmt.Sprintf("%.10g eV", result.Energy))
	row("max |F|", fmt.Sprintf("%.6g eV/Å", result.MaxForce()))
	row("virial", fmt.Sprintf("%.6g", result.Virial))
	row("queries", fmt.Sprintf("%d", result.Queries))
	row("build", result.BuildTime.String())
	row("compute", result.CalcTime.String())
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model, calculator, conf, result, err := evaluate(cfg)
	if err != nil {
		return err
	}
	defer model.Close()
	defer calculator.Close()

	snap, err := tui.FromContainer(cfg.Name, calculator.Container(), conf.Species, result.Forces)
	if err != nil {
		return err
	}
	if err := tui.Run(snap); err != nil {
		fmt.Fprintln(os.Stderr, "inspector:", err)
		return err
	}
	return nil
}

package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/ghost"
	"github.com/san-kum/kimnl/internal/native"
	"github.com/san-kum/kimnl/internal/neighbor"
	"github.com/san-kum/kimnl/internal/nlist"
	"github.com/san-kum/kimnl/internal/tui"
)

func runNeighbors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conf, err := cfg.Configuration()
	if err != nil {
		return err
	}
	strat, err := neighbor.ParseStrategy(cfg.Neighbors.Strategy)
	if err != nil {
		return err
	}
	model, err := newModel(cfg)
	if err != nil {
		return err
	}
	defer model.Close()

	setup := model.Setup(strat, cfg.Neighbors.Workers)
	setup.Cutoffs = cfg.NeighborCutoffs()

	start := time.Now()
	c, err := nlist.Build(conf, setup)
	if err != nil {
		return err
	}
	defer c.Close()
	elapsed := time.Since(start)

	widths, err := ghost.PerpendicularWidths(conf.Cell, conf.PBC)
	if err != nil {
		return err
	}

	fmt.Printf("config: %s\n", cfg.Name)
	fmt.Printf("atoms: %d real, %d ghost\n", c.NumReal(), c.NumGhosts())
	fmt.Printf("pbc: %v  widths: %s\n", conf.PBC, formatWidths(widths))
	fmt.Printf("strategy: %s  numbering: %s  built in %v\n\n", strat, c.Numbering(), elapsed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LIST\tCUTOFF\tPAIRS\tMIN\tMEAN\tMAX")
	for k, rc := range c.Cutoffs() {
		lo, hi, total := math.MaxInt, 0, 0
		for i := 0; i < c.NumSources(); i++ {
			idx, err := c.Neighbors(k, i+int(c.Numbering().Base()))
			if err != nil {
				return err
			}
			lo, hi, total = min(lo, len(idx)), max(hi, len(idx)), total+len(idx)
		}
		if c.NumSources() == 0 {
			lo = 0
		}
		mean := 0.0
		if c.NumSources() > 0 {
			mean = float64(total) / float64(c.NumSources())
		}
		fmt.Fprintf(w, "%d\t%.4f\t%d\t%d\t%.2f\t%d\n", k, rc, total, lo, mean, hi)
	}
	w.Flush()

	if showAtoms {
		if err := printAtomNeighbors(c); err != nil {
			return err
		}
	}

	if showPlot && c.NumReal() > 0 {
		snap, err := tui.FromContainer(cfg.Name, c, conf.Species, nil)
		if err != nil {
			return err
		}
		last := len(snap.Cutoffs) - 1
		for k, rc := range snap.Cutoffs {
			if rc > snap.Cutoffs[last] {
				last = k
			}
		}
		hist := snap.ShellHistogram(last, histWidth)
		fmt.Println()
		fmt.Println(asciigraph.Plot(hist,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("neighbors per %.2f Å shell, rc %.3f", histWidth, snap.Cutoffs[last]))))
	}
	return nil
}

// printAtomNeighbors reads every list through the native callback, the same
// path a model takes during compute.
func printAtomNeighbors(c *nlist.Container) error {
	b, err := native.Bind(c, nil)
	if err != nil {
		return err
	}
	defer b.Release()

	base := int(c.Numbering().Base())
	fmt.Println()
	for k := 0; k < c.NumLists(); k++ {
		fmt.Printf("list %d:\n", k)
		for i := 0; i < c.NumSources(); i++ {
			idx, err := b.Query(k, i+base)
			if err != nil {
				return err
			}
			fmt.Printf("  %5d: %v\n", i+base, idx)
		}
	}
	return nil
}

func formatWidths(w [3]float64) string {
	s := ""
	for k, v := range w {
		if k > 0 {
			s += " "
		}
		if math.IsInf(v, 1) {
			s += "-"
		} else {
			s += fmt.Sprintf("%.4f", v)
		}
	}
	return s
}

var benchLatticeParams = map[string]float64{
	"sc":  3.4,
	"bcc": 4.2,
	"fcc": 5.26,
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, ok := benchLatticeParams[benchLattice]
	if !ok {
		return fmt.Errorf("unknown lattice: %s (available: %v)", benchLattice, atoms.Lattices())
	}
	rc := cfg.Model.Cutoff

	fmt.Printf("benchmarking %s lattice, a = %.2f, rc = %.2f\n\n", benchLattice, a, rc)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPEAT\tATOMS\tGHOSTS\tCELL-LIST\tBRUTE-FORCE\tSPEEDUP")

	for rep := 1; rep <= benchMaxRep; rep++ {
		conf, err := atoms.Bulk(benchLattice, "Ar", a, [3]int{rep, rep, rep})
		if err != nil {
			return err
		}
		set, err := ghost.Generate(conf, rc)
		if err != nil {
			return err
		}

		var times [2]time.Duration
		for s, strat := range []neighbor.Strategy{neighbor.CellList, neighbor.BruteForce} {
			start := time.Now()
			if _, err := neighbor.Build(set.Positions(), set.NumReal(), []float64{rc}, neighbor.Options{Strategy: strat, Workers: cfg.Neighbors.Workers}); err != nil {
				return err
			}
			times[s] = time.Since(start)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%v\t%.1fx\n",
			rep, set.NumReal(), set.NumGhosts(), times[0], times[1],
			float64(times[1])/float64(max(times[0], 1)))
	}
	return w.Flush()
}

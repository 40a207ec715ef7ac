package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/kimnl/internal/storage"
)

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
	fmt.Fprintln(w, "ID\tCONFIG\tTIME\tATOMS\tGHOSTS\tENERGY\tMAX|F|")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.6g\t%.4g\n",
			r.ID, r.Config, r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Atoms, r.Ghosts, r.Energy, r.MaxForce)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	forces, err := st.LoadForces(args[0])
	if err != nil {
		return err
	}
	if len(forces) == 0 {
		return fmt.Errorf("no data to plot")
	}

	mags := make([]float64, len(forces))
	for i, f := range forces {
		mags[i] = math.Sqrt(f[0]*f[0] + f[1]*f[1] + f[2]*f[2])
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("config: %s\n", meta.Config)
	fmt.Printf("atoms: %d\n\n", len(forces))
	fmt.Println(asciigraph.Plot(mags,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("|F| per atom (eV/Å)")))
	return nil
}

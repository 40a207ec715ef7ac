package config

import "sort"

var Presets = map[string]*Config{
	"dimer": DefaultConfig(),
	"fcc-argon": {
		Name:    "fcc-argon",
		Lattice: &LatticeConfig{Kind: "fcc", Symbol: "Ar", A: 5.26, Repeat: [3]int{3, 3, 3}},
		Model: ModelConfig{
			Epsilon: DefaultEpsilon, Sigma: DefaultSigma, Cutoff: 8.5,
			Species: []string{"Ar"}, Numbering: "zero",
		},
		Neighbors: NeighborsConfig{Strategy: "cell-list", ExtraCutoffs: []float64{3.8, 5.3}},
	},
	"sc-argon": {
		Name:    "sc-argon",
		Lattice: &LatticeConfig{Kind: "sc", Symbol: "Ar", A: 3.4, Repeat: [3]int{1, 1, 1}},
		Model: ModelConfig{
			Epsilon: DefaultEpsilon, Sigma: DefaultSigma, Cutoff: 6.0,
			Species: []string{"Ar"}, Numbering: "one",
		},
		Neighbors: NeighborsConfig{Strategy: "cell-list", ExtraCutoffs: []float64{3.5, 4.9}},
	},
	"slab": {
		Name: "slab",
		Atoms: []AtomConfig{
			{Symbol: "Ar", Position: [3]float64{0, 0, 0}},
			{Symbol: "Ar", Position: [3]float64{1.9, 1.9, 0}},
			{Symbol: "Ar", Position: [3]float64{0, 1.9, 1.9}},
			{Symbol: "Ar", Position: [3]float64{1.9, 0, 1.9}},
		},
		Cell: [3][3]float64{{3.8, 0, 0}, {0, 3.8, 0}, {0, 0, 0}},
		PBC:  [3]bool{true, true, false},
		Model: ModelConfig{
			Epsilon: DefaultEpsilon, Sigma: DefaultSigma, Cutoff: 5.0,
			Species: []string{"Ar"}, Numbering: "zero", RequestGhostNeighbors: true,
		},
		Neighbors: NeighborsConfig{Strategy: "brute-force"},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *p
	if p.Lattice != nil {
		l := *p.Lattice
		cp.Lattice = &l
	}
	cp.Atoms = append([]AtomConfig(nil), p.Atoms...)
	cp.Model.Species = append([]string(nil), p.Model.Species...)
	cp.Neighbors.ExtraCutoffs = append([]float64(nil), p.Neighbors.ExtraCutoffs...)
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

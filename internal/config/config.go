package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/kimnl/internal/atoms"
)

const (
	DefaultEpsilon = 0.0104
	DefaultSigma   = 3.40
	DefaultCutoff  = 3.0
	DefaultSymbol  = "Ar"
)

type Config struct {
	Name      string          `yaml:"name"`
	Lattice   *LatticeConfig  `yaml:"lattice,omitempty"`
	Atoms     []AtomConfig    `yaml:"atoms,omitempty"`
	Cell      [3][3]float64   `yaml:"cell"`
	PBC       [3]bool         `yaml:"pbc"`
	Model     ModelConfig     `yaml:"model"`
	Neighbors NeighborsConfig `yaml:"neighbors"`
}

// LatticeConfig replaces Atoms, Cell and PBC with a generated cubic crystal.
type LatticeConfig struct {
	Kind   string  `yaml:"kind"`
	Symbol string  `yaml:"symbol"`
	A      float64 `yaml:"a"`
	Repeat [3]int  `yaml:"repeat"`
}

type AtomConfig struct {
	Symbol   string     `yaml:"symbol"`
	Position [3]float64 `yaml:"position"`
}

type ModelConfig struct {
	Epsilon               float64  `yaml:"epsilon"`
	Sigma                 float64  `yaml:"sigma"`
	Cutoff                float64  `yaml:"cutoff"`
	Species               []string `yaml:"species"`
	Numbering             string   `yaml:"numbering"`
	RequestGhostNeighbors bool     `yaml:"request_ghost_neighbors"`
}

type NeighborsConfig struct {
	Strategy string `yaml:"strategy"`
	Workers  int    `yaml:"workers"`
	// ExtraCutoffs are listed by the neighbors command alongside the model cutoff.
	ExtraCutoffs []float64 `yaml:"extra_cutoffs,omitempty"`
}

// DefaultConfig is the non-periodic argon dimer.
func DefaultConfig() *Config {
	return &Config{
		Name: "dimer",
		Atoms: []AtomConfig{
			{Symbol: DefaultSymbol, Position: [3]float64{0, 0, 0}},
			{Symbol: DefaultSymbol, Position: [3]float64{2.35, 0, 0}},
		},
		Cell: [3][3]float64{{10, 0, 0}, {0, 10, 0}, {0, 0, 10}},
		Model: ModelConfig{
			Epsilon:   DefaultEpsilon,
			Sigma:     DefaultSigma,
			Cutoff:    DefaultCutoff,
			Species:   []string{DefaultSymbol},
			Numbering: "zero",
		},
		Neighbors: NeighborsConfig{Strategy: "cell-list"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// an explicit atom list in the file replaces the default dimer
	cfg.Atoms = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Configuration converts the file form into the build input. Cell rows in
// the file are lattice vectors.
func (c *Config) Configuration() (*atoms.Configuration, error) {
	if c.Lattice != nil {
		l := c.Lattice
		symbol := l.Symbol
		if symbol == "" {
			symbol = DefaultSymbol
		}
		return atoms.Bulk(l.Kind, symbol, l.A, l.Repeat)
	}

	out := &atoms.Configuration{
		Cell: atoms.CellFromVectors(atoms.Vec3(c.Cell[0]), atoms.Vec3(c.Cell[1]), atoms.Vec3(c.Cell[2])),
		PBC:  atoms.PBC(c.PBC),
	}
	for _, a := range c.Atoms {
		out.Species = append(out.Species, a.Symbol)
		out.Positions = append(out.Positions, atoms.Vec3(a.Position))
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m ModelConfig) NumberingBase() (atoms.Numbering, error) {
	return atoms.ParseNumbering(m.Numbering)
}

// NeighborCutoffs is the model cutoff followed by any extra cutoffs.
func (c *Config) NeighborCutoffs() []float64 {
	return append([]float64{c.Model.Cutoff}, c.Neighbors.ExtraCutoffs...)
}

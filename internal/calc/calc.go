// Package calc sequences one potential evaluation: species check and
// container build, native compute, and force scatter-back. The container is
// kept and reused while the configuration does not change.
package calc

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/native"
	"github.com/san-kum/kimnl/internal/neighbor"
	"github.com/san-kum/kimnl/internal/nlist"
)

type Options struct {
	Strategy neighbor.Strategy
	Workers  int
	Logger   *slog.Logger
}

type Result struct {
	Energy float64
	// Forces has one entry per real atom, ghost contributions folded in.
	Forces []atoms.Vec3
	// Virial is in Voigt order (xx, yy, zz, yz, xz, xy).
	Virial    [6]float64
	NumReal   int
	NumGhosts int
	Queries   int
	Rebuilt   bool
	BuildTime time.Duration
	CalcTime  time.Duration
}

// MaxForce returns the largest per-atom force magnitude.
func (r *Result) MaxForce() float64 {
	m := 0.0
	for _, f := range r.Forces {
		m = max(m, f.Norm())
	}
	return m
}

type Calculator struct {
	model  *native.Model
	opts   Options
	logger *slog.Logger

	last      *atoms.Configuration
	container *nlist.Container
}

func New(model *native.Model, opts Options) *Calculator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{model: model, opts: opts, logger: logger}
}

// Container returns the container built for the last configuration, or nil.
func (c *Calculator) Container() *nlist.Container { return c.container }

// Calculate evaluates energy and forces for cfg.
func (c *Calculator) Calculate(cfg *atoms.Configuration) (*Result, error) {
	res := &Result{}

	if c.container == nil || !sameConfiguration(c.last, cfg) {
		if err := c.closeContainer(); err != nil {
			return nil, err
		}
		start := time.Now()
		cont, err := nlist.Build(cfg, c.model.Setup(c.opts.Strategy, c.opts.Workers))
		if err != nil {
			return nil, fmt.Errorf("build neighbor container: %w", err)
		}
		c.container = cont
		c.last = cloneConfiguration(cfg)
		res.Rebuilt = true
		res.BuildTime = time.Since(start)
	}

	start := time.Now()
	out, err := c.model.Compute(c.container)
	if err != nil {
		return nil, err
	}
	raw := out.Forces
	forces, err := c.container.Scatter(raw)
	if err != nil {
		return nil, err
	}
	virial, err := c.container.Virial(raw)
	if err != nil {
		return nil, err
	}
	res.CalcTime = time.Since(start)

	res.Energy = out.Energy
	res.Virial = virial
	res.NumReal = c.container.NumReal()
	res.NumGhosts = c.container.NumGhosts()
	res.Queries = out.Queries
	res.Forces = make([]atoms.Vec3, res.NumReal)
	for i := range res.Forces {
		res.Forces[i] = atoms.Vec3{forces[3*i], forces[3*i+1], forces[3*i+2]}
	}

	c.logger.Info("calculation finished",
		"model", c.model.Name(),
		"atoms", res.NumReal,
		"ghosts", res.NumGhosts,
		"energy", res.Energy,
		"rebuilt", res.Rebuilt)
	return res, nil
}

// Close releases the cached container. The model stays owned by the caller.
func (c *Calculator) Close() error {
	return c.closeContainer()
}

func (c *Calculator) closeContainer() error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Close(); err != nil {
		return err
	}
	c.container, c.last = nil, nil
	return nil
}

func sameConfiguration(a, b *atoms.Configuration) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Cell == b.Cell && a.PBC == b.PBC &&
		slices.Equal(a.Species, b.Species) &&
		slices.Equal(a.Positions, b.Positions)
}

func cloneConfiguration(cfg *atoms.Configuration) *atoms.Configuration {
	return &atoms.Configuration{
		Species:   slices.Clone(cfg.Species),
		Positions: slices.Clone(cfg.Positions),
		Cell:      cfg.Cell,
		PBC:       cfg.PBC,
	}
}

// Package nlist owns the flat buffers handed to a native potential: real and
// ghost coordinates, species codes, contributing flags and one CSR neighbor
// list per model cutoff.
package nlist

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/ghost"
	"github.com/san-kum/kimnl/internal/neighbor"
)

// SpeciesCoder maps a species symbol to the code the native model expects.
type SpeciesCoder func(symbol string) (int32, bool)

// Setup is what the model collaborator supplies for a build.
type Setup struct {
	Cutoffs []float64
	// WillNotRequestGhostNeighbors limits list sources to real atoms.
	WillNotRequestGhostNeighbors bool
	Numbering                    atoms.Numbering
	SpeciesCode                  SpeciesCoder

	Strategy neighbor.Strategy
	Workers  int
	Logger   *slog.Logger
}

const (
	stateIdle int32 = iota
	stateBusy
	stateClosed
)

type list struct {
	cutoff  float64
	offsets []int32
	// indices carries one trailing sentinel so an empty neighbor set still
	// has an addressable element.
	indices []int32
}

// Container is built once per configuration and may serve several compute
// calls, one at a time. Buffers are never resized after Build.
type Container struct {
	numbering    atoms.Numbering
	nReal        int
	nSources     int
	coords       []float64
	species      []int32
	contributing []int32
	source       []int32
	lists        []list

	state atomic.Int32
}

// Build maps species, generates ghosts for the largest cutoff and builds
// every neighbor list. All setup errors surface here.
func Build(cfg *atoms.Configuration, setup Setup) (*Container, error) {
	logger := setup.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !setup.Numbering.Valid() {
		return nil, fmt.Errorf("%w: invalid numbering %v", atoms.ErrConfiguration, setup.Numbering)
	}
	if len(setup.Cutoffs) == 0 {
		return nil, fmt.Errorf("%w: model declares no cutoffs", atoms.ErrConfiguration)
	}
	rmax := 0.0
	for i, rc := range setup.Cutoffs {
		if !(rc > 0) || math.IsInf(rc, 1) {
			return nil, fmt.Errorf("%w: cutoff %d must be positive and finite, got %v", atoms.ErrConfiguration, i, rc)
		}
		rmax = math.Max(rmax, rc)
	}
	if setup.SpeciesCode == nil {
		return nil, fmt.Errorf("%w: no species mapping", atoms.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	realCodes := make([]int32, cfg.Len())
	for i, s := range cfg.Species {
		code, ok := setup.SpeciesCode(s)
		if !ok {
			return nil, &atoms.SpeciesError{Index: i, Symbol: s}
		}
		realCodes[i] = code
	}

	start := time.Now()
	set, err := ghost.Generate(cfg, rmax)
	if err != nil {
		return nil, err
	}

	nSources := set.NumReal()
	if !setup.WillNotRequestGhostNeighbors {
		nSources = set.Len()
	}
	built, err := neighbor.Build(set.Positions(), nSources, setup.Cutoffs, neighbor.Options{
		Strategy: setup.Strategy,
		Workers:  setup.Workers,
	})
	if err != nil {
		return nil, err
	}

	c := newContainer(set, realCodes, built, setup.Numbering)
	c.nSources = nSources

	logger.Debug("built neighbor container",
		"real", c.nReal,
		"ghosts", c.NumGhosts(),
		"sources", nSources,
		"lists", len(c.lists),
		"shells", set.Shells(),
		"numbering", setup.Numbering.String(),
		"elapsed", time.Since(start))
	return c, nil
}

func newContainer(set *ghost.Set, realCodes []int32, built []neighbor.List, numbering atoms.Numbering) *Container {
	n := set.Len()
	c := &Container{
		numbering:    numbering,
		nReal:        set.NumReal(),
		coords:       make([]float64, 3*n),
		species:      make([]int32, n),
		contributing: make([]int32, n),
		source:       make([]int32, n),
		lists:        make([]list, len(built)),
	}
	for i, p := range set.Positions() {
		c.coords[3*i], c.coords[3*i+1], c.coords[3*i+2] = p[0], p[1], p[2]
		src := set.Source(i)
		c.source[i] = int32(src)
		c.species[i] = realCodes[src]
		if i < c.nReal {
			c.contributing[i] = 1
		}
	}

	base := numbering.Base()
	for k, l := range built {
		idx := make([]int32, len(l.Indices)+1)
		for m, j := range l.Indices {
			idx[m] = j + base
		}
		c.lists[k] = list{cutoff: l.Cutoff, offsets: l.Offsets, indices: idx}
	}
	return c
}

func (c *Container) NumReal() int      { return c.nReal }
func (c *Container) NumParticles() int { return len(c.species) }
func (c *Container) NumGhosts() int    { return len(c.species) - c.nReal }
func (c *Container) NumLists() int     { return len(c.lists) }

// NumSources is the number of particles that may be queried.
func (c *Container) NumSources() int { return c.nSources }

func (c *Container) Numbering() atoms.Numbering { return c.numbering }

func (c *Container) Cutoffs() []float64 {
	out := make([]float64, len(c.lists))
	for k, l := range c.lists {
		out[k] = l.cutoff
	}
	return out
}

// Coordinates is the row-major x0 y0 z0 x1 ... buffer. Read only.
func (c *Container) Coordinates() []float64 { return c.coords }

// SpeciesCodes holds one model species code per real and ghost atom. Read only.
func (c *Container) SpeciesCodes() []int32 { return c.species }

// Contributing is 1 for real atoms and 0 for ghosts. Read only.
func (c *Container) Contributing() []int32 { return c.contributing }

// Source returns the real atom that particle i (zero-based) images.
func (c *Container) Source(i int) (int, error) {
	if c.state.Load() == stateClosed {
		return 0, fmt.Errorf("source lookup on closed container: %w", atoms.ErrLifetime)
	}
	if i < 0 || i >= len(c.source) {
		return 0, fmt.Errorf("%w: particle %d outside [0,%d)", atoms.ErrOutOfRange, i, len(c.source))
	}
	return int(c.source[i]), nil
}

// Buffers exposes every backing array that native code may hold a pointer to.
type Buffers struct {
	Coordinates  []float64
	Species      []int32
	Contributing []int32
	Neighbors    [][]int32
}

func (c *Container) Buffers() Buffers {
	b := Buffers{
		Coordinates:  c.coords,
		Species:      c.species,
		Contributing: c.contributing,
		Neighbors:    make([][]int32, len(c.lists)),
	}
	for k, l := range c.lists {
		b.Neighbors[k] = l.indices
	}
	return b
}

// Neighbors answers a native neighbor query. particle and the returned
// indices use the container's numbering. The returned slice aliases the
// container buffer; its capacity always covers at least one element.
func (c *Container) Neighbors(listIndex, particle int) ([]int32, error) {
	if c.state.Load() == stateClosed {
		return nil, fmt.Errorf("neighbor query on closed container: %w", atoms.ErrLifetime)
	}
	if listIndex < 0 || listIndex >= len(c.lists) {
		return nil, &atoms.QueryError{List: listIndex, Particle: particle, Reason: fmt.Sprintf("list index outside [0,%d)", len(c.lists))}
	}
	i := particle - int(c.numbering.Base())
	if i < 0 || i >= c.nSources {
		return nil, &atoms.QueryError{List: listIndex, Particle: particle, Reason: fmt.Sprintf("particle outside %d sources", c.nSources)}
	}
	l := &c.lists[listIndex]
	return l.indices[l.offsets[i]:l.offsets[i+1]], nil
}

// Acquire marks the container as held by one native computation.
func (c *Container) Acquire() error {
	if c.state.CompareAndSwap(stateIdle, stateBusy) {
		return nil
	}
	if c.state.Load() == stateClosed {
		return fmt.Errorf("acquire closed container: %w", atoms.ErrLifetime)
	}
	return atoms.ErrBusy
}

// Done ends the computation started by Acquire.
func (c *Container) Done() {
	c.state.CompareAndSwap(stateBusy, stateIdle)
}

// Close drops the buffers. It refuses while a computation holds them.
func (c *Container) Close() error {
	for {
		switch c.state.Load() {
		case stateClosed:
			return nil
		case stateBusy:
			return fmt.Errorf("close during native computation: %w", atoms.ErrLifetime)
		}
		if c.state.CompareAndSwap(stateIdle, stateClosed) {
			break
		}
	}
	c.coords, c.species, c.contributing, c.source, c.lists = nil, nil, nil, nil, nil
	return nil
}

func (c *Container) Closed() bool { return c.state.Load() == stateClosed }

package native

/*
#include <stdlib.h>
#include "kimnl.h"
*/
import "C"

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
	"unsafe"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/neighbor"
	"github.com/san-kum/kimnl/internal/nlist"
)

// Model is a handle to a native potential. It owns the native parameter
// buffer from creation until Close.
type Model struct {
	name      string
	species   []string
	codes     map[string]int32
	cutoffs   []float64
	ghosts    bool
	numbering atoms.Numbering
	logger    *slog.Logger

	mu      sync.Mutex
	compute C.kimnl_compute_fn
	buffer  unsafe.Pointer
}

// LJParams configures the built-in Lennard-Jones model.
type LJParams struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64
	Species []string
	// Numbering is the index base the model works in.
	Numbering atoms.Numbering
	// RequestGhostNeighbors makes the container build lists for ghosts too.
	RequestGhostNeighbors bool
	Logger                *slog.Logger
}

func DefaultLJParams() LJParams {
	return LJParams{
		Epsilon: 0.0104,
		Sigma:   3.40,
		Cutoff:  8.50,
		Species: []string{"Ar"},
	}
}

// NewLennardJones creates a truncated, shifted Lennard-Jones model.
func NewLennardJones(p LJParams) (*Model, error) {
	if !(p.Epsilon >= 0) || !(p.Sigma > 0) || !(p.Cutoff > 0) || math.IsInf(p.Cutoff, 1) {
		return nil, fmt.Errorf("%w: lennard-jones needs epsilon >= 0, sigma > 0, finite cutoff > 0", atoms.ErrConfiguration)
	}
	if !p.Numbering.Valid() {
		return nil, fmt.Errorf("%w: invalid numbering %v", atoms.ErrConfiguration, p.Numbering)
	}
	if len(p.Species) == 0 {
		return nil, fmt.Errorf("%w: model supports no species", atoms.ErrConfiguration)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Model{
		name:      "lennard-jones",
		species:   append([]string(nil), p.Species...),
		codes:     make(map[string]int32, len(p.Species)),
		cutoffs:   []float64{p.Cutoff},
		ghosts:    p.RequestGhostNeighbors,
		numbering: p.Numbering,
		logger:    logger,
		compute:   C.kimnl_lj_compute(),
	}
	for i, s := range p.Species {
		if _, dup := m.codes[s]; dup {
			return nil, fmt.Errorf("%w: species %q listed twice", atoms.ErrConfiguration, s)
		}
		m.codes[s] = int32(i)
	}

	sr6 := math.Pow(p.Sigma/p.Cutoff, 6)
	params := (*C.kimnl_lj_params)(C.malloc(C.size_t(unsafe.Sizeof(C.kimnl_lj_params{}))))
	params.epsilon = C.double(p.Epsilon)
	params.sigma = C.double(p.Sigma)
	params.cutoff = C.double(p.Cutoff)
	params.shift = C.double(4 * p.Epsilon * (sr6*sr6 - sr6))
	m.buffer = unsafe.Pointer(params)

	logger.Debug("created native model", "model", m.name, "cutoff", p.Cutoff, "species", m.species)
	return m, nil
}

func (m *Model) Name() string { return m.name }

func (m *Model) Species() []string { return append([]string(nil), m.species...) }

func (m *Model) Cutoffs() []float64 { return append([]float64(nil), m.cutoffs...) }

// InfluenceDistance is the largest cutoff; ghosts are generated to this reach.
func (m *Model) InfluenceDistance() float64 {
	d := 0.0
	for _, rc := range m.cutoffs {
		d = math.Max(d, rc)
	}
	return d
}

func (m *Model) WillNotRequestGhostNeighbors() bool { return !m.ghosts }

func (m *Model) Numbering() atoms.Numbering { return m.numbering }

// SpeciesCode maps a symbol to the model's species code.
func (m *Model) SpeciesCode(symbol string) (int32, bool) {
	code, ok := m.codes[symbol]
	return code, ok
}

// Setup describes how containers for this model must be built.
func (m *Model) Setup(strategy neighbor.Strategy, workers int) nlist.Setup {
	return nlist.Setup{
		Cutoffs:                      m.Cutoffs(),
		WillNotRequestGhostNeighbors: m.WillNotRequestGhostNeighbors(),
		Numbering:                    m.numbering,
		SpeciesCode:                  m.SpeciesCode,
		Strategy:                     strategy,
		Workers:                      workers,
		Logger:                       m.logger,
	}
}

// Output is the raw result of one native computation, laid out like the
// container: forces has one triple per real and ghost particle.
type Output struct {
	Energy   float64
	Forces   []float64
	Queries  int
	Refused  int
	Duration time.Duration
}

// Compute runs the native model on c. The container is pinned and held for
// the duration of the call and released before Compute returns.
func (m *Model) Compute(c *nlist.Container) (*Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.buffer == nil {
		return nil, fmt.Errorf("compute on closed model: %w", atoms.ErrLifetime)
	}
	if c.Closed() {
		return nil, fmt.Errorf("compute on closed container: %w", atoms.ErrLifetime)
	}
	if c.NumLists() != len(m.cutoffs) {
		return nil, fmt.Errorf("%w: container has %d lists, model needs %d", atoms.ErrConfiguration, c.NumLists(), len(m.cutoffs))
	}
	if c.Numbering() != m.numbering {
		return nil, fmt.Errorf("%w: container numbering %v, model numbering %v", atoms.ErrConfiguration, c.Numbering(), m.numbering)
	}

	b, err := Bind(c, m.logger)
	if err != nil {
		return nil, err
	}
	defer b.Release()

	start := time.Now()
	status := C.kimnl_call_compute(m.compute, m.buffer, b.args)
	out := &Output{Duration: time.Since(start)}
	out.Queries, out.Refused = b.Queries()
	if status != 0 {
		return nil, fmt.Errorf("%s returned status %d after %d neighbor queries: %w", m.name, int(status), out.Queries, atoms.ErrCompute)
	}

	out.Energy = b.energy[0]
	out.Forces = append([]float64(nil), b.forces...)
	m.logger.Debug("native compute finished",
		"model", m.name,
		"particles", c.NumParticles(),
		"queries", out.Queries,
		"energy", out.Energy,
		"elapsed", out.Duration)
	return out, nil
}

// Close frees the native parameter buffer.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buffer != nil {
		C.free(m.buffer)
		m.buffer = nil
	}
	return nil
}

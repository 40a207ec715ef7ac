package atoms

import (
	"errors"
	"fmt"
)

// Domain errors shared by the build and compute path.
var (
	// ErrConfiguration indicates bad setup input: cutoffs, numbering, cell or array shapes.
	ErrConfiguration = errors.New("atoms: invalid configuration")

	// ErrUnsupportedSpecies indicates a species the active model does not know.
	ErrUnsupportedSpecies = errors.New("atoms: species not supported by model")

	// ErrOutOfRange indicates a neighbor query with an invalid list or particle index.
	ErrOutOfRange = errors.New("atoms: neighbor query out of range")

	// ErrLifetime indicates use of a container that is closed or still held by a native call.
	ErrLifetime = errors.New("atoms: container lifetime violation")

	// ErrBusy indicates a second computation on a container already in use.
	ErrBusy = errors.New("atoms: container already in use by a computation")

	// ErrCompute indicates the native model reported failure.
	ErrCompute = errors.New("atoms: native compute failed")
)

// SpeciesError names the first atom whose species could not be mapped.
type SpeciesError struct {
	Index  int
	Symbol string
}

func (e *SpeciesError) Error() string {
	return fmt.Sprintf("atom %d: %q: %v", e.Index, e.Symbol, ErrUnsupportedSpecies)
}

func (e *SpeciesError) Unwrap() error { return ErrUnsupportedSpecies }

// QueryError records a rejected neighbor query.
type QueryError struct {
	List     int
	Particle int
	Reason   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("list %d particle %d: %s: %v", e.List, e.Particle, e.Reason, ErrOutOfRange)
}

func (e *QueryError) Unwrap() error { return ErrOutOfRange }

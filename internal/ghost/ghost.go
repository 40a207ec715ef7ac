// Package ghost replicates real atoms across periodic images so that every
// atom within the largest cutoff of a real atom is present explicitly.
package ghost

import (
	"fmt"
	"math"

	"github.com/san-kum/kimnl/internal/atoms"
)

// reachMargin widens the fractional search window so images sitting exactly
// at the cutoff are not lost to rounding in the reciprocal vectors.
const reachMargin = 1e-9

// MaxAtoms caps real+ghost atoms for one build.
const MaxAtoms = 1 << 26

// Atom is a periodic image of a real atom.
type Atom struct {
	Source  int
	Shift   [3]int
	Species string
}

// Set holds real atoms at [0, NumReal) followed by ghosts.
type Set struct {
	nReal     int
	positions []atoms.Vec3
	species   []string
	source    []int
	shifts    [][3]int
	shells    [3]int
}

// Len is the number of real and ghost atoms.
func (s *Set) Len() int       { return len(s.positions) }
func (s *Set) NumReal() int   { return s.nReal }
func (s *Set) NumGhosts() int { return len(s.positions) - s.nReal }

// Positions returns real and ghost positions. Callers must not modify it.
func (s *Set) Positions() []atoms.Vec3 { return s.positions }

// Species returns real and ghost species. Callers must not modify it.
func (s *Set) Species() []string { return s.species }

// Source returns the real atom that atom i is an image of.
func (s *Set) Source(i int) int { return s.source[i] }

// Shift is the lattice translation that maps atom i's source onto it.
func (s *Set) Shift(i int) [3]int { return s.shifts[i] }

// Shells is the image search range [-n, n] used along each axis.
func (s *Set) Shells() [3]int { return s.shells }

// Ghosts lists the ghost records in index order.
func (s *Set) Ghosts() []Atom {
	out := make([]Atom, 0, s.NumGhosts())
	for i := s.nReal; i < len(s.positions); i++ {
		out = append(out, Atom{Source: s.source[i], Shift: s.shifts[i], Species: s.species[i]})
	}
	return out
}

// Generate builds the real+ghost atom set for cutoff.
//
// Along a periodic axis k with reciprocal vector b_k, two points closer than
// r differ in fractional coordinate by at most r·|b_k|. An image is therefore
// kept when its fractional coordinate lies within r·|b_k| of the range
// spanned by the real atoms, for every periodic axis. This is exact for any
// ratio of cutoff to cell width, including cutoffs beyond half the cell.
func Generate(cfg *atoms.Configuration, cutoff float64) (*Set, error) {
	if !(cutoff > 0) || math.IsInf(cutoff, 1) {
		return nil, fmt.Errorf("%w: cutoff must be positive and finite, got %v", atoms.ErrConfiguration, cutoff)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.Len()
	set := &Set{
		nReal:     n,
		positions: append([]atoms.Vec3(nil), cfg.Positions...),
		species:   append([]string(nil), cfg.Species...),
		source:    make([]int, n),
		shifts:    make([][3]int, n),
	}
	for i := range set.source {
		set.source[i] = i
	}
	if n == 0 || !cfg.PBC.Any() {
		return set, nil
	}

	recip, err := reciprocal(cfg.Cell, cfg.PBC)
	if err != nil {
		return nil, err
	}

	frac := make([][3]float64, n)
	var lo, hi, reach [3]float64
	for k := 0; k < 3; k++ {
		lo[k], hi[k] = math.Inf(1), math.Inf(-1)
		reach[k] = cutoff*recip[k].Norm() + reachMargin
	}
	for i, p := range cfg.Positions {
		for k := 0; k < 3; k++ {
			f := recip[k].Dot(p)
			frac[i][k] = f
			lo[k] = math.Min(lo[k], f)
			hi[k] = math.Max(hi[k], f)
		}
	}

	// counted in float64 so huge cutoffs are rejected instead of wrapping
	images := 1.0
	for k := 0; k < 3; k++ {
		if cfg.PBC[k] {
			images *= 2*math.Ceil(hi[k]-lo[k]+reach[k]) + 1
		}
	}
	if images > float64(MaxAtoms/n) {
		return nil, fmt.Errorf("%w: cutoff %g needs %.3g periodic images of %d atoms",
			atoms.ErrConfiguration, cutoff, images, n)
	}
	for k := 0; k < 3; k++ {
		if cfg.PBC[k] {
			set.shells[k] = int(math.Ceil(hi[k] - lo[k] + reach[k]))
		}
	}

	s := set.shells
	for a := -s[0]; a <= s[0]; a++ {
		for b := -s[1]; b <= s[1]; b++ {
			for c := -s[2]; c <= s[2]; c++ {
				shift := [3]int{a, b, c}
				if shift == [3]int{} {
					continue
				}
				d := cfg.Cell.Translate(shift)
				for i := 0; i < n; i++ {
					if !inWindow(frac[i], shift, cfg.PBC, lo, hi, reach) {
						continue
					}
					set.positions = append(set.positions, cfg.Positions[i].Add(d))
					set.species = append(set.species, cfg.Species[i])
					set.source = append(set.source, i)
					set.shifts = append(set.shifts, shift)
				}
			}
		}
	}
	return set, nil
}

func inWindow(f [3]float64, shift [3]int, pbc atoms.PBC, lo, hi, reach [3]float64) bool {
	for k := 0; k < 3; k++ {
		if !pbc[k] {
			continue
		}
		g := f[k] + float64(shift[k])
		if g < lo[k]-reach[k] || g > hi[k]+reach[k] {
			return false
		}
	}
	return true
}

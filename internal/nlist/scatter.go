package nlist

import (
	"fmt"

	"github.com/san-kum/kimnl/internal/atoms"
)

// Scatter folds ghost forces onto their source atoms. raw is laid out like
// Coordinates; the result holds 3*NumReal components.
func (c *Container) Scatter(raw []float64) ([]float64, error) {
	if c.Closed() {
		return nil, fmt.Errorf("scatter on closed container: %w", atoms.ErrLifetime)
	}
	if len(raw) != len(c.coords) {
		return nil, fmt.Errorf("%w: force buffer has %d components, want %d", atoms.ErrConfiguration, len(raw), len(c.coords))
	}

	out := make([]float64, 3*c.nReal)
	copy(out, raw[:3*c.nReal])
	for g := c.nReal; g < len(c.source); g++ {
		s := int(c.source[g])
		out[3*s] += raw[3*g]
		out[3*s+1] += raw[3*g+1]
		out[3*s+2] += raw[3*g+2]
	}
	return out, nil
}

// Virial returns -Σ r⊗f over every real and ghost particle in Voigt order
// (xx, yy, zz, yz, xz, xy). For models that put the reaction of each ghost
// interaction on the ghost, this is the periodic virial.
func (c *Container) Virial(raw []float64) ([6]float64, error) {
	var v [6]float64
	if c.Closed() {
		return v, fmt.Errorf("virial on closed container: %w", atoms.ErrLifetime)
	}
	if len(raw) != len(c.coords) {
		return v, fmt.Errorf("%w: force buffer has %d components, want %d", atoms.ErrConfiguration, len(raw), len(c.coords))
	}
	for a := 0; a < len(c.source); a++ {
		x, y, z := c.coords[3*a], c.coords[3*a+1], c.coords[3*a+2]
		fx, fy, fz := raw[3*a], raw[3*a+1], raw[3*a+2]
		v[0] -= x * fx
		v[1] -= y * fy
		v[2] -= z * fz
		v[3] -= y * fz
		v[4] -= x * fz
		v[5] -= x * fy
	}
	return v, nil
}

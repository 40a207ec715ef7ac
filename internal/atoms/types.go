package atoms

import (
	"fmt"
	"math"
)

type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Cell is a 3x3 matrix whose columns are the lattice vectors.
type Cell [3][3]float64

// CellFromVectors builds a cell from three lattice vectors.
func CellFromVectors(a, b, c Vec3) Cell {
	var cell Cell
	for r := 0; r < 3; r++ {
		cell[r][0], cell[r][1], cell[r][2] = a[r], b[r], c[r]
	}
	return cell
}

// Cubic returns a cubic cell with edge a.
func Cubic(a float64) Cell {
	return CellFromVectors(Vec3{a, 0, 0}, Vec3{0, a, 0}, Vec3{0, 0, a})
}

// Vector returns lattice vector k.
func (c Cell) Vector(k int) Vec3 { return Vec3{c[0][k], c[1][k], c[2][k]} }

// Translate returns C·n, the displacement of an image with integer shift n.
func (c Cell) Translate(n [3]int) Vec3 {
	var out Vec3
	for r := 0; r < 3; r++ {
		out[r] = c[r][0]*float64(n[0]) + c[r][1]*float64(n[1]) + c[r][2]*float64(n[2])
	}
	return out
}

type PBC [3]bool

func (p PBC) Any() bool { return p[0] || p[1] || p[2] }

// Configuration is the immutable input to a single build.
type Configuration struct {
	Species   []string
	Positions []Vec3
	Cell      Cell
	PBC       PBC
}

func (c *Configuration) Len() int { return len(c.Positions) }

func (c *Configuration) Validate() error {
	if len(c.Species) != len(c.Positions) {
		return fmt.Errorf("%w: %d species for %d positions", ErrConfiguration, len(c.Species), len(c.Positions))
	}
	for i, p := range c.Positions {
		if !p.IsValid() {
			return fmt.Errorf("%w: position %d is not finite", ErrConfiguration, i)
		}
	}
	for k := 0; k < 3; k++ {
		if !c.Cell.Vector(k).IsValid() {
			return fmt.Errorf("%w: lattice vector %d is not finite", ErrConfiguration, k)
		}
	}
	return nil
}

// Numbering is the index base used across the native boundary.
type Numbering int

const (
	ZeroBased Numbering = 0
	OneBased  Numbering = 1
)

func (n Numbering) Valid() bool { return n == ZeroBased || n == OneBased }

// Base is the offset added to every index handed to native code.
func (n Numbering) Base() int32 { return int32(n) }

func (n Numbering) String() string {
	switch n {
	case ZeroBased:
		return "zero"
	case OneBased:
		return "one"
	default:
		return fmt.Sprintf("numbering(%d)", int(n))
	}
}

func ParseNumbering(s string) (Numbering, error) {
	switch s {
	case "", "zero", "0", "c":
		return ZeroBased, nil
	case "one", "1", "fortran":
		return OneBased, nil
	}
	return 0, fmt.Errorf("%w: unknown numbering %q", ErrConfiguration, s)
}

package ghost

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/kimnl/internal/atoms"
)

// singularTol bounds |det| relative to the product of the column norms.
const singularTol = 1e-10

// reciprocal returns the rows of C⁻¹ (b_k · a_j = δ_kj). Non-periodic lattice
// vectors that leave the cell singular are replaced by unit vectors
// perpendicular to the periodic ones, which leaves the fractional
// coordinates along periodic axes well defined.
func reciprocal(cell atoms.Cell, pbc atoms.PBC) ([3]atoms.Vec3, error) {
	basis := completeBasis(cell, pbc)

	a := mat.NewDense(3, 3, nil)
	scale := 1.0
	for k := 0; k < 3; k++ {
		v := basis.Vector(k)
		scale *= v.Norm()
		for r := 0; r < 3; r++ {
			a.Set(r, k, v[r])
		}
	}

	var out [3]atoms.Vec3
	if scale == 0 || math.Abs(mat.Det(a)) < singularTol*scale {
		return out, fmt.Errorf("%w: cell is singular along a periodic axis", atoms.ErrConfiguration)
	}

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return out, fmt.Errorf("%w: invert cell: %v", atoms.ErrConfiguration, err)
	}
	for k := 0; k < 3; k++ {
		out[k] = atoms.Vec3{inv.At(k, 0), inv.At(k, 1), inv.At(k, 2)}
	}
	return out, nil
}

func completeBasis(cell atoms.Cell, pbc atoms.PBC) atoms.Cell {
	var periodic, open []int
	for k := 0; k < 3; k++ {
		if pbc[k] {
			periodic = append(periodic, k)
		} else {
			open = append(open, k)
		}
	}
	if len(open) == 0 || !isSingular(cell) {
		return cell
	}

	vecs := [3]atoms.Vec3{cell.Vector(0), cell.Vector(1), cell.Vector(2)}
	switch len(periodic) {
	case 2:
		vecs[open[0]] = unit(cross(vecs[periodic[0]], vecs[periodic[1]]))
	case 1:
		p := vecs[periodic[0]]
		u := unit(cross(p, leastAligned(p)))
		vecs[open[0]] = u
		vecs[open[1]] = unit(cross(p, u))
	default:
		vecs = [3]atoms.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	return atoms.CellFromVectors(vecs[0], vecs[1], vecs[2])
}

func isSingular(cell atoms.Cell) bool {
	scale := cell.Vector(0).Norm() * cell.Vector(1).Norm() * cell.Vector(2).Norm()
	det := cell.Vector(0).Dot(cross(cell.Vector(1), cell.Vector(2)))
	return scale == 0 || math.Abs(det) < singularTol*scale
}

// PerpendicularWidths returns the distance between opposite cell faces along
// each periodic axis. Non-periodic axes report +Inf.
func PerpendicularWidths(cell atoms.Cell, pbc atoms.PBC) ([3]float64, error) {
	widths := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	if !pbc.Any() {
		return widths, nil
	}
	recip, err := reciprocal(cell, pbc)
	if err != nil {
		return widths, err
	}
	for k := 0; k < 3; k++ {
		if pbc[k] {
			widths[k] = 1 / recip[k].Norm()
		}
	}
	return widths, nil
}

func cross(a, b atoms.Vec3) atoms.Vec3 {
	return atoms.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func unit(v atoms.Vec3) atoms.Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return atoms.Vec3{v[0] / n, v[1] / n, v[2] / n}
}

// leastAligned picks the Cartesian axis most perpendicular to v.
func leastAligned(v atoms.Vec3) atoms.Vec3 {
	best := 0
	for k := 1; k < 3; k++ {
		if math.Abs(v[k]) < math.Abs(v[best]) {
			best = k
		}
	}
	var e atoms.Vec3
	e[best] = 1
	return e
}

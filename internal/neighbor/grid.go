package neighbor

import (
	"math"

	"github.com/san-kum/kimnl/internal/atoms"
)

// grid is a linked-cell partition of the bounding box of all atoms.
// Bin edges are never shorter than the search radius, so the 27 bins around
// a source cover every candidate.
type grid struct {
	origin atoms.Vec3
	edge   [3]float64
	dims   [3]int
	head   []int32
	next   []int32
}

// maxBinsPerAtom limits memory for sparse or elongated systems.
const maxBinsPerAtom = 8

func newGrid(pos []atoms.Vec3, rc float64) *grid {
	g := &grid{}
	lo := atoms.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := atoms.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range pos {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	if len(pos) == 0 {
		lo, hi = atoms.Vec3{}, atoms.Vec3{}
	}
	g.origin = lo

	limit := max(64, maxBinsPerAtom*len(pos))
	var extent atoms.Vec3
	for k := 0; k < 3; k++ {
		extent[k] = hi[k] - lo[k]
		// clamped in float64 so the product below cannot overflow
		g.dims[k] = int(math.Max(1, math.Min(math.Floor(extent[k]/rc), float64(limit))))
	}

	for g.bins() > float64(limit) {
		f := math.Cbrt(g.bins() / float64(limit))
		for k := 0; k < 3; k++ {
			g.dims[k] = max(1, int(float64(g.dims[k])/f))
		}
	}
	// padded so rounding cannot put a pair at exactly rc two bins apart
	for k := 0; k < 3; k++ {
		g.edge[k] = math.Max(extent[k]/float64(g.dims[k]), rc) * (1 + 1e-12)
	}

	g.head = make([]int32, g.dims[0]*g.dims[1]*g.dims[2])
	for b := range g.head {
		g.head[b] = -1
	}
	g.next = make([]int32, len(pos))
	for i := len(pos) - 1; i >= 0; i-- {
		b := g.flat(g.bin(pos[i]))
		g.next[i] = g.head[b]
		g.head[b] = int32(i)
	}
	return g
}

func (g *grid) bins() float64 {
	return float64(g.dims[0]) * float64(g.dims[1]) * float64(g.dims[2])
}

func (g *grid) bin(p atoms.Vec3) [3]int {
	var c [3]int
	for k := 0; k < 3; k++ {
		c[k] = int((p[k] - g.origin[k]) / g.edge[k])
		c[k] = min(max(c[k], 0), g.dims[k]-1)
	}
	return c
}

func (g *grid) flat(c [3]int) int {
	return (c[0]*g.dims[1]+c[1])*g.dims[2] + c[2]
}

func (g *grid) search(pos []atoms.Vec3, i int, r2 float64, buf []candidate) []candidate {
	pi := pos[i]
	c := g.bin(pi)
	for x := max(c[0]-1, 0); x <= min(c[0]+1, g.dims[0]-1); x++ {
		for y := max(c[1]-1, 0); y <= min(c[1]+1, g.dims[1]-1); y++ {
			for z := max(c[2]-1, 0); z <= min(c[2]+1, g.dims[2]-1); z++ {
				for j := g.head[g.flat([3]int{x, y, z})]; j >= 0; j = g.next[j] {
					if int(j) == i {
						continue
					}
					if d2 := dist2(pi, pos[j]); d2 <= r2 {
						buf = append(buf, candidate{j: j, d2: d2})
					}
				}
			}
		}
	}
	return buf
}

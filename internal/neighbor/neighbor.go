// Package neighbor builds full neighbor lists in CSR form over a set of
// real and ghost atoms, one list per cutoff radius.
package neighbor

import (
	"fmt"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/kimnl/internal/atoms"
)

// Strategy selects how candidate pairs are found.
type Strategy int

const (
	// CellList bins atoms on a grid with edge at least the largest cutoff.
	// Expected cost is linear in atom count for bounded density.
	CellList Strategy = iota
	// BruteForce checks every pair and is quadratic in atom count.
	BruteForce
)

func (s Strategy) String() string {
	switch s {
	case CellList:
		return "cell-list"
	case BruteForce:
		return "brute-force"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy accepts the names used in config files and on the command line.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "cell", "cell-list":
		return CellList, nil
	case "brute", "brute-force":
		return BruteForce, nil
	}
	return 0, fmt.Errorf("%w: unknown neighbor strategy %q", atoms.ErrConfiguration, s)
}

// Options tunes Build without changing its result.
type Options struct {
	Strategy Strategy
	// Workers bounds concurrent chunks; zero means GOMAXPROCS.
	Workers int
}

// minChunk is the smallest number of sources handed to one goroutine.
const minChunk = 64

// List is one CSR neighbor list. Neighbors of source i are
// Indices[Offsets[i]:Offsets[i+1]], sorted ascending.
type List struct {
	Cutoff  float64
	Offsets []int32
	Indices []int32
}

func (l *List) NumSources() int { return len(l.Offsets) - 1 }

func (l *List) Neighbors(i int) []int32 {
	return l.Indices[l.Offsets[i]:l.Offsets[i+1]]
}

type candidate struct {
	j  int32
	d2 float64
}

// Build computes one list per cutoff for sources [0, nSources). Every atom in
// positions is a candidate neighbor; an atom is never its own neighbor, but
// another image of the same real atom is.
func Build(positions []atoms.Vec3, nSources int, cutoffs []float64, opts Options) ([]List, error) {
	if len(cutoffs) == 0 {
		return nil, fmt.Errorf("%w: no cutoffs requested", atoms.ErrConfiguration)
	}
	rmax := 0.0
	for i, rc := range cutoffs {
		if !(rc > 0) || math.IsInf(rc, 1) {
			return nil, fmt.Errorf("%w: cutoff %d must be positive and finite, got %v", atoms.ErrConfiguration, i, rc)
		}
		rmax = math.Max(rmax, rc)
	}
	if nSources < 0 || nSources > len(positions) {
		return nil, fmt.Errorf("%w: %d sources for %d atoms", atoms.ErrConfiguration, nSources, len(positions))
	}
	if len(positions) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d atoms exceed 32-bit indexing", atoms.ErrConfiguration, len(positions))
	}

	var search func(i int, buf []candidate) []candidate
	switch opts.Strategy {
	case CellList:
		g := newGrid(positions, rmax)
		search = func(i int, buf []candidate) []candidate { return g.search(positions, i, rmax*rmax, buf) }
	case BruteForce:
		search = func(i int, buf []candidate) []candidate { return bruteSearch(positions, i, rmax*rmax, buf) }
	default:
		return nil, fmt.Errorf("%w: unknown neighbor strategy %d", atoms.ErrConfiguration, opts.Strategy)
	}

	cut2 := make([]float64, len(cutoffs))
	for k, rc := range cutoffs {
		cut2[k] = rc * rc
	}

	chunks := splitChunks(nSources, workerCount(opts.Workers))
	parts := make([]chunkResult, len(chunks))

	var g errgroup.Group
	g.SetLimit(workerCount(opts.Workers))
	for c, r := range chunks {
		c, r := c, r
		g.Go(func() error {
			parts[c] = buildChunk(r[0], r[1], cut2, search)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assemble(cutoffs, nSources, parts)
}

type chunkResult struct {
	counts  [][]int32
	indices [][]int32
}

func buildChunk(start, end int, cut2 []float64, search func(int, []candidate) []candidate) chunkResult {
	res := chunkResult{
		counts:  make([][]int32, len(cut2)),
		indices: make([][]int32, len(cut2)),
	}
	for k := range cut2 {
		res.counts[k] = make([]int32, 0, end-start)
	}

	var buf []candidate
	for i := start; i < end; i++ {
		buf = search(i, buf[:0])
		slices.SortFunc(buf, func(a, b candidate) int { return int(a.j) - int(b.j) })
		for k, r2 := range cut2 {
			var n int32
			for _, c := range buf {
				if c.d2 <= r2 {
					res.indices[k] = append(res.indices[k], c.j)
					n++
				}
			}
			res.counts[k] = append(res.counts[k], n)
		}
	}
	return res
}

func assemble(cutoffs []float64, nSources int, parts []chunkResult) ([]List, error) {
	lists := make([]List, len(cutoffs))
	for k, rc := range cutoffs {
		total := 0
		for _, p := range parts {
			total += len(p.indices[k])
		}
		if total > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %d neighbors exceed 32-bit offsets", atoms.ErrConfiguration, total)
		}

		l := List{
			Cutoff:  rc,
			Offsets: make([]int32, 1, nSources+1),
			Indices: make([]int32, 0, total),
		}
		for _, p := range parts {
			for _, n := range p.counts[k] {
				l.Offsets = append(l.Offsets, l.Offsets[len(l.Offsets)-1]+n)
			}
			l.Indices = append(l.Indices, p.indices[k]...)
		}
		lists[k] = l
	}
	return lists, nil
}

func workerCount(w int) int {
	if w <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return w
}

// splitChunks divides [0, n) into at most workers contiguous ranges of at
// least minChunk sources.
func splitChunks(n, workers int) [][2]int {
	if n == 0 {
		return nil
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

func dist2(a, b atoms.Vec3) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// bruteSearch is the O(N) per source reference search; O(N²) overall.
func bruteSearch(pos []atoms.Vec3, i int, r2 float64, buf []candidate) []candidate {
	pi := pos[i]
	for j := range pos {
		if j == i {
			continue
		}
		if d2 := dist2(pi, pos[j]); d2 <= r2 {
			buf = append(buf, candidate{j: int32(j), d2: d2})
		}
	}
	return buf
}

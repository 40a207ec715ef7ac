package ghost

import (
	"errors"
	"math"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kimnl/internal/atoms"
)

func triclinic() *atoms.Configuration {
	return &atoms.Configuration{
		Species: []string{"Ar", "Ne", "Ar", "Ne"},
		Positions: []atoms.Vec3{
			{0.1, 0.2, 0.3},
			{2.0, 1.5, 1.0},
			{3.5, 3.0, 2.5},
			{-1.0, 4.5, 3.4}, // outside the cell
		},
		Cell: atoms.CellFromVectors(
			atoms.Vec3{4, 0, 0},
			atoms.Vec3{1.5, 3.5, 0},
			atoms.Vec3{0.5, 0.8, 3.0},
		),
		PBC: atoms.PBC{true, true, true},
	}
}

func TestGenerateNonPeriodic(t *testing.T) {
	g := NewWithT(t)
	cfg := triclinic()
	cfg.PBC = atoms.PBC{}

	set, err := Generate(cfg, 10)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(set.NumGhosts()).To(Equal(0))
	g.Expect(set.Len()).To(Equal(4))
	g.Expect(set.Positions()).To(Equal(cfg.Positions))
}

func TestGenerateRejectsBadCutoff(t *testing.T) {
	g := NewWithT(t)
	for _, rc := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Generate(triclinic(), rc)
		g.Expect(err).To(MatchError(atoms.ErrConfiguration), "cutoff %v", rc)
	}
}

func TestGenerateRejectsSingularCell(t *testing.T) {
	g := NewWithT(t)
	cfg := triclinic()
	cfg.Cell = atoms.CellFromVectors(atoms.Vec3{1, 0, 0}, atoms.Vec3{2, 0, 0}, atoms.Vec3{0, 0, 1})

	_, err := Generate(cfg, 1)
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))
}

func TestGenerateOrdering(t *testing.T) {
	g := NewWithT(t)
	set, err := Generate(triclinic(), 2.5)
	g.Expect(err).NotTo(HaveOccurred())

	for i := 0; i < set.NumReal(); i++ {
		g.Expect(set.Source(i)).To(Equal(i))
		g.Expect(set.Shift(i)).To(Equal([3]int{}))
	}

	prev := [3]int{math.MinInt, 0, 0}
	prevSrc := -1
	for i := set.NumReal(); i < set.Len(); i++ {
		s := set.Shift(i)
		g.Expect(s).NotTo(Equal([3]int{}))
		switch {
		case s == prev:
			g.Expect(set.Source(i)).To(BeNumerically(">", prevSrc))
		default:
			g.Expect(lexLess(prev, s)).To(BeTrue(), "shift %v after %v", s, prev)
		}
		g.Expect(set.Species()[i]).To(Equal(set.Species()[set.Source(i)]))
		prev, prevSrc = s, set.Source(i)
	}

	again, err := Generate(triclinic(), 2.5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(again.Positions()).To(Equal(set.Positions()))
	g.Expect(again.Ghosts()).To(Equal(set.Ghosts()))
}

// Every image within the cutoff of a real atom must be present, for a cutoff
// larger than every perpendicular width of the cell.
func TestGenerateComplete(t *testing.T) {
	g := NewWithT(t)
	cfg := triclinic()
	const rc = 5.0

	widths, err := PerpendicularWidths(cfg.Cell, cfg.PBC)
	g.Expect(err).NotTo(HaveOccurred())
	for _, w := range widths {
		g.Expect(w).To(BeNumerically("<", rc))
	}

	set, err := Generate(cfg, rc)
	g.Expect(err).NotTo(HaveOccurred())

	type key struct {
		src   int
		shift [3]int
	}
	present := make(map[key]bool, set.Len())
	for i := 0; i < set.Len(); i++ {
		k := key{set.Source(i), set.Shift(i)}
		g.Expect(present[k]).To(BeFalse(), "duplicate image %v", k)
		present[k] = true
	}

	const span = 6
	for i, xi := range cfg.Positions {
		for j, xj := range cfg.Positions {
			for a := -span; a <= span; a++ {
				for b := -span; b <= span; b++ {
					for c := -span; c <= span; c++ {
						n := [3]int{a, b, c}
						if xj.Add(cfg.Cell.Translate(n)).Sub(xi).Norm() > rc {
							continue
						}
						g.Expect(present[key{j, n}]).To(BeTrue(), "image %d%v near %d missing", j, n, i)
					}
				}
			}
		}
	}
}

func TestPerpendicularWidthsCubic(t *testing.T) {
	g := NewWithT(t)
	w, err := PerpendicularWidths(atoms.Cubic(3.4), atoms.PBC{true, false, true})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(w[0]).To(BeNumerically("~", 3.4, 1e-12))
	g.Expect(math.IsInf(w[1], 1)).To(BeTrue())
	g.Expect(w[2]).To(BeNumerically("~", 3.4, 1e-12))
}

func TestGenerateSlabWithOpenAxisUnset(t *testing.T) {
	g := NewWithT(t)
	cfg := &atoms.Configuration{
		Species:   []string{"Ar", "Ar"},
		Positions: []atoms.Vec3{{0, 0, 0}, {1.9, 1.9, 5}},
		Cell:      atoms.CellFromVectors(atoms.Vec3{3.8, 0, 0}, atoms.Vec3{0, 3.8, 0}, atoms.Vec3{}),
		PBC:       atoms.PBC{true, true, false},
	}

	set, err := Generate(cfg, 4.0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(set.NumGhosts()).To(BeNumerically(">", 0))
	for _, gh := range set.Ghosts() {
		g.Expect(gh.Shift[2]).To(Equal(0))
	}
}

func TestGenerateWireSingularCell(t *testing.T) {
	g := NewWithT(t)
	cfg := &atoms.Configuration{
		Species:   []string{"Ar"},
		Positions: []atoms.Vec3{{0, 0, 0}},
		Cell:      atoms.CellFromVectors(atoms.Vec3{0, 0, 2}, atoms.Vec3{}, atoms.Vec3{}),
		PBC:       atoms.PBC{true, false, false},
	}

	set, err := Generate(cfg, 4.5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(set.NumGhosts()).To(Equal(4))
	g.Expect(set.Shells()).To(Equal([3]int{3, 0, 0}))
}

func TestGenerateTooManyImages(t *testing.T) {
	cfg := &atoms.Configuration{
		Species:   []string{"Ar"},
		Positions: []atoms.Vec3{{0, 0, 0}},
		Cell:      atoms.Cubic(0.01),
		PBC:       atoms.PBC{true, true, true},
	}
	if _, err := Generate(cfg, 100); !errors.Is(err, atoms.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestGenerateRejectsHugeCutoff(t *testing.T) {
	cfg := &atoms.Configuration{
		Species:   []string{"Ar"},
		Positions: []atoms.Vec3{{0, 0, 0}},
		Cell:      atoms.Cubic(1),
		PBC:       atoms.PBC{true, true, true},
	}
	for _, rc := range []float64{3e6, 1e7, 1e12, math.MaxFloat64 / 4} {
		done := make(chan error, 1)
		go func() {
			_, err := Generate(cfg, rc)
			done <- err
		}()
		select {
		case err := <-done:
			if !errors.Is(err, atoms.ErrConfiguration) {
				t.Errorf("cutoff %g: expected configuration error, got %v", rc, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("cutoff %g: Generate did not return", rc)
		}
	}
}

func lexLess(a, b [3]int) bool {
	for k := 0; k < 3; k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

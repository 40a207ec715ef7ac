package native

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/nlist"
)

func ljPair(eps, sigma, rc, r float64) (phi, dphiOverR float64) {
	sr6 := math.Pow(sigma/r, 6)
	src6 := math.Pow(sigma/rc, 6)
	phi = 4*eps*(sr6*sr6-sr6) - 4*eps*(src6*src6-src6)
	dphiOverR = 4 * eps * (6*sr6 - 12*sr6*sr6) / (r * r)
	return phi, dphiOverR
}

func newModel(t *testing.T, mutate func(*LJParams)) *Model {
	t.Helper()
	p := DefaultLJParams()
	if mutate != nil {
		mutate(&p)
	}
	m, err := NewLennardJones(p)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func build(t *testing.T, m *Model, cfg *atoms.Configuration) *nlist.Container {
	t.Helper()
	c, err := nlist.Build(cfg, m.Setup(0, 2))
	if err != nil {
		t.Fatalf("build container: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func dimer(r float64) *atoms.Configuration {
	return &atoms.Configuration{
		Species:   []string{"Ar", "Ar"},
		Positions: []atoms.Vec3{{0, 0, 0}, {r, 0, 0}},
		Cell:      atoms.Cubic(20),
	}
}

func TestDimerEnergyAndForces(t *testing.T) {
	for _, numbering := range []atoms.Numbering{atoms.ZeroBased, atoms.OneBased} {
		t.Run(numbering.String(), func(t *testing.T) {
			g := NewWithT(t)
			m := newModel(t, func(p *LJParams) { p.Numbering = numbering })
			c := build(t, m, dimer(3.8))

			out, err := m.Compute(c)
			g.Expect(err).NotTo(HaveOccurred())

			phi, dphi := ljPair(0.0104, 3.40, 8.50, 3.8)
			g.Expect(out.Energy).To(BeNumerically("~", phi, 1e-12))
			g.Expect(out.Forces).To(HaveLen(6))
			g.Expect(out.Forces[0]).To(BeNumerically("~", dphi*3.8, 1e-12))
			g.Expect(out.Forces[3]).To(BeNumerically("~", -dphi*3.8, 1e-12))
			for _, k := range []int{1, 2, 4, 5} {
				g.Expect(out.Forces[k]).To(BeNumerically("~", 0, 1e-15))
			}
			g.Expect(out.Queries).To(Equal(2))
			g.Expect(out.Refused).To(BeZero())
			g.Expect(c.Closed()).To(BeFalse())
		})
	}
}

func TestDimerBeyondCutoff(t *testing.T) {
	g := NewWithT(t)
	m := newModel(t, nil)
	c := build(t, m, dimer(9.0))

	out, err := m.Compute(c)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out.Energy).To(BeZero())
	g.Expect(out.Forces).To(Equal(make([]float64, 6)))
}

// periodicPair has two atoms in a cubic cell smaller than twice the cutoff,
// so every atom interacts with several images of itself and of its partner.
func periodicPair() *atoms.Configuration {
	return &atoms.Configuration{
		Species:   []string{"Ar", "Ar"},
		Positions: []atoms.Vec3{{0.1, 0.2, 0.3}, {2.9, 3.4, 1.7}},
		Cell:      atoms.Cubic(6),
		PBC:       atoms.PBC{true, true, true},
	}
}

func latticeSum(cfg *atoms.Configuration, eps, sigma, rc float64) (float64, []atoms.Vec3) {
	energy := 0.0
	forces := make([]atoms.Vec3, cfg.Len())
	for i, xi := range cfg.Positions {
		for j, xj := range cfg.Positions {
			for a := -3; a <= 3; a++ {
				for b := -3; b <= 3; b++ {
					for c := -3; c <= 3; c++ {
						if i == j && a == 0 && b == 0 && c == 0 {
							continue
						}
						d := xj.Add(cfg.Cell.Translate([3]int{a, b, c})).Sub(xi)
						r := d.Norm()
						if r > rc {
							continue
						}
						phi, dphi := ljPair(eps, sigma, rc, r)
						energy += 0.5 * phi
						for k := 0; k < 3; k++ {
							forces[i][k] += dphi * d[k]
						}
					}
				}
			}
		}
	}
	return energy, forces
}

func TestPeriodicPairMatchesLatticeSum(t *testing.T) {
	g := NewWithT(t)
	m := newModel(t, nil)
	cfg := periodicPair()
	c := build(t, m, cfg)
	g.Expect(c.NumGhosts()).To(BeNumerically(">", 0))

	out, err := m.Compute(c)
	g.Expect(err).NotTo(HaveOccurred())
	forces, err := c.Scatter(out.Forces)
	g.Expect(err).NotTo(HaveOccurred())

	wantE, wantF := latticeSum(cfg, 0.0104, 3.40, 8.50)
	g.Expect(out.Energy).To(BeNumerically("~", wantE, 1e-10))
	for i := range wantF {
		for k := 0; k < 3; k++ {
			g.Expect(forces[3*i+k]).To(BeNumerically("~", wantF[i][k], 1e-10))
			g.Expect(forces[3*i+k]).To(BeNumerically("~", -forces[3*(1-i)+k], 1e-10))
		}
	}
}

func TestGhostNeighborModelAgrees(t *testing.T) {
	g := NewWithT(t)
	plain := newModel(t, nil)
	ghosts := newModel(t, func(p *LJParams) { p.RequestGhostNeighbors = true })
	g.Expect(ghosts.WillNotRequestGhostNeighbors()).To(BeFalse())

	a, err := plain.Compute(build(t, plain, periodicPair()))
	g.Expect(err).NotTo(HaveOccurred())
	cg := build(t, ghosts, periodicPair())
	g.Expect(cg.NumSources()).To(Equal(cg.NumParticles()))
	b, err := ghosts.Compute(cg)
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(b.Energy).To(BeNumerically("~", a.Energy, 1e-12))
}

func TestBridgeQueries(t *testing.T) {
	for _, numbering := range []atoms.Numbering{atoms.ZeroBased, atoms.OneBased} {
		t.Run(numbering.String(), func(t *testing.T) {
			g := NewWithT(t)
			m := newModel(t, func(p *LJParams) { p.Numbering = numbering })
			c := build(t, m, dimer(3.8))
			base := int(numbering.Base())

			b, err := Bind(c, nil)
			g.Expect(err).NotTo(HaveOccurred())
			defer b.Release()

			idx, err := b.Query(0, base)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(idx).To(Equal([]int32{int32(1 + base)}))

			_, err = b.Query(0, 2+base)
			g.Expect(err).To(MatchError(atoms.ErrOutOfRange))
			_, err = b.Query(0, base-1)
			g.Expect(err).To(MatchError(atoms.ErrOutOfRange))
			_, err = b.Query(1, base)
			g.Expect(err).To(MatchError(atoms.ErrOutOfRange))
			var qe *atoms.QueryError
			g.Expect(errors.As(err, &qe)).To(BeTrue())
			g.Expect(qe.List).To(Equal(1))

			total, refused := b.Queries()
			g.Expect(total).To(Equal(4))
			g.Expect(refused).To(Equal(3))
		})
	}
}

func TestBridgeEmptyNeighborSet(t *testing.T) {
	g := NewWithT(t)
	m := newModel(t, nil)
	c := build(t, m, dimer(9.0))

	b, err := Bind(c, nil)
	g.Expect(err).NotTo(HaveOccurred())
	defer b.Release()

	idx, err := b.Query(0, 1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(idx).To(BeEmpty())
}

func TestBindingLifetime(t *testing.T) {
	g := NewWithT(t)
	m := newModel(t, nil)
	c := build(t, m, dimer(3.8))

	b, err := Bind(c, nil)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = Bind(c, nil)
	g.Expect(err).To(MatchError(atoms.ErrBusy))
	_, err = m.Compute(c)
	g.Expect(err).To(MatchError(atoms.ErrBusy))
	g.Expect(c.Close()).To(MatchError(atoms.ErrLifetime))

	b.Release()
	b.Release()
	_, err = b.Query(0, 0)
	g.Expect(err).To(MatchError(atoms.ErrLifetime))

	_, err = m.Compute(c)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c.Close()).To(Succeed())
	_, err = m.Compute(c)
	g.Expect(err).To(MatchError(atoms.ErrLifetime))
}

func TestModelErrors(t *testing.T) {
	g := NewWithT(t)

	_, err := NewLennardJones(LJParams{Epsilon: 1, Sigma: 0, Cutoff: 3, Species: []string{"Ar"}})
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))
	_, err = NewLennardJones(LJParams{Epsilon: 1, Sigma: 1, Cutoff: math.Inf(1), Species: []string{"Ar"}})
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))
	_, err = NewLennardJones(LJParams{Epsilon: 1, Sigma: 1, Cutoff: 3})
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))
	_, err = NewLennardJones(LJParams{Epsilon: 1, Sigma: 1, Cutoff: 3, Species: []string{"Ar", "Ar"}})
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))

	zero := newModel(t, nil)
	one := newModel(t, func(p *LJParams) { p.Numbering = atoms.OneBased })
	_, err = zero.Compute(build(t, one, dimer(3.8)))
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))

	s := zero.Setup(0, 1)
	s.Cutoffs = []float64{8.5, 4.0}
	extra, err := nlist.Build(dimer(3.8), s)
	g.Expect(err).NotTo(HaveOccurred())
	_, err = zero.Compute(extra)
	g.Expect(err).To(MatchError(atoms.ErrConfiguration))

	cfg := dimer(3.8)
	cfg.Species[0] = "Ne"
	_, err = nlist.Build(cfg, zero.Setup(0, 1))
	g.Expect(err).To(MatchError(atoms.ErrUnsupportedSpecies))

	c := build(t, zero, dimer(3.8))
	g.Expect(zero.Close()).To(Succeed())
	g.Expect(zero.Close()).To(Succeed())
	_, err = zero.Compute(c)
	g.Expect(err).To(MatchError(atoms.ErrLifetime))
}

func TestModelMetadata(t *testing.T) {
	g := NewWithT(t)
	m := newModel(t, func(p *LJParams) {
		p.Species = []string{"Ar", "Ne"}
		p.Cutoff = 7.0
	})
	g.Expect(m.Name()).To(Equal("lennard-jones"))
	g.Expect(m.Cutoffs()).To(Equal([]float64{7.0}))
	g.Expect(m.InfluenceDistance()).To(Equal(7.0))
	g.Expect(m.WillNotRequestGhostNeighbors()).To(BeTrue())

	code, ok := m.SpeciesCode("Ne")
	g.Expect(ok).To(BeTrue())
	g.Expect(code).To(Equal(int32(1)))
	_, ok = m.SpeciesCode("Kr")
	g.Expect(ok).To(BeFalse())
}

package neighbor_test

import (
	"math"
	"math/rand"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/kimnl/internal/atoms"
	"github.com/san-kum/kimnl/internal/neighbor"
)

func randomCloud(n int, box float64, seed int64) []atoms.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	pos := make([]atoms.Vec3, n)
	for i := range pos {
		pos[i] = atoms.Vec3{rng.Float64() * box, rng.Float64() * box, rng.Float64() * box}
	}
	return pos
}

func direct(pos []atoms.Vec3, i int, rc float64) []int32 {
	var out []int32
	for j := range pos {
		if j != i && pos[j].Sub(pos[i]).Norm() <= rc {
			out = append(out, int32(j))
		}
	}
	return out
}

var _ = Describe("Build", func() {
	cutoffs := []float64{1.2, 2.0, 3.1}

	Context("with a random cloud", func() {
		pos := randomCloud(600, 12, 7)
		nSources := 450

		It("matches a direct search for every cutoff", func() {
			lists, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(lists).To(HaveLen(len(cutoffs)))

			for k, l := range lists {
				Expect(l.Cutoff).To(Equal(cutoffs[k]))
				Expect(l.NumSources()).To(Equal(nSources))
				for i := 0; i < nSources; i++ {
					want := direct(pos, i, cutoffs[k])
					got := l.Neighbors(i)
					if len(want) == 0 {
						Expect(got).To(BeEmpty())
						continue
					}
					Expect(cmp.Diff(want, got)).To(BeEmpty(), "list %d atom %d", k, i)
				}
			}
		})

		It("agrees between cell-list and brute force", func() {
			cell, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{Strategy: neighbor.CellList, Workers: 3})
			Expect(err).NotTo(HaveOccurred())
			brute, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{Strategy: neighbor.BruteForce, Workers: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Diff(brute, cell)).To(BeEmpty())
		})

		It("is deterministic across worker counts", func() {
			one, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{Workers: 1})
			Expect(err).NotTo(HaveOccurred())
			many, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{Workers: 8})
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Diff(one, many)).To(BeEmpty())
		})

		It("keeps smaller cutoffs nested in larger ones", func() {
			lists, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{})
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < nSources; i++ {
				for k := 1; k < len(lists); k++ {
					outer := lists[k].Neighbors(i)
					for _, j := range lists[k-1].Neighbors(i) {
						Expect(outer).To(ContainElement(j))
					}
				}
			}
		})

		It("never lists an atom as its own neighbor and keeps indices sorted", func() {
			lists, err := neighbor.Build(pos, nSources, cutoffs, neighbor.Options{})
			Expect(err).NotTo(HaveOccurred())
			for _, l := range lists {
				for i := 0; i < nSources; i++ {
					n := l.Neighbors(i)
					Expect(n).NotTo(ContainElement(int32(i)))
					for m := 1; m < len(n); m++ {
						Expect(n[m]).To(BeNumerically(">", n[m-1]))
					}
					for _, j := range n {
						Expect(int(j)).To(BeNumerically("<", len(pos)))
					}
				}
			}
		})
	})

	It("includes pairs at exactly the cutoff", func() {
		pos := []atoms.Vec3{{0, 0, 0}, {1.5, 0, 0}, {1.5, 2, 0}}
		lists, err := neighbor.Build(pos, 3, []float64{1.5, 2.5}, neighbor.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(lists[0].Neighbors(0)).To(Equal([]int32{1}))
		Expect(lists[1].Neighbors(0)).To(Equal([]int32{1, 2}))
		Expect(lists[1].Neighbors(1)).To(Equal([]int32{0, 2}))
	})

	It("handles coincident and collinear atoms", func() {
		pos := []atoms.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 4}}
		lists, err := neighbor.Build(pos, 3, []float64{0.5}, neighbor.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(lists[0].Neighbors(0)).To(Equal([]int32{1}))
		Expect(lists[0].Neighbors(2)).To(BeEmpty())
	})

	DescribeTable("handles atoms spread far beyond the cutoff",
		func(span float64) {
			pos := []atoms.Vec3{{0, 0, 0}, {span, span, span}, {0.5, 0, 0}}
			var lists []neighbor.List
			var err error
			Expect(func() {
				lists, err = neighbor.Build(pos, 3, []float64{1}, neighbor.Options{Workers: 1})
			}).NotTo(Panic())
			Expect(err).NotTo(HaveOccurred())
			Expect(lists[0].Neighbors(0)).To(Equal([]int32{2}))
			Expect(lists[0].Neighbors(1)).To(BeEmpty())
		},
		Entry("1e6", 1e6),
		Entry("3e7", 3e7),
		Entry("1e12", 1e12),
		Entry("1e300", 1e300),
	)

	It("builds empty lists with no sources", func() {
		lists, err := neighbor.Build(nil, 0, []float64{1}, neighbor.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(lists[0].Offsets).To(Equal([]int32{0}))
		Expect(lists[0].Indices).To(BeEmpty())
	})

	DescribeTable("rejects bad input",
		func(n int, cut []float64) {
			_, err := neighbor.Build(randomCloud(4, 2, 1), n, cut, neighbor.Options{})
			Expect(err).To(MatchError(atoms.ErrConfiguration))
		},
		Entry("no cutoffs", 4, []float64{}),
		Entry("zero cutoff", 4, []float64{1, 0}),
		Entry("negative cutoff", 4, []float64{-1}),
		Entry("nan cutoff", 4, []float64{math.NaN()}),
		Entry("too many sources", 5, []float64{1}),
		Entry("negative sources", -1, []float64{1}),
	)

	DescribeTable("parses strategies",
		func(in string, want neighbor.Strategy) {
			got, err := neighbor.ParseStrategy(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("default", "", neighbor.CellList),
		Entry("cell", "cell-list", neighbor.CellList),
		Entry("brute", "brute-force", neighbor.BruteForce),
	)
})

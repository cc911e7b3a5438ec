package merge_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/quartercastle/vector"

	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/merge"
)

func at(id int, mass float64, pos, vel vector.Vector) body.Body {
	return body.New(id, mass, 1, pos, vel)
}

var _ = Describe("Pass", func() {
	var (
		cfg merge.Config
		ids *merge.IDSource
	)

	BeforeEach(func() {
		cfg = merge.DefaultConfig()
		cfg.Threshold = 1
		cfg.Workers = 4
		ids = merge.NewIDSource()
	})

	It("merges two close bodies into one damped body", func() {
		bodies := []body.Body{
			at(0, 1, vector.Vector{0, 0}, vector.Vector{3, 0}),
			at(1, 3, vector.Vector{0.4, 0}, vector.Vector{-1, 2}),
		}
		out, merges := merge.Pass(bodies, cfg, ids)

		Expect(merges).To(Equal(1))
		Expect(out).To(HaveLen(1))
		m := out[0]
		Expect(m.Mass).To(BeNumerically("~", 4*0.6, 1e-12))
		Expect(m.Position[0]).To(BeNumerically("~", 0.3, 1e-12))
		Expect(m.Position[1]).To(BeNumerically("~", 0, 1e-12))
		Expect(m.Velocity[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(m.Velocity[1]).To(BeNumerically("~", 1.5, 1e-12))
		Expect(m.Radius).To(BeNumerically("~", math.Cbrt(2), 1e-12))
		Expect(m.Force).To(Equal(vector.Vector{0, 0}))
		Expect(body.IDs(out)).NotTo(ContainElement(0))
		Expect(body.IDs(out)).NotTo(ContainElement(1))
		Expect(m.ID).To(BeNumerically("<", 0))
	})

	It("merges coincident bodies at rest", func() {
		bodies := []body.Body{
			at(0, 5, vector.Vector{2, 2, 2}, vector.Vector{0, 0, 0}),
			at(1, 7, vector.Vector{2, 2, 2}, vector.Vector{0, 0, 0}),
			at(2, 1, vector.Vector{50, 0, 0}, vector.Vector{0, 0, 0}),
		}
		out, merges := merge.Pass(bodies, cfg, ids)

		Expect(merges).To(Equal(1))
		Expect(out).To(HaveLen(2))
		Expect(out[0].ID).To(Equal(2))
		Expect(out[1].Mass).To(BeNumerically("~", 12*0.6, 1e-12))
		Expect(out[1].Position).To(Equal(vector.Vector{2, 2, 2}))
		Expect(out[1].Velocity).To(Equal(vector.Vector{0, 0, 0}))
	})

	It("pairs greedily so a chain of three merges once", func() {
		bodies := []body.Body{
			at(0, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
			at(1, 1, vector.Vector{0.5, 0}, vector.Vector{0, 0}),
			at(2, 1, vector.Vector{1.0, 0}, vector.Vector{0, 0}),
		}
		out, merges := merge.Pass(bodies, cfg, ids)

		Expect(merges).To(Equal(1))
		Expect(out).To(HaveLen(2))
		// (0,1) comes first in index order, so 2 survives untouched
		Expect(out[0].ID).To(Equal(2))
		Expect(out[1].Position[0]).To(BeNumerically("~", 0.25, 1e-12))
	})

	It("keeps survivors in order and appends products", func() {
		bodies := []body.Body{
			at(10, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
			at(11, 1, vector.Vector{100, 0}, vector.Vector{0, 0}),
			at(12, 1, vector.Vector{0.1, 0}, vector.Vector{0, 0}),
			at(13, 1, vector.Vector{200, 0}, vector.Vector{0, 0}),
			at(14, 1, vector.Vector{100, 0.1}, vector.Vector{0, 0}),
		}
		out, merges := merge.Pass(bodies, cfg, ids)

		Expect(merges).To(Equal(2))
		Expect(body.IDs(out)).To(Equal([]int{13, -1, -2}))
	})

	It("hands out fresh ids across passes", func() {
		seen := map[int]bool{}
		for pass := 0; pass < 5; pass++ {
			bodies := []body.Body{
				at(0, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
				at(1, 1, vector.Vector{0, 0.1}, vector.Vector{0, 0}),
			}
			out, _ := merge.Pass(bodies, cfg, ids)
			Expect(out).To(HaveLen(1))
			Expect(seen).NotTo(HaveKey(out[0].ID))
			seen[out[0].ID] = true
		}
		Expect(seen).To(HaveLen(5))
	})

	It("does nothing when disabled", func() {
		cfg.Threshold = 0
		bodies := []body.Body{
			at(0, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
			at(1, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
		}
		out, merges := merge.Pass(bodies, cfg, ids)
		Expect(merges).To(BeZero())
		Expect(out).To(HaveLen(2))
	})

	It("never pairs inert bodies", func() {
		bodies := []body.Body{
			at(0, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
			at(1, 0, vector.Vector{0, 0}, vector.Vector{0, 0}),
		}
		_, merges := merge.Pass(bodies, cfg, ids)
		Expect(merges).To(BeZero())
	})
})

var _ = Describe("Pairs", func() {
	It("returns the same sorted pairs for any worker count", func() {
		var bodies []body.Body
		for i := 0; i < 40; i++ {
			bodies = append(bodies, at(i, 1, vector.Vector{float64(i%7) * 0.3, float64(i/7) * 0.3}, vector.Vector{0, 0}))
		}
		want := merge.Pairs(bodies, 0.5, 1)
		Expect(want).NotTo(BeEmpty())
		for _, workers := range []int{2, 3, 8, 64} {
			Expect(merge.Pairs(bodies, 0.5, workers)).To(Equal(want))
		}
		for k := 1; k < len(want); k++ {
			prev, cur := want[k-1], want[k]
			Expect(prev.I < cur.I || (prev.I == cur.I && prev.J < cur.J)).To(BeTrue())
		}
	})
})

var _ = Describe("IDSource", func() {
	It("starts below existing merge products", func() {
		ids := merge.NewIDSourceFor([]body.Body{
			at(3, 1, vector.Vector{0}, vector.Vector{0}),
			at(-4, 1, vector.Vector{0}, vector.Vector{0}),
		})
		Expect(ids.Next()).To(Equal(-5))
		Expect(ids.Next()).To(Equal(-6))
	})
})

package lemap_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/lemap"
	"github.com/san-kum/driftsim/internal/spill"
)

func newSet(n int, uncertain bool) *spill.LESet {
	set, err := spill.New("les", spill.PointSource{
		Position: drift.WorldPoint3D{Lat: 10, Long: -70},
		NumLEs:   n,
	}, 1)
	Expect(err).NotTo(HaveOccurred())
	set.Uncertain = uncertain
	set.Release(0)
	return set
}

func phase(events []string, verb string) []int {
	var idx []int
	for i, e := range events {
		if strings.HasPrefix(e, verb+" ") {
			idx = append(idx, i)
		}
	}
	return idx
}

// rehome moves recorders from one map to another.
func rehome(from, to *lemap.Map, rs ...*recorder) {
	for _, r := range rs {
		_, err := from.Remove(r.Name())
		Expect(err).NotTo(HaveOccurred())
		Expect(to.Add(r)).To(Succeed())
	}
}

var _ = Describe("Map.Step", func() {
	var (
		j   *journal
		a   *recorder
		b   *recorder
		m   *lemap.Map
		ctx context.Context
	)

	BeforeEach(func() {
		j = newJournal()
		a = newRecorder(j, "a", 100)
		b = newRecorder(j, "b", 50)
		ctx = context.Background()
		m = lemap.New("M", lemap.WithWorkers(4))
		Expect(m.Add(a)).To(Succeed())
		Expect(m.Add(b)).To(Succeed())
	})

	It("prepares every mover before any move and finishes each once", func() {
		set := newSet(10, false)
		report, err := m.Step(ctx, set, 0, 0, 900)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Moved).To(Equal(10))

		events := j.Events()
		prep, moves, done := phase(events, "prepare"), phase(events, "move"), phase(events, "done")
		Expect(prep).To(HaveLen(2))
		Expect(moves).To(HaveLen(20))
		Expect(done).To(HaveLen(2))
		Expect(phase(events, "refresh")).To(BeEmpty())
		Expect(prep[len(prep)-1]).To(BeNumerically("<", moves[0]))
		Expect(moves[len(moves)-1]).To(BeNumerically("<", done[0]))
		Expect(events[len(events)-2:]).To(ConsistOf("done a", "done b"))
		Expect(j.Moves("a")).To(Equal(10))
		Expect(j.Moves("b")).To(Equal(10))
	})

	It("refreshes uncertainty after prepare on uncertain sets", func() {
		set := newSet(3, true)
		_, err := m.Step(ctx, set, 1, 0, 900)
		Expect(err).NotTo(HaveOccurred())

		events := j.Events()
		prep, refresh, moves, done := phase(events, "prepare"), phase(events, "refresh"), phase(events, "move"), phase(events, "done")
		Expect(refresh).To(HaveLen(2))
		Expect(prep[len(prep)-1]).To(BeNumerically("<", refresh[0]))
		Expect(refresh[len(refresh)-1]).To(BeNumerically("<", moves[0]))
		Expect(moves[len(moves)-1]).To(BeNumerically("<", done[0]))
	})

	It("sums displacements independent of mover order", func() {
		set := newSet(5, false)
		_, err := m.Step(ctx, set, 0, 0, 900)
		Expect(err).NotTo(HaveOccurred())

		other := lemap.New("N")
		Expect(other.Add(newRecorder(newJournal(), "b", 50))).To(Succeed())
		Expect(other.Add(newRecorder(newJournal(), "a", 100))).To(Succeed())
		twin := newSet(5, false)
		_, err = other.Step(ctx, twin, 0, 0, 900)
		Expect(err).NotTo(HaveOccurred())

		for i := range set.LEs {
			dx, dy, _ := drift.WorldPoint3D{Lat: 10, Long: -70}.Delta(set.LEs[i].P)
			Expect(dx).To(BeNumerically("~", 150, 1e-6))
			Expect(dy).To(BeNumerically("~", 0, 1e-9))
			Expect(twin.LEs[i].P.Long).To(BeNumerically("~", set.LEs[i].P.Long, 1e-12))
		}
	})

	It("leaves LEs that are not in the water where they are", func() {
		set := newSet(4, false)
		set.LEs[2].Status = drift.OnLand
		before := set.LEs[2].P
		report, err := m.Step(ctx, set, 0, 0, 900)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Moved).To(Equal(3))
		Expect(set.LEs[2].P).To(Equal(before))
	})

	It("ignores vertical motion from 2D movers at the surface", func() {
		a.dz = 5
		c := newRecorder(j, "c", 0)
		c.dz = 2
		c.threeD = true
		Expect(m.Add(c)).To(Succeed())

		set := newSet(1, false)
		_, err := m.Step(ctx, set, 0, 0, 900)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.LEs[0].P.Z).To(BeNumerically("~", 2, 1e-12))
	})

	Context("when a mover fails to prepare", func() {
		BeforeEach(func() {
			b.prepareErr = drift.ErrMissingData
		})

		It("aborts the step by default and still finishes prepared movers", func() {
			set := newSet(2, false)
			before := set.Positions()
			_, err := m.Step(ctx, set, 0, 0, 900)
			Expect(err).To(MatchError(drift.ErrMissingData))

			var me *drift.MoverError
			Expect(errors.As(err, &me)).To(BeTrue())
			Expect(me.Mover).To(Equal("b"))
			Expect(me.Op).To(Equal("prepare"))

			Expect(set.Positions()).To(Equal(before))
			Expect(j.Events()).To(ContainElement("done a"))
			Expect(j.Events()).NotTo(ContainElement("done b"))
		})

		It("skips only the failing mover under SkipMover", func() {
			skip := lemap.New("M", lemap.WithFailurePolicy(lemap.SkipMover))
			rehome(m, skip, a, b)
			m = skip

			set := newSet(2, false)
			report, err := m.Step(ctx, set, 0, 0, 900)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Skipped).To(Equal([]string{"b"}))
			Expect(report.Failures).To(HaveLen(1))
			Expect(j.Moves("b")).To(BeZero())
			Expect(j.Moves("a")).To(Equal(2))
		})
	})

	It("finishes a mover skipped for a refresh failure exactly once", func() {
		skip := lemap.New("M", lemap.WithFailurePolicy(lemap.SkipMover))
		a.refreshErr = drift.ErrGeneric
		rehome(m, skip, a)
		m = skip

		_, err := m.Step(ctx, newSet(2, true), 1, 0, 900)
		Expect(err).NotTo(HaveOccurred())
		Expect(phase(j.Events(), "done")).To(HaveLen(1))
		Expect(j.Moves("a")).To(BeZero())
	})

	It("rejects empty steps", func() {
		_, err := m.Step(ctx, newSet(1, false), 0, 900, 900)
		Expect(err).To(MatchError(lemap.ErrInvalidStep))
		Expect(j.Events()).To(BeEmpty())
	})

	It("stops before moving when the context is canceled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		set := newSet(2, false)
		before := set.Positions()
		_, err := m.Step(cctx, set, 0, 0, 900)
		Expect(err).To(MatchError(context.Canceled))
		Expect(set.Positions()).To(Equal(before))
		Expect(phase(j.Events(), "done")).To(HaveLen(2))
	})
})

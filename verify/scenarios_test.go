package verify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oscilla/patchc/compiler"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/executor"
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/render"
)

var _ = Describe("S3 empty patch", func() {
	It("reports exactly one EmptyPatch diagnostic and builds no program", func() {
		cat := newCatalog()
		res, err := compiler.Compile(cat, patch.Patch{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Program).To(BeNil())
		Expect(res.Bag.Items()).To(HaveLen(1))
		Expect(res.Bag.Items()[0].Code).To(Equal(diagnostics.EEmptyPatch))
	})
})

var _ = Describe("S4 double TimeRoot", func() {
	It("reports EMultipleTimeRoots targeting the second TimeRoot block", func() {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clockA", Type: "TimeRootFinite"},
				{ID: "clockB", Type: "TimeRootFinite"},
			},
		}
		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())

		var found *diagnostics.Diagnostic
		for _, d := range res.Bag.Items() {
			if d.Code == diagnostics.EMultipleTimeRoots {
				found = d
			}
		}
		Expect(found).NotTo(BeNil())
		Expect(found.Target.Kind).To(Equal(diagnostics.TargetTimeRoot))
		Expect(found.Target.BlockID).To(Equal("clockB"))
	})
})

var _ = Describe("S2 unmapped composite boundary port", func() {
	It("reports EPortMissing for an edge into a nonexistent GridPoints boundary port", func() {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clock", Type: "TimeRootFinite"},
				constBlock("src", 1),
				{ID: "grid", Type: "GridPoints"},
			},
			Edges: []patch.Edge{
				wire("badEdge", "src", "out", "grid", "notABoundaryPort"),
			},
		}
		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())

		var found *diagnostics.Diagnostic
		for _, d := range res.Bag.Items() {
			if d.Code == diagnostics.EPortMissing {
				found = d
			}
		}
		Expect(found).NotTo(BeNil())
		Expect(found.Target.EdgeID).To(Equal("badEdge"))
	})
})

var _ = Describe("S6 bus combine modes", func() {
	// Publishers 2, 3, 5 feed one signal bus per combine mode; spec.md §8
	// expects sum=10, product=30, average=10/3, min=2, max=5, last=5 (the
	// last publisher in sorted (blockId,portId) order wins "last").
	runMode := func(mode string) float64 {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clock", Type: "TimeRootFinite"},
				constBlock("p1", 2),
				constBlock("p2", 3),
				constBlock("p3", 5),
				{ID: "bus1", Type: "BusBlock", Params: map[string]any{"mode": mode}},
			},
			Edges: []patch.Edge{
				wire("e1", "p1", "out", "bus1", "in"),
				wire("e2", "p2", "out", "bus1", "in"),
				wire("e3", "p3", "out", "bus1", "in"),
			},
		}
		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Bag.HasErrors()).To(BeFalse())

		rt := executor.NewRuntime(res.Program, res.Schedule)
		_, _, err = rt.ExecuteFrame(0, executor.Viewport{})
		Expect(err).NotTo(HaveOccurred())

		slot := findSlot(res, "bus1.out")
		Expect(slot).NotTo(BeNil())
		return rt.Store.ReadF64(slotFromInt(*slot))
	}

	It("sums", func() { Expect(runMode("sum")).To(BeNumerically("==", 10)) })
	It("multiplies", func() { Expect(runMode("product")).To(BeNumerically("==", 30)) })
	It("averages", func() { Expect(runMode("average")).To(BeNumerically("~", 10.0/3.0, 1e-9)) })
	It("takes the minimum", func() { Expect(runMode("min")).To(BeNumerically("==", 2)) })
	It("takes the maximum", func() { Expect(runMode("max")).To(BeNumerically("==", 5)) })
	It("takes the last publisher", func() { Expect(runMode("last")).To(BeNumerically("==", 5)) })
})

// breathingDotsPatch builds S1's "Breathing dots" graph: a GridPoints
// composite feeding a DotsRenderer composite's domain/positions boundary.
// color/opacity/glow/radius are left unwired, exercising the defaults
// DotsInstances' catalog Def declares for them.
func breathingDotsPatch() patch.Patch {
	return patch.Patch{
		Blocks: []patch.Block{
			{ID: "clock", Type: "TimeRootCyclic", Params: map[string]any{"periodMs": 2000.0}},
			{ID: "grid", Type: "GridPoints"},
			{ID: "dots", Type: "DotsRenderer"},
		},
		Edges: []patch.Edge{
			wire("e1", "grid", "domain", "dots", "domain"),
			wire("e2", "grid", "positions", "dots", "positions"),
		},
		Settings: patch.Settings{Seed: 1},
	}
}

var _ = Describe("S1 breathing dots", func() {
	It("compiles a GridPoints+DotsRenderer composite graph and renders every sampled frame", func() {
		cat := newCatalog()
		res, err := compiler.Compile(cat, breathingDotsPatch())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Bag.HasErrors()).To(BeFalse())

		rt := executor.NewRuntime(res.Program, res.Schedule)
		for _, t := range []float64{0, 500, 1000, 1500} {
			tree, _, err := rt.ExecuteFrame(t, executor.Viewport{Width: 800, Height: 600, DPR: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(tree).NotTo(BeNil())
		}
	})
})

var _ = Describe("S5 deterministic recompile", func() {
	It("produces identical render trees across two independent compiles of S1", func() {
		times := []float64{0, 500, 1000, 1500, 2000}

		run := func() []*render.Node {
			cat := newCatalog()
			res, err := compiler.Compile(cat, breathingDotsPatch())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Bag.HasErrors()).To(BeFalse())

			rt := executor.NewRuntime(res.Program, res.Schedule)
			trees := make([]*render.Node, len(times))
			for i, t := range times {
				tree, _, err := rt.ExecuteFrame(t, executor.Viewport{Width: 800, Height: 600, DPR: 1})
				Expect(err).NotTo(HaveOccurred())
				trees[i] = tree
			}
			return trees
		}

		a, b := run(), run()
		Expect(a).To(Equal(b))
	})
})

package verify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/compiler"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/executor"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/verify"
)

// newCatalog returns a fresh catalog with every builtin block and composite
// registered, the way a real compile entrypoint would build one.
func newCatalog() *catalog.Catalog {
	cat := catalog.New()
	catalog.RegisterBuiltins(cat)
	return cat
}

// constBlock builds a DSConst block instance carrying a concrete signal
// float value, bypassing pass0 (which only synthesizes DSConst for unwired
// default-bearing ports) so tests can wire a literal directly.
func constBlock(id string, value float64) patch.Block {
	return patch.Block{
		ID:   id,
		Type: "DSConst",
		Params: map[string]any{
			"world": "signal",
			"dom":   "float",
			"value": value,
		},
	}
}

func wire(id, fromBlock, fromPort, toBlock, toPort string) patch.Edge {
	return patch.Edge{
		ID:      id,
		From:    patch.PortRef{BlockID: fromBlock, PortID: fromPort},
		To:      patch.PortRef{BlockID: toBlock, PortID: toPort},
		Enabled: true,
		Role:    patch.RoleUser,
	}
}

var _ = Describe("P1 single-writer and P4 port contract", func() {
	It("holds for a minimal valid patch (time root + two consts + Add)", func() {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clock", Type: "TimeRootFinite", Params: map[string]any{"durationMs": 2000.0}},
				constBlock("a", 3),
				constBlock("b", 4),
				{ID: "sum", Type: "Add"},
			},
			Edges: []patch.Edge{
				wire("e1", "a", "out", "sum", "a"),
				wire("e2", "b", "out", "sum", "b"),
			},
			Settings: patch.Settings{Seed: 1},
		}

		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Bag.HasErrors()).To(BeFalse())

		issues := verify.RunInvariants(res, nil)
		Expect(issues).To(BeEmpty())
	})
})

var _ = Describe("P6 bus empty default", func() {
	It("evaluates an unpublished signal bus to zero", func() {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clock", Type: "TimeRootFinite"},
				{ID: "bus1", Type: "BusBlock", Params: map[string]any{"mode": "sum"}},
			},
			Settings: patch.Settings{Seed: 1},
		}

		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Bag.Items()).NotTo(BeEmpty()) // W_BUS_EMPTY warning
		for _, d := range res.Bag.Items() {
			Expect(d.Severity).NotTo(Equal(diagnostics.SeverityError))
		}

		slot := findSlot(res, "bus1.out")
		Expect(slot).NotTo(BeNil())

		rt := executor.NewRuntime(res.Program, res.Schedule)
		_, _, err = rt.ExecuteFrame(0, executor.Viewport{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rt.Store.ReadF64(slotFromInt(*slot))).To(BeNumerically("==", 0))
	})

	It("honors an author-declared defaultValue instead of zero", func() {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clock", Type: "TimeRootFinite"},
				{ID: "bus1", Type: "BusBlock", Params: map[string]any{"mode": "sum", "defaultValue": 7.5}},
			},
			Settings: patch.Settings{Seed: 1},
		}

		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Bag.HasErrors()).To(BeFalse())

		slot := findSlot(res, "bus1.out")
		Expect(slot).NotTo(BeNil())

		rt := executor.NewRuntime(res.Program, res.Schedule)
		_, _, err = rt.ExecuteFrame(0, executor.Viewport{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rt.Store.ReadF64(slotFromInt(*slot))).To(BeNumerically("==", 7.5))
	})

	It("RunInvariants raises no P6 issue when the lowered fallback matches the declared default", func() {
		cat := newCatalog()
		p := patch.Patch{
			Blocks: []patch.Block{
				{ID: "clock", Type: "TimeRootFinite"},
				{ID: "bus1", Type: "BusBlock", Params: map[string]any{"mode": "sum", "defaultValue": 7.5}},
			},
			Settings: patch.Settings{Seed: 1},
		}
		res, err := compiler.Compile(cat, p)
		Expect(err).NotTo(HaveOccurred())

		for _, iss := range verify.RunInvariants(res, nil) {
			Expect(iss.Property).NotTo(Equal(verify.PropBusEmptyDefault))
		}
	})
})

// findSlot locates the ValueSlot metadata entry whose DebugName matches
// name, or nil if no such slot was allocated.
func findSlot(res *compiler.Result, name string) *int {
	for _, s := range res.Program.Slots {
		if s.DebugName == name {
			v := int(s.Slot)
			return &v
		}
	}
	return nil
}

func slotFromInt(v int) ir.ValueSlot {
	return ir.ValueSlot(v)
}

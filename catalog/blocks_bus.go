package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerBusBlocks adds the BusBlock type representing a named pub/sub
// channel in the author graph (spec.md §3's Bus). A BusBlock's actual
// sigCombine/fieldCombine IR node is created by the compiler's pass7 bus
// lowering once every publisher is known; BusBlock's own Lower is a no-op
// placeholder so the catalog still has one registered entry per
// user-visible block type (the compiler special-cases BusBlock instances
// rather than routing them through a generic Lower call).
//
// "mode" (CombineMode string, default "sum") and "defaultValue" (float64,
// default 0) are read directly from the instance's Params by pass7's
// lowerBus rather than declared as wired ports, since both are
// author-time constants rather than dataflow inputs.
func registerBusBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "BusBlock",
		Capability: CapabilityIdentity,
		Relaxed:    true,
		Inputs:     []Port{{ID: "in", Type: typedesc.Signal(typedesc.Float)}},
		Outputs:    []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			// The compiler's lowerBlock hands every BusBlock instance to
			// lowerBus and never calls this Lower. If it is called anyway,
			// it returns a sigCombine node with no terms and no error.
			out := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigCombine, Lanes: 1, DebugName: ctx.BlockID})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, typedesc.Signal(typedesc.Float)),
			}}, nil
		},
	})
}

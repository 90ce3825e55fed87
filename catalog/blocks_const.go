package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerConstBlocks adds DSConst, the provider block pass0 synthesizes in
// place of an unwired input port that declares a DefaultSource (spec.md
// §4.2 pass0: "materialize defaults"). Its declared Outputs entry is a
// nominal placeholder only — pass0 stamps the concrete world/domain/lanes
// a particular defaulted port needs into the synthesized instance's own
// Params, and Lower rebuilds the real TypeDesc from those params, since one
// registered Def cannot carry a different static port type per call site.
func registerConstBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "DSConst",
		Capability: CapabilityPure,
		Relaxed:    true,
		Outputs:    []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			world, _ := ctx.Params["world"].(string)
			dom, _ := ctx.Params["dom"].(string)
			lanes := intParam(ctx.Params, "lanes", 1)
			t := typedesc.New(typedesc.World(world), typedesc.Domain(dom))
			if lanes > 1 {
				t.Lanes = []int{lanes}
			}
			constID := ctx.Builder.InternConst(ctx.Params["value"])
			out := ctx.Builder.AddSig(ir.SigNode{
				Kind: ir.SigConst, ConstID: constID, Lanes: t.Arity(), DebugName: ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, t),
			}}, nil
		},
	})
}

package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerMathBlocks adds the pure numeric kernel blocks (spec.md §4.7's
// opcode kernel list). Each one simply wraps a signalIR map/zip node
// around the named sigeval kernel; sigeval itself never imports catalog,
// so the two packages stay coupled only through these string names.
func registerMathBlocks(cat *Catalog) {
	binary := func(typ, fn string) {
		cat.Register(Def{
			Type:       typ,
			Capability: CapabilityPure,
			Inputs: []Port{
				{ID: "a", Type: typedesc.Signal(typedesc.Float)},
				{ID: "b", Type: typedesc.Signal(typedesc.Float)},
			},
			Outputs: []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
			Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
				a := in.ByID["a"]
				b := in.ByID["b"]
				out := ctx.Builder.AddSig(ir.SigNode{
					Kind: ir.SigZip, A: a.Sig, B: b.Sig, FnName: fn, Lanes: 1,
					DebugName: ctx.BlockID,
				})
				return LowerOutputs{ByID: map[string]ValueRef{
					"out": SigRef(out, typedesc.Signal(typedesc.Float)),
				}}, nil
			},
		})
	}
	binary("Add", "Add")
	binary("Sub", "Sub")
	binary("Mul", "Mul")
	binary("Div", "Div")
	binary("Min", "Min")
	binary("Max", "Max")

	unary := func(typ, fn string) {
		cat.Register(Def{
			Type:       typ,
			Capability: CapabilityPure,
			Inputs:     []Port{{ID: "in", Type: typedesc.Signal(typedesc.Float)}},
			Outputs:    []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
			Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
				src := in.ByID["in"]
				out := ctx.Builder.AddSig(ir.SigNode{
					Kind: ir.SigMap, Src: src.Sig, FnName: fn, Lanes: 1,
					DebugName: ctx.BlockID,
				})
				return LowerOutputs{ByID: map[string]ValueRef{
					"out": SigRef(out, typedesc.Signal(typedesc.Float)),
				}}, nil
			},
		})
	}
	unary("Floor", "Floor")
	unary("Sin", "Sin")
	unary("Cos", "Cos")
	unary("Abs", "Abs")
	unary("Negate", "Negate")

	cat.Register(Def{
		Type:       "Clamp",
		Capability: CapabilityPure,
		Inputs: []Port{
			{ID: "in", Type: typedesc.Signal(typedesc.Float)},
			{ID: "lo", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 0.0}},
			{ID: "hi", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 1.0}},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			x, lo, hi := in.ByID["in"], in.ByID["lo"], in.ByID["hi"]
			step1 := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigZip, A: x.Sig, B: lo.Sig, FnName: "Max", Lanes: 1})
			out := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigZip, A: step1, B: hi.Sig, FnName: "Min", Lanes: 1, DebugName: ctx.BlockID})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, typedesc.Signal(typedesc.Float)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "Lerp",
		Capability: CapabilityPure,
		Inputs: []Port{
			{ID: "a", Type: typedesc.Signal(typedesc.Float)},
			{ID: "b", Type: typedesc.Signal(typedesc.Float)},
			{ID: "t", Type: typedesc.Signal(typedesc.Float)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			a, b, t := in.ByID["a"], in.ByID["b"], in.ByID["t"]
			// b-a, then (b-a)*t, then a+(b-a)*t — three zip nodes since
			// sigeval's Lerp kernel is ternary but SigZip only carries two
			// expr-id operands; SigMap chains the third via FnName params
			// is avoided here in favor of composing from binary ops, which
			// keeps every signalIR node's arity uniform.
			diff := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigZip, A: b.Sig, B: a.Sig, FnName: "Sub", Lanes: 1})
			scaled := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigZip, A: diff, B: t.Sig, FnName: "Mul", Lanes: 1})
			out := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigZip, A: a.Sig, B: scaled, FnName: "Add", Lanes: 1, DebugName: ctx.BlockID})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, typedesc.Signal(typedesc.Float)),
			}}, nil
		},
	})
}

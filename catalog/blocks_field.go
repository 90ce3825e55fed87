package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerFieldBlocks adds the pure field-world operator blocks (spec.md
// §3's fieldIR node kinds: broadcastSig, map, zip, select).
func registerFieldBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "Broadcast",
		Capability: CapabilityPure,
		Inputs: []Port{
			{ID: "value", Type: typedesc.Signal(typedesc.Float)},
			{ID: "domain", Type: typedesc.Special(typedesc.DomainH)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Field(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			value := in.ByID["value"]
			domain := in.ByID["domain"]
			out := ctx.Builder.AddField(ir.FieldNode{
				Kind:       ir.FieldBroadcastSig,
				SigSrc:     value.Sig,
				DomainSlot: domain.Slot,
				Lanes:      1,
				DebugName:  ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": FieldRef(out, typedesc.Field(typedesc.Float)),
			}}, nil
		},
	})

	fieldUnary := func(typ, fn string) {
		cat.Register(Def{
			Type:       typ,
			Capability: CapabilityPure,
			Inputs:     []Port{{ID: "in", Type: typedesc.Field(typedesc.Float)}},
			Outputs:    []Port{{ID: "out", Type: typedesc.Field(typedesc.Float)}},
			Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
				src := in.ByID["in"]
				out := ctx.Builder.AddField(ir.FieldNode{
					Kind: ir.FieldMap, Src: src.Field, FnName: fn, Lanes: 1, DebugName: ctx.BlockID,
				})
				return LowerOutputs{ByID: map[string]ValueRef{
					"out": FieldRef(out, typedesc.Field(typedesc.Float)),
				}}, nil
			},
		})
	}
	fieldUnary("FieldFloor", "Floor")
	fieldUnary("FieldSin", "Sin")
	fieldUnary("FieldAbs", "Abs")

	cat.Register(Def{
		Type:       "FieldZip",
		Capability: CapabilityPure,
		Inputs: []Port{
			{ID: "a", Type: typedesc.Field(typedesc.Float)},
			{ID: "b", Type: typedesc.Field(typedesc.Float)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Field(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			a := in.ByID["a"]
			b := in.ByID["b"]
			fn, _ := ctx.Params["fn"].(string)
			if fn == "" {
				fn = "Add"
			}
			out := ctx.Builder.AddField(ir.FieldNode{
				Kind: ir.FieldZip, A: a.Field, B: b.Field, FnName: fn, Lanes: 1, DebugName: ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": FieldRef(out, typedesc.Field(typedesc.Float)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "FieldSelect",
		Capability: CapabilityPure,
		Inputs: []Port{
			{ID: "cond", Type: typedesc.Field(typedesc.Bool)},
			{ID: "ifTrue", Type: typedesc.Field(typedesc.Float)},
			{ID: "ifFalse", Type: typedesc.Field(typedesc.Float)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Field(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			cond, t, f := in.ByID["cond"], in.ByID["ifTrue"], in.ByID["ifFalse"]
			out := ctx.Builder.AddField(ir.FieldNode{
				Kind: ir.FieldSelect, Cond: cond.Field, IfTrue: t.Field, IfFalse: f.Field,
				Lanes: 1, DebugName: ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": FieldRef(out, typedesc.Field(typedesc.Float)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "SampleSignal",
		Capability: CapabilityPure,
		Inputs: []Port{
			{ID: "signal", Type: typedesc.Signal(typedesc.Float)},
			{ID: "domain", Type: typedesc.Special(typedesc.DomainH)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Field(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			// sig.Slot already holds the materialized value of the "signal"
			// input: every signal-world block output is eagerly evaluated
			// into its own ValueSlot by the compiler the moment it is
			// produced, so fieldIR's sampleSignal node only needs to name
			// that slot, never re-derive it.
			sig := in.ByID["signal"]
			domain := in.ByID["domain"]
			out := ctx.Builder.AddField(ir.FieldNode{
				Kind:       ir.FieldSampleSignal,
				SignalSlot: sig.Slot,
				DomainID:   domain.Slot,
				Lanes:      1,
				DebugName:  ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": FieldRef(out, typedesc.Field(typedesc.Float)),
			}}, nil
		},
	})
}

package catalog

import (
	"math"

	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerStatefulBlocks adds the state-capability blocks whose evaluation
// semantics spec.md §4.7 gives as worked state-machine examples
// (EnvelopeAD, PulseDivider) plus Oscillator.
func registerStatefulBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "EnvelopeAD",
		Capability: CapabilityState,
		UsesState:  true,
		Inputs: []Port{
			{ID: "trigger", Type: typedesc.Signal(typedesc.Trigger)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			trig := in.ByID["trigger"]

			negInf := ctx.Builder.InternConst(math.Inf(-1))
			zero := ctx.Builder.InternConst(0)
			triggerCell := ctx.Builder.AllocStateCell(ir.StorageF64, 1, negInf, ir.RoleValue, ctx.BlockID+".triggerTime")
			ctx.Builder.AllocStateCell(ir.StorageI32, 1, zero, ir.RoleValue, ctx.BlockID+".wasTriggered")

			out := ctx.Builder.AddSig(ir.SigNode{
				Kind:    ir.SigStateful,
				StateOp: "EnvelopeAD",
				Input:   trig.Sig,
				StateID: triggerCell,
				OpParams: map[string]any{
					"attackMs": floatParam(ctx.Params, "attackMs", 10),
					"decayMs":  floatParam(ctx.Params, "decayMs", 200),
					"peak":     floatParam(ctx.Params, "peak", 1),
				},
				Lanes:     1,
				DebugName: ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, typedesc.Signal(typedesc.Float)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "PulseDivider",
		Capability: CapabilityState,
		UsesState:  true,
		Inputs: []Port{
			{ID: "phase", Type: typedesc.Signal(typedesc.Phase01)},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Event(typedesc.Trigger)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			phase := in.ByID["phase"]
			negOne := ctx.Builder.InternConst(-1)
			cell := ctx.Builder.AllocStateCell(ir.StorageI32, 1, negOne, ir.RoleCounter, ctx.BlockID+".lastSubPhase")
			out := ctx.Builder.AddSig(ir.SigNode{
				Kind:    ir.SigStateful,
				StateOp: "PulseDivider",
				Input:   phase.Sig,
				StateID: cell,
				OpParams: map[string]any{
					"divisions": floatParam(ctx.Params, "divisions", 1),
				},
				Lanes:     1,
				DebugName: ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, typedesc.Event(typedesc.Trigger)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "Oscillator",
		Capability: CapabilityState,
		UsesState:  true,
		Inputs: []Port{
			{ID: "freqHz", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 1.0}},
		},
		Outputs: []Port{{ID: "out", Type: typedesc.Signal(typedesc.Float)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			freq := in.ByID["freqHz"]
			zero := ctx.Builder.InternConst(0)
			cell := ctx.Builder.AllocStateCell(ir.StorageF64, 1, zero, ir.RolePhase, ctx.BlockID+".phase")
			shape, _ := ctx.Params["shape"].(string)
			if shape == "" {
				shape = "sine"
			}
			out := ctx.Builder.AddSig(ir.SigNode{
				Kind:      ir.SigStateful,
				StateOp:   "Oscillator",
				Input:     freq.Sig,
				StateID:   cell,
				OpParams:  map[string]any{"shape": shape},
				Lanes:     1,
				DebugName: ctx.BlockID,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"out": SigRef(out, typedesc.Signal(typedesc.Float)),
			}}, nil
		},
	})
}

func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerTimeBlocks adds the TimeRoot family: the sole time-capability
// block kind a valid patch may contain exactly one instance of (spec.md
// pass3's MissingTimeRoot/MultipleTimeRoots checks live in the compiler,
// not here; this file only declares the port/capability shape and emits
// the canonical time signals pass3 discovers).
func registerTimeBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "TimeRootFinite",
		Capability: CapabilityTime,
		Outputs: []Port{
			{ID: "tAbsMs", Type: typedesc.Signal(typedesc.TimeMs)},
			{ID: "tModelMs", Type: typedesc.Signal(typedesc.TimeMs)},
		},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			tAbs := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigTimeAbsMs, Lanes: 1, DebugName: ctx.BlockID + ".tAbsMs"})
			tModel := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigTimeModelMs, Lanes: 1, DebugName: ctx.BlockID + ".tModelMs"})
			return LowerOutputs{ByID: map[string]ValueRef{
				"tAbsMs":   SigRef(tAbs, typedesc.Signal(typedesc.TimeMs)),
				"tModelMs": SigRef(tModel, typedesc.Signal(typedesc.TimeMs)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "TimeRootCyclic",
		Capability: CapabilityTime,
		Outputs: []Port{
			{ID: "tAbsMs", Type: typedesc.Signal(typedesc.TimeMs)},
			{ID: "tModelMs", Type: typedesc.Signal(typedesc.TimeMs)},
			{ID: "phase01", Type: typedesc.Signal(typedesc.Phase01)},
			{ID: "wrapEvent", Type: typedesc.Event(typedesc.Trigger)},
		},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			tAbs := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigTimeAbsMs, Lanes: 1, DebugName: ctx.BlockID + ".tAbsMs"})
			tModel := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigTimeModelMs, Lanes: 1, DebugName: ctx.BlockID + ".tModelMs"})
			phase := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigPhase01, Lanes: 1, DebugName: ctx.BlockID + ".phase01"})
			wrap := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigWrapEvent, Lanes: 1, DebugName: ctx.BlockID + ".wrapEvent"})
			return LowerOutputs{ByID: map[string]ValueRef{
				"tAbsMs":    SigRef(tAbs, typedesc.Signal(typedesc.TimeMs)),
				"tModelMs":  SigRef(tModel, typedesc.Signal(typedesc.TimeMs)),
				"phase01":   SigRef(phase, typedesc.Signal(typedesc.Phase01)),
				"wrapEvent": SigRef(wrap, typedesc.Event(typedesc.Trigger)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "TimeRootInfinite",
		Capability: CapabilityTime,
		Outputs: []Port{
			{ID: "tAbsMs", Type: typedesc.Signal(typedesc.TimeMs)},
		},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			tAbs := ctx.Builder.AddSig(ir.SigNode{Kind: ir.SigTimeAbsMs, Lanes: 1, DebugName: ctx.BlockID + ".tAbsMs"})
			return LowerOutputs{ByID: map[string]ValueRef{
				"tAbsMs": SigRef(tAbs, typedesc.Signal(typedesc.TimeMs)),
			}}, nil
		},
	})
}

package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerDomainBlocks adds the identity-capability blocks that create
// domain handles (spec.md §3's Domain: "a handle to an integer element
// count"). Only identity-capability blocks may emit ArtifactDomain
// (enforced by ValidatePureCapability).
func registerDomainBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "DomainN",
		Capability: CapabilityIdentity,
		Inputs: []Port{
			{ID: "count", Type: typedesc.Scalar(typedesc.Int), DefaultSource: &DefaultSource{Value: 1}},
		},
		Outputs: []Port{{ID: "domain", Type: typedesc.Special(typedesc.DomainH)}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			count := intParam(ctx.Params, "count", 1)
			slot := ctx.Builder.AllocValueSlot(typedesc.Special(typedesc.DomainH), ctx.BlockID+".domain")
			ctx.Builder.RecordSlotSource(slot, ctx.BlockID)
			ctx.Builder.AddDomainSeed(slot, count)
			return LowerOutputs{ByID: map[string]ValueRef{
				"domain": DomainRef(slot),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "GridDomain",
		Capability: CapabilityIdentity,
		Inputs: []Port{
			{ID: "rows", Type: typedesc.Scalar(typedesc.Int), DefaultSource: &DefaultSource{Value: 1}},
			{ID: "cols", Type: typedesc.Scalar(typedesc.Int), DefaultSource: &DefaultSource{Value: 1}},
			{ID: "spacing", Type: typedesc.Scalar(typedesc.Float), DefaultSource: &DefaultSource{Value: 1.0}},
		},
		Outputs: []Port{
			{ID: "domain", Type: typedesc.Special(typedesc.DomainH)},
			{ID: "positions", Type: typedesc.Field(typedesc.Vec2)},
		},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			rows := intParam(ctx.Params, "rows", 1)
			cols := intParam(ctx.Params, "cols", 1)
			spacing := floatParam(ctx.Params, "spacing", 1)

			slot := ctx.Builder.AllocValueSlot(typedesc.Special(typedesc.DomainH), ctx.BlockID+".domain")
			ctx.Builder.RecordSlotSource(slot, ctx.BlockID)
			ctx.Builder.AddDomainSeed(slot, rows*cols)

			positions := make([]any, 0, rows*cols)
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					positions = append(positions, []any{float64(c) * spacing, float64(r) * spacing})
				}
			}
			constID := ctx.Builder.InternConst(positions)
			posField := ctx.Builder.AddField(ir.FieldNode{
				Kind:      ir.FieldConst,
				ConstID:   constID,
				Lanes:     2,
				DebugName: ctx.BlockID + ".positions",
			})

			return LowerOutputs{ByID: map[string]ValueRef{
				"domain":    DomainRef(slot),
				"positions": FieldRef(posField, typedesc.Field(typedesc.Vec2)),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "SVGSampleDomain",
		Capability: CapabilityIdentity,
		Inputs: []Port{
			{ID: "count", Type: typedesc.Scalar(typedesc.Int), DefaultSource: &DefaultSource{Value: 1}},
		},
		Outputs: []Port{
			{ID: "domain", Type: typedesc.Special(typedesc.DomainH)},
			{ID: "positions", Type: typedesc.Field(typedesc.Vec2)},
		},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			// Sampling an author-supplied SVG path into evenly-spaced
			// points is an authoring-time concern (editor tooling owns
			// path parsing per spec.md's out-of-scope list); at lower
			// time this block is handed the already-sampled point list
			// via params["points"] (a []any of [x, y] pairs, as decoded
			// from JSON).
			raw, _ := ctx.Params["points"].([]any)
			count := len(raw)
			if count == 0 {
				count = intParam(ctx.Params, "count", 1)
			}

			slot := ctx.Builder.AllocValueSlot(typedesc.Special(typedesc.DomainH), ctx.BlockID+".domain")
			ctx.Builder.RecordSlotSource(slot, ctx.BlockID)
			ctx.Builder.AddDomainSeed(slot, count)

			var positions []any
			if len(raw) > 0 {
				positions = raw
			} else {
				positions = make([]any, count)
				for i := range positions {
					positions[i] = []any{0.0, 0.0}
				}
			}
			constID := ctx.Builder.InternConst(positions)
			posField := ctx.Builder.AddField(ir.FieldNode{
				Kind:      ir.FieldConst,
				ConstID:   constID,
				Lanes:     2,
				DebugName: ctx.BlockID + ".positions",
			})

			return LowerOutputs{ByID: map[string]ValueRef{
				"domain":    DomainRef(slot),
				"positions": FieldRef(posField, typedesc.Field(typedesc.Vec2)),
			}}, nil
		},
	})
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

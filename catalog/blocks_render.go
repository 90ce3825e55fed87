package catalog

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// registerRenderBlocks adds the render-capability sink blocks (spec.md
// §6's RenderTree node kinds). Render blocks don't append signalIR/fieldIR
// nodes of their own kind; they resolve their inputs to slots and record a
// RenderSink the schedule executor's composeRender reads at render time.
func registerRenderBlocks(cat *Catalog) {
	cat.Register(Def{
		Type:       "ClearRenderer",
		Capability: CapabilityRender,
		Inputs: []Port{
			{ID: "color", Type: typedesc.Signal(typedesc.Color)},
		},
		Outputs: []Port{{ID: "renderTree", Type: typedesc.Special(typedesc.String).WithSemantics("RenderTree", "")}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			color := in.ByID["color"]
			ctx.Builder.AddRenderSink(ctx.BlockID, "ClearRenderer", map[string]ir.ValueSlot{
				"color": color.Slot,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"renderTree": SpecialRef(ir.InvalidSlot, typedesc.Special(typedesc.String), ArtifactRenderTree),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "GroupRenderer",
		Capability: CapabilityRender,
		Inputs: []Port{
			{ID: "opacity", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 1.0}},
		},
		Outputs: []Port{{ID: "renderTree", Type: typedesc.Special(typedesc.String).WithSemantics("RenderTree", "")}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			opacity := in.ByID["opacity"]
			ctx.Builder.AddRenderSink(ctx.BlockID, "GroupRenderer", map[string]ir.ValueSlot{
				"opacity": opacity.Slot,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"renderTree": SpecialRef(ir.InvalidSlot, typedesc.Special(typedesc.String), ArtifactRenderTree),
			}}, nil
		},
	})

	// DotsInstances is the primitive a DotsRenderer composite instance
	// expands to (catalog.RegisterBuiltinComposites, builtin_composites.
	// yaml): the "color"/"opacity"/"glow"/"radius" boundary ports spec.md's
	// S1 "Breathing dots" scenario names are plain wired signal inputs
	// here, the same way GridPoints' rows/cols/spacing wire through to
	// GridDomain, so a listener bound to the composite's "radius"
	// boundary behaves identically to one wired straight to this input
	// (P7 composite transparency) without any Params-templating detour.
	cat.Register(Def{
		Type:       "DotsInstances",
		Capability: CapabilityRender,
		Inputs: []Port{
			{ID: "domain", Type: typedesc.Special(typedesc.DomainH)},
			{ID: "positions", Type: typedesc.Field(typedesc.Vec2)},
			{ID: "colors", Type: typedesc.Field(typedesc.Color), Optional: true},
			// Stored (like every other signal slot) through the sig
			// evaluator's F64 write path, so the default and every
			// authored value for this port is a packed-RGBA float64
			// rather than a native uint32; composeDotsSink unpacks it.
			{ID: "color", Type: typedesc.Signal(typedesc.Color), DefaultSource: &DefaultSource{Value: float64(0xffffffff)}},
			{ID: "opacity", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 1.0}},
			{ID: "glow", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 0.0}},
			{ID: "radius", Type: typedesc.Signal(typedesc.Float), DefaultSource: &DefaultSource{Value: 4.0}},
		},
		Outputs: []Port{{ID: "renderTree", Type: typedesc.Special(typedesc.String).WithSemantics("RenderTree", "")}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			domain := in.ByID["domain"]
			positions := in.ByID["positions"]
			posSlot := ctx.MaterializeField(positions.Field, domain.Slot, ctx.BlockID+".positions")
			inputs := map[string]ir.ValueSlot{
				"domainSlot": domain.Slot,
				"positions":  posSlot,
				"color":      in.ByID["color"].Slot,
				"opacity":    in.ByID["opacity"].Slot,
				"glow":       in.ByID["glow"].Slot,
				"radius":     in.ByID["radius"].Slot,
			}
			if colors, ok := in.ByID["colors"]; ok {
				inputs["colors"] = ctx.MaterializeField(colors.Field, domain.Slot, ctx.BlockID+".colors")
			}
			ctx.Builder.AddRenderSink(ctx.BlockID, "DotsInstances", inputs)
			return LowerOutputs{ByID: map[string]ValueRef{
				"renderTree": SpecialRef(ir.InvalidSlot, typedesc.Special(typedesc.String), ArtifactRenderTree),
			}}, nil
		},
	})

	cat.Register(Def{
		Type:       "PathRenderer",
		Capability: CapabilityRender,
		Inputs: []Port{
			{ID: "domain", Type: typedesc.Special(typedesc.DomainH)},
			{ID: "positions", Type: typedesc.Field(typedesc.Vec2)},
		},
		Outputs: []Port{{ID: "renderTree", Type: typedesc.Special(typedesc.String).WithSemantics("RenderTree", "")}},
		Lower: func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error) {
			domain := in.ByID["domain"]
			positions := in.ByID["positions"]
			posSlot := ctx.MaterializeField(positions.Field, domain.Slot, ctx.BlockID+".positions")
			ctx.Builder.AddRenderSink(ctx.BlockID, "PathRenderer", map[string]ir.ValueSlot{
				"domainSlot": domain.Slot,
				"positions":  posSlot,
			})
			return LowerOutputs{ByID: map[string]ValueRef{
				"renderTree": SpecialRef(ir.InvalidSlot, typedesc.Special(typedesc.String), ArtifactRenderTree),
			}}, nil
		},
	})
}

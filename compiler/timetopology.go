package compiler

import (
	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/patch"
)

var timeRootKinds = map[string]bool{
	"TimeRootFinite":   true,
	"TimeRootCyclic":   true,
	"TimeRootInfinite": true,
}

// resolveTimeTopology implements pass3: requires exactly one TimeRoot block
// in the patch and extracts its TimeModel from the block's own params
// (spec.md §3's TimeModel tagged union). Reports MissingTimeRoot/
// MultipleTimeRoots. With no TimeRoot it returns a zero-value infinite
// model as a safe fallback; with several it returns the first root's
// model, so later passes always have a TimeModel to reason about even
// when a diagnostic was raised.
func resolveTimeTopology(cat *catalog.Catalog, p patch.Patch, bag *diagnostics.Bag) (ir.TimeModel, string) {
	var roots []patch.Block
	for _, b := range p.Blocks {
		if timeRootKinds[b.Type] {
			roots = append(roots, b)
		}
	}
	switch len(roots) {
	case 0:
		bag.Addf(diagnostics.EMissingTimeRoot, diagnostics.SeverityError, diagnostics.PhaseCompile,
			diagnostics.Target{Kind: diagnostics.TargetTimeRoot}, "patch has no TimeRoot block")
		return ir.Infinite(0, false), ""
	case 1:
		return timeModelFromParams(roots[0]), roots[0].ID
	default:
		for _, r := range roots[1:] {
			bag.Addf(diagnostics.EMultipleTimeRoots, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetTimeRoot, BlockID: r.ID},
				"patch has more than one TimeRoot block (first: %s)", roots[0].ID)
		}
		return timeModelFromParams(roots[0]), roots[0].ID
	}
}

func timeModelFromParams(b patch.Block) ir.TimeModel {
	switch b.Type {
	case "TimeRootFinite":
		return ir.Finite(floatParamLocal(b.Params, "durationMs", 1000))
	case "TimeRootCyclic":
		mode := ir.CyclicLoop
		if s, _ := b.Params["mode"].(string); s == "pingpong" {
			mode = ir.CyclicPingPong
		}
		return ir.Cyclic(floatParamLocal(b.Params, "periodMs", 1000), mode)
	default: // TimeRootInfinite
		hasWindow := false
		window := floatParamLocal(b.Params, "windowMs", 0)
		if window > 0 {
			hasWindow = true
		}
		return ir.Infinite(window, hasWindow)
	}
}

func floatParamLocal(params map[string]any, key string, def float64) float64 {
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

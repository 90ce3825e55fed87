package compiler

import (
	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/typedesc"
)

// resolveTypes implements pass2: for every enabled edge, checks that the
// producer's declared output TypeDesc and the consumer's declared input
// TypeDesc are compatible (spec.md pass2: PortTypeMismatch/WorldMismatch).
// BusBlock instances are exempt: a bus's real type is only known once
// pass7 has seen every publisher, so edges touching a BusBlock's "in"/"out"
// ports are checked there instead (EBusTypeError), not here.
func resolveTypes(cat *catalog.Catalog, p patch.Patch, idx *blockIndex, bag *diagnostics.Bag) {
	for _, e := range p.Edges {
		if !e.Enabled {
			continue
		}
		fromBlock, ok := p.BlockByID(e.From.BlockID)
		if !ok {
			continue
		}
		toBlock, ok := p.BlockByID(e.To.BlockID)
		if !ok {
			continue
		}
		if fromBlock.Type == "BusBlock" || toBlock.Type == "BusBlock" {
			continue
		}
		outType, ok := outputType(cat, fromBlock, e.From.PortID)
		if !ok {
			continue
		}
		inType, ok := inputType(cat, toBlock, e.To.PortID)
		if !ok {
			continue
		}
		if outType.World != inType.World {
			bag.Addf(diagnostics.EWorldMismatch, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetEdge, EdgeID: e.ID},
				"edge %q: world mismatch %s -> %s", e.ID, outType.World, inType.World)
			continue
		}
		if outType.Dom != inType.Dom {
			bag.Addf(diagnostics.EPortTypeMismatch, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetEdge, EdgeID: e.ID},
				"edge %q: type mismatch %s -> %s", e.ID, outType, inType)
		}
	}
}

// outputType resolves a block's declared output TypeDesc for portID.
// DSConst is special-cased because its real output type is stamped into
// its own Params by pass0 rather than declared statically in the catalog
// (one registered Def cannot carry a different static port type per
// synthesized instance).
func outputType(cat *catalog.Catalog, b patch.Block, portID string) (typedesc.TypeDesc, bool) {
	if b.Type == "DSConst" {
		world, _ := b.Params["world"].(string)
		dom, _ := b.Params["dom"].(string)
		t := typedesc.New(typedesc.World(world), typedesc.Domain(dom))
		if lanes := intParamLocal(b.Params, "lanes", 1); lanes > 1 {
			t.Lanes = []int{lanes}
		}
		return t, true
	}
	def, ok := cat.Lookup(b.Type)
	if !ok {
		return typedesc.TypeDesc{}, false
	}
	for _, p := range def.Outputs {
		if p.ID == portID {
			return p.Type, true
		}
	}
	return typedesc.TypeDesc{}, false
}

func inputType(cat *catalog.Catalog, b patch.Block, portID string) (typedesc.TypeDesc, bool) {
	def, ok := cat.Lookup(b.Type)
	if !ok {
		return typedesc.TypeDesc{}, false
	}
	for _, p := range def.Inputs {
		if p.ID == portID {
			return p.Type, true
		}
	}
	return typedesc.TypeDesc{}, false
}

func intParamLocal(params map[string]any, key string, def int) int {
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

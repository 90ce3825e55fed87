package compiler

import (
	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/patch"
)

// maxCompositeDepth bounds recursive composite expansion (a composite whose
// template instantiates itself, directly or through another composite,
// would otherwise expand forever).
const maxCompositeDepth = 8

// expandComposites implements pass4: replaces every composite block
// instance with its template's internal blocks/edges (ids scoped with
// catalog.PrefixBlockID) and rewrites any edge touching one of its
// boundary ports to the internal (blockId, portId) the composite maps that
// boundary to, per CompositeDef.Expand. Repeats until no composite
// instances remain or maxCompositeDepth is hit, so a composite built from
// other composites expands fully.
func expandComposites(cat *catalog.Catalog, p patch.Patch, idx *blockIndex, bag *diagnostics.Bag) (patch.Patch, *blockIndex) {
	cur := p
	for depth := 0; depth < maxCompositeDepth; depth++ {
		anyComposite := false
		for _, b := range cur.Blocks {
			if cat.IsComposite(b.Type) {
				anyComposite = true
				break
			}
		}
		if !anyComposite {
			break
		}
		cur = expandOnePass(cat, cur, bag)
	}
	return cur, normalize(cur)
}

func expandOnePass(cat *catalog.Catalog, p patch.Patch, bag *diagnostics.Bag) patch.Patch {
	var outBlocks []patch.Block
	rewrites := make(map[string]patch.PortRef) // "instanceId:portId" -> internal ref
	instances := make(map[string]bool)          // composite instance block ids being removed

	for _, b := range p.Blocks {
		def, ok := cat.LookupComposite(b.Type)
		if !ok {
			outBlocks = append(outBlocks, b)
			continue
		}
		instances[b.ID] = true
		innerBlocks, innerEdges, rewrite := def.Expand(b.ID, b.Params)
		for _, ib := range innerBlocks {
			ib.ID = catalog.PrefixBlockID(b.ID, ib.ID)
			outBlocks = append(outBlocks, ib)
		}
		for portID, ref := range rewrite {
			rewrites[patch.DefaultSourceKey(b.ID, portID)] = ref
		}
		for _, ie := range innerEdges {
			ie.ID = catalog.PrefixBlockID(b.ID, ie.ID)
			ie.From = patch.PortRef{BlockID: catalog.PrefixBlockID(b.ID, ie.From.BlockID), PortID: ie.From.PortID}
			ie.To = patch.PortRef{BlockID: catalog.PrefixBlockID(b.ID, ie.To.BlockID), PortID: ie.To.PortID}
			p.Edges = append(p.Edges, ie)
		}
	}

	outEdges := make([]patch.Edge, 0, len(p.Edges))
	for _, e := range p.Edges {
		from := e.From
		to := e.To
		missing := false
		if instances[e.From.BlockID] {
			if ref, ok := rewrites[patch.DefaultSourceKey(e.From.BlockID, e.From.PortID)]; ok {
				from = ref
			} else {
				missing = true
			}
		}
		if instances[e.To.BlockID] {
			if ref, ok := rewrites[patch.DefaultSourceKey(e.To.BlockID, e.To.PortID)]; ok {
				to = ref
			} else {
				missing = true
			}
		}
		if missing {
			bag.Addf(diagnostics.EPortMissing, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetEdge, EdgeID: e.ID},
				"edge %q references a port not exposed by composite boundary", e.ID)
			continue
		}
		e.From, e.To = from, to
		outEdges = append(outEdges, e)
	}

	return patch.Patch{
		ID:             p.ID,
		Revision:       p.Revision,
		Blocks:         outBlocks,
		Edges:          outEdges,
		DefaultSources: p.DefaultSources,
		Settings:       p.Settings,
	}
}

package compiler

import (
	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/patch"
)

// materializeDefaults implements pass0: for every primitive block instance's
// input port that is not driven by an enabled wire, synthesize a DSConst
// provider block plus a default-role wire feeding it, so every later pass
// can assume "every declared input port that matters is driven by some
// block's output" (spec.md §4.2 pass0). A port with neither an explicit
// patch.DefaultSources override nor a catalog-declared DefaultSource is
// left unwired; pass5 reports those as MissingInput if the port turns out
// to be required.
//
// compiler.go calls this pass twice: once before composite expansion (pass4)
// so an author-facing block's own unwired ports get defaulted, and once
// again immediately after, since expansion introduces new primitive blocks
// (a composite's internal template) that the first call never saw — a
// composite instance itself is skipped below (cat.Lookup only resolves
// primitive types), so without the second call an internal primitive's
// catalog-declared DefaultSource would never be materialized. Both calls
// share this same linear pass over cat.Lookup; a block/port already driven
// by a default-role edge from the first call is simply skipped by the
// second.
func materializeDefaults(cat *catalog.Catalog, p patch.Patch, bag *diagnostics.Bag) patch.Patch {
	out := p
	out.Blocks = append([]patch.Block(nil), p.Blocks...)
	out.Edges = append([]patch.Edge(nil), p.Edges...)

	driven := make(map[string]bool, len(p.Edges))
	for _, e := range p.Edges {
		if !e.Enabled {
			continue
		}
		driven[patch.DefaultSourceKey(e.To.BlockID, e.To.PortID)] = true
	}

	for _, b := range p.Blocks {
		def, ok := cat.Lookup(b.Type)
		if !ok {
			continue // composite or unregistered type; pass5 flags the latter
		}
		for _, port := range def.Inputs {
			key := patch.DefaultSourceKey(b.ID, port.ID)
			if driven[key] {
				continue
			}
			value, has := p.DefaultSources[key]
			if !has && port.DefaultSource != nil {
				value = port.DefaultSource.Value
				has = true
			}
			if !has {
				continue
			}
			providerID := b.ID + "::default::" + port.ID
			out.Blocks = append(out.Blocks, patch.Block{
				ID:   providerID,
				Type: "DSConst",
				Params: map[string]any{
					"value": value,
					"world": string(port.Type.World),
					"dom":   string(port.Type.Dom),
					"lanes": port.Type.Arity(),
				},
			})
			out.Edges = append(out.Edges, patch.Edge{
				ID:      providerID + "::edge",
				From:    patch.PortRef{BlockID: providerID, PortID: "out"},
				To:      patch.PortRef{BlockID: b.ID, PortID: port.ID},
				Enabled: true,
				Role:    patch.RoleDefault,
			})
		}
	}
	return out
}

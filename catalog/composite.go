package catalog

import (
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/typedesc"
)

// BoundaryPort is a composite's externally-visible port: its own port id
// plus the internal (blockId, portId) it maps to once expanded. An empty
// Internal means the boundary port has no inputMap entry — a listener
// bound to it produces a hard PortMissing error (spec.md pass4).
type BoundaryPort struct {
	PortID   string
	Type     typedesc.TypeDesc
	Internal patch.PortRef // zero value => unmapped
}

// CompositeDef is a macro block: a template sub-graph plus the boundary
// port map the compiler's composite-expansion pass (pass4) rewrites
// through.
type CompositeDef struct {
	Type    string
	Inputs  []BoundaryPort
	Outputs []BoundaryPort

	// Template is evaluated once per instance to produce the internal
	// sub-graph. Internal block/edge ids are NOT yet prefixed; pass4
	// prefixes them with "<instanceId>::" before merging into the patch,
	// which is what makes re-expansion at the same position deterministic
	// (property D1/D2): the same instance id always yields the same
	// internal ids.
	Template func(instanceID string, params map[string]any) ([]patch.Block, []patch.Edge)
}

// Expand runs the composite's template and returns internally-scoped
// blocks/edges plus the rewrite map from boundary port id to internal
// (blockId, portId).
func (c CompositeDef) Expand(instanceID string, params map[string]any) ([]patch.Block, []patch.Edge, map[string]patch.PortRef) {
	blocks, edges := c.Template(instanceID, params)
	rewrite := make(map[string]patch.PortRef, len(c.Inputs)+len(c.Outputs))
	for _, p := range c.Inputs {
		if p.Internal != (patch.PortRef{}) {
			rewrite[p.PortID] = prefixRef(instanceID, p.Internal)
		}
	}
	for _, p := range c.Outputs {
		if p.Internal != (patch.PortRef{}) {
			rewrite[p.PortID] = prefixRef(instanceID, p.Internal)
		}
	}
	return blocks, edges, rewrite
}

func prefixRef(instanceID string, ref patch.PortRef) patch.PortRef {
	return patch.PortRef{BlockID: instanceID + "::" + ref.BlockID, PortID: ref.PortID}
}

// PrefixBlockID scopes an internal block id to a composite instance.
func PrefixBlockID(instanceID, internalID string) string {
	return instanceID + "::" + internalID
}

// Package catalog implements the block catalog of spec.md §4.1: the
// immutable, process-wide registry of block types (ports, capability,
// lower function) and composite macro definitions, handed to the
// compiler per invocation (spec.md §9: "never mutate a registry during
// compilation").
package catalog

import (
	"fmt"
	"sort"

	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// Capability is the side-effect/purity class a block type declares.
type Capability string

const (
	CapabilityPure     Capability = "pure"
	CapabilityIdentity Capability = "identity"
	CapabilityTime     Capability = "time"
	CapabilityState    Capability = "state"
	CapabilityRender   Capability = "render"
	CapabilityIO       Capability = "io"
)

// DefaultSource is the declared fallback a pass0 provider block is
// synthesized from when an input port is not driven by a wire.
type DefaultSource struct {
	Value any
	World typedesc.World
}

// Port is one input or output port of a block type.
type Port struct {
	ID            string
	Label         string
	Type          typedesc.TypeDesc
	DefaultSource *DefaultSource
	// Optional exempts an input port from pass5's required-input check
	// without pass0 synthesizing a DSConst provider for it, for a port
	// whose Lower function already branches on whether it was wired (a
	// field input with no scalar default worth fabricating, e.g. a
	// per-point color override).
	Optional bool
}

// LowerContext is handed to a block's Lower function by pass6.
type LowerContext struct {
	Builder *ir.Builder
	Bag     *diagnostics.Bag
	BlockID string
	Params  map[string]any
	Time    ir.TimeModel
	Seed    int

	// MaterializeField resolves a field expression to a concrete ValueSlot
	// holding its materialized *field.Buffer, against the given domain
	// (spec.md §4.6: a field only has element values once paired with a
	// domain's element count). The compiler implements this by recording a
	// fieldEval schedule step; block Lower functions call it at the exact
	// point a field value needs slot-level access (render sink inputs),
	// since the same field expression can be materialized against
	// different domains at different call sites and so cannot be
	// eagerly resolved the way signal outputs are.
	MaterializeField func(field ir.FieldExprId, domainSlot ir.ValueSlot, debugName string) ir.ValueSlot
}

// LowerInputs bundles a block's resolved input ValueRefs, positionally and
// by port id.
type LowerInputs struct {
	Positional []ValueRef
	ByID       map[string]ValueRef
}

// LowerOutputs is what a block's Lower function returns: its output
// ValueRefs, positionally and/or by port id.
type LowerOutputs struct {
	Positional []ValueRef
	ByID       map[string]ValueRef
}

// LowerFunc lowers one block instance into IR nodes and output slots.
type LowerFunc func(ctx *LowerContext, in LowerInputs) (LowerOutputs, error)

// Def is a registered block type: its port/capability metadata and its
// lower function.
type Def struct {
	Type       string
	Inputs     []Port
	Outputs    []Port
	Capability Capability
	UsesState  bool
	// Relaxed opts a block type out of strict port-contract enforcement
	// (spec.md §4.1): order of editor-declared ports need not match the
	// order Lower emits them in.
	Relaxed bool
	Lower   LowerFunc
}

// Catalog is the immutable, process-wide block registry.
type Catalog struct {
	defs       map[string]Def
	composites map[string]CompositeDef
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		defs:       make(map[string]Def),
		composites: make(map[string]CompositeDef),
	}
}

// Register adds (or idempotently re-adds) a primitive block definition.
// Registration is process-wide: calling Register twice with an identical
// Type+port list is a no-op, matching spec.md §6's "Registration is
// process-wide and idempotent."
func (c *Catalog) Register(def Def) error {
	if def.Type == "" {
		return fmt.Errorf("catalog: block definition missing Type")
	}
	if def.Lower == nil {
		return fmt.Errorf("catalog: block %q missing Lower function", def.Type)
	}
	c.defs[def.Type] = def
	return nil
}

// RegisterComposite adds a composite macro definition.
func (c *Catalog) RegisterComposite(def CompositeDef) error {
	if def.Type == "" {
		return fmt.Errorf("catalog: composite definition missing Type")
	}
	c.composites[def.Type] = def
	return nil
}

// Lookup returns the primitive Def for a type key.
func (c *Catalog) Lookup(typ string) (Def, bool) {
	d, ok := c.defs[typ]
	return d, ok
}

// LookupComposite returns the CompositeDef for a type key.
func (c *Catalog) LookupComposite(typ string) (CompositeDef, bool) {
	d, ok := c.composites[typ]
	return d, ok
}

// IsComposite reports whether typ names a composite rather than a
// primitive block.
func (c *Catalog) IsComposite(typ string) bool {
	_, ok := c.composites[typ]
	return ok
}

// Types returns all registered primitive type keys in sorted order, for
// deterministic iteration in tests and tooling.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.defs))
	for k := range c.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidatePureCapability rejects a block's output artifacts that its
// capability is not permitted to produce (spec.md §4.1's "pure-block
// validator"): only render blocks may emit RenderTree-family artifacts,
// only identity blocks may emit Domain handles, only io blocks may emit
// ExternalAsset.
func ValidatePureCapability(def Def, outputs LowerOutputs, bag *diagnostics.Bag, blockID string) {
	check := func(ref ValueRef) {
		if ref.Artifact == ArtifactNone {
			return
		}
		required, ok := RequiredCapability[ref.Artifact]
		if !ok {
			return
		}
		if def.Capability != required {
			bag.Addf(diagnostics.EOutputWrongType, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetBlock, BlockID: blockID},
				"block %q (capability=%s) may not produce artifact %s (requires capability=%s)",
				def.Type, def.Capability, ref.Artifact, required)
		}
	}
	for _, r := range outputs.Positional {
		check(r)
	}
	for _, r := range outputs.ByID {
		check(r)
	}
}

// ValidatePortContract checks spec.md P4: for a non-relaxed block type,
// the editor-declared port id order must equal the order the block
// actually produced outputs in (when using outputsById). Positional
// outputs trivially satisfy the contract by construction.
func ValidatePortContract(def Def, outIDOrder []string, bag *diagnostics.Bag, blockID string) {
	if def.Relaxed {
		return
	}
	if len(outIDOrder) == 0 {
		return
	}
	declared := make([]string, len(def.Outputs))
	for i, p := range def.Outputs {
		declared[i] = p.ID
	}
	if len(declared) != len(outIDOrder) {
		bag.Addf(diagnostics.EPortContract, diagnostics.SeverityError, diagnostics.PhaseCompile,
			diagnostics.Target{Kind: diagnostics.TargetBlock, BlockID: blockID},
			"block %q: declared %d output ports but lower produced %d", def.Type, len(declared), len(outIDOrder))
		return
	}
	for i := range declared {
		if declared[i] != outIDOrder[i] {
			bag.Addf(diagnostics.EPortContract, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetBlock, BlockID: blockID},
				"block %q: output port order mismatch at index %d: declared %q, lower emitted %q",
				def.Type, i, declared[i], outIDOrder[i])
			return
		}
	}
}

package compiler

import (
	"fmt"
	"sort"

	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/schedule"
	"github.com/oscilla/patchc/typedesc"
)

// lowerCoordinator implements pass6 (block lowering) and pass7 (bus
// lowering) together: blocks are visited in dependency order (a block's
// producers must already have output ValueRefs recorded before its own
// Lower call runs), with pass1's array order used only to pick
// deterministic DFS roots and tie-break traversal — see the Open Question
// decision in DESIGN.md on why pass6 cannot literally use array order.
// Pass8's link resolution falls out of this same walk: every signal-world
// output is eagerly materialized into a ValueSlot via a dedicated sigEval
// step the moment it is produced (so any later consumer, debug probe, or
// render sink can read it as a concrete slot); field-world outputs stay
// lazy FieldExprIds and are only turned into a fieldEval step at the exact
// point something needs slot-level access to a materialized buffer
// (render sink inputs), since the same field expression can be
// materialized against different domains at different call sites.
type lowerCoordinator struct {
	cat *catalog.Catalog
	p   patch.Patch
	idx *blockIndex
	b   *ir.Builder
	bag *diagnostics.Bag
	time ir.TimeModel
	seedVal int

	outputs  map[string]map[string]catalog.ValueRef
	visiting map[string]bool
	done     map[string]bool

	steps         []schedule.Step
	stepForSlot   map[ir.ValueSlot]string
	stepForSigExpr map[ir.SigExprId]string
	seq           int

	// tAbsMs/tModelMs/phase01/wrapEvent are the reserved ValueSlots the
	// timeDerive step writes into (executor.Runtime.findTimeSlots looks
	// them up by the matching SlotMeta.DebugName), allocated once at the
	// start of run() so debug probes always have a concrete slot to watch.
	tAbsMs, tModelMs, phase01, wrapEvent ir.ValueSlot
}

func newLowerCoordinator(cat *catalog.Catalog, p patch.Patch, idx *blockIndex, b *ir.Builder, bag *diagnostics.Bag) *lowerCoordinator {
	return &lowerCoordinator{
		cat:            cat,
		p:              p,
		idx:            idx,
		b:              b,
		bag:            bag,
		time:           b.TimeModelOf(),
		seedVal:        p.Settings.Seed,
		outputs:        make(map[string]map[string]catalog.ValueRef),
		visiting:       make(map[string]bool),
		done:           make(map[string]bool),
		stepForSlot:    make(map[ir.ValueSlot]string),
		stepForSigExpr: make(map[ir.SigExprId]string),
	}
}

func (lc *lowerCoordinator) run() error {
	lc.tAbsMs = lc.b.AllocValueSlot(typedesc.Signal(typedesc.Float), "__tAbsMs")
	lc.tModelMs = lc.b.AllocValueSlot(typedesc.Signal(typedesc.Float), "__tModelMs")
	lc.phase01 = lc.b.AllocValueSlot(typedesc.Signal(typedesc.Float), "__phase01")
	lc.wrapEvent = lc.b.AllocValueSlot(typedesc.Signal(typedesc.Float), "__wrapEvent")
	lc.steps = append(lc.steps, schedule.Step{ID: "__timeDerive", Kind: schedule.KindTimeDerive})

	for _, id := range sortedBlockIDs(lc.idx) {
		if err := lc.lowerBlock(id); err != nil {
			return err
		}
	}

	// Debug probes for time-derive outputs are always injected (spec.md
	// pass8); one per probe so a debug sink can tell tAbsMs apart from
	// phase01 without decoding a composite payload.
	for _, ts := range []struct {
		name string
		slot ir.ValueSlot
	}{
		{"tAbsMs", lc.tAbsMs},
		{"tModelMs", lc.tModelMs},
		{"phase01", lc.phase01},
		{"wrapEvent", lc.wrapEvent},
	} {
		lc.steps = append(lc.steps, schedule.Step{
			ID: "debug:__timeDerive." + ts.name, Kind: schedule.KindDebugProbe,
			TargetSlot: int(ts.slot), ProbeOf: "__timeDerive", Deps: []string{"__timeDerive"},
		})
	}

	// Full-probe mode additionally observes every sigEval/busEval step's
	// target slot (spec.md pass8: "after every step in full-probe mode").
	// fieldEval steps are excluded: their target slot holds an opaque
	// materialized-field handle, not a value runProbeStep's ReadF64 can
	// meaningfully report.
	if lc.p.Settings.FullProbe {
		observed := append([]schedule.Step(nil), lc.steps...)
		for _, step := range observed {
			if step.Kind != schedule.KindSigEval {
				continue
			}
			lc.steps = append(lc.steps, schedule.Step{
				ID: "debug:" + step.ID, Kind: schedule.KindDebugProbe,
				TargetSlot: step.TargetSlot, ProbeOf: step.ID, Deps: []string{step.ID},
			})
		}
	}

	lc.steps = append(lc.steps, schedule.Step{ID: "__render", Kind: schedule.KindRender})
	return nil
}

func (lc *lowerCoordinator) lowerBlock(id string) error {
	if lc.done[id] {
		return nil
	}
	if lc.visiting[id] {
		// checkAcyclic (pass5) already reported this patch as invalid;
		// stub the output so the recursion unwinds instead of looping.
		lc.done[id] = true
		lc.outputs[id] = map[string]catalog.ValueRef{}
		return nil
	}
	lc.visiting[id] = true

	block, ok := lc.p.BlockByID(id)
	if !ok {
		lc.visiting[id] = false
		return fmt.Errorf("compiler: edge references unknown block %q", id)
	}

	for _, e := range lc.idx.inbound[id] {
		if !e.Enabled {
			continue
		}
		if err := lc.lowerBlock(e.From.BlockID); err != nil {
			lc.visiting[id] = false
			return err
		}
	}

	if block.Type == "BusBlock" {
		lc.lowerBus(block)
		lc.visiting[id] = false
		lc.done[id] = true
		return nil
	}

	def, ok := lc.cat.Lookup(block.Type)
	if !ok {
		// Unregistered types are reported by validate(); nothing to lower.
		lc.visiting[id] = false
		lc.done[id] = true
		lc.outputs[id] = map[string]catalog.ValueRef{}
		return nil
	}

	in := lc.buildInputs(def, block)
	ctx := &catalog.LowerContext{
		Builder:          lc.b,
		Bag:              lc.bag,
		BlockID:          id,
		Params:           block.Params,
		Time:             lc.time,
		Seed:             lc.seedVal,
		MaterializeField: lc.materializeField,
	}

	out, err := def.Lower(ctx, in)
	if err != nil {
		lc.bag.Addf(diagnostics.EUpstreamError, diagnostics.SeverityError, diagnostics.PhaseCompile,
			diagnostics.Target{Kind: diagnostics.TargetBlock, BlockID: id}, "block %q: %v", id, err)
		lc.visiting[id] = false
		lc.done[id] = true
		lc.outputs[id] = map[string]catalog.ValueRef{}
		return nil
	}

	var outIDOrder []string
	if len(out.ByID) > 0 {
		for _, p := range def.Outputs {
			if _, ok := out.ByID[p.ID]; ok {
				outIDOrder = append(outIDOrder, p.ID)
			}
		}
	}
	catalog.ValidatePortContract(def, outIDOrder, lc.bag, id)
	catalog.ValidatePureCapability(def, out, lc.bag, id)

	// Finalize in declared port order (then any undeclared ports sorted by
	// id) so slot and step numbering does not depend on map iteration.
	resolved := make(map[string]catalog.ValueRef, len(out.ByID))
	for _, portID := range outIDOrder {
		resolved[portID] = lc.finalizeOutput(id, portID, out.ByID[portID])
	}
	var extra []string
	for portID := range out.ByID {
		if _, ok := resolved[portID]; !ok {
			extra = append(extra, portID)
		}
	}
	sort.Strings(extra)
	for _, portID := range extra {
		resolved[portID] = lc.finalizeOutput(id, portID, out.ByID[portID])
	}
	lc.outputs[id] = resolved
	lc.visiting[id] = false
	lc.done[id] = true
	return nil
}

// buildInputs resolves a (non-bus) block's declared input ports to the
// single driving producer's ValueRef each. Multiple publishers into one
// port only occurs for BusBlock's "in" port, handled separately by
// lowerBus.
func (lc *lowerCoordinator) buildInputs(def catalog.Def, block patch.Block) catalog.LowerInputs {
	byID := make(map[string]catalog.ValueRef, len(def.Inputs))
	for _, port := range def.Inputs {
		var edge *patch.Edge
		for i := range lc.idx.inbound[block.ID] {
			e := lc.idx.inbound[block.ID][i]
			if e.To.PortID == port.ID && e.Enabled {
				edge = &e
				break
			}
		}
		if edge == nil {
			continue
		}
		producer, ok := lc.outputs[edge.From.BlockID]
		if !ok {
			continue
		}
		ref, ok := producer[edge.From.PortID]
		if !ok {
			continue
		}
		byID[port.ID] = ref
	}
	return catalog.LowerInputs{ByID: byID}
}

// finalizeOutput eagerly materializes a signal-world output into its own
// ValueSlot via a sigEval step; field-world, domain, const, and special
// refs are returned unchanged (see the type's doc comment for why fields
// stay lazy).
func (lc *lowerCoordinator) finalizeOutput(blockID, portID string, ref catalog.ValueRef) catalog.ValueRef {
	if ref.Kind != catalog.RefSig {
		return ref
	}
	slot := lc.b.AllocValueSlot(ref.Type, blockID+"."+portID)
	stepID := fmt.Sprintf("sig:%s.%s#%d", blockID, portID, lc.seq)
	lc.seq++
	lc.steps = append(lc.steps, schedule.Step{
		ID: stepID, Kind: schedule.KindSigEval, SigExprID: int(ref.Sig), TargetSlot: int(slot),
	})
	lc.stepForSlot[slot] = stepID
	lc.stepForSigExpr[ref.Sig] = stepID
	ref.Slot = slot
	return ref
}

// materializeField is the compiler-side implementation of
// catalog.LowerContext.MaterializeField: it records a fieldEval step that
// materializes fieldID against domainSlot's element count, depending on
// whatever sigEval steps feed any sampleSignal/broadcastSig leaf found in
// the field expression's subtree (spec.md §4.6's only store-mediated
// dependency between the signal and field worlds).
func (lc *lowerCoordinator) materializeField(fieldID ir.FieldExprId, domainSlot ir.ValueSlot, debugName string) ir.ValueSlot {
	slot := lc.b.AllocValueSlot(typedesc.Special(typedesc.String), debugName)
	stepID := fmt.Sprintf("field:%s#%d", debugName, lc.seq)
	lc.seq++
	deps := lc.collectSignalDeps(fieldID)
	lc.steps = append(lc.steps, schedule.Step{
		ID: stepID, Kind: schedule.KindFieldEval,
		FieldExprID: int(fieldID), TargetSlot: int(slot), DomainSlot: int(domainSlot),
		Deps: deps,
	})
	return slot
}

func (lc *lowerCoordinator) collectSignalDeps(root ir.FieldExprId) []string {
	seen := make(map[ir.FieldExprId]bool)
	var deps []string
	var walk func(id ir.FieldExprId)
	walk = func(id ir.FieldExprId) {
		if seen[id] {
			return
		}
		seen[id] = true
		n := lc.b.FieldNodeAt(id)
		switch n.Kind {
		case ir.FieldMap:
			walk(n.Src)
		case ir.FieldZip:
			walk(n.A)
			walk(n.B)
		case ir.FieldSelect:
			walk(n.Cond)
			walk(n.IfTrue)
			walk(n.IfFalse)
		case ir.FieldCombine:
			for _, t := range n.Terms {
				walk(t)
			}
		case ir.FieldSampleSignal:
			if sid, ok := lc.stepForSlot[n.SignalSlot]; ok {
				deps = append(deps, sid)
			}
		case ir.FieldBroadcastSig:
			if sid, ok := lc.stepForSigExpr[n.SigSrc]; ok {
				deps = append(deps, sid)
			}
		}
	}
	walk(root)
	return deps
}

// lowerBus implements pass7: gathers every enabled publisher edge into a
// BusBlock's "in" port (sorted by (blockId, portId) for deterministic
// combine-term order), builds a sigCombine or fieldCombine node from them,
// and records the bus's "out" output the same way any other block's
// output is recorded. A bus whose publishers mix worlds is a hard
// EBusTypeError; an empty bus gets a fallback const term holding its
// defaultValue param, 0 when absent (W_BUS_EMPTY was already reported by
// validate).
func (lc *lowerCoordinator) lowerBus(block patch.Block) {
	edges := append([]patch.Edge(nil), lc.idx.inbound[block.ID]...)
	var publishers []patch.Edge
	for _, e := range edges {
		if e.Enabled && e.To.PortID == "in" {
			publishers = append(publishers, e)
		}
	}
	sort.Slice(publishers, func(i, j int) bool {
		if publishers[i].From.BlockID != publishers[j].From.BlockID {
			return publishers[i].From.BlockID < publishers[j].From.BlockID
		}
		return publishers[i].From.PortID < publishers[j].From.PortID
	})

	var sigTerms []ir.SigExprId
	var fieldTerms []ir.FieldExprId
	sigLanes, fieldLanes := 1, 1
	for _, e := range publishers {
		producer, ok := lc.outputs[e.From.BlockID]
		if !ok {
			continue
		}
		ref, ok := producer[e.From.PortID]
		if !ok {
			continue
		}
		switch ref.Kind {
		case catalog.RefSig:
			sigTerms = append(sigTerms, ref.Sig)
			if a := ref.Type.Arity(); a > sigLanes {
				sigLanes = a
			}
		case catalog.RefField:
			fieldTerms = append(fieldTerms, ref.Field)
			if a := ref.Type.Arity(); a > fieldLanes {
				fieldLanes = a
			}
		}
	}
	if len(sigTerms) > 0 && len(fieldTerms) > 0 {
		lc.bag.Addf(diagnostics.EBusTypeError, diagnostics.SeverityError, diagnostics.PhaseCompile,
			diagnostics.Target{Kind: diagnostics.TargetBus, BusID: block.ID},
			"bus %q mixes signal-world and field-world publishers", block.ID)
	}

	modeStr, _ := block.Params["mode"].(string)
	if modeStr == "" {
		modeStr = "sum"
	}
	mode := typedesc.CombineMode(modeStr)

	if len(fieldTerms) > 0 && len(sigTerms) == 0 {
		t := typedesc.Field(typedesc.Float)
		if fieldLanes > 1 {
			t.Lanes = []int{fieldLanes}
		}
		if !typedesc.CombineCompatible(mode, t) {
			lc.bag.Addf(diagnostics.EUnsupportedCombine, diagnostics.SeverityError, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetBus, BusID: block.ID},
				"bus %q: combine mode %q is not compatible with %s", block.ID, mode, t)
		}
		combined := lc.b.AddField(ir.FieldNode{
			Kind: ir.FieldCombine, Terms: fieldTerms, Mode: mode, Lanes: fieldLanes, DebugName: block.ID,
		})
		lc.outputs[block.ID] = map[string]catalog.ValueRef{"out": catalog.FieldRef(combined, t)}
		return
	}

	t := typedesc.Signal(typedesc.Float)
	if sigLanes > 1 {
		t.Lanes = []int{sigLanes}
	}
	if len(sigTerms) == 0 {
		// An empty bus falls back to its author-declared defaultValue
		// (spec.md pass7: "empty buses with no publishers emit a const
		// node populated from the bus defaultValue"), defaulting to 0 when
		// the block carries none.
		fallback := lc.b.InternConst(floatParamLocal(block.Params, "defaultValue", 0.0))
		sigTerms = []ir.SigExprId{lc.b.AddSig(ir.SigNode{
			Kind: ir.SigConst, ConstID: fallback, Lanes: 1, DebugName: block.ID + ".emptyBus",
		})}
	} else if !typedesc.CombineCompatible(mode, t) {
		lc.bag.Addf(diagnostics.EUnsupportedCombine, diagnostics.SeverityError, diagnostics.PhaseCompile,
			diagnostics.Target{Kind: diagnostics.TargetBus, BusID: block.ID},
			"bus %q: combine mode %q is not compatible with %s", block.ID, mode, t)
	}
	combined := lc.b.AddSig(ir.SigNode{
		Kind: ir.SigCombine, Terms: sigTerms, Mode: mode, Lanes: sigLanes, DebugName: block.ID,
	})
	ref := lc.finalizeOutput(block.ID, "out", catalog.SigRef(combined, t))
	lc.outputs[block.ID] = map[string]catalog.ValueRef{"out": ref}
}

package compiler

import (
	"sort"

	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/patch"
)

// validate implements pass5: every required input port must be driven
// (after pass0 has already filled in defaulted ones), and the block
// dependency graph induced by wires must be acyclic — a prerequisite pass6
// block lowering relies on (each block's Lower call needs every producer
// it reads from to have already run).
func validate(cat *catalog.Catalog, p patch.Patch, idx *blockIndex, bag *diagnostics.Bag) {
	validateRequiredInputs(cat, p, bag)
	validateBusPublishers(p, bag)
	checkAcyclic(idx, bag)
}

func validateRequiredInputs(cat *catalog.Catalog, p patch.Patch, bag *diagnostics.Bag) {
	driven := make(map[string]bool, len(p.Edges))
	for _, e := range p.Edges {
		if e.Enabled {
			driven[patch.DefaultSourceKey(e.To.BlockID, e.To.PortID)] = true
		}
	}
	for _, b := range p.Blocks {
		// A BusBlock's "in" port may legitimately have no publishers;
		// validateBusPublishers reports that case as W_BUS_EMPTY instead.
		if b.Type == "DSConst" || b.Type == "BusBlock" {
			continue
		}
		def, ok := cat.Lookup(b.Type)
		if !ok {
			if !cat.IsComposite(b.Type) {
				bag.Addf(diagnostics.EUnregisteredSignal, diagnostics.SeverityError, diagnostics.PhaseCompile,
					diagnostics.Target{Kind: diagnostics.TargetBlock, BlockID: b.ID},
					"block %q has unregistered type %q", b.ID, b.Type)
			}
			continue
		}
		for _, port := range def.Inputs {
			if port.DefaultSource != nil || port.Optional {
				continue
			}
			if !driven[patch.DefaultSourceKey(b.ID, port.ID)] {
				bag.Addf(diagnostics.EMissingInput, diagnostics.SeverityError, diagnostics.PhaseCompile,
					diagnostics.Target{Kind: diagnostics.TargetPort, BlockID: b.ID, PortID: port.ID},
					"block %q: required input %q is not driven", b.ID, port.ID)
			}
		}
	}
}

// validateBusPublishers emits W_BUS_EMPTY for a BusBlock with no inbound
// publisher edges (spec.md pass5's bus warning); pass7 still synthesizes a
// fallback const term holding the bus's defaultValue param (0 when the
// param is absent) so evaluation stays well-defined.
func validateBusPublishers(p patch.Patch, bag *diagnostics.Bag) {
	for _, b := range p.Blocks {
		if b.Type != "BusBlock" {
			continue
		}
		if len(p.EdgesTo(b.ID, "in")) == 0 {
			bag.Addf(diagnostics.WBusEmpty, diagnostics.SeverityWarn, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetBus, BusID: b.ID},
				"bus %q has no publishers", b.ID)
		}
	}
}

// checkAcyclic runs a white/gray/black DFS over the block-level wire graph
// (adapted from the same coloring scheme schedule.Build uses for steps,
// here applied one level up to blocks before any IR exists to build steps
// from) and reports a cycle as a single ECycleDetected diagnostic rather
// than letting pass6's dependency-ordered lowering recurse forever.
func checkAcyclic(idx *blockIndex, bag *diagnostics.Bag) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(idx.order))
	var cyclePath []string

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case gray:
			cyclePath = append(cyclePath, id)
			return true
		case black:
			return false
		}
		state[id] = gray
		deps := append([]string(nil), idx.inbound[id]...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].From.BlockID < deps[j].From.BlockID })
		for _, e := range deps {
			if visit(e.From.BlockID) {
				cyclePath = append(cyclePath, id)
				return true
			}
		}
		state[id] = black
		return false
	}

	for _, id := range idx.order {
		if state[id] == white {
			if visit(id) {
				bag.Addf(diagnostics.ECycleDetected, diagnostics.SeverityFatal, diagnostics.PhaseCompile,
					diagnostics.Target{Kind: diagnostics.TargetGraphSpan}, "cycle among blocks: %v", cyclePath)
				return
			}
		}
	}
}

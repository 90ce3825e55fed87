// Package compiler implements the pass0..pass8 pipeline of spec.md §4.2:
// normalizing an author Patch into a dense IR plus an executable Schedule.
// Each pass takes an immutable input and returns a new value; diagnostics
// accumulate in a shared Bag rather than aborting on the first graph-shape
// problem, matching the teacher's verify.RunLint accumulation style
// (verify/lint.go collects every finding before a caller decides whether
// to fail).
package compiler

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/patch"
	"github.com/oscilla/patchc/schedule"
)

// LevelTrace is one step below slog.LevelDebug, matching the teacher's
// LevelTrace/LevelWaveform custom levels (core/util.go): used here for
// per-pass tracing that would be too noisy even at LevelDebug.
const LevelTrace = slog.Level(-8)

// logger is the package-level slog.Logger every pass writes through,
// mirroring the teacher's package-level logger obtained from
// slog.Default() unless a caller redirects it.
var logger = slog.Default()

// SetLogger redirects every subsequent Compile call's pass tracing to l.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Result is everything one compile invocation produces.
type Result struct {
	Program  *ir.BuilderProgramIR
	Schedule *schedule.Schedule
	Bag      *diagnostics.Bag
	// Patch is the fully-expanded patch (post pass4/composite expansion)
	// this Result was lowered from, kept around so a caller like
	// verify.RunInvariants can cross-reference a block's author-declared
	// Params (e.g. a bus's defaultValue) against the IR it lowered to.
	// Zero-valued when Compile bailed out before expansion ran (empty
	// patch).
	Patch patch.Patch
}

// Compile runs the full pass pipeline over p using the given catalog.
// Graph-shape and typing problems, cycles included, are accumulated in the
// returned Bag; Compile itself only returns a non-nil error when lowering
// meets an edge to an unknown block or schedule.Build fails for a reason
// other than a cycle.
func Compile(cat *catalog.Catalog, p patch.Patch) (*Result, error) {
	bag := diagnostics.New()
	logger.Log(nil, LevelTrace, "compile: begin", slog.Int("blocks", len(p.Blocks)), slog.Int("edges", len(p.Edges)))

	if len(p.Blocks) == 0 {
		bag.Addf(diagnostics.EEmptyPatch, diagnostics.SeverityError, diagnostics.PhaseCompile,
			diagnostics.Target{Kind: diagnostics.TargetGraphSpan}, "patch has no blocks")
		return &Result{Bag: bag}, nil
	}

	// pass0 — materialize defaults.
	wp := materializeDefaults(cat, p, bag)
	logger.Debug("compile: pass0 materializeDefaults done", slog.Int("blocks", len(wp.Blocks)))

	// pass1 — normalize.
	idx := normalize(wp)
	logger.Debug("compile: pass1 normalize done")

	// pass4 — composite expansion (run before type resolution so
	// PortRefRewriteMap rewrites are in place for pass2's walk).
	wp, idx = expandComposites(cat, wp, idx, bag)
	logger.Debug("compile: pass4 expandComposites done", slog.Int("blocks", len(wp.Blocks)))

	// pass0 (re-run) — a composite's internal blocks are primitive types
	// the first materializeDefaults call never saw (composite instances
	// are skipped by cat.Lookup), so any of their catalog-declared
	// DefaultSource ports that still have no wire after expansion need
	// defaults synthesized now. Blocks/ports defaulted by the first pass0
	// call are already driven by a default-role edge, so this pass is a
	// no-op for them.
	wp = materializeDefaults(cat, wp, bag)
	idx = normalize(wp)
	logger.Debug("compile: pass0 re-run after expandComposites done", slog.Int("blocks", len(wp.Blocks)))

	// pass2 — type resolution.
	resolveTypes(cat, wp, idx, bag)
	logger.Debug("compile: pass2 resolveTypes done", slog.Int("diagnostics", bag.Len()))

	// pass3 — time topology.
	tm, timeBlockID := resolveTimeTopology(cat, wp, bag)
	logger.Debug("compile: pass3 resolveTimeTopology done", slog.String("timeModel", string(tm.Kind)))

	// pass5 — validate (required inputs, domain resolution, bus publisher
	// presence) runs before lowering so a block.Lower never sees an
	// unresolved required input.
	validate(cat, wp, idx, bag)
	logger.Debug("compile: pass5 validate done", slog.Int("diagnostics", bag.Len()))

	if bag.HasErrors() {
		logger.Debug("compile: aborting before lowering, diagnostics contain errors")
		return &Result{Bag: bag, Patch: wp}, nil
	}

	b := ir.NewBuilder()
	b.SetTimeModel(tm)
	_ = timeBlockID

	// pass6 — block lowering, pass7 — bus lowering (interleaved: a
	// BusBlock's combine node can only be built once every publisher
	// feeding it has been lowered, so lowering proceeds in dependency
	// order and bus nodes are built lazily the first time a listener
	// needs them).
	lc := newLowerCoordinator(cat, wp, idx, b, bag)
	if err := lc.run(); err != nil {
		return nil, err
	}
	logger.Debug("compile: pass6/pass7 lowering done", slog.Int("steps", len(lc.steps)))

	// pass8 — link resolution & schedule build.
	steps := lc.steps
	sched, err := schedule.Build(steps)
	if err != nil {
		if cycle, ok := err.(*schedule.ErrCycleDetected); ok {
			bag.Addf(diagnostics.ECycleDetected, diagnostics.SeverityFatal, diagnostics.PhaseCompile,
				diagnostics.Target{Kind: diagnostics.TargetGraphSpan}, "cycle detected among steps: %v", cycle.Cycle)
			return &Result{Bag: bag, Patch: wp}, nil
		}
		return nil, fmt.Errorf("compiler: %w", err)
	}
	logger.Debug("compile: pass8 schedule.Build done", slog.Int("steps", len(sched.Steps)))

	program := b.Build()
	return &Result{Program: &program, Schedule: sched, Bag: bag, Patch: wp}, nil
}

// blockIndex is pass1's stable dense index map: original array order, no
// topological reorder.
type blockIndex struct {
	order    []string // block ids, in patch array order
	byID     map[string]int
	inbound  map[string][]patch.Edge // blockId -> edges whose To.BlockID == blockId
	outbound map[string][]patch.Edge // blockId -> edges whose From.BlockID == blockId
}

func normalize(p patch.Patch) *blockIndex {
	idx := &blockIndex{
		byID:     make(map[string]int, len(p.Blocks)),
		inbound:  make(map[string][]patch.Edge),
		outbound: make(map[string][]patch.Edge),
	}
	for i, b := range p.Blocks {
		idx.order = append(idx.order, b.ID)
		idx.byID[b.ID] = i
	}
	for _, e := range p.Edges {
		if !e.Enabled {
			continue
		}
		idx.inbound[e.To.BlockID] = append(idx.inbound[e.To.BlockID], e)
		idx.outbound[e.From.BlockID] = append(idx.outbound[e.From.BlockID], e)
	}
	return idx
}

// sortedBlockIDs returns the patch's block ids in author order, for any
// pass that needs deterministic iteration without re-deriving it.
func sortedBlockIDs(idx *blockIndex) []string {
	out := append([]string(nil), idx.order...)
	sort.SliceStable(out, func(i, j int) bool { return idx.byID[out[i]] < idx.byID[out[j]] })
	return out
}

// Package schedule builds the ordered list of executable steps described in
// spec.md §3/pass8: a topological sort over step dependencies, tie-broken
// by step id and capability phase for determinism. The traversal itself
// (white/gray/black DFS, cycle detection via a gray back-edge) is adapted
// from the retrieval pack's katalvlaran-lvlath dfs.TopologicalSort, which
// states machine-coloring over a visitation map; here the "graph" is the
// compiler's step-dependency set instead of a general-purpose core.Graph.
package schedule

import (
	"fmt"
	"sort"
)

// Kind is the step category from spec.md §3.
type Kind string

const (
	KindTimeDerive Kind = "timeDerive"
	KindSigEval    Kind = "sigEval"
	KindFieldEval  Kind = "fieldEval"
	KindBusEval    Kind = "busEval"
	KindRender     Kind = "render"
	KindDebugProbe Kind = "debugProbe"
)

// phaseRank implements spec.md pass8's capability ordering: "time steps
// first, then identity, then pure+state, then bus combines whose inputs
// are ready, then render and io". KindSigEval/KindFieldEval/KindBusEval
// cover identity/pure/stateful/bus evaluation uniformly (spec.md §4.5:
// "busEval: effectively identical to sigEval/fieldEval"); debug probes
// run after every evaluation step and before render.
var phaseRank = map[Kind]int{
	KindTimeDerive: 0,
	KindSigEval:    1,
	KindFieldEval:  1,
	KindBusEval:    2,
	KindDebugProbe: 3,
	KindRender:     4,
}

// Step is one entry of the executable schedule.
type Step struct {
	ID   string
	Kind Kind
	Deps []string

	// SigExprID/FieldExprID/TargetSlot let the executor dispatch without a
	// second lookup; only the fields relevant to Kind are populated.
	SigExprID   int
	FieldExprID int
	TargetSlot  int
	DomainSlot  int
	ProbeOf     string // for KindDebugProbe: the step id being observed
}

// Schedule is the ordered step list plus its id->index map.
type Schedule struct {
	Steps         []Step
	StepIdToIndex map[string]int
}

// ErrCycleDetected is returned when the step dependency graph is not a DAG.
type ErrCycleDetected struct {
	Cycle []string
}

func (e *ErrCycleDetected) Error() string {
	return fmt.Sprintf("schedule: cycle detected among steps %v", e.Cycle)
}

const (
	white = 0
	gray  = 1
	black = 2
)

type builder struct {
	byID  map[string]*Step
	state map[string]int
	order []string
	stack []string
}

// Build topologically orders steps by dependency, breaking ties first by
// capability phase (spec.md pass8) and then by step id for determinism.
func Build(steps []Step) (*Schedule, error) {
	b := &builder{
		byID:  make(map[string]*Step, len(steps)),
		state: make(map[string]int, len(steps)),
	}
	ids := make([]string, 0, len(steps))
	for i := range steps {
		s := &steps[i]
		b.byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	// Deterministic traversal root order: phase, then id.
	sort.Slice(ids, func(i, j int) bool {
		si, sj := b.byID[ids[i]], b.byID[ids[j]]
		if phaseRank[si.Kind] != phaseRank[sj.Kind] {
			return phaseRank[si.Kind] < phaseRank[sj.Kind]
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		if b.state[id] == white {
			if err := b.visit(id); err != nil {
				return nil, err
			}
		}
	}

	// Post-order DFS over (phase,id)-sorted roots, with deps visited in id
	// order, yields a deterministic topological order: property D1/D2
	// requires the same IR to always produce the same schedule.
	idx := make(map[string]int, len(b.order))
	out := make([]Step, len(b.order))
	for i, id := range b.order {
		out[i] = *b.byID[id]
		idx[id] = i
	}
	return &Schedule{Steps: out, StepIdToIndex: idx}, nil
}

func (b *builder) visit(id string) error {
	switch b.state[id] {
	case gray:
		cycle := append(append([]string(nil), b.stack...), id)
		return &ErrCycleDetected{Cycle: cycle}
	case black:
		return nil
	}
	b.state[id] = gray
	b.stack = append(b.stack, id)

	step, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("schedule: step %q depends on unknown step", id)
	}
	deps := append([]string(nil), step.Deps...)
	sort.Strings(deps)
	for _, dep := range deps {
		if err := b.visit(dep); err != nil {
			return err
		}
	}

	b.stack = b.stack[:len(b.stack)-1]
	b.state[id] = black
	b.order = append(b.order, id)
	return nil
}

package sigeval

import (
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/store"
)

// Env carries the per-frame inputs the signal evaluator needs: the time
// sample the executor derived this frame (spec.md §4.5's timeDerive step),
// the const pool and state buffer the IR was built against, and the
// memoization table that gives every signalIR node single-evaluation
// semantics within one frame.
type Env struct {
	TAbsMs    float64
	TModelMs  float64
	Phase01   float64
	WrapEvent bool
	DtMs      float64

	Consts *ir.ConstPool
	State  *store.StateBuffer
	Tables *ir.ExprTables

	memo map[ir.SigExprId]Value
}

// NewEnv constructs a fresh per-frame evaluation environment. Callers
// create one Env per frame; memo never survives across frames, matching
// spec.md's "no evaluation carries implicit memory forward except through
// StateCell" rule.
func NewEnv(tAbsMs, tModelMs, phase01, dtMs float64, wrapEvent bool, consts *ir.ConstPool, state *store.StateBuffer, tables *ir.ExprTables) *Env {
	return &Env{
		TAbsMs:    tAbsMs,
		TModelMs:  tModelMs,
		Phase01:   phase01,
		WrapEvent: wrapEvent,
		DtMs:      dtMs,
		Consts:    consts,
		State:     state,
		Tables:    tables,
		memo:      make(map[ir.SigExprId]Value),
	}
}

// Reset clears the memo so the Env can be reused for the next frame without
// reallocating its fixed fields.
func (e *Env) Reset(tAbsMs, tModelMs, phase01, dtMs float64, wrapEvent bool) {
	e.TAbsMs = tAbsMs
	e.TModelMs = tModelMs
	e.Phase01 = phase01
	e.WrapEvent = wrapEvent
	e.DtMs = dtMs
	for k := range e.memo {
		delete(e.memo, k)
	}
}

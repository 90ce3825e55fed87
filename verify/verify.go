// Package verify implements the testable-properties harness of spec.md
// §8: a static invariant checker over a compiled program plus a
// human-readable report, grounded on the teacher's two-stage
// RunLint/GenerateReport verification pipeline (verify/lint.go,
// verify/verify.go) but re-targeted from CGRA kernel structure/timing
// checks to this system's own properties (single-writer, port contract,
// bus defaults).
package verify

import (
	"fmt"

	"github.com/oscilla/patchc/compiler"
	"github.com/oscilla/patchc/diagnostics"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/schedule"
)

// PropertyID names one of spec.md §8's quantified invariants.
type PropertyID string

const (
	PropSingleWriter          PropertyID = "P1_SingleWriter"
	PropPortContract          PropertyID = "P4_PortContract"
	PropBusEmptyDefault       PropertyID = "P6_BusEmptyDefault"
	PropCompositeTransparency PropertyID = "P7_CompositeTransparency"
	PropStability             PropertyID = "P3_Stability"
	PropTimeMonotonic         PropertyID = "P5_TimeMonotonicity"
)

// Issue is one property violation found by RunInvariants.
type Issue struct {
	Property PropertyID
	Message  string
	Details  map[string]any
}

// Trace carries the cross-compile/cross-frame state P3 and P5 need, since
// neither is derivable from a single compiled Result in isolation. A nil
// Trace simply skips those two checks (RunInvariants still runs P1/P4/P6).
type Trace struct {
	// PriorSlots is a baseline compile's DebugName->Slot assignment (e.g.
	// res.Program.Debug.SlotSource inverted, or built straight from
	// res.Program.Slots), checked against the current Result for P3
	// (spec.md D2: adding an unreachable block must not reassign any
	// previously present block's SigExprId/ValueSlot).
	PriorSlots map[string]ir.ValueSlot

	// Frames is a sequence of sampled frames, in execution order, checked
	// for P5 (cyclic time must not regress except on the exact frame
	// wrapEvent fires).
	Frames []FrameSample
}

// FrameSample is one executed frame's phase01/wrapEvent pair, as produced
// by executor.Runtime.ExecuteFrame's time derivation.
type FrameSample struct {
	Phase01   float64
	WrapEvent bool
}

// RunInvariants runs every property check derivable from a single compiled
// Result (P1 single-writer, P4 port contract, P6 bus empty default), plus
// P3 stability and P5 time monotonicity when a non-nil trace supplies the
// cross-compile/cross-frame state those two need. P2/D1 determinism is
// exercised as a scenario test instead (verify/scenarios_test.go's S5),
// since it needs two full compiles compared for byte-identical output
// rather than a single Result to inspect.
func RunInvariants(res *compiler.Result, trace *Trace) []Issue {
	var issues []Issue
	if res == nil {
		return issues
	}
	if res.Schedule != nil {
		issues = append(issues, checkSingleWriter(res.Schedule)...)
	}
	if res.Bag != nil {
		issues = append(issues, checkPortContractDiagnostics(res.Bag)...)
	}
	if res.Program != nil {
		issues = append(issues, checkBusEmptyDefault(res)...)
	}
	if trace != nil {
		if res.Program != nil && trace.PriorSlots != nil {
			issues = append(issues, checkStability(res.Program, trace.PriorSlots)...)
		}
		issues = append(issues, checkTimeMonotonic(trace.Frames)...)
	}
	return issues
}

// checkSingleWriter implements P1: for every frame and every slot, at most
// one step writes it. The schedule is static, so "every frame" reduces to
// "every step that declares a TargetSlot writes a distinct slot".
func checkSingleWriter(sched *schedule.Schedule) []Issue {
	writers := make(map[ir.ValueSlot][]string)
	for _, step := range sched.Steps {
		switch step.Kind {
		case schedule.KindSigEval, schedule.KindFieldEval:
			slot := ir.ValueSlot(step.TargetSlot)
			writers[slot] = append(writers[slot], step.ID)
		}
	}
	var issues []Issue
	for slot, stepIDs := range writers {
		if len(stepIDs) > 1 {
			issues = append(issues, Issue{
				Property: PropSingleWriter,
				Message:  fmt.Sprintf("slot %d is written by %d steps: %v", slot, len(stepIDs), stepIDs),
				Details:  map[string]any{"slot": int(slot), "steps": stepIDs},
			})
		}
	}
	return issues
}

// checkPortContractDiagnostics implements P4 by surfacing any
// EPortContract diagnostic the compile already raised (the contract itself
// is enforced during pass6 lowering by catalog.ValidatePortContract; this
// just makes P4 violations visible in the same Issue shape as the other
// properties for report rendering).
func checkPortContractDiagnostics(bag *diagnostics.Bag) []Issue {
	var issues []Issue
	for _, d := range bag.Items() {
		if d.Code == diagnostics.EPortContract {
			issues = append(issues, Issue{
				Property: PropPortContract,
				Message:  d.Message,
				Details:  map[string]any{"blockId": d.Target.BlockID},
			})
		}
	}
	return issues
}

// checkBusEmptyDefault implements P6: a bus pass5 flagged WBusEmpty for must
// evaluate to exactly the Param it declared, not a silently different
// fallback. res.Patch (the post-expansion patch, recorded by compiler.go
// precisely so this check can cross-reference it) gives the author-declared
// defaultValue; res.Program's IR gives the fallback pass7's lowerBus
// actually built.
func checkBusEmptyDefault(res *compiler.Result) []Issue {
	var issues []Issue
	if res.Bag == nil || res.Program == nil {
		return issues
	}
	for _, d := range res.Bag.Items() {
		if d.Code != diagnostics.WBusEmpty {
			continue
		}
		busID := d.Target.BusID
		block, ok := res.Patch.BlockByID(busID)
		if !ok {
			continue
		}
		declared := floatParamVerify(block.Params, "defaultValue", 0.0)
		actual, ok := emptyBusConstValue(res.Program, busID)
		if !ok {
			issues = append(issues, Issue{
				Property: PropBusEmptyDefault,
				Message:  fmt.Sprintf("bus %q: no empty-bus fallback constant found in lowered IR", busID),
				Details:  map[string]any{"busId": busID},
			})
			continue
		}
		if actual != declared {
			issues = append(issues, Issue{
				Property: PropBusEmptyDefault,
				Message:  fmt.Sprintf("bus %q: declared defaultValue=%v but lowered fallback evaluates to %v", busID, declared, actual),
				Details:  map[string]any{"busId": busID, "declared": declared, "actual": actual},
			})
		}
	}
	return issues
}

// emptyBusConstValue finds the SigCombine node lowerBus built for busID and,
// when it wraps exactly the one SigConst term an empty bus falls back to
// (compiler/lower.go's lowerBus), returns that constant as a float64.
func emptyBusConstValue(prog *ir.BuilderProgramIR, busID string) (float64, bool) {
	for _, n := range prog.Tables.Sig {
		if n.Kind != ir.SigCombine || n.DebugName != busID {
			continue
		}
		if len(n.Terms) != 1 {
			return 0, false
		}
		term := prog.Tables.Sig[n.Terms[0]]
		if term.Kind != ir.SigConst {
			return 0, false
		}
		v, ok := toFloatVerify(prog.Consts.Get(term.ConstID))
		return v, ok
	}
	return 0, false
}

// checkStability implements P3/D2: a block not reachable from any render
// sink must not shift the ValueSlot a previously present block's DebugName
// resolves to, compared against a baseline compile's slot assignment
// (spec.md D2). cur is the current compile's Slots table; prior is the
// baseline's DebugName->Slot map (a Trace's PriorSlots).
func checkStability(cur *ir.BuilderProgramIR, prior map[string]ir.ValueSlot) []Issue {
	var issues []Issue
	curSlots := make(map[string]ir.ValueSlot, len(cur.Slots))
	for _, sm := range cur.Slots {
		curSlots[sm.DebugName] = sm.Slot
	}
	for name, priorSlot := range prior {
		if curSlot, ok := curSlots[name]; ok && curSlot != priorSlot {
			issues = append(issues, Issue{
				Property: PropStability,
				Message:  fmt.Sprintf("block %q moved from slot %d to slot %d across recompile", name, priorSlot, curSlot),
				Details:  map[string]any{"debugName": name, "priorSlot": int(priorSlot), "curSlot": int(curSlot)},
			})
		}
	}
	return issues
}

// checkTimeMonotonic implements P5: in cyclic time, phase01 only ever
// decreases on the exact frame wrapEvent fires.
func checkTimeMonotonic(frames []FrameSample) []Issue {
	var issues []Issue
	for i := 1; i < len(frames); i++ {
		prev, cur := frames[i-1], frames[i]
		if cur.Phase01 < prev.Phase01 && !cur.WrapEvent {
			issues = append(issues, Issue{
				Property: PropTimeMonotonic,
				Message:  fmt.Sprintf("frame %d: phase01 regressed from %v to %v without wrapEvent", i, prev.Phase01, cur.Phase01),
				Details:  map[string]any{"frame": i, "prevPhase01": prev.Phase01, "phase01": cur.Phase01},
			})
		}
	}
	return issues
}

// floatParamVerify mirrors compiler's unexported floatParamLocal: this
// package can't import it (compiler doesn't export it, and verify already
// depends on compiler one direction only).
func floatParamVerify(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	f, ok := toFloatVerify(v)
	if !ok {
		return def
	}
	return f
}

// toFloatVerify converts the handful of concrete types ir.ConstPool /
// patch.Block.Params actually hold into a float64 for comparison.
func toFloatVerify(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

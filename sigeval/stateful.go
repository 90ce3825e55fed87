package sigeval

import (
	"math"

	"github.com/oscilla/patchc/ir"
)

// paramF64 reads a numeric param, falling back to def when absent or of an
// unexpected type.
func paramF64(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// evalEnvelopeAD implements the Idle->Attack->Decay->Idle state machine
// exactly as spec.md §4.7 gives it: a rising edge on trigger latches
// triggerTime and is re-armed only after the trigger drops back below
// 0.5, and the output is a pure function of elapsed = tAbsMs - triggerTime
// rather than a per-frame integration, so repeated evaluation at the same
// tAbsMs is bitwise-identical (property D1) with no dependency on frame
// delta.
//
// Cell layout: n.StateID names a StorageF64 cell holding triggerTime
// (initial -Inf), and n.StateID+1 names the adjacent StorageI32 cell
// holding wasTriggered (initial 0); the catalog's EnvelopeAD block lowers
// both cells back to back so the +1 offset always lands on the paired
// cell.
func evalEnvelopeAD(env *Env, n ir.SigNode, trigger Value) (Value, error) {
	cells := env.State.Cells()
	if int(n.StateID)+1 >= len(cells) {
		return nil, errStateRange(n.StateID)
	}
	triggerCell := cells[n.StateID]
	armedCell := cells[n.StateID+1]

	triggerTime := env.State.F64[triggerCell.Offset]
	wasTriggered := env.State.I32[armedCell.Offset]

	attackMs := paramF64(n.OpParams, "attackMs", 10)
	decayMs := paramF64(n.OpParams, "decayMs", 200)
	peak := paramF64(n.OpParams, "peak", 1)

	switch {
	case trigger[0] > 0.5 && wasTriggered == 0:
		triggerTime = env.TAbsMs
		wasTriggered = 1
	case trigger[0] <= 0.5:
		wasTriggered = 0
	}

	env.State.F64[triggerCell.Offset] = triggerTime
	env.State.I32[armedCell.Offset] = wasTriggered

	elapsed := env.TAbsMs - triggerTime
	var out float64
	switch {
	case elapsed < 0:
		out = 0
	case elapsed < attackMs:
		out = (elapsed / attackMs) * peak
	case elapsed < attackMs+decayMs:
		out = peak * (1 - (elapsed-attackMs)/decayMs)
	default:
		out = 0
	}
	return Value{out}, nil
}

// evalPulseDivider implements spec.md §4.7's PulseDivider exactly:
// subPhase = floor(phase * divisions), emitting a single-frame pulse every
// time subPhase changes from the previous frame's value.
//
// Cell layout: n.StateID names a StorageI32 cell holding lastSubPhase
// (initial -1).
func evalPulseDivider(env *Env, n ir.SigNode, phase Value) (Value, error) {
	cells := env.State.Cells()
	if int(n.StateID) >= len(cells) {
		return nil, errStateRange(n.StateID)
	}
	cell := cells[n.StateID]
	last := env.State.I32[cell.Offset]

	divisions := paramF64(n.OpParams, "divisions", 1)
	subPhase := int32(math.Floor(phase[0] * divisions))

	out := 0.0
	if subPhase != last {
		out = 1
	}
	env.State.I32[cell.Offset] = subPhase

	return Value{out}, nil
}

// evalOscillator produces a phase-accumulator oscillator (sine/saw/square/
// triangle), reading its running phase from a single StorageF64 state
// cell. Not one of spec.md's worked examples; grounded in the same
// accumulate-then-wrap pattern the cyclic TimeModel already uses at the
// patch level, applied per-oscillator instead of per-patch.
func evalOscillator(env *Env, n ir.SigNode, freqHz Value, dtMs float64) (Value, error) {
	cells := env.State.Cells()
	if int(n.StateID) >= len(cells) {
		return nil, errStateRange(n.StateID)
	}
	cell := cells[n.StateID]
	phase := env.State.F64[cell.Offset]

	phase = math.Mod(phase+freqHz[0]*(dtMs/1000), 1)
	if phase < 0 {
		phase += 1
	}
	env.State.F64[cell.Offset] = phase

	shape, _ := n.OpParams["shape"].(string)
	var v float64
	switch shape {
	case "saw":
		v = 2*phase - 1
	case "square":
		if phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case "triangle":
		v = 4*math.Abs(phase-0.5) - 1
	default: // "sine"
		v = math.Sin(phase * 2 * math.Pi)
	}
	return Value{v}, nil
}

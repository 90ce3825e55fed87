// Package executor implements the schedule executor of spec.md §4.5: the
// per-frame loop that clears the ValueStore's written-set, walks the
// compiled schedule in order, and dispatches each step to the time
// derivation, signal evaluator, field materializer, or render composer.
// The frame loop shape (advance counter, run ordered steps, hand off a
// terminal artifact) is grounded on the teacher's core.Core Tick handler
// (core/core.go), generalized from one simulated clock cycle to one
// rendered frame and stripped of akita's event-driven scheduling since
// spec.md requires synchronous, non-yielding per-frame evaluation (§5).
package executor

import (
	"fmt"
	"log/slog"

	"github.com/oscilla/patchc/field"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/render"
	"github.com/oscilla/patchc/schedule"
	"github.com/oscilla/patchc/sigeval"
	"github.com/oscilla/patchc/store"
)

// LevelTrace mirrors compiler.LevelTrace: per-step tracing one level below
// slog.LevelDebug, emitted only when the logger's handler is enabled at
// that level (the default handler is not, which keeps frame evaluation
// allocation-light).
const LevelTrace = slog.Level(-8)

// logger is the package-level slog.Logger ExecuteFrame writes per-step
// trace records through; a caller wanting per-frame schedule tracing calls
// SetLogger with a handler whose level is at or below LevelTrace.
var logger = slog.Default()

// SetLogger redirects every subsequent Runtime's step tracing to l.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Viewport is the per-frame render context a program's render step
// consults (spec.md §6: "program.signal(tAbsMs, {viewport{w,h,dpr}})").
type Viewport struct {
	Width  float32
	Height float32
	DPR    float32
}

// Probe is one debugProbe step's captured slot values, forwarded to a
// debug sink.
type Probe struct {
	StepID string
	Values map[string]float64
}

// Runtime binds a compiled program's IR to one ValueStore/StateBuffer pair
// and is evaluated frame after frame; it owns no compiler state and
// outlives any single compile (spec.md §5: "the executor binds this IR to
// a ValueStore and StateBuffer").
type Runtime struct {
	Program  *ir.BuilderProgramIR
	Schedule *schedule.Schedule
	Store    *store.ValueStore
	State    *store.StateBuffer
	Mat      *field.Materializer

	prevPhase     float64
	havePrevPhase bool
	prevTAbsMs    float64
	havePrevT     bool

	// prevDirection is the sign of the previous frame's phase01 delta
	// (-1, 0, or 1), tracked so ping-pong mode can fire wrapEvent exactly
	// on the frame direction reverses rather than mistaking every
	// descending frame for a wrap.
	prevDirection     float64
	havePrevDirection bool
}

// NewRuntime builds a fresh Runtime for a compiled program.
func NewRuntime(program *ir.BuilderProgramIR, sched *schedule.Schedule) *Runtime {
	vs := store.New(program.Slots)
	sb, err := store.NewStateBuffer(program.StateLayout, program.Consts)
	if err != nil {
		// State layout is computed by the compiler from validated IR; a
		// range error here means a compiler bug, not a runtime condition
		// callers can recover from.
		panic(fmt.Sprintf("executor: invalid state layout: %v", err))
	}
	for _, seed := range program.DomainSeeds {
		vs.SeedObj(seed.Slot, seed.Count)
	}

	return &Runtime{
		Program:  program,
		Schedule: sched,
		Store:    vs,
		State:    sb,
		Mat:      field.New(&program.Tables, vs),
	}
}

// timeSlots names the fixed ValueSlots the timeDerive step writes into.
// The compiler allocates them under the well-known debug names __tAbsMs,
// __tModelMs, __phase01 and __wrapEvent; findTimeSlots looks them up in
// Program.Slots by that debug name rather than a hardcoded index.
type timeSlots struct {
	tAbsMs, tModelMs, phase01, wrapEvent ir.ValueSlot
}

func (rt *Runtime) findTimeSlots() timeSlots {
	ts := timeSlots{tAbsMs: ir.InvalidSlot, tModelMs: ir.InvalidSlot, phase01: ir.InvalidSlot, wrapEvent: ir.InvalidSlot}
	for _, s := range rt.Program.Slots {
		switch s.DebugName {
		case "__tAbsMs":
			ts.tAbsMs = s.Slot
		case "__tModelMs":
			ts.tModelMs = s.Slot
		case "__phase01":
			ts.phase01 = s.Slot
		case "__wrapEvent":
			ts.wrapEvent = s.Slot
		}
	}
	return ts
}

// ExecuteFrame runs one full frame: it clears the ValueStore's written
// set and executes the steps in schedule order. The Runtime keeps no frame
// counter. Returns the composed RenderTree (nil if no render step ran) and
// any debugProbe captures.
func (rt *Runtime) ExecuteFrame(tAbsMs float64, vp Viewport) (*render.Node, []Probe, error) {
	rt.Store.Clear()

	dtMs := 0.0
	if rt.havePrevT {
		dtMs = tAbsMs - rt.prevTAbsMs
	}

	tModelMs, phase01, wrapEvent, direction := deriveTime(rt.Program.Time, tAbsMs, rt.prevPhase, rt.havePrevPhase, rt.prevDirection, rt.havePrevDirection)
	ts := rt.findTimeSlots()

	env := sigeval.NewEnv(tAbsMs, tModelMs, phase01, dtMs, wrapEvent, rt.Program.Consts, rt.State, &rt.Program.Tables)

	var tree *render.Node
	var probes []Probe

	for _, step := range rt.Schedule.Steps {
		logger.Log(nil, LevelTrace, "executor: step", slog.String("id", step.ID), slog.String("kind", string(step.Kind)))
		switch step.Kind {
		case schedule.KindTimeDerive:
			if ts.tAbsMs != ir.InvalidSlot {
				rt.Store.WriteF64(ts.tAbsMs, tAbsMs)
			}
			if ts.tModelMs != ir.InvalidSlot {
				rt.Store.WriteF64(ts.tModelMs, tModelMs)
			}
			if ts.phase01 != ir.InvalidSlot {
				rt.Store.WriteF64(ts.phase01, phase01)
			}
			if ts.wrapEvent != ir.InvalidSlot {
				v := float64(0)
				if wrapEvent {
					v = 1
				}
				rt.Store.WriteF64(ts.wrapEvent, v)
			}

		case schedule.KindSigEval, schedule.KindBusEval:
			if err := rt.runSigStep(env, step); err != nil {
				return nil, nil, err
			}

		case schedule.KindFieldEval:
			if err := rt.runFieldStep(env, step); err != nil {
				return nil, nil, err
			}

		case schedule.KindDebugProbe:
			probes = append(probes, rt.runProbeStep(step))

		case schedule.KindRender:
			node, err := rt.composeRender(vp)
			if err != nil {
				return nil, nil, err
			}
			tree = node

		default:
			return nil, nil, fmt.Errorf("executor: unknown step kind %q", step.Kind)
		}
	}

	rt.Mat.ReleaseFrame()
	rt.prevPhase, rt.havePrevPhase = phase01, true
	rt.prevTAbsMs, rt.havePrevT = tAbsMs, true
	if direction != 0 {
		rt.prevDirection, rt.havePrevDirection = direction, true
	}

	return tree, probes, nil
}

func (rt *Runtime) runSigStep(env *sigeval.Env, step schedule.Step) error {
	v, err := sigeval.Eval(env, ir.SigExprId(step.SigExprID))
	if err != nil {
		return fmt.Errorf("executor: step %s: %w", step.ID, err)
	}
	return writeLanes(rt.Store, ir.ValueSlot(step.TargetSlot), v)
}

func (rt *Runtime) runFieldStep(env *sigeval.Env, step schedule.Step) error {
	buf, err := rt.Mat.Materialize(env, ir.FieldExprId(step.FieldExprID), ir.ValueSlot(step.DomainSlot))
	if err != nil {
		return fmt.Errorf("executor: step %s: %w", step.ID, err)
	}
	return rt.Store.WriteObj(ir.ValueSlot(step.TargetSlot), buf)
}

func (rt *Runtime) runProbeStep(step schedule.Step) Probe {
	return Probe{
		StepID: step.ID,
		Values: map[string]float64{
			"target": rt.Store.ReadF64(ir.ValueSlot(step.TargetSlot)),
		},
	}
}

func writeLanes(vs *store.ValueStore, slot ir.ValueSlot, v sigeval.Value) error {
	for i, x := range v {
		if err := vs.WriteF64(slot+ir.ValueSlot(i), x); err != nil {
			return err
		}
	}
	return nil
}

// deriveTime computes tModelMs/phase01/wrapEvent from a TimeModel and the
// current tAbsMs sample, per spec.md §3's TimeModel and §4.5's timeDerive
// step. direction is the sign of this frame's phase01 delta (-1, 0, or 1),
// threaded through by the caller so ping-pong mode can tell an ordinary
// descending frame apart from the exact frame a peak or trough reverses
// direction on (loop mode's plain "phase01 < prevPhase" test, reused
// unchanged, is already edge-triggered since a loop's phase never
// decreases except at the wrap).
func deriveTime(tm ir.TimeModel, tAbsMs, prevPhase float64, havePrev bool, prevDirection float64, havePrevDirection bool) (tModelMs, phase01 float64, wrapEvent bool, direction float64) {
	switch tm.Kind {
	case ir.TimeFinite:
		tModelMs = tAbsMs
		if tm.DurationMs > 0 && tModelMs > tm.DurationMs {
			tModelMs = tm.DurationMs
		}
		return tModelMs, 0, false, 0

	case ir.TimeCyclic:
		period := tm.PeriodMs
		if period <= 0 {
			period = 1
		}
		tModelMs = tAbsMs
		raw := tAbsMs / period
		frac := raw - float64(int64(raw))
		if frac < 0 {
			frac += 1
		}
		if tm.Mode == ir.CyclicPingPong {
			// Fold the 0..1 ramp into a 0..1..0 triangle.
			doubled := frac * 2
			if doubled > 1 {
				doubled = 2 - doubled
			}
			phase01 = doubled

			if havePrev {
				delta := phase01 - prevPhase
				switch {
				case delta > 0:
					direction = 1
				case delta < 0:
					direction = -1
				}
				// A wrap fires exactly on the frame direction reverses
				// (a peak or a trough), not on every descending frame:
				// compare this frame's direction against the last
				// nonzero direction seen, rather than against phase
				// magnitude alone.
				wrapEvent = havePrevDirection && direction != 0 && direction != prevDirection
			}
		} else {
			phase01 = frac
			wrapEvent = havePrev && phase01 < prevPhase
		}
		return tModelMs, phase01, wrapEvent, direction

	default: // TimeInfinite
		return tAbsMs, 0, false, 0
	}
}

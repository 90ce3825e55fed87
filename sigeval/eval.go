package sigeval

import (
	"fmt"

	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/typedesc"
)

// Eval evaluates a signal expression, memoizing the result for this frame
// so a fan-out node (one signal feeding several readers) is computed at
// most once within a frame.
func Eval(env *Env, id ir.SigExprId) (Value, error) {
	if v, ok := env.memo[id]; ok {
		return v, nil
	}
	if int(id) < 0 || int(id) >= len(env.Tables.Sig) {
		return nil, fmt.Errorf("sigeval: signal expr id %d out of range", id)
	}
	n := env.Tables.Sig[id]
	v, err := evalNode(env, id, n)
	if err != nil {
		return nil, err
	}
	env.memo[id] = v
	return v, nil
}

func evalNode(env *Env, id ir.SigExprId, n ir.SigNode) (Value, error) {
	switch n.Kind {
	case ir.SigConst:
		return constValue(env, n.ConstID, n.Lanes)

	case ir.SigTimeAbsMs:
		return Value{env.TAbsMs}, nil

	case ir.SigTimeModelMs:
		return Value{env.TModelMs}, nil

	case ir.SigPhase01:
		return Value{env.Phase01}, nil

	case ir.SigWrapEvent:
		if env.WrapEvent {
			return Value{1}, nil
		}
		return Value{0}, nil

	case ir.SigMap:
		src, err := Eval(env, n.Src)
		if err != nil {
			return nil, err
		}
		return applyKernel(n.FnName, src)

	case ir.SigZip:
		a, err := Eval(env, n.A)
		if err != nil {
			return nil, err
		}
		b, err := Eval(env, n.B)
		if err != nil {
			return nil, err
		}
		return applyKernel(n.FnName, a, b)

	case ir.SigSelect:
		cond, err := Eval(env, n.Cond)
		if err != nil {
			return nil, err
		}
		if cond[0] > 0.5 {
			return Eval(env, n.IfTrue)
		}
		return Eval(env, n.IfFalse)

	case ir.SigStateful:
		return evalStateful(env, n)

	case ir.SigTransform:
		src, err := Eval(env, n.Src)
		if err != nil {
			return nil, err
		}
		// No compiler pass builds transform chains; a SigTransform node
		// forwards its source unchanged and the steps of its chain id are
		// not applied.
		_ = n.ChainID
		return src, nil

	case ir.SigCombine:
		return evalCombine(env, n)

	default:
		return nil, fmt.Errorf("sigeval: unknown signal node kind %q at expr %d", n.Kind, id)
	}
}

func constValue(env *Env, id ir.ConstId, lanes int) (Value, error) {
	raw := env.Consts.Get(id)
	switch v := raw.(type) {
	case []any:
		out := make(Value, len(v))
		for i, x := range v {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if lanes <= 1 {
			return Value{f}, nil
		}
		out := make(Value, lanes)
		for i := range out {
			out[i] = f
		}
		return out, nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("sigeval: constant %v is not numeric", v)
	}
}

func applyKernel(name string, args ...Value) (Value, error) {
	k, ok := Kernels[name]
	if !ok {
		return nil, fmt.Errorf("sigeval: unknown opcode kernel %q", name)
	}
	return k(args...), nil
}

// evalStateful dispatches to one of the spec.md §4.7 state machines. The
// oscillator's integration step reads dt from env.DtMs, which the executor
// derives from consecutive frames' tAbsMs (spec.md's worked
// EnvelopeAD/PulseDivider examples need no dt: their output is a pure
// function of tAbsMs / phase, not of accumulated time).
func evalStateful(env *Env, n ir.SigNode) (Value, error) {
	input, err := Eval(env, n.Input)
	if err != nil {
		return nil, err
	}
	switch n.StateOp {
	case "EnvelopeAD":
		return evalEnvelopeAD(env, n, input)
	case "PulseDivider":
		return evalPulseDivider(env, n, input)
	case "Oscillator":
		return evalOscillator(env, n, input, env.DtMs)
	default:
		return nil, fmt.Errorf("sigeval: unknown stateful op %q", n.StateOp)
	}
}

func errStateRange(id ir.StateId) error {
	return fmt.Errorf("sigeval: state cell id %d out of range", id)
}

// evalCombine folds a bus's terms according to its CombineMode (spec.md
// §4.1's bus combine table).
func evalCombine(env *Env, n ir.SigNode) (Value, error) {
	if len(n.Terms) == 0 {
		return make(Value, maxInt(n.Lanes, 1)), nil
	}
	terms := make([]Value, len(n.Terms))
	for i, t := range n.Terms {
		v, err := Eval(env, t)
		if err != nil {
			return nil, err
		}
		terms[i] = v
	}
	return FoldCombine(n.Mode, terms)
}

// FoldCombine applies a bus's CombineMode to a set of already-evaluated
// terms. Exported so the field materializer can share the exact fold
// semantics for fieldCombine nodes (spec.md §4.1/pass7 applies the same
// combine table to both worlds).
func FoldCombine(mode typedesc.CombineMode, terms []Value) (Value, error) {
	lanes := len(terms[0])
	switch mode {
	case typedesc.CombineSum:
		out := make(Value, lanes)
		for _, t := range terms {
			for i := range out {
				out[i] += t[i]
			}
		}
		return out, nil
	case typedesc.CombineProduct:
		out := make(Value, lanes)
		for i := range out {
			out[i] = 1
		}
		for _, t := range terms {
			for i := range out {
				out[i] *= t[i]
			}
		}
		return out, nil
	case typedesc.CombineAverage:
		out := make(Value, lanes)
		for _, t := range terms {
			for i := range out {
				out[i] += t[i]
			}
		}
		for i := range out {
			out[i] /= float64(len(terms))
		}
		return out, nil
	case typedesc.CombineMin:
		out := append(Value(nil), terms[0]...)
		for _, t := range terms[1:] {
			for i := range out {
				if t[i] < out[i] {
					out[i] = t[i]
				}
			}
		}
		return out, nil
	case typedesc.CombineMax:
		out := append(Value(nil), terms[0]...)
		for _, t := range terms[1:] {
			for i := range out {
				if t[i] > out[i] {
					out[i] = t[i]
				}
			}
		}
		return out, nil
	case typedesc.CombineLast:
		return terms[len(terms)-1], nil
	case typedesc.CombineLayer:
		return compositeLayers(terms), nil
	case typedesc.CombinePulse:
		out := make(Value, lanes)
		for _, t := range terms {
			if t[0] > 0.5 {
				out[0] = 1
			}
		}
		return out, nil
	case typedesc.CombineMerge:
		// Event-world union: any publisher's lane crossing threshold sets
		// that lane, unlike pulse (which only ever looks at lane 0).
		out := make(Value, lanes)
		for _, t := range terms {
			for i := range out {
				if i < len(t) && t[i] > 0.5 {
					out[i] = 1
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("sigeval: unknown combine mode %q", mode)
	}
}

// compositeLayers folds color terms in term order via Porter-Duff "over"
// compositing (spec.md pass7: "layer = Porter-Duff over in term order"):
// the first term is the bottom-most layer and each subsequent term
// composites over the accumulated result so far.
func compositeLayers(terms []Value) Value {
	acc := append(Value(nil), terms[0]...)
	for _, top := range terms[1:] {
		acc = overComposite(top, acc)
	}
	return acc
}

// overComposite composites top over bottom using the standard
// premultiplied-alpha "over" operator, assuming each term carries its
// color in lanes 0-2 and its alpha in lane 3. A term with fewer than 4
// lanes has no distinct alpha channel and is treated as fully opaque,
// replacing whatever is beneath it.
func overComposite(top, bottom Value) Value {
	if len(top) < 4 || len(bottom) < 4 {
		return append(Value(nil), top...)
	}
	topA, bottomA := top[3], bottom[3]
	outA := topA + bottomA*(1-topA)
	out := make(Value, len(top))
	out[3] = outA
	for i := 0; i < 3; i++ {
		if outA > 0 {
			out[i] = (top[i]*topA + bottom[i]*bottomA*(1-topA)) / outA
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

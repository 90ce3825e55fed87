// Package sigeval implements the signal expression evaluator of spec.md
// §4.7: a recursive evaluator over the signalIR node table with a
// per-frame memo, pure numeric opcode kernels, and the stateful operators
// (EnvelopeAD, PulseDivider) spec.md gives in full. The opcode-dispatch
// shape (a name -> pure-function table, switched on by the IR node) is
// grounded on the teacher's core/emu.go instruction dispatch (a big switch
// on OpCode strings like "ADD", "FADD", "ICMP_*"), generalized from
// integer register arithmetic to the float-lane Value this package uses.
package sigeval

import "math"

// Value is the lane-wise result of evaluating a signal expression: 1 lane
// for a plain float/bool/trigger or a packed color, 3 for vec3, 4 for
// vec4/quat, 16 for mat4. Booleans and triggers are represented as 0.0/1.0, matching the
// teacher's convention of packing predicate bits into the same numeric
// register space as data (core/emu.go's Pred flag alongside Data).
type Value []float64

// Kernel is a pure numeric opcode: it must not read or write state or time,
// matching the "capability: pure" contract of the blocks that emit SigMap
// nodes.
type Kernel func(args ...Value) Value

// Kernels is the opcode registry consulted by Eval for SigMap/SigZip nodes'
// FnName. Names match the ones spec.md §4.7 lists: Add, Sub, Mul, Div, Min,
// Max, Clamp, Floor, Sin, Cos.
var Kernels = map[string]Kernel{
	"Add":    binary(func(a, b float64) float64 { return a + b }),
	"Sub":    binary(func(a, b float64) float64 { return a - b }),
	"Mul":    binary(func(a, b float64) float64 { return a * b }),
	"Div":    binary(func(a, b float64) float64 { return a / b }),
	"Min":    binary(math.Min),
	"Max":    binary(math.Max),
	"Floor":  unary(math.Floor),
	"Sin":    unary(math.Sin),
	"Cos":    unary(math.Cos),
	"Abs":    unary(math.Abs),
	"Negate": unary(func(a float64) float64 { return -a }),
	"Clamp": func(args ...Value) Value {
		x, lo, hi := args[0], args[1], args[2]
		return elementwise3(x, lo, hi, func(v, lo, hi float64) float64 {
			if v < lo {
				return lo
			}
			if v > hi {
				return hi
			}
			return v
		})
	},
	"Lerp": func(args ...Value) Value {
		a, b, t := args[0], args[1], args[2]
		return elementwise3(a, b, t, func(a, b, t float64) float64 { return a + (b-a)*t })
	},
	"Scale": func(args ...Value) Value {
		x, s := args[0], args[1]
		return elementwise(x, func(v float64) float64 { return v * s[0] })
	},
	"Offset": func(args ...Value) Value {
		x, o := args[0], args[1]
		return elementwise(x, func(v float64) float64 { return v + o[0] })
	},
	"GreaterThan": func(args ...Value) Value {
		a, b := args[0], args[1]
		if a[0] > b[0] {
			return Value{1}
		}
		return Value{0}
	},
	"Identity": func(args ...Value) Value { return args[0] },
}

func unary(f func(float64) float64) Kernel {
	return func(args ...Value) Value {
		return elementwise(args[0], f)
	}
}

func binary(f func(a, b float64) float64) Kernel {
	return func(args ...Value) Value {
		return elementwiseBinary(args[0], args[1], f)
	}
}

func elementwise(v Value, f func(float64) float64) Value {
	out := make(Value, len(v))
	for i, x := range v {
		out[i] = f(x)
	}
	return out
}

// elementwiseBinary broadcasts a scalar (len-1) operand against a bundle.
func elementwiseBinary(a, b Value, f func(a, b float64) float64) Value {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Value, n)
	for i := 0; i < n; i++ {
		av := a[lane(a, i)]
		bv := b[lane(b, i)]
		out[i] = f(av, bv)
	}
	return out
}

func elementwise3(a, b, c Value, f func(a, b, c float64) float64) Value {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if len(c) > n {
		n = len(c)
	}
	out := make(Value, n)
	for i := 0; i < n; i++ {
		out[i] = f(a[lane(a, i)], b[lane(b, i)], c[lane(c, i)])
	}
	return out
}

func lane(v Value, i int) int {
	if len(v) == 1 {
		return 0
	}
	return i
}

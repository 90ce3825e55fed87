// Package typedesc implements the TypeDesc model: the world/domain/lanes
// descriptor that every port, wire, and bus edge in a patch carries.
package typedesc

import "fmt"

// World is the evaluation domain a value lives in.
type World string

const (
	WorldScalar World = "scalar"
	WorldSignal World = "signal"
	WorldField  World = "field"
	WorldEvent  World = "event"
	WorldConfig World = "config"
	WorldSpecial World = "special"
)

// Domain is the primitive type tag carried by a TypeDesc.
type Domain string

const (
	Float    Domain = "float"
	Int      Domain = "int"
	Bool     Domain = "bool"
	Color    Domain = "color"
	Vec2     Domain = "vec2"
	Vec3     Domain = "vec3"
	Vec4     Domain = "vec4"
	Quat     Domain = "quat"
	Mat4     Domain = "mat4"
	Trigger  Domain = "trigger"
	TimeMs   Domain = "timeMs"
	Phase01  Domain = "phase01"
	DomainH  Domain = "domain" // handle to an element count
	Path     Domain = "path"
	String   Domain = "string"
)

// lanesOf returns the natural lane arity for a domain unless overridden.
var lanesOf = map[Domain][]int{
	Vec2: {2},
	Vec3: {3},
	Vec4: {4},
	Quat: {4},
	Mat4: {16},
}

// Category restricts which edges may cross a bus.
type Category string

const (
	CategoryCore     Category = "core"
	CategoryInternal Category = "internal"
)

// TypeDesc is the immutable type descriptor described in spec.md §3.
type TypeDesc struct {
	World       World
	Dom         Domain
	Lanes       []int
	Cat         Category
	BusEligible bool
	Semantics   string
	Unit        string
}

// New builds a TypeDesc for a world/domain pair, inferring Lanes from the
// domain's natural bundle size and defaulting Category to core.
func New(world World, dom Domain) TypeDesc {
	lanes := lanesOf[dom]
	if lanes == nil {
		lanes = []int{1}
	}
	return TypeDesc{
		World: world,
		Dom:   dom,
		Lanes: lanes,
		Cat:   CategoryCore,
	}
}

// WithBusEligible returns a copy marked bus-eligible.
func (t TypeDesc) WithBusEligible(v bool) TypeDesc {
	t.BusEligible = v
	return t
}

// WithSemantics returns a copy carrying semantics/unit metadata.
func (t TypeDesc) WithSemantics(semantics, unit string) TypeDesc {
	t.Semantics = semantics
	t.Unit = unit
	return t
}

// WithInternal returns a copy tagged as an internal (non-bus) category.
func (t TypeDesc) WithInternal() TypeDesc {
	t.Cat = CategoryInternal
	t.BusEligible = false
	return t
}

// Arity returns the number of consecutive scalar slots this type occupies.
func (t TypeDesc) Arity() int {
	n := 1
	for _, l := range t.Lanes {
		n *= l
	}
	if n == 0 {
		return 1
	}
	return n
}

// Signal, Field, and Scalar are convenience constructors for the three
// worlds that dominate the author graph.
func Signal(dom Domain) TypeDesc { return New(WorldSignal, dom) }
func Field(dom Domain) TypeDesc  { return New(WorldField, dom) }
func Scalar(dom Domain) TypeDesc { return New(WorldScalar, dom) }
func Event(dom Domain) TypeDesc  { return New(WorldEvent, dom) }
func Special(dom Domain) TypeDesc {
	return New(WorldSpecial, dom)
}

// CompatibleWith reports whether two TypeDescs may be connected directly:
// same world and same domain. Adapter chains (declared separately by the
// compiler's type-resolution pass) bridge anything else.
func (t TypeDesc) CompatibleWith(o TypeDesc) bool {
	return t.World == o.World && t.Dom == o.Dom
}

// String renders a TypeDesc the way diagnostics want to print it.
func (t TypeDesc) String() string {
	if len(t.Lanes) == 1 && t.Lanes[0] == 1 {
		return fmt.Sprintf("%s<%s>", t.World, t.Dom)
	}
	return fmt.Sprintf("%s<%s%v>", t.World, t.Dom, t.Lanes)
}

// CombineMode names a bus's fold operator (spec.md §pass7).
type CombineMode string

const (
	CombineSum     CombineMode = "sum"
	CombineProduct CombineMode = "product"
	CombineAverage CombineMode = "average"
	CombineMin     CombineMode = "min"
	CombineMax     CombineMode = "max"
	CombineLast    CombineMode = "last"
	CombineLayer   CombineMode = "layer"
	CombinePulse   CombineMode = "pulse"
	CombineMerge   CombineMode = "merge"
)

// NumericModes are the combine modes requiring a numeric domain.
var numericModes = map[CombineMode]bool{
	CombineSum: true, CombineProduct: true, CombineAverage: true,
	CombineMin: true, CombineMax: true, CombineLast: true,
}

// EventModes are the combine modes only valid for the event world.
var eventModes = map[CombineMode]bool{
	CombinePulse: true, CombineMerge: true,
}

// IsNumeric reports whether a domain is a plain numeric scalar.
func IsNumeric(d Domain) bool {
	return d == Float || d == Int
}

// CombineCompatible checks a combine mode against the bus's reconciled
// TypeDesc, per spec.md pass7: "Combine mode must be compatible with both
// world and domain (e.g. average requires numeric; layer requires color)".
func CombineCompatible(mode CombineMode, t TypeDesc) bool {
	switch mode {
	case CombineLayer:
		return t.Dom == Color
	case CombinePulse, CombineMerge:
		return t.World == WorldEvent
	case CombineAverage, CombineSum, CombineProduct, CombineMin, CombineMax:
		return IsNumeric(t.Dom) || t.Dom == Vec2 || t.Dom == Vec3 || t.Dom == Vec4
	case CombineLast:
		return true
	default:
		return false
	}
}

package ir

import "github.com/oscilla/patchc/typedesc"

// SigKind discriminates a signalIR node (spec.md §3).
type SigKind string

const (
	SigConst         SigKind = "const"
	SigTimeAbsMs     SigKind = "timeAbsMs"
	SigTimeModelMs   SigKind = "timeModelMs"
	SigPhase01       SigKind = "phase01"
	SigWrapEvent     SigKind = "wrapEvent"
	SigMap           SigKind = "map"
	SigZip           SigKind = "zip"
	SigSelect        SigKind = "select"
	SigStateful      SigKind = "stateful"
	SigTransform     SigKind = "transform"
	SigCombine       SigKind = "sigCombine"
)

// SigNode is one entry of the signal expression table. Only the fields
// relevant to Kind are populated; this mirrors the flat opcode-record shape
// used throughout the retrieval pack's own IRs rather than a Go interface
// per node kind; expression tables append millions of tiny nodes across a
// session's recompiles and a flat struct keeps that cheap.
type SigNode struct {
	Kind SigKind

	// SigConst
	ConstID ConstId

	// SigMap / SigTransform
	Src    SigExprId
	FnName string // opcode kernel name for SigMap (Sin, Floor, Abs, ...)

	// SigZip
	A, B SigExprId

	// SigSelect
	Cond, IfTrue, IfFalse SigExprId

	// SigStateful
	StateOp   string
	Input     SigExprId
	StateID   StateId
	OpParams  map[string]any

	// SigTransform
	ChainID TransformId

	// SigCombine
	BusIndex int
	Terms    []SigExprId
	Mode     typedesc.CombineMode

	// Lanes is the scalar-slot arity of this node's result (1 for plain
	// numbers/bools and packed colors, 3 for vec3, 4 for vec4/quat, 16 for
	// mat4),
	// carried on the node itself so the evaluator and executor don't need
	// a side lookup to know how many consecutive slots a write touches.
	Lanes int

	DebugName string
}

// FieldKind discriminates a fieldIR node (spec.md §3).
type FieldKind string

const (
	FieldConst         FieldKind = "const"
	FieldMap           FieldKind = "map"
	FieldZip           FieldKind = "zip"
	FieldSelect        FieldKind = "select"
	FieldBroadcastSig  FieldKind = "broadcastSig"
	FieldCombine       FieldKind = "fieldCombine"
	FieldSampleSignal  FieldKind = "sampleSignal"
)

// FieldNode is one entry of the field expression table.
type FieldNode struct {
	Kind FieldKind

	// FieldConst
	ConstID ConstId

	// FieldMap
	Src    FieldExprId
	FnName string

	// FieldZip
	A, B FieldExprId

	// FieldSelect
	Cond, IfTrue, IfFalse FieldExprId

	// FieldBroadcastSig
	SigSrc    SigExprId
	DomainSlot ValueSlot

	// FieldCombine
	BusIndex int
	Terms    []FieldExprId
	Mode     typedesc.CombineMode

	// FieldSampleSignal
	SignalSlot ValueSlot
	DomainID   ValueSlot

	Lanes int

	DebugName string
}

// ExprTables holds the two append-only expression arrays.
type ExprTables struct {
	Sig   []SigNode
	Field []FieldNode
}

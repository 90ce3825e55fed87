// Package ir implements the dense intermediate representation described in
// spec.md §3-4.3: the signal/field expression tables, the constant pool,
// state layout, value slots, and the IRBuilder that allocates all of them.
//
// The expression nodes follow the flat "Kind + optional fields" struct
// shape the retrieval pack uses for its own IR nodes (e.g. the compiler
// backends under other_examples/), rather than a Go interface hierarchy:
// cheap to allocate, cheap to append to a dense table, and easy to dump for
// debugging the way the teacher's core.Operation does for CGRA kernels.
package ir

// SigExprId is a dense index into a signalIR node table.
type SigExprId int

// FieldExprId is a dense index into a fieldIR node table.
type FieldExprId int

// ValueSlot is a dense index into a ValueStore typed array.
type ValueSlot int

// StateId is a dense index into a StateBuffer's per-storage-class layout.
type StateId int

// ConstId is a dense index into the constant pool.
type ConstId int

// TransformId is a dense index into the lens/adapter chain table.
type TransformId int

// InvalidSlot marks an unallocated or not-yet-resolved ValueSlot.
const InvalidSlot ValueSlot = -1

package ir

// StorageClass names which typed array of the ValueStore/StateBuffer a slot
// or cell lives in (spec.md §4.4).
type StorageClass string

const (
	StorageF64    StorageClass = "f64"
	StorageF32    StorageClass = "f32"
	StorageI32    StorageClass = "i32"
	StorageU32    StorageClass = "u32"
	StorageObject StorageClass = "object"
)

// SlotMeta records allocation metadata for one ValueSlot run (a bundle type
// reserves Arity consecutive slots starting at Slot).
type SlotMeta struct {
	Slot    ValueSlot
	Class   StorageClass
	Arity   int
	DebugName string
}

// StateRole tags why a state cell exists, for debugging and for
// StateBuffer's ring-buffer seeding rule.
type StateRole string

const (
	RoleAccumulator StateRole = "accumulator"
	RolePhase       StateRole = "phase"
	RoleRingBuffer  StateRole = "ringBuffer"
	RoleCounter     StateRole = "counter"
	RoleValue       StateRole = "value"
)

// StateCell is per-stateful-operation persistent storage (spec.md §3).
type StateCell struct {
	ID             StateId
	Class          StorageClass
	Offset         int
	Size           int
	InitialConstID ConstId
	Role           StateRole
	DebugName      string
}

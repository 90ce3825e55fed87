package ir

import "github.com/oscilla/patchc/typedesc"

// TransformChain is a lens/adapter chain applied between a publisher and a
// bus, or between a composite boundary and its internal primitive.
type TransformChain struct {
	ID    TransformId
	Steps []TransformStep
}

// TransformStep is one lens/adapter application (e.g. scale=12, offset=8).
type TransformStep struct {
	Name   string
	Params map[string]any
}

// RenderSink records a render-capability block's allocated inputs so the
// schedule executor can find them when composing a frame's RenderTree.
type RenderSink struct {
	BlockID string
	Kind    string
	Inputs  map[string]ValueSlot
}

// DomainSeed records an identity-capability block's compile-time-known
// element count, to be written once into the ValueStore's object slot
// before frame 0 (domain counts never change at runtime in this system, so
// they need no schedule step of their own).
type DomainSeed struct {
	Slot  ValueSlot
	Count int
}

// DebugIndex maps IR entities back to the author-graph locations that
// produced them, for tooling and for UpstreamError diagnostics.
type DebugIndex struct {
	SigExprSource   map[SigExprId]string
	FieldExprSource map[FieldExprId]string
	SlotSource      map[ValueSlot]string
}

func newDebugIndex() DebugIndex {
	return DebugIndex{
		SigExprSource:   make(map[SigExprId]string),
		FieldExprSource: make(map[FieldExprId]string),
		SlotSource:      make(map[ValueSlot]string),
	}
}

// BuilderProgramIR is the immutable value IRBuilder.Build returns: the
// expression tables, const pool, state layout, transform chains, render
// sinks, debug index, and TimeModel (spec.md §4.3).
type BuilderProgramIR struct {
	Tables      ExprTables
	Consts      *ConstPool
	StateLayout []StateCell
	Transforms  []TransformChain
	RenderSinks []RenderSink
	DomainSeeds []DomainSeed
	Slots       []SlotMeta
	Debug       DebugIndex
	Time        TimeModel
}

// Builder allocates monotonically-increasing ids for every IR entity and
// deduplicates constants. It is owned exclusively by one compile and is
// read-only after Build, matching the ownership rule in spec.md §5.
type Builder struct {
	tables ExprTables
	consts *ConstPool

	stateLayout []StateCell
	transforms  []TransformChain
	renderSinks []RenderSink
	domainSeeds []DomainSeed
	slots       []SlotMeta
	debug       DebugIndex

	nextSlot int
	time     TimeModel
}

// NewBuilder returns a fresh Builder with an empty const pool.
func NewBuilder() *Builder {
	return &Builder{
		consts: NewConstPool(),
		debug:  newDebugIndex(),
	}
}

// SetTimeModel records the TimeModel discovered by pass3.
func (b *Builder) SetTimeModel(tm TimeModel) {
	b.time = tm
}

// TimeModelOf returns the TimeModel set by SetTimeModel, for passes run
// after pass3 that need to hand it to block Lower functions via
// LowerContext.Time.
func (b *Builder) TimeModelOf() TimeModel {
	return b.time
}

// AddSig appends a signal expression node and returns its id.
func (b *Builder) AddSig(n SigNode) SigExprId {
	id := SigExprId(len(b.tables.Sig))
	b.tables.Sig = append(b.tables.Sig, n)
	return id
}

// AddField appends a field expression node and returns its id.
func (b *Builder) AddField(n FieldNode) FieldExprId {
	id := FieldExprId(len(b.tables.Field))
	b.tables.Field = append(b.tables.Field, n)
	return id
}

// InternConst deduplicates a constant value into the pool.
func (b *Builder) InternConst(v any) ConstId {
	return b.consts.Intern(v)
}

// FieldNodeAt returns the field node stored at id, for passes that need to
// walk an already-built field expression subtree (e.g. the compiler's
// fieldEval dependency tracking for sampleSignal nodes).
func (b *Builder) FieldNodeAt(id FieldExprId) FieldNode {
	return b.tables.Field[id]
}

// classForDomain chooses a slot's storage class from its TypeDesc, per
// spec.md §4.4: bool/int/trigger -> i32/u32, float/timeMs/phase01 -> f64,
// colors -> u32 (packed) unless lanes>1, domain/field handles -> object.
func classForDomain(t typedesc.TypeDesc) StorageClass {
	switch t.Dom {
	case typedesc.Bool, typedesc.Trigger:
		return StorageI32
	case typedesc.Int:
		return StorageI32
	case typedesc.Color:
		if t.Arity() == 1 {
			return StorageU32
		}
		return StorageF32
	case typedesc.DomainH, typedesc.Path, typedesc.String:
		return StorageObject
	default:
		return StorageF64
	}
}

// AllocValueSlot reserves Arity(type) consecutive slots and returns the
// first one (spec.md §4.3: "advances the next-slot counter by the type's
// scalar-slot arity").
func (b *Builder) AllocValueSlot(t typedesc.TypeDesc, debugName string) ValueSlot {
	slot := ValueSlot(b.nextSlot)
	arity := t.Arity()
	b.nextSlot += arity
	b.slots = append(b.slots, SlotMeta{
		Slot:      slot,
		Class:     classForDomain(t),
		Arity:     arity,
		DebugName: debugName,
	})
	return slot
}

// AllocStateCell reserves a state cell of the given class/size, seeded from
// initialConstID, and returns its StateId.
func (b *Builder) AllocStateCell(class StorageClass, size int, initialConstID ConstId, role StateRole, debugName string) StateId {
	id := StateId(len(b.stateLayout))
	offset := b.stateOffsetFor(class)
	b.stateLayout = append(b.stateLayout, StateCell{
		ID:             id,
		Class:          class,
		Offset:         offset,
		Size:           size,
		InitialConstID: initialConstID,
		Role:           role,
		DebugName:      debugName,
	})
	return id
}

// stateOffsetFor returns the next free offset within class's monolithic
// typed buffer, computed from the sizes of previously allocated cells of
// the same class (spec.md §9: "State cells should be stored in monolithic
// typed buffers ... addressed by integer offset, not per-block heap
// objects").
func (b *Builder) stateOffsetFor(class StorageClass) int {
	off := 0
	for _, c := range b.stateLayout {
		if c.Class == class {
			off += c.Size
		}
	}
	return off
}

// AddTransformChain records a lens/adapter chain and returns its id.
func (b *Builder) AddTransformChain(steps []TransformStep) TransformId {
	id := TransformId(len(b.transforms))
	b.transforms = append(b.transforms, TransformChain{ID: id, Steps: steps})
	return id
}

// AddRenderSink records a render-capability block's resolved inputs.
func (b *Builder) AddRenderSink(blockID, kind string, inputs map[string]ValueSlot) {
	b.renderSinks = append(b.renderSinks, RenderSink{BlockID: blockID, Kind: kind, Inputs: inputs})
}

// AddDomainSeed records a domain handle's compile-time element count.
func (b *Builder) AddDomainSeed(slot ValueSlot, count int) {
	b.domainSeeds = append(b.domainSeeds, DomainSeed{Slot: slot, Count: count})
}

// RecordSigSource / RecordFieldSource / RecordSlotSource populate the debug
// index used for UpstreamError and tooling.
func (b *Builder) RecordSigSource(id SigExprId, loc string)     { b.debug.SigExprSource[id] = loc }
func (b *Builder) RecordFieldSource(id FieldExprId, loc string) { b.debug.FieldExprSource[id] = loc }
func (b *Builder) RecordSlotSource(slot ValueSlot, loc string)  { b.debug.SlotSource[slot] = loc }

// Build finalizes the builder into an immutable BuilderProgramIR.
func (b *Builder) Build() BuilderProgramIR {
	return BuilderProgramIR{
		Tables:      b.tables,
		Consts:      b.consts,
		StateLayout: append([]StateCell(nil), b.stateLayout...),
		Transforms:  append([]TransformChain(nil), b.transforms...),
		RenderSinks: append([]RenderSink(nil), b.renderSinks...),
		DomainSeeds: append([]DomainSeed(nil), b.domainSeeds...),
		Slots:       append([]SlotMeta(nil), b.slots...),
		Debug:       b.debug,
		Time:        b.time,
	}
}

// Package store implements the per-frame ValueStore and persistent
// StateBuffer described in spec.md §4.4: typed-array backed storage with a
// single-writer-per-slot rule. The five parallel typed buffers mirror the
// teacher's coreState layout (core.Builder.Build allocates
// state.Registers, state.Memory, state.RecvBufHead, ... as plain typed
// slices indexed by integer offset) generalized from one CGRA core's
// register file to one frame's slot space.
package store

import (
	"fmt"

	"github.com/oscilla/patchc/ir"
)

// ValueStore holds, per frame, five parallel buffers indexed by ValueSlot,
// plus a written-set bitmap enforcing the single-writer rule.
type ValueStore struct {
	F64 []float64
	F32 []float32
	I32 []int32
	U32 []uint32
	Obj []any

	slots   []ir.SlotMeta
	written []bool
}

// New allocates a ValueStore sized from the builder's slot metadata. Every
// buffer is sized to cover the slot space regardless of which storage
// class a given slot belongs to, so `write`/`read` never need to resize
// mid-frame.
func New(slots []ir.SlotMeta) *ValueStore {
	n := 0
	for _, s := range slots {
		if end := int(s.Slot) + s.Arity; end > n {
			n = end
		}
	}
	return &ValueStore{
		F64:     make([]float64, n),
		F32:     make([]float32, n),
		I32:     make([]int32, n),
		U32:     make([]uint32, n),
		Obj:     make([]any, n),
		slots:   slots,
		written: make([]bool, n),
	}
}

// Clear resets the written-set bitmap without zeroing buffers: values
// persist as last-frame data until overwritten, per spec.md §4.4.
func (v *ValueStore) Clear() {
	for i := range v.written {
		v.written[i] = false
	}
}

// markWritten enforces the single-writer rule for a slot: a second write to
// the same slot within a frame is a hard runtime error.
func (v *ValueStore) markWritten(slot ir.ValueSlot) error {
	i := int(slot)
	if i < 0 || i >= len(v.written) {
		return fmt.Errorf("store: %w: slot %d out of range", ErrInvalidSlot, slot)
	}
	if v.written[i] {
		return fmt.Errorf("store: %w: slot %d written twice in one frame", ErrSingleWriterViolation, slot)
	}
	v.written[i] = true
	return nil
}

// WriteF64 writes a float64 value into slot.
func (v *ValueStore) WriteF64(slot ir.ValueSlot, val float64) error {
	if err := v.markWritten(slot); err != nil {
		return err
	}
	v.F64[slot] = val
	return nil
}

// WriteF32 writes a float32 value into slot.
func (v *ValueStore) WriteF32(slot ir.ValueSlot, val float32) error {
	if err := v.markWritten(slot); err != nil {
		return err
	}
	v.F32[slot] = val
	return nil
}

// WriteI32 writes an int32 value into slot.
func (v *ValueStore) WriteI32(slot ir.ValueSlot, val int32) error {
	if err := v.markWritten(slot); err != nil {
		return err
	}
	v.I32[slot] = val
	return nil
}

// WriteU32 writes a uint32 value into slot.
func (v *ValueStore) WriteU32(slot ir.ValueSlot, val uint32) error {
	if err := v.markWritten(slot); err != nil {
		return err
	}
	v.U32[slot] = val
	return nil
}

// WriteObj writes an opaque handle (field materializer id, domain handle)
// into slot.
func (v *ValueStore) WriteObj(slot ir.ValueSlot, val any) error {
	if err := v.markWritten(slot); err != nil {
		return err
	}
	v.Obj[slot] = val
	return nil
}

// SeedObj sets an object slot's value directly, bypassing the
// written-set: used once at program construction to seed compile-time-
// known values (e.g. domain element counts) that no schedule step ever
// writes, so they must survive every frame's Clear().
func (v *ValueStore) SeedObj(slot ir.ValueSlot, val any) {
	v.Obj[slot] = val
}

// ReadF64 reads without checking the written-set: last-frame data is valid
// to read before this frame's writer for that slot has run (e.g. a probe
// reading ahead of its dependency in a debug build), the executor's
// schedule is responsible for ordering real dependencies correctly.
func (v *ValueStore) ReadF64(slot ir.ValueSlot) float64 { return v.F64[slot] }
func (v *ValueStore) ReadF32(slot ir.ValueSlot) float32 { return v.F32[slot] }
func (v *ValueStore) ReadI32(slot ir.ValueSlot) int32   { return v.I32[slot] }
func (v *ValueStore) ReadU32(slot ir.ValueSlot) uint32  { return v.U32[slot] }
func (v *ValueStore) ReadObj(slot ir.ValueSlot) any     { return v.Obj[slot] }

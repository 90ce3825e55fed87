package store

import (
	"fmt"

	"github.com/oscilla/patchc/ir"
)

// StateBuffer mirrors ValueStore's layout for state cells, persisting
// across frames (spec.md §4.4). It is constructed once per compiled
// program and never Clear()-ed by the executor.
type StateBuffer struct {
	F64 []float64
	F32 []float32
	I32 []int32
	U32 []uint32
	Obj []any

	cells []ir.StateCell
}

// NewStateBuffer builds a StateBuffer from the IR's state layout, seeding every cell
// from the const pool's initialConstId. A ring-buffer cell of size N fills
// all N elements with the same seed value, per spec.md §4.4.
func NewStateBuffer(layout []ir.StateCell, consts *ir.ConstPool) (*StateBuffer, error) {
	sb := &StateBuffer{cells: layout}

	sizes := map[ir.StorageClass]int{}
	for _, c := range layout {
		if end := c.Offset + c.Size; end > sizes[c.Class] {
			sizes[c.Class] = end
		}
	}
	sb.F64 = make([]float64, sizes[ir.StorageF64])
	sb.F32 = make([]float32, sizes[ir.StorageF32])
	sb.I32 = make([]int32, sizes[ir.StorageI32])
	sb.U32 = make([]uint32, sizes[ir.StorageU32])
	sb.Obj = make([]any, sizes[ir.StorageObject])

	for _, c := range layout {
		if int(c.InitialConstID) < 0 || int(c.InitialConstID) >= consts.Len() {
			return nil, fmt.Errorf("statebuffer: %w: cell %d initialConstId %d", ErrStateBufferRange, c.ID, c.InitialConstID)
		}
		seed := consts.Get(c.InitialConstID)
		if err := sb.seedCell(c, seed); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

func (sb *StateBuffer) seedCell(c ir.StateCell, seed any) error {
	for i := 0; i < c.Size; i++ {
		off := c.Offset + i
		switch c.Class {
		case ir.StorageF64:
			v, err := toFloat64(seed)
			if err != nil {
				return err
			}
			sb.F64[off] = v
		case ir.StorageF32:
			v, err := toFloat64(seed)
			if err != nil {
				return err
			}
			sb.F32[off] = float32(v)
		case ir.StorageI32:
			v, err := toFloat64(seed)
			if err != nil {
				return err
			}
			sb.I32[off] = int32(v)
		case ir.StorageU32:
			v, err := toFloat64(seed)
			if err != nil {
				return err
			}
			sb.U32[off] = uint32(v)
		case ir.StorageObject:
			sb.Obj[off] = seed
		}
	}
	return nil
}

func toFloat64(v any) (float64, error) {
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
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("statebuffer: seed value %v is not numeric", v)
	}
}

// Cells returns the state layout this buffer was built from.
func (sb *StateBuffer) Cells() []ir.StateCell {
	return sb.cells
}

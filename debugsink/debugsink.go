// Package debugsink renders a Runtime's ValueStore and StateBuffer as
// human-readable tables, grounded on the teacher's core.PrintState
// (core/util.go), which dumps a CGRA core's register file and send/recv
// buffers as go-pretty tables keyed by their debug slot metadata. Here the
// same table-per-buffer-class layout is driven by ir.SlotMeta/StateCell
// debug names instead of fixed register indices, since this system's slot
// space is dynamically allocated per compile rather than architecturally
// fixed.
package debugsink

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oscilla/patchc/executor"
	"github.com/oscilla/patchc/ir"
	"github.com/oscilla/patchc/store"
)

// DumpValueStore renders one frame's ValueStore contents, one row per
// allocated slot run, in allocation order.
func DumpValueStore(w io.Writer, program *ir.BuilderProgramIR, rt *executor.Runtime) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Slot", "Class", "Arity", "Name", "Value"})
	for _, s := range program.Slots {
		t.AppendRow(table.Row{int(s.Slot), string(s.Class), s.Arity, s.DebugName, formatSlotValue(rt, s)})
	}
	fmt.Fprintln(w, t.Render())
}

func formatSlotValue(rt *executor.Runtime, s ir.SlotMeta) string {
	switch s.Class {
	case ir.StorageF64:
		if s.Arity <= 1 {
			return fmt.Sprintf("%g", rt.Store.ReadF64(s.Slot))
		}
		out := "["
		for i := 0; i < s.Arity; i++ {
			if i > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%g", rt.Store.ReadF64(s.Slot+ir.ValueSlot(i)))
		}
		return out + "]"
	case ir.StorageI32:
		return fmt.Sprintf("%d", rt.Store.ReadI32(s.Slot))
	case ir.StorageU32:
		return fmt.Sprintf("0x%08x", rt.Store.ReadU32(s.Slot))
	case ir.StorageObject:
		return fmt.Sprintf("%v", rt.Store.ReadObj(s.Slot))
	default:
		return "?"
	}
}

// DumpStateBuffer renders the persistent state cells (accumulators, phase
// counters, ring buffers) a compiled program allocated for stateful
// operators, grounded the same way as the teacher's send/recv buffer
// tables: one row per cell, one column set per storage class.
func DumpStateBuffer(w io.Writer, sb *store.StateBuffer) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Cell", "Class", "Role", "Offset", "Size", "Name", "Value"})
	for _, c := range sb.Cells() {
		t.AppendRow(table.Row{int(c.ID), string(c.Class), string(c.Role), c.Offset, c.Size, c.DebugName, formatCell(sb, c)})
	}
	fmt.Fprintln(w, t.Render())
}

// DumpProbes renders one frame's debugProbe captures (spec.md §4.5's
// "debugProbe: read a fixed list of slots and forward to the debug sink"),
// one row per probe step.
func DumpProbes(w io.Writer, probes []executor.Probe) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Step", "Target"})
	if len(probes) == 0 {
		t.AppendRow(table.Row{"-", "(no probes)"})
	}
	for _, p := range probes {
		t.AppendRow(table.Row{p.StepID, fmt.Sprintf("%g", p.Values["target"])})
	}
	fmt.Fprintln(w, t.Render())
}

func formatCell(sb *store.StateBuffer, c ir.StateCell) string {
	switch c.Class {
	case ir.StorageF64:
		return fmt.Sprintf("%g", sb.F64[c.Offset])
	case ir.StorageF32:
		return fmt.Sprintf("%g", sb.F32[c.Offset])
	case ir.StorageI32:
		return fmt.Sprintf("%d", sb.I32[c.Offset])
	case ir.StorageU32:
		return fmt.Sprintf("0x%08x", sb.U32[c.Offset])
	case ir.StorageObject:
		return fmt.Sprintf("%v", sb.Obj[c.Offset])
	default:
		return "?"
	}
}

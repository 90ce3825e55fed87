// Package events implements the outbound compile events of spec.md §6:
// CompileStarted/CompileFinished, emitted on the dispatcher's event
// channel (SPEC_FULL.md §C's command-channel dispatcher) so a host UI can
// show live compile status without polling. Event shape and CompileId
// generation are grounded on the teacher's verify.VerificationReport
// (a single struct summarizing one run, timestamped and fed to a
// channel/writer) generalized from "one lint pass" to "one compile".
package events

import "github.com/google/uuid"

// Trigger names why a compile was requested.
type Trigger string

const (
	TriggerUserEdit   Trigger = "userEdit"
	TriggerFileLoad   Trigger = "fileLoad"
	TriggerProgrammatic Trigger = "programmatic"
)

// CompileID uniquely identifies one compile invocation.
type CompileID string

// NewCompileID allocates a fresh random CompileID.
func NewCompileID() CompileID {
	return CompileID(uuid.New().String())
}

// Status is the terminal state of a CompileFinished event.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// CompileStarted is emitted the moment a compile begins.
type CompileStarted struct {
	CompileID      CompileID
	PatchID        string
	PatchRevision  int
	Trigger        Trigger
}

// ProgramMeta summarizes a successfully-compiled program for event
// consumers that don't want the full IR.
type ProgramMeta struct {
	TimeModelKind  string
	TimeRootKind   string
	BusUsageSummary map[string]int // busId -> listener count
}

// CompileFinished is emitted when a compile completes, successfully or
// not.
type CompileFinished struct {
	CompileID     CompileID
	PatchRevision int
	Status        Status
	DurationMs    float64
	Diagnostics   []string // rendered diagnostic summaries
	Program       *ProgramMeta
}

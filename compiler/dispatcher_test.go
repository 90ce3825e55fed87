package compiler_test

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscilla/patchc/catalog"
	"github.com/oscilla/patchc/compiler"
	"github.com/oscilla/patchc/events"
	"github.com/oscilla/patchc/patch"
)

func newTestCatalog() *catalog.Catalog {
	cat := catalog.New()
	catalog.RegisterBuiltins(cat)
	return cat
}

// TestDispatcherPublishesStartedAndFinished mocks the Dispatcher's Clock so
// DurationMs is asserted against a known elapsed interval instead of a
// flaky wall-clock measurement, the same test-seam role the teacher's
// sim.Port/sim.Device mocks play in api/driver_internal_test.go.
func TestDispatcherPublishesStartedAndFinished(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := NewMockClock(ctrl)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(42 * time.Millisecond)
	clock.EXPECT().Now().Return(t0)
	clock.EXPECT().Now().Return(t1)

	d := compiler.NewDispatcherWithClock(newTestCatalog(), 1, clock)
	defer d.Close()

	d.Submit(compiler.CompileRequest{
		Patch:   patch.Patch{Blocks: []patch.Block{{ID: "clock", Type: "TimeRootFinite"}}},
		Trigger: events.TriggerUserEdit,
	})

	started := <-d.Started()
	assert.Equal(t, events.TriggerUserEdit, started.Trigger)

	finished := <-d.Finished()
	assert.Equal(t, events.StatusOK, finished.Status)
	require.NotNil(t, finished.Program)
	assert.InDelta(t, 42.0, finished.DurationMs, 1e-9)
}

// TestDispatcherDebouncesToLatest submits two requests back-to-back with no
// consumer draining in between; the queue depth of 1 means only the
// freshest request survives to compile.
func TestDispatcherDebouncesToLatest(t *testing.T) {
	d := compiler.NewDispatcher(newTestCatalog(), 1)
	defer d.Close()

	d.Submit(compiler.CompileRequest{Patch: patch.Patch{}, Trigger: events.TriggerFileLoad})
	d.Submit(compiler.CompileRequest{
		Patch:   patch.Patch{Blocks: []patch.Block{{ID: "clock", Type: "TimeRootFinite"}}},
		Trigger: events.TriggerProgrammatic,
	})

	<-d.Started()
	finished := <-d.Finished()
	assert.Equal(t, events.StatusOK, finished.Status)
}

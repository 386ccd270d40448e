package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-organ/gesture.host/internal/config"
	"github.com/crowd-organ/gesture.host/internal/gesture"
)

// testEngine returns an engine on a manually driven clock plus a sink that
// records everything fanned out.
func testEngine(t *testing.T, cfg *config.TuningConfig) (*Engine, *int64, *[]gesture.Event) {
	t.Helper()
	now := new(int64)
	e := New(cfg)
	e.SetClock(func() int64 { return *now })

	var emitted []gesture.Event
	e.AddSink(SinkFunc(func(event gesture.Event) {
		emitted = append(emitted, event)
	}))
	return e, now, &emitted
}

func TestEngineRaiseEndToEnd(t *testing.T) {
	t.Parallel()

	e, now, emitted := testEngine(t, nil)

	// A performer lifting steadily for 600ms.
	for i := 0; i < 7; i++ {
		*now = int64(i * 100)
		e.HandleVoiceState(1, gesture.Vec3{X: 0.4, Y: 0.8 - 0.05*float64(i)}, 0.5, 0.5, 0.5)
	}

	events := e.Tick()
	require.Len(t, events, 1)
	event := events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, gesture.KindVoice, event.Kind)
	assert.Equal(t, gesture.TypeRaise, event.Type)
	assert.Equal(t, 1, event.Subject)
	assert.Equal(t, 1.0, event.Strength)
	assert.Equal(t, -1, event.Cell)
	assert.Equal(t, int64(600), event.UnixMillis)

	assert.Empty(t, cmp.Diff(events, *emitted), "sinks see exactly what the tick returned")
}

func TestEngineStaleVoicePruning(t *testing.T) {
	t.Parallel()

	e, now, _ := testEngine(t, nil)

	e.HandleVoiceState(1, gesture.Vec3{Y: 0.5}, 0.5, 0.5, 0.5)
	assert.Equal(t, 1, e.Snapshot().Voices)

	*now = 2000
	e.Tick()
	assert.Equal(t, 1, e.Snapshot().Voices, "a briefly quiet voice survives")

	*now = 2600
	e.Tick()
	assert.Equal(t, 0, e.Snapshot().Voices, "a silent voice past the stale window is gone")
}

func TestEngineVoiceDisconnect(t *testing.T) {
	t.Parallel()

	e, _, _ := testEngine(t, nil)

	e.HandleVoiceState(3, gesture.Vec3{Y: 0.5}, 0.5, 0.5, 0.5)
	require.Equal(t, 1, e.Snapshot().Voices)

	e.HandleVoiceDisconnect(3)
	assert.Equal(t, 0, e.Snapshot().Voices)

	// Disconnecting an unknown voice must not panic.
	e.HandleVoiceDisconnect(99)
}

func TestEngineCameraZones(t *testing.T) {
	t.Parallel()

	e, now, emitted := testEngine(t, nil)

	grid := func(v float64) []float64 {
		values := make([]float64, gesture.GridCells)
		values[5] = v
		return values
	}

	var events []gesture.Event
	for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
		*now = int64(1000 + i*100)
		events = append(events, e.HandleCameraZones(7, 4, 4, grid(v))...)
	}

	require.Len(t, events, 1)
	assert.Equal(t, gesture.KindZone, events[0].Kind)
	assert.Equal(t, gesture.TypePulseZone, events[0].Type)
	assert.Equal(t, 7, events[0].Subject)
	assert.Equal(t, 5, events[0].Cell)
	assert.Equal(t, events, *emitted)
}

func TestEngineRejectsMalformedGrids(t *testing.T) {
	t.Parallel()

	e, _, emitted := testEngine(t, nil)

	assert.Nil(t, e.HandleCameraZones(1, 3, 4, make([]float64, 12)))
	assert.Nil(t, e.HandleCameraZones(1, 4, 4, make([]float64, 15)))
	assert.Empty(t, *emitted)
}

func TestEngineRemoveCamera(t *testing.T) {
	t.Parallel()

	e, now, _ := testEngine(t, nil)

	grid := func(v float64) []float64 {
		values := make([]float64, gesture.GridCells)
		values[5] = v
		return values
	}
	for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
		*now = int64(1000 + i*100)
		e.HandleCameraZones(7, 4, 4, grid(v))
	}

	e.RemoveCamera(7)

	var events []gesture.Event
	for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
		*now = int64(1500 + i*100)
		events = append(events, e.HandleCameraZones(7, 4, 4, grid(v))...)
	}
	assert.Len(t, events, 1, "a re-added camera starts with clean cooldowns")
}

func TestEngineApplyTuning(t *testing.T) {
	t.Parallel()

	e, _, _ := testEngine(t, nil)
	assert.Equal(t, gesture.DefaultHistoryCapacity, e.Snapshot().HistoryCapacity)

	capacity := 10
	cfg := config.EmptyTuningConfig()
	cfg.HistoryCapacity = &capacity
	e.ApplyTuning(cfg)

	assert.Equal(t, 10, e.Snapshot().HistoryCapacity)
}

func TestEngineSnapshot(t *testing.T) {
	t.Parallel()

	e, now, _ := testEngine(t, nil)

	e.HandleRoomMotion(0.42)
	*now = 250
	e.Tick()

	snapshot := e.Snapshot()
	assert.InDelta(t, 0.42, snapshot.RoomMotion, 1e-9)
	assert.Equal(t, int64(250), snapshot.LastTickMs)
}

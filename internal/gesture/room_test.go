package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedRoom drives the detector with a constant motion level over a time range
// and returns every event with the timestamp it fired at.
func feedRoom(d *RoomDetector, motion float64, voices int, fromMs, toMs, stepMs int64) map[int64][]RoomEvent {
	fired := make(map[int64][]RoomEvent)
	for ts := fromMs; ts <= toMs; ts += stepMs {
		if events := d.Update(motion, voices, ts); len(events) > 0 {
			fired[ts] = events
		}
	}
	return fired
}

func TestRoomDetectorEruption(t *testing.T) {
	t.Parallel()

	d := NewRoomDetector(DefaultRoomConfig())

	// A calm stretch, then the whole crowd goes off at once.
	fired := feedRoom(d, 0.1, 1, 0, 3000, 300)
	require.Empty(t, fired, "a calm room never erupts")

	for ts, events := range feedRoom(d, 0.9, 1, 3300, 4800, 300) {
		fired[ts] = events
	}

	// The cooldown clock starts at zero, so the earliest possible eruption
	// is one full cooldown into the show even though the calm-then-spike
	// condition holds sooner.
	require.Len(t, fired, 1, "one spike reads as one eruption, cooldown holds the rest")
	events := fired[4500]
	require.Len(t, events, 1)
	assert.Equal(t, TypeEruption, events[0].Type)
	assert.InDelta(t, (0.9-0.7)/0.3, events[0].Strength, 1e-9)
}

func TestRoomDetectorEruptionNeedsCalmBefore(t *testing.T) {
	t.Parallel()

	d := NewRoomDetector(DefaultRoomConfig())

	// Sustained chaos with no calm baseline never erupts; the hysteresis
	// demands a quiet stretch first.
	fired := feedRoom(d, 0.9, 1, 0, 6000, 300)
	assert.Empty(t, fired)
}

func TestRoomDetectorStillness(t *testing.T) {
	t.Parallel()

	d := NewRoomDetector(DefaultRoomConfig())

	fired := feedRoom(d, 0.1, 4, 1000, 12000, 500)

	require.Len(t, fired, 2, "a sustained quiet room fires on the cooldown cadence")
	first := fired[6000]
	require.Len(t, first, 1)
	assert.Equal(t, TypeStillness, first[0].Type)
	// 0.6 weight on how far under the motion threshold, 0.4 on crowd size.
	assert.InDelta(t, 0.6*(1.0-0.1/0.22)+0.4*(1.0/3.0), first[0].Strength, 1e-9)

	second := fired[12000]
	require.Len(t, second, 1)
	assert.Equal(t, TypeStillness, second[0].Type)
}

func TestRoomDetectorStillnessResetOnMotion(t *testing.T) {
	t.Parallel()

	d := NewRoomDetector(DefaultRoomConfig())

	fired := feedRoom(d, 0.1, 4, 1000, 3000, 500)
	// A single spike restarts the stillness clock.
	d.Update(0.5, 4, 3500)
	for ts, events := range feedRoom(d, 0.1, 4, 4000, 6500, 500) {
		fired[ts] = events
	}

	assert.Empty(t, fired, "stillness measures from the last disturbance, not the first quiet sample")
}

func TestRoomDetectorStillnessNeedsCrowd(t *testing.T) {
	t.Parallel()

	d := NewRoomDetector(DefaultRoomConfig())

	fired := feedRoom(d, 0.05, 2, 1000, 12000, 500)
	assert.Empty(t, fired, "too few performers for a collective stillness")
}

func TestRoomDetectorReset(t *testing.T) {
	t.Parallel()

	d := NewRoomDetector(DefaultRoomConfig())

	// Burn in a hot history that blocks eruptions.
	feedRoom(d, 0.9, 1, 0, 6000, 300)
	d.Reset()

	fired := feedRoom(d, 0.1, 1, 10000, 13000, 300)
	for ts, events := range feedRoom(d, 0.9, 1, 13300, 14800, 300) {
		fired[ts] = events
	}
	assert.Len(t, fired, 1, "reset forgets the hot history")
}

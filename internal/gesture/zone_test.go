package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowPeakGrid lights a single cell in the given row.
func rowPeakGrid(row, col int, value float64) [GridCells]float64 {
	var grid [GridCells]float64
	grid[row*gridSide+col] = value
	return grid
}

// colPeakGrid lights a single cell in the given column.
func colPeakGrid(col, row int, value float64) [GridCells]float64 {
	var grid [GridCells]float64
	grid[row*gridSide+col] = value
	return grid
}

func TestZoneDetectorRowSweep(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	var events []ZoneEvent
	for i, col := range []int{0, 1, 2, 3} {
		ts := int64(1000 + i*200)
		events = append(events, d.UpdateCamera(1, rowPeakGrid(0, col, 1.0), ts)...)
	}

	require.Len(t, events, 1, "one coherent wave reads as exactly one sweep")
	assert.Equal(t, Type("sweep_lr_top"), events[0].Type)
	assert.Equal(t, 1, events[0].CamID)
	assert.Equal(t, -1, events[0].Cell)
	assert.Equal(t, 1.0, events[0].Strength)
}

func TestZoneDetectorColumnSweep(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	var events []ZoneEvent
	for i, row := range []int{0, 1, 2, 3} {
		ts := int64(1000 + i*200)
		events = append(events, d.UpdateCamera(2, colPeakGrid(1, row, 1.0), ts)...)
	}

	require.Len(t, events, 1)
	assert.Equal(t, Type("sweep_tb_mid_left"), events[0].Type)
}

func TestZoneDetectorSweepMonotonicity(t *testing.T) {
	t.Parallel()

	t.Run("plateau still qualifies", func(t *testing.T) {
		d := NewZoneDetector(DefaultZoneConfig())
		var events []ZoneEvent
		for i, col := range []int{0, 1, 1, 2} {
			ts := int64(1000 + i*200)
			events = append(events, d.UpdateCamera(1, rowPeakGrid(0, col, 1.0), ts)...)
		}
		require.Len(t, events, 1)
		assert.Equal(t, Type("sweep_lr_top"), events[0].Type)
	})

	t.Run("backtracking does not", func(t *testing.T) {
		d := NewZoneDetector(DefaultZoneConfig())
		var events []ZoneEvent
		for i, col := range []int{0, 2, 1, 3} {
			ts := int64(1000 + i*200)
			events = append(events, d.UpdateCamera(1, rowPeakGrid(0, col, 1.0), ts)...)
		}
		assert.Empty(t, events)
	})
}

func TestZoneDetectorSweepNeedsContrast(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	// The hottest cell drifts but the lane is nearly flat.
	var events []ZoneEvent
	for i, col := range []int{0, 1, 2, 3} {
		grid := [GridCells]float64{}
		for c := 0; c < gridSide; c++ {
			grid[c] = 0.1
		}
		grid[col] = 0.2
		events = append(events, d.UpdateCamera(1, grid, int64(1000+i*200))...)
	}
	assert.Empty(t, events, "a flat lane must not read as a wave")
}

func TestZoneDetectorSweepCooldown(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	feed := func(startTs int64) []ZoneEvent {
		var events []ZoneEvent
		for i, col := range []int{0, 1, 2, 3} {
			ts := startTs + int64(i*200)
			events = append(events, d.UpdateCamera(1, rowPeakGrid(0, col, 1.0), ts)...)
		}
		return events
	}

	require.Len(t, feed(1000), 1)
	assert.Empty(t, feed(2000), "second wave lands inside the cooldown")
	assert.Len(t, feed(4000), 1, "cooldown expires and the lane reads again")
}

func TestZoneDetectorPulse(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	grid := func(v float64) [GridCells]float64 {
		var g [GridCells]float64
		g[5] = v
		return g
	}

	var events []ZoneEvent
	for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
		events = append(events, d.UpdateCamera(1, grid(v), int64(1000+i*100))...)
	}

	require.Len(t, events, 1, "a rise-then-fall peak fires once, on the falling edge")
	assert.Equal(t, TypePulseZone, events[0].Type)
	assert.Equal(t, 5, events[0].Cell)
	assert.InDelta(t, (0.4-0.35)/0.65, events[0].Strength, 1e-9)
}

func TestZoneDetectorPulseBelowThreshold(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	grid := func(v float64) [GridCells]float64 {
		var g [GridCells]float64
		g[0] = v
		return g
	}

	var events []ZoneEvent
	for i, v := range []float64{0.05, 0.15, 0.3, 0.1} {
		events = append(events, d.UpdateCamera(1, grid(v), int64(1000+i*100))...)
	}
	assert.Empty(t, events, "the peak never got hot enough to matter")
}

func TestZoneDetectorPulseCooldown(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	grid := func(v float64) [GridCells]float64 {
		var g [GridCells]float64
		g[5] = v
		return g
	}

	mountain := func(startTs int64) []ZoneEvent {
		var events []ZoneEvent
		for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
			events = append(events, d.UpdateCamera(1, grid(v), startTs+int64(i*100))...)
		}
		return events
	}

	require.Len(t, mountain(1000), 1)
	assert.Empty(t, mountain(1400), "a repeat peak inside the cooldown stays silent")
	assert.Len(t, mountain(2500), 1)
}

func TestZoneDetectorRemoveCamera(t *testing.T) {
	t.Parallel()

	d := NewZoneDetector(DefaultZoneConfig())

	grid := func(v float64) [GridCells]float64 {
		var g [GridCells]float64
		g[5] = v
		return g
	}
	for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
		d.UpdateCamera(1, grid(v), int64(1000+i*100))
	}

	d.RemoveCamera(1)

	var events []ZoneEvent
	for i, v := range []float64{0.1, 0.5, 0.9, 0.4} {
		events = append(events, d.UpdateCamera(1, grid(v), int64(1500+i*100))...)
	}
	assert.Len(t, events, 1, "removal clears pulse trackers and cooldowns")

	// Removing an unknown camera must not panic.
	d.RemoveCamera(42)
}

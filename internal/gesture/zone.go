package gesture

// GridCells is the fixed size of a camera activity grid (4x4, row-major).
const GridCells = 16

const gridSide = 4

// ZoneConfig holds the camera-grid detection thresholds.
type ZoneConfig struct {
	HistoryMs           int64   // how much grid history to retain per camera
	SweepWindowMs       int64   // lookback for sweep index sequences
	SweepMinSteps       int     // qualifying samples needed for a sweep
	SweepMinStrength    float64 // minimum energy range along the lane
	SweepCooldownMs     int64
	PulseThreshold      float64 // minimum cell value at the peak
	PulseSlopeThreshold float64 // slope magnitude that counts as rising/falling
	PulseCooldownMs     int64
}

// DefaultZoneConfig returns the premiere tuning.
func DefaultZoneConfig() ZoneConfig {
	return ZoneConfig{
		HistoryMs:           2000,
		SweepWindowMs:       900,
		SweepMinSteps:       3,
		SweepMinStrength:    0.25,
		SweepCooldownMs:     1600,
		PulseThreshold:      0.35,
		PulseSlopeThreshold: 0.05,
		PulseCooldownMs:     900,
	}
}

// zoneSample is one 4x4 grid snapshot from a camera.
type zoneSample struct {
	timestamp int64
	values    [GridCells]float64
}

// pulseTracker watches one grid cell for a rising-then-falling peak. It owns
// its own cooldown timestamp; per-cell debouncing never touches the shared
// ledger.
type pulseTracker struct {
	initialized bool
	prevValue   float64
	prevSlope   float64
	lastTrigger int64
}

// ZoneDetector watches the 4x4 activity heatmaps from each camera and calls
// out sweeps (directional waves across a row or column) and pulses (sudden
// localized peaks in a single cell). It is about how the crowd leans
// together rather than any one performer.
type ZoneDetector struct {
	cfg       ZoneConfig
	histories map[int][]zoneSample
	trackers  map[int]*[GridCells]pulseTracker
	ledger    *triggerLedger
}

// NewZoneDetector creates a detector with the given tuning.
func NewZoneDetector(cfg ZoneConfig) *ZoneDetector {
	return &ZoneDetector{
		cfg:       cfg,
		histories: make(map[int][]zoneSample),
		trackers:  make(map[int]*[GridCells]pulseTracker),
		ledger:    newTriggerLedger(),
	}
}

// SetConfig replaces the tuning. Histories and cooldowns are preserved.
func (d *ZoneDetector) SetConfig(cfg ZoneConfig) {
	d.cfg = cfg
}

// Config returns the current tuning.
func (d *ZoneDetector) Config() ZoneConfig {
	return d.cfg
}

// UpdateCamera appends one grid snapshot for a camera and runs both the
// sweep and pulse analyses. The caller validates grid dimensions; this
// method assumes a well-formed row-major 4x4.
func (d *ZoneDetector) UpdateCamera(camID int, zones [GridCells]float64, timestampMs int64) []ZoneEvent {
	history := append(d.histories[camID], zoneSample{timestamp: timestampMs, values: zones})

	// Trim the backlog so only the last few seconds of context survive per
	// camera. The sweep logic depends on this sliding window to avoid
	// stale ghosts.
	minTimestamp := timestampMs - d.cfg.HistoryMs
	firstLive := 0
	for firstLive < len(history) && history[firstLive].timestamp < minTimestamp {
		firstLive++
	}
	history = history[firstLive:]
	d.histories[camID] = history

	events := d.detectSweeps(camID, history)
	events = append(events, d.detectPulses(camID, history[len(history)-1])...)
	return events
}

// RemoveCamera clears the camera's history, pulse trackers, and cooldowns.
// Idempotent.
func (d *ZoneDetector) RemoveCamera(camID int) {
	delete(d.histories, camID)
	delete(d.trackers, camID)
	d.ledger.remove(camID)
}

// laneExtent returns the min and max cell value along a row or column of the
// grid snapshot.
func laneExtent(values [GridCells]float64, lane int, isRow bool) (lo, hi float64) {
	idx := func(i int) int {
		if isRow {
			return lane*gridSide + i
		}
		return i*gridSide + lane
	}
	lo, hi = values[idx(0)], values[idx(0)]
	for i := 1; i < gridSide; i++ {
		v := values[idx(i)]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// hottestIndex returns the index of the maximum-valued cell along a lane,
// ties broken toward the lowest index.
func hottestIndex(values [GridCells]float64, lane int, isRow bool) int {
	idx := func(i int) int {
		if isRow {
			return lane*gridSide + i
		}
		return i*gridSide + lane
	}
	best := 0
	bestValue := values[idx(0)]
	for i := 1; i < gridSide; i++ {
		if v := values[idx(i)]; v > bestValue {
			bestValue = v
			best = i
		}
	}
	return best
}

// detectSweeps looks for the hottest cell of each row and column drifting
// monotonically across the retained window. A drifting maximum with enough
// energy contrast reads as a coherent directional wave.
func (d *ZoneDetector) detectSweeps(camID int, history []zoneSample) []ZoneEvent {
	if len(history) < d.cfg.SweepMinSteps {
		return nil
	}

	now := history[len(history)-1].timestamp
	minTimestamp := now - d.cfg.SweepWindowMs

	var rowIndices, colIndices [gridSide][]int
	for _, sample := range history {
		if sample.timestamp < minTimestamp {
			continue
		}
		for lane := 0; lane < gridSide; lane++ {
			rowIndices[lane] = append(rowIndices[lane], hottestIndex(sample.values, lane, true))
			colIndices[lane] = append(colIndices[lane], hottestIndex(sample.values, lane, false))
		}
	}

	latest := history[len(history)-1]
	var events []ZoneEvent

	sweep := func(lane int, indices []int, isRow bool) {
		if len(indices) < d.cfg.SweepMinSteps {
			return
		}

		increasing, decreasing := true, true
		for i := 1; i < len(indices); i++ {
			if indices[i] < indices[i-1] {
				increasing = false
			}
			if indices[i] > indices[i-1] {
				decreasing = false
			}
		}

		delta := indices[len(indices)-1] - indices[0]
		lo, hi := laneExtent(latest.values, lane, isRow)
		laneRange := hi - lo
		if laneRange < d.cfg.SweepMinStrength {
			// Too flat; skip so noise does not fire sweeps.
			return
		}

		var t Type
		switch {
		case increasing && delta >= 2:
			if isRow {
				t = sweepLeftRight[lane]
			} else {
				t = sweepTopBottom[lane]
			}
		case decreasing && delta <= -2:
			if isRow {
				t = sweepRightLeft[lane]
			} else {
				t = sweepBottomTop[lane]
			}
		default:
			return
		}

		key := wholeSubject(t)
		if !d.ledger.canTrigger(camID, key, now, d.cfg.SweepCooldownMs) {
			return
		}
		events = append(events, ZoneEvent{
			CamID:    camID,
			Type:     t,
			Strength: clamp01(laneRange),
			Cell:     -1,
		})
		d.ledger.remember(camID, key, now)
	}

	for lane := 0; lane < gridSide; lane++ {
		sweep(lane, rowIndices[lane], true)
	}
	for lane := 0; lane < gridSide; lane++ {
		sweep(lane, colIndices[lane], false)
	}
	return events
}

// detectPulses updates every cell's peak tracker against the newest
// snapshot. A pulse is a peaked mountain: the cell was rising, is now
// falling, and got high enough to matter.
func (d *ZoneDetector) detectPulses(camID int, sample zoneSample) []ZoneEvent {
	trackers, ok := d.trackers[camID]
	if !ok {
		trackers = &[GridCells]pulseTracker{}
		d.trackers[camID] = trackers
	}

	var events []ZoneEvent
	for cell := 0; cell < GridCells; cell++ {
		tracker := &trackers[cell]
		value := sample.values[cell]
		if !tracker.initialized {
			tracker.initialized = true
			tracker.prevValue = value
			tracker.prevSlope = 0
			tracker.lastTrigger = 0
			continue
		}

		slope := value - tracker.prevValue
		rising := tracker.prevSlope > d.cfg.PulseSlopeThreshold
		falling := slope <= -d.cfg.PulseSlopeThreshold

		if rising && falling && value >= d.cfg.PulseThreshold {
			if sample.timestamp >= tracker.lastTrigger+d.cfg.PulseCooldownMs {
				denom := 1.0 - d.cfg.PulseThreshold
				if denom < 0.01 {
					denom = 0.01
				}
				events = append(events, ZoneEvent{
					CamID:    camID,
					Type:     TypePulseZone,
					Strength: clamp01((value - d.cfg.PulseThreshold) / denom),
					Cell:     cell,
				})
				tracker.lastTrigger = sample.timestamp
			}
		}

		tracker.prevSlope = slope
		tracker.prevValue = value
	}
	return events
}

package gesture

import (
	"gonum.org/v1/gonum/stat"
)

// RoomConfig holds the room-wide detection thresholds.
type RoomConfig struct {
	HistoryMs                int64   // retained motion history
	EruptionLow              float64 // the room must have averaged at or below this
	EruptionHigh             float64 // ...then spike to at least this
	EruptionCooldownMs       int64
	EruptionWindowMs         int64 // width of the "recent" partition
	StillnessMotionThreshold float64
	StillnessDurationMs      int64
	StillnessMinVoices       int
	StillnessCooldownMs      int64
}

// DefaultRoomConfig returns the premiere tuning.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		HistoryMs:                5000,
		EruptionLow:              0.25,
		EruptionHigh:             0.7,
		EruptionCooldownMs:       4500,
		EruptionWindowMs:         1200,
		StillnessMotionThreshold: 0.22,
		StillnessDurationMs:      3000,
		StillnessMinVoices:       3,
		StillnessCooldownMs:      6000,
	}
}

type roomSample struct {
	timestamp    int64
	motion       float64
	activeVoices int
}

// RoomDetector watches the room-wide motion scalar and decides when the
// whole crowd erupts or collectively settles. These events steer master
// scenes, so hysteresis and cooldowns do the heavy lifting here.
type RoomDetector struct {
	cfg            RoomConfig
	history        []roomSample
	lastEruption   int64
	lastStillness  int64
	stillnessStart int64
}

// NewRoomDetector creates a detector with the given tuning.
func NewRoomDetector(cfg RoomConfig) *RoomDetector {
	return &RoomDetector{cfg: cfg}
}

// SetConfig replaces the tuning. History and hysteresis state are preserved.
func (d *RoomDetector) SetConfig(cfg RoomConfig) {
	d.cfg = cfg
}

// Config returns the current tuning.
func (d *RoomDetector) Config() RoomConfig {
	return d.cfg
}

// Update appends one room snapshot and evaluates eruption and stillness.
func (d *RoomDetector) Update(motion float64, activeVoices int, timestampMs int64) []RoomEvent {
	d.history = append(d.history, roomSample{
		timestamp:    timestampMs,
		motion:       motion,
		activeVoices: activeVoices,
	})

	// Keep only the recent history; the windowed averages below depend on
	// older calm sections not drowning out new hype.
	minTimestamp := timestampMs - d.cfg.HistoryMs
	firstLive := 0
	for firstLive < len(d.history) && d.history[firstLive].timestamp < minTimestamp {
		firstLive++
	}
	d.history = d.history[firstLive:]

	// Split the history into "previous" and "recent" partitions so a crowd
	// ramping up reads against its own immediate past.
	recentStart := timestampMs - d.cfg.EruptionWindowMs
	var previous, recent []float64
	for _, s := range d.history {
		if s.timestamp < recentStart {
			previous = append(previous, s.motion)
		} else {
			recent = append(recent, s.motion)
		}
	}

	previousAvg, recentAvg := 0.0, 0.0
	if len(previous) > 0 {
		previousAvg = stat.Mean(previous, nil)
	}
	if len(recent) > 0 {
		recentAvg = stat.Mean(recent, nil)
	}

	var events []RoomEvent

	// Eruption is hysteretic: the crowd must have been calm, then cross the
	// high threshold. A single rowdy stretch cannot spam the scene.
	if len(recent) > 0 && len(previous) > 0 &&
		recentAvg >= d.cfg.EruptionHigh && previousAvg <= d.cfg.EruptionLow {
		if timestampMs >= d.lastEruption+d.cfg.EruptionCooldownMs {
			denom := 1.0 - d.cfg.EruptionHigh
			if denom < 0.01 {
				denom = 0.01
			}
			events = append(events, RoomEvent{
				Type:     TypeEruption,
				Strength: clamp01((recentAvg - d.cfg.EruptionHigh) / denom),
			})
			d.lastEruption = timestampMs
		}
	}

	// Stillness tracks how long a well-attended room stays quiet. Solo
	// performers never trigger it.
	if motion <= d.cfg.StillnessMotionThreshold && activeVoices >= d.cfg.StillnessMinVoices {
		if d.stillnessStart == 0 {
			d.stillnessStart = timestampMs
		}
	} else {
		d.stillnessStart = 0
	}

	if d.stillnessStart > 0 && timestampMs-d.stillnessStart >= d.cfg.StillnessDurationMs {
		if timestampMs >= d.lastStillness+d.cfg.StillnessCooldownMs {
			denom := d.cfg.StillnessMotionThreshold
			if denom < 0.01 {
				denom = 0.01
			}
			motionStrength := clamp01(1.0 - recentAvg/denom)
			minVoices := float64(d.cfg.StillnessMinVoices)
			if minVoices < 1 {
				minVoices = 1
			}
			voiceStrength := clamp01(float64(activeVoices-d.cfg.StillnessMinVoices) / minVoices)
			events = append(events, RoomEvent{
				Type:     TypeStillness,
				Strength: clamp01(0.6*motionStrength + 0.4*voiceStrength),
			})
			d.lastStillness = timestampMs
			// Re-arm from now so a sustained quiet room fires again one
			// full duration later instead of every tick.
			d.stillnessStart = timestampMs
		}
	}

	return events
}

// Reset clears all history and hysteresis state.
func (d *RoomDetector) Reset() {
	d.history = nil
	d.lastEruption = 0
	d.lastStillness = 0
	d.stillnessStart = 0
}

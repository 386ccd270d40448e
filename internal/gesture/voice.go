package gesture

import (
	"gonum.org/v1/gonum/stat"
)

// VoiceConfig holds the per-performer detection thresholds. Positions live
// in a normalized space where the y axis points down, so a raise is a
// negative y delta.
type VoiceConfig struct {
	RaiseDeltaY          float64 // minimum upward travel for a raise
	LowerDeltaY          float64 // minimum downward travel for a lower
	SwipeDeltaX          float64 // minimum horizontal travel for a swipe
	SwipeOrthogonality   float64 // how dominant x travel must be over y
	RaiseHorizontalLimit float64 // max horizontal span during raise/lower
	SwipeVerticalLimit   float64 // max vertical drift during a swipe
	ShakeRadius          float64 // max bounding radius for a shake
	ShakeMinSignFlips    int     // direction reversals needed for a shake
	ShakeMinMotion       float64 // minimum average motion for a shake
	BurstSpeedThreshold  float64 // instantaneous speed that starts a burst
	BurstMaxSpeed        float64 // speed mapped to burst strength 1.0
	HoldMotionThreshold  float64 // motion ceiling that counts as holding
	HoldDurationMs       int64   // how long stillness must last to fire hold
	MinWindowMs          int64   // shortest analysis window worth evaluating
	MaxWindowMs          int64   // longest lookback into the sample window
	GestureCooldownMs    int64   // cooldown for raise/lower/swipe/shake
	BurstCooldownMs      int64
	HoldCooldownMs       int64
}

// DefaultVoiceConfig returns the tuning used in the installation premiere.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		RaiseDeltaY:          0.18,
		LowerDeltaY:          0.18,
		SwipeDeltaX:          0.25,
		SwipeOrthogonality:   1.6,
		RaiseHorizontalLimit: 0.12,
		SwipeVerticalLimit:   0.18,
		ShakeRadius:          0.08,
		ShakeMinSignFlips:    4,
		ShakeMinMotion:       0.08,
		BurstSpeedThreshold:  1.5,
		BurstMaxSpeed:        3.5,
		HoldMotionThreshold:  0.05,
		HoldDurationMs:       1200,
		MinWindowMs:          400,
		MaxWindowMs:          1200,
		GestureCooldownMs:    900,
		BurstCooldownMs:      600,
		HoldCooldownMs:       1800,
	}
}

// VoiceDetector names what a single performer just did from their recent
// sample window. Every rule is evaluated independently each call; several
// gestures may fire in one tick as long as their cooldowns allow it.
type VoiceDetector struct {
	cfg    VoiceConfig
	ledger *triggerLedger
}

// NewVoiceDetector creates a detector with the given tuning.
func NewVoiceDetector(cfg VoiceConfig) *VoiceDetector {
	return &VoiceDetector{
		cfg:    cfg,
		ledger: newTriggerLedger(),
	}
}

// SetConfig replaces the tuning. Cooldown state is preserved.
func (d *VoiceDetector) SetConfig(cfg VoiceConfig) {
	d.cfg = cfg
}

// Config returns the current tuning.
func (d *VoiceDetector) Config() VoiceConfig {
	return d.cfg
}

// voiceFeatures aggregates the windowed kinematics every rule reads.
type voiceFeatures struct {
	deltaX, deltaY           float64
	horizontalSpan, vertSpan float64
	avgMotion                float64
	maxSpeed                 float64
	signFlips                int
}

// UpdateVoice evaluates the gesture rules over the voice's sample window and
// returns whatever fired. Windows shorter than two samples or thinner than
// MinWindowMs are an expected steady state for new voices and yield nothing.
func (d *VoiceDetector) UpdateVoice(voiceID int, samples []Sample) []VoiceEvent {
	if len(samples) < 2 {
		return nil
	}

	latest := samples[len(samples)-1]
	now := latest.Timestamp
	minTimestamp := now - d.cfg.MaxWindowMs

	// Linear scan for the first sample inside the max window; the buffers
	// are tiny (under a second of frames) so nothing cleverer is needed.
	startIdx := 0
	for i, s := range samples {
		if s.Timestamp >= minTimestamp {
			startIdx = i
			break
		}
	}

	start := samples[startIdx]
	if now-start.Timestamp < d.cfg.MinWindowMs {
		return nil
	}

	f := d.extractFeatures(samples, startIdx)

	var events []VoiceEvent
	emit := func(t Type, cooldownMs int64, strength, extra float64) {
		key := wholeSubject(t)
		if !d.ledger.canTrigger(voiceID, key, now, cooldownMs) {
			return
		}
		events = append(events, VoiceEvent{
			VoiceID:  voiceID,
			Type:     t,
			Strength: clamp01(strength),
			Extra:    extra,
		})
		d.ledger.remember(voiceID, key, now)
	}

	// Raise: committed upward travel with a narrow horizontal footprint.
	if f.deltaY <= -d.cfg.RaiseDeltaY && f.horizontalSpan <= d.cfg.RaiseHorizontalLimit {
		emit(TypeRaise, d.cfg.GestureCooldownMs, -f.deltaY/d.cfg.RaiseDeltaY, latest.Position.Y)
	}

	// Lower: mirror image of raise.
	if f.deltaY >= d.cfg.LowerDeltaY && f.horizontalSpan <= d.cfg.RaiseHorizontalLimit {
		emit(TypeLower, d.cfg.GestureCooldownMs, f.deltaY/d.cfg.LowerDeltaY, latest.Position.Y)
	}

	// Swipe: horizontal travel that clearly dominates any vertical drift.
	absDeltaX, absDeltaY := abs(f.deltaX), abs(f.deltaY)
	if absDeltaX >= d.cfg.SwipeDeltaX && absDeltaX > absDeltaY*d.cfg.SwipeOrthogonality && absDeltaY <= d.cfg.SwipeVerticalLimit {
		t := TypeSwipeRight
		if f.deltaX < 0 {
			t = TypeSwipeLeft
		}
		emit(t, d.cfg.GestureCooldownMs, absDeltaX/d.cfg.SwipeDeltaX, 0)
	}

	// Shake: small physical footprint with lots of directional whiplash.
	radius := f.horizontalSpan
	if f.vertSpan > radius {
		radius = f.vertSpan
	}
	if radius <= d.cfg.ShakeRadius && f.avgMotion >= d.cfg.ShakeMinMotion && f.signFlips >= d.cfg.ShakeMinSignFlips {
		emit(TypeShake, d.cfg.GestureCooldownMs, f.avgMotion/(d.cfg.ShakeMinMotion*2), 0)
	}

	// Burst: a sudden velocity spike regardless of direction.
	if f.maxSpeed >= d.cfg.BurstSpeedThreshold {
		denom := d.cfg.BurstMaxSpeed - d.cfg.BurstSpeedThreshold
		if denom < 0.01 {
			denom = 0.01
		}
		emit(TypeBurst, d.cfg.BurstCooldownMs, (f.maxSpeed-d.cfg.BurstSpeedThreshold)/denom, 0)
	}

	// Hold: stillness sustained past the configured patience. Scan backward
	// for the last sample where motion exceeded the threshold; the hold
	// started right there.
	holdStart := now
	for i := len(samples) - 1; i >= startIdx; i-- {
		if samples[i].Motion > d.cfg.HoldMotionThreshold {
			holdStart = samples[i].Timestamp
			break
		}
		if i == startIdx {
			holdStart = start.Timestamp
		}
	}
	holdDuration := now - holdStart
	if f.avgMotion <= d.cfg.HoldMotionThreshold && holdDuration >= d.cfg.HoldDurationMs {
		denom := d.cfg.HoldMotionThreshold
		if denom < 0.01 {
			denom = 0.01
		}
		emit(TypeHold, d.cfg.HoldCooldownMs,
			1.0-f.avgMotion/denom,
			clamp01(float64(holdDuration)/float64(d.cfg.HoldDurationMs)))
	}

	return events
}

// extractFeatures walks the retained sub-window once, aggregating extrema,
// motion, peak speed, and direction reversals.
func (d *VoiceDetector) extractFeatures(samples []Sample, startIdx int) voiceFeatures {
	start := samples[startIdx]
	latest := samples[len(samples)-1]

	minX, maxX := start.Position.X, start.Position.X
	minY, maxY := start.Position.Y, start.Position.Y
	maxSpeed := 0.0
	motions := make([]float64, 0, len(samples)-startIdx)

	// Microscopic jitters do not count toward shake sign flips, so there is
	// a soft dead-zone before a direction change registers.
	deadZone := d.cfg.ShakeMinMotion * 0.25
	signFlips := 0
	var prevSignX, prevSignY float64
	hasPrevX, hasPrevY := false, false

	for i := startIdx; i < len(samples); i++ {
		s := samples[i]
		if s.Position.X < minX {
			minX = s.Position.X
		}
		if s.Position.X > maxX {
			maxX = s.Position.X
		}
		if s.Position.Y < minY {
			minY = s.Position.Y
		}
		if s.Position.Y > maxY {
			maxY = s.Position.Y
		}
		motions = append(motions, s.Motion)
		if speed := s.Velocity.Norm(); speed > maxSpeed {
			maxSpeed = speed
		}

		if i > startIdx {
			if abs(s.Velocity.X) > deadZone {
				sign := signOf(s.Velocity.X)
				if hasPrevX && sign != prevSignX {
					signFlips++
				}
				prevSignX = sign
				hasPrevX = true
			}
			if abs(s.Velocity.Y) > deadZone {
				sign := signOf(s.Velocity.Y)
				if hasPrevY && sign != prevSignY {
					signFlips++
				}
				prevSignY = sign
				hasPrevY = true
			}
		}
	}

	displacement := latest.Position.Sub(start.Position)
	return voiceFeatures{
		deltaX:         displacement.X,
		deltaY:         displacement.Y,
		horizontalSpan: maxX - minX,
		vertSpan:       maxY - minY,
		avgMotion:      stat.Mean(motions, nil),
		maxSpeed:       maxSpeed,
		signFlips:      signFlips,
	}
}

// RemoveVoice drops the voice's cooldown state so a returning performer
// starts fresh. Idempotent.
func (d *VoiceDetector) RemoveVoice(voiceID int) {
	d.ledger.remove(voiceID)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func signOf(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return -1
}

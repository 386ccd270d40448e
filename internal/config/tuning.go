package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crowd-organ/gesture.host/internal/gesture"
)

// DefaultConfigPath is the canonical tuning file a touring rig drops next to
// the binary. Fields omitted from the JSON keep their documented defaults,
// so partial configs are safe.
const DefaultConfigPath = "gesture_tuning.json"

// TuningConfig is the full tuning surface of the gesture host. The schema
// matches the /api/params endpoint so the same JSON works for both startup
// configuration and live updates. All fields are pointers; nil means "use
// the default".
type TuningConfig struct {
	// History / engine params
	HistoryCapacity *int   `json:"history_capacity,omitempty"`
	VoiceStaleMs    *int64 `json:"voice_stale_ms,omitempty"`

	// Voice gesture params
	RaiseDeltaY          *float64 `json:"raise_delta_y,omitempty"`
	LowerDeltaY          *float64 `json:"lower_delta_y,omitempty"`
	SwipeDeltaX          *float64 `json:"swipe_delta_x,omitempty"`
	SwipeOrthogonality   *float64 `json:"swipe_orthogonality,omitempty"`
	RaiseHorizontalLimit *float64 `json:"raise_horizontal_limit,omitempty"`
	SwipeVerticalLimit   *float64 `json:"swipe_vertical_limit,omitempty"`
	ShakeRadius          *float64 `json:"shake_radius,omitempty"`
	ShakeMinSignFlips    *int     `json:"shake_min_sign_flips,omitempty"`
	ShakeMinMotion       *float64 `json:"shake_min_motion,omitempty"`
	BurstSpeedThreshold  *float64 `json:"burst_speed_threshold,omitempty"`
	BurstMaxSpeed        *float64 `json:"burst_max_speed,omitempty"`
	HoldMotionThreshold  *float64 `json:"hold_motion_threshold,omitempty"`
	HoldDurationMs       *int64   `json:"hold_duration_ms,omitempty"`
	MinWindowMs          *int64   `json:"min_window_ms,omitempty"`
	MaxWindowMs          *int64   `json:"max_window_ms,omitempty"`
	GestureCooldownMs    *int64   `json:"gesture_cooldown_ms,omitempty"`
	BurstCooldownMs      *int64   `json:"burst_cooldown_ms,omitempty"`
	HoldCooldownMs       *int64   `json:"hold_cooldown_ms,omitempty"`

	// Zone gesture params
	ZoneHistoryMs       *int64   `json:"zone_history_ms,omitempty"`
	SweepWindowMs       *int64   `json:"sweep_window_ms,omitempty"`
	SweepMinSteps       *int     `json:"sweep_min_steps,omitempty"`
	SweepMinStrength    *float64 `json:"sweep_min_strength,omitempty"`
	SweepCooldownMs     *int64   `json:"sweep_cooldown_ms,omitempty"`
	PulseThreshold      *float64 `json:"pulse_threshold,omitempty"`
	PulseSlopeThreshold *float64 `json:"pulse_slope_threshold,omitempty"`
	PulseCooldownMs     *int64   `json:"pulse_cooldown_ms,omitempty"`

	// Room gesture params
	RoomHistoryMs            *int64   `json:"room_history_ms,omitempty"`
	EruptionLow              *float64 `json:"eruption_low,omitempty"`
	EruptionHigh             *float64 `json:"eruption_high,omitempty"`
	EruptionCooldownMs       *int64   `json:"eruption_cooldown_ms,omitempty"`
	EruptionWindowMs         *int64   `json:"eruption_window_ms,omitempty"`
	StillnessMotionThreshold *float64 `json:"stillness_motion_threshold,omitempty"`
	StillnessDurationMs      *int64   `json:"stillness_duration_ms,omitempty"`
	StillnessMinVoices       *int     `json:"stillness_min_voices,omitempty"`
	StillnessCooldownMs      *int64   `json:"stillness_cooldown_ms,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are usable.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"eruption_low":               c.EruptionLow,
		"eruption_high":              c.EruptionHigh,
		"stillness_motion_threshold": c.StillnessMotionThreshold,
		"pulse_threshold":            c.PulseThreshold,
		"sweep_min_strength":         c.SweepMinStrength,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	if c.EruptionLow != nil && c.EruptionHigh != nil && *c.EruptionLow >= *c.EruptionHigh {
		return fmt.Errorf("eruption_low (%f) must be below eruption_high (%f)", *c.EruptionLow, *c.EruptionHigh)
	}

	if c.HistoryCapacity != nil && *c.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity must be at least 1, got %d", *c.HistoryCapacity)
	}

	if c.MinWindowMs != nil && c.MaxWindowMs != nil && *c.MinWindowMs > *c.MaxWindowMs {
		return fmt.Errorf("min_window_ms (%d) must not exceed max_window_ms (%d)", *c.MinWindowMs, *c.MaxWindowMs)
	}

	for name, v := range map[string]*int64{
		"voice_stale_ms":        c.VoiceStaleMs,
		"hold_duration_ms":      c.HoldDurationMs,
		"min_window_ms":         c.MinWindowMs,
		"max_window_ms":         c.MaxWindowMs,
		"zone_history_ms":       c.ZoneHistoryMs,
		"sweep_window_ms":       c.SweepWindowMs,
		"room_history_ms":       c.RoomHistoryMs,
		"eruption_window_ms":    c.EruptionWindowMs,
		"stillness_duration_ms": c.StillnessDurationMs,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}

	return nil
}

// Overlay copies every set field of other onto c. Used by the params API to
// apply partial updates on top of the running configuration.
func (c *TuningConfig) Overlay(other *TuningConfig) {
	if other == nil {
		return
	}
	overlayInt := func(dst **int, src *int) {
		if src != nil {
			*dst = src
		}
	}
	overlayInt64 := func(dst **int64, src *int64) {
		if src != nil {
			*dst = src
		}
	}
	overlayFloat := func(dst **float64, src *float64) {
		if src != nil {
			*dst = src
		}
	}

	overlayInt(&c.HistoryCapacity, other.HistoryCapacity)
	overlayInt64(&c.VoiceStaleMs, other.VoiceStaleMs)

	overlayFloat(&c.RaiseDeltaY, other.RaiseDeltaY)
	overlayFloat(&c.LowerDeltaY, other.LowerDeltaY)
	overlayFloat(&c.SwipeDeltaX, other.SwipeDeltaX)
	overlayFloat(&c.SwipeOrthogonality, other.SwipeOrthogonality)
	overlayFloat(&c.RaiseHorizontalLimit, other.RaiseHorizontalLimit)
	overlayFloat(&c.SwipeVerticalLimit, other.SwipeVerticalLimit)
	overlayFloat(&c.ShakeRadius, other.ShakeRadius)
	overlayInt(&c.ShakeMinSignFlips, other.ShakeMinSignFlips)
	overlayFloat(&c.ShakeMinMotion, other.ShakeMinMotion)
	overlayFloat(&c.BurstSpeedThreshold, other.BurstSpeedThreshold)
	overlayFloat(&c.BurstMaxSpeed, other.BurstMaxSpeed)
	overlayFloat(&c.HoldMotionThreshold, other.HoldMotionThreshold)
	overlayInt64(&c.HoldDurationMs, other.HoldDurationMs)
	overlayInt64(&c.MinWindowMs, other.MinWindowMs)
	overlayInt64(&c.MaxWindowMs, other.MaxWindowMs)
	overlayInt64(&c.GestureCooldownMs, other.GestureCooldownMs)
	overlayInt64(&c.BurstCooldownMs, other.BurstCooldownMs)
	overlayInt64(&c.HoldCooldownMs, other.HoldCooldownMs)

	overlayInt64(&c.ZoneHistoryMs, other.ZoneHistoryMs)
	overlayInt64(&c.SweepWindowMs, other.SweepWindowMs)
	overlayInt(&c.SweepMinSteps, other.SweepMinSteps)
	overlayFloat(&c.SweepMinStrength, other.SweepMinStrength)
	overlayInt64(&c.SweepCooldownMs, other.SweepCooldownMs)
	overlayFloat(&c.PulseThreshold, other.PulseThreshold)
	overlayFloat(&c.PulseSlopeThreshold, other.PulseSlopeThreshold)
	overlayInt64(&c.PulseCooldownMs, other.PulseCooldownMs)

	overlayInt64(&c.RoomHistoryMs, other.RoomHistoryMs)
	overlayFloat(&c.EruptionLow, other.EruptionLow)
	overlayFloat(&c.EruptionHigh, other.EruptionHigh)
	overlayInt64(&c.EruptionCooldownMs, other.EruptionCooldownMs)
	overlayInt64(&c.EruptionWindowMs, other.EruptionWindowMs)
	overlayFloat(&c.StillnessMotionThreshold, other.StillnessMotionThreshold)
	overlayInt64(&c.StillnessDurationMs, other.StillnessDurationMs)
	overlayInt(&c.StillnessMinVoices, other.StillnessMinVoices)
	overlayInt64(&c.StillnessCooldownMs, other.StillnessCooldownMs)
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func int64Or(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetHistoryCapacity returns the per-voice sample buffer length.
func (c *TuningConfig) GetHistoryCapacity() int {
	return intOr(c.HistoryCapacity, gesture.DefaultHistoryCapacity)
}

// GetVoiceStaleMs returns how long a silent voice survives before pruning.
func (c *TuningConfig) GetVoiceStaleMs() int64 {
	return int64Or(c.VoiceStaleMs, 2500)
}

// VoiceConfig resolves the voice-detector tuning, filling unset fields with
// defaults.
func (c *TuningConfig) VoiceConfig() gesture.VoiceConfig {
	def := gesture.DefaultVoiceConfig()
	return gesture.VoiceConfig{
		RaiseDeltaY:          floatOr(c.RaiseDeltaY, def.RaiseDeltaY),
		LowerDeltaY:          floatOr(c.LowerDeltaY, def.LowerDeltaY),
		SwipeDeltaX:          floatOr(c.SwipeDeltaX, def.SwipeDeltaX),
		SwipeOrthogonality:   floatOr(c.SwipeOrthogonality, def.SwipeOrthogonality),
		RaiseHorizontalLimit: floatOr(c.RaiseHorizontalLimit, def.RaiseHorizontalLimit),
		SwipeVerticalLimit:   floatOr(c.SwipeVerticalLimit, def.SwipeVerticalLimit),
		ShakeRadius:          floatOr(c.ShakeRadius, def.ShakeRadius),
		ShakeMinSignFlips:    intOr(c.ShakeMinSignFlips, def.ShakeMinSignFlips),
		ShakeMinMotion:       floatOr(c.ShakeMinMotion, def.ShakeMinMotion),
		BurstSpeedThreshold:  floatOr(c.BurstSpeedThreshold, def.BurstSpeedThreshold),
		BurstMaxSpeed:        floatOr(c.BurstMaxSpeed, def.BurstMaxSpeed),
		HoldMotionThreshold:  floatOr(c.HoldMotionThreshold, def.HoldMotionThreshold),
		HoldDurationMs:       int64Or(c.HoldDurationMs, def.HoldDurationMs),
		MinWindowMs:          int64Or(c.MinWindowMs, def.MinWindowMs),
		MaxWindowMs:          int64Or(c.MaxWindowMs, def.MaxWindowMs),
		GestureCooldownMs:    int64Or(c.GestureCooldownMs, def.GestureCooldownMs),
		BurstCooldownMs:      int64Or(c.BurstCooldownMs, def.BurstCooldownMs),
		HoldCooldownMs:       int64Or(c.HoldCooldownMs, def.HoldCooldownMs),
	}
}

// ZoneConfig resolves the zone-detector tuning.
func (c *TuningConfig) ZoneConfig() gesture.ZoneConfig {
	def := gesture.DefaultZoneConfig()
	return gesture.ZoneConfig{
		HistoryMs:           int64Or(c.ZoneHistoryMs, def.HistoryMs),
		SweepWindowMs:       int64Or(c.SweepWindowMs, def.SweepWindowMs),
		SweepMinSteps:       intOr(c.SweepMinSteps, def.SweepMinSteps),
		SweepMinStrength:    floatOr(c.SweepMinStrength, def.SweepMinStrength),
		SweepCooldownMs:     int64Or(c.SweepCooldownMs, def.SweepCooldownMs),
		PulseThreshold:      floatOr(c.PulseThreshold, def.PulseThreshold),
		PulseSlopeThreshold: floatOr(c.PulseSlopeThreshold, def.PulseSlopeThreshold),
		PulseCooldownMs:     int64Or(c.PulseCooldownMs, def.PulseCooldownMs),
	}
}

// RoomConfig resolves the room-detector tuning.
func (c *TuningConfig) RoomConfig() gesture.RoomConfig {
	def := gesture.DefaultRoomConfig()
	return gesture.RoomConfig{
		HistoryMs:                int64Or(c.RoomHistoryMs, def.HistoryMs),
		EruptionLow:              floatOr(c.EruptionLow, def.EruptionLow),
		EruptionHigh:             floatOr(c.EruptionHigh, def.EruptionHigh),
		EruptionCooldownMs:       int64Or(c.EruptionCooldownMs, def.EruptionCooldownMs),
		EruptionWindowMs:         int64Or(c.EruptionWindowMs, def.EruptionWindowMs),
		StillnessMotionThreshold: floatOr(c.StillnessMotionThreshold, def.StillnessMotionThreshold),
		StillnessDurationMs:      int64Or(c.StillnessDurationMs, def.StillnessDurationMs),
		StillnessMinVoices:       intOr(c.StillnessMinVoices, def.StillnessMinVoices),
		StillnessCooldownMs:      int64Or(c.StillnessCooldownMs, def.StillnessCooldownMs),
	}
}

// Resolved returns the full tuning with every default applied, for the
// params API to report the actual running values.
func (c *TuningConfig) Resolved() map[string]any {
	voice := c.VoiceConfig()
	zone := c.ZoneConfig()
	room := c.RoomConfig()
	return map[string]any{
		"history_capacity": c.GetHistoryCapacity(),
		"voice_stale_ms":   c.GetVoiceStaleMs(),

		"raise_delta_y":          voice.RaiseDeltaY,
		"lower_delta_y":          voice.LowerDeltaY,
		"swipe_delta_x":          voice.SwipeDeltaX,
		"swipe_orthogonality":    voice.SwipeOrthogonality,
		"raise_horizontal_limit": voice.RaiseHorizontalLimit,
		"swipe_vertical_limit":   voice.SwipeVerticalLimit,
		"shake_radius":           voice.ShakeRadius,
		"shake_min_sign_flips":   voice.ShakeMinSignFlips,
		"shake_min_motion":       voice.ShakeMinMotion,
		"burst_speed_threshold":  voice.BurstSpeedThreshold,
		"burst_max_speed":        voice.BurstMaxSpeed,
		"hold_motion_threshold":  voice.HoldMotionThreshold,
		"hold_duration_ms":       voice.HoldDurationMs,
		"min_window_ms":          voice.MinWindowMs,
		"max_window_ms":          voice.MaxWindowMs,
		"gesture_cooldown_ms":    voice.GestureCooldownMs,
		"burst_cooldown_ms":      voice.BurstCooldownMs,
		"hold_cooldown_ms":       voice.HoldCooldownMs,

		"zone_history_ms":       zone.HistoryMs,
		"sweep_window_ms":       zone.SweepWindowMs,
		"sweep_min_steps":       zone.SweepMinSteps,
		"sweep_min_strength":    zone.SweepMinStrength,
		"sweep_cooldown_ms":     zone.SweepCooldownMs,
		"pulse_threshold":       zone.PulseThreshold,
		"pulse_slope_threshold": zone.PulseSlopeThreshold,
		"pulse_cooldown_ms":     zone.PulseCooldownMs,

		"room_history_ms":            room.HistoryMs,
		"eruption_low":               room.EruptionLow,
		"eruption_high":              room.EruptionHigh,
		"eruption_cooldown_ms":       room.EruptionCooldownMs,
		"eruption_window_ms":         room.EruptionWindowMs,
		"stillness_motion_threshold": room.StillnessMotionThreshold,
		"stillness_duration_ms":      room.StillnessDurationMs,
		"stillness_min_voices":       room.StillnessMinVoices,
		"stillness_cooldown_ms":      room.StillnessCooldownMs,
	}
}

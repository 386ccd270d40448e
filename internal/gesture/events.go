package gesture

// Type names one entry in the fixed gesture vocabulary. Downstream show
// control switches on these strings, so they are stable wire values.
type Type string

// Voice gesture types.
const (
	TypeRaise      Type = "raise"
	TypeLower      Type = "lower"
	TypeSwipeLeft  Type = "swipe_left"
	TypeSwipeRight Type = "swipe_right"
	TypeShake      Type = "shake"
	TypeBurst      Type = "burst"
	TypeHold       Type = "hold"
)

// Zone gesture types. Sweeps are named per lane; the lookup tables below map
// a row or column index to its lane label so no names are built at runtime.
const (
	TypePulseZone Type = "pulse_zone"
)

var (
	sweepLeftRight = [4]Type{"sweep_lr_top", "sweep_lr_upper_mid", "sweep_lr_lower_mid", "sweep_lr_bottom"}
	sweepRightLeft = [4]Type{"sweep_rl_top", "sweep_rl_upper_mid", "sweep_rl_lower_mid", "sweep_rl_bottom"}
	sweepTopBottom = [4]Type{"sweep_tb_left", "sweep_tb_mid_left", "sweep_tb_mid_right", "sweep_tb_right"}
	sweepBottomTop = [4]Type{"sweep_bt_left", "sweep_bt_mid_left", "sweep_bt_mid_right", "sweep_bt_right"}
)

// Room gesture types.
const (
	TypeEruption  Type = "eruption"
	TypeStillness Type = "stillness"
)

// Kind tags which detector family produced an event.
type Kind string

const (
	KindVoice Kind = "voice"
	KindZone  Kind = "zone"
	KindRoom  Kind = "room"
)

// VoiceEvent reports a gesture performed by a single tracked performer.
type VoiceEvent struct {
	VoiceID  int
	Type     Type
	Strength float64
	// Extra carries a rule-specific payload: final vertical position for
	// raise/lower, hold-duration fraction for hold, zero otherwise.
	Extra float64
}

// ZoneEvent reports crowd-scale activity seen by one camera's 4x4 grid.
type ZoneEvent struct {
	CamID    int
	Type     Type
	Strength float64
	// Cell is the grid index for pulse events, -1 for sweeps.
	Cell int
}

// RoomEvent reports a room-wide gesture with no single subject.
type RoomEvent struct {
	Type     Type
	Strength float64
}

// Event is the flattened boundary form handed to sinks (journal, MQTT,
// logs). Detectors never build these; the engine stamps ID and timestamp
// when it fans an event out.
type Event struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"kind"`
	Subject    int     `json:"subject"` // voice or camera id, -1 for room
	Type       Type    `json:"type"`
	Strength   float64 `json:"strength"`
	Extra      float64 `json:"extra,omitempty"`
	Cell       int     `json:"cell"` // -1 unless cell-scoped; 0 is a real grid index
	UnixMillis int64   `json:"unix_millis"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package engine routes incoming motion telemetry into the gesture
// detectors each tick and fans the resulting events out to sinks. It owns
// all mutable state, so the detectors themselves stay single-threaded.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowd-organ/gesture.host/internal/config"
	"github.com/crowd-organ/gesture.host/internal/gesture"
)

// EventSink receives emitted gesture events in order. Delivery is
// best-effort; sinks must not block the tick loop.
type EventSink interface {
	Emit(event gesture.Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(event gesture.Event)

// Emit calls f(event).
func (f SinkFunc) Emit(event gesture.Event) { f(event) }

// VoiceState is the live telemetry for one tracked performer.
type VoiceState struct {
	Position   gesture.Vec3
	Size       float64
	Motion     float64
	Energy     float64
	LastUpdate int64
}

// Snapshot is a point-in-time view of the engine for diagnostics.
type Snapshot struct {
	Voices          int     `json:"voices"`
	RoomMotion      float64 `json:"room_motion"`
	HistoryCapacity int     `json:"history_capacity"`
	LastTickMs      int64   `json:"last_tick_ms"`
	LastZoneMs      int64   `json:"last_zone_ms"`
}

// Engine wires the sample history and the three detectors together.
type Engine struct {
	mu sync.Mutex

	clock func() int64

	history  *gesture.History
	voiceDet *gesture.VoiceDetector
	zoneDet  *gesture.ZoneDetector
	roomDet  *gesture.RoomDetector

	voices  map[int]*VoiceState
	staleMs int64

	lastRoomMotion   float64
	lastRoomMotionAt int64
	lastZoneUpdate   int64
	lastTick         int64

	sinks []EventSink
}

// New creates an engine from the given tuning. A nil config uses defaults.
func New(cfg *config.TuningConfig) *Engine {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	start := time.Now()
	return &Engine{
		clock:    func() int64 { return time.Since(start).Milliseconds() },
		history:  gesture.NewHistory(cfg.GetHistoryCapacity()),
		voiceDet: gesture.NewVoiceDetector(cfg.VoiceConfig()),
		zoneDet:  gesture.NewZoneDetector(cfg.ZoneConfig()),
		roomDet:  gesture.NewRoomDetector(cfg.RoomConfig()),
		voices:   make(map[int]*VoiceState),
		staleMs:  cfg.GetVoiceStaleMs(),
	}
}

// SetClock replaces the millisecond clock. Intended for tests that need to
// drive deterministic timestamps.
func (e *Engine) SetClock(clock func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
}

// AddSink registers a sink for emitted events.
func (e *Engine) AddSink(sink EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// ApplyTuning updates all detector configs and the history capacity live.
// Cooldown and history state survive the update.
func (e *Engine) ApplyTuning(cfg *config.TuningConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.SetCapacity(cfg.GetHistoryCapacity())
	e.voiceDet.SetConfig(cfg.VoiceConfig())
	e.zoneDet.SetConfig(cfg.ZoneConfig())
	e.roomDet.SetConfig(cfg.RoomConfig())
	e.staleMs = cfg.GetVoiceStaleMs()
}

// HandleVoiceState ingests one performer telemetry frame. Size is carried
// for diagnostics but plays no part in detection.
func (e *Engine) HandleVoiceState(voiceID int, position gesture.Vec3, size, motion, energy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()

	state, ok := e.voices[voiceID]
	if !ok {
		state = &VoiceState{}
		e.voices[voiceID] = state
	}
	state.Position = position
	state.Size = size
	state.Motion = motion
	state.Energy = energy
	state.LastUpdate = now

	e.history.AddSample(voiceID, position, motion, energy, now)
}

// HandleVoiceDisconnect removes a voice and all of its detector state so a
// returning performer starts fresh. Idempotent.
func (e *Engine) HandleVoiceDisconnect(voiceID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeVoiceLocked(voiceID)
}

func (e *Engine) removeVoiceLocked(voiceID int) {
	delete(e.voices, voiceID)
	e.history.RemoveVoice(voiceID)
	e.voiceDet.RemoveVoice(voiceID)
}

// HandleCameraZones ingests one camera grid snapshot and returns the zone
// events it produced. Only 4x4 grids are accepted; anything else is
// silently ignored, matching the transport contract that the caller
// validates shapes.
func (e *Engine) HandleCameraZones(camID, rows, cols int, values []float64) []gesture.Event {
	if rows != 4 || cols != 4 || len(values) != gesture.GridCells {
		return nil
	}
	var zones [gesture.GridCells]float64
	copy(zones[:], values)

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock()
	e.lastZoneUpdate = now

	zoneEvents := e.zoneDet.UpdateCamera(camID, zones, now)
	events := make([]gesture.Event, 0, len(zoneEvents))
	for _, ze := range zoneEvents {
		events = append(events, gesture.Event{
			ID:         uuid.NewString(),
			Kind:       gesture.KindZone,
			Subject:    ze.CamID,
			Type:       ze.Type,
			Strength:   ze.Strength,
			Cell:       ze.Cell,
			UnixMillis: now,
		})
	}
	e.fanOutLocked(events)
	return events
}

// RemoveCamera clears a camera's detector state. Idempotent.
func (e *Engine) RemoveCamera(camID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoneDet.RemoveCamera(camID)
}

// HandleRoomMotion records the latest room-wide motion scalar; the room
// detector consumes it on the next tick.
func (e *Engine) HandleRoomMotion(motion float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRoomMotion = motion
	e.lastRoomMotionAt = e.clock()
}

// Tick runs one processing pass: prune stale voices, evaluate every voice
// window, then the room detector. Returns the events emitted this tick in
// order.
func (e *Engine) Tick() []gesture.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	e.lastTick = now

	// Voices that went silent left the stage; clearing them resets their
	// cooldowns for the next entrance.
	for voiceID, state := range e.voices {
		if now > state.LastUpdate && now-state.LastUpdate > e.staleMs {
			e.removeVoiceLocked(voiceID)
		}
	}

	// Deterministic per-tick ordering: voices ascending, then the room.
	voiceIDs := make([]int, 0, len(e.voices))
	for voiceID := range e.voices {
		voiceIDs = append(voiceIDs, voiceID)
	}
	sort.Ints(voiceIDs)

	var events []gesture.Event
	for _, voiceID := range voiceIDs {
		window, ok := e.history.Voice(voiceID)
		if !ok || len(window) < 2 {
			continue
		}
		for _, ve := range e.voiceDet.UpdateVoice(voiceID, window) {
			events = append(events, gesture.Event{
				ID:         uuid.NewString(),
				Kind:       gesture.KindVoice,
				Subject:    ve.VoiceID,
				Type:       ve.Type,
				Strength:   ve.Strength,
				Extra:      ve.Extra,
				Cell:       -1,
				UnixMillis: now,
			})
		}
	}

	for _, re := range e.roomDet.Update(e.lastRoomMotion, len(e.voices), now) {
		events = append(events, gesture.Event{
			ID:         uuid.NewString(),
			Kind:       gesture.KindRoom,
			Subject:    -1,
			Type:       re.Type,
			Strength:   re.Strength,
			Cell:       -1,
			UnixMillis: now,
		})
	}

	e.fanOutLocked(events)
	return events
}

func (e *Engine) fanOutLocked(events []gesture.Event) {
	for _, event := range events {
		for _, sink := range e.sinks {
			sink.Emit(event)
		}
	}
}

// Snapshot returns a diagnostic view of the engine.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Voices:          len(e.voices),
		RoomMotion:      e.lastRoomMotion,
		HistoryCapacity: e.history.Capacity(),
		LastTickMs:      e.lastTick,
		LastZoneMs:      e.lastZoneUpdate,
	}
}

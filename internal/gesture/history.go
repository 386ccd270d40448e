package gesture

import "math"

// Vec3 is a position or velocity in the normalized room coordinate space.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Norm returns the euclidean magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sample is one frame of motion telemetry for a voice. Velocity is derived
// once on append so detectors never recompute finite differences.
type Sample struct {
	Timestamp int64 // milliseconds, monotonic per voice
	Position  Vec3
	Velocity  Vec3
	Motion    float64
	Energy    float64
}

// DefaultHistoryCapacity is 45 frames, about 0.75s of telemetry at 60 Hz.
const DefaultHistoryCapacity = 45

// History keeps a bounded rolling buffer of samples per voice. It is the raw
// diary the detectors read; it holds no gesture logic of its own.
type History struct {
	voices   map[int][]Sample
	capacity int
}

// NewHistory creates a History with the given per-voice capacity.
// Capacities below 1 fall back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		voices:   make(map[int][]Sample),
		capacity: capacity,
	}
}

// SetCapacity changes the per-voice buffer length and immediately trims any
// oversized buffers, dropping oldest samples first. Values below 1 clamp to
// 1 so consumers never see an empty window after an append.
func (h *History) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	h.capacity = capacity
	for id, samples := range h.voices {
		if excess := len(samples) - capacity; excess > 0 {
			h.voices[id] = append([]Sample(nil), samples[excess:]...)
		}
	}
}

// Capacity returns the current per-voice buffer length.
func (h *History) Capacity() int {
	return h.capacity
}

// AddSample derives velocity against the voice's previous sample and appends.
// A non-increasing timestamp yields dt = 0 and a zero velocity, never a
// negative or infinite one.
func (h *History) AddSample(voiceID int, position Vec3, motion, energy float64, timestampMs int64) {
	samples := h.voices[voiceID]

	var velocity Vec3
	if len(samples) > 0 {
		prev := samples[len(samples)-1]
		if timestampMs > prev.Timestamp {
			dt := float64(timestampMs-prev.Timestamp) / 1000.0
			velocity = position.Sub(prev.Position).Scale(1.0 / dt)
		}
	}

	samples = append(samples, Sample{
		Timestamp: timestampMs,
		Position:  position,
		Velocity:  velocity,
		Motion:    motion,
		Energy:    energy,
	})
	if excess := len(samples) - h.capacity; excess > 0 {
		samples = samples[excess:]
	}
	h.voices[voiceID] = samples
}

// RemoveVoice forgets a voice entirely. Idempotent.
func (h *History) RemoveVoice(voiceID int) {
	delete(h.voices, voiceID)
}

// Voice returns the stored window for a voice, oldest first. The slice is a
// read-only view into the buffer; callers must not mutate it.
func (h *History) Voice(voiceID int) ([]Sample, bool) {
	samples, ok := h.voices[voiceID]
	return samples, ok
}

// HasVoice reports whether any samples are stored for the voice.
func (h *History) HasVoice(voiceID int) bool {
	_, ok := h.voices[voiceID]
	return ok
}

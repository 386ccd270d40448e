package gesture

// triggerKey identifies one debounced gesture stream for a subject. Cell is
// -1 for whole-subject gestures and a grid index for per-cell pulses, so no
// key is ever assembled by string concatenation.
type triggerKey struct {
	Type Type
	Cell int
}

func wholeSubject(t Type) triggerKey {
	return triggerKey{Type: t, Cell: -1}
}

// triggerLedger records the last firing time per (subject, key) pair and
// enforces a minimum re-trigger interval. Subjects are voice ids for the
// voice detector and camera ids for the zone detector.
type triggerLedger struct {
	last map[int]map[triggerKey]int64
}

func newTriggerLedger() *triggerLedger {
	return &triggerLedger{last: make(map[int]map[triggerKey]int64)}
}

// canTrigger reports whether the stream may fire at nowMs. A stream with no
// recorded trigger may always fire.
func (l *triggerLedger) canTrigger(subject int, key triggerKey, nowMs, cooldownMs int64) bool {
	keys, ok := l.last[subject]
	if !ok {
		return true
	}
	lastMs, ok := keys[key]
	if !ok {
		return true
	}
	return nowMs >= lastMs+cooldownMs
}

// remember records a firing at nowMs.
func (l *triggerLedger) remember(subject int, key triggerKey, nowMs int64) {
	keys, ok := l.last[subject]
	if !ok {
		keys = make(map[triggerKey]int64)
		l.last[subject] = keys
	}
	keys[key] = nowMs
}

// remove drops every recorded trigger for a subject. Idempotent.
func (l *triggerLedger) remove(subject int) {
	delete(l.last, subject)
}

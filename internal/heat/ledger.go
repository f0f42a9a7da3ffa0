package heat

import (
	"log"
	"math"
)

// #region ledger

// Ledger holds the mutable heat scalar for a single mission.
// It is not safe for concurrent use; the owning mission serializes access.
type Ledger struct {
	heat    float64
	cap     float64
	frozen  bool
	entries []Entry
}

// NewLedger creates a ledger at zero heat. A non-positive cap falls back to DefaultCap.
func NewLedger(cap float64) *Ledger {
	if cap <= 0 || math.IsNaN(cap) || math.IsInf(cap, 0) {
		cap = DefaultCap
	}
	return &Ledger{cap: cap}
}

// #endregion ledger

// #region register-action

// RegisterAction applies clamp(heat+delta, 0, cap) and returns the new heat.
// It never fails. NaN deltas are treated as zero. A frozen ledger ignores the call.
func (l *Ledger) RegisterAction(action string, delta float64) float64 {
	if l.frozen {
		log.Printf("[HEAT] ignored action=%s on frozen ledger", action)
		return l.heat
	}
	if math.IsNaN(delta) {
		delta = 0
	}

	prev := l.heat
	next := clamp(prev+delta, 0, l.cap)
	l.heat = next

	e := Entry{
		Seq:     len(l.entries),
		Action:  action,
		Delta:   delta,
		Applied: next - prev,
		Heat:    next,
	}
	l.entries = append(l.entries, e)

	log.Printf("[HEAT] #%d action=%s delta=%+.2f applied=%+.2f heat=%.2f/%.0f",
		e.Seq, action, delta, e.Applied, next, l.cap)
	return next
}

// #endregion register-action

// #region accessors

// CurrentHeat returns the current heat.
func (l *Ledger) CurrentHeat() float64 {
	return l.heat
}

// Cap returns the configured heat cap.
func (l *Ledger) Cap() float64 {
	return l.cap
}

// Normalized returns heat/cap in [0,1].
func (l *Ledger) Normalized() float64 {
	return l.heat / l.cap
}

// Freeze stops all further mutation.
func (l *Ledger) Freeze() {
	l.frozen = true
}

// Frozen reports whether the ledger has been frozen.
func (l *Ledger) Frozen() bool {
	return l.frozen
}

// Snapshot returns a copy of the mutation log in call order.
func (l *Ledger) Snapshot() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// #endregion accessors

// #region helpers

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers

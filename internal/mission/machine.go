package mission

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/heat"
	"github.com/danielpatrickdp/mission-director/internal/tension"
)

// #region machine

// Machine owns one mission's lifecycle, heat ledger and activation order.
// Mutating calls are serialized by a write lock; queries share a read lock
// and always observe a fully applied mutation.
type Machine struct {
	mu sync.RWMutex

	missionID     string
	contributorID string
	clock         func() time.Time

	state     State
	startedAt time.Time
	endedAt   time.Time
	modules   []string
	ledger    *heat.Ledger
	evaluator *tension.Evaluator
}

// NewMachine creates a mission in the Waiting state.
func NewMachine(config Config) *Machine {
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Machine{
		missionID:     config.MissionID,
		contributorID: config.ContributorID,
		clock:         clock,
		state:         StateWaiting,
		ledger:        heat.NewLedger(config.HeatCap),
		evaluator:     tension.NewEvaluator(config.Tension),
	}
}

// #endregion machine

// #region lifecycle

// Begin moves Waiting to InProgress and captures the start timestamp once.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateWaiting {
		return transitionError("begin", m.state)
	}
	m.state = StateInProgress
	m.startedAt = m.clock()
	log.Printf("[MISSION] %s begin contributor=%s start=%d", m.missionID, m.contributorID, m.startedAt.UnixMilli())
	return nil
}

// Pause moves InProgress to Paused.
func (m *Machine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateInProgress {
		return transitionError("pause", m.state)
	}
	m.state = StatePaused
	log.Printf("[MISSION] %s paused", m.missionID)
	return nil
}

// Resume moves Paused to InProgress.
func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePaused {
		return transitionError("resume", m.state)
	}
	m.state = StateInProgress
	log.Printf("[MISSION] %s resumed", m.missionID)
	return nil
}

// RegisterModuleActivation appends moduleID to the activation order and applies
// heatDelta through the ledger. Valid while InProgress or Paused.
func (m *Machine) RegisterModuleActivation(moduleID string, heatDelta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Active() {
		return m.ledger.CurrentHeat(), transitionError("register module "+moduleID, m.state)
	}
	m.modules = append(m.modules, moduleID)
	return m.ledger.RegisterAction(moduleID, heatDelta), nil
}

// Complete moves the mission to Completed (success) or Failed exactly once.
// It is the linearization point: every later mutation attempt fails.
func (m *Machine) Complete(success bool) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Terminal() {
		return Outcome{}, ErrAlreadyTerminal
	}
	if !m.state.Active() {
		return Outcome{}, transitionError("complete", m.state)
	}

	if success {
		m.state = StateCompleted
	} else {
		m.state = StateFailed
	}
	m.endedAt = m.clock()
	m.ledger.Freeze()

	out := m.outcomeLocked()
	log.Printf("[MISSION] %s %s elapsed=%s modules=%d heat=%.2f",
		m.missionID, m.state, out.Elapsed, len(out.Modules), out.FinalHeat)
	return out, nil
}

// #endregion lifecycle

// #region queries

// CurrentTension evaluates tension from current heat. After completion it
// evaluates against the frozen heat for post-mortem inspection. Fails only
// while Waiting.
func (m *Machine) CurrentTension(elapsed, maxDuration time.Duration, alertSignal float64) (tension.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == StateWaiting {
		return tension.Result{}, transitionError("tension query", m.state)
	}
	return m.evaluator.Evaluate(m.ledger.CurrentHeat(), m.ledger.Cap(), elapsed, maxDuration, alertSignal), nil
}

// CurrentHeat returns the ledger's heat.
func (m *Machine) CurrentHeat() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.CurrentHeat()
}

// State returns the lifecycle state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// MissionID returns the mission identifier.
func (m *Machine) MissionID() string {
	return m.missionID
}

// ContributorID returns the contributor supplied at mission start.
func (m *Machine) ContributorID() string {
	return m.contributorID
}

// StartTimestamp returns the Begin time, or the zero time before Begin.
func (m *Machine) StartTimestamp() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startedAt
}

// Elapsed returns time since Begin, frozen at completion.
func (m *Machine) Elapsed() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.elapsedLocked()
}

// Modules returns a copy of the activation order.
func (m *Machine) Modules() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.modules...)
}

// Evaluator exposes the mission's tension evaluator so callers can spike alerts
// with the same configuration.
func (m *Machine) Evaluator() *tension.Evaluator {
	return m.evaluator
}

// #endregion queries

// #region helpers

func (m *Machine) elapsedLocked() time.Duration {
	switch {
	case m.startedAt.IsZero():
		return 0
	case m.state.Terminal():
		return m.endedAt.Sub(m.startedAt)
	default:
		return m.clock().Sub(m.startedAt)
	}
}

func (m *Machine) outcomeLocked() Outcome {
	return Outcome{
		MissionID:      m.missionID,
		ContributorID:  m.contributorID,
		State:          m.state,
		Success:        m.state == StateCompleted,
		StartTimestamp: m.startedAt,
		CompletedAt:    m.endedAt,
		Elapsed:        m.elapsedLocked(),
		Modules:        append([]string(nil), m.modules...),
		FinalHeat:      m.ledger.CurrentHeat(),
		HeatCap:        m.ledger.Cap(),
		HeatLog:        m.ledger.Snapshot(),
	}
}

// String implements fmt.Stringer for log lines.
func (m *Machine) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("mission(%s state=%s heat=%.2f modules=%d)", m.missionID, m.state, m.ledger.CurrentHeat(), len(m.modules))
}

// #endregion helpers

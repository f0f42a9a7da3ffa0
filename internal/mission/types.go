package mission

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/heat"
	"github.com/danielpatrickdp/mission-director/internal/tension"
)

// #region state

// State is the mission lifecycle state.
type State string

const (
	StateWaiting    State = "waiting"
	StateInProgress State = "in_progress"
	StatePaused     State = "paused"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether s is absorbing.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Active reports whether the mission accepts activations.
func (s State) Active() bool {
	return s == StateInProgress || s == StatePaused
}

// #endregion state

// #region errors

// ErrInvalidStateTransition is returned when an operation is not allowed in the current state.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrAlreadyTerminal is returned by a second Complete call. It wraps
// ErrInvalidStateTransition so callers matching the general case still match.
var ErrAlreadyTerminal = fmt.Errorf("%w: mission already terminal", ErrInvalidStateTransition)

func transitionError(op string, from State) error {
	return fmt.Errorf("%w: %s not allowed from %s", ErrInvalidStateTransition, op, from)
}

// #endregion errors

// #region config

// Config holds per-mission parameters.
type Config struct {
	MissionID     string
	ContributorID string
	HeatCap       float64
	Tension       tension.Config
	Clock         func() time.Time // defaults to time.Now
}

// #endregion config

// #region outcome

// Outcome is the frozen snapshot returned by Complete.
type Outcome struct {
	MissionID      string
	ContributorID  string
	State          State
	Success        bool
	StartTimestamp time.Time
	CompletedAt    time.Time
	Elapsed        time.Duration // wall time between Begin and Complete, pauses included
	Modules        []string      // activation order, never reordered or deduplicated
	FinalHeat      float64
	HeatCap        float64
	HeatLog        []heat.Entry
}

// StartMillis returns the start timestamp as unix milliseconds, the form fed to the seed.
func (o Outcome) StartMillis() int64 {
	return o.StartTimestamp.UnixMilli()
}

// #endregion outcome

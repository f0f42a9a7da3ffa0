package threat

import (
	"math"
	"sync"

	"github.com/danielpatrickdp/mission-director/internal/tension"
)

// #region assessor

// Assessor computes a [0,1] threat level from an Observation.
type Assessor struct {
	config AssessorConfig
}

// NewAssessor creates an assessor. A non-positive MaxSpeedKmh falls back to the default.
func NewAssessor(config AssessorConfig) *Assessor {
	if config.MaxSpeedKmh <= 0 {
		config.MaxSpeedKmh = DefaultAssessorConfig().MaxSpeedKmh
	}
	return &Assessor{config: config}
}

// Assess returns the weighted, clamped threat for one observation.
// Proximity is inverse distance with distances below 1 treated as 1.
func (a *Assessor) Assess(obs Observation) float64 {
	threat := a.config.RivalWeight*proximity(obs.RivalDistance) +
		a.config.PoliceWeight*proximity(obs.PoliceDistance) +
		a.config.SpeedWeight*tension.Clamp01(obs.SpeedKmh/a.config.MaxSpeedKmh) +
		a.config.DamageWeight*tension.Clamp01(obs.DamagePct)
	return tension.Clamp01(threat)
}

// #endregion assessor

// #region alert

// Alert is a caller-owned alert level that spikes on alarms and decays over time.
// It is the decaying input the tension evaluator expects for its alert term.
// Safe for concurrent use.
type Alert struct {
	mu        sync.Mutex
	level     float64
	perSecond float64
}

// NewAlert creates an alert that decays by perSecond (fraction of the current level) each second.
func NewAlert(perSecond float64) *Alert {
	return &Alert{perSecond: tension.Clamp01(perSecond)}
}

// Spike raises the alert level by amount, clamped to [0,1].
func (a *Alert) Spike(amount float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.level = tension.AddImmediateAlert(a.level, amount)
	return a.level
}

// Raise lifts the level to at least v; used when a continuous threat reading
// exceeds the decayed alarm level.
func (a *Alert) Raise(v float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v = tension.Clamp01(v); v > a.level {
		a.level = v
	}
	return a.level
}

// Decay applies exponential decay for dtSeconds and returns the new level.
func (a *Alert) Decay(dtSeconds float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if dtSeconds > 0 {
		a.level *= math.Pow(1-a.perSecond, dtSeconds)
	}
	return a.level
}

// Reset clears the alert, e.g. when the crew loses the pursuit.
func (a *Alert) Reset() {
	a.mu.Lock()
	a.level = 0
	a.mu.Unlock()
}

// Level returns the current alert level.
func (a *Alert) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

// #endregion alert

// #region helpers

func proximity(dist *float64) float64 {
	if dist == nil || math.IsNaN(*dist) {
		return 0
	}
	return 1 / math.Max(1, *dist)
}

// #endregion helpers

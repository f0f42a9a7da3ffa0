package session

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/mission"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/seed"
	"github.com/danielpatrickdp/mission-director/internal/store"
	"github.com/danielpatrickdp/mission-director/internal/tension"
	"github.com/danielpatrickdp/mission-director/internal/threat"
)

// #region errors

// ErrMissionActive is returned when a mission id is already running.
var ErrMissionActive = errors.New("mission already active")

// ErrUnknownMission is returned when no active mission has the id.
var ErrUnknownMission = errors.New("unknown mission")

// #endregion errors

// #region deps

// Enqueuer accepts finished missions for export. *export.Queue satisfies it.
type Enqueuer interface {
	Enqueue(item export.Item) string
}

// Options wires a Director. Every collaborator is optional except Scorer,
// which falls back to the default tier table.
type Options struct {
	Store       *store.Store
	Queue       Enqueuer
	Scorer      *scoring.Scorer
	Modifiers   map[string]float64
	HeatCap     float64
	MaxDuration time.Duration
	Tension     tension.Config
	Assessor    threat.AssessorConfig
	AlertDecay  float64 // per second
	Clock       func() time.Time
}

// #endregion deps

// #region report

// Report is what Complete hands back to the caller.
type Report struct {
	Outcome      mission.Outcome
	Score        scoring.Result // zero for failed missions
	Digest       string
	SeedVersion  string
	ExportItemID string // empty when nothing was enqueued
}

// Seed pairs the digest with a backend signature, if one has been issued.
func (r Report) Seed(signature string) seed.SignedSeed {
	return seed.Pair(r.Digest, signature)
}

// Remix opens a deterministic stream keyed by the digest. The same digest and
// salt always replay the same sequence.
func (r Report) Remix(salt string) *seed.Stream {
	return seed.NewStream(r.Digest, salt)
}

// #endregion report

package session

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/mission"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/threat"
)

// #region director-struct

// Director owns the running missions of one process and the collaborators
// each mission reports to on completion.
type Director struct {
	opts     Options
	scorer   *scoring.Scorer
	assessor *threat.Assessor

	mu       sync.Mutex
	missions map[string]*Session
}

// #endregion director-struct

// #region constructor

// NewDirector creates a director. Modifiers are copied.
func NewDirector(opts Options) *Director {
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewScorer(scoring.DefaultTierTable())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 20 * time.Minute
	}
	if opts.Assessor == (threat.AssessorConfig{}) {
		opts.Assessor = threat.DefaultAssessorConfig()
	}
	mods := make(map[string]float64, len(opts.Modifiers))
	for k, v := range opts.Modifiers {
		mods[k] = v
	}
	opts.Modifiers = mods

	return &Director{
		opts:     opts,
		scorer:   opts.Scorer,
		assessor: threat.NewAssessor(opts.Assessor),
		missions: make(map[string]*Session),
	}
}

// #endregion constructor

// #region start

// StartMission creates a mission and begins it immediately.
func (d *Director) StartMission(missionID, contributorID string) (*Session, error) {
	if missionID == "" {
		return nil, fmt.Errorf("start mission: empty mission id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.missions[missionID]; ok {
		return nil, fmt.Errorf("start %s: %w", missionID, ErrMissionActive)
	}

	m := mission.NewMachine(mission.Config{
		MissionID:     missionID,
		ContributorID: contributorID,
		HeatCap:       d.opts.HeatCap,
		Tension:       d.opts.Tension,
		Clock:         d.opts.Clock,
	})
	if err := m.Begin(); err != nil {
		return nil, fmt.Errorf("start %s: %w", missionID, err)
	}

	s := &Session{
		director: d,
		machine:  m,
		alert:    threat.NewAlert(d.opts.AlertDecay),
	}
	d.missions[missionID] = s
	log.Printf("[SESSION] started %s contributor=%q", missionID, contributorID)
	return s, nil
}

// #endregion start

// #region lookup

// Get returns the active session for missionID.
func (d *Director) Get(missionID string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.missions[missionID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", missionID, ErrUnknownMission)
	}
	return s, nil
}

// Active lists running mission ids in sorted order.
func (d *Director) Active() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.missions))
	for id := range d.missions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Modifier returns the configured heat delta for an action name.
func (d *Director) Modifier(action string) (float64, bool) {
	v, ok := d.opts.Modifiers[action]
	return v, ok
}

// MaxDuration returns the mission time budget used for tension and scoring.
func (d *Director) MaxDuration() time.Duration {
	return d.opts.MaxDuration
}

func (d *Director) release(missionID string) {
	d.mu.Lock()
	delete(d.missions, missionID)
	d.mu.Unlock()
}

// #endregion lookup

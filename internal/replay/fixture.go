package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/logging"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description   string          `json:"description"`
	MissionID     string          `json:"mission_id"`
	ContributorID string          `json:"contributor_id"`
	StartMillis   int64           `json:"start_ms"`
	Config        FixtureConfig   `json:"config"`
	Events        []FixtureEvent  `json:"events"`
	Expected      FixtureExpected `json:"expected"`
}

// FixtureConfig bundles the parameters that affect heat, score and tier.
type FixtureConfig struct {
	HeatCap       float64       `json:"heat_cap"`
	MaxDurationMs int64         `json:"max_duration_ms"`
	Tiers         []FixtureTier `json:"tiers"`
	BaseTier      string        `json:"base_tier"`
}

// FixtureTier mirrors scoring.Tier with JSON tags.
type FixtureTier struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
}

// FixtureEvent is one recorded mission event. AtMillis is the offset from
// mission start at which it happened.
type FixtureEvent struct {
	AtMillis int64   `json:"at_ms"`
	Type     string  `json:"type"` // "activate" | "pause" | "resume" | "complete"
	Module   string  `json:"module,omitempty"`
	Delta    float64 `json:"delta,omitempty"`
	Success  bool    `json:"success,omitempty"`
}

// FixtureExpected is what the replay must reproduce.
type FixtureExpected struct {
	State            string  `json:"state"`
	Digest           string  `json:"digest"`
	FinalHeat        float64 `json:"final_heat"`
	PerformanceScore float64 `json:"performance_score"`
	Tier             string  `json:"tier"`
}

// Event types.
const (
	EventActivate = "activate"
	EventPause    = "pause"
	EventResume   = "resume"
	EventComplete = "complete"
)

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// TierTable converts the fixture tiers, falling back to the default table
// when none are listed.
func (fc *FixtureConfig) TierTable() scoring.TierTable {
	if len(fc.Tiers) == 0 {
		t := scoring.DefaultTierTable()
		if fc.BaseTier != "" {
			t.Base = fc.BaseTier
		}
		return t
	}
	t := scoring.TierTable{Base: fc.BaseTier}
	for _, ft := range fc.Tiers {
		t.Tiers = append(t.Tiers, scoring.Tier{Name: ft.Name, Threshold: ft.Threshold})
	}
	return t
}

// MaxDuration returns the configured mission time budget.
func (fc *FixtureConfig) MaxDuration() time.Duration {
	return time.Duration(fc.MaxDurationMs) * time.Millisecond
}

// #endregion fixture-loader

// #region from-record

// FromRecord rebuilds a fixture from a stored mission. Activations are
// placed at offset 0 because the heat log does not keep per-activation times;
// digest, heat and score do not depend on them.
func FromRecord(rec store.MissionRecord, maxDuration time.Duration, table scoring.TierTable) *Fixture {
	f := &Fixture{
		Description:   fmt.Sprintf("exported mission %s", rec.MissionID),
		MissionID:     rec.MissionID,
		ContributorID: rec.ContributorID,
		StartMillis:   rec.StartTimestamp,
		Config: FixtureConfig{
			HeatCap:       rec.HeatCap,
			MaxDurationMs: maxDuration.Milliseconds(),
			BaseTier:      table.Base,
		},
		Expected: FixtureExpected{
			State:            rec.State,
			Digest:           rec.Digest,
			FinalHeat:        rec.FinalHeat,
			PerformanceScore: rec.PerformanceScore,
			Tier:             rec.Tier,
		},
	}
	for _, t := range table.Tiers {
		f.Config.Tiers = append(f.Config.Tiers, FixtureTier{Name: t.Name, Threshold: t.Threshold})
	}
	for _, h := range rec.HeatLog {
		f.Events = append(f.Events, FixtureEvent{Type: EventActivate, Module: h.Action, Delta: h.Delta})
	}
	f.Events = append(f.Events, FixtureEvent{AtMillis: rec.ElapsedMillis, Type: EventComplete, Success: rec.Success})
	return f
}

// FromStore loads a mission and rebuilds its fixture. The max duration and
// tier table recorded at completion win over the fallbacks, so a later config
// change does not show up as drift.
func FromStore(st *store.Store, missionID string, maxDuration time.Duration, table scoring.TierTable) (*Fixture, error) {
	rec, err := st.GetMission(missionID)
	if err != nil {
		return nil, err
	}
	if cr, ok := completionRecord(st, missionID); ok {
		maxDuration = time.Duration(cr.MaxDurationMs) * time.Millisecond
		table = scoring.TierTable{Base: cr.BaseTier}
		for _, t := range cr.Tiers {
			table.Tiers = append(table.Tiers, scoring.Tier{Name: t.Name, Threshold: t.Threshold})
		}
	}
	return FromRecord(rec, maxDuration, table), nil
}

func completionRecord(st *store.Store, missionID string) (logging.CompletionRecord, bool) {
	entries, err := logging.ListDecisions(st.DB(), missionID)
	if err != nil {
		return logging.CompletionRecord{}, false
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].EventType != logging.EventMissionCompleted {
			continue
		}
		if cr, err := logging.DecodeCompletion(entries[i]); err == nil {
			return cr, true
		}
	}
	return logging.CompletionRecord{}, false
}

// #endregion from-record

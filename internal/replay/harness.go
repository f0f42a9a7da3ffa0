package replay

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/mission"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/seed"
)

const floatTolerance = 1e-9

// #region types

// StepResult captures the mission after one replayed event.
type StepResult struct {
	Index int
	Type  string
	State mission.State
	Heat  float64
	Err   error
}

// Result is the outcome of replaying a fixture.
type Result struct {
	Steps   []StepResult
	Outcome mission.Outcome
	Score   scoring.Result
	Digest  string
}

// Mismatch is one expected field the replay did not reproduce.
type Mismatch struct {
	Field    string
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Field, m.Expected, m.Actual)
}

// #endregion types

// #region replay

// Replay runs the fixture's events through a fresh mission on a fixed clock.
// Event errors are recorded per step; the replay fails only if the mission
// never completes.
func Replay(f *Fixture) (Result, error) {
	start := time.UnixMilli(f.StartMillis)
	now := start
	m := mission.NewMachine(mission.Config{
		MissionID:     f.MissionID,
		ContributorID: f.ContributorID,
		HeatCap:       f.Config.HeatCap,
		Clock:         func() time.Time { return now },
	})
	if err := m.Begin(); err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}

	var res Result
	completed := false
	for i, ev := range f.Events {
		if t := start.Add(time.Duration(ev.AtMillis) * time.Millisecond); t.After(now) {
			now = t
		}

		var err error
		switch ev.Type {
		case EventActivate:
			_, err = m.RegisterModuleActivation(ev.Module, ev.Delta)
		case EventPause:
			err = m.Pause()
		case EventResume:
			err = m.Resume()
		case EventComplete:
			res.Outcome, err = m.Complete(ev.Success)
			if err == nil {
				completed = true
			}
		default:
			err = fmt.Errorf("unknown event type %q", ev.Type)
		}
		res.Steps = append(res.Steps, StepResult{Index: i, Type: ev.Type, State: m.State(), Heat: m.CurrentHeat(), Err: err})
	}
	if !completed {
		return res, fmt.Errorf("fixture %s: mission never completed", f.MissionID)
	}

	out := res.Outcome
	res.Digest = seed.MissionDigest(out.MissionID, out.StartMillis(), out.Modules, out.ContributorID)
	if out.Success {
		res.Score = scoring.NewScorer(f.Config.TierTable()).Evaluate(out.Elapsed, f.Config.MaxDuration(), out.FinalHeat, out.HeatCap)
	}
	return res, nil
}

// #endregion replay

// #region verify

// Verify replays f and compares against its expected block. Empty expected
// fields are not checked.
func Verify(f *Fixture) ([]Mismatch, error) {
	res, err := Replay(f)
	if err != nil {
		return nil, err
	}
	exp := f.Expected
	var out []Mismatch

	if exp.State != "" && exp.State != string(res.Outcome.State) {
		out = append(out, Mismatch{"state", exp.State, string(res.Outcome.State)})
	}
	if exp.Digest != "" && exp.Digest != res.Digest {
		out = append(out, Mismatch{"digest", exp.Digest, res.Digest})
	}
	if math.Abs(exp.FinalHeat-res.Outcome.FinalHeat) > floatTolerance {
		out = append(out, Mismatch{"final_heat", fmtFloat(exp.FinalHeat), fmtFloat(res.Outcome.FinalHeat)})
	}
	if math.Abs(exp.PerformanceScore-res.Score.PerformanceScore) > floatTolerance {
		out = append(out, Mismatch{"performance_score", fmtFloat(exp.PerformanceScore), fmtFloat(res.Score.PerformanceScore)})
	}
	if exp.Tier != "" && exp.Tier != res.Score.Tier {
		out = append(out, Mismatch{"tier", exp.Tier, res.Score.Tier})
	}
	return out, nil
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.9g", v)
}

// #endregion verify

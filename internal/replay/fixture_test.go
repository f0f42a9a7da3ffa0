package replay

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/mission"
	"github.com/danielpatrickdp/mission-director/internal/scoring"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// #region fixture-tests

// TestFixtures replays every testdata fixture and requires an exact match on
// digest, state, heat, score and tier. A change to seed layout, clamping or
// scoring weights shows up here first.
func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures found")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			f, err := LoadFixture(path)
			if err != nil {
				t.Fatalf("LoadFixture: %v", err)
			}
			mismatches, err := Verify(f)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			for _, m := range mismatches {
				t.Errorf("%s", m)
			}
		})
	}
}

func TestFixture_FailedMissionRejectsLateActivation(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "failed_escape.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	res, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	last := res.Steps[len(res.Steps)-1]
	if !errors.Is(last.Err, mission.ErrInvalidStateTransition) {
		t.Errorf("expected late activation rejected, got %v", last.Err)
	}
	if len(res.Outcome.Modules) != 1 {
		t.Errorf("expected 1 module, got %v", res.Outcome.Modules)
	}
}

func TestFixture_PauseCountsTowardElapsed(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "ghost_run.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	res, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if res.Outcome.Elapsed != 600*time.Second {
		t.Errorf("expected 600s elapsed, got %s", res.Outcome.Elapsed)
	}
	if res.Steps[3].State != mission.StatePaused || res.Steps[4].State != mission.StateInProgress {
		t.Errorf("unexpected pause/resume states %v %v", res.Steps[3].State, res.Steps[4].State)
	}
	if res.Steps[5].Heat != 50 {
		t.Errorf("expected heat capped at 50, got %v", res.Steps[5].Heat)
	}
}

// #endregion fixture-tests

// #region verify-tests

func TestVerify_DetectsDrift(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "neon_vault.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	f.Events[0], f.Events[1] = f.Events[1], f.Events[0]
	f.Events[0].AtMillis, f.Events[1].AtMillis = f.Events[1].AtMillis, f.Events[0].AtMillis

	mismatches, err := Verify(f)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	fields := map[string]bool{}
	for _, m := range mismatches {
		fields[m.Field] = true
	}
	if !fields["digest"] || !fields["final_heat"] {
		t.Errorf("expected digest and heat drift, got %v", mismatches)
	}
}

func TestReplay_NeverCompleted(t *testing.T) {
	f := &Fixture{MissionID: "m", Config: FixtureConfig{HeatCap: 100}, Events: []FixtureEvent{
		{Type: EventActivate, Module: "a", Delta: 1},
	}}
	if _, err := Replay(f); err == nil {
		t.Error("expected error for fixture without completion")
	}
}

func TestReplay_UnknownEvent(t *testing.T) {
	f := &Fixture{MissionID: "m", Config: FixtureConfig{HeatCap: 100}, Events: []FixtureEvent{
		{Type: "teleport"},
		{Type: EventComplete, Success: true},
	}}
	res, err := Replay(f)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if res.Steps[0].Err == nil {
		t.Error("expected unknown event error")
	}
}

// #endregion verify-tests

// #region from-record-tests

func TestFromRecord_RoundTrip(t *testing.T) {
	src, err := LoadFixture(filepath.Join("testdata", "neon_vault.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	res, err := Replay(src)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	out := res.Outcome
	rec := store.MissionRecord{
		MissionID:        out.MissionID,
		ContributorID:    out.ContributorID,
		State:            string(out.State),
		Success:          out.Success,
		StartTimestamp:   out.StartMillis(),
		ElapsedMillis:    out.Elapsed.Milliseconds(),
		Modules:          out.Modules,
		FinalHeat:        out.FinalHeat,
		HeatCap:          out.HeatCap,
		PerformanceScore: res.Score.PerformanceScore,
		Tier:             res.Score.Tier,
		Digest:           res.Digest,
	}
	for _, e := range out.HeatLog {
		rec.HeatLog = append(rec.HeatLog, store.HeatRow{Seq: e.Seq, Action: e.Action, Delta: e.Delta, Applied: e.Applied, Heat: e.Heat})
	}

	path := filepath.Join(t.TempDir(), "exported.json")
	if err := WriteFixture(path, FromRecord(rec, src.Config.MaxDuration(), scoring.DefaultTierTable())); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	back, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	mismatches, err := Verify(back)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for _, m := range mismatches {
		t.Errorf("%s", m)
	}
}

// #endregion from-record-tests

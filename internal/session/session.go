package session

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/logging"
	"github.com/danielpatrickdp/mission-director/internal/mission"
	"github.com/danielpatrickdp/mission-director/internal/seed"
	"github.com/danielpatrickdp/mission-director/internal/store"
	"github.com/danielpatrickdp/mission-director/internal/tension"
	"github.com/danielpatrickdp/mission-director/internal/threat"
)

// #region session

// Session is one running mission plus its alert signal.
type Session struct {
	director *Director
	machine  *mission.Machine
	alert    *threat.Alert
}

// MissionID returns the mission identifier.
func (s *Session) MissionID() string { return s.machine.MissionID() }

// Machine exposes the underlying state machine for read-only queries.
func (s *Session) Machine() *mission.Machine { return s.machine }

// #endregion session

// #region activation

// Activate records a module activation with an explicit heat delta.
func (s *Session) Activate(moduleID string, heatDelta float64) (float64, error) {
	return s.machine.RegisterModuleActivation(moduleID, heatDelta)
}

// ActivateAction records an activation whose delta comes from the modifier
// table. Unknown actions are recorded with delta 0.
func (s *Session) ActivateAction(action string) (float64, error) {
	delta, ok := s.director.Modifier(action)
	if !ok {
		log.Printf("[SESSION] %s: no heat modifier for %q, applying 0", s.MissionID(), action)
	}
	return s.machine.RegisterModuleActivation(action, delta)
}

// Pause suspends the mission.
func (s *Session) Pause() error { return s.machine.Pause() }

// Resume continues a paused mission.
func (s *Session) Resume() error { return s.machine.Resume() }

// #endregion activation

// #region alert

// Observe folds an AI observation into the alert signal and returns the new level.
func (s *Session) Observe(obs threat.Observation) float64 {
	return s.alert.Raise(s.director.assessor.Assess(obs))
}

// SpikeAlert applies an immediate alert bump.
func (s *Session) SpikeAlert(amount float64) float64 {
	return s.alert.Spike(amount)
}

// DecayAlert advances the alert decay by dtSeconds.
func (s *Session) DecayAlert(dtSeconds float64) float64 {
	return s.alert.Decay(dtSeconds)
}

// AlertLevel returns the current alert signal.
func (s *Session) AlertLevel() float64 {
	return s.alert.Level()
}

// Tension evaluates the mission's current tension with its own elapsed time
// and alert level.
func (s *Session) Tension() (tension.Result, error) {
	return s.machine.CurrentTension(s.machine.Elapsed(), s.director.opts.MaxDuration, s.alert.Level())
}

// #endregion alert

// #region complete

// Complete ends the mission, stores it, and enqueues a successful one for
// export. Export never blocks or fails the call; storage errors are logged.
func (s *Session) Complete(success bool) (Report, error) {
	out, err := s.machine.Complete(success)
	if err != nil {
		return Report{}, err
	}
	d := s.director
	d.release(out.MissionID)

	report := Report{
		Outcome:     out,
		Digest:      seed.MissionDigest(out.MissionID, out.StartMillis(), out.Modules, out.ContributorID),
		SeedVersion: seed.Version,
	}
	if out.Success {
		report.Score = d.scorer.Evaluate(out.Elapsed, d.opts.MaxDuration, out.FinalHeat, out.HeatCap)
	}

	d.save(report)

	if !out.Success {
		d.logDecision(out.MissionID, logging.EventExportSkipped, "skip", "mission failed", "")
		log.Printf("[SESSION] %s failed; not exported", out.MissionID)
		return report, nil
	}
	if d.opts.Queue == nil {
		d.logDecision(out.MissionID, logging.EventExportSkipped, "skip", "no export queue", "")
		return report, nil
	}

	report.ExportItemID = d.opts.Queue.Enqueue(export.Item{
		MissionID:        out.MissionID,
		Digest:           report.Digest,
		SeedVersion:      report.SeedVersion,
		Timestamp:        out.StartMillis(),
		Modules:          out.Modules,
		ContributorID:    out.ContributorID,
		Heat:             out.FinalHeat,
		PerformanceScore: report.Score.PerformanceScore,
		Tier:             report.Score.Tier,
	})
	if d.opts.Store != nil {
		if err := d.opts.Store.SetExportItem(out.MissionID, report.ExportItemID); err != nil {
			log.Printf("[SESSION] %s: link export item: %v", out.MissionID, err)
		}
	}
	detail, _ := json.Marshal(map[string]string{"item_id": report.ExportItemID, "digest": report.Digest})
	d.logDecision(out.MissionID, logging.EventExportEnqueued, "export", "", string(detail))

	log.Printf("[SESSION] %s completed score=%.3f tier=%s digest=%.12s item=%s",
		out.MissionID, report.Score.PerformanceScore, report.Score.Tier, report.Digest, report.ExportItemID)
	return report, nil
}

// #endregion complete

// #region persistence

func (d *Director) save(r Report) {
	if d.opts.Store == nil {
		return
	}
	out := r.Outcome
	rec := store.MissionRecord{
		MissionID:        out.MissionID,
		ContributorID:    out.ContributorID,
		State:            string(out.State),
		Success:          out.Success,
		StartTimestamp:   out.StartMillis(),
		CompletedAt:      out.CompletedAt,
		ElapsedMillis:    out.Elapsed.Milliseconds(),
		Modules:          out.Modules,
		FinalHeat:        out.FinalHeat,
		HeatCap:          out.HeatCap,
		PerformanceScore: r.Score.PerformanceScore,
		Tier:             r.Score.Tier,
		Digest:           r.Digest,
		SeedVersion:      r.SeedVersion,
	}
	for _, e := range out.HeatLog {
		rec.HeatLog = append(rec.HeatLog, store.HeatRow{
			Seq: e.Seq, Action: e.Action, Delta: e.Delta, Applied: e.Applied, Heat: e.Heat,
		})
	}
	if err := d.opts.Store.SaveMission(rec); err != nil {
		log.Printf("[SESSION] CRITICAL: %s not stored: %v", out.MissionID, err)
		return
	}

	table := d.scorer.Table()
	cr := logging.CompletionRecord{
		MissionID:        out.MissionID,
		ContributorID:    out.ContributorID,
		Success:          out.Success,
		StartMillis:      out.StartMillis(),
		ElapsedMillis:    out.Elapsed.Milliseconds(),
		MaxDurationMs:    d.opts.MaxDuration.Milliseconds(),
		Modules:          out.Modules,
		Heat:             out.FinalHeat,
		HeatCap:          out.HeatCap,
		TimeScore:        r.Score.TimeScore,
		HeatScore:        r.Score.HeatScore,
		PerformanceScore: r.Score.PerformanceScore,
		Tier:             r.Score.Tier,
		BaseTier:         table.Base,
		Digest:           r.Digest,
		SeedVersion:      r.SeedVersion,
	}
	for _, t := range table.Tiers {
		cr.Tiers = append(cr.Tiers, logging.TierThreshold{Name: t.Name, Threshold: t.Threshold})
	}
	decision := "skip"
	if out.Success {
		decision = "export"
	}
	if err := logging.LogCompletion(d.opts.Store.DB(), cr, decision, string(out.State)); err != nil {
		log.Printf("[SESSION] %s: provenance: %v", out.MissionID, err)
	}
}

func (d *Director) logDecision(missionID, event, decision, reason, detail string) {
	if d.opts.Store == nil {
		return
	}
	err := logging.LogDecision(d.opts.Store.DB(), logging.ProvenanceEntry{
		MissionID:  missionID,
		EventType:  event,
		DetailJSON: detail,
		Decision:   decision,
		Reason:     reason,
	})
	if err != nil {
		log.Printf("[SESSION] %s: provenance: %v", missionID, err)
	}
}

// #endregion persistence

// String implements fmt.Stringer for log lines.
func (s *Session) String() string {
	return fmt.Sprintf("session(%s alert=%.2f)", s.machine, s.alert.Level())
}

package api

import (
	"time"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

type statsView struct {
	Pending   int  `json:"pending"`
	Failed    int  `json:"failed"`
	Delivered int  `json:"delivered"`
	Running   bool `json:"running"`
}

type failedView struct {
	ID      string         `json:"id"`
	Payload export.Payload `json:"payload"`
}

type missionView struct {
	MissionID        string        `json:"missionId"`
	ContributorID    string        `json:"contributorId"`
	State            string        `json:"state"`
	Success          bool          `json:"success"`
	StartTimestamp   int64         `json:"startTimestamp"`
	CompletedAt      time.Time     `json:"completedAt"`
	ElapsedMillis    int64         `json:"elapsedMs"`
	Modules          []string      `json:"modules"`
	FinalHeat        float64       `json:"heat"`
	HeatCap          float64       `json:"heatCap"`
	PerformanceScore float64       `json:"performanceScore"`
	Tier             string        `json:"tier,omitempty"`
	Digest           string        `json:"digest,omitempty"`
	SeedVersion      string        `json:"seedVersion,omitempty"`
	ExportItemID     string        `json:"exportItemId,omitempty"`
	HeatLog          []heatRow     `json:"heatLog,omitempty"`
	Attempts         []attemptView `json:"attempts,omitempty"`
}

type heatRow struct {
	Seq     int     `json:"seq"`
	Action  string  `json:"action"`
	Delta   float64 `json:"delta"`
	Applied float64 `json:"applied"`
	Heat    float64 `json:"heat"`
}

func heatView(h store.HeatRow) heatRow {
	return heatRow{Seq: h.Seq, Action: h.Action, Delta: h.Delta, Applied: h.Applied, Heat: h.Heat}
}

type attemptView struct {
	Attempt   int       `json:"attempt"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	ReplayID  string    `json:"replayId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMissionView(rec store.MissionRecord) missionView {
	modules := rec.Modules
	if modules == nil {
		modules = []string{}
	}
	return missionView{
		MissionID:        rec.MissionID,
		ContributorID:    rec.ContributorID,
		State:            rec.State,
		Success:          rec.Success,
		StartTimestamp:   rec.StartTimestamp,
		CompletedAt:      rec.CompletedAt,
		ElapsedMillis:    rec.ElapsedMillis,
		Modules:          modules,
		FinalHeat:        rec.FinalHeat,
		HeatCap:          rec.HeatCap,
		PerformanceScore: rec.PerformanceScore,
		Tier:             rec.Tier,
		Digest:           rec.Digest,
		SeedVersion:      rec.SeedVersion,
		ExportItemID:     rec.ExportItemID,
	}
}

package store

import "time"

// #region mission-record
// MissionRecord is one finished mission as stored in the missions table.
type MissionRecord struct {
	MissionID        string
	ContributorID    string
	State            string
	Success          bool
	StartTimestamp   int64 // unix ms
	CompletedAt      time.Time
	ElapsedMillis    int64
	Modules          []string
	FinalHeat        float64
	HeatCap          float64
	PerformanceScore float64
	Tier             string
	Digest           string
	SeedVersion      string
	ExportItemID     string
	HeatLog          []HeatRow
}
// #endregion mission-record

// #region heat-row
// HeatRow is one ledger mutation belonging to a mission.
type HeatRow struct {
	Seq     int
	Action  string
	Delta   float64
	Applied float64
	Heat    float64
}
// #endregion heat-row

// #region attempt-record
// AttemptRecord is one export delivery attempt.
type AttemptRecord struct {
	ID        int64
	ItemID    string
	MissionID string
	Digest    string
	Attempt   int
	State     string
	Error     string
	ReplayID  string
	CreatedAt time.Time
}
// #endregion attempt-record

package logging

import "time"

// Event types written to provenance_log.event_type.
const (
	EventMissionCompleted = "mission_completed"
	EventExportEnqueued   = "export_enqueued"
	EventExportSkipped    = "export_skipped"
	EventManualRetry      = "manual_retry"
)

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	ID         int64
	MissionID  string
	EventType  string
	DetailJSON string
	Decision   string // "export" | "skip" | "retry"
	Reason     string
	CreatedAt  time.Time
}
// #endregion provenance-entry

// #region completion-record
// CompletionRecord captures every input that fed the score, tier and seed of
// one mission. Serialized into provenance_log.detail_json so a mission can be
// re-derived later.
type CompletionRecord struct {
	MissionID     string   `json:"mission_id"`
	ContributorID string   `json:"contributor_id"`
	Success       bool     `json:"success"`
	StartMillis   int64    `json:"start_ms"`
	ElapsedMillis int64    `json:"elapsed_ms"`
	MaxDurationMs int64    `json:"max_duration_ms"`
	Modules       []string `json:"modules"`

	Heat    float64 `json:"heat"`
	HeatCap float64 `json:"heat_cap"`

	// Scoring output
	TimeScore        float64 `json:"time_score"`
	HeatScore        float64 `json:"heat_score"`
	PerformanceScore float64 `json:"performance_score"`
	Tier             string  `json:"tier"`

	// Tier table active at completion
	Tiers    []TierThreshold `json:"tiers"`
	BaseTier string          `json:"base_tier"`

	Digest      string `json:"digest,omitempty"`
	SeedVersion string `json:"seed_version,omitempty"`
}

// TierThreshold is one tier row as recorded.
type TierThreshold struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
}
// #endregion completion-record

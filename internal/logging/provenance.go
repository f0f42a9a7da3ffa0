package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (mission_id, event_type, detail_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.MissionID,
		entry.EventType,
		nullIfEmpty(entry.DetailJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// LogCompletion serializes a completion record and logs it.
func LogCompletion(db *sql.DB, rec CompletionRecord, decision, reason string) error {
	detail, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	return LogDecision(db, ProvenanceEntry{
		MissionID:  rec.MissionID,
		EventType:  EventMissionCompleted,
		DetailJSON: string(detail),
		Decision:   decision,
		Reason:     reason,
	})
}
// #endregion log-decision

// #region list-decisions
// ListDecisions returns a mission's provenance rows, oldest first.
func ListDecisions(db *sql.DB, missionID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT id, mission_id, event_type, detail_json, decision, reason, created_at
		 FROM provenance_log WHERE mission_id = ? ORDER BY id`, missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var detail, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &e.MissionID, &e.EventType, &detail, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.DetailJSON = detail.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DecodeCompletion parses the detail of a mission_completed row.
func DecodeCompletion(e ProvenanceEntry) (CompletionRecord, error) {
	var rec CompletionRecord
	if e.EventType != EventMissionCompleted {
		return rec, fmt.Errorf("entry %d is %s, not %s", e.ID, e.EventType, EventMissionCompleted)
	}
	if err := json.Unmarshal([]byte(e.DetailJSON), &rec); err != nil {
		return rec, fmt.Errorf("unmarshal completion: %w", err)
	}
	return rec, nil
}
// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers

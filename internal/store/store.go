package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a mission id has no row.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS missions (
	mission_id        TEXT PRIMARY KEY,
	contributor_id    TEXT NOT NULL,
	state             TEXT NOT NULL,
	success           INTEGER NOT NULL,
	start_ts          INTEGER NOT NULL,
	completed_at      TEXT NOT NULL,
	elapsed_ms        INTEGER NOT NULL,
	modules_json      TEXT NOT NULL,
	final_heat        REAL NOT NULL,
	heat_cap          REAL NOT NULL,
	performance_score REAL,
	tier              TEXT,
	digest            TEXT,
	seed_version      TEXT,
	export_item_id    TEXT
);

CREATE TABLE IF NOT EXISTS heat_log (
	mission_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	action     TEXT NOT NULL,
	delta      REAL NOT NULL,
	applied    REAL NOT NULL,
	heat       REAL NOT NULL,
	PRIMARY KEY (mission_id, seq),
	FOREIGN KEY (mission_id) REFERENCES missions(mission_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS export_attempts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id    TEXT NOT NULL,
	mission_id TEXT NOT NULL,
	digest     TEXT,
	attempt    INTEGER NOT NULL,
	state      TEXT NOT NULL,
	error      TEXT,
	replay_id  TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_export_attempts_mission ON export_attempts(mission_id);

CREATE TABLE IF NOT EXISTS provenance_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	mission_id  TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	detail_json TEXT,
	decision    TEXT NOT NULL,
	reason      TEXT,
	created_at  TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store persists mission outcomes and export attempts in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for the provenance logger.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save-mission
// SaveMission upserts a mission and replaces its heat log in one transaction.
func (s *Store) SaveMission(rec MissionRecord) error {
	modulesJSON, err := json.Marshal(nonNil(rec.Modules))
	if err != nil {
		return fmt.Errorf("marshal modules: %w", err)
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO missions (mission_id, contributor_id, state, success, start_ts, completed_at, elapsed_ms,
		                       modules_json, final_heat, heat_cap, performance_score, tier, digest, seed_version, export_item_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(mission_id) DO UPDATE SET
		   contributor_id = excluded.contributor_id,
		   state = excluded.state,
		   success = excluded.success,
		   start_ts = excluded.start_ts,
		   completed_at = excluded.completed_at,
		   elapsed_ms = excluded.elapsed_ms,
		   modules_json = excluded.modules_json,
		   final_heat = excluded.final_heat,
		   heat_cap = excluded.heat_cap,
		   performance_score = excluded.performance_score,
		   tier = excluded.tier,
		   digest = excluded.digest,
		   seed_version = excluded.seed_version,
		   export_item_id = excluded.export_item_id`,
		rec.MissionID, rec.ContributorID, rec.State, boolInt(rec.Success), rec.StartTimestamp,
		rec.CompletedAt.UTC().Format(time.RFC3339Nano), rec.ElapsedMillis, string(modulesJSON),
		rec.FinalHeat, rec.HeatCap, rec.PerformanceScore, nullIfEmpty(rec.Tier), nullIfEmpty(rec.Digest),
		nullIfEmpty(rec.SeedVersion), nullIfEmpty(rec.ExportItemID),
	)
	if err != nil {
		return fmt.Errorf("upsert mission: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM heat_log WHERE mission_id = ?`, rec.MissionID); err != nil {
		return fmt.Errorf("clear heat log: %w", err)
	}
	for _, h := range rec.HeatLog {
		_, err := tx.Exec(
			`INSERT INTO heat_log (mission_id, seq, action, delta, applied, heat) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.MissionID, h.Seq, h.Action, h.Delta, h.Applied, h.Heat,
		)
		if err != nil {
			return fmt.Errorf("insert heat row %d: %w", h.Seq, err)
		}
	}

	return tx.Commit()
}
// #endregion save-mission

// #region set-export-item
// SetExportItem links a saved mission to its export queue item.
func (s *Store) SetExportItem(missionID, itemID string) error {
	res, err := s.db.Exec(`UPDATE missions SET export_item_id = ? WHERE mission_id = ?`, itemID, missionID)
	if err != nil {
		return fmt.Errorf("set export item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mission %s: %w", missionID, ErrNotFound)
	}
	return nil
}
// #endregion set-export-item

// #region get-mission
// GetMission reads one mission with its heat log.
func (s *Store) GetMission(missionID string) (MissionRecord, error) {
	row := s.db.QueryRow(
		`SELECT `+missionColumns+` FROM missions WHERE mission_id = ?`, missionID,
	)
	rec, err := scanMission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MissionRecord{}, fmt.Errorf("mission %s: %w", missionID, ErrNotFound)
	}
	if err != nil {
		return MissionRecord{}, fmt.Errorf("get mission %s: %w", missionID, err)
	}

	rows, err := s.db.Query(
		`SELECT seq, action, delta, applied, heat FROM heat_log WHERE mission_id = ? ORDER BY seq`, missionID,
	)
	if err != nil {
		return MissionRecord{}, fmt.Errorf("get heat log: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h HeatRow
		if err := rows.Scan(&h.Seq, &h.Action, &h.Delta, &h.Applied, &h.Heat); err != nil {
			return MissionRecord{}, fmt.Errorf("scan heat row: %w", err)
		}
		rec.HeatLog = append(rec.HeatLog, h)
	}
	return rec, rows.Err()
}
// #endregion get-mission

// #region list-missions
// ListMissions returns the most recent missions, newest first, without heat logs.
func (s *Store) ListMissions(limit int) ([]MissionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+missionColumns+` FROM missions ORDER BY start_ts DESC, mission_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	defer rows.Close()

	var records []MissionRecord
	for rows.Next() {
		rec, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-missions

// #region attempts
// RecordAttempt appends one export attempt row.
func (s *Store) RecordAttempt(rec AttemptRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO export_attempts (item_id, mission_id, digest, attempt, state, error, replay_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ItemID, rec.MissionID, nullIfEmpty(rec.Digest), rec.Attempt, rec.State,
		nullIfEmpty(rec.Error), nullIfEmpty(rec.ReplayID), rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns every attempt for a mission in insertion order.
func (s *Store) ListAttempts(missionID string) ([]AttemptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, item_id, mission_id, digest, attempt, state, error, replay_id, created_at
		 FROM export_attempts WHERE mission_id = ? ORDER BY id`, missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var a AttemptRecord
		var digest, errStr, replayID sql.NullString
		var createdStr string
		if err := rows.Scan(&a.ID, &a.ItemID, &a.MissionID, &digest, &a.Attempt, &a.State, &errStr, &replayID, &createdStr); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Digest = digest.String
		a.Error = errStr.String
		a.ReplayID = replayID.String
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, a)
	}
	return out, rows.Err()
}
// #endregion attempts

// #region helpers
const missionColumns = `mission_id, contributor_id, state, success, start_ts, completed_at, elapsed_ms,
	modules_json, final_heat, heat_cap, performance_score, tier, digest, seed_version, export_item_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanMission(row scanner) (MissionRecord, error) {
	var rec MissionRecord
	var success int
	var completedStr, modulesJSON string
	var score sql.NullFloat64
	var tier, digest, seedVersion, itemID sql.NullString

	err := row.Scan(&rec.MissionID, &rec.ContributorID, &rec.State, &success, &rec.StartTimestamp,
		&completedStr, &rec.ElapsedMillis, &modulesJSON, &rec.FinalHeat, &rec.HeatCap,
		&score, &tier, &digest, &seedVersion, &itemID)
	if err != nil {
		return MissionRecord{}, err
	}
	rec.Success = success != 0
	rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedStr)
	if err := json.Unmarshal([]byte(modulesJSON), &rec.Modules); err != nil {
		return MissionRecord{}, fmt.Errorf("unmarshal modules: %w", err)
	}
	rec.PerformanceScore = score.Float64
	rec.Tier = tier.String
	rec.Digest = digest.String
	rec.SeedVersion = seedVersion.String
	rec.ExportItemID = itemID.String
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers

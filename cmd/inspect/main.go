package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/config"
	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/logging"
	"github.com/danielpatrickdp/mission-director/internal/session"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to missions.db")
	last := flag.Int("last", 20, "show N most recent missions")
	missionID := flag.String("mission", "", "show single mission detail")
	failed := flag.Bool("failed", false, "list exports awaiting manual sync")
	retry := flag.Bool("retry", false, "re-send exports awaiting manual sync and wait for the result")
	journalDir := flag.String("journal", "", "export journal directory (default $MISSION_EXPORT_DIR)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" && !*failed && !*retry {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/missions.db [--last N] [--mission id] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --failed [--journal dir] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --retry --db path/to/missions.db [--journal dir]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	if *journalDir == "" {
		*journalDir = cfg.JournalDir
	}

	switch {
	case *failed:
		err = runFailedMode(*journalDir, *jsonOut)
	case *retry:
		err = runRetryMode(cfg, *dbPath, *journalDir)
	case *missionID != "":
		err = withStore(*dbPath, func(st *store.Store) error { return runDetailMode(st, *missionID, *jsonOut) })
	default:
		err = withStore(*dbPath, func(st *store.Store) error { return runListMode(st, *last, *jsonOut) })
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func withStore(dbPath string, fn func(st *store.Store) error) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	return fn(st)
}

// #endregion main

// #region list-mode

type listRow struct {
	MissionID   string  `json:"mission_id"`
	State       string  `json:"state"`
	Heat        float64 `json:"heat"`
	Score       float64 `json:"score"`
	Tier        string  `json:"tier,omitempty"`
	Elapsed     string  `json:"elapsed"`
	Modules     int     `json:"modules"`
	Exported    bool    `json:"exported"`
	CompletedAt string  `json:"completed_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	missions, err := st.ListMissions(last)
	if err != nil {
		return err
	}
	if len(missions) == 0 {
		fmt.Fprintln(os.Stderr, "no missions found")
		return nil
	}

	rows := make([]listRow, len(missions))
	for i, m := range missions {
		rows[i] = listRow{
			MissionID:   m.MissionID,
			State:       m.State,
			Heat:        m.FinalHeat,
			Score:       m.PerformanceScore,
			Tier:        m.Tier,
			Elapsed:     (time.Duration(m.ElapsedMillis) * time.Millisecond).String(),
			Modules:     len(m.Modules),
			Exported:    m.ExportItemID != "",
			CompletedAt: m.CompletedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-20s  %-10s  %6s  %6s  %-10s  %10s  %4s  %s\n",
		"Mission", "State", "Heat", "Score", "Tier", "Elapsed", "Mods", "Completed")
	fmt.Printf("%-20s+-%-10s+-%6s+-%6s+-%-10s+-%10s+-%4s+-%s\n",
		"--------------------", "----------", "------", "------", "----------", "----------", "----", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-20s  %-10s  %6.2f  %6.3f  %-10s  %10s  %4d  %s\n",
			shortID(r.MissionID, 20), r.State, r.Heat, r.Score, r.Tier, r.Elapsed, r.Modules, r.CompletedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Mission    store.MissionRecord       `json:"mission"`
	Attempts   []store.AttemptRecord     `json:"attempts"`
	Provenance []logging.ProvenanceEntry `json:"provenance"`
}

func runDetailMode(st *store.Store, missionID string, jsonOut bool) error {
	m, err := st.GetMission(missionID)
	if err != nil {
		return err
	}
	attempts, err := st.ListAttempts(missionID)
	if err != nil {
		return err
	}
	prov, err := logging.ListDecisions(st.DB(), missionID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(detailOutput{Mission: m, Attempts: attempts, Provenance: prov})
	}

	fmt.Printf("Mission:     %s\n", m.MissionID)
	fmt.Printf("Contributor: %s\n", m.ContributorID)
	fmt.Printf("State:       %s\n", m.State)
	fmt.Printf("Started:     %s\n", time.UnixMilli(m.StartTimestamp).UTC().Format(time.RFC3339))
	fmt.Printf("Elapsed:     %s\n", time.Duration(m.ElapsedMillis)*time.Millisecond)
	fmt.Printf("Heat:        %.2f / %.0f\n", m.FinalHeat, m.HeatCap)
	if m.Success {
		fmt.Printf("Score:       %.3f (%s)\n", m.PerformanceScore, m.Tier)
	}
	if m.Digest != "" {
		fmt.Printf("Digest:      %s (%s)\n", m.Digest, m.SeedVersion)
	}

	fmt.Println("\nHeat log:")
	for _, h := range m.HeatLog {
		fmt.Printf("  %3d  %-20s  %+7.2f  applied %+7.2f  -> %6.2f\n", h.Seq, h.Action, h.Delta, h.Applied, h.Heat)
	}

	if len(attempts) > 0 {
		fmt.Println("\nExport attempts:")
		for _, a := range attempts {
			line := fmt.Sprintf("  #%d  %-26s  %s", a.Attempt, a.State, a.CreatedAt.Format("2006-01-02T15:04:05Z"))
			if a.ReplayID != "" {
				line += "  replay=" + a.ReplayID
			}
			if a.Error != "" {
				line += "  err=" + a.Error
			}
			fmt.Println(line)
		}
	}

	if len(prov) > 0 {
		fmt.Println("\nProvenance:")
		for _, p := range prov {
			fmt.Printf("  %-18s  %-7s  %s\n", p.EventType, p.Decision, p.Reason)
		}
	}
	return nil
}

// #endregion detail-mode

// #region failed-mode

func runFailedMode(journalDir string, jsonOut bool) error {
	j, err := export.OpenJournal(journalDir)
	if err != nil {
		return err
	}
	recs, err := j.LoadFailed()
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(recs)
	}
	if len(recs) == 0 {
		fmt.Println("no exports awaiting manual sync")
		return nil
	}
	fmt.Printf("%-20s  %-14s  %8s  %s\n", "Mission", "Digest", "Attempts", "Last error")
	for _, r := range recs {
		fmt.Printf("%-20s  %-14s  %8d  %s\n", shortID(r.Payload.MissionID, 20), shortID(r.Payload.Digest, 12), r.Attempts, r.LastError)
	}
	return nil
}

// runRetryMode sends every item in Failed/ once more with a fresh retry
// budget and waits for the queue to drain.
func runRetryMode(cfg config.Director, dbPath, journalDir string) error {
	if cfg.ExportEndpoint == "" {
		return fmt.Errorf("MISSION_EXPORT_ENDPOINT is not set")
	}
	j, err := export.OpenJournal(journalDir)
	if err != nil {
		return err
	}

	var opts []export.Option
	if dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer st.Close()
		opts = append(opts, export.WithRecorder(session.AttemptSink{Store: st}))
	}

	q := export.NewQueue(export.NewHTTPSender(cfg.ExportEndpoint, cfg.ExportToken, nil), j, cfg.ExportConfig(), opts...)
	if _, err := q.LoadPersistedOnStartup(); err != nil {
		return err
	}
	n := q.RetryFailedItems()
	fmt.Printf("re-sending %d items...\n", n)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := q.Flush(ctx); err != nil {
		return err
	}
	if err := q.Close(ctx); err != nil {
		return err
	}
	st := q.Stats()
	fmt.Printf("delivered %d, still awaiting manual sync %d\n", st.Delivered, st.Failed)
	return nil
}

// #endregion failed-mode

// #region helpers

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// #endregion helpers

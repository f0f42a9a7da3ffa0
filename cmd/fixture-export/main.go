package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/mission-director/internal/config"
	"github.com/danielpatrickdp/mission-director/internal/replay"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to missions.db")
	missionID := flag.String("mission", "", "mission id to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *missionID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/missions.db --mission id --out path/to/fixture.json")
		os.Exit(2)
	}

	if err := run(*dbPath, *missionID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, missionID, outPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	f, err := replay.FromStore(st, missionID, cfg.MaxDuration, cfg.TierTable())
	if err != nil {
		return fmt.Errorf("build fixture: %w", err)
	}

	// Refuse to write a fixture that does not replay cleanly.
	mismatches, err := replay.Verify(f)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(mismatches) > 0 {
		for _, m := range mismatches {
			fmt.Fprintf(os.Stderr, "  %s\n", m)
		}
		return fmt.Errorf("mission %s does not replay to its stored result", missionID)
	}

	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}
	fmt.Printf("Exported %s (%d events, digest %.12s) to %s\n", missionID, len(f.Events), f.Expected.Digest, outPath)
	return nil
}

// #endregion export

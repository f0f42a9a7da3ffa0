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
	dbPath := flag.String("db", "", "path to missions.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := flag.Int("last", 50, "DB mode: verify N most recent missions")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/missions.db [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode rebuilds a fixture for each stored mission and replays it.
func runDBMode(dbPath string, last int) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	list, err := st.ListMissions(last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list missions: %v\n", err)
		return 2
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "no missions found")
		return 0
	}

	var rows []row
	for _, summary := range list {
		f, err := replay.FromStore(st, summary.MissionID, cfg.MaxDuration, cfg.TierTable())
		if err != nil {
			rows = append(rows, row{Name: summary.MissionID, Err: err})
			continue
		}
		rows = append(rows, verify(summary.MissionID, f))
	}
	return printComparison(rows)
}

// #endregion db-mode

// #region output

type row struct {
	Name       string
	Err        error
	Mismatches []replay.Mismatch
}

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return printComparison([]row{verify(f.MissionID, f)})
}

func verify(name string, f *replay.Fixture) row {
	mismatches, err := replay.Verify(f)
	return row{Name: name, Err: err, Mismatches: mismatches}
}

// printComparison outputs one line per mission plus any mismatched fields
// and returns the exit code.
func printComparison(rows []row) int {
	fmt.Printf("%-24s| %s\n", "Mission", "Match")
	fmt.Printf("%-24s+%s\n", "------------------------", "------")

	diverge := 0
	for _, r := range rows {
		switch {
		case r.Err != nil:
			diverge++
			fmt.Printf("%-24s| ERROR %v\n", r.Name, r.Err)
		case len(r.Mismatches) > 0:
			diverge++
			fmt.Printf("%-24s| DIFF\n", r.Name)
			for _, m := range r.Mismatches {
				fmt.Printf("%-24s|   %s\n", "", m)
			}
		default:
			fmt.Printf("%-24s| OK\n", r.Name)
		}
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(rows), len(rows)-diverge, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output

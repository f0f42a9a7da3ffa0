package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMission(id string, start int64) MissionRecord {
	return MissionRecord{
		MissionID:        id,
		ContributorID:    "C001",
		State:            "completed",
		Success:          true,
		StartTimestamp:   start,
		CompletedAt:      time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
		ElapsedMillis:    300_000,
		Modules:          []string{"alarm", "datacore", "alarm"},
		FinalHeat:        9,
		HeatCap:          100,
		PerformanceScore: 0.818,
		Tier:             "Rare",
		Digest:           "abc",
		SeedVersion:      "sha256/v1",
		HeatLog: []HeatRow{
			{Seq: 1, Action: "alarm", Delta: -1, Applied: 0, Heat: 0},
			{Seq: 2, Action: "datacore", Delta: 10, Applied: 10, Heat: 10},
			{Seq: 3, Action: "alarm", Delta: -1, Applied: -1, Heat: 9},
		},
	}
}

func TestSaveAndGetMission(t *testing.T) {
	s := tempDB(t)
	if err := s.SaveMission(sampleMission("neon_vault", 1000)); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}

	got, err := s.GetMission("neon_vault")
	if err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if !got.Success || got.Tier != "Rare" || got.FinalHeat != 9 || got.ElapsedMillis != 300_000 {
		t.Errorf("unexpected record %+v", got)
	}
	if len(got.Modules) != 3 || got.Modules[2] != "alarm" {
		t.Errorf("expected modules with duplicates in order, got %v", got.Modules)
	}
	if len(got.HeatLog) != 3 || got.HeatLog[1].Applied != 10 || got.HeatLog[2].Heat != 9 {
		t.Errorf("unexpected heat log %+v", got.HeatLog)
	}
	if !got.CompletedAt.Equal(time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)) {
		t.Errorf("unexpected completed_at %s", got.CompletedAt)
	}
}

func TestSaveMission_Upsert(t *testing.T) {
	s := tempDB(t)
	rec := sampleMission("m1", 1000)
	if err := s.SaveMission(rec); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}
	rec.Tier = "Legendary"
	rec.HeatLog = rec.HeatLog[:1]
	if err := s.SaveMission(rec); err != nil {
		t.Fatalf("SaveMission again: %v", err)
	}
	got, err := s.GetMission("m1")
	if err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if got.Tier != "Legendary" || len(got.HeatLog) != 1 {
		t.Errorf("expected replaced row, got tier=%s heat rows=%d", got.Tier, len(got.HeatLog))
	}
}

func TestGetMission_NotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetMission("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListMissions_NewestFirst(t *testing.T) {
	s := tempDB(t)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveMission(sampleMission(id, int64(1000*(i+1)))); err != nil {
			t.Fatalf("SaveMission %s: %v", id, err)
		}
	}
	list, err := s.ListMissions(2)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(list) != 2 || list[0].MissionID != "c" || list[1].MissionID != "b" {
		t.Errorf("unexpected order %+v", list)
	}
	if list[0].HeatLog != nil {
		t.Error("expected list without heat logs")
	}
}

func TestFailedMissionNullableColumns(t *testing.T) {
	s := tempDB(t)
	rec := sampleMission("f1", 1000)
	rec.State = "failed"
	rec.Success = false
	rec.Tier = ""
	rec.Digest = ""
	rec.SeedVersion = ""
	rec.PerformanceScore = 0
	rec.Modules = nil
	if err := s.SaveMission(rec); err != nil {
		t.Fatalf("SaveMission: %v", err)
	}
	got, err := s.GetMission("f1")
	if err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if got.Success || got.Tier != "" || got.Digest != "" || len(got.Modules) != 0 {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestSetExportItem(t *testing.T) {
	s := tempDB(t)
	if err := s.SaveMission(sampleMission("m1", 1000)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetExportItem("m1", "item-1"); err != nil {
		t.Fatalf("SetExportItem: %v", err)
	}
	got, _ := s.GetMission("m1")
	if got.ExportItemID != "item-1" {
		t.Errorf("expected item-1, got %q", got.ExportItemID)
	}
	if err := s.SetExportItem("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAndListAttempts(t *testing.T) {
	s := tempDB(t)
	for i := 1; i <= 3; i++ {
		a := AttemptRecord{ItemID: "it", MissionID: "m1", Digest: "d", Attempt: i, State: "retry_pending", Error: "delivery failure"}
		if i == 3 {
			a.State = "delivered"
			a.Error = ""
			a.ReplayID = "rp-1"
		}
		if err := s.RecordAttempt(a); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	if err := s.RecordAttempt(AttemptRecord{ItemID: "other", MissionID: "m2", Attempt: 1, State: "delivered"}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListAttempts("m1")
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(list))
	}
	if list[0].Attempt != 1 || list[2].ReplayID != "rp-1" || list[2].Error != "" {
		t.Errorf("unexpected attempts %+v", list)
	}
	if list[0].CreatedAt.IsZero() {
		t.Error("expected created_at filled")
	}
}

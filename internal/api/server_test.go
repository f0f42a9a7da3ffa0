package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/mission-director/internal/export"
	"github.com/danielpatrickdp/mission-director/internal/store"
)

type fakeQueue struct {
	failed  []export.Item
	retried int
}

func (q *fakeQueue) GetFailedCount() int        { return len(q.failed) }
func (q *fakeQueue) FailedItems() []export.Item { return q.failed }
func (q *fakeQueue) RetryFailedItems() int {
	n := len(q.failed)
	q.retried += n
	q.failed = nil
	return n
}
func (q *fakeQueue) Stats() export.Stats { return export.Stats{Failed: len(q.failed), Delivered: 4} }

type fakeActive []string

func (a fakeActive) Active() []string { return a }

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func failedItem() export.Item {
	return export.Item{
		ID:            "it-1",
		MissionID:     "neon_vault",
		Digest:        "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		SeedVersion:   "sha256/v1",
		Timestamp:     1000,
		Modules:       []string{"alarm"},
		ContributorID: "C001",
		Heat:          9,
		Tier:          "Rare",
	}
}

func do(t *testing.T, h http.Handler, method, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestHealthAndRetry(t *testing.T) {
	q := &fakeQueue{failed: []export.Item{failedItem()}}
	h := NewServer(q, nil, nil).Routes()

	var health struct {
		Status string `json:"status"`
		Failed int    `json:"failed"`
	}
	if code := do(t, h, http.MethodGet, "/healthz", &health); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if health.Status != "degraded" || health.Failed != 1 {
		t.Errorf("unexpected health %+v", health)
	}

	var failed struct {
		Count int `json:"count"`
		Items []struct {
			ID      string         `json:"id"`
			Payload export.Payload `json:"payload"`
		} `json:"items"`
	}
	do(t, h, http.MethodGet, "/exports/failed", &failed)
	if failed.Count != 1 || failed.Items[0].ID != "it-1" || failed.Items[0].Payload.MissionID != "neon_vault" {
		t.Errorf("unexpected failed list %+v", failed)
	}

	var retry map[string]int
	if code := do(t, h, http.MethodPost, "/exports/retry", &retry); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	if retry["requeued"] != 1 || q.retried != 1 {
		t.Errorf("unexpected retry result %v", retry)
	}

	do(t, h, http.MethodGet, "/healthz", &health)
	if health.Status != "ok" {
		t.Errorf("expected ok after retry, got %s", health.Status)
	}

	if code := do(t, h, http.MethodGet, "/exports/retry", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET retry, got %d", code)
	}
}

func TestMissions(t *testing.T) {
	st := tempStore(t)
	rec := store.MissionRecord{
		MissionID:      "neon_vault",
		ContributorID:  "C001",
		State:          "completed",
		Success:        true,
		StartTimestamp: 1000,
		CompletedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ElapsedMillis:  300_000,
		Modules:        []string{"alarm", "datacore"},
		FinalHeat:      9,
		HeatCap:        100,
		Tier:           "Rare",
		HeatLog:        []store.HeatRow{{Seq: 0, Action: "alarm", Delta: -1}},
	}
	if err := st.SaveMission(rec); err != nil {
		t.Fatal(err)
	}
	if err := st.RecordAttempt(store.AttemptRecord{ItemID: "it", MissionID: "neon_vault", Attempt: 1, State: "delivered", ReplayID: "rp"}); err != nil {
		t.Fatal(err)
	}
	h := NewServer(&fakeQueue{}, st, fakeActive{"m2"}).Routes()

	var list struct {
		Missions []missionView `json:"missions"`
	}
	if code := do(t, h, http.MethodGet, "/missions?limit=10", &list); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(list.Missions) != 1 || list.Missions[0].Tier != "Rare" {
		t.Errorf("unexpected list %+v", list)
	}

	var one missionView
	if code := do(t, h, http.MethodGet, "/missions/neon_vault", &one); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(one.HeatLog) != 1 || len(one.Attempts) != 1 || one.Attempts[0].ReplayID != "rp" {
		t.Errorf("unexpected mission %+v", one)
	}

	if code := do(t, h, http.MethodGet, "/missions/missing", nil); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if code := do(t, h, http.MethodGet, "/missions?limit=x", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}

	var active struct {
		Missions []string `json:"missions"`
	}
	do(t, h, http.MethodGet, "/missions/active", &active)
	if len(active.Missions) != 1 || active.Missions[0] != "m2" {
		t.Errorf("unexpected active %+v", active)
	}
}

func TestMissions_NoStore(t *testing.T) {
	h := NewServer(&fakeQueue{}, nil, nil).Routes()
	if code := do(t, h, http.MethodGet, "/missions", nil); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
}

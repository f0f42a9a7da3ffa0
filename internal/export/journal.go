package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	itemsDir  = "items"
	failedDir = "Failed"
)

// #region record

// Record is the on-disk form of one item.
type Record struct {
	SchemaVersion string    `json:"schemaVersion"`
	ID            string    `json:"id"`
	State         ItemState `json:"state"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"lastError,omitempty"`
	RecordedAt    time.Time `json:"recordedAt"`
	Payload       Payload   `json:"payload"`
}

func recordOf(it Item, state ItemState, attempts int, lastErr error, at time.Time) Record {
	r := Record{
		SchemaVersion: SchemaVersion,
		ID:            it.ID,
		State:         state,
		Attempts:      attempts,
		RecordedAt:    at.UTC(),
		Payload:       PayloadOf(it),
	}
	if lastErr != nil {
		r.LastError = lastErr.Error()
	}
	return r
}

// #endregion record

// #region journal

// Journal stores records as JSON files: items/ holds one write-once audit
// record per enqueued item, Failed/ holds items awaiting manual sync.
// Only the queue's delivery loop writes to Failed/.
type Journal struct {
	root string
}

// OpenJournal creates the directory layout under root if needed.
func OpenJournal(root string) (*Journal, error) {
	for _, dir := range []string{itemsDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %s: %v", ErrPersistence, dir, err)
		}
	}
	return &Journal{root: root}, nil
}

// Root returns the journal directory.
func (j *Journal) Root() string { return j.root }

// FileName derives a unique name from mission id, digest and timestamp.
func FileName(p Payload) string {
	return fmt.Sprintf("%s_%s_%d.json", sanitize(p.MissionID), sanitize(p.Digest), p.Timestamp)
}

func sanitize(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Record writes the audit copy of an item. An existing record for the same
// item is left untouched.
func (j *Journal) Record(rec Record) error {
	path := filepath.Join(j.root, itemsDir, FileName(rec.Payload))
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("%w: create %s: %v", ErrPersistence, path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrPersistence, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrPersistence, path, err)
	}
	return nil
}

// PersistFailed writes (or atomically replaces) the manual-sync copy of an item.
func (j *Journal) PersistFailed(rec Record) error {
	dir := filepath.Join(j.root, failedDir)
	name := FileName(rec.Payload)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", ErrPersistence, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %v", ErrPersistence, tmpName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename %s: %v", ErrPersistence, name, err)
	}
	return nil
}

// RemoveFailed deletes the manual-sync copy. A missing file is not an error.
func (j *Journal) RemoveFailed(p Payload) error {
	err := os.Remove(filepath.Join(j.root, failedDir, FileName(p)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove failed record: %v", ErrPersistence, err)
	}
	return nil
}

// LoadFailed reads every record in Failed/, oldest first. Unreadable files
// are logged and skipped.
func (j *Journal) LoadFailed() ([]Record, error) {
	dir := filepath.Join(j.root, failedDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, dir, err)
	}
	var out []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, name))
		if err != nil {
			log.Printf("[EXPORT] skipping unreadable failed record %s: %v", name, err)
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].RecordedAt.Before(out[b].RecordedAt)
	})
	return out, nil
}

// ListItems reads every audit record in items/.
func (j *Journal) ListItems() ([]Record, error) {
	dir := filepath.Join(j.root, itemsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, dir, err)
	}
	var out []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Printf("[EXPORT] skipping unreadable record %s: %v", e.Name(), err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var raw struct {
		Record
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, err
	}
	if raw.SchemaVersion != SchemaVersion {
		return Record{}, fmt.Errorf("unsupported record version %q", raw.SchemaVersion)
	}
	p, err := DecodePayload(raw.Payload)
	if err != nil {
		return Record{}, err
	}
	rec := raw.Record
	rec.Payload = p
	return rec, nil
}

// #endregion journal

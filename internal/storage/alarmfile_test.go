package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

func TestAlarmFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alarms.json")
	f := NewAlarmFile(path)

	in := []models.Alarm{
		{RecordID: "r1", StoreTag: "O", FireAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
			Title: "dentist", Persistent: true},
		{RecordID: "r2", StoreTag: "O", FireAt: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
			Title: "rent", Persistent: true, DisplayNotify: true},
	}
	if err := f.Save(in); err != nil {
		t.Fatal(err)
	}

	out, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("loaded %d alarms, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].RecordID != in[i].RecordID || !out[i].FireAt.Equal(in[i].FireAt) {
			t.Errorf("entry %d changed: %+v vs %+v", i, out[i], in[i])
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("snapshot perms = %v, want 0600", info.Mode().Perm())
	}
}

func TestAlarmFileMissingIsEmpty(t *testing.T) {
	f := NewAlarmFile(filepath.Join(t.TempDir(), "nope.json"))
	out, err := f.Load()
	if err != nil {
		t.Fatalf("missing file should load empty, got %v", err)
	}
	if out != nil {
		t.Errorf("missing file loaded %d alarms", len(out))
	}
}

func TestAlarmFileUnparsableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alarms.json")
	if err := os.WriteFile(path, []byte("{{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewAlarmFile(path).Load()
	if !errors.Is(err, apperr.ErrCorruptAlarm) {
		t.Errorf("error %v does not wrap ErrCorruptAlarm", err)
	}
}

// One bad entry must not take down the rest of the snapshot.
func TestAlarmFileSkipsCorruptEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alarms.json")
	payload := `[
		{"record_id": "good", "fire_at": "2026-05-01T08:00:00Z", "title": "ok"},
		{"record_id": "bad", "fire_at": 12345},
		{"title": "no identity at all"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := NewAlarmFile(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].RecordID != "good" {
		t.Errorf("loaded %+v, want only the good entry", out)
	}
}

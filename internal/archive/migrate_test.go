package archive

import (
	"testing"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/models"
	"github.com/xfce-mirror/orage-sub000/internal/storage"
	"github.com/xfce-mirror/orage-sub000/internal/timeres"
)

func newTestMigrator(t *testing.T) (*Migrator, *storage.MemoryStore, *storage.MemoryStore) {
	t.Helper()
	res, err := timeres.New("UTC")
	if err != nil {
		t.Fatal(err)
	}
	primary := storage.NewMemoryStore("O", false)
	archive := storage.NewMemoryStore("A", false)
	reg := storage.NewRegistry()
	if err := reg.Mount(primary); err != nil {
		t.Fatal(err)
	}
	if err := reg.Mount(archive); err != nil {
		t.Fatal(err)
	}
	return NewMigrator(reg, res), primary, archive
}

func utcSpec(y int, mo time.Month, d, h int) models.TimeSpec {
	return models.TimeSpec{
		Wall: time.Date(y, mo, d, h, 0, 0, 0, time.UTC),
		Zone: models.ZoneUTC,
	}
}

func listIDs(t *testing.T, s *storage.MemoryStore) map[string]models.CalendarRecord {
	t.Helper()
	recs, err := s.ListRecords()
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]models.CalendarRecord, len(recs))
	for _, r := range recs {
		out[r.ID] = r
	}
	return out
}

func TestMigrateMovesOldAndKeepsRecent(t *testing.T) {
	m, primary, archive := newTestMigrator(t)
	threshold := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	old := models.CalendarRecord{ID: "old", Kind: models.KindEvent, Start: utcSpec(2025, 3, 1, 9)}
	recent := models.CalendarRecord{ID: "recent", Kind: models.KindEvent, Start: utcSpec(2026, 3, 1, 9)}
	for _, rec := range []models.CalendarRecord{old, recent} {
		if err := primary.AddRecord(rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Migrate(threshold); err != nil {
		t.Fatal(err)
	}

	p, a := listIDs(t, primary), listIDs(t, archive)
	if _, ok := a["old"]; !ok {
		t.Error("old event not archived")
	}
	if _, ok := p["old"]; ok {
		t.Error("old event still in primary")
	}
	if _, ok := p["recent"]; !ok {
		t.Error("recent event vanished from primary")
	}
	if len(a) != 1 {
		t.Errorf("archive holds %d records, want 1", len(a))
	}
}

// Completion dominates age: a todo that is not finished never archives.
func TestMigrateNeverArchivesUnfinishedTodos(t *testing.T) {
	m, primary, archive := newTestMigrator(t)
	threshold := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	uncompleted := models.CalendarRecord{ID: "open", Kind: models.KindTodo, Start: utcSpec(2024, 1, 1, 9)}
	earlyDone := utcSpec(2023, 12, 1, 9)
	completedBeforeStart := models.CalendarRecord{
		ID: "stale-completion", Kind: models.KindTodo,
		Start: utcSpec(2024, 1, 1, 9), Completed: &earlyDone,
	}
	done := utcSpec(2024, 2, 1, 9)
	completed := models.CalendarRecord{
		ID: "finished", Kind: models.KindTodo,
		Start: utcSpec(2024, 1, 1, 9), Completed: &done,
	}
	for _, rec := range []models.CalendarRecord{uncompleted, completedBeforeStart, completed} {
		if err := primary.AddRecord(rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Migrate(threshold); err != nil {
		t.Fatal(err)
	}

	p, a := listIDs(t, primary), listIDs(t, archive)
	if _, ok := p["open"]; !ok {
		t.Error("uncompleted todo was archived")
	}
	if _, ok := p["stale-completion"]; !ok {
		t.Error("todo completed before its start was archived")
	}
	if _, ok := a["finished"]; !ok {
		t.Error("properly finished old todo was not archived")
	}
}

func TestMigrateRewritesRecurringRecord(t *testing.T) {
	m, primary, archive := newTestMigrator(t)
	threshold := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	origStart := utcSpec(2025, 6, 1, 9)
	rec := models.CalendarRecord{
		ID: "series", Kind: models.KindEvent, Start: origStart,
		Recurrence: &models.RecurrenceRule{Freq: models.FreqDaily, Interval: 1},
	}
	if err := primary.AddRecord(rec); err != nil {
		t.Fatal(err)
	}

	if err := m.Migrate(threshold); err != nil {
		t.Fatal(err)
	}

	p := listIDs(t, primary)
	got, ok := p["series"]
	if !ok {
		t.Fatal("recurring record left the primary store")
	}
	if len(listIDs(t, archive)) != 0 {
		t.Error("recurring live record was archived")
	}
	if got.Shadow == nil || !got.Shadow.Start.Equal(origStart) {
		t.Fatalf("shadow window not stashed: %+v", got.Shadow)
	}
	wantStart := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	if !got.Start.Wall.Equal(wantStart) {
		t.Errorf("advanced start = %v, want %v", got.Start.Wall, wantStart)
	}

	// A repeated run must not clobber the stashed original.
	if err := m.Migrate(threshold); err != nil {
		t.Fatal(err)
	}
	again := listIDs(t, primary)["series"]
	if !again.Shadow.Start.Equal(origStart) {
		t.Errorf("second run overwrote the shadow window: %+v", again.Shadow)
	}
	if !again.Start.Equal(got.Start) {
		t.Errorf("second run moved the start again: %+v", again.Start)
	}
}

func TestMigrateMovesTerminatedSeries(t *testing.T) {
	m, primary, archive := newTestMigrator(t)
	threshold := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := models.CalendarRecord{
		ID: "ended", Kind: models.KindEvent, Start: utcSpec(2025, 6, 1, 9),
		Recurrence: &models.RecurrenceRule{Freq: models.FreqDaily, Interval: 1, Count: 3},
	}
	if err := primary.AddRecord(rec); err != nil {
		t.Fatal(err)
	}

	if err := m.Migrate(threshold); err != nil {
		t.Fatal(err)
	}

	if _, ok := listIDs(t, archive)["ended"]; !ok {
		t.Error("terminated series not archived")
	}
	if _, ok := listIDs(t, primary)["ended"]; ok {
		t.Error("terminated series still in primary")
	}
}

func TestUnarchiveRestoresEverything(t *testing.T) {
	m, primary, archive := newTestMigrator(t)
	threshold := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	origStart := utcSpec(2025, 6, 1, 9)
	moved := models.CalendarRecord{ID: "moved", Kind: models.KindEvent, Start: utcSpec(2025, 3, 1, 9)}
	series := models.CalendarRecord{
		ID: "series", Kind: models.KindEvent, Start: origStart,
		Recurrence: &models.RecurrenceRule{Freq: models.FreqDaily, Interval: 1},
	}
	for _, rec := range []models.CalendarRecord{moved, series} {
		if err := primary.AddRecord(rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Migrate(threshold); err != nil {
		t.Fatal(err)
	}
	if err := m.Unarchive(); err != nil {
		t.Fatal(err)
	}

	p, a := listIDs(t, primary), listIDs(t, archive)
	if len(a) != 0 {
		t.Errorf("archive not emptied: %d records", len(a))
	}
	back, ok := p["moved"]
	if !ok {
		t.Fatal("moved record did not return to primary")
	}
	if !back.Start.Equal(moved.Start) {
		t.Errorf("returned record changed: %+v", back.Start)
	}
	restored := p["series"]
	if restored.Shadow != nil {
		t.Errorf("shadow window not cleared: %+v", restored.Shadow)
	}
	if !restored.Start.Equal(origStart) {
		t.Errorf("original start not restored: %+v, want %+v", restored.Start, origStart)
	}
}

package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

// MemoryStore keeps records in a map keyed by id. It backs ephemeral
// foreign mounts and the test suite; the primary and archive stores are
// normally SQLite-backed.
type MemoryStore struct {
	tag      string
	readOnly bool

	mu      sync.Mutex
	open    bool
	records map[string]models.CalendarRecord

	// FailNext forces the next ListRecords call to fail, standing in for
	// an unreachable store.
	FailNext bool
}

func NewMemoryStore(tag string, readOnly bool) *MemoryStore {
	return &MemoryStore{
		tag:      tag,
		readOnly: readOnly,
		records:  make(map[string]models.CalendarRecord),
	}
}

func (m *MemoryStore) Tag() string    { return m.tag }
func (m *MemoryStore) ReadOnly() bool { return m.readOnly }

func (m *MemoryStore) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = true
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *MemoryStore) ListRecords() ([]models.CalendarRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return nil, fmt.Errorf("%w: store %s: forced failure", apperr.ErrStoreUnavailable, m.tag)
	}
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.CalendarRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.records[id])
	}
	return out, nil
}

func (m *MemoryStore) AddRecord(rec models.CalendarRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return fmt.Errorf("store %s is read-only", m.tag)
	}
	if _, dup := m.records[rec.ID]; dup {
		return fmt.Errorf("record %s already exists in store %s", rec.ID, m.tag)
	}
	rec.StoreTag = m.tag
	m.records[rec.ID] = rec
	return nil
}

func (m *MemoryStore) ModifyRecord(rec models.CalendarRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return fmt.Errorf("store %s is read-only", m.tag)
	}
	if _, ok := m.records[rec.ID]; !ok {
		return fmt.Errorf("record %s not found in store %s", rec.ID, m.tag)
	}
	rec.StoreTag = m.tag
	m.records[rec.ID] = rec
	return nil
}

func (m *MemoryStore) DeleteRecord(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return fmt.Errorf("store %s is read-only", m.tag)
	}
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("record %s not found in store %s", id, m.tag)
	}
	delete(m.records, id)
	return nil
}

package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xfce-mirror/orage-sub000/internal/constants"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

// Store is one calendar store: the primary ("O"), the archive ("A"), or a
// foreign mount ("F00".."F09"). The engine treats tags as opaque routing
// keys and never interprets record ids beyond equality.
type Store interface {
	Tag() string
	ReadOnly() bool

	Open() error
	Close() error

	ListRecords() ([]models.CalendarRecord, error)
	AddRecord(models.CalendarRecord) error
	ModifyRecord(models.CalendarRecord) error
	DeleteRecord(id string) error
}

// ValidTag reports whether a tag matches the store-tag grammar.
func ValidTag(tag string) bool {
	switch tag {
	case constants.PrimaryStoreTag, constants.ArchiveStoreTag:
		return true
	}
	if len(tag) != 3 || tag[:1] != constants.ForeignStoreTagPrefix {
		return false
	}
	return tag[1] >= '0' && tag[1] <= '9' && tag[2] >= '0' && tag[2] <= '9'
}

// Registry owns the set of mounted stores and the exclusive lock that
// migration holds while it rewrites the primary and archive stores.
type Registry struct {
	mu     sync.Mutex // guards the mount table
	stores map[string]Store

	writeMu sync.Mutex // exclusive store-rewrite lock, see WithLock
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

func (r *Registry) Mount(s Store) error {
	tag := s.Tag()
	if !ValidTag(tag) {
		return fmt.Errorf("invalid store tag %q", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.stores[tag]; dup {
		return fmt.Errorf("store tag %q already mounted", tag)
	}
	r.stores[tag] = s
	return nil
}

func (r *Registry) Get(tag string) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[tag]
	if !ok {
		return nil, fmt.Errorf("no store mounted for tag %q", tag)
	}
	return s, nil
}

// Stores returns all mounted stores in stable tag order.
func (r *Registry) Stores() []Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	tags := make([]string, 0, len(r.stores))
	for tag := range r.stores {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	out := make([]Store, 0, len(tags))
	for _, tag := range tags {
		out = append(out, r.stores[tag])
	}
	return out
}

// WithLock runs fn while holding the registry's exclusive write lock.
// Migration wraps its whole open-mutate-commit-close pass in it. The lock
// is released on every exit path, including fn failing.
func (r *Registry) WithLock(fn func() error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return fn()
}

// CloseAll closes every mounted store, keeping the first error.
func (r *Registry) CloseAll() error {
	var first error
	for _, s := range r.Stores() {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

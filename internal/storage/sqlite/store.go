// Package sqlite implements a calendar store on a single SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	all_day         INTEGER NOT NULL DEFAULT 0,
	start_json      TEXT NOT NULL,
	end_json        TEXT,
	use_duration    INTEGER NOT NULL DEFAULT 0,
	duration_sec    INTEGER NOT NULL DEFAULT 0,
	completed_json  TEXT,
	todo_base       TEXT NOT NULL DEFAULT 'start',
	recurrence_json TEXT,
	exceptions_json TEXT NOT NULL DEFAULT '[]',
	shadow_json     TEXT,
	alarm_json      TEXT,
	created_at      TEXT NOT NULL
);
`

type Store struct {
	tag      string
	path     string
	readOnly bool
	db       *sql.DB
}

func NewStore(tag, path string, readOnly bool) *Store {
	return &Store{tag: tag, path: path, readOnly: readOnly}
}

func (s *Store) Tag() string    { return s.tag }
func (s *Store) ReadOnly() bool { return s.readOnly }

func (s *Store) Open() error {
	if s.db != nil {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: store %s: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("%w: store %s: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("%w: store %s: creating schema: %v", apperr.ErrStoreUnavailable, s.tag, err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ready() error {
	if s.db == nil {
		return fmt.Errorf("%w: store %s is not open", apperr.ErrStoreUnavailable, s.tag)
	}
	return nil
}

func (s *Store) writable() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.readOnly {
		return fmt.Errorf("store %s is read-only", s.tag)
	}
	return nil
}

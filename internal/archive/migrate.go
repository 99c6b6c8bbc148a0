// Package archive moves aged-out records from the primary store to the
// archive store. Still-recurring records are not moved; their stored
// window advances to the next live occurrence while the original
// start/end is preserved in a shadow window so the operation is
// reversible.
package archive

import (
	"fmt"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/constants"
	"github.com/xfce-mirror/orage-sub000/internal/logger"
	"github.com/xfce-mirror/orage-sub000/internal/models"
	"github.com/xfce-mirror/orage-sub000/internal/recurrence"
	"github.com/xfce-mirror/orage-sub000/internal/storage"
	"github.com/xfce-mirror/orage-sub000/internal/timeres"
)

type Migrator struct {
	reg *storage.Registry
	res *timeres.Resolver
}

func NewMigrator(reg *storage.Registry, res *timeres.Resolver) *Migrator {
	return &Migrator{reg: reg, res: res}
}

// Migrate processes every primary-store record whose effective end lies
// strictly before threshold. The registry's exclusive write lock is held
// for the whole open-mutate-commit-close pass.
func (m *Migrator) Migrate(threshold time.Time) error {
	return m.reg.WithLock(func() error {
		primary, archive, err := m.openPair()
		if err != nil {
			return err
		}
		defer primary.Close()
		defer archive.Close()

		records, err := primary.ListRecords()
		if err != nil {
			return err
		}

		moved, rewritten := 0, 0
		for i := range records {
			rec := records[i]
			action, err := m.migrateRecord(&rec, primary, archive, threshold)
			if err != nil {
				logger.Warn("record skipped during archive run", "record", rec.ID, "error", err)
				continue
			}
			switch action {
			case actionMoved:
				moved++
			case actionRewritten:
				rewritten++
			}
		}
		logger.Info("archive run complete", "threshold", threshold.Format("2006-01-02"),
			"moved", moved, "rewritten", rewritten)
		return nil
	})
}

type action int

const (
	actionNone action = iota
	actionMoved
	actionRewritten
)

func (m *Migrator) migrateRecord(rec *models.CalendarRecord, primary, archive storage.Store, threshold time.Time) (action, error) {
	start, err := m.res.Resolve(rec.Start, rec.AllDay)
	if err != nil {
		return actionNone, err
	}
	end, err := m.res.EffectiveEnd(rec)
	if err != nil {
		return actionNone, err
	}
	if !end.Before(threshold) {
		return actionNone, nil
	}

	// Completion status dominates the age test: an uncompleted todo, or
	// one completed before its own start, stays live however old it is.
	if rec.Kind == models.KindTodo {
		if rec.Completed == nil {
			return actionNone, nil
		}
		completed, err := m.res.Resolve(*rec.Completed, false)
		if err != nil {
			return actionNone, err
		}
		if completed.Before(start) {
			return actionNone, nil
		}
	}

	if rec.Recurrence == nil {
		return actionMoved, moveRecord(rec, primary, archive)
	}

	// Walk the occurrence stream for the first occurrence whose computed
	// end reaches the threshold. A terminated series moves wholesale.
	duration := end.Sub(start)
	it, err := recurrence.Expand(rec.Recurrence, start, rec.AllDay, rec.Excluded())
	if err != nil {
		return actionNone, err
	}
	var next time.Time
	found := false
	for {
		occ, ok := it.Next()
		if !ok {
			break
		}
		if !occ.Add(duration).Before(threshold) {
			next = occ
			found = true
			break
		}
	}
	if !found {
		return actionMoved, moveRecord(rec, primary, archive)
	}

	// Stash the original window exactly once; a repeated run must not
	// clobber the true original.
	if rec.Shadow == nil {
		rec.Shadow = &models.ShadowWindow{Start: rec.Start, End: rec.End}
	}
	newStart, err := m.res.Respec(next, rec.Start, rec.AllDay)
	if err != nil {
		return actionNone, err
	}
	endLike := rec.End
	if endLike.IsZero() {
		endLike = rec.Start
	}
	newEnd, err := m.res.Respec(next.Add(duration), endLike, rec.AllDay)
	if err != nil {
		return actionNone, err
	}
	rec.Start = newStart
	rec.End = newEnd
	if err := primary.ModifyRecord(*rec); err != nil {
		return actionNone, err
	}
	return actionRewritten, nil
}

func moveRecord(rec *models.CalendarRecord, from, to storage.Store) error {
	if err := to.AddRecord(*rec); err != nil {
		return err
	}
	if err := from.DeleteRecord(rec.ID); err != nil {
		// Best effort rollback so the record is not duplicated.
		if derr := to.DeleteRecord(rec.ID); derr != nil {
			logger.Error("rollback after failed move left a duplicate", "record", rec.ID, "error", derr)
		}
		return err
	}
	return nil
}

// Unarchive reverses every past archive run in two strictly ordered
// phases: first every shadow window in the primary store is restored,
// then every archived record moves back. No scheduler rebuild may observe
// the state between a partially restored shadow set and returning
// records, which is why phase one completes for all records first.
func (m *Migrator) Unarchive() error {
	return m.reg.WithLock(func() error {
		primary, archive, err := m.openPair()
		if err != nil {
			return err
		}
		defer primary.Close()
		defer archive.Close()

		// Phase one: restore shadowed windows.
		records, err := primary.ListRecords()
		if err != nil {
			return err
		}
		restored := 0
		for i := range records {
			rec := records[i]
			if rec.Shadow == nil {
				continue
			}
			rec.Start = rec.Shadow.Start
			rec.End = rec.Shadow.End
			rec.Shadow = nil
			if err := primary.ModifyRecord(rec); err != nil {
				return fmt.Errorf("restoring record %s: %w", rec.ID, err)
			}
			restored++
		}

		// Phase two: move archived records home.
		archived, err := archive.ListRecords()
		if err != nil {
			return err
		}
		returned := 0
		for i := range archived {
			rec := archived[i]
			if err := moveRecord(&rec, archive, primary); err != nil {
				return fmt.Errorf("returning record %s: %w", rec.ID, err)
			}
			returned++
		}

		logger.Info("unarchive complete", "restored", restored, "returned", returned)
		return nil
	})
}

func (m *Migrator) openPair() (primary, archive storage.Store, err error) {
	primary, err = m.reg.Get(constants.PrimaryStoreTag)
	if err != nil {
		return nil, nil, err
	}
	archive, err = m.reg.Get(constants.ArchiveStoreTag)
	if err != nil {
		return nil, nil, err
	}
	if err = primary.Open(); err != nil {
		return nil, nil, err
	}
	if err = archive.Open(); err != nil {
		primary.Close()
		return nil, nil, err
	}
	return primary, archive, nil
}

// Package scheduler owns the pending-alarm list and the single timer that
// drives it. Rebuilds, timer fires and external recheck requests are all
// serviced from one goroutine; dispatch never interleaves with an
// in-progress rebuild.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xfce-mirror/orage-sub000/internal/alarm"
	"github.com/xfce-mirror/orage-sub000/internal/constants"
	"github.com/xfce-mirror/orage-sub000/internal/logger"
	"github.com/xfce-mirror/orage-sub000/internal/models"
	"github.com/xfce-mirror/orage-sub000/internal/notifier"
	"github.com/xfce-mirror/orage-sub000/internal/storage"
)

type Scheduler struct {
	reg      *storage.Registry
	calc     *alarm.Calculator
	snapshot *storage.AlarmFile // nil disables persistence
	dispatch notifier.Dispatcher

	// now is swappable so tests can replay fixed clocks.
	now func() time.Time

	pending []models.Alarm
	timer   *time.Timer
	armed   bool

	recheck chan struct{}
	snooze  chan models.Alarm
}

func New(reg *storage.Registry, calc *alarm.Calculator, snapshot *storage.AlarmFile, dispatch notifier.Dispatcher) *Scheduler {
	return &Scheduler{
		reg:      reg,
		calc:     calc,
		snapshot: snapshot,
		dispatch: dispatch,
		now:      time.Now,
		recheck:  make(chan struct{}, 1),
		snooze:   make(chan models.Alarm, 16),
	}
}

// Pending returns a copy of the current pending list, in firing order.
func (s *Scheduler) Pending() []models.Alarm {
	out := make([]models.Alarm, len(s.pending))
	copy(out, s.pending)
	return out
}

// Recheck asks the scheduler to treat the timer as fired with a freshly
// sampled now, e.g. after resume from suspend. Safe from any goroutine.
func (s *Scheduler) Recheck() {
	select {
	case s.recheck <- struct{}{}:
	default:
	}
}

// Snooze queues a one-off temporary alarm not backed by any record. It is
// retained across rebuilds until it fires.
func (s *Scheduler) Snooze(title string, fireAt time.Time) {
	s.snooze <- models.Alarm{
		ID:            uuid.NewString(),
		FireAt:        fireAt,
		Title:         title,
		Temporary:     true,
		DisplayInline: true,
		DisplayNotify: true,
	}
}

// LoadSnapshot seeds the pending list from the persisted snapshot before
// the first rebuild, so restart does not lose persistent alarms whose
// stores are temporarily unavailable.
func (s *Scheduler) LoadSnapshot() error {
	if s.snapshot == nil {
		return nil
	}
	alarms, err := s.snapshot.Load()
	if err != nil {
		return err
	}
	s.pending = alarms
	models.SortAlarms(s.pending)
	s.arm()
	return nil
}

// Run drives the firing loop until the context is cancelled. It performs
// an initial rebuild, then reacts to the armed timer, recheck requests
// and snooze submissions.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Rebuild(); err != nil {
		logger.Error("initial rebuild failed", "error", err)
	}
	defer s.disarm()

	for {
		var timerC <-chan time.Time
		if s.armed {
			timerC = s.timer.C
		}
		select {
		case <-ctx.Done():
			return nil
		case <-timerC:
			s.armed = false
			s.fire()
		case <-s.recheck:
			s.fire()
		case a := <-s.snooze:
			s.pending = append(s.pending, a)
			models.SortAlarms(s.pending)
			s.arm()
		}
	}
}

// Rebuild recomputes the whole pending list: every record in every open
// store contributes at most one alarm per trigger. Future temporary
// alarms survive untouched since no record can re-derive them. On store
// failure the previous list stays intact and a retry tick is armed.
func (s *Scheduler) Rebuild() error {
	now := s.now()

	records, err := s.collectRecords()
	if err != nil {
		logger.Error("rebuild aborted, keeping previous pending alarms", "error", err)
		s.armRetry()
		return err
	}

	var alarms []models.Alarm
	for _, a := range s.pending {
		if a.Temporary && a.FireAt.After(now) {
			alarms = append(alarms, a)
		}
	}

	for i := range records {
		rec := &records[i]
		if rec.Alarm == nil {
			continue
		}
		a, err := s.calc.NextAlarm(rec, rec.Alarm.Trigger, now)
		if err != nil {
			logger.Warn("record produced no alarm", "record", rec.ID, "store", rec.StoreTag, "error", err)
			continue
		}
		if a != nil {
			alarms = append(alarms, *a)
		}
	}

	models.SortAlarms(alarms)
	s.pending = alarms

	if s.snapshot != nil {
		var durable []models.Alarm
		for _, a := range alarms {
			if a.Persistent {
				durable = append(durable, a)
			}
		}
		if err := s.snapshot.Save(durable); err != nil {
			logger.Error("saving alarm snapshot failed", "error", err)
		}
	}

	s.arm()
	logger.Debug("rebuild complete", "pending", len(s.pending))
	return nil
}

func (s *Scheduler) collectRecords() ([]models.CalendarRecord, error) {
	var out []models.CalendarRecord
	for _, st := range s.reg.Stores() {
		// Stores open lazily; a migration pass may have closed them.
		if err := st.Open(); err != nil {
			return nil, err
		}
		recs, err := st.ListRecords()
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// fire dispatches every alarm that is due at a freshly sampled now, in
// non-decreasing firing order, then rebuilds. Rebuild is the only path
// back to an armed timer.
func (s *Scheduler) fire() {
	now := s.now()
	for _, a := range s.pending {
		if a.FireAt.IsZero() || a.FireAt.After(now) {
			break
		}
		if err := s.dispatch.Dispatch(a); err != nil {
			logger.Error("alarm dispatch failed", "record", a.RecordID, "error", err)
		}
	}
	if err := s.Rebuild(); err != nil {
		logger.Error("rebuild after firing failed", "error", err)
	}
}

// arm points the single timer at the head of the pending list, cancelling
// any previously armed timer first. An empty list (or one whose head has
// no firing time) leaves the scheduler idle.
func (s *Scheduler) arm() {
	s.disarm()
	if len(s.pending) == 0 || s.pending[0].FireAt.IsZero() {
		return
	}
	d := time.Until(s.pending[0].FireAt)
	if d < 0 {
		d = 0
	}
	s.timer = time.NewTimer(d)
	s.armed = true
}

func (s *Scheduler) armRetry() {
	s.disarm()
	s.timer = time.NewTimer(constants.RebuildRetryInterval)
	s.armed = true
}

func (s *Scheduler) disarm() {
	if s.timer != nil {
		if !s.timer.Stop() {
			select {
			case <-s.timer.C:
			default:
			}
		}
		s.timer = nil
	}
	s.armed = false
}

// Package alarm computes, for one calendar record and one trigger, the
// earliest alarm instant that has not yet passed. It is a pure
// computation over in-memory data: no I/O, no retained state.
package alarm

import (
	"fmt"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/constants"
	"github.com/xfce-mirror/orage-sub000/internal/models"
	"github.com/xfce-mirror/orage-sub000/internal/recurrence"
	"github.com/xfce-mirror/orage-sub000/internal/timeres"
)

type Calculator struct {
	res *timeres.Resolver
}

func NewCalculator(res *timeres.Resolver) *Calculator {
	return &Calculator{res: res}
}

// NextAlarm returns the earliest not-yet-passed alarm for the record, or
// nil when no firing is pending. The result is stable for a fixed now.
//
// Eligibility follows the completion-dominates rule for todos: a todo
// that was never completed, or was completed before the occurrence in
// question, is still pending no matter how far in the past the trigger
// instant lies. Events and journals compare against now.
func (c *Calculator) NextAlarm(rec *models.CalendarRecord, trig models.Trigger, now time.Time) (*models.Alarm, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	start, err := c.res.Resolve(rec.Start, rec.AllDay)
	if err != nil {
		return nil, err
	}
	end, err := c.res.EffectiveEnd(rec)
	if err != nil {
		return nil, err
	}

	anchor := start
	if trig.RelatedToEnd {
		anchor = end
	}
	candidate := anchor.Add(trig.Offset)
	if trig.Before {
		candidate = anchor.Add(-trig.Offset)
	}
	// The trigger distance from each occurrence's start. Constant across
	// the whole stream, including end-relative triggers, because every
	// occurrence keeps the original duration.
	alarmOffset := candidate.Sub(start)
	occDuration := end.Sub(start)

	var completed time.Time
	if rec.Kind == models.KindTodo && rec.Completed != nil {
		completed, err = c.res.Resolve(*rec.Completed, false)
		if err != nil {
			return nil, err
		}
	}

	var fireAt, occAt time.Time
	found := false

	if rec.Recurrence == nil {
		if c.pending(rec, start, candidate, completed, now) {
			fireAt, occAt, found = candidate, start, true
		}
	} else {
		streamStart := start
		if rec.Kind == models.KindTodo && rec.TodoBase == models.TodoBaseCompleted && !completed.IsZero() {
			streamStart = completed
		}
		it, err := recurrence.Expand(rec.Recurrence, streamStart, rec.AllDay, rec.Excluded())
		if err != nil {
			return nil, err
		}
		for {
			occ, ok := it.Next()
			if !ok {
				break
			}
			cand := occ.Add(alarmOffset)
			if c.pending(rec, occ, cand, completed, now) {
				fireAt, occAt, found = cand, occ, true
				break
			}
		}
	}

	// Include exceptions are explicit extra occurrences, each with its own
	// time-of-day. They compete with the rule-generated candidate and the
	// earliest qualifying one wins.
	for _, ex := range rec.Included() {
		cand := ex.At.Add(alarmOffset)
		if !c.pending(rec, ex.At, cand, completed, now) {
			continue
		}
		if !found || cand.Before(fireAt) {
			fireAt, occAt, found = cand, ex.At, true
		}
	}

	if !found {
		return nil, nil
	}

	a := &models.Alarm{
		RecordID:    rec.ID,
		StoreTag:    rec.StoreTag,
		FireAt:      c.res.ToLocal(fireAt),
		Title:       rec.Title,
		Description: rec.Description,
		ActionTime:  c.actionLabel(occAt, occDuration),
	}
	if rec.Alarm != nil {
		spec := rec.Alarm
		a.Persistent = spec.Persistent
		a.DisplayInline = spec.DisplayInline
		a.DisplayNotify = spec.DisplayNotify
		a.NotifyTimeout = spec.NotifyTimeout
		a.Audio = spec.Audio
		a.Sound = spec.Sound
		a.SoundRepeat = spec.SoundRepeat
		a.SoundDelay = spec.SoundDelay
		a.Procedure = spec.Procedure
		a.Command = spec.Command
	}
	return a, nil
}

// pending decides whether an occurrence's alarm is still worth firing.
// occ is the occurrence start, cand the alarm instant derived from it.
func (c *Calculator) pending(rec *models.CalendarRecord, occ, cand, completed, now time.Time) bool {
	if rec.Kind == models.KindTodo {
		if completed.IsZero() {
			return true
		}
		// Completion dominates: only occurrences the completion has not
		// caught up with are pending.
		return occ.After(completed)
	}
	return !cand.Before(now)
}

func (c *Calculator) actionLabel(occ time.Time, d time.Duration) string {
	startLocal := c.res.ToLocal(occ)
	if d <= 0 {
		return startLocal.Format(constants.ActionTimeLayout)
	}
	endLocal := c.res.ToLocal(occ.Add(d))
	return fmt.Sprintf("%s - %s",
		startLocal.Format(constants.ActionTimeLayout),
		endLocal.Format(constants.ActionTimeLayout))
}

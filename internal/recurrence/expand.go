// Package recurrence expands recurrence rules into ordered occurrence
// streams. The engine's rule model is compiled into an rrule and iterated
// lazily; an exclusion filter sits on top. A fresh iterator can always be
// built from (rule, dtstart) with no side effects on earlier ones.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/xfce-mirror/orage-sub000/internal/models"
)

// maxWalk caps a single expansion walk. Unbounded rules terminate on
// their own once a caller's predicate matches; the cap only guards
// against pathological rule/filter combinations that never produce a
// match.
const maxWalk = 100000

// Mon..Sun, matching the rule's by-day index order.
var weekdayTable = [7]rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

var freqTable = map[models.Frequency]rrule.Frequency{
	models.FreqDaily:   rrule.DAILY,
	models.FreqWeekly:  rrule.WEEKLY,
	models.FreqMonthly: rrule.MONTHLY,
	models.FreqYearly:  rrule.YEARLY,
	models.FreqHourly:  rrule.HOURLY,
}

// Iterator walks one expansion of a rule. Next returns occurrences in
// ascending order with excluded instants already filtered out.
type Iterator struct {
	next    rrule.Next
	allDay  bool
	exdates []models.Exception
	steps   int
}

// Expand validates the rule and builds a fresh iterator anchored at
// dtstart. The exclusion set is the record's excluded exceptions. Include
// exceptions are not produced here; the alarm calculator merges those
// separately.
func Expand(rule *models.RecurrenceRule, dtstart time.Time, allDay bool, excluded []models.Exception) (*Iterator, error) {
	r, err := Compile(rule, dtstart)
	if err != nil {
		return nil, err
	}
	ex := make([]models.Exception, 0, len(excluded))
	for _, e := range excluded {
		if e.Kind == models.ExcludeOccurrence {
			ex = append(ex, e)
		}
	}
	models.SortExceptions(ex)
	return &Iterator{
		next:    r.Iterator(),
		allDay:  allDay,
		exdates: ex,
	}, nil
}

// Next returns the next non-excluded occurrence. ok is false once the
// rule's own limit is exhausted or the safety cap is hit.
func (it *Iterator) Next() (time.Time, bool) {
	for it.steps < maxWalk {
		it.steps++
		t, ok := it.next()
		if !ok {
			return time.Time{}, false
		}
		if it.excluded(t) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

func (it *Iterator) excluded(t time.Time) bool {
	for _, ex := range it.exdates {
		if ex.AllDay && it.allDay {
			if sameDate(ex.At, t) {
				return true
			}
			continue
		}
		if ex.At.Equal(t) {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Compile turns the engine's rule model into an rrule anchored at
// dtstart. Count is enforced by the rrule itself, so it counts generated
// occurrences irrespective of any exclusion filtering layered above.
func Compile(rule *models.RecurrenceRule, dtstart time.Time) (*rrule.RRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:     freqTable[rule.Freq],
		Dtstart:  dtstart.Truncate(time.Second),
		Interval: rule.Interval,
		Wkst:     rrule.MO,
	}
	if rule.Count > 0 {
		opt.Count = rule.Count
	}
	if rule.Until != nil {
		// Until is an absolute limit; the UTC conversion keeps the stored
		// form zone-independent.
		opt.Until = rule.Until.UTC()
	}

	switch rule.Freq {
	case models.FreqWeekly:
		// All seven days selected means no filter at all; handing the full
		// set to the rrule would expand every single day instead.
		if rule.AnyByDay() && !rule.AllWeekdays() {
			opt.Byweekday = selectedWeekdays(rule, false)
		}
	case models.FreqMonthly:
		if rule.ByMonthDay != 0 {
			opt.Bymonthday = []int{rule.ByMonthDay}
		} else if rule.AnyByDay() {
			opt.Byweekday = selectedWeekdays(rule, true)
		}
	case models.FreqYearly:
		if rule.ByMonth != 0 {
			opt.Bymonth = []int{rule.ByMonth}
		}
		if rule.AnyByDay() {
			opt.Byweekday = selectedWeekdays(rule, true)
		}
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("compiling rule %q: %w", rule.String(), err)
	}
	return r, nil
}

func selectedWeekdays(rule *models.RecurrenceRule, withOrdinal bool) []rrule.Weekday {
	var out []rrule.Weekday
	for i, set := range rule.ByDay {
		if !set {
			continue
		}
		wd := weekdayTable[i]
		if withOrdinal && rule.ByDayOrd != 0 {
			wd = wd.Nth(rule.ByDayOrd)
		}
		out = append(out, wd)
	}
	return out
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
)

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
	FreqHourly  Frequency = "hourly"
)

// RecurrenceRule describes how a record repeats. ByDay is indexed Monday
// through Sunday. Count and Until are mutually optional limits; zero Count
// and nil Until mean an unbounded series. Until is compared as an absolute
// instant regardless of the rule's own zone.
type RecurrenceRule struct {
	Freq     Frequency  `json:"freq"`
	Interval int        `json:"interval"`
	Count    int        `json:"count,omitempty"`
	Until    *time.Time `json:"until,omitempty"`

	ByDay      [7]bool `json:"by_day"`
	ByDayOrd   int     `json:"by_day_ord,omitempty"`   // -9..9, 0 = none
	ByMonthDay int     `json:"by_month_day,omitempty"` // signed, negative from month end
	ByMonth    int     `json:"by_month,omitempty"`     // 1..12, yearly only
}

// Validate rejects malformed rules at construction time. Expansion never
// sees an invalid rule.
func (r *RecurrenceRule) Validate() error {
	switch r.Freq {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly, FreqHourly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", apperr.ErrInvalidRule, r.Freq)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval %d, must be >= 1", apperr.ErrInvalidRule, r.Interval)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: negative count %d", apperr.ErrInvalidRule, r.Count)
	}
	if r.ByDayOrd < -9 || r.ByDayOrd > 9 {
		return fmt.Errorf("%w: weekday ordinal %d out of range", apperr.ErrInvalidRule, r.ByDayOrd)
	}
	if r.ByMonthDay < -31 || r.ByMonthDay > 31 {
		return fmt.Errorf("%w: month day %d out of range", apperr.ErrInvalidRule, r.ByMonthDay)
	}
	if r.ByMonth < 0 || r.ByMonth > 12 {
		return fmt.Errorf("%w: month %d out of range", apperr.ErrInvalidRule, r.ByMonth)
	}
	if r.Freq == FreqMonthly && r.ByMonthDay != 0 && r.AnyByDay() {
		return fmt.Errorf("%w: monthly rule sets both by-month-day and by-day", apperr.ErrInvalidRule)
	}
	if r.Freq == FreqYearly && r.AnyByDay() && r.ByMonth == 0 {
		return fmt.Errorf("%w: yearly by-day rule needs a month", apperr.ErrInvalidRule)
	}
	if r.ByMonth != 0 && r.Freq != FreqYearly {
		return fmt.Errorf("%w: by-month is only valid on yearly rules", apperr.ErrInvalidRule)
	}
	return nil
}

// AnyByDay reports whether at least one weekday is selected.
func (r *RecurrenceRule) AnyByDay() bool {
	for _, set := range r.ByDay {
		if set {
			return true
		}
	}
	return false
}

// AllWeekdays reports whether every weekday bit is set, in which case a
// weekly by-day filter degenerates to no filter at all.
func (r *RecurrenceRule) AllWeekdays() bool {
	for _, set := range r.ByDay {
		if !set {
			return false
		}
	}
	return true
}

// Bounded reports whether the rule terminates on its own.
func (r *RecurrenceRule) Bounded() bool {
	return r.Count > 0 || r.Until != nil
}

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// String renders a compact human-readable description, e.g.
// "weekly x2 on Mon,Fri (5 times)".
func (r *RecurrenceRule) String() string {
	var b strings.Builder
	b.WriteString(string(r.Freq))
	if r.Interval > 1 {
		fmt.Fprintf(&b, " x%d", r.Interval)
	}
	if r.AnyByDay() && !r.AllWeekdays() {
		var days []string
		for i, set := range r.ByDay {
			if set {
				days = append(days, weekdayNames[i])
			}
		}
		fmt.Fprintf(&b, " on %s", strings.Join(days, ","))
		if r.ByDayOrd != 0 {
			fmt.Fprintf(&b, " (#%d)", r.ByDayOrd)
		}
	}
	if r.ByMonthDay != 0 {
		fmt.Fprintf(&b, " day %d", r.ByMonthDay)
	}
	if r.ByMonth != 0 {
		fmt.Fprintf(&b, " month %d", r.ByMonth)
	}
	if r.Count > 0 {
		fmt.Fprintf(&b, " (%d times)", r.Count)
	}
	if r.Until != nil {
		fmt.Fprintf(&b, " (until %s)", r.Until.UTC().Format("2006-01-02"))
	}
	return b.String()
}

// Package ics bridges calendar records to and from iCalendar VEVENT
// components. The engine itself consumes pre-parsed records; this bridge
// is what import/export feeds.
//
// Scope: events only. Todos and journals live in the stores and do not
// round-trip through iCalendar here.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/xfce-mirror/orage-sub000/internal/logger"
	"github.com/xfce-mirror/orage-sub000/internal/models"
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDate     = "20060102"

	propOrigStart = ical.ComponentProperty("X-ORIG-DTSTART")
	propOrigEnd   = ical.ComponentProperty("X-ORIG-DTEND")
)

// Export serializes the given records' events into a single iCalendar
// payload. Non-event records are skipped.
func Export(records []models.CalendarRecord) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	exported := 0
	for i := range records {
		rec := &records[i]
		if rec.Kind != models.KindEvent {
			continue
		}
		ev := cal.AddEvent(rec.ID)
		ev.SetDtStampTime(time.Now().UTC())
		setTimeProperty(ev, ical.ComponentPropertyDtStart, rec.Start, rec.AllDay)
		if !rec.End.IsZero() {
			setTimeProperty(ev, ical.ComponentPropertyDtEnd, rec.End, rec.AllDay)
		}
		if rec.Title != "" {
			ev.SetSummary(rec.Title)
		}
		if rec.Description != "" {
			ev.SetDescription(rec.Description)
		}
		if rec.Location != "" {
			ev.SetLocation(rec.Location)
		}
		if rec.Recurrence != nil {
			ev.SetProperty(ical.ComponentPropertyRrule, FormatRRule(rec.Recurrence))
		}
		for _, ex := range rec.Exceptions {
			if ex.Kind != models.ExcludeOccurrence {
				continue
			}
			if ex.AllDay {
				ev.AddProperty(ical.ComponentPropertyExdate, ex.At.Format(layoutDate),
					&ical.KeyValues{Key: "VALUE", Value: []string{"DATE"}})
			} else {
				ev.AddProperty(ical.ComponentPropertyExdate, ex.At.UTC().Format(layoutUTC))
			}
		}
		if rec.Shadow != nil {
			setTimeProperty(ev, propOrigStart, rec.Shadow.Start, rec.AllDay)
			setTimeProperty(ev, propOrigEnd, rec.Shadow.End, rec.AllDay)
		}
		exported++
	}
	if exported == 0 {
		return "", errors.New("no events to export")
	}
	return cal.Serialize(), nil
}

func setTimeProperty(ev *ical.VEvent, prop ical.ComponentProperty, ts models.TimeSpec, allDay bool) {
	if ts.IsZero() {
		return
	}
	switch {
	case allDay:
		ev.SetProperty(prop, ts.Wall.Format(layoutDate),
			&ical.KeyValues{Key: "VALUE", Value: []string{"DATE"}})
	case ts.Zone == models.ZoneUTC:
		ev.SetProperty(prop, ts.Wall.Format(layoutUTC))
	case ts.Zone == models.ZoneNamed:
		ev.SetProperty(prop, ts.Wall.Format(layoutFloating),
			&ical.KeyValues{Key: "TZID", Value: []string{ts.ZoneID}})
	default:
		ev.SetProperty(prop, ts.Wall.Format(layoutFloating))
	}
}

// Import parses an iCalendar payload into event records. Individual
// events that fail to parse are logged and skipped; the rest import.
func Import(body []byte) ([]models.CalendarRecord, error) {
	if len(body) == 0 {
		return nil, errors.New("empty calendar payload")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []models.CalendarRecord
	for _, ve := range cal.Events() {
		rec, err := importEvent(ve)
		if err != nil {
			logger.Warn("skipping unparsable event", "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func importEvent(ve *ical.VEvent) (models.CalendarRecord, error) {
	var rec models.CalendarRecord
	rec.Kind = models.KindEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return rec, errors.New("missing UID")
	}
	rec.ID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		rec.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		rec.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		rec.Location = p.Value
	}

	start, allDay, err := timeProperty(ve, ical.ComponentPropertyDtStart)
	if err != nil {
		return rec, fmt.Errorf("event %s: %w", rec.ID, err)
	}
	if start == nil {
		return rec, fmt.Errorf("event %s: missing DTSTART", rec.ID)
	}
	rec.Start = *start
	rec.AllDay = allDay

	if end, _, err := timeProperty(ve, ical.ComponentPropertyDtEnd); err == nil && end != nil {
		rec.End = *end
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule, err := ParseRRule(p.Value)
		if err != nil {
			return rec, fmt.Errorf("event %s: %w", rec.ID, err)
		}
		rec.Recurrence = rule
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			at, dateOnly, err := parseTimeValue(part)
			if err != nil {
				logger.Warn("skipping unparsable EXDATE", "event", rec.ID, "value", part)
				continue
			}
			rec.Exceptions = models.AddException(rec.Exceptions, models.Exception{
				At:     at,
				AllDay: dateOnly,
				Kind:   models.ExcludeOccurrence,
			})
		}
	}

	origStart, _, serr := timeProperty(ve, propOrigStart)
	origEnd, _, eerr := timeProperty(ve, propOrigEnd)
	if serr == nil && eerr == nil && origStart != nil && origEnd != nil {
		rec.Shadow = &models.ShadowWindow{Start: *origStart, End: *origEnd}
	}

	return rec, nil
}

// timeProperty reads one date/date-time property into a TimeSpec plus a
// date-only flag. A nil spec with nil error means the property is absent.
func timeProperty(ve *ical.VEvent, prop ical.ComponentProperty) (*models.TimeSpec, bool, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return nil, false, nil
	}
	tzid := propParam(p, "TZID")
	dateOnly := strings.EqualFold(propParam(p, "VALUE"), "DATE") || !strings.Contains(p.Value, "T")

	at, parsedDateOnly, err := parseTimeValue(p.Value)
	if err != nil {
		return nil, false, err
	}
	dateOnly = dateOnly || parsedDateOnly

	ts := models.TimeSpec{Wall: at}
	switch {
	case tzid != "":
		ts.Zone = models.ZoneNamed
		ts.ZoneID = tzid
	case strings.HasSuffix(p.Value, "Z"):
		ts.Zone = models.ZoneUTC
	default:
		ts.Zone = models.ZoneFloating
	}
	return &ts, dateOnly, nil
}

func propParam(p *ical.IANAProperty, key string) string {
	if p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseTimeValue reads the basic DATE / DATE-TIME / UTC forms into a wall
// reading. The zone kind is decided by the caller; only the fields count.
func parseTimeValue(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, false, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse(layoutUTC, v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.Parse(layoutFloating, v)
		return t, false, err
	default:
		t, err := time.Parse(layoutDate, v)
		return t, true, err
	}
}

var rruleFreqNames = map[models.Frequency]string{
	models.FreqDaily:   "DAILY",
	models.FreqWeekly:  "WEEKLY",
	models.FreqMonthly: "MONTHLY",
	models.FreqYearly:  "YEARLY",
	models.FreqHourly:  "HOURLY",
}

var rruleDayCodes = [7]string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// FormatRRule renders the rule in RFC 5545 RRULE form.
func FormatRRule(r *models.RecurrenceRule) string {
	parts := []string{"FREQ=" + rruleFreqNames[r.Freq]}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format(layoutUTC))
	}
	if r.AnyByDay() && !(r.Freq == models.FreqWeekly && r.AllWeekdays()) {
		var days []string
		for i, set := range r.ByDay {
			if !set {
				continue
			}
			if r.ByDayOrd != 0 && r.Freq != models.FreqWeekly {
				days = append(days, fmt.Sprintf("%d%s", r.ByDayOrd, rruleDayCodes[i]))
			} else {
				days = append(days, rruleDayCodes[i])
			}
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if r.ByMonthDay != 0 {
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", r.ByMonthDay))
	}
	if r.ByMonth != 0 {
		parts = append(parts, fmt.Sprintf("BYMONTH=%d", r.ByMonth))
	}
	return strings.Join(parts, ";")
}

var freqFromRRule = map[rrule.Frequency]models.Frequency{
	rrule.DAILY:   models.FreqDaily,
	rrule.WEEKLY:  models.FreqWeekly,
	rrule.MONTHLY: models.FreqMonthly,
	rrule.YEARLY:  models.FreqYearly,
	rrule.HOURLY:  models.FreqHourly,
}

// ParseRRule reads an RFC 5545 RRULE value into the engine's rule model
// and validates it.
func ParseRRule(value string) (*models.RecurrenceRule, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, fmt.Errorf("parsing RRULE %q: %w", value, err)
	}

	freq, ok := freqFromRRule[opt.Freq]
	if !ok {
		return nil, fmt.Errorf("unsupported RRULE frequency in %q", value)
	}
	rule := &models.RecurrenceRule{
		Freq:     freq,
		Interval: opt.Interval,
		Count:    opt.Count,
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}
	if !opt.Until.IsZero() {
		until := opt.Until.UTC()
		rule.Until = &until
	}
	for _, wd := range opt.Byweekday {
		day := wd.Day() // 0 = Monday in rrule ordering
		if day < 0 || day > 6 {
			continue
		}
		rule.ByDay[day] = true
		if n := wd.N(); n != 0 {
			rule.ByDayOrd = n
		}
	}
	if len(opt.Bymonthday) > 0 {
		rule.ByMonthDay = opt.Bymonthday[0]
	}
	if len(opt.Bymonth) > 0 {
		rule.ByMonth = opt.Bymonth[0]
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/models"
)

func TestFormatRRule(t *testing.T) {
	until := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rule models.RecurrenceRule
		want string
	}{
		{
			name: "daily",
			rule: models.RecurrenceRule{Freq: models.FreqDaily, Interval: 1},
			want: "FREQ=DAILY",
		},
		{
			name: "weekly by-day with count",
			rule: models.RecurrenceRule{Freq: models.FreqWeekly, Interval: 2, Count: 5,
				ByDay: [7]bool{true, false, false, false, true, false, false}},
			want: "FREQ=WEEKLY;INTERVAL=2;COUNT=5;BYDAY=MO,FR",
		},
		{
			name: "monthly last wednesday",
			rule: models.RecurrenceRule{Freq: models.FreqMonthly, Interval: 1, ByDayOrd: -1,
				ByDay: [7]bool{false, false, true, false, false, false, false}},
			want: "FREQ=MONTHLY;BYDAY=-1WE",
		},
		{
			name: "yearly with month and until",
			rule: models.RecurrenceRule{Freq: models.FreqYearly, Interval: 1, ByMonth: 6, Until: &until},
			want: "FREQ=YEARLY;UNTIL=20260601T090000Z;BYMONTH=6",
		},
		{
			name: "weekly all days omits the filter",
			rule: models.RecurrenceRule{Freq: models.FreqWeekly, Interval: 1,
				ByDay: [7]bool{true, true, true, true, true, true, true}},
			want: "FREQ=WEEKLY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRRule(&tt.rule); got != tt.want {
				t.Errorf("FormatRRule = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRRule(t *testing.T) {
	rule, err := ParseRRule("FREQ=WEEKLY;INTERVAL=2;COUNT=5;BYDAY=MO,FR")
	if err != nil {
		t.Fatal(err)
	}
	if rule.Freq != models.FreqWeekly || rule.Interval != 2 || rule.Count != 5 {
		t.Errorf("parsed rule wrong: %+v", rule)
	}
	if !rule.ByDay[0] || !rule.ByDay[4] || rule.ByDay[1] {
		t.Errorf("by-day mask wrong: %v", rule.ByDay)
	}

	if _, err := ParseRRule("FREQ=NEVER"); err == nil {
		t.Error("unknown frequency should not parse")
	}
}

func TestParseRRuleRoundTrip(t *testing.T) {
	rules := []models.RecurrenceRule{
		{Freq: models.FreqDaily, Interval: 1, Count: 10},
		{Freq: models.FreqWeekly, Interval: 3,
			ByDay: [7]bool{false, true, false, true, false, false, false}},
		{Freq: models.FreqMonthly, Interval: 1, ByMonthDay: -1},
		{Freq: models.FreqMonthly, Interval: 1, ByDayOrd: 2,
			ByDay: [7]bool{false, false, false, false, true, false, false}},
	}
	for _, in := range rules {
		out, err := ParseRRule(FormatRRule(&in))
		if err != nil {
			t.Errorf("rule %v: %v", in.String(), err)
			continue
		}
		if out.Freq != in.Freq || out.Interval != in.Interval || out.Count != in.Count ||
			out.ByDay != in.ByDay || out.ByDayOrd != in.ByDayOrd || out.ByMonthDay != in.ByMonthDay {
			t.Errorf("round trip changed the rule:\n in: %+v\nout: %+v", in, out)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	completedShadow := models.ShadowWindow{
		Start: models.TimeSpec{Wall: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), Zone: models.ZoneUTC},
		End:   models.TimeSpec{Wall: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), Zone: models.ZoneUTC},
	}
	in := []models.CalendarRecord{
		{
			ID:          "ev-1@oragealarmd",
			Kind:        models.KindEvent,
			Title:       "weekly sync",
			Description: "bring notes",
			Location:    "room 2",
			Start: models.TimeSpec{
				Wall:   time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
				Zone:   models.ZoneNamed,
				ZoneID: "Europe/Berlin",
			},
			End: models.TimeSpec{
				Wall:   time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
				Zone:   models.ZoneNamed,
				ZoneID: "Europe/Berlin",
			},
			Recurrence: &models.RecurrenceRule{Freq: models.FreqWeekly, Interval: 1,
				ByDay: [7]bool{true, false, false, false, false, false, false}},
			Exceptions: []models.Exception{
				{At: time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC), Kind: models.ExcludeOccurrence},
			},
			Shadow: &completedShadow,
		},
		{
			// Todos do not travel through the bridge.
			ID:    "td-1",
			Kind:  models.KindTodo,
			Title: "not exported",
			Start: models.TimeSpec{Wall: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC), Zone: models.ZoneUTC},
		},
	}

	payload, err := Export(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(payload, "BEGIN:VEVENT") {
		t.Fatalf("no VEVENT in payload:\n%s", payload)
	}
	if strings.Contains(payload, "not exported") {
		t.Error("todo leaked into the export")
	}

	out, err := Import([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("imported %d records, want 1", len(out))
	}
	got := out[0]
	if got.ID != "ev-1@oragealarmd" || got.Title != "weekly sync" || got.Location != "room 2" {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.Start.Zone != models.ZoneNamed || got.Start.ZoneID != "Europe/Berlin" {
		t.Errorf("start zone lost: %+v", got.Start)
	}
	if !got.Start.Wall.Equal(in[0].Start.Wall) {
		t.Errorf("start wall reading = %v, want %v", got.Start.Wall, in[0].Start.Wall)
	}
	if got.Recurrence == nil || got.Recurrence.Freq != models.FreqWeekly || !got.Recurrence.ByDay[0] {
		t.Errorf("recurrence lost: %+v", got.Recurrence)
	}
	if len(got.Exceptions) != 1 || !got.Exceptions[0].At.Equal(in[0].Exceptions[0].At) {
		t.Errorf("exceptions lost: %+v", got.Exceptions)
	}
	if got.Shadow == nil || !got.Shadow.Start.Wall.Equal(completedShadow.Start.Wall) {
		t.Errorf("shadow window lost: %+v", got.Shadow)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	if _, err := Import(nil); err == nil {
		t.Error("empty payload should fail")
	}
	if _, err := Import([]byte("not a calendar")); err == nil {
		t.Error("non-calendar payload should fail")
	}
}

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/xfce-mirror/orage-sub000/internal/apperr"
)

func TestRecurrenceRuleValidate(t *testing.T) {
	until := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rule    RecurrenceRule
		wantErr bool
	}{
		{
			name: "valid daily",
			rule: RecurrenceRule{Freq: FreqDaily, Interval: 1},
		},
		{
			name: "valid weekly with days and count",
			rule: RecurrenceRule{Freq: FreqWeekly, Interval: 2, Count: 5,
				ByDay: [7]bool{true, false, true, false, true, false, false}},
		},
		{
			name: "valid monthly last wednesday",
			rule: RecurrenceRule{Freq: FreqMonthly, Interval: 1, ByDayOrd: -1,
				ByDay: [7]bool{false, false, true, false, false, false, false}},
		},
		{
			name: "valid yearly with month and until",
			rule: RecurrenceRule{Freq: FreqYearly, Interval: 1, ByMonth: 5, Until: &until},
		},
		{
			name:    "unknown frequency",
			rule:    RecurrenceRule{Freq: "fortnightly", Interval: 1},
			wantErr: true,
		},
		{
			name:    "zero interval",
			rule:    RecurrenceRule{Freq: FreqDaily, Interval: 0},
			wantErr: true,
		},
		{
			name:    "negative interval",
			rule:    RecurrenceRule{Freq: FreqDaily, Interval: -3},
			wantErr: true,
		},
		{
			name:    "negative count",
			rule:    RecurrenceRule{Freq: FreqDaily, Interval: 1, Count: -1},
			wantErr: true,
		},
		{
			name:    "ordinal out of range",
			rule:    RecurrenceRule{Freq: FreqMonthly, Interval: 1, ByDayOrd: 10},
			wantErr: true,
		},
		{
			name:    "month day out of range",
			rule:    RecurrenceRule{Freq: FreqMonthly, Interval: 1, ByMonthDay: 42},
			wantErr: true,
		},
		{
			name: "monthly with both selectors",
			rule: RecurrenceRule{Freq: FreqMonthly, Interval: 1, ByMonthDay: 15,
				ByDay: [7]bool{true, false, false, false, false, false, false}},
			wantErr: true,
		},
		{
			name: "yearly by-day without month",
			rule: RecurrenceRule{Freq: FreqYearly, Interval: 1,
				ByDay: [7]bool{true, false, false, false, false, false, false}},
			wantErr: true,
		},
		{
			name:    "by-month on weekly rule",
			rule:    RecurrenceRule{Freq: FreqWeekly, Interval: 1, ByMonth: 3},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				if !errors.Is(err, apperr.ErrInvalidRule) {
					t.Errorf("error %v does not wrap ErrInvalidRule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRecurrenceRuleByDayHelpers(t *testing.T) {
	var none RecurrenceRule
	if none.AnyByDay() {
		t.Error("empty mask should report no days")
	}
	all := RecurrenceRule{ByDay: [7]bool{true, true, true, true, true, true, true}}
	if !all.AnyByDay() || !all.AllWeekdays() {
		t.Error("full mask should report any and all days")
	}
	some := RecurrenceRule{ByDay: [7]bool{true, false, true, false, true, false, false}}
	if !some.AnyByDay() || some.AllWeekdays() {
		t.Error("partial mask should report any but not all days")
	}
}

func TestRecurrenceRuleBounded(t *testing.T) {
	until := time.Now()
	tests := []struct {
		name string
		rule RecurrenceRule
		want bool
	}{
		{"unbounded", RecurrenceRule{Freq: FreqDaily, Interval: 1}, false},
		{"count", RecurrenceRule{Freq: FreqDaily, Interval: 1, Count: 3}, true},
		{"until", RecurrenceRule{Freq: FreqDaily, Interval: 1, Until: &until}, true},
	}
	for _, tt := range tests {
		if got := tt.rule.Bounded(); got != tt.want {
			t.Errorf("%s: Bounded() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

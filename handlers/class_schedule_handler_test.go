package handlers

import (
	"testing"
	"time"

	"qr-attendance-backend/models"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestExpandSchedulesWeeklyRule(t *testing.T) {
	rules := []models.ClassSchedule{
		{
			Subject:        "Math",
			Date:           "2026-08-03", // a Monday
			StartTime:      "08:00",
			EndTime:        "09:30",
			RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO",
		},
	}

	got := ExpandSchedules(rules, day("2026-08-01"), day("2026-08-31"), map[string]bool{})

	wantDates := []string{"2026-08-03", "2026-08-10", "2026-08-17", "2026-08-24", "2026-08-31"}
	if len(got) != len(wantDates) {
		t.Fatalf("expanded %d occurrences, want %d: %+v", len(got), len(wantDates), got)
	}
	for i, occ := range got {
		if occ.Date != wantDates[i] {
			t.Errorf("occurrence[%d].Date = %q, want %q", i, occ.Date, wantDates[i])
		}
		if occ.Subject != "Math" || occ.StartTime != "08:00" {
			t.Errorf("occurrence[%d] lost rule fields: %+v", i, occ)
		}
	}
}

func TestExpandSchedulesSkipsHolidays(t *testing.T) {
	rules := []models.ClassSchedule{
		{
			Subject:        "Physics",
			Date:           "2026-08-03",
			RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO",
		},
	}
	holidays := map[string]bool{"2026-08-17": true}

	got := ExpandSchedules(rules, day("2026-08-01"), day("2026-08-31"), holidays)

	for _, occ := range got {
		if occ.Date == "2026-08-17" {
			t.Error("occurrence on a holiday was not skipped")
		}
	}
	if len(got) != 4 {
		t.Errorf("expanded %d occurrences, want 4", len(got))
	}
}

func TestExpandSchedulesOneOffRules(t *testing.T) {
	rules := []models.ClassSchedule{
		{Subject: "Chemistry", Date: "2026-08-12"},
		{Subject: "Chemistry", Date: "2026-09-02"}, // outside the window
		{Subject: "Biology", Date: "2026-08-17"},   // a holiday
	}
	holidays := map[string]bool{"2026-08-17": true}

	got := ExpandSchedules(rules, day("2026-08-01"), day("2026-08-31"), holidays)

	if len(got) != 1 {
		t.Fatalf("expanded %d occurrences, want 1: %+v", len(got), got)
	}
	if got[0].Subject != "Chemistry" || got[0].Date != "2026-08-12" {
		t.Errorf("kept the wrong occurrence: %+v", got[0])
	}
}

func TestExpandSchedulesIgnoresBrokenRules(t *testing.T) {
	rules := []models.ClassSchedule{
		{Subject: "Math", Date: "2026-08-03", RecurrenceRule: "FREQ=NONSENSE"},
		{Subject: "Math", Date: "not-a-date"},
	}

	got := ExpandSchedules(rules, day("2026-08-01"), day("2026-08-31"), map[string]bool{})
	if len(got) != 0 {
		t.Errorf("broken rules produced %d occurrences, want 0: %+v", len(got), got)
	}
}

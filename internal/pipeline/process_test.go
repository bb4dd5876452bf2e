package pipeline_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jflaig13/mise-core-sub000/internal/pipeline"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
	"github.com/jflaig13/mise-core-sub000/internal/shiftdate"
)

const rosterYAML = `
employees:
  - name: Alice Nguyen
    variants: [allie]
  - name: Bob Martinez
    variants: [bobby]
  - name: Carol Smith
    support: true
`

// Monday 24 November 2025.
var monday = time.Date(2025, time.November, 24, 0, 0, 0, 0, time.UTC)

var mondayPM = shiftdate.Hints{Date: monday, Period: shift.PM}

func testRoster(t *testing.T) *roster.Roster {
	t.Helper()
	r, err := roster.LoadFromReader(strings.NewReader(rosterYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return r
}

func assertPayouts(t *testing.T, rec *shift.Record, want map[string]string) {
	t.Helper()
	got := rec.Amounts()
	if len(got) != len(want) {
		t.Errorf("got %d payouts %v, want %d", len(got), got, len(want))
	}
	for name, amt := range want {
		if v, ok := got[name]; !ok || v.StringFixed(2) != amt {
			t.Errorf("%s = %s, want %s", name, v.StringFixed(2), amt)
		}
	}
}

func TestProcess_SingleServerWithUtility(t *testing.T) {
	t.Parallel()

	rec, err := pipeline.Process("Servers tonight. Alice had 200 dollars in tips and 400 in food sales. "+
		"Utility Carol.", testRoster(t), mondayPM)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	assertPayouts(t, rec, map[string]string{"Alice Nguyen": "180.00", "Carol Smith": "20.00"})
	if rec.Context.Code != "MPM" {
		t.Errorf("code = %s, want MPM", rec.Context.Code)
	}
	if rec.ID == "" {
		t.Error("record has no ID")
	}

	rows := rec.Rows()
	if len(rows) != 2 || rows[0].Employee != "Alice Nguyen" || rows[1].Category != shift.CategorySupport {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].FoodSales == nil || rows[0].FoodSales.StringFixed(2) != "400.00" {
		t.Errorf("server food sales = %v, want 400.00", rows[0].FoodSales)
	}
	if rows[1].FoodSales != nil {
		t.Errorf("support food sales = %v, want nil", rows[1].FoodSales)
	}
}

func TestProcess_SpokenDatePooled(t *testing.T) {
	t.Parallel()

	p := pipeline.NewProcessor(pipeline.WithDetector(shiftdate.New(
		shiftdate.WithClock(func() time.Time { return monday.Add(15 * time.Hour) }),
	)))
	rec, err := p.Process("November twenty fourth dinner shift. Servers Alice 130.98 Bob 169.31. No utility.",
		testRoster(t), shiftdate.Hints{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	assertPayouts(t, rec, map[string]string{"Alice Nguyen": "150.15", "Bob Martinez": "150.14"})
	if rec.Context.Code != "MPM" || rec.Context.DateSource != shift.DateMonthDay {
		t.Errorf("context = %s from %s, want MPM from month_day", rec.Context.Code, rec.Context.DateSource)
	}
}

func TestProcess_ScheduleReachesExtractionAndDistribution(t *testing.T) {
	t.Parallel()

	sched := shift.DefaultSchedule()
	sched["MPM"] = shift.Window{Start: 17 * 60, End: 21 * 60}
	p := pipeline.NewProcessor(pipeline.WithSchedule(sched))

	rec, err := p.Process("Servers Alice 200. Bob 200. Bob left at 7:00.", testRoster(t), mondayPM)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	assertPayouts(t, rec, map[string]string{"Alice Nguyen": "300.00", "Bob Martinez": "100.00"})
}

func TestProcess_ServerListThenPerNameAmounts(t *testing.T) {
	t.Parallel()

	rec, err := pipeline.Process("Servers were Alice and Bob. Alice made 150. Bob made 150.", testRoster(t), mondayPM)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := rec.TotalPool.StringFixed(2); got != "300.00" {
		t.Errorf("TotalPool = %s, want 300.00", got)
	}
	assertPayouts(t, rec, map[string]string{"Alice Nguyen": "150.00", "Bob Martinez": "150.00"})
}

func TestProcess_Failures(t *testing.T) {
	t.Parallel()
	r := testRoster(t)

	tests := []struct {
		name   string
		text   string
		roster *roster.Roster
		hints  shiftdate.Hints
		stage  shift.Stage
		kind   error
	}{
		{"no roster", "Servers Alice 200.", nil, mondayPM, shift.StageRoster, shift.ErrConfiguration},
		{"no period", "Servers Alice 200.", r, shiftdate.Hints{Date: monday}, shift.StageDate, shift.ErrAmbiguousDate},
		{"unknown name", "Servers Alice 200. Zelda 150.", r, mondayPM, shift.StageExtract, shift.ErrUnresolvedName},
		{"amount in words", "Alice had two hundred dollars. Bob 100.", r, mondayPM, shift.StageExtract, shift.ErrUnparseableAmount},
		{"server without amount", "Servers Alice 200. Bob.", r, mondayPM, shift.StageExtract, shift.ErrUnparseableAmount},
		{"nothing extracted", "nothing to report tonight.", r, mondayPM, shift.StageExtract, shift.ErrEmptyResult},
		{"support without tipout base", "Servers Alice 200. Utility Carol.", r, mondayPM, shift.StageDistribution, shift.ErrConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec, err := pipeline.Process(tc.text, tc.roster, tc.hints)
			if rec != nil {
				t.Errorf("record = %+v, want nil", rec)
			}
			if !errors.Is(err, tc.kind) {
				t.Fatalf("error = %v, want %v", err, tc.kind)
			}
			var se *shift.Error
			if !errors.As(err, &se) {
				t.Fatalf("error type = %T, want *shift.Error", err)
			}
			if se.Stage != tc.stage {
				t.Errorf("stage = %s, want %s", se.Stage, tc.stage)
			}
		})
	}
}

func TestKindLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind error
		want string
	}{
		{shift.ErrUnresolvedName, "unresolved_name"},
		{shift.ErrUnparseableAmount, "unparseable_amount"},
		{shift.ErrAmbiguousDate, "ambiguous_date"},
		{shift.ErrEmptyResult, "empty_result"},
		{shift.ErrConsistency, "consistency"},
		{shift.ErrConfiguration, "configuration"},
		{errors.New("boom"), "other"},
	}
	for _, tc := range tests {
		if got := pipeline.KindLabel(tc.kind); got != tc.want {
			t.Errorf("KindLabel(%v) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

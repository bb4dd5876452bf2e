package extract_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/extract"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

const rosterYAML = `
employees:
  - name: Alice Nguyen
    variants: [allie]
  - name: Bob Martinez
    variants: [bobby]
  - name: Carol Smith
    support: true
  - name: Dan Brown
    variants: [danny]
    support: true
  - name: Erin Walsh
    support: true
  - name: Mike Jones
  - name: Mike Smith
`

func newExtractor(t *testing.T, opts ...extract.Option) *extract.Extractor {
	t.Helper()
	r, err := roster.LoadFromReader(strings.NewReader(rosterYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return extract.New(r, opts...)
}

func mustExtract(t *testing.T, e *extract.Extractor, text string) *shift.Facts {
	t.Helper()
	facts, err := e.Extract(text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return facts
}

// amounts flattens facts to "Name/role" -> amount.
func amounts(facts *shift.Facts) map[string]string {
	out := make(map[string]string)
	for _, f := range facts.All() {
		out[f.Employee+"/"+string(f.Role)] = f.Amount.StringFixed(2)
	}
	return out
}

func assertAmounts(t *testing.T, facts *shift.Facts, want map[string]string) {
	t.Helper()
	got := amounts(facts)
	if len(got) != len(want) {
		t.Errorf("got %d facts %v, want %d %v", len(got), got, len(want), want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestExtract_GroupedServersWithUtility(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers were Alice, Bob and Mike Jones, they made 993.24 total. "+
		"Total food sales 1,911.50. Utility was Carol and Dan.")

	assertAmounts(t, facts, map[string]string{
		"Alice Nguyen/server": "331.08",
		"Bob Martinez/server": "331.08",
		"Mike Jones/server":   "331.08",
		"Carol Smith/utility": "0.00",
		"Dan Brown/utility":   "0.00",
	})
	if facts.TotalFoodSales == nil || !facts.TotalFoodSales.Equal(decimal.RequireFromString("1911.50")) {
		t.Errorf("TotalFoodSales = %v, want 1911.50", facts.TotalFoodSales)
	}
	for _, f := range facts.ByRole(shift.RoleServer) {
		if f.Pass != extract.PassGrouped {
			t.Errorf("%s pass = %q, want %q", f.Employee, f.Pass, extract.PassGrouped)
		}
	}
}

func TestExtract_GroupedServersEach(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers were Alice and Bob, they each made $150.")
	assertAmounts(t, facts, map[string]string{
		"Alice Nguyen/server": "150.00",
		"Bob Martinez/server": "150.00",
	})
}

func TestExtract_ServerListThenPerNameSentences(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "list sentence then amounts",
			text: "Servers were Alice and Bob. Alice made 150. Bob made 150.",
			want: map[string]string{"Alice Nguyen/server": "150.00", "Bob Martinez/server": "150.00"},
		},
		{
			name: "amounts with different values",
			text: "Servers were Alice, Bob and Mike Jones. Alice made 200. Bob made 150. Mike Jones 100.",
			want: map[string]string{
				"Alice Nguyen/server": "200.00",
				"Bob Martinez/server": "150.00",
				"Mike Jones/server":   "100.00",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			facts := mustExtract(t, e, tc.text)
			assertAmounts(t, facts, tc.want)
			for _, f := range facts.All() {
				if f.Pass == extract.PassGrouped {
					t.Errorf("%s came from the grouped pass, want per-name amounts", f.Employee)
				}
			}
		})
	}
}

func TestExtract_RepeatedNameIsNotGrouped(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	_, err := e.Extract("Servers were Alice, Bob, Alice 300.")
	if !errors.Is(err, shift.ErrUnparseableAmount) {
		t.Fatalf("error = %v, want ErrUnparseableAmount for Bob", err)
	}
}

func TestExtract_InlineServers(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers Alice 130.98 Bob 169.31. No utility.")
	assertAmounts(t, facts, map[string]string{
		"Alice Nguyen/server": "130.98",
		"Bob Martinez/server": "169.31",
	})
	if got := facts.ByRole(shift.RoleUtility); len(got) != 0 {
		t.Errorf("utility facts = %v, want none", got)
	}
}

func TestExtract_FallbackAmountShapes(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Alice made 52. 03 and Bob had 111 dollars and twelve cents. "+
		"Mike Jones 7504 and that's it")
	assertAmounts(t, facts, map[string]string{
		"Alice Nguyen/server": "52.03",
		"Bob Martinez/server": "111.12",
		"Mike Jones/server":   "75.04",
	})
	for _, f := range facts.All() {
		if f.Pass != extract.PassFallback {
			t.Errorf("%s pass = %q, want %q", f.Employee, f.Pass, extract.PassFallback)
		}
	}
}

func TestExtract_SupportSections(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name   string
		text   string
		want   map[string]string
		stated map[shift.Role]string
	}{
		{
			name: "per name and shared",
			text: "Expo Erin 19.12. Bussers were Carol and Dan, 76.46 total. Servers Alice 200. Bob 300.",
			want: map[string]string{
				"Erin Walsh/expo":     "19.12",
				"Carol Smith/busser":  "38.23",
				"Dan Brown/busser":    "38.23",
				"Alice Nguyen/server": "200.00",
				"Bob Martinez/server": "300.00",
			},
			stated: map[shift.Role]string{shift.RoleExpo: "19.12", shift.RoleBusser: "76.46"},
		},
		{
			name: "each",
			text: "Utility Carol and Dan 20 each. Servers Alice 200.",
			want: map[string]string{
				"Carol Smith/utility": "20.00",
				"Dan Brown/utility":   "20.00",
				"Alice Nguyen/server": "200.00",
			},
			stated: map[shift.Role]string{shift.RoleUtility: "40.00"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			facts := mustExtract(t, e, tc.text)
			assertAmounts(t, facts, tc.want)
			for role, want := range tc.stated {
				got, ok := facts.StatedTipout[role]
				if !ok || got.StringFixed(2) != want {
					t.Errorf("StatedTipout[%s] = %v, want %s", role, got, want)
				}
			}
		})
	}
}

func TestExtract_FoodSalesPerServer(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers tonight. Alice had 200 dollars in tips and 400 in food sales. "+
		"Bob had 150 dollars and 50 cents in tips and 300 in food sales. Utility Carol.")
	assertAmounts(t, facts, map[string]string{
		"Alice Nguyen/server": "200.00",
		"Bob Martinez/server": "150.50",
		"Carol Smith/utility": "0.00",
	})
	wantSales := map[string]string{"Alice Nguyen": "400.00", "Bob Martinez": "300.00"}
	for _, f := range facts.ByRole(shift.RoleServer) {
		if f.FoodSales == nil {
			t.Errorf("%s has no food sales", f.Employee)
			continue
		}
		if got := f.FoodSales.StringFixed(2); got != wantSales[f.Employee] {
			t.Errorf("%s food sales = %s, want %s", f.Employee, got, wantSales[f.Employee])
		}
	}
	if facts.TotalFoodSales != nil {
		t.Errorf("TotalFoodSales = %s, want nil", facts.TotalFoodSales)
	}
}

func TestExtract_SalesWithoutServer(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	_, err := e.Extract("Utility Carol 20. Carol had 400 in food sales.")
	if !errors.Is(err, shift.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestExtract_PresenceAndPooling(t *testing.T) {
	t.Parallel()
	e := newExtractor(t, extract.WithWindow(shift.DefaultPM))

	facts := mustExtract(t, e, "Servers Alice 200. Bob 180. Bob left at 7:30. "+
		"We closed at 10:30. They kept their own tips.")
	assertAmounts(t, facts, map[string]string{
		"Alice Nguyen/server": "200.00",
		"Bob Martinez/server": "180.00",
	})
	if !facts.KeepIndividually {
		t.Error("KeepIndividually = false, want true")
	}
	if facts.CloseMinutes != 22*60+30 {
		t.Errorf("CloseMinutes = %s, want 22:30", shift.Clock(facts.CloseMinutes))
	}
	p, ok := facts.PresenceFor("Bob Martinez")
	if !ok || p.Left != 19*60+30 || p.Arrived != 0 {
		t.Errorf("presence = %+v, want left 19:30", p)
	}
	if _, ok := facts.PresenceFor("Alice Nguyen"); ok {
		t.Error("Alice has a presence statement, want none")
	}
}

func TestExtract_TimeStatements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		window  shift.Window
		text    string
		arrived int
		left    int
	}{
		{"worked from to", shift.DefaultPM, "Servers Alice 200. Alice worked from 5 to 9.", 17 * 60, 21 * 60},
		{"lunch departure", shift.DefaultAM, "Servers Alice 200. Alice left at 1:30.", 0, 13*60 + 30},
		{"spoken time", shift.DefaultPM, "Servers Alice 200. Alice got cut at seven thirty.", 0, 19*60 + 30},
		{"arrival", shift.DefaultPM, "Servers Alice 200. Alice came in at 6 pm.", 18 * 60, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newExtractor(t, extract.WithWindow(tc.window))
			facts := mustExtract(t, e, tc.text)
			p, ok := facts.PresenceFor("Alice Nguyen")
			if !ok {
				t.Fatal("no presence for Alice")
			}
			if p.Arrived != tc.arrived || p.Left != tc.left {
				t.Errorf("presence = %s-%s, want %s-%s",
					shift.Clock(p.Arrived), shift.Clock(p.Left), shift.Clock(tc.arrived), shift.Clock(tc.left))
			}
		})
	}
}

func TestExtract_Hours(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers Alice 200. Bob 180. Alice worked 6 hours. Bob worked six and a half hours.")
	want := map[string]string{"Alice Nguyen": "6", "Bob Martinez": "6.5"}
	for name, h := range want {
		if got, ok := facts.Hours[name]; !ok || !got.Equal(decimal.RequireFromString(h)) {
			t.Errorf("Hours[%s] = %v, want %s", name, got, h)
		}
	}
}

func TestExtract_FirstFactWins(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers Alice 200. Alice 300.")
	assertAmounts(t, facts, map[string]string{"Alice Nguyen/server": "200.00"})
}

func TestExtract_UnresolvedName(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name        string
		text        string
		phrase      string
		suggestion  string
		ambiguousOf []string
	}{
		{"unknown", "Servers Alice 200. Zelda 150.", "Zelda", "", nil},
		{"misheard", "Alice 200 dollars, Bobb 150 dollars.", "Bobb", "Bob Martinez", nil},
		{"ambiguous", "Alice 200. Mike 150.", "Mike", "", []string{"Mike Jones", "Mike Smith"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			facts, err := e.Extract(tc.text)
			if facts != nil {
				t.Errorf("facts = %v, want nil", facts.All())
			}
			if !errors.Is(err, shift.ErrUnresolvedName) {
				t.Fatalf("error = %v, want ErrUnresolvedName", err)
			}
			var se *shift.Error
			if !errors.As(err, &se) {
				t.Fatalf("error type = %T, want *shift.Error", err)
			}
			if len(se.Unresolved) != 1 {
				t.Fatalf("unresolved = %+v, want one entry", se.Unresolved)
			}
			u := se.Unresolved[0]
			if strings.Trim(u.Phrase, ".,") != tc.phrase {
				t.Errorf("phrase = %q, want %q", u.Phrase, tc.phrase)
			}
			if tc.suggestion != "" && !slices.Contains(u.Suggestions, tc.suggestion) {
				t.Errorf("suggestions = %v, want %q among them", u.Suggestions, tc.suggestion)
			}
			if tc.ambiguousOf != nil && !slices.Equal(u.Ambiguous, tc.ambiguousOf) {
				t.Errorf("ambiguous = %v, want %v", u.Ambiguous, tc.ambiguousOf)
			}
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name string
		text string
		want error
	}{
		{"nothing to extract", "Uh nothing to report tonight.", shift.ErrEmptyResult},
		{"empty", "", shift.ErrEmptyResult},
		{"amount no rule matches", "Servers Alice 1 2 3.", shift.ErrUnparseableAmount},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.Extract(tc.text)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			var se *shift.Error
			if !errors.As(err, &se) || se.Stage != shift.StageExtract {
				t.Errorf("error = %#v, want *shift.Error at stage extract", err)
			}
		})
	}
}

func TestExtract_NamedWithoutReadableAmount(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name     string
		text     string
		fragment string
		employee string
	}{
		{"hundreds in words", "Alice had two hundred dollars. Bob 100.", "Alice had two hundred dollars.", "Alice Nguyen"},
		{"words without marker", "Alice made one fifty. Bob 100.", "Alice made one fifty.", "Alice Nguyen"},
		{"server listed bare", "Servers Alice 200. Bob.", "Bob.", "Bob Martinez"},
		{"money word only", "Bob 100. Alice got a few bucks.", "Alice got a few bucks.", "Alice Nguyen"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			facts, err := e.Extract(tc.text)
			if facts != nil {
				t.Errorf("facts = %v, want nil", amounts(facts))
			}
			if !errors.Is(err, shift.ErrUnparseableAmount) {
				t.Fatalf("error = %v, want ErrUnparseableAmount", err)
			}
			var se *shift.Error
			if !errors.As(err, &se) {
				t.Fatalf("error type = %T, want *shift.Error", err)
			}
			if se.Stage != shift.StageExtract {
				t.Errorf("stage = %s, want extract", se.Stage)
			}
			if se.Fragment != tc.fragment {
				t.Errorf("fragment = %q, want %q", se.Fragment, tc.fragment)
			}
			if !strings.Contains(se.Detail, tc.employee) {
				t.Errorf("detail = %q, want it to name %s", se.Detail, tc.employee)
			}
		})
	}
}

func TestExtract_NameWithoutMoneyIsIgnored(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	facts := mustExtract(t, e, "Servers Alice 200. Erin was off tonight.")
	assertAmounts(t, facts, map[string]string{"Alice Nguyen/server": "200.00"})
}

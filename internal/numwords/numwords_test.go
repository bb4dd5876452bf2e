package numwords_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/jflaig13/mise-core-sub000/internal/numwords"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phrase string
		want   int
		ok     bool
	}{
		{"seven", 7, true},
		{"twelve", 12, true},
		{"forty", 40, true},
		{"twenty two", 22, true},
		{"Thirty First", 31, true},
		{"twenty second", 22, true},
		{"ninety nine", 99, true},
		{"twenty twenty", 0, false},
		{"seven dollars", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.phrase, func(t *testing.T) {
			t.Parallel()
			got, ok := numwords.Parse(tc.phrase)
			if ok != tc.ok || got != tc.want {
				t.Errorf("Parse(%q) = %d, %v; want %d, %v", tc.phrase, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestGroups_SpokenDate(t *testing.T) {
	t.Parallel()

	tokens := strings.Fields("eleven twenty two twenty five and then")
	gs := numwords.Groups(tokens, 0)
	var vals []int
	for _, g := range gs {
		vals = append(vals, g.Value)
	}
	if !slices.Equal(vals, []int{11, 22, 25}) {
		t.Fatalf("Groups values = %v, want [11 22 25]", vals)
	}
	if gs[2].End != 5 {
		t.Errorf("last group End = %d, want 5", gs[2].End)
	}
}

func TestGroups_Ordinal(t *testing.T) {
	t.Parallel()

	gs := numwords.Groups([]string{"twenty", "third"}, 0)
	if len(gs) != 1 || gs[0].Value != 23 || !gs[0].Ordinal {
		t.Fatalf("Groups(twenty third) = %+v, want one ordinal group of 23", gs)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	in := strings.Fields("Alice five. dollars and twenty five cents one")
	got := numwords.Normalize(in)
	want := []string{"Alice", "5.", "dollars", "and", "twenty", "five", "cents", "1"}
	if !slices.Equal(got, want) {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
	if in[1] != "five." {
		t.Error("Normalize modified its input slice")
	}
}

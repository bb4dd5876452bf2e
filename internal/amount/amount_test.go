package amount_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/amount"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		want     string
		rule     string
	}{
		{"trailing period is whole dollars", "120.", "120.00", "trailing_period_dollars"},
		{"trailing period after filler", "uh 85.", "85.00", "trailing_period_dollars"},
		{"two integers", "52. 03", "52.03", "two_integers"},
		{"single digit cents padded", "52. 3", "52.03", "two_integers"},
		{"three hundred sixty seven", "300 67", "300.67", "two_integers"},
		{"run together dollars then digit", "3006 7", "3006.07", "two_integers"},
		{"spoken pair", "219 68", "219.68", "two_integers"},
		{"digit word cents normalised", "40 and five cents", "40.05", "two_integers"},
		{"dollars and digit cents", "111 dollars and 12 cents", "111.12", "two_integers"},
		{"dollars and word cents", "111 dollars and twelve cents", "111.12", "dollars_and_cents"},
		{"dollars and stray word cents", "111 dollars and uh twenty five cents", "111.25", "dollars_and_cents"},
		{"whole dollars", "200 dollars", "200.00", "dollars_and_cents"},
		{"dollar sign", "$200", "200.00", "dollars_and_cents"},
		{"base in word cents", "40 in twelve cents", "40.12", "base_and_word_cents"},
		{"decimal base and word cents", "45.50 and twenty cents", "45.70", "base_and_word_cents"},
		{"adjacent pair among noise", "219 68 then 4", "219.68", "adjacent_two_digit_cents"},
		{"run together cents", "7504", "75.04", "run_together_cents"},
		{"decimal literal", "45.5", "45.50", "literal"},
		{"thousands separator", "1,911.50", "1911.50", "literal"},
		{"two digit literal", "12", "12.00", "literal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := amount.ExtractMatch(tc.fragment)
			if err != nil {
				t.Fatalf("ExtractMatch(%q): %v", tc.fragment, err)
			}
			want := decimal.RequireFromString(tc.want)
			if !m.Value.Equal(want) {
				t.Errorf("ExtractMatch(%q) = %s, want %s", tc.fragment, m.Value.StringFixed(2), tc.want)
			}
			if m.Rule != tc.rule {
				t.Errorf("ExtractMatch(%q) rule = %q, want %q", tc.fragment, m.Rule, tc.rule)
			}
		})
	}
}

func TestExtract_Failure(t *testing.T) {
	t.Parallel()

	for _, fragment := range []string{"", "uh", "about a hundred", "twelve", "1 2 3"} {
		t.Run(fragment, func(t *testing.T) {
			t.Parallel()
			_, err := amount.Extract(fragment)
			if !errors.Is(err, shift.ErrUnparseableAmount) {
				t.Fatalf("Extract(%q) error = %v, want ErrUnparseableAmount", fragment, err)
			}
			var se *shift.Error
			if !errors.As(err, &se) {
				t.Fatalf("Extract(%q) error type = %T, want *shift.Error", fragment, err)
			}
			if se.Fragment != fragment || se.Stage != shift.StageAmount {
				t.Errorf("error = %+v, want stage amount and fragment %q", se, fragment)
			}
		})
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		text string
		kind amount.TokenKind
	}{
		{"120.", "120.", amount.KindInt},
		{"52.03,", "52.03", amount.KindDecimal},
		{"45.50.", "45.50", amount.KindDecimal},
		{"1,911.50", "1911.50", amount.KindDecimal},
		{"Twelve", "twelve", amount.KindWord},
		{"dollars.", "dollars", amount.KindMarker},
		{"Alice,", "alice", amount.KindOther},
	}
	for _, tc := range tests {
		got := amount.Clean(tc.in)
		if got.Text != tc.text || got.Kind != tc.kind {
			t.Errorf("Clean(%q) = %+v, want text %q kind %d", tc.in, got, tc.text, tc.kind)
		}
	}
}

func TestExtractTotal(t *testing.T) {
	t.Parallel()

	tests := []struct{ fragment, want string }{
		{"400", "400.00"},
		{"1,911.50", "1911.50"},
		{"400 dollars", "400.00"},
		{"219 68", "219.68"},
	}
	for _, tc := range tests {
		got, err := amount.ExtractTotal(tc.fragment)
		if err != nil {
			t.Fatalf("ExtractTotal(%q): %v", tc.fragment, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("ExtractTotal(%q) = %s, want %s", tc.fragment, got.StringFixed(2), tc.want)
		}
	}
}

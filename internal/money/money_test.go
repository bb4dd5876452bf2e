package money_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/money"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRound(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"95.575", "95.58"},
		{"95.574", "95.57"},
		{"-0.005", "-0.01"},
		{"12", "12"},
	}
	for _, tc := range tests {
		if got := money.Round(d(tc.in)); !got.Equal(d(tc.want)) {
			t.Errorf("Round(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total string
		names []string
		want  []string
	}{
		{"extra cent to first alphabetically", "300.29", []string{"Bob Martinez", "Alice Nguyen"}, []string{"150.14", "150.15"}},
		{"exact", "897.66", []string{"A", "B", "C"}, []string{"299.22", "299.22", "299.22"}},
		{"two leftover cents", "0.05", []string{"C", "B", "A"}, []string{"0.01", "0.02", "0.02"}},
		{"no names", "10", nil, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := money.Equal(d(tc.total), tc.names)
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if !got[i].Equal(d(tc.want[i])) {
					t.Errorf("share[%d] = %s, want %s", i, got[i], tc.want[i])
				}
			}
			if len(got) > 0 && !money.Sum(got...).Equal(d(tc.total)) {
				t.Errorf("sum %s != total %s", money.Sum(got...), tc.total)
			}
		})
	}
}

func TestAllocate_Weighted(t *testing.T) {
	t.Parallel()

	got := money.Allocate(d("100"), []money.Share{
		{Name: "A", Weight: d("1")},
		{Name: "B", Weight: d("2")},
		{Name: "C", Weight: d("0")},
	})
	want := []string{"33.33", "66.67", "0"}
	for i := range want {
		if !got[i].Equal(d(want[i])) {
			t.Errorf("share[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	none := money.Allocate(d("5"), []money.Share{{Name: "A", Weight: d("0")}})
	if !none[0].IsZero() {
		t.Errorf("zero-weight allocation = %s, want 0", none[0])
	}
}

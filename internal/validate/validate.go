// Package validate checks a computed shift record before it is treated as
// final. A record that fails is returned to a person for review; nothing
// here corrects it.
package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// Record checks rec against r. It verifies that:
//
//   - every payee is a canonical roster name, paid once
//   - payouts sum to the total server tips, and support payouts to the total
//     tipout, to the cent
//   - no amount is negative
//   - the shift code is one of the fourteen codes and matches the calendar
//     weekday of the date
//   - support roles go to support-eligible employees, when the roster
//     designates any
//
// All problems are reported together in one *shift.Error wrapping
// [shift.ErrConsistency]. Its Mismatch is the conservation difference when
// the totals disagree.
func Record(rec *shift.Record, r *roster.Roster) error {
	var problems []string
	mismatch := decimal.Zero

	if !rec.Context.Code.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown shift code %q", rec.Context.Code))
	} else if want := shift.CodeFor(rec.Context.Date.Weekday(), rec.Context.Period); rec.Context.Code != want {
		problems = append(problems, fmt.Sprintf("shift code %s does not match %s (%s)",
			rec.Context.Code, rec.Context.DateString(), want))
	}
	if len(rec.Payouts) == 0 {
		problems = append(problems, "record has no payouts")
	}

	total, tipout := decimal.Zero, decimal.Zero
	seen := make(map[string]bool, len(rec.Payouts))
	for _, p := range rec.Payouts {
		if !r.IsCanonical(p.Employee) {
			problems = append(problems, fmt.Sprintf("%q is not a roster name", p.Employee))
		}
		if seen[p.Employee] {
			problems = append(problems, fmt.Sprintf("%s is paid more than once", p.Employee))
		}
		seen[p.Employee] = true
		if p.Amount.IsNegative() {
			problems = append(problems, fmt.Sprintf("%s has negative amount %s", p.Employee, p.Amount.StringFixed(2)))
		}
		if !p.Role.IsValid() {
			problems = append(problems, fmt.Sprintf("%s has unknown role %q", p.Employee, p.Role))
		}
		if p.Role.IsSupport() {
			tipout = tipout.Add(p.Amount)
			if r.HasSupportDesignations() && !r.IsSupportEligible(p.Employee) {
				problems = append(problems, fmt.Sprintf("%s worked %s but is not support-eligible", p.Employee, p.Role))
			}
		}
		total = total.Add(p.Amount)
	}

	if !total.Equal(rec.TotalPool) {
		mismatch = total.Sub(rec.TotalPool)
		problems = append(problems, fmt.Sprintf("payouts total %s but server tips total %s",
			total.StringFixed(2), rec.TotalPool.StringFixed(2)))
	}
	if !tipout.Equal(rec.TotalTipout) {
		if mismatch.IsZero() {
			mismatch = tipout.Sub(rec.TotalTipout)
		}
		problems = append(problems, fmt.Sprintf("support payouts total %s but tipout is %s",
			tipout.StringFixed(2), rec.TotalTipout.StringFixed(2)))
	}

	if len(problems) == 0 {
		return nil
	}
	return &shift.Error{
		Stage:    shift.StageValidate,
		Kind:     shift.ErrConsistency,
		Detail:   strings.Join(problems, "; "),
		Mismatch: mismatch,
	}
}

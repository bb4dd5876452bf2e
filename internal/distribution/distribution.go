// Package distribution turns the facts extracted from one shift report into
// final per-employee amounts.
//
// The calculation is a fixed decision sequence:
//
//  1. determine the support configuration (utility, expo/busser or none)
//  2. determine the pooling mode
//  3. compute each support role's tipout from food sales, or from the amount
//     dictated for it when no food sales were given
//  4. pro-rate anyone who worked part of the shift; what they did not earn
//     goes back to the servers
//  5. split what remains among the servers
//  6. pay support staff their pro-rated share
//
// Every split is cent-exact: money entering the shift as server tips leaves
// it as payouts, with nothing created or lost.
package distribution

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/money"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

var one = decimal.NewFromInt(1)

// Calculator computes shift records. It is safe for concurrent use.
type Calculator struct {
	pct      Percentages
	schedule shift.Schedule
}

// Option configures a [Calculator].
type Option func(*Calculator)

// WithPercentages overrides the tipout rates.
func WithPercentages(p Percentages) Option {
	return func(c *Calculator) { c.pct = p }
}

// WithSchedule sets the standard shift windows used for partial shifts.
func WithSchedule(s shift.Schedule) Option {
	return func(c *Calculator) { c.schedule = s }
}

// New returns a Calculator with the default percentages and schedule.
func New(opts ...Option) *Calculator {
	c := &Calculator{pct: DefaultPercentages(), schedule: shift.DefaultSchedule()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RecordID returns the deterministic ID of the record for a shift.
func RecordID(sc shift.Context) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("tipsheet:"+sc.DateString()+":"+string(sc.Code))).String()
}

type run struct {
	c       *Calculator
	facts   *shift.Facts
	rec     *shift.Record
	servers []shift.Fact
	mode    PoolingMode

	// weighted is set when every server stated hours and they differ.
	weighted bool
	frac     map[string]decimal.Decimal
	payouts  []shift.Payout
}

// Calculate distributes the tips in facts for the shift sc. Contradictory
// or incomplete facts fail with a *shift.Error wrapping
// [shift.ErrConfiguration]; a shift without server tips fails with
// [shift.ErrEmptyResult].
func (c *Calculator) Calculate(sc shift.Context, facts *shift.Facts) (*shift.Record, error) {
	for _, f := range facts.All() {
		if !f.Role.IsSupport() && f.Role != shift.RoleServer {
			return nil, shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
				"%s is recorded as %s, which takes no part in the tip distribution", f.Employee, f.Role)
		}
	}
	r := &run{
		c:       c,
		facts:   facts,
		rec:     &shift.Record{ID: RecordID(sc), Context: sc},
		servers: facts.ByRole(shift.RoleServer),
		mode:    Mode(facts),
		frac:    make(map[string]decimal.Decimal),
	}
	if len(r.servers) == 0 {
		return nil, &shift.Error{Stage: shift.StageDistribution, Kind: shift.ErrEmptyResult, Detail: "no server tips to distribute"}
	}

	cfg, err := Configure(facts, c.pct)
	if err != nil {
		return nil, err
	}
	for _, s := range r.servers {
		r.rec.TotalPool = r.rec.TotalPool.Add(s.Amount)
	}
	r.rec.Tracef("%d server(s), %s, total tips %s", len(r.servers), r.mode, r.rec.TotalPool.StringFixed(2))
	r.rec.Tracef("support: %s", cfg.Kind)

	if err := r.fractions(sc); err != nil {
		return nil, err
	}
	charged, unearned, err := r.support(cfg)
	if err != nil {
		return nil, err
	}
	if r.mode == Pooled {
		r.pool()
	} else if err := r.individual(charged, unearned); err != nil {
		return nil, err
	}

	slices.SortFunc(r.payouts, func(a, b shift.Payout) int {
		if a.Role.IsSupport() != b.Role.IsSupport() {
			if a.Role.IsSupport() {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Employee, b.Employee)
	})
	r.rec.Payouts = r.payouts
	for _, p := range r.payouts {
		r.rec.Tracef("%s (%s): %s", p.Employee, p.Role, p.Amount.StringFixed(2))
	}
	return r.rec, nil
}

// fractions works out who was present for only part of the shift. The
// window ends at the stated closing time when there is one.
func (r *run) fractions(sc shift.Context) error {
	w := r.c.schedule.Window(sc.Code)
	if end := r.facts.CloseMinutes; end > 0 {
		if end <= w.Start {
			return shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
				"closing time %s is not after the shift start %s", shift.Clock(end), shift.Clock(w.Start))
		}
		w.End = end
		r.rec.Tracef("shift window %s (stated close)", w)
	} else {
		r.rec.Tracef("shift window %s", w)
	}

	allHours := len(r.servers) > 1
	for _, s := range r.servers {
		if _, ok := r.facts.Hours[s.Employee]; !ok {
			allHours = false
		}
	}
	if allHours {
		first := r.facts.Hours[r.servers[0].Employee]
		for _, s := range r.servers[1:] {
			if !r.facts.Hours[s.Employee].Equal(first) {
				r.weighted = true
			}
		}
	}

	for _, p := range r.facts.Presence {
		if !r.facts.Has(p.Employee) {
			return shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
				"partial shift stated for %s, who has no tips or support role", p.Employee)
		}
		arrived, left := p.Arrived, p.Left
		if arrived == 0 {
			arrived = w.Start
		}
		if left == 0 {
			left = w.End
		}
		f := fraction(decimal.NewFromInt(int64(left-arrived)), w.Minutes())
		r.frac[p.Employee] = f
		r.rec.Tracef("%s worked %s-%s: %s of the shift", p.Employee, shift.Clock(arrived), shift.Clock(left), percent(f))
	}

	names := make([]string, 0, len(r.facts.Hours))
	for name := range r.facts.Hours {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		h := r.facts.Hours[name]
		if _, ok := r.frac[name]; ok {
			continue
		}
		if !r.facts.Has(name) {
			return shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
				"hours stated for %s, who has no tips or support role", name)
		}
		if allHours && r.isServer(name) {
			continue
		}
		f := fraction(h.Mul(decimal.NewFromInt(60)), w.Minutes())
		r.frac[name] = f
		r.rec.Tracef("%s worked %s hours: %s of the shift", name, h, percent(f))
	}
	return nil
}

func (r *run) isServer(name string) bool {
	for _, s := range r.servers {
		if s.Employee == name {
			return true
		}
	}
	return false
}

func (r *run) fractionFor(name string) decimal.Decimal {
	if f, ok := r.frac[name]; ok {
		return f
	}
	return one
}

// fraction is worked/total clamped to [0, 1].
func fraction(worked decimal.Decimal, total int) decimal.Decimal {
	t := decimal.NewFromInt(int64(total))
	switch {
	case !worked.IsPositive():
		return decimal.Zero
	case worked.GreaterThanOrEqual(t):
		return one
	}
	return worked.Div(t)
}

func percent(f decimal.Decimal) string {
	return f.Shift(2).Round(2).String() + "%"
}

// tipoutBase returns the food sales tipouts are computed from: the sum of
// every server's sales when all were stated, otherwise the stated total.
func (r *run) tipoutBase() (decimal.Decimal, bool, error) {
	sum, stated := decimal.Zero, 0
	for _, s := range r.servers {
		if s.FoodSales != nil {
			sum = sum.Add(*s.FoodSales)
			stated++
		}
	}
	switch {
	case stated == len(r.servers):
		r.rec.Tracef("food sales %s (sum of server sales)", sum.StringFixed(2))
		return sum, true, nil
	case r.facts.TotalFoodSales != nil:
		r.rec.Tracef("food sales %s (stated total)", r.facts.TotalFoodSales.StringFixed(2))
		return *r.facts.TotalFoodSales, true, nil
	case stated > 0:
		return decimal.Zero, false, shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
			"food sales stated for %d of %d servers and no total given", stated, len(r.servers))
	}
	return decimal.Zero, false, nil
}

// serverSales is the food sales one server is charged tipout on when
// servers keep their own tips.
func (r *run) serverSales(s shift.Fact) (decimal.Decimal, bool) {
	if s.FoodSales != nil {
		return *s.FoodSales, true
	}
	if len(r.servers) == 1 && r.facts.TotalFoodSales != nil {
		return *r.facts.TotalFoodSales, true
	}
	return decimal.Zero, false
}

// support computes and pays every support role. It returns what each
// server was charged, for individual mode, and the total that support staff
// did not earn.
func (r *run) support(cfg SupportConfiguration) (map[string]decimal.Decimal, decimal.Decimal, error) {
	charged := make(map[string]decimal.Decimal)
	unearned := decimal.Zero
	if cfg.Kind == SupportNone {
		r.rec.Tracef("no support staff; no tipout")
		return charged, unearned, nil
	}
	base, haveBase, err := r.tipoutBase()
	if err != nil {
		return nil, decimal.Zero, err
	}

	for i := range cfg.Allocations {
		a := &cfg.Allocations[i]
		a.WorkedFraction = make(map[string]decimal.Decimal)
		for _, name := range a.Participants {
			if f, ok := r.frac[name]; ok {
				a.WorkedFraction[name] = f
			}
		}

		var total decimal.Decimal
		var full []decimal.Decimal
		stated, haveStated := r.facts.StatedTipout[a.Role]
		switch {
		case haveBase && r.mode == Pooled:
			total = money.Round(a.Percentage.Mul(base))
			full = money.Equal(total, a.Participants)
			r.rec.Tracef("%s tipout %s of %s = %s", a.Role, percent(a.Percentage), base.StringFixed(2), total.StringFixed(2))
		case haveBase:
			for _, s := range r.servers {
				sales, ok := r.serverSales(s)
				if !ok {
					return nil, decimal.Zero, shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
						"servers kept their own tips but no food sales were stated for %s", s.Employee)
				}
				c := money.Round(a.Percentage.Mul(sales))
				charged[s.Employee] = charged[s.Employee].Add(c)
				total = total.Add(c)
				r.rec.Tracef("%s pays %s tipout %s of %s = %s", s.Employee, a.Role, percent(a.Percentage), sales.StringFixed(2), c.StringFixed(2))
			}
			full = money.Equal(total, a.Participants)
		case haveStated:
			total = stated
			for _, f := range r.facts.ByRole(a.Role) {
				full = append(full, f.Amount)
			}
			r.rec.Tracef("%s tipout %s as stated; no food sales given", a.Role, total.StringFixed(2))
			if r.mode == Individual {
				if err := r.chargeByTips(a.Role, charged, total); err != nil {
					return nil, decimal.Zero, err
				}
			}
		default:
			return nil, decimal.Zero, shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
				"%s worked but neither food sales nor a %s amount was given", a.Role, a.Role)
		}

		paid := decimal.Zero
		for j, name := range a.Participants {
			amt := full[j]
			if f := a.FractionFor(name); f.LessThan(one) {
				amt = money.Round(full[j].Mul(f))
				r.rec.Tracef("%s earns %s of a %s share of %s = %s", name, percent(f), a.Role, full[j].StringFixed(2), amt.StringFixed(2))
			}
			paid = paid.Add(amt)
			r.payouts = append(r.payouts, shift.Payout{Employee: name, Role: a.Role, Amount: amt})
		}
		if left := total.Sub(paid); !left.IsZero() {
			r.rec.Tracef("%s unearned by %s staff returns to servers", left.StringFixed(2), a.Role)
			unearned = unearned.Add(left)
		}
		r.rec.TotalTipout = r.rec.TotalTipout.Add(paid)
	}
	return charged, unearned, nil
}

// chargeByTips spreads a stated tipout over servers in proportion to their
// tips.
func (r *run) chargeByTips(role shift.Role, charged map[string]decimal.Decimal, total decimal.Decimal) error {
	shares := make([]money.Share, len(r.servers))
	for i, s := range r.servers {
		shares[i] = money.Share{Name: s.Employee, Weight: s.Amount}
	}
	if total.IsPositive() && !weightOf(shares).IsPositive() {
		return shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
			"%s tipout %s was stated but no server made tips to pay it from", role, total.StringFixed(2))
	}
	for i, c := range money.Allocate(total, shares) {
		charged[r.servers[i].Employee] = charged[r.servers[i].Employee].Add(c)
	}
	return nil
}

func weightOf(shares []money.Share) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range shares {
		if s.Weight.IsPositive() {
			sum = sum.Add(s.Weight)
		}
	}
	return sum
}

// pool splits the tips left after tipout among pooled servers.
func (r *run) pool() {
	left := r.rec.TotalPool.Sub(r.rec.TotalTipout)
	r.rec.Tracef("pool after tipout %s - %s = %s", r.rec.TotalPool.StringFixed(2), r.rec.TotalTipout.StringFixed(2), left.StringFixed(2))

	if r.weighted {
		shares := make([]money.Share, len(r.servers))
		for i, s := range r.servers {
			shares[i] = money.Share{Name: s.Employee, Weight: r.facts.Hours[s.Employee]}
		}
		r.rec.Tracef("servers stated unequal hours; pool split by hours")
		r.payServers(money.Allocate(left, shares))
		return
	}

	var full, partial []int
	for i, s := range r.servers {
		if r.fractionFor(s.Employee).LessThan(one) {
			partial = append(partial, i)
		} else {
			full = append(full, i)
		}
	}
	amounts := make([]decimal.Decimal, len(r.servers))
	if len(full) == 0 {
		shares := make([]money.Share, len(r.servers))
		for i, s := range r.servers {
			shares[i] = money.Share{Name: s.Employee, Weight: r.fractionFor(s.Employee)}
		}
		r.rec.Tracef("every server worked a partial shift; pool split by time worked")
		r.payServers(money.Allocate(left, shares))
		return
	}

	n := decimal.NewFromInt(int64(len(r.servers)))
	rest := left
	for _, i := range partial {
		name := r.servers[i].Employee
		f := r.fractionFor(name)
		amounts[i] = money.Round(left.Mul(f).Div(n))
		rest = rest.Sub(amounts[i])
		r.rec.Tracef("%s earns %s of a %s pool share = %s", name, percent(f), left.Div(n).StringFixed(2), amounts[i].StringFixed(2))
	}
	names := make([]string, len(full))
	for k, i := range full {
		names[k] = r.servers[i].Employee
	}
	for k, v := range money.Equal(rest, names) {
		amounts[full[k]] = v
	}
	if len(partial) > 0 {
		r.rec.Tracef("%s split among %d full-shift server(s)", rest.StringFixed(2), len(full))
	}
	r.payServers(amounts)
}

// individual pays each server their own tips minus their own tipout, plus
// their part of whatever support staff did not earn.
func (r *run) individual(charged map[string]decimal.Decimal, unearned decimal.Decimal) error {
	refunds := make([]decimal.Decimal, len(r.servers))
	if unearned.IsPositive() {
		shares := make([]money.Share, len(r.servers))
		for i, s := range r.servers {
			shares[i] = money.Share{Name: s.Employee, Weight: charged[s.Employee]}
		}
		if !weightOf(shares).IsPositive() {
			return shift.Errorf(shift.StageDistribution, shift.ErrConfiguration,
				"%s of unearned tipout has no server to return to", unearned.StringFixed(2))
		}
		refunds = money.Allocate(unearned, shares)
	}
	amounts := make([]decimal.Decimal, len(r.servers))
	for i, s := range r.servers {
		if !refunds[i].IsZero() {
			r.rec.Tracef("%s gets back %s unearned tipout", s.Employee, refunds[i].StringFixed(2))
		}
		amounts[i] = s.Amount.Sub(charged[s.Employee]).Add(refunds[i])
	}
	r.payServers(amounts)
	return nil
}

func (r *run) payServers(amounts []decimal.Decimal) {
	for i, s := range r.servers {
		r.payouts = append(r.payouts, shift.Payout{
			Employee:  s.Employee,
			Role:      shift.RoleServer,
			Amount:    amounts[i],
			FoodSales: s.FoodSales,
		})
	}
}


// Package shift defines the data model shared by every stage of the
// transcript-to-distribution pipeline.
//
// A [Context] identifies one of the fourteen weekly shifts and is computed once
// per transcript. [Fact] values are the raw observations extracted from the
// transcript; they are immutable once appended to a [Facts] set. A [Record] is
// the final, validated distribution handed to persistence and reporting
// collaborators, flattened via [Record.Rows].
//
// Nothing in this package performs I/O. All values are safe to share across
// goroutines once constructed.
package shift

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the position an employee worked on a shift.
type Role string

const (
	RoleServer  Role = "server"
	RoleExpo    Role = "expo"
	RoleBusser  Role = "busser"
	RoleUtility Role = "utility"
	RoleCook    Role = "cook"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleServer, RoleExpo, RoleBusser, RoleUtility, RoleCook:
		return true
	}
	return false
}

// IsSupport reports whether r receives a tipout rather than pooled tips.
func (r Role) IsSupport() bool {
	return r == RoleExpo || r == RoleBusser || r == RoleUtility
}

// Category is the payroll category of a [Row].
type Category string

const (
	CategoryServer  Category = "server"
	CategorySupport Category = "support"
)

// Period is the half of the day a shift covers.
type Period string

const (
	AM Period = "AM"
	PM Period = "PM"
)

// IsValid reports whether p is AM or PM.
func (p Period) IsValid() bool {
	return p == AM || p == PM
}

// dayPrefix maps each weekday to its shift-code prefix.
var dayPrefix = map[time.Weekday]string{
	time.Monday:    "M",
	time.Tuesday:   "T",
	time.Wednesday: "W",
	time.Thursday:  "Th",
	time.Friday:    "F",
	time.Saturday:  "Sa",
	time.Sunday:    "Su",
}

// Code identifies one of the fourteen weekly shifts, e.g. "MPM" or "ThAM".
type Code string

// CodeFor derives the shift code for a weekday and period.
func CodeFor(day time.Weekday, p Period) Code {
	return Code(dayPrefix[day] + string(p))
}

// Codes returns all fourteen shift codes, Monday AM first.
func Codes() []Code {
	days := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	codes := make([]Code, 0, 14)
	for _, d := range days {
		codes = append(codes, CodeFor(d, AM), CodeFor(d, PM))
	}
	return codes
}

// IsValid reports whether c is one of the fourteen fixed shift codes.
func (c Code) IsValid() bool {
	for _, known := range Codes() {
		if c == known {
			return true
		}
	}
	return false
}

// PayPeriod is the payroll window a shift belongs to. End is exclusive.
type PayPeriod struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date d falls inside the period.
func (p PayPeriod) Contains(d time.Time) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

// DateSource records which detection rule produced a [Context] date.
type DateSource string

const (
	DateExplicit   DateSource = "explicit"
	DateMonthDay   DateSource = "month_day"
	DateSpoken     DateSource = "spoken_numeric"
	DateFilename   DateSource = "filename"
	DateTodayGuess DateSource = "today_fallback"
)

// Context identifies the shift a transcript describes. Weekday is always
// derived from Date, never from words in the transcript.
type Context struct {
	Date      time.Time
	Weekday   time.Weekday
	Period    Period
	Code      Code
	PayPeriod PayPeriod

	// DateSource tells reviewers how confident the date is. DateTodayGuess
	// is never as trustworthy as an explicit date.
	DateSource DateSource

	// Audit lists notable detection events: spoken day names that disagree
	// with the calendar, pay-period reassignment, and fallbacks.
	Audit []string
}

// DateString formats the shift date as YYYY-MM-DD.
func (c Context) DateString() string {
	return c.Date.Format("2006-01-02")
}

// NewContext builds a [Context] for date and period, deriving the weekday
// and shift code from the calendar.
func NewContext(date time.Time, p Period, pp PayPeriod) Context {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return Context{
		Date:      d,
		Weekday:   d.Weekday(),
		Period:    p,
		Code:      CodeFor(d.Weekday(), p),
		PayPeriod: pp,
	}
}

// Span locates a fact in the transcript by token index. End is exclusive.
type Span struct {
	Start int
	End   int
	Text  string
}

// Fact is one observed (employee, role, amount) tuple.
type Fact struct {
	Employee string
	Role     Role
	Amount   decimal.Decimal

	// FoodSales is nil when no sales figure was dictated for this employee.
	FoodSales *decimal.Decimal

	// Pass names the extraction pass that produced the fact.
	Pass   string
	Source Span
}

// Presence is an explicit statement that an employee worked less than the
// full standard shift.
type Presence struct {
	Employee string
	// Arrived and Left are minutes after midnight; zero means not stated.
	Arrived int
	Left    int
}

// Facts is the full set of observations extracted from one transcript.
type Facts struct {
	items []Fact
	seen  map[string]struct{}

	// TotalFoodSales is the dictated total when no per-server sales exist.
	TotalFoodSales *decimal.Decimal

	// KeepIndividually is set when the transcript says servers did not pool.
	KeepIndividually bool

	// CloseMinutes is the stated closing time in minutes after midnight.
	CloseMinutes int

	Presence []Presence

	// Hours holds explicitly stated hours worked, keyed by employee.
	Hours map[string]decimal.Decimal

	// StatedTipout holds support-section amounts dictated for a role. They
	// are only used when no food sales were dictated.
	StatedTipout map[Role]decimal.Decimal
}

// NewFacts returns an empty fact set.
func NewFacts() *Facts {
	return &Facts{
		seen:         make(map[string]struct{}),
		Hours:        make(map[string]decimal.Decimal),
		StatedTipout: make(map[Role]decimal.Decimal),
	}
}

// Add appends f unless a fact for the same employee was already recorded.
// It reports whether f was added. Dedup is per employee because a fact set
// always belongs to a single (date, shift).
func (fs *Facts) Add(f Fact) bool {
	if _, dup := fs.seen[f.Employee]; dup {
		return false
	}
	fs.seen[f.Employee] = struct{}{}
	fs.items = append(fs.items, f)
	return true
}

// Has reports whether a fact for employee exists.
func (fs *Facts) Has(employee string) bool {
	_, ok := fs.seen[employee]
	return ok
}

// All returns a copy of the facts in extraction order.
func (fs *Facts) All() []Fact {
	out := make([]Fact, len(fs.items))
	copy(out, fs.items)
	return out
}

// ByRole returns facts for role r in extraction order.
func (fs *Facts) ByRole(r Role) []Fact {
	var out []Fact
	for _, f := range fs.items {
		if f.Role == r {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of facts.
func (fs *Facts) Len() int { return len(fs.items) }

// PresenceFor returns the partial-shift statement for employee, if any.
func (fs *Facts) PresenceFor(employee string) (Presence, bool) {
	for _, p := range fs.Presence {
		if p.Employee == employee {
			return p, true
		}
	}
	return Presence{}, false
}

// SupportAllocation is the share configuration of one support role.
type SupportAllocation struct {
	Role         Role
	Percentage   decimal.Decimal
	Participants []string

	// WorkedFraction defaults to 1 for participants not present in the map.
	WorkedFraction map[string]decimal.Decimal
}

// FractionFor returns the worked fraction for name, defaulting to 1.
func (a SupportAllocation) FractionFor(name string) decimal.Decimal {
	if f, ok := a.WorkedFraction[name]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

// Payout is one employee's final amount for the shift.
type Payout struct {
	Employee  string
	Role      Role
	Amount    decimal.Decimal
	FoodSales *decimal.Decimal
}

// Record is the validated distribution for one shift.
type Record struct {
	ID      string
	Context Context

	// Payouts is sorted by category (servers first) then employee name.
	Payouts []Payout

	// Trace is the ordered list of human-readable calculation steps.
	Trace []string

	// TotalPool is the sum of all server tips before tipout.
	TotalPool decimal.Decimal

	// TotalTipout is the sum actually paid to support staff.
	TotalTipout decimal.Decimal
}

// Amounts returns the per-employee amounts keyed by canonical name.
func (r *Record) Amounts() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Payouts))
	for _, p := range r.Payouts {
		out[p.Employee] = out[p.Employee].Add(p.Amount)
	}
	return out
}

// Row is the flat shape consumed by storage and export collaborators.
type Row struct {
	Date      string           `json:"date"`
	ShiftCode Code             `json:"shift_code"`
	Employee  string           `json:"employee"`
	Role      Role             `json:"role"`
	Category  Category         `json:"category"`
	Amount    decimal.Decimal  `json:"amount"`
	FoodSales *decimal.Decimal `json:"food_sales"`
}

// Rows flattens the record into one row per payout.
func (r *Record) Rows() []Row {
	rows := make([]Row, 0, len(r.Payouts))
	for _, p := range r.Payouts {
		cat := CategoryServer
		if p.Role.IsSupport() {
			cat = CategorySupport
		}
		rows = append(rows, Row{
			Date:      r.Context.DateString(),
			ShiftCode: r.Context.Code,
			Employee:  p.Employee,
			Role:      p.Role,
			Category:  cat,
			Amount:    p.Amount,
			FoodSales: p.FoodSales,
		})
	}
	return rows
}

// Tracef appends a formatted calculation step to the record trace.
func (r *Record) Tracef(format string, args ...any) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

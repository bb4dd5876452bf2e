// Package shiftdate determines which of the fourteen weekly shifts a
// transcript describes.
//
// The date is taken, in order of preference, from an explicit caller hint, a
// month name and day in the text, a spoken or written numeric date, a MMDDYY
// run in the filename, and finally today's date. The last is recorded in the
// context audit trail and reported through [shift.DateTodayGuess] so it is
// never mistaken for a dictated date.
//
// The day of week is always computed from the calendar date. A spoken day
// name that disagrees is recorded in the audit trail and otherwise ignored.
package shiftdate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jflaig13/mise-core-sub000/internal/numwords"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// Hints are caller-supplied facts about the transcript. Zero values mean
// "not supplied".
type Hints struct {
	Filename string
	Date     time.Time
	Period   shift.Period

	// PayPeriod is the pay period the caller assumed when submitting the
	// transcript. When nil, the period containing today is assumed.
	PayPeriod *shift.PayPeriod
}

// DefaultAnchor is the first day of a pay period, a Monday.
var DefaultAnchor = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Detector resolves a [shift.Context]. It is safe for concurrent use.
type Detector struct {
	anchor time.Time
	length int
	loc    *time.Location
	now    func() time.Time
}

// Option configures a [Detector].
type Option func(*Detector)

// WithPayPeriod sets the anchor date of any pay period and the period length
// in days. The default is weekly periods anchored on [DefaultAnchor].
func WithPayPeriod(anchor time.Time, days int) Option {
	return func(d *Detector) {
		if days > 0 {
			d.anchor = civil(anchor)
			d.length = days
		}
	}
}

// WithLocation sets the time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(d *Detector) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// New returns a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		anchor: DefaultAnchor,
		length: 7,
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PayPeriodFor returns the pay period containing date.
func (d *Detector) PayPeriodFor(date time.Time) shift.PayPeriod {
	days := int(civil(date).Sub(d.anchor).Hours() / 24)
	idx := days / d.length
	if days%d.length < 0 {
		idx--
	}
	start := d.anchor.AddDate(0, 0, idx*d.length)
	return shift.PayPeriod{
		ID:    start.Format("2006-01-02"),
		Start: start,
		End:   start.AddDate(0, 0, d.length),
	}
}

// Detect resolves the shift context of text. It fails with
// [shift.ErrAmbiguousDate] only when no AM/PM designation can be found; a
// missing date falls back to today.
func (d *Detector) Detect(text string, h Hints) (shift.Context, error) {
	today := civil(d.now().In(d.loc))
	assumed := d.PayPeriodFor(today)
	if h.PayPeriod != nil {
		assumed = *h.PayPeriod
	}
	ref := assumed.Start
	tokens := tokenize(text)

	var (
		audit []string
		date  time.Time
		src   shift.DateSource
		ok    bool
	)
	if !h.Date.IsZero() {
		date, src, ok = civil(h.Date), shift.DateExplicit, true
	}
	if !ok {
		date, ok = monthDay(tokens, ref)
		src = shift.DateMonthDay
	}
	if !ok {
		date, ok = spokenNumeric(tokens, ref)
		src = shift.DateSpoken
	}
	if !ok {
		date, ok = filenameDate(h.Filename)
		src = shift.DateFilename
	}
	if !ok {
		date, src = today, shift.DateTodayGuess
		audit = append(audit, fmt.Sprintf("no date in transcript or filename; using today %s", today.Format("2006-01-02")))
	}

	period := h.Period
	if period != "" && !period.IsValid() {
		return shift.Context{}, shift.Errorf(shift.StageDate, shift.ErrAmbiguousDate, "invalid period hint %q", period)
	}
	if period == "" {
		period = textPeriod(tokens)
	}
	if period == "" {
		period = filenamePeriod(h.Filename)
	}
	if period == "" {
		return shift.Context{}, shift.Errorf(shift.StageDate, shift.ErrAmbiguousDate,
			"no AM/PM designation for %s in transcript, filename or hints", date.Format("2006-01-02"))
	}

	pp := d.PayPeriodFor(date)
	if pp.ID != assumed.ID {
		audit = append(audit, fmt.Sprintf("reassigned from pay period %s to %s", assumed.ID, pp.ID))
	}
	ctx := shift.NewContext(date, period, pp)
	if spoken, ok := spokenWeekday(tokens); ok && spoken != ctx.Weekday {
		audit = append(audit, fmt.Sprintf("transcript says %s but %s is a %s; using the calendar",
			spoken, ctx.DateString(), ctx.Weekday))
	}
	ctx.DateSource = src
	ctx.Audit = audit
	return ctx, nil
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",;:!?\"()")
		switch f {
		case "a.m.", "a.m":
			f = "am"
		case "p.m.", "p.m":
			f = "pm"
		}
		f = strings.TrimRight(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	dayDigitsRe = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?$`)
	yearRe      = regexp.MustCompile(`^(\d{4})$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2}|\d{4}))?$`)
	filenameRe  = regexp.MustCompile(`(?:^|\D)(\d{2})(\d{2})(\d{2})(?:\D|$)`)
	periodRe    = regexp.MustCompile(`(?i)(?:^|[^a-z])(am|pm)(?:[^a-z]|$)`)
)

// dayAt reads a day of month at tokens[i], as digits with an optional
// ordinal suffix or as number words. It returns the day and the index after
// it.
func dayAt(tokens []string, i int) (int, int, bool) {
	if i < 0 || i >= len(tokens) {
		return 0, 0, false
	}
	if m := dayDigitsRe.FindStringSubmatch(tokens[i]); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, i + 1, n >= 1 && n <= 31
	}
	gs := numwords.Groups(tokens, i)
	if len(gs) == 0 || gs[0].Value < 1 || gs[0].Value > 31 {
		return 0, 0, false
	}
	return gs[0].Value, gs[0].End, true
}

// yearAt reads an optional year at tokens[i]: four digits or a spoken
// "twenty twenty five".
func yearAt(tokens []string, i int) (int, bool) {
	if i >= len(tokens) {
		return 0, false
	}
	if m := yearRe.FindStringSubmatch(tokens[i]); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	gs := numwords.Groups(tokens, i)
	if len(gs) >= 2 && gs[0].Value == 20 && !gs[1].Ordinal {
		return 2000 + gs[1].Value, true
	}
	return 0, false
}

// inferYear picks the year for month relative to the context month of ref.
func inferYear(month time.Month, ref time.Time) int {
	y := ref.Year()
	switch diff := int(month) - int(ref.Month()); {
	case diff > 6:
		y--
	case diff < -6:
		y++
	}
	return y
}

func plausibleYear(y int, ref time.Time) bool {
	return y >= ref.Year()-1 && y <= ref.Year()+1
}

// calendar builds a date, rejecting days that do not exist in the month.
func calendar(y int, m time.Month, d int) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t, t.Day() == d && t.Month() == m
}

func monthDay(tokens []string, ref time.Time) (time.Time, bool) {
	for i, tok := range tokens {
		month, ok := months[tok]
		if !ok {
			continue
		}
		// "november 22nd [2025]"
		if day, next, ok := dayAt(tokens, i+1); ok {
			y := inferYear(month, ref)
			if yy, ok := yearAt(tokens, next); ok && plausibleYear(yy, ref) {
				y = yy
			}
			if t, ok := calendar(y, month, day); ok {
				return t, true
			}
		}
		// "the 22nd of november"
		if i >= 2 && tokens[i-1] == "of" {
			if day, next, ok := dayAt(tokens, i-2); ok && next == i-1 {
				if t, ok := calendar(inferYear(month, ref), month, day); ok {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}

func spokenNumeric(tokens []string, ref time.Time) (time.Time, bool) {
	for _, tok := range tokens {
		m := slashDateRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		mo, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		y := inferYear(time.Month(mo), ref)
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
			if !plausibleYear(y, ref) {
				continue
			}
		}
		if t, ok := calendar(y, time.Month(mo), day); ok {
			return t, true
		}
	}

	for i := 0; i < len(tokens); i++ {
		if !numwords.IsNumberWord(tokens[i]) || (i > 0 && numwords.IsNumberWord(tokens[i-1])) {
			continue
		}
		gs := numwords.Groups(tokens, i)
		if len(gs) < 3 {
			continue
		}
		y := 2000 + gs[2].Value
		if gs[2].Value == 20 && len(gs) >= 4 {
			y = 2000 + gs[3].Value
		}
		if !plausibleYear(y, ref) {
			continue
		}
		if t, ok := calendar(y, time.Month(gs[0].Value), gs[1].Value); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func filenameDate(name string) (time.Time, bool) {
	if name == "" {
		return time.Time{}, false
	}
	m := filenameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, false
	}
	mo, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	yy, _ := strconv.Atoi(m[3])
	return calendar(2000+yy, time.Month(mo), day)
}

var (
	amWords = map[string]bool{"lunch": true, "brunch": true, "morning": true}
	pmWords = map[string]bool{"dinner": true, "night": true, "tonight": true, "evening": true}
)

// textPeriod finds the shift half in the transcript. A period word followed
// by "shift" is strongest, then a descriptive word such as "dinner", then a
// bare "am"/"pm" that is not part of a clock time.
func textPeriod(tokens []string) shift.Period {
	classify := func(tok string) shift.Period {
		switch {
		case tok == "am" || amWords[tok]:
			return shift.AM
		case tok == "pm" || pmWords[tok]:
			return shift.PM
		}
		return ""
	}
	for i := 0; i+1 < len(tokens); i++ {
		if p := classify(tokens[i]); p != "" && tokens[i+1] == "shift" {
			return p
		}
	}
	for _, tok := range tokens {
		if amWords[tok] {
			return shift.AM
		}
		if pmWords[tok] {
			return shift.PM
		}
	}
	for i, tok := range tokens {
		if tok != "am" && tok != "pm" {
			continue
		}
		if i > 0 && isClockish(tokens[i-1]) {
			continue
		}
		return classify(tok)
	}
	return ""
}

func isClockish(tok string) bool {
	if numwords.IsNumberWord(tok) {
		return true
	}
	for _, r := range tok {
		if (r < '0' || r > '9') && r != ':' {
			return false
		}
	}
	return tok != ""
}

func filenamePeriod(name string) shift.Period {
	m := periodRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return ""
	}
	return shift.Period(strings.ToUpper(m[1]))
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

func spokenWeekday(tokens []string) (time.Weekday, bool) {
	for _, tok := range tokens {
		if d, ok := weekdays[strings.TrimSuffix(tok, "'s")]; ok {
			return d, true
		}
	}
	return 0, false
}

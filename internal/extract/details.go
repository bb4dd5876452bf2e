package extract

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/amount"
	"github.com/jflaig13/mise-core-sub000/internal/numwords"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

var clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm|a\.m|p\.m)?$`)

var clockFiller = toSet("at around about by a little bit early late was were up")

// skip advances past up to four filler words starting at i.
func (s *scan) skip(i int, filler map[string]bool) int {
	for n := 0; n < 4 && i < len(s.toks) && filler[s.toks[i].word]; n++ {
		i++
	}
	return i
}

// subjectBefore finds the nearest name in the same sentence within limit
// tokens before i.
func (s *scan) subjectBefore(i, limit int) (string, bool) {
	for b := i - 1; b >= 0 && b >= i-limit; b-- {
		if s.toks[b].stop {
			return "", false
		}
		if name, end, ok := s.nameAt(b); ok && end <= i {
			return name, true
		}
	}
	return "", false
}

// clockAt reads a spoken clock time starting at i: "7", "7:30pm",
// "seven thirty", "seven oh five p.m.". It returns minutes after midnight
// resolved against the shift window, and the index after the time.
func (s *scan) clockAt(i int) (int, int, bool) {
	if i >= len(s.toks) || s.used[i] {
		return 0, i, false
	}
	var h, m int
	var suffix string
	end := i + 1
	if g := clockRe.FindStringSubmatch(s.toks[i].word); g != nil {
		h, _ = strconv.Atoi(g[1])
		if g[2] != "" {
			m, _ = strconv.Atoi(g[2])
		}
		suffix = g[3]
	} else {
		words := make([]string, 0, 4)
		for k := i; k < len(s.toks) && k < i+4; k++ {
			words = append(words, s.toks[k].word)
		}
		gs := numwords.Groups(words, 0)
		if len(gs) == 0 || gs[0].Ordinal {
			return 0, i, false
		}
		h, end = gs[0].Value, i+gs[0].End
		if len(gs) > 1 && !gs[1].Ordinal {
			if words[gs[1].Start] == "oh" && len(gs) > 2 {
				m, end = gs[2].Value, i+gs[2].End
			} else if gs[1].Value >= 10 {
				m, end = gs[1].Value, i+gs[1].End
			}
		}
	}
	if h > 23 || m > 59 || (h == 0 && suffix == "") {
		return 0, i, false
	}
	if suffix == "" && end < len(s.toks) {
		switch w := s.toks[end].word; w {
		case "am", "a.m", "pm", "p.m":
			suffix = w
			end++
		case "o'clock":
			end++
		}
	}
	return s.e.resolveClock(h, m, suffix), end, true
}

// resolveClock picks the reading of h:m closest to the shift window. A time
// of 24:00 or later falls after midnight.
func (e *Extractor) resolveClock(h, m int, suffix string) int {
	if h > 12 {
		return h*60 + m
	}
	base := (h%12)*60 + m
	var cands []int
	switch suffix {
	case "am", "a.m":
		cands = []int{base, base + 24*60}
	case "pm", "p.m":
		cands = []int{base + 12*60}
	default:
		cands = []int{base, base + 12*60, base + 24*60}
	}
	best, bestDist := cands[0], -1
	for _, c := range cands {
		d := 0
		switch {
		case c < e.window.Start:
			d = e.window.Start - c
		case c > e.window.End:
			d = c - e.window.End
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

const (
	timeArrive = iota + 1
	timeLeave
	timeRange
	timeHours
	timeClose
)

// timeStatement classifies the verb phrase at i and returns where its
// argument starts.
func (s *scan) timeStatement(i int) (int, int) {
	w := s.toks[i].word
	next := ""
	if i+1 < len(s.toks) {
		next = s.toks[i+1].word
	}
	switch {
	case w == "closed" || w == "close" || w == "closing":
		return timeClose, i + 1
	case w == "left" || w == "cut":
		return timeLeave, i + 1
	case w == "clocked" && next == "out":
		return timeLeave, i + 2
	case (w == "worked" || w == "stayed") && (next == "until" || next == "till"):
		return timeLeave, i + 2
	case w == "worked" && next == "from":
		return timeRange, i + 2
	case w == "worked":
		return timeHours, i + 1
	case w == "arrived" || w == "started":
		return timeArrive, i + 1
	case (w == "came" || w == "clocked") && next == "in":
		return timeArrive, i + 2
	case w == "showed" && next == "up":
		return timeArrive, i + 2
	}
	return 0, i
}

// timeStatements records closing time, partial-shift arrivals and
// departures, and stated hours. Statements without a resolvable subject are
// left for later passes.
func (s *scan) timeStatements() {
	for i := 0; i < len(s.toks); i++ {
		if s.used[i] {
			continue
		}
		kind, j := s.timeStatement(i)
		if kind == 0 {
			continue
		}
		if kind == timeHours {
			if end, ok := s.hoursStatement(i, j); ok {
				i = end - 1
			}
			continue
		}
		j = s.skip(j, clockFiller)
		t, end, ok := s.clockAt(j)
		if !ok {
			continue
		}
		if kind == timeClose {
			if s.facts.CloseMinutes == 0 {
				s.facts.CloseMinutes = t
			}
			s.claim(i, end)
			i = end - 1
			continue
		}
		name, ok := s.subjectBefore(i, 5)
		if !ok {
			continue
		}
		p, _ := s.facts.PresenceFor(name)
		p.Employee = name
		switch kind {
		case timeArrive:
			p.Arrived = t
		case timeLeave:
			p.Left = t
		case timeRange:
			p.Arrived = t
			if end < len(s.toks) {
				if w := s.toks[end].word; w == "to" || w == "until" || w == "till" {
					if t2, end2, ok := s.clockAt(end + 1); ok {
						p.Left = t2
						end = end2
					}
				}
			}
		}
		s.setPresence(p)
		s.claim(i, end)
		i = end - 1
	}
}

func (s *scan) setPresence(p shift.Presence) {
	for k := range s.facts.Presence {
		if s.facts.Presence[k].Employee == p.Employee {
			s.facts.Presence[k] = p
			return
		}
	}
	s.facts.Presence = append(s.facts.Presence, p)
}

var half = decimal.New(5, -1)

// hoursStatement handles "Alice worked 6 hours" and "worked six and a half
// hours".
func (s *scan) hoursStatement(i, j int) (int, bool) {
	if j >= len(s.toks) {
		return 0, false
	}
	var n decimal.Decimal
	end := j + 1
	switch t := s.toks[j]; t.amt.Kind {
	case amount.KindInt, amount.KindDecimal:
		v, err := decimal.NewFromString(t.amt.Text)
		if err != nil {
			return 0, false
		}
		n = v
	case amount.KindWord:
		v, ok := numwords.Parse(t.word)
		if !ok {
			return 0, false
		}
		n = decimal.NewFromInt(int64(v))
	default:
		return 0, false
	}
	if end+2 < len(s.toks) && s.toks[end].word == "and" && s.toks[end+1].word == "a" && s.toks[end+2].word == "half" {
		n = n.Add(half)
		end += 3
	}
	if end >= len(s.toks) || (s.toks[end].word != "hours" && s.toks[end].word != "hour") {
		return 0, false
	}
	name, ok := s.subjectBefore(i, 5)
	if !ok {
		return 0, false
	}
	if _, dup := s.facts.Hours[name]; !dup {
		s.facts.Hours[name] = n
	}
	s.claim(i, end+1)
	return end + 1, true
}

var (
	salesPrep   = toSet("in of for with")
	salesFiller = toSet("were was is of at totaled total came to")
	totalWords  = []string{"total", "combined", "overall", "all"}
)

// salesStatements records "400 in food sales", "food sales were 1911.50"
// and "total food sales 1911.50". Sales follow the nearest preceding name
// in the same sentence; without one, or when called a total, they are the
// shift total.
func (s *scan) salesStatements() {
	for i := 0; i < len(s.toks); i++ {
		if s.used[i] || s.toks[i].word != "sales" {
			continue
		}
		start := i
		if i > 0 && s.toks[i-1].word == "food" {
			start = i - 1
		}

		aStart, aEnd := -1, -1
		var v decimal.Decimal
		p := start
		if p > 0 && salesPrep[s.toks[p-1].word] {
			p--
		}
		for b := p - 1; b >= 0 && b >= p-6; b-- {
			end, ok := s.amountAt(b)
			if !ok || end != p {
				continue
			}
			if val, err := amount.ExtractTotal(s.text(b, end)); err == nil {
				aStart, aEnd, v = b, end, val
			}
		}
		if aStart < 0 {
			j := s.skip(i+1, salesFiller)
			if end, ok := s.amountAt(j); ok {
				if val, err := amount.ExtractTotal(s.text(j, end)); err == nil {
					aStart, aEnd, v = j, end, val
				}
			}
		}
		if aStart < 0 {
			continue
		}

		from, to := min(aStart, start), max(aEnd, i+1)
		total := s.has(start-2, start, totalWords...) || s.has(i+1, i+2, "total")
		if name, ok := s.subjectBefore(from, 12); ok && !total {
			if _, dup := s.sales[name]; !dup {
				s.sales[name] = v
			}
		} else if s.facts.TotalFoodSales == nil {
			tv := v
			s.facts.TotalFoodSales = &tv
		}
		s.claim(from, to)
		i = to - 1
	}
}

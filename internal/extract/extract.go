// Package extract turns a shift-report transcript into raw facts: who
// worked which role and what they made.
//
// Extraction runs a fixed sequence of passes over one token stream. Each
// pass claims the tokens it consumes so later passes never read them twice:
//
//  1. statements about the shift rather than money: pooling, arrival and
//     departure times, hours worked, closing time and food sales
//  2. the utility section
//  3. the expo section
//  4. the busser section
//  5. grouped server statements ("servers were A, B and C ... each made X")
//  6. inline server lists ("servers A 200. B 150.")
//  7. a fallback that pairs any remaining name with an amount shortly after
//     it
//
// An employee keeps the first fact extracted for them. Names that could not
// be resolved against the roster, and amounts that no rule could parse, fail
// the whole extraction so a person can correct the input; nothing is
// guessed.
package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/amount"
	"github.com/jflaig13/mise-core-sub000/internal/money"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// Pass names recorded on each fact.
const (
	PassUtility  = "utility_section"
	PassExpo     = "expo_section"
	PassBusser   = "busser_section"
	PassGrouped  = "grouped_servers"
	PassInline   = "inline_servers"
	PassFallback = "fallback"
)

// Extractor extracts facts using one roster snapshot. It is safe for
// concurrent use.
type Extractor struct {
	roster      *roster.Roster
	window      shift.Window
	suggestions int
}

// Option configures an [Extractor].
type Option func(*Extractor)

// WithWindow sets the standard window of the shift being extracted. Spoken
// clock times such as "left at 7" are resolved inside it.
func WithWindow(w shift.Window) Option {
	return func(e *Extractor) { e.window = w }
}

// WithSuggestions sets how many roster suggestions are attached to each
// unresolved name. The default is 3.
func WithSuggestions(n int) Option {
	return func(e *Extractor) { e.suggestions = n }
}

// New returns an Extractor bound to r.
func New(r *roster.Roster, opts ...Option) *Extractor {
	e := &Extractor{roster: r, window: shift.DefaultPM, suggestions: 3}
	for _, o := range opts {
		o(e)
	}
	return e
}

type scan struct {
	e     *Extractor
	toks  []token
	used  []bool
	facts *shift.Facts

	sales      map[string]decimal.Decimal
	unresolved []shift.Unresolved
	failed     []*shift.Error
	// listed holds list entries of a server section that had no amount.
	listed []mention
}

type mention struct {
	name string
	at   int
}

// Extract runs every pass over text. It returns a *shift.Error wrapping
// [shift.ErrUnresolvedName], [shift.ErrUnparseableAmount],
// [shift.ErrConfiguration] or [shift.ErrEmptyResult] when the transcript
// cannot be turned into a complete fact set.
func (e *Extractor) Extract(text string) (*shift.Facts, error) {
	toks := tokenize(text)
	s := &scan{
		e:     e,
		toks:  toks,
		used:  make([]bool, len(toks)),
		facts: shift.NewFacts(),
		sales: make(map[string]decimal.Decimal),
	}

	s.poolingStatements(text)
	s.timeStatements()
	s.salesStatements()
	s.supportSection(shift.RoleUtility, PassUtility)
	s.supportSection(shift.RoleExpo, PassExpo)
	s.supportSection(shift.RoleBusser, PassBusser)
	s.groupedServers()
	s.inlineServers()
	s.fallback()
	s.strayAmounts()
	s.missingAmounts()

	if len(s.unresolved) > 0 {
		return nil, &shift.Error{
			Stage:      shift.StageExtract,
			Kind:       shift.ErrUnresolvedName,
			Detail:     fmt.Sprintf("%d name(s) need review", len(s.unresolved)),
			Unresolved: s.unresolved,
		}
	}
	if len(s.failed) > 0 {
		return nil, s.failed[0]
	}
	if s.facts.Len() == 0 {
		return nil, &shift.Error{Stage: shift.StageExtract, Kind: shift.ErrEmptyResult}
	}
	for name := range s.sales {
		if !s.hasServer(name) {
			return nil, shift.Errorf(shift.StageExtract, shift.ErrConfiguration,
				"food sales stated for %s but no server tips", name)
		}
	}
	return s.facts, nil
}

func (s *scan) hasServer(name string) bool {
	for _, f := range s.facts.ByRole(shift.RoleServer) {
		if f.Employee == name {
			return true
		}
	}
	return false
}

// add records a fact, attaching any food sales stated for a server.
func (s *scan) add(name string, role shift.Role, amt decimal.Decimal, pass string, sp shift.Span) {
	f := shift.Fact{Employee: name, Role: role, Amount: amt, Pass: pass, Source: sp}
	if role == shift.RoleServer {
		if fs, ok := s.sales[name]; ok {
			f.FoodSales = &fs
		}
	}
	s.facts.Add(f)
}

// parse extracts the amount in tokens [i, j). A failure is recorded and
// reported as the extraction result.
func (s *scan) parse(i, j int) (decimal.Decimal, bool) {
	frag := s.text(i, j)
	v, err := amount.Extract(frag)
	if err != nil {
		if se, ok := err.(*shift.Error); ok {
			se.Stage = shift.StageExtract
			s.failed = append(s.failed, se)
		}
		return decimal.Zero, false
	}
	return v, true
}

// parseShapes tries progressively shorter prefixes of the phrase in [i, j):
// the whole phrase, a leading integer pair, then the first token alone.
func (s *scan) parseShapes(i, j int) (decimal.Decimal, int, bool) {
	ends := []int{j}
	if j-i > 2 {
		ends = append(ends, i+2)
	}
	if j-i > 1 {
		ends = append(ends, i+1)
	}
	for _, end := range ends {
		if v, err := amount.Extract(s.text(i, end)); err == nil {
			return v, end, true
		}
	}
	v, ok := s.parse(i, j)
	return v, j, ok
}

func (s *scan) unresolvedAt(i int) {
	w := s.toks[i].word
	res := s.e.roster.Resolve(w)
	u := shift.Unresolved{Phrase: s.toks[i].raw, Span: s.span(i, i+1), Ambiguous: res.Ambiguous}
	if len(u.Ambiguous) == 0 {
		u.Suggestions = s.e.roster.Suggest(w, s.e.suggestions)
	}
	s.unresolved = append(s.unresolved, u)
	s.claim(i, i+1)
}

// isAmbiguousName reports whether the token at i is a roster key that maps
// to several employees.
func (s *scan) isAmbiguousName(i int) bool {
	res := s.e.roster.Lookup(s.toks[i].word)
	return !res.Resolved() && len(res.Ambiguous) > 0
}

// sectionEnd returns the end of a role section starting after keyword k:
// the next role keyword, or a sentence end. A sentence that names someone
// without an amount may continue into one more sentence.
func (s *scan) sectionEnd(k int) int {
	sawName, sawAmount, stops := false, false, 0
	for j := k + 1; j < len(s.toks); j++ {
		if s.used[j] {
			continue
		}
		if _, ok := roleWords[s.toks[j].word]; ok {
			return j
		}
		if _, _, ok := s.nameAt(j); ok {
			sawName = true
		}
		if s.toks[j].amt.Kind == amount.KindInt || s.toks[j].amt.Kind == amount.KindDecimal {
			sawAmount = true
		}
		if !s.toks[j].stop || s.continuesCents(j) {
			continue
		}
		stops++
		if !sawName || sawAmount || stops == 2 {
			return j + 1
		}
	}
	return len(s.toks)
}

// supportSection handles "utility was Carol and Dan, 95.58" style sections.
// One amount shared by several names is split equally; "each" means every
// name received it; one amount per name is taken as dictated.
func (s *scan) supportSection(role shift.Role, pass string) {
	for k := 0; k < len(s.toks); k++ {
		r, ok := s.roleAt(k)
		if !ok || r != role {
			continue
		}
		if k > 0 && s.toks[k-1].word == "no" {
			s.claim(k, k+1)
			continue
		}
		end := s.sectionEnd(k)

		type item struct {
			name  string
			value decimal.Decimal
			set   bool
		}
		var items []item
		var amounts []decimal.Decimal
		perName := true
		for j := k + 1; j < end; {
			if s.used[j] {
				j++
				continue
			}
			if name, next, ok := s.nameAt(j); ok {
				items = append(items, item{name: name})
				j = next
				continue
			}
			if aEnd, ok := s.amountAt(j); ok && aEnd <= end {
				v, ok := s.parse(j, aEnd)
				if ok {
					amounts = append(amounts, v)
					if n := len(items); n > 0 && !items[n-1].set {
						items[n-1].value, items[n-1].set = v, true
					} else {
						perName = false
					}
				}
				j = aEnd
				continue
			}
			if s.isAmbiguousName(j) || s.nameLike(j) {
				s.unresolvedAt(j)
			}
			j++
		}
		if len(items) == 0 {
			continue
		}
		s.claim(k, end)
		sp := s.span(k, end)

		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.name
		}
		switch {
		case len(amounts) == 0:
			for _, n := range names {
				s.add(n, role, decimal.Zero, pass, sp)
			}
		case perName && len(amounts) == len(items):
			for _, it := range items {
				s.add(it.name, role, it.value, pass, sp)
			}
			s.facts.StatedTipout[role] = money.Sum(amounts...)
		case len(amounts) == 1 && s.has(k, end, "each", "apiece"):
			for _, n := range names {
				s.add(n, role, amounts[0], pass, sp)
			}
			s.facts.StatedTipout[role] = amounts[0].Mul(decimal.NewFromInt(int64(len(names))))
		case len(amounts) == 1:
			for i, v := range money.Equal(amounts[0], names) {
				s.add(names[i], role, v, pass, sp)
			}
			s.facts.StatedTipout[role] = amounts[0]
		default:
			s.failed = append(s.failed, &shift.Error{
				Stage:    shift.StageExtract,
				Kind:     shift.ErrUnparseableAmount,
				Fragment: sp.Text,
				Detail:   fmt.Sprintf("cannot attribute %d amounts to %d %s names", len(amounts), len(items), role),
			})
		}
		k = end - 1
	}
}

var listFiller = toSet("were are was is tonight today working on the")
var listJoin = toSet("and plus")

// groupedServers handles "servers were A, B and C ... they each made X" and
// "servers were A and B, 300 total". The list ends with its sentence. Two or
// more different names must be listed and no other name may appear before
// the amount; anything else is left to the later passes.
func (s *scan) groupedServers() {
	for k := 0; k < len(s.toks); k++ {
		if r, ok := s.roleAt(k); !ok || r != shift.RoleServer {
			continue
		}
		j := k + 1
		for n := 0; n < 3 && j < len(s.toks) && listFiller[s.toks[j].word]; n++ {
			j++
		}

		var names []string
		var bad []int
		repeated := false
	list:
		for j < len(s.toks) && !s.used[j] {
			t := s.toks[j]
			switch name, next, ok := s.nameAt(j); {
			case t.word == "" || listJoin[t.word]:
				j++
			case ok:
				if slices.Contains(names, name) {
					repeated = true
					break list
				}
				names = append(names, name)
				j = next
				t = s.toks[next-1]
			case s.isAmbiguousName(j) || s.nameLike(j):
				bad = append(bad, j)
				j++
			default:
				break list
			}
			if t.stop {
				break
			}
		}
		if repeated || len(names)+len(bad) < 2 {
			continue
		}

		listEnd := j
		aStart, aEnd := -1, -1
		for m := listEnd; m < len(s.toks) && m < listEnd+20; m++ {
			if s.used[m] {
				continue
			}
			if _, ok := roleWords[s.toks[m].word]; ok {
				break
			}
			if _, _, ok := s.nameAt(m); ok {
				break
			}
			if e, ok := s.amountAt(m); ok {
				aStart, aEnd = m, e
				break
			}
		}
		if aStart < 0 {
			continue
		}

		for _, b := range bad {
			s.unresolvedAt(b)
		}
		v, ok := s.parse(aStart, aEnd)
		s.claim(k, aEnd)
		if !ok || len(bad) > 0 {
			k = aEnd - 1
			continue
		}
		sp := s.span(k, aEnd)
		if s.has(listEnd, aEnd+2, "each", "apiece") {
			for _, n := range names {
				s.add(n, shift.RoleServer, v, PassGrouped, sp)
			}
		} else {
			for i, share := range money.Equal(v, names) {
				s.add(names[i], shift.RoleServer, share, PassGrouped, sp)
			}
		}
		k = aEnd - 1
	}
}

// inlineServers handles "servers Alice 200. Bob 52. 03" up to the next role
// keyword. Each name takes the first amount that follows it; filler words
// in between are skipped. A name followed directly by another name or by
// the end of the section is a list entry with no amount.
func (s *scan) inlineServers() {
	for k := 0; k < len(s.toks); k++ {
		if r, ok := s.roleAt(k); !ok || r != shift.RoleServer {
			continue
		}
		s.claim(k, k+1)
		pending, pStart, gap := "", 0, false
		drop := func() {
			if pending != "" && !gap {
				s.listed = append(s.listed, mention{name: pending, at: pStart})
			}
			pending = ""
		}
		j := k + 1
		for j < len(s.toks) {
			if s.used[j] {
				j++
				continue
			}
			if _, ok := roleWords[s.toks[j].word]; ok {
				break
			}
			if name, next, ok := s.nameAt(j); ok {
				drop()
				pending, pStart, gap = name, j, false
				j = next
				continue
			}
			if pending != "" {
				if aEnd, ok := s.amountAt(j); ok {
					if v, ok := s.parse(j, aEnd); ok {
						s.add(pending, shift.RoleServer, v, PassInline, s.span(pStart, aEnd))
					}
					s.claim(pStart, aEnd)
					pending = ""
					j = aEnd
					continue
				}
			}
			if s.isAmbiguousName(j) || s.nameLike(j) {
				s.unresolvedAt(j)
				pending = ""
			}
			if w := s.toks[j].word; w != "" && !listJoin[w] && !listFiller[w] {
				gap = true
			}
			j++
		}
		drop()
		k = j - 1
	}
}

// fallback pairs each remaining name with an amount starting within four
// tokens after it, unless another name comes first.
func (s *scan) fallback() {
	for i := 0; i < len(s.toks); i++ {
		name, next, ok := s.nameAt(i)
		if !ok {
			continue
		}
		for j := next; j < len(s.toks) && j <= next+3; j++ {
			if s.used[j] {
				break
			}
			if _, _, isName := s.nameAt(j); isName {
				break
			}
			aEnd, ok := s.amountAt(j)
			if !ok {
				if s.toks[j].stop {
					break
				}
				continue
			}
			if v, end, ok := s.parseShapes(j, aEnd); ok {
				s.add(name, shift.RoleServer, v, PassFallback, s.span(i, end))
				aEnd = end
			}
			s.claim(i, aEnd)
			next = aEnd
			break
		}
		i = next - 1
	}
}

// strayAmounts reports the name in front of any digit amount left over
// after every pass. An amount with nobody in front of it is ignored.
func (s *scan) strayAmounts() {
	for i := 0; i < len(s.toks); i++ {
		if s.used[i] {
			continue
		}
		k := s.toks[i].amt.Kind
		if k != amount.KindInt && k != amount.KindDecimal {
			continue
		}
		for b := i - 1; b >= 0 && b >= i-3; b-- {
			if s.used[b] || s.toks[b].stop {
				break
			}
			if s.isAmbiguousName(b) || s.nameLikeAt(b, b == i-1) {
				s.unresolvedAt(b)
				break
			}
		}
		end, ok := s.amountAt(i)
		if !ok {
			end = i + 1
		}
		s.claim(i, end)
		i = end - 1
	}
}

var spokenMoney = toSet("hundred thousand grand")

// missingAmounts fails the extraction for every employee who was named but
// ended up without a fact, when they were listed as a server or their
// sentence carries a number or a dollar or cent word. The amount was said
// in a form no rule reads, and dropping the employee would silently pay
// them nothing.
func (s *scan) missingAmounts() {
	reported := make(map[string]bool)
	fail := func(name string, at int) {
		if reported[name] || s.facts.Has(name) {
			return
		}
		reported[name] = true
		sp := s.span(at, s.sentenceEnd(at))
		s.failed = append(s.failed, &shift.Error{
			Stage:    shift.StageExtract,
			Kind:     shift.ErrUnparseableAmount,
			Fragment: sp.Text,
			Detail:   fmt.Sprintf("no amount could be read for %s", name),
		})
	}
	for _, m := range s.listed {
		fail(m.name, m.at)
	}
	for i := 0; i < len(s.toks); i++ {
		name, next, ok := s.nameAt(i)
		if !ok {
			continue
		}
		if !s.toks[next-1].stop && s.moneyWordsIn(next, s.sentenceEnd(next)) {
			fail(name, i)
		}
		i = next - 1
	}
}

// moneyWordsIn reports whether [i, j) holds a number or a money word before
// any claimed token or other name.
func (s *scan) moneyWordsIn(i, j int) bool {
	for k := i; k < j; k++ {
		if s.used[k] {
			return false
		}
		if _, _, ok := s.nameAt(k); ok {
			return false
		}
		t := s.toks[k]
		if t.amt.Kind.IsNumeric() || isDollars(t.amt.Text) || isCents(t.amt.Text) || spokenMoney[t.word] {
			return true
		}
	}
	return false
}

// sentenceEnd returns the index after the token that ends the sentence
// containing i.
func (s *scan) sentenceEnd(i int) int {
	for k := i; k < len(s.toks); k++ {
		if s.toks[k].stop {
			return k + 1
		}
	}
	return len(s.toks)
}

// keepWords mark a shift where servers did not pool.
var keepPhrases = []string{
	"kept their own", "kept his own", "kept her own", "keep their own",
	"kept individually", "tips individually", "didn't pool", "did not pool",
	"no pool", "not pooling", "weren't pooling", "were not pooling",
}

func (s *scan) poolingStatements(text string) {
	lower := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	for _, p := range keepPhrases {
		if strings.Contains(lower, p) {
			s.facts.KeepIndividually = true
			return
		}
	}
}

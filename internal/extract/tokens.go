package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jflaig13/mise-core-sub000/internal/amount"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

type token struct {
	raw  string
	word string
	amt  amount.Token
	// stop is set when a sentence ends after this token.
	stop bool
	// upper is set when the token starts with a capital letter.
	upper bool
}

func tokenize(text string) []token {
	fields := strings.Fields(text)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		core := strings.Trim(f, "\"()[]")
		if core == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(core)
		last := core[len(core)-1]
		out = append(out, token{
			raw:   core,
			word:  roster.Normalize(core),
			amt:   amount.Clean(core),
			stop:  last == '.' || last == '!' || last == '?',
			upper: unicode.IsUpper(r),
		})
	}
	return out
}

var roleWords = map[string]shift.Role{
	"server":    shift.RoleServer,
	"servers":   shift.RoleServer,
	"utility":   shift.RoleUtility,
	"utilities": shift.RoleUtility,
	"expo":      shift.RoleExpo,
	"expos":     shift.RoleExpo,
	"busser":    shift.RoleBusser,
	"bussers":   shift.RoleBusser,
	"busboy":    shift.RoleBusser,
	"busboys":   shift.RoleBusser,
}

// stopwords never count as a spoken name when deciding whether an
// unresolved phrase needs review.
var stopwords = toSet(`
a about after all also am an and any are around as at back be because been
before being between both but by came cash close closed closing combined
credit did didn't do each early else even every everybody everyone evening
for from get go going got had has have he her here hers him his i if in into
is it it's its just kept last late left let lunch made make me morning my
night no not now of off oh ok okay on one only or other our out over own per
plus pm pool pooled pooling sales said she shift should so some split
started still such tables than that that's the their them then there these
they this those through tip tips to today together tonight total totals
tuesday um uh until up us was we went were what when which while who will
with worked working would yeah yes you
january february march april may june july august september october
november december monday wednesday thursday friday saturday sunday
dinner brunch food hours hour dollars dollar bucks cents cent
`)

func toSet(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

// nameLike reports whether t could be a spoken name that failed to resolve.
// Speech-to-text output capitalises proper nouns, so a capitalised
// non-stopword is treated as a name.
func (s *scan) nameLike(i int) bool {
	return s.nameLikeAt(i, false)
}

// nameLikeAt is [scan.nameLike]; beforeAmount relaxes the sentence-start
// rule for a word immediately followed by an amount.
func (s *scan) nameLikeAt(i int, beforeAmount bool) bool {
	t := s.toks[i]
	if t.word == "" || stopwords[t.word] || roleWords[t.word] != "" || t.amt.Kind != amount.KindOther {
		return false
	}
	for _, r := range t.word {
		if !unicode.IsLetter(r) && r != '\'' && r != '-' {
			return false
		}
	}
	if !t.upper {
		return false
	}
	// A capitalised word that opens a sentence is only a name if it sounds
	// like someone on the roster.
	if !beforeAmount && (i == 0 || s.toks[i-1].stop) {
		return len(s.e.roster.Suggest(t.word, 1)) > 0
	}
	return true
}

// nameAt resolves the longest exact roster key starting at i, trying three,
// two and one word windows. It does not cross claimed tokens or sentence
// ends.
func (s *scan) nameAt(i int) (string, int, bool) {
	for n := 3; n >= 1; n-- {
		if i+n > len(s.toks) {
			continue
		}
		words := make([]string, 0, n)
		ok := true
		for j := i; j < i+n; j++ {
			if s.used[j] || s.toks[j].word == "" || (j < i+n-1 && s.toks[j].stop) {
				ok = false
				break
			}
			words = append(words, s.toks[j].word)
		}
		if !ok {
			continue
		}
		if res := s.e.roster.Lookup(strings.Join(words, " ")); res.Resolved() {
			return res.Canonical, i + n, true
		}
	}
	return "", i, false
}

func isDollars(w string) bool { return w == "dollars" || w == "dollar" || w == "bucks" }
func isCents(w string) bool   { return w == "cents" || w == "cent" }

// amountAt returns the end of the amount phrase starting at i. A phrase
// starts with digits, or with number words when it is followed by
// "dollars" or "cents". It extends over numbers, dollar and cent markers,
// and "and"/"in" joining two parts of the same value.
func (s *scan) amountAt(i int) (int, bool) {
	if i >= len(s.toks) || s.used[i] {
		return i, false
	}
	first := s.toks[i].amt.Kind
	if !first.IsNumeric() {
		return i, false
	}
	j, nums := i, 0
	marker := false
loop:
	for j < len(s.toks) && !s.used[j] {
		t := s.toks[j]
		switch {
		case t.amt.Kind.IsNumeric():
			if nums == 4 {
				break loop
			}
			nums++
			j++
			if t.stop && !s.continuesCents(j-1) {
				break loop
			}
		case isDollars(t.amt.Text):
			marker = true
			j++
			if t.stop {
				break loop
			}
		case isCents(t.amt.Text):
			marker = true
			j++
			break loop
		case t.amt.Text == "and" || t.amt.Text == "in":
			if s.numericAt(j+1) {
				j++
				continue
			}
			if marker && j+2 < len(s.toks) && s.toks[j+1].amt.Kind == amount.KindOther && s.numericAt(j+2) {
				j += 2
				continue
			}
			break loop
		default:
			break loop
		}
	}
	if j == i {
		return i, false
	}
	if first == amount.KindWord && !marker {
		return i, false
	}
	return j, true
}

// continuesCents reports whether the integer at i, spoken with a trailing
// period, is followed by a one or two digit cents value ("52. 03").
func (s *scan) continuesCents(i int) bool {
	t := s.toks[i]
	if t.amt.Kind != amount.KindInt || !strings.HasSuffix(t.amt.Text, ".") {
		return false
	}
	if i+1 >= len(s.toks) || s.used[i+1] {
		return false
	}
	next := s.toks[i+1].amt
	d := strings.TrimSuffix(next.Text, ".")
	return next.Kind == amount.KindInt && len(d) <= 2
}

func (s *scan) numericAt(i int) bool {
	return i < len(s.toks) && !s.used[i] && s.toks[i].amt.Kind.IsNumeric()
}

func (s *scan) text(i, j int) string {
	parts := make([]string, 0, j-i)
	for k := i; k < j && k < len(s.toks); k++ {
		parts = append(parts, s.toks[k].raw)
	}
	return strings.Join(parts, " ")
}

func (s *scan) span(i, j int) shift.Span {
	return shift.Span{Start: i, End: j, Text: s.text(i, j)}
}

func (s *scan) claim(i, j int) {
	for k := i; k < j && k < len(s.used); k++ {
		s.used[k] = true
	}
}

// roleAt returns the role named by the keyword at i.
func (s *scan) roleAt(i int) (shift.Role, bool) {
	if i >= len(s.toks) || s.used[i] {
		return "", false
	}
	r, ok := roleWords[s.toks[i].word]
	return r, ok
}

// has reports whether any token in [i, j) is one of words.
func (s *scan) has(i, j int, words ...string) bool {
	for k := max(i, 0); k < j && k < len(s.toks); k++ {
		for _, w := range words {
			if s.toks[k].word == w {
				return true
			}
		}
	}
	return false
}

// Package amount converts dictated money fragments into exact decimal values.
//
// Speech-to-text output phrases the same value many ways: "120." for one
// hundred twenty dollars, "52. 03" for fifty-two dollars and three cents,
// "111 dollars and twelve cents", or a run-together "7504". [Extract] tries
// an ordered list of [Rule] values and stops at the first that matches. A
// fragment that no rule matches is a hard failure; no value is guessed.
//
// All arithmetic uses [decimal.Decimal]. Binary floating point is never used
// for money.
package amount

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/numwords"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

var (
	intRe       = regexp.MustCompile(`^\d+\.?$`)
	decRe       = regexp.MustCompile(`^\d+\.\d+$`)
	thousandsRe = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?\.?$`)
	hundred     = decimal.NewFromInt(100)
)

// TokenKind classifies a cleaned fragment token.
type TokenKind int

const (
	KindOther TokenKind = iota
	// KindInt is a digit run, optionally followed by a period ("120.").
	KindInt
	// KindDecimal is a digit run with an embedded decimal point ("52.03").
	KindDecimal
	// KindWord is a spoken number word ("twelve").
	KindWord
	// KindMarker is a connective that may appear inside an amount phrase.
	KindMarker
)

var markers = map[string]bool{
	"dollars": true, "dollar": true, "bucks": true,
	"cents": true, "cent": true,
	"and": true, "in": true,
}

// Token is one cleaned word of an amount fragment.
type Token struct {
	Text string
	Kind TokenKind
	// Dollar is set when the spoken text carried a "$" prefix.
	Dollar bool
}

// Clean lowercases tok, strips surrounding punctuation and thousands
// separators and classifies the result. A trailing period on an integer is
// kept because it is significant to the whole-dollar rule.
func Clean(tok string) Token {
	t := strings.ToLower(strings.TrimSpace(tok))
	t = strings.TrimLeft(t, "([\"'")
	t = strings.TrimRight(t, ",;:!?)]\"'")
	dollar := false
	if strings.HasPrefix(t, "$") {
		dollar = true
		t = strings.TrimPrefix(t, "$")
	}
	if thousandsRe.MatchString(t) {
		t = strings.ReplaceAll(t, ",", "")
	}
	if strings.Count(t, ".") == 2 && strings.HasSuffix(t, ".") {
		t = strings.TrimSuffix(t, ".")
	}
	switch {
	case intRe.MatchString(t):
		return Token{Text: t, Kind: KindInt, Dollar: dollar}
	case decRe.MatchString(t):
		return Token{Text: t, Kind: KindDecimal, Dollar: dollar}
	case numwords.IsNumberWord(t):
		return Token{Text: strings.Trim(t, "."), Kind: KindWord}
	case markers[strings.TrimRight(t, ".")]:
		return Token{Text: strings.TrimRight(t, "."), Kind: KindMarker}
	}
	return Token{Text: strings.Trim(t, "."), Kind: KindOther}
}

// IsNumeric reports whether k carries a numeric value.
func (k TokenKind) IsNumeric() bool {
	return k == KindInt || k == KindDecimal || k == KindWord
}

// Tokens normalises the single-digit number words of fragment to digits and
// cleans every token.
func Tokens(fragment string) []Token {
	words := numwords.Normalize(strings.Fields(fragment))
	out := make([]Token, 0, len(words))
	for _, w := range words {
		tok := Clean(w)
		if tok.Text == "" && !tok.Dollar {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Rule is one amount-recognition strategy. Apply must be pure.
type Rule struct {
	Name  string
	Apply func(tokens []Token) (decimal.Decimal, bool)
}

// Rules is the ordered precedence list used by [Extract]. The first rule
// whose Apply succeeds wins.
var Rules = []Rule{
	{Name: "trailing_period_dollars", Apply: trailingPeriodDollars},
	{Name: "two_integers", Apply: twoIntegers},
	{Name: "dollars_and_cents", Apply: dollarsAndCents},
	{Name: "base_and_word_cents", Apply: baseAndWordCents},
	{Name: "adjacent_two_digit_cents", Apply: adjacentTwoDigitCents},
	{Name: "run_together_cents", Apply: runTogetherCents},
	{Name: "literal", Apply: literal},
}

// Match is a successful extraction and the rule that produced it.
type Match struct {
	Value decimal.Decimal
	Rule  string
}

// Extract parses fragment into a money value. It returns a *shift.Error
// wrapping [shift.ErrUnparseableAmount] when no rule matches.
func Extract(fragment string) (decimal.Decimal, error) {
	m, err := ExtractMatch(fragment)
	return m.Value, err
}

// ExtractMatch is [Extract] that also reports which rule matched.
func ExtractMatch(fragment string) (Match, error) {
	return extract(fragment, "")
}

// ExtractTotal parses a dictated total such as food sales. It applies the
// same rules as [Extract] except that a bare integer is whole dollars: "400"
// is 400.00 rather than 4.00.
func ExtractTotal(fragment string) (decimal.Decimal, error) {
	m, err := extract(fragment, "run_together_cents")
	return m.Value, err
}

func extract(fragment, skip string) (Match, error) {
	tokens := Tokens(fragment)
	for _, r := range Rules {
		if r.Name == skip {
			continue
		}
		if v, ok := r.Apply(tokens); ok {
			return Match{Value: v.Round(2), Rule: r.Name}, nil
		}
	}
	return Match{}, &shift.Error{
		Stage:    shift.StageAmount,
		Kind:     shift.ErrUnparseableAmount,
		Fragment: fragment,
		Detail:   "no extraction rule matched",
	}
}

func numeric(tokens []Token) []Token {
	var out []Token
	for _, t := range tokens {
		if t.Kind.IsNumeric() {
			out = append(out, t)
		}
	}
	return out
}

func digits(t Token) string {
	return strings.TrimSuffix(t.Text, ".")
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// "120." -> 120.00
func trailingPeriodDollars(tokens []Token) (decimal.Decimal, bool) {
	nums := numeric(tokens)
	if len(nums) != 1 || nums[0].Kind != KindInt || !strings.HasSuffix(nums[0].Text, ".") {
		return decimal.Zero, false
	}
	return dec(digits(nums[0])), true
}

// "52. 03" -> 52.03, "52. 3" -> 52.03
func twoIntegers(tokens []Token) (decimal.Decimal, bool) {
	nums := numeric(tokens)
	if len(nums) != 2 || nums[0].Kind != KindInt || nums[1].Kind != KindInt {
		return decimal.Zero, false
	}
	cents := digits(nums[1])
	if len(cents) > 2 {
		return decimal.Zero, false
	}
	if len(cents) == 1 {
		cents = "0" + cents
	}
	return dec(digits(nums[0])).Add(dec(cents).Div(hundred)), true
}

// "111 dollars and 12 cents", "111 dollars and uh twelve cents", "200 dollars",
// "$200".
func dollarsAndCents(tokens []Token) (decimal.Decimal, bool) {
	nums := numeric(tokens)
	if len(nums) == 1 && nums[0].Kind == KindInt && nums[0].Dollar {
		return dec(digits(nums[0])), true
	}
	for i, t := range tokens {
		if t.Kind != KindMarker || (t.Text != "dollars" && t.Text != "dollar" && t.Text != "bucks") {
			continue
		}
		if i == 0 || tokens[i-1].Kind != KindInt {
			return decimal.Zero, false
		}
		dollars := dec(digits(tokens[i-1]))
		rest := tokens[i+1:]
		if len(numeric(rest)) == 0 {
			if len(numeric(tokens[:i-1])) > 0 {
				return decimal.Zero, false
			}
			return dollars, true
		}
		j := 0
		if j < len(rest) && rest[j].Text == "and" {
			j++
		}
		if j < len(rest) && rest[j].Kind == KindOther {
			j++ // stray filler between "and" and the cents value
		}
		cents, ok := centsValue(rest, j)
		if !ok {
			return decimal.Zero, false
		}
		return dollars.Add(cents), true
	}
	return decimal.Zero, false
}

// centsValue reads an integer or spoken number at rest[j] followed by
// "cents".
func centsValue(rest []Token, j int) (decimal.Decimal, bool) {
	if j >= len(rest) {
		return decimal.Zero, false
	}
	var value int
	next := j + 1
	switch rest[j].Kind {
	case KindInt:
		d := digits(rest[j])
		if len(d) > 2 {
			return decimal.Zero, false
		}
		value = int(dec(d).IntPart())
	case KindWord:
		words := make([]string, 0, len(rest)-j)
		for _, t := range rest[j:] {
			words = append(words, t.Text)
		}
		gs := numwords.Groups(words, 0)
		if len(gs) == 0 {
			return decimal.Zero, false
		}
		value = gs[0].Value
		next = j + gs[0].End
	default:
		return decimal.Zero, false
	}
	if next >= len(rest) || (rest[next].Text != "cents" && rest[next].Text != "cent") {
		return decimal.Zero, false
	}
	if value > 99 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(value)).Div(hundred), true
}

// "52.50 and 3 cents", "40 in twelve cents"
func baseAndWordCents(tokens []Token) (decimal.Decimal, bool) {
	for i := 0; i+2 < len(tokens); i++ {
		base := tokens[i]
		if base.Kind != KindInt && base.Kind != KindDecimal {
			continue
		}
		if tokens[i+1].Text != "in" && tokens[i+1].Text != "and" {
			continue
		}
		cents, ok := centsValue(tokens[i+2:], 0)
		if !ok {
			continue
		}
		return dec(digits(base)).Add(cents), true
	}
	return decimal.Zero, false
}

// "219 68" -> 219.68
func adjacentTwoDigitCents(tokens []Token) (decimal.Decimal, bool) {
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]
		if a.Kind != KindInt || b.Kind != KindInt {
			continue
		}
		if len(digits(b)) != 2 {
			continue
		}
		return dec(digits(a)).Add(dec(digits(b)).Div(hundred)), true
	}
	return decimal.Zero, false
}

// "7504" -> 75.04
func runTogetherCents(tokens []Token) (decimal.Decimal, bool) {
	nums := numeric(tokens)
	if len(nums) != 1 || nums[0].Kind != KindInt || strings.HasSuffix(nums[0].Text, ".") {
		return decimal.Zero, false
	}
	d := nums[0].Text
	if len(d) < 3 {
		return decimal.Zero, false
	}
	return dec(d[:len(d)-2]).Add(dec(d[len(d)-2:]).Div(hundred)), true
}

// "45.50", "12"
func literal(tokens []Token) (decimal.Decimal, bool) {
	nums := numeric(tokens)
	if len(nums) != 1 || nums[0].Kind == KindWord {
		return decimal.Zero, false
	}
	return dec(digits(nums[0])), true
}

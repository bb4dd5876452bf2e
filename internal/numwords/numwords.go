// Package numwords converts spoken English number words, as emitted by
// speech-to-text services, into integers.
//
// Only the range needed for money and calendar dates is supported: cardinals
// and ordinals from zero to ninety-nine, assembled from at most two words
// ("twenty two", "thirty first").
package numwords

import "strings"

var units = map[string]int{
	"zero": 0, "oh": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14,
	"fifteenth": 15, "sixteenth": 16, "seventeenth": 17, "eighteenth": 18,
	"nineteenth": 19, "twentieth": 20, "thirtieth": 30,
}

// digitWords are the words replaced by [Normalize].
var digitWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
}

func clean(w string) string {
	return strings.Trim(strings.ToLower(w), ".,;:!?-")
}

// Cardinal returns the value of a single cardinal word such as "seven" or
// "forty".
func Cardinal(w string) (int, bool) {
	w = clean(w)
	if v, ok := units[w]; ok {
		return v, true
	}
	if v, ok := tens[w]; ok {
		return v, true
	}
	return 0, false
}

// Ordinal returns the value of a single ordinal word such as "second".
func Ordinal(w string) (int, bool) {
	v, ok := ordinals[clean(w)]
	return v, ok
}

// IsNumberWord reports whether w is a cardinal or ordinal number word.
func IsNumberWord(w string) bool {
	if _, ok := Cardinal(w); ok {
		return true
	}
	_, ok := Ordinal(w)
	return ok
}

// Group is one number assembled from adjacent words. End is exclusive.
type Group struct {
	Value   int
	Ordinal bool
	Start   int
	End     int
}

// Groups assembles the run of number words beginning at tokens[start] into
// numbers. A tens word absorbs a following unit word ("twenty two" = 22,
// "twenty second" = 22nd). The scan stops at the first non-number word.
func Groups(tokens []string, start int) []Group {
	var out []Group
	i := start
	for i < len(tokens) {
		w := clean(tokens[i])
		if t, ok := tens[w]; ok {
			g := Group{Value: t, Start: i, End: i + 1}
			if i+1 < len(tokens) {
				next := clean(tokens[i+1])
				if u, ok := units[next]; ok && u >= 1 && u <= 9 && next != "oh" {
					g.Value += u
					g.End = i + 2
				} else if o, ok := ordinals[next]; ok && o <= 9 {
					g.Value += o
					g.Ordinal = true
					g.End = i + 2
				}
			}
			out = append(out, g)
			i = g.End
			continue
		}
		if u, ok := units[w]; ok {
			out = append(out, Group{Value: u, Start: i, End: i + 1})
			i++
			continue
		}
		if o, ok := ordinals[w]; ok {
			out = append(out, Group{Value: o, Ordinal: true, Start: i, End: i + 1})
			i++
			continue
		}
		break
	}
	return out
}

// Parse converts a phrase of one or two number words into its value. It
// fails when the phrase contains anything else.
func Parse(phrase string) (int, bool) {
	tokens := strings.Fields(phrase)
	if len(tokens) == 0 {
		return 0, false
	}
	gs := Groups(tokens, 0)
	if len(gs) != 1 || gs[0].End != len(tokens) {
		return 0, false
	}
	return gs[0].Value, true
}

// Normalize returns a copy of tokens with the single-digit words zero to
// nine replaced by digits. Surrounding punctuation on a replaced token is
// kept so that "five." becomes "5.". A digit word that completes a tens
// word ("twenty five") is left alone.
func Normalize(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t
		lower := strings.ToLower(t)
		core := strings.TrimRight(lower, ".,")
		d, ok := digitWords[core]
		if !ok {
			continue
		}
		if i > 0 {
			if _, isTens := tens[clean(tokens[i-1])]; isTens {
				continue
			}
		}
		out[i] = d + lower[len(core):]
	}
	return out
}

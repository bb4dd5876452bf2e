package roster

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	phoneticThreshold = 0.70
	fuzzyThreshold    = 0.85
)

// Suggest returns up to limit canonical names that sound like phrase, best
// first. A candidate qualifies when its Double Metaphone codes overlap the
// phrase and its Jaro-Winkler similarity is at least 0.70, or, failing any
// phonetic overlap, when similarity alone is at least 0.85.
//
// Suggestions are for human review only. They are never used by
// [Roster.Resolve].
func (r *Roster) Suggest(phrase string, limit int) []string {
	input := strings.Fields(Normalize(phrase))
	if len(input) == 0 || limit <= 0 {
		return nil
	}
	inputCodes := codesFor(input)

	type candidate struct {
		name     string
		score    float64
		phonetic bool
	}
	var cands []candidate
	for _, name := range r.names {
		tokens := strings.Fields(strings.ToLower(name))
		score := bestScore(input, tokens)
		phonetic := overlaps(inputCodes, codesFor(tokens))
		if (phonetic && score >= phoneticThreshold) || score >= fuzzyThreshold {
			cands = append(cands, candidate{name: name, score: score, phonetic: phonetic})
		}
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		if a.phonetic != b.phonetic {
			if a.phonetic {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]string, 0, min(limit, len(cands)))
	for _, c := range cands[:min(limit, len(cands))] {
		out = append(out, c.name)
	}
	return out
}

func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

// bestScore is the highest Jaro-Winkler similarity over the full phrase, the
// space-stripped phrase and every token pair.
func bestScore(input, name []string) float64 {
	score := matchr.JaroWinkler(strings.Join(input, " "), strings.Join(name, " "), false)
	if s := matchr.JaroWinkler(strings.Join(input, ""), strings.Join(name, ""), false); s > score {
		score = s
	}
	for _, a := range input {
		for _, b := range name {
			if s := matchr.JaroWinkler(a, b, false); s > score {
				score = s
			}
		}
	}
	return score
}

// Package roster maps noisy, speech-to-text name phrases to canonical
// employee names.
//
// A [Roster] is an immutable snapshot. It is built once from a roster file
// (see [Load]) and shared read-only by every shift processed while it is
// current; reloading produces a new snapshot via [Watcher] instead of
// mutating the existing one.
//
// Lookup is exact: [Roster.Resolve] never applies fuzzy matching. Phonetic
// similarity is only used by [Roster.Suggest] to give a human reviewer
// candidates for a name that did not resolve.
package roster

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Employee is one roster entry as written in the roster file.
type Employee struct {
	// Name is the canonical "First Last" form.
	Name string `yaml:"name"`

	// Variants are known mis-hearings and nicknames. Matching is
	// case-insensitive and whitespace-normalised.
	Variants []string `yaml:"variants"`

	// Support marks the employee as eligible for expo, busser and utility
	// roles.
	Support bool `yaml:"support"`
}

// Override forces any token containing Substring to resolve to Name. It
// covers names that speech recognition reliably replaces with an unrelated
// common word.
type Override struct {
	Substring string `yaml:"substring"`
	Name      string `yaml:"name"`
}

// Result is the outcome of [Roster.Resolve]. Canonical is empty when the
// phrase did not resolve.
type Result struct {
	Canonical string

	// Ambiguous lists the canonical names an ambiguous key maps to. It is
	// only set when nothing else in the phrase resolved.
	Ambiguous []string
}

// Resolved reports whether the phrase mapped to a canonical name.
func (r Result) Resolved() bool { return r.Canonical != "" }

// Roster is an immutable name-variant snapshot. All methods are safe for
// concurrent use.
type Roster struct {
	keys      map[string]string
	ambiguous map[string][]string
	names     []string
	support   map[string]bool
	overrides []Override
	version   string
}

// key layers, highest priority first
const (
	layerCanonical = iota
	layerVariant
	layerFirstName
	layerCount
)

// New builds a roster snapshot. Canonical names always resolve to
// themselves. Explicit variants take priority over the first-name keys that
// are added automatically, so a variant can disambiguate a shared first
// name. A key that still maps to more than one employee is ambiguous and
// never resolves.
func New(employees []Employee, overrides []Override) (*Roster, error) {
	var errs []error
	layers := [layerCount]map[string][]string{}
	for i := range layers {
		layers[i] = make(map[string][]string)
	}
	add := func(layer int, key, name string) {
		key = Normalize(key)
		if key == "" || slices.Contains(layers[layer][key], name) {
			return
		}
		layers[layer][key] = append(layers[layer][key], name)
	}

	r := &Roster{
		keys:      make(map[string]string),
		ambiguous: make(map[string][]string),
		support:   make(map[string]bool),
	}
	seen := make(map[string]bool)
	for i, e := range employees {
		name := strings.Join(strings.Fields(e.Name), " ")
		if name == "" {
			errs = append(errs, fmt.Errorf("roster: employees[%d]: name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("roster: employees[%d]: duplicate name %q", i, name))
			continue
		}
		seen[name] = true
		r.names = append(r.names, name)
		if e.Support {
			r.support[name] = true
		}

		add(layerCanonical, name, name)
		for _, v := range e.Variants {
			add(layerVariant, v, name)
		}
		if first := strings.Fields(name); len(first) > 1 {
			add(layerFirstName, first[0], name)
		}
	}

	for i, o := range overrides {
		sub := strings.ToLower(strings.TrimSpace(o.Substring))
		switch {
		case sub == "":
			errs = append(errs, fmt.Errorf("roster: overrides[%d]: substring is required", i))
		case !seen[o.Name]:
			errs = append(errs, fmt.Errorf("roster: overrides[%d]: %q is not a roster name", i, o.Name))
		default:
			r.overrides = append(r.overrides, Override{Substring: sub, Name: o.Name})
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for layer := range layers {
		for key, names := range layers[layer] {
			if _, done := r.keys[key]; done {
				continue
			}
			if _, done := r.ambiguous[key]; done {
				continue
			}
			if len(names) == 1 {
				r.keys[key] = names[0]
				continue
			}
			amb := slices.Clone(names)
			slices.Sort(amb)
			r.ambiguous[key] = amb
		}
	}
	slices.Sort(r.names)
	r.version = fingerprint(r)
	return r, nil
}

// fingerprint hashes the resolved key space so two snapshots built from
// equivalent files share a version.
func fingerprint(r *Roster) string {
	keys := make([]string, 0, len(r.keys)+len(r.ambiguous))
	for k, v := range r.keys {
		keys = append(keys, k+"="+v)
	}
	for k, v := range r.ambiguous {
		keys = append(keys, k+"?"+strings.Join(v, "|"))
	}
	for _, o := range r.overrides {
		keys = append(keys, "~"+o.Substring+"="+o.Name)
	}
	for n := range r.support {
		keys = append(keys, "+"+n)
	}
	slices.Sort(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:6])
}

// Normalize lowercases s, strips punctuation and possessives from each word
// and collapses whitespace. It is the key form used for every lookup.
func Normalize(s string) string {
	words := strings.Fields(strings.ToLower(s))
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"()[]-")
		w = strings.TrimSuffix(w, "'s")
		w = strings.TrimSuffix(w, "’s")
		w = strings.Trim(w, "'’")
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// Resolve maps phrase to a canonical name. Phonetic-collision overrides are
// checked first, then the whole phrase, then each single word from left to
// right, then each contiguous two-word window. The first match wins.
func (r *Roster) Resolve(phrase string) Result {
	norm := Normalize(phrase)
	if norm == "" {
		return Result{}
	}
	words := strings.Fields(norm)

	for _, w := range words {
		for _, o := range r.overrides {
			if strings.Contains(w, o.Substring) {
				return Result{Canonical: o.Name}
			}
		}
	}

	var amb []string
	try := func(key string) (string, bool) {
		if name, ok := r.keys[key]; ok {
			return name, true
		}
		if a, ok := r.ambiguous[key]; ok && amb == nil {
			amb = a
		}
		return "", false
	}

	if name, ok := try(norm); ok {
		return Result{Canonical: name}
	}
	for _, w := range words {
		if name, ok := try(w); ok {
			return Result{Canonical: name}
		}
	}
	for i := 0; i+1 < len(words); i++ {
		if name, ok := try(words[i] + " " + words[i+1]); ok {
			return Result{Canonical: name}
		}
	}
	return Result{Ambiguous: slices.Clone(amb)}
}

// Lookup matches key exactly against the variant map after checking the
// overrides. Unlike [Roster.Resolve] it never looks at parts of key.
func (r *Roster) Lookup(key string) Result {
	norm := Normalize(key)
	if norm == "" {
		return Result{}
	}
	for _, w := range strings.Fields(norm) {
		for _, o := range r.overrides {
			if strings.Contains(w, o.Substring) {
				return Result{Canonical: o.Name}
			}
		}
	}
	if name, ok := r.keys[norm]; ok {
		return Result{Canonical: name}
	}
	return Result{Ambiguous: slices.Clone(r.ambiguous[norm])}
}

// IsKey reports whether word, on its own, is a known or ambiguous roster
// key, or triggers an override.
func (r *Roster) IsKey(word string) bool {
	w := Normalize(word)
	if w == "" {
		return false
	}
	if _, ok := r.keys[w]; ok {
		return true
	}
	if _, ok := r.ambiguous[w]; ok {
		return true
	}
	for _, o := range r.overrides {
		if strings.Contains(w, o.Substring) {
			return true
		}
	}
	return false
}

// IsCanonical reports whether name is exactly a canonical roster name.
func (r *Roster) IsCanonical(name string) bool {
	_, ok := slices.BinarySearch(r.names, name)
	return ok
}

// IsSupportEligible reports whether name may work a support role.
func (r *Roster) IsSupportEligible(name string) bool { return r.support[name] }

// HasSupportDesignations reports whether the roster marks anyone as
// support-eligible. Rosters without designations place no restriction on
// support roles.
func (r *Roster) HasSupportDesignations() bool { return len(r.support) > 0 }

// Names returns the canonical names in sorted order.
func (r *Roster) Names() []string { return slices.Clone(r.names) }

// Len returns the number of employees.
func (r *Roster) Len() int { return len(r.names) }

// Version identifies the snapshot content.
func (r *Roster) Version() string { return r.version }

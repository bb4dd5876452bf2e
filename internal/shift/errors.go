package shift

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors, one per failure kind. Every [*Error] unwraps to one of
// these so callers can branch with errors.Is.
var (
	ErrUnresolvedName    = errors.New("unresolved name")
	ErrUnparseableAmount = errors.New("unparseable amount")
	ErrAmbiguousDate     = errors.New("ambiguous date")
	ErrEmptyResult       = errors.New("could not parse any name/amount pairs")
	ErrConsistency       = errors.New("consistency violation")
	ErrConfiguration     = errors.New("incomplete or contradictory shift configuration")
)

// Stage names the pipeline component that produced an [Error].
type Stage string

const (
	StageRoster       Stage = "roster"
	StageAmount       Stage = "amount"
	StageDate         Stage = "date"
	StageExtract      Stage = "extract"
	StageDistribution Stage = "distribution"
	StageValidate     Stage = "validate"
)

// Unresolved is one name-like occurrence that matched no roster entry.
type Unresolved struct {
	Phrase string
	Span   Span

	// Suggestions are phonetically similar canonical names offered to the
	// human reviewer. They are never applied automatically.
	Suggestions []string

	// Ambiguous lists the canonical names an ambiguous key maps to.
	Ambiguous []string
}

// Error is a structured pipeline failure carrying enough detail for manual
// review. It is returned instead of a partially filled record.
type Error struct {
	Stage    Stage
	Kind     error
	Fragment string
	Detail   string

	// Mismatch is the size of a conservation violation, when applicable.
	Mismatch decimal.Decimal

	Unresolved []Unresolved
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Stage, e.Kind)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Fragment != "" {
		fmt.Fprintf(&b, " (fragment %q)", e.Fragment)
	}
	if !e.Mismatch.IsZero() {
		fmt.Fprintf(&b, " (mismatch %s)", e.Mismatch.StringFixed(2))
	}
	for _, u := range e.Unresolved {
		fmt.Fprintf(&b, "; %q", u.Phrase)
		if len(u.Ambiguous) > 0 {
			fmt.Fprintf(&b, " ambiguous between %s", strings.Join(u.Ambiguous, ", "))
		} else if len(u.Suggestions) > 0 {
			fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(u.Suggestions, ", "))
		}
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an [Error] for stage and kind with a formatted detail.
func Errorf(stage Stage, kind error, format string, args ...any) *Error {
	return &Error{Stage: stage, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

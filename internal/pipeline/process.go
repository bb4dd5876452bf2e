// Package pipeline turns one dictated shift report into a validated
// [shift.Record].
//
// [Processor.Process] is the pure boundary: transcript, roster snapshot and
// hints in, record or *shift.Error out, with no I/O. [Service] wraps it for
// the surrounding program with roster hot reload, tracing, metrics, logging,
// persistence and parallel batches.
package pipeline

import (
	"github.com/jflaig13/mise-core-sub000/internal/distribution"
	"github.com/jflaig13/mise-core-sub000/internal/extract"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
	"github.com/jflaig13/mise-core-sub000/internal/shiftdate"
	"github.com/jflaig13/mise-core-sub000/internal/validate"
)

// Processor runs the stages in order: date and shift detection, fact
// extraction, distribution and validation. It is safe for concurrent use.
type Processor struct {
	detector    *shiftdate.Detector
	schedule    shift.Schedule
	pct         distribution.Percentages
	suggestions int
	calc        *distribution.Calculator
}

// Option configures a [Processor].
type Option func(*Processor)

// WithDetector replaces the date and shift detector.
func WithDetector(d *shiftdate.Detector) Option {
	return func(p *Processor) {
		if d != nil {
			p.detector = d
		}
	}
}

// WithSchedule sets the standard shift windows. Extraction resolves spoken
// times inside them and distribution pro-rates partial shifts against them.
func WithSchedule(s shift.Schedule) Option {
	return func(p *Processor) {
		if len(s) > 0 {
			p.schedule = s
		}
	}
}

// WithPercentages overrides the support tipout rates.
func WithPercentages(pct distribution.Percentages) Option {
	return func(p *Processor) { p.pct = pct }
}

// WithSuggestions sets how many roster suggestions accompany each
// unresolved name.
func WithSuggestions(n int) Option {
	return func(p *Processor) { p.suggestions = n }
}

// NewProcessor returns a Processor with the default detector, schedule and
// percentages.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		detector:    shiftdate.New(),
		schedule:    shift.DefaultSchedule(),
		pct:         distribution.DefaultPercentages(),
		suggestions: 3,
	}
	for _, o := range opts {
		o(p)
	}
	p.calc = distribution.New(
		distribution.WithPercentages(p.pct),
		distribution.WithSchedule(p.schedule),
	)
	return p
}

// Process turns transcript into a validated record using roster r. Every
// failure is a *shift.Error naming the stage that produced it; a record is
// never returned alongside an error.
func (p *Processor) Process(transcript string, r *roster.Roster, h shiftdate.Hints) (*shift.Record, error) {
	if r == nil || r.Len() == 0 {
		return nil, shift.Errorf(shift.StageRoster, shift.ErrConfiguration, "roster is empty")
	}

	sc, err := p.detector.Detect(transcript, h)
	if err != nil {
		return nil, err
	}

	ex := extract.New(r,
		extract.WithWindow(p.schedule.Window(sc.Code)),
		extract.WithSuggestions(p.suggestions),
	)
	facts, err := ex.Extract(transcript)
	if err != nil {
		return nil, err
	}

	rec, err := p.calc.Calculate(sc, facts)
	if err != nil {
		return nil, err
	}
	if err := validate.Record(rec, r); err != nil {
		return nil, err
	}
	return rec, nil
}

var defaultProcessor = NewProcessor()

// Process runs the default [Processor].
func Process(transcript string, r *roster.Roster, h shiftdate.Hints) (*shift.Record, error) {
	return defaultProcessor.Process(transcript, r, h)
}

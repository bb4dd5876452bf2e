package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jflaig13/mise-core-sub000/internal/observe"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
	"github.com/jflaig13/mise-core-sub000/internal/shiftdate"
	"github.com/jflaig13/mise-core-sub000/internal/store"
)

// RosterSource hands out the roster snapshot a shift is processed with.
// *roster.Watcher implements it.
type RosterSource interface {
	Current() *roster.Roster
}

// StaticRoster is a [RosterSource] that always returns the same snapshot.
type StaticRoster struct{ Roster *roster.Roster }

// Current returns s.Roster.
func (s StaticRoster) Current() *roster.Roster { return s.Roster }

// Job is one transcript to process.
type Job struct {
	// Name identifies the job in logs, usually the transcript filename.
	Name       string
	Transcript string
	Hints      shiftdate.Hints
}

// Result is the outcome of one [Job]. Record is set whenever processing
// succeeded, even if a sink then failed to save it.
type Result struct {
	Job     Job
	Record  *shift.Record
	Err     error
	TraceID string
}

type namedSink struct {
	name string
	sink store.Sink
}

// Service processes shifts for the surrounding program. It is safe for
// concurrent use.
type Service struct {
	roster  RosterSource
	proc    *Processor
	sinks   []namedSink
	metrics *observe.Metrics
	workers int
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithProcessor replaces the default [Processor].
func WithProcessor(p *Processor) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.proc = p
		}
	}
}

// WithSink adds a sink that receives every validated record. name labels
// the sink in logs and metrics.
func WithSink(name string, sink store.Sink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
		}
	}
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithWorkers limits how many shifts [Service.ProcessBatch] processes at
// once. The default is GOMAXPROCS.
func WithWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewService returns a Service reading rosters from src.
func NewService(src RosterSource, opts ...ServiceOption) *Service {
	s := &Service{
		roster:  src,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(s)
	}
	if s.proc == nil {
		s.proc = NewProcessor()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// ProcessShift processes one job and saves the record to every sink. The
// roster snapshot is taken once, at the start. When a sink fails, the
// record is returned together with the save error.
func (s *Service) ProcessShift(ctx context.Context, job Job) (*shift.Record, error) {
	res := s.run(ctx, job)
	return res.Record, res.Err
}

// ProcessBatch processes jobs in parallel. Results are in job order. A
// failed job never stops the others; only cancelling ctx does, and jobs not
// yet started then fail with the context error.
func (s *Service) ProcessBatch(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Job: job, Err: err}
				return nil
			}
			results[i] = s.run(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) run(ctx context.Context, job Job) Result {
	ctx, span := observe.StartSpan(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("job", job.Name)))
	defer span.End()
	res := Result{Job: job, TraceID: observe.TraceID(ctx)}
	log := observe.Logger(ctx).With("job", job.Name)

	var r *roster.Roster
	if s.roster != nil {
		r = s.roster.Current()
	}
	start := time.Now()
	rec, err := s.proc.Process(job.Transcript, r, job.Hints)
	s.metrics.ProcessDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.failed(ctx, log, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Err = err
		return res
	}

	code := string(rec.Context.Code)
	span.SetAttributes(
		attribute.String("shift.code", code),
		attribute.String("shift.date", rec.Context.DateString()),
		attribute.String("record.id", rec.ID),
	)
	for _, note := range rec.Context.Audit {
		log.Warn("pipeline.date.audit", "shift", code, "date", rec.Context.DateString(), "note", note)
	}
	s.metrics.RecordShift(ctx, "ok", code)
	s.metrics.TipsDistributed.Add(ctx, rec.TotalPool.InexactFloat64(),
		metric.WithAttributes(attribute.String("shift_code", code)))
	log.Info("pipeline.process.ok",
		"shift", code,
		"date", rec.Context.DateString(),
		"date_source", rec.Context.DateSource,
		"payouts", len(rec.Payouts),
		"total_pool", rec.TotalPool.StringFixed(2),
		"total_tipout", rec.TotalTipout.StringFixed(2),
		"roster_version", r.Version(),
	)

	res.Record = rec
	if err := s.save(ctx, log, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		res.Err = err
	}
	return res
}

func (s *Service) save(ctx context.Context, log *slog.Logger, rec *shift.Record) error {
	var errs []error
	for _, ns := range s.sinks {
		if err := ns.sink.Save(ctx, rec); err != nil {
			s.metrics.RecordSinkWrite(ctx, ns.name, "failed")
			log.Error("pipeline.sink.failed", "sink", ns.name, "record", rec.ID, "err", err)
			errs = append(errs, fmt.Errorf("pipeline: save %s %s to %s: %w",
				rec.Context.DateString(), rec.Context.Code, ns.name, err))
			continue
		}
		s.metrics.RecordSinkWrite(ctx, ns.name, "ok")
	}
	return errors.Join(errs...)
}

func (s *Service) failed(ctx context.Context, log *slog.Logger, err error) {
	s.metrics.RecordShift(ctx, "failed", "unknown")

	var se *shift.Error
	if !errors.As(err, &se) {
		log.Error("pipeline.process.failed", "err", err)
		return
	}
	s.metrics.RecordStageFailure(ctx, string(se.Stage), KindLabel(se.Kind))
	if len(se.Unresolved) > 0 {
		s.metrics.UnresolvedNames.Add(ctx, int64(len(se.Unresolved)))
		for _, u := range se.Unresolved {
			log.Warn("pipeline.extract.unresolved",
				"phrase", u.Phrase,
				"suggestions", u.Suggestions,
				"ambiguous", u.Ambiguous,
			)
		}
	}
	attrs := []any{"kind", KindLabel(se.Kind), "detail", se.Detail}
	if se.Fragment != "" {
		attrs = append(attrs, "fragment", se.Fragment)
	}
	if !se.Mismatch.IsZero() {
		attrs = append(attrs, "mismatch", se.Mismatch.StringFixed(2))
	}
	log.Error("pipeline."+string(se.Stage)+".failed", attrs...)
}

// KindLabel returns a short snake_case label for one of the shift error
// kinds, for metrics and machine-readable output.
func KindLabel(kind error) string {
	switch {
	case errors.Is(kind, shift.ErrUnresolvedName):
		return "unresolved_name"
	case errors.Is(kind, shift.ErrUnparseableAmount):
		return "unparseable_amount"
	case errors.Is(kind, shift.ErrAmbiguousDate):
		return "ambiguous_date"
	case errors.Is(kind, shift.ErrEmptyResult):
		return "empty_result"
	case errors.Is(kind, shift.ErrConsistency):
		return "consistency"
	case errors.Is(kind, shift.ErrConfiguration):
		return "configuration"
	}
	return "other"
}

// Command tipsheet turns dictated end-of-shift reports into validated tip
// distributions.
//
//	tipsheet -config tipsheet.yaml [-date 2025-11-24] [-shift PM] [-out rows.jsonl] report.txt...
//
// Each transcript file is one shift. Its filename is used as a date and
// shift hint. The command exits non-zero when any transcript fails, after
// printing the structured error for manual review.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jflaig13/mise-core-sub000/internal/config"
	"github.com/jflaig13/mise-core-sub000/internal/health"
	"github.com/jflaig13/mise-core-sub000/internal/observe"
	"github.com/jflaig13/mise-core-sub000/internal/pipeline"
	"github.com/jflaig13/mise-core-sub000/internal/roster"
	"github.com/jflaig13/mise-core-sub000/internal/shift"
	"github.com/jflaig13/mise-core-sub000/internal/shiftdate"
	"github.com/jflaig13/mise-core-sub000/internal/store"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "tipsheet.yaml", "path to the YAML configuration file")
	dateFlag := flag.String("date", "", "shift date as YYYY-MM-DD; overrides detection for every transcript")
	shiftFlag := flag.String("shift", "", "AM or PM; overrides detection for every transcript")
	outPath := flag.String("out", "", `append rows as JSON lines to this file ("-" for stdout); overrides storage.jsonl_path`)
	workers := flag.Int("workers", 0, "transcripts processed in parallel (default GOMAXPROCS)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "tipsheet: no transcript files given")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "tipsheet: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "tipsheet: %v\n", err)
		}
		return 1
	}
	slog.SetDefault(newLogger(cfg.LogLevel))

	hints, err := parseHints(*dateFlag, *shiftFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tipsheet: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "tipsheet",
		ServiceVersion: version,
		Registry:       reg,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	watcher, err := roster.NewWatcher(cfg.Roster.Path, logRosterChange,
		roster.WithInterval(cfg.Roster.PollInterval))
	if err != nil {
		slog.Error("failed to load roster", "path", cfg.Roster.Path, "err", err)
		return 1
	}
	defer watcher.Stop()
	slog.Info("roster loaded", "path", cfg.Roster.Path,
		"employees", watcher.Current().Len(), "version", watcher.Current().Version())

	schedule, err := cfg.Schedule()
	if err != nil {
		slog.Error("invalid shift schedule", "err", err)
		return 1
	}
	proc := pipeline.NewProcessor(
		pipeline.WithSchedule(schedule),
		pipeline.WithPercentages(cfg.Percentages()),
		pipeline.WithDetector(shiftdate.New(
			shiftdate.WithPayPeriod(cfg.Anchor(), cfg.PayPeriod.LengthDays),
			shiftdate.WithLocation(cfg.Location()),
		)),
	)
	opts := []pipeline.ServiceOption{
		pipeline.WithProcessor(proc),
		pipeline.WithMetrics(observe.DefaultMetrics()),
		pipeline.WithWorkers(*workers),
	}
	checks := []health.Check{health.RosterLoaded(watcher)}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()
		sink := store.NewPostgresSink(pool)
		if err := sink.Migrate(ctx); err != nil {
			slog.Error("failed to migrate postgres schema", "err", err)
			return 1
		}
		opts = append(opts, pipeline.WithSink("postgres", store.NewBreaker("postgres", sink, 3, 30*time.Second)))
		checks = append(checks, health.Database(pool))
	}

	jsonlPath := cfg.Storage.JSONLPath
	if *outPath != "" {
		jsonlPath = *outPath
	}
	switch jsonlPath {
	case "":
	case "-":
		opts = append(opts, pipeline.WithSink("jsonl", store.NewJSONLSink(os.Stdout)))
	default:
		sink, err := store.OpenJSONL(jsonlPath)
		if err != nil {
			slog.Error("failed to open row output", "err", err)
			return 1
		}
		defer sink.Close()
		opts = append(opts, pipeline.WithSink("jsonl", sink))
	}

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           health.NewMux(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), checks...),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "addr", addr, "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("serving metrics", "addr", addr)
	}

	jobs, err := readJobs(flag.Args(), hints)
	if err != nil {
		slog.Error("failed to read transcripts", "err", err)
		return 1
	}

	svc := pipeline.NewService(watcher, opts...)
	results := svc.ProcessBatch(ctx, jobs)

	report := os.Stdout
	if jsonlPath == "-" {
		report = os.Stderr
	}
	failed := 0
	for _, res := range results {
		if res.Record != nil {
			printRecord(report, res)
		}
		if res.Err != nil {
			failed++
			printFailure(os.Stderr, res)
		}
	}
	slog.Info("done", "transcripts", len(results), "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// newLogger builds a tint handler at level. LOG_LEVEL overrides the
// configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	if env := config.LogLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); env.IsValid() {
		level = env
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level.Level(),
		TimeFormat: time.Kitchen,
	}))
}

func logRosterChange(old, new *roster.Roster) {
	c := roster.Diff(old, new)
	slog.Info("roster reloaded",
		"version", new.Version(),
		"added", c.Added,
		"removed", c.Removed,
		"support_changed", c.SupportChanged,
	)
}

func parseHints(date, period string) (shiftdate.Hints, error) {
	var h shiftdate.Hints
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return h, fmt.Errorf("-date %q is not YYYY-MM-DD", date)
		}
		h.Date = d
	}
	if period != "" {
		h.Period = shift.Period(strings.ToUpper(period))
		if !h.Period.IsValid() {
			return h, fmt.Errorf("-shift %q must be AM or PM", period)
		}
	}
	return h, nil
}

func readJobs(paths []string, hints shiftdate.Hints) ([]pipeline.Job, error) {
	jobs := make([]pipeline.Job, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		h := hints
		h.Filename = filepath.Base(p)
		jobs = append(jobs, pipeline.Job{Name: p, Transcript: string(data), Hints: h})
	}
	return jobs, nil
}

func printRecord(w io.Writer, res pipeline.Result) {
	rec := res.Record
	fmt.Fprintf(w, "%s  %s %s  (%s, pay period %s)\n", res.Job.Name,
		rec.Context.DateString(), rec.Context.Code, rec.Context.DateSource, rec.Context.PayPeriod.ID)
	for _, note := range rec.Context.Audit {
		fmt.Fprintf(w, "  note: %s\n", note)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, row := range rec.Rows() {
		sales := ""
		if row.FoodSales != nil {
			sales = row.FoodSales.StringFixed(2)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t\n", row.Employee, row.Role, row.Amount.StringFixed(2), sales)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "  total %s, tipout %s\n\n", rec.TotalPool.StringFixed(2), rec.TotalTipout.StringFixed(2))
}

func printFailure(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "FAILED %s", res.Job.Name)
	if res.TraceID != "" {
		fmt.Fprintf(w, " [trace %s]", res.TraceID)
	}
	fmt.Fprintln(w)

	var se *shift.Error
	if !errors.As(res.Err, &se) {
		fmt.Fprintf(w, "  %v\n", res.Err)
		return
	}
	fmt.Fprintf(w, "  stage:  %s\n  kind:   %s\n", se.Stage, pipeline.KindLabel(se.Kind))
	if se.Detail != "" {
		fmt.Fprintf(w, "  detail: %s\n", se.Detail)
	}
	if se.Fragment != "" {
		fmt.Fprintf(w, "  text:   %q\n", se.Fragment)
	}
	if !se.Mismatch.IsZero() {
		fmt.Fprintf(w, "  off by: %s\n", se.Mismatch.StringFixed(2))
	}
	for _, u := range se.Unresolved {
		switch {
		case len(u.Ambiguous) > 0:
			fmt.Fprintf(w, "  name %q could be %s\n", u.Phrase, strings.Join(u.Ambiguous, " or "))
		case len(u.Suggestions) > 0:
			fmt.Fprintf(w, "  name %q not on roster; similar: %s\n", u.Phrase, strings.Join(u.Suggestions, ", "))
		default:
			fmt.Fprintf(w, "  name %q not on roster\n", u.Phrase)
		}
	}
}

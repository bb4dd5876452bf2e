// Package health serves the operational HTTP surface of a long-running
// tipsheet process: liveness, readiness and Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jflaig13/mise-core-sub000/internal/roster"
)

const probeTimeout = 5 * time.Second

// Check is one named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// RosterLoaded fails while src has no usable roster snapshot.
func RosterLoaded(src interface{ Current() *roster.Roster }) Check {
	return Check{Name: "roster", Probe: func(context.Context) error {
		r := src.Current()
		if r == nil || r.Len() == 0 {
			return errors.New("no roster loaded")
		}
		return nil
	}}
}

// Database fails when db cannot be pinged. *pgxpool.Pool satisfies the
// interface.
func Database(db interface{ Ping(context.Context) error }) Check {
	return Check{Name: "postgres", Probe: db.Ping}
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewMux returns a mux serving GET /healthz, GET /readyz and, when metrics
// is non-nil, /metrics.
func NewMux(metrics http.Handler, checks ...Check) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, report{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := probe(r.Context(), checks)
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, rep)
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

func probe(ctx context.Context, checks []Check) (report, bool) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(checks))}
	ok := true
	for _, c := range checks {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := c.Probe(pctx)
		cancel()
		if err != nil {
			rep.Checks[c.Name] = fmt.Sprintf("fail: %v", err)
			ok = false
			continue
		}
		rep.Checks[c.Name] = "ok"
	}
	if !ok {
		rep.Status = "fail"
	}
	return rep, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package health serves the liveness report of the process dependencies.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"smp/pkg/platform/httputil"
)

// Checker reports whether one dependency is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler runs every checker concurrently with timeout and answers 200 when
// all pass, 503 otherwise.
func Handler(checkers map[string]Checker, timeout time.Duration) http.HandlerFunc {
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		results := make([]string, len(names))
		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				if err := checkers[name].Health(ctx); err != nil {
					results[i] = err.Error()
					return err
				}
				results[i] = "ok"
				return nil
			})
		}
		failed := g.Wait() != nil

		rep := report{Status: "ok", Checks: make(map[string]string, len(names))}
		for i, name := range names {
			rep.Checks[name] = results[i]
		}
		status := http.StatusOK
		if failed {
			rep.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, rep)
	}
}

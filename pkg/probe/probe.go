// Package probe runs the guide's startup checks: storage, scratch space and the admin backend.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 5 * time.Second

// CheckFunc returns nil when the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // a failure prevents startup
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes concurrently, each under DefaultTimeout. Results keep the input order.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
			defer cancel()
			start := time.Now()
			err := p.Check(checkCtx)
			results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// AnalyzeResults logs a summary and joins the errors of failed critical probes.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup Checks Summary")
	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}
		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		switch {
		case r.Error == nil:
			slog.Info(msg)
		case r.Probe.Critical:
			slog.Error(msg, "error", r.Error)
			criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			slog.Warn(msg, "error", r.Error)
		}
	}
	return errors.Join(criticalErrors...)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Database checks that the local database answers.
func Database(db Pinger) CheckFunc {
	return db.PingContext
}

// WritableDir checks that dir exists (creating it if needed) and accepts new files.
func WritableDir(dir string) CheckFunc {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return err
		}
		name := f.Name()
		f.Close()
		return os.Remove(filepath.Clean(name))
	}
}

// AnyReachable passes when at least one of the base URLs answers GET /health.
// An empty list fails, since there is nothing to sync from.
func AnyReachable(client *http.Client, baseURLs func(ctx context.Context) []string) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		urls := baseURLs(ctx)
		if len(urls) == 0 {
			return errors.New("no admin endpoints configured")
		}
		var errs []error
		for _, base := range urls {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", http.NoBody)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			resp, err := client.Do(req)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", base, err))
				continue
			}
			resp.Body.Close()
			if resp.StatusCode < 400 {
				return nil
			}
			errs = append(errs, fmt.Errorf("%s: status %d", base, resp.StatusCode))
		}
		return errors.Join(errs...)
	}
}

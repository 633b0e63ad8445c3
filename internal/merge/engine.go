package merge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/starford/scribe/internal/trd"
)

// Options bound the calls the engine makes to the merge capability.
type Options struct {
	// Attempts is the number of calls per section before falling back (minimum 1).
	Attempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// Timeout is the deadline of a single call. Zero disables it.
	Timeout time.Duration
	// Concurrency is the number of sections merged at once. Values below 2 merge sequentially.
	Concurrency int
	// Limiter throttles calls across all sections. Nil disables throttling.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing perMinute calls, or nil when perMinute <= 0.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Report summarises one merge pass.
type Report struct {
	// Failed lists the keys of sections that kept their previous content.
	Failed []string
}

// Engine runs merge passes.
type Engine struct {
	merger Merger
	opts   Options
	logger *slog.Logger
}

// NewEngine creates an engine around m.
func NewEngine(m Merger, logger *slog.Logger, opts Options) *Engine {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{merger: m, opts: opts, logger: logger}
}

// Merge folds fragment into every section of o. Sections are independent:
// a section whose merge fails keeps its content from o and is listed in the
// report, and the rest of the pass continues.
func (e *Engine) Merge(ctx context.Context, o trd.Ontology, fragment string) (trd.Ontology, Report) {
	secs := trd.Sections()
	results := make([]string, len(secs))
	errs := make([]error, len(secs))

	if e.opts.Concurrency > 1 {
		var g errgroup.Group
		g.SetLimit(e.opts.Concurrency)
		for i, s := range secs {
			g.Go(func() error {
				results[i], errs[i] = e.MergeSection(ctx, s, o.Get(s.ID), fragment)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, s := range secs {
			results[i], errs[i] = e.MergeSection(ctx, s, o.Get(s.ID), fragment)
		}
	}

	out := o
	var rep Report
	for i, s := range secs {
		out.Set(s.ID, results[i])
		if errs[i] != nil {
			rep.Failed = append(rep.Failed, s.Key)
		}
	}
	return out, rep
}

// MergeSection merges fragment into one section. On failure it logs, and
// returns the existing content together with the last error.
func (e *Engine) MergeSection(ctx context.Context, s trd.Section, existing, fragment string) (string, error) {
	req := Request{Section: s, Existing: existing, Fragment: fragment}

	var lastErr error
	for attempt := 1; attempt <= e.opts.Attempts; attempt++ {
		if attempt > 1 && e.opts.Backoff > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(time.Duration(attempt-1) * e.opts.Backoff):
			}
			if ctx.Err() != nil {
				break
			}
		}

		out, err := e.call(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		e.logger.Debug("merge: attempt failed",
			slog.String("section", s.Key),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if ctx.Err() != nil {
			break
		}
	}

	e.logger.Warn("merge: section kept unchanged",
		slog.String("section", s.Key),
		slog.Int("attempts", e.opts.Attempts),
		slog.String("error", lastErr.Error()))
	return existing, lastErr
}

func (e *Engine) call(ctx context.Context, req Request) (string, error) {
	if e.opts.Limiter != nil {
		if err := e.opts.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("merge: rate limit: %w", err)
		}
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	out, err := e.merger.MergeSection(ctx, req)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Package conformance verifies that a graph honours the retrieval contract.
// It only reads, so it can run against production data.
package conformance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one check
type Result struct {
	Name     string
	Passed   bool
	Skipped  bool
	Err      error
	Checked  int
	Duration time.Duration
}

func (r Result) Status() string {
	switch {
	case r.Skipped:
		return "skip"
	case r.Passed:
		return "pass"
	}
	return "fail"
}

// Report collects every result in check order
type Report struct {
	GraphID  string
	Features grin.Features
	Results  []Result
}

// Passed reports whether no check failed
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed && !res.Skipped {
			return false
		}
	}
	return true
}

// Failed lists the failing results
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed && !res.Skipped {
			out = append(out, res)
		}
	}
	return out
}

// errSkip marks a check whose feature is disabled
var errSkip = errors.New("skipped")

type check struct {
	name string
	run  func(ctx context.Context, g grin.Graph) (int, error)
}

var checks = []check{
	{"feature_gating", checkFeatureGating},
	{"original_id_int64", checkInt64RoundTrip},
	{"original_id_string", checkStringRoundTrip},
	{"property_name", checkPropertyNames},
	{"property_by_name", checkByName},
	{"typed_reads", checkTypedReads},
}

// Checker runs the checks against one graph
type Checker struct {
	g           grin.Graph
	logger      *logrus.Entry
	concurrency int
}

// New returns a checker running at most concurrency checks at once.
// Zero or less runs them one by one.
func New(g grin.Graph, concurrency int, logger *logrus.Logger) *Checker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Checker{
		g:           g,
		logger:      logger.WithFields(logrus.Fields{"component": "conformance", "graph": g.ID()}),
		concurrency: concurrency,
	}
}

// Run executes every check. Individual failures are reported in the
// result; the error is only set when ctx is cancelled.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	report := &Report{GraphID: c.g.ID(), Features: c.g.Features()}
	before := c.g.Tracker().Stats()

	results := make([]Result, len(checks))
	var mu sync.Mutex
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, ch := range checks {
		i, ch := i, ch
		eg.Go(func() error {
			res := c.runOne(ectx, ch)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return ectx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Results = append(results, c.checkHandleBalance(before))

	c.logger.WithFields(logrus.Fields{
		"passed": report.Passed(),
		"failed": len(report.Failed()),
	}).Info("Conformance run complete")
	return report, nil
}

func (c *Checker) runOne(ctx context.Context, ch check) Result {
	start := time.Now()
	n, err := ch.run(ctx, c.g)
	res := Result{Name: ch.name, Checked: n, Duration: time.Since(start)}
	log := c.logger.WithFields(logrus.Fields{"check": ch.name, "checked": n, "duration": res.Duration})
	switch {
	case errors.Is(err, errSkip):
		res.Skipped = true
		log.Debug("Check skipped")
	case err != nil:
		res.Err = err
		log.WithError(err).Warn("Check failed")
	default:
		res.Passed = true
		log.Debug("Check passed")
	}
	return res
}

// checkHandleBalance compares live handle counts with those seen before the
// other checks ran
func (c *Checker) checkHandleBalance(before grin.Stats) Result {
	after := c.g.Tracker().Stats()
	res := Result{Name: "handle_balance", Checked: 3}
	if after != before {
		res.Err = fmt.Errorf("live handles changed from %+v to %+v", before, after)
		c.logger.WithError(res.Err).Warn("Check failed")
		return res
	}
	res.Passed = true
	return res
}

// failf builds a check error
func failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

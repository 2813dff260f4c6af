package junit

import (
	"errors"
	"math"
	"sort"
)

// Options carries the selection policy for Analyze.
type Options struct {
	// SlowTestThreshold is the strict lower bound, in seconds, above which
	// a test counts as slow.
	SlowTestThreshold float64
	// MaxSlowTests caps the slow-tests list.
	MaxSlowTests int
	// SlowSuiteQuantile is the duration quantile, in [0,1], that a suite
	// must reach to count as slow.
	SlowSuiteQuantile float64
	// MinSlowSuites is the number of suites to report even when the
	// quantile cut selects fewer, as long as any suite has a duration.
	MinSlowSuites int
}

// DefaultOptions returns the stock selection policy.
func DefaultOptions() Options {
	return Options{
		SlowTestThreshold: 5,
		MaxSlowTests:      20,
		SlowSuiteQuantile: 0.8,
		MinSlowSuites:     1,
	}
}

// Validate rejects selection values the engine cannot honor.
func (o Options) Validate() error {
	if o.SlowTestThreshold < 0 {
		return errors.New("slow test threshold must not be negative")
	}
	if o.MaxSlowTests < 0 {
		return errors.New("max slow tests must not be negative")
	}
	if o.SlowSuiteQuantile < 0 || o.SlowSuiteQuantile > 1 {
		return errors.New("slow suite quantile must be between 0 and 1")
	}
	if o.MinSlowSuites < 0 {
		return errors.New("min slow suites must not be negative")
	}
	return nil
}

// Analyze computes aggregate statistics, the flattened failure list and
// the slow-test and slow-suite selections over a normalized report. The
// report is not modified.
func Analyze(report *Report, opts Options) *Result {
	result := &Result{
		Failed:                []FailedTest{},
		SlowTopQuantileTests:  []SlowTest{},
		SlowTopQuantileSuites: []SlowSuite{},
	}
	if report == nil {
		return result
	}

	// Aggregate counters and the failure list in one pass, suite order
	// then case order then annotation order.
	result.Stats.TotalSuites = len(report.Suites)
	for _, suite := range report.Suites {
		failedInSuite := 0
		for _, c := range suite.Cases {
			result.Stats.TotalTests++
			if c.Failed() {
				failedInSuite++
				result.Stats.FailedTests++
			}
			for _, annotation := range c.Annotations {
				result.Failed = append(result.Failed, FailedTest{
					SuiteName: suite.Name,
					ClassName: c.ClassName,
					TestName:  c.Name,
					Time:      c.Time,
					Status:    annotation.Kind,
					Message:   annotation.Message,
					Type:      annotation.Type,
					Details:   annotation.Details,
					File:      c.File,
				})
			}
		}
		if failedInSuite > 0 {
			result.Stats.FailedSuites++
		}
	}
	result.Stats.PassedTests = result.Stats.TotalTests - result.Stats.FailedTests

	result.SlowTopQuantileTests = selectSlowTests(report, opts)
	result.SlowTopQuantileSuites = selectSlowSuites(report, opts)
	return result
}

// selectSlowTests keeps the timed test cases strictly slower than the
// threshold, slowest first, truncated to the configured maximum. Equal
// durations keep their report order.
func selectSlowTests(report *Report, opts Options) []SlowTest {
	slow := []SlowTest{}
	for _, suite := range report.Suites {
		for _, c := range suite.Cases {
			if c.Time == nil || *c.Time <= opts.SlowTestThreshold {
				continue
			}
			slow = append(slow, SlowTest{
				SuiteName: suite.Name,
				ClassName: c.ClassName,
				TestName:  c.Name,
				Time:      *c.Time,
				File:      c.File,
			})
		}
	}
	sort.SliceStable(slow, func(i, j int) bool {
		return slow[i].Time > slow[j].Time
	})
	limit := opts.MaxSlowTests
	if limit < 0 {
		limit = 0
	}
	if len(slow) > limit {
		slow = slow[:limit]
	}
	return slow
}

// selectSlowSuites retains every suite whose resolved duration reaches the
// configured quantile of all resolved durations. When the quantile cut
// keeps fewer suites than the configured minimum, the list is rebuilt as
// the slowest suites of the whole pool instead.
func selectSlowSuites(report *Report, opts Options) []SlowSuite {
	pool := []SlowSuite{}
	for _, suite := range report.Suites {
		if suite.Time == nil {
			continue
		}
		entry := SlowSuite{
			SuiteName:  suite.Name,
			TotalTime:  *suite.Time,
			TotalTests: len(suite.Cases),
			File:       suite.File,
		}
		for _, c := range suite.Cases {
			if c.Failed() {
				entry.FailedTests++
			}
		}
		pool = append(pool, entry)
	}
	if len(pool) == 0 {
		return pool
	}

	cutoff := quantileCutoff(pool, opts.SlowSuiteQuantile)
	selected := []SlowSuite{}
	for _, suite := range pool {
		if suite.TotalTime >= cutoff {
			selected = append(selected, suite)
		}
	}

	minKeep := opts.MinSlowSuites
	if minKeep > len(pool) {
		minKeep = len(pool)
	}
	if len(selected) < minKeep {
		// The quantile cut came in under the floor; report the slowest
		// suites of the whole pool instead.
		selected = append([]SlowSuite{}, pool...)
		sortByTotalTime(selected)
		return selected[:minKeep]
	}
	sortByTotalTime(selected)
	return selected
}

// sortByTotalTime orders suites slowest first. Equal durations keep their
// report order.
func sortByTotalTime(suites []SlowSuite) {
	sort.SliceStable(suites, func(i, j int) bool {
		return suites[i].TotalTime > suites[j].TotalTime
	})
}

// quantileCutoff returns the inclusive nearest-rank quantile of the pool
// durations: the value at 1-based rank max(1, ceil(q*n)) in ascending
// order. Out-of-range quantiles clamp to the nearest valid rank.
func quantileCutoff(pool []SlowSuite, q float64) float64 {
	durations := make([]float64, len(pool))
	for i, suite := range pool {
		durations[i] = suite.TotalTime
	}
	sort.Float64s(durations)
	rank := int(math.Ceil(q * float64(len(durations))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(durations) {
		rank = len(durations)
	}
	return durations[rank-1]
}

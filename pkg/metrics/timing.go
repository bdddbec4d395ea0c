// Package metrics records timings for the engine's hot paths: tree builds,
// view refreshes, filtering and relevance scoring.
//
// Collection is on by default and uses atomics only, so it is safe to call
// from concurrent pane refreshes. Set BEANWORK_METRICS=0 to turn it off.
//
//	func build() {
//	    defer metrics.Timer(metrics.TreeBuild)()
//	    ...
//	}
package metrics

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("BEANWORK_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates count, total, min and max for one operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Stats returns a point-in-time copy of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:  m.name,
		Count: count,
		Total: time.Duration(total),
		Avg:   time.Duration(avg),
		Max:   time.Duration(m.maxNs.Load()),
		Min:   time.Duration(m.minNs.Load()),
	}
}

// Reset clears all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats is a snapshot of a TimingMetric.
type TimingStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total_ns"`
	Avg   time.Duration `json:"avg_ns"`
	Max   time.Duration `json:"max_ns"`
	Min   time.Duration `json:"min_ns,omitempty"`
}

// Timer starts a measurement and returns the function that stops it.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Engine hot paths.
var (
	TreeBuild = newTimingMetric("tree_build")
	Refresh   = newTimingMetric("refresh")
	Filter    = newTimingMetric("filter")
	Score     = newTimingMetric("score")
)

// All returns every registered metric.
func All() []*TimingMetric {
	return []*TimingMetric{TreeBuild, Refresh, Filter, Score}
}

// ResetAll clears every registered metric.
func ResetAll() {
	for _, m := range All() {
		m.Reset()
	}
}

// AllStats returns stats for metrics that have at least one sample.
func AllStats() []TimingStats {
	stats := make([]TimingStats, 0, len(All()))
	for _, m := range All() {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// WriteSummary prints a table of AllStats to w.
func WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "metric\tcount\tavg\tmax\ttotal")
	for _, s := range AllStats() {
		fmt.Fprintf(tw, "%s\t%d\t%v\t%v\t%v\n", s.Name, s.Count, s.Avg, s.Max, s.Total)
	}
	return tw.Flush()
}

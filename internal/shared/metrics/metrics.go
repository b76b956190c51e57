// Package metrics keeps in-process job counters and duration histograms,
// rendered in Prometheus text format for whatever surface exposes them.
package metrics

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

var defaultBuckets = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000}

var (
	mu        sync.Mutex
	started   = map[string]uint64{}
	completed = map[string]uint64{}
	failed    = map[string]uint64{}
	durations = map[string]*histogram{}
)

// IncJobStarted increments the started counter for a job kind.
func IncJobStarted(kind string) {
	mu.Lock()
	started[kind]++
	mu.Unlock()
}

// IncJobCompleted increments the completed counter for a job kind.
func IncJobCompleted(kind string) {
	mu.Lock()
	completed[kind]++
	mu.Unlock()
}

// IncJobFailed increments the failed counter for a job kind.
func IncJobFailed(kind string) {
	mu.Lock()
	failed[kind]++
	mu.Unlock()
}

// ObserveJobDurationMs records a job duration in milliseconds.
func ObserveJobDurationMs(kind string, value float64) {
	if value < 0 {
		value = 0
	}
	mu.Lock()
	h, ok := durations[kind]
	if !ok {
		h = newHistogram(defaultBuckets)
		durations[kind] = h
	}
	mu.Unlock()
	h.Observe(value)
}

// Reset zeroes all series. Test helper.
func Reset() {
	mu.Lock()
	started = map[string]uint64{}
	completed = map[string]uint64{}
	failed = map[string]uint64{}
	durations = map[string]*histogram{}
	mu.Unlock()
}

// Render renders all series in Prometheus text format.
func Render() string {
	mu.Lock()
	startedCopy := copyCounts(started)
	completedCopy := copyCounts(completed)
	failedCopy := copyCounts(failed)
	durationKinds := make([]string, 0, len(durations))
	snapshots := make(map[string]histogramSnapshot, len(durations))
	for kind, h := range durations {
		durationKinds = append(durationKinds, kind)
		snapshots[kind] = h.Snapshot()
	}
	mu.Unlock()

	var buf bytes.Buffer
	writeCounter(&buf, "job_started_total", "Total jobs started", startedCopy)
	writeCounter(&buf, "job_completed_total", "Total jobs completed", completedCopy)
	writeCounter(&buf, "job_failed_total", "Total jobs failed", failedCopy)

	sort.Strings(durationKinds)
	for _, kind := range durationKinds {
		writeHistogram(&buf, "job_duration_ms", kind, "Job duration in milliseconds", snapshots[kind])
	}
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	kinds := make([]string, 0, len(values))
	for kind := range values {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(buf, "%s{kind=%q} %d\n", name, kind, values[kind])
	}
}

func writeHistogram(buf *bytes.Buffer, name, kind, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{kind=%q,le=%q} %d\n", name, kind, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{kind=%q,le=\"+Inf\"} %d\n", name, kind, snap.count)
	fmt.Fprintf(buf, "%s_sum{kind=%q} %s\n", name, kind, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count{kind=%q} %d\n", name, kind, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns the current time in milliseconds since the epoch.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

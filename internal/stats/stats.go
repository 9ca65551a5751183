// Package stats provides pure aggregation functions over capture entries.
// Functions never fail on empty input; they return explicit empty or
// zero-valued reports instead.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trailstash/harlens/internal/harlog"
)

// StatusGroup aggregates the entries sharing one status code.
type StatusGroup struct {
	Status          int      `json:"status"`
	StatusText      string   `json:"statusText"`
	Count           int      `json:"count"`
	TotalDurationMS float64  `json:"totalDurationMs"`
	AvgDurationMS   float64  `json:"avgDurationMs"`
	MinDurationMS   float64  `json:"minDurationMs"`
	MaxDurationMS   float64  `json:"maxDurationMs"`
	TotalSize       int64    `json:"totalSize"`
	AvgSize         float64  `json:"avgSize"`
	URLs            []string `json:"urls"`
}

// GroupByStatus buckets entries by exact status code, sorted descending by
// count.
func GroupByStatus(entries []harlog.Entry) []StatusGroup {
	byStatus := make(map[int]*StatusGroup)
	order := make([]int, 0)
	for _, e := range entries {
		status, statusText := 0, ""
		if e.Response != nil {
			status, statusText = e.Response.Status, e.Response.StatusText
		}
		g, ok := byStatus[status]
		if !ok {
			g = &StatusGroup{Status: status, StatusText: statusText, MinDurationMS: math.MaxFloat64}
			byStatus[status] = g
			order = append(order, status)
		}
		g.Count++
		g.TotalDurationMS += e.Time
		g.MinDurationMS = math.Min(g.MinDurationMS, e.Time)
		g.MaxDurationMS = math.Max(g.MaxDurationMS, e.Time)
		g.TotalSize += harlog.ResponseSize(e)
		if e.Request != nil {
			g.URLs = append(g.URLs, e.Request.URL)
		}
	}

	out := make([]StatusGroup, 0, len(byStatus))
	for _, status := range order {
		g := byStatus[status]
		g.AvgDurationMS = g.TotalDurationMS / float64(g.Count)
		g.AvgSize = float64(g.TotalSize) / float64(g.Count)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// RangeGroup is one fixed bucket of a size or duration histogram.
type RangeGroup struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

var sizeBuckets = []struct {
	label string
	min   int64 // inclusive
	max   int64 // exclusive, -1 for unbounded
}{
	{"0-1KB", 0, 1 << 10},
	{"1KB-10KB", 1 << 10, 10 << 10},
	{"10KB-100KB", 10 << 10, 100 << 10},
	{"100KB-1MB", 100 << 10, 1 << 20},
	{"1MB-10MB", 1 << 20, 10 << 20},
	{"10MB+", 10 << 20, -1},
}

// GroupBySize buckets entries by response size into fixed byte ranges.
// Empty buckets are omitted; bucket order is ascending by range.
func GroupBySize(entries []harlog.Entry) []RangeGroup {
	counts := make([]int, len(sizeBuckets))
	for _, e := range entries {
		size := harlog.ResponseSize(e)
		for i, b := range sizeBuckets {
			if size >= b.min && (b.max < 0 || size < b.max) {
				counts[i]++
				break
			}
		}
	}
	var out []RangeGroup
	for i, b := range sizeBuckets {
		if counts[i] > 0 {
			out = append(out, RangeGroup{Label: b.label, Count: counts[i]})
		}
	}
	return out
}

var durationBuckets = []struct {
	label string
	min   float64 // inclusive
	max   float64 // exclusive, -1 for unbounded
}{
	{"0-100ms", 0, 100},
	{"100-500ms", 100, 500},
	{"500-1000ms", 500, 1000},
	{"1000-5000ms", 1000, 5000},
	{"5000-10000ms", 5000, 10000},
	{"10000ms+", 10000, -1},
}

// GroupByDuration buckets entries by total duration into fixed millisecond
// ranges. Empty buckets are omitted.
func GroupByDuration(entries []harlog.Entry) []RangeGroup {
	counts := make([]int, len(durationBuckets))
	for _, e := range entries {
		for i, b := range durationBuckets {
			if e.Time >= b.min && (b.max < 0 || e.Time < b.max) {
				counts[i]++
				break
			}
		}
	}
	var out []RangeGroup
	for i, b := range durationBuckets {
		if counts[i] > 0 {
			out = append(out, RangeGroup{Label: b.label, Count: counts[i]})
		}
	}
	return out
}

// MethodGroup aggregates the entries sharing one HTTP method.
type MethodGroup struct {
	Method          string  `json:"method"`
	Count           int     `json:"count"`
	TotalDurationMS float64 `json:"totalDurationMs"`
	AvgDurationMS   float64 `json:"avgDurationMs"`
	SuccessCount    int     `json:"successCount"`
	FailureCount    int     `json:"failureCount"`
}

// GroupByMethod buckets entries by uppercased method. Success counts 2xx
// responses; failure counts status >= 400.
func GroupByMethod(entries []harlog.Entry) []MethodGroup {
	byMethod := make(map[string]*MethodGroup)
	order := make([]string, 0)
	for _, e := range entries {
		method := ""
		if e.Request != nil {
			method = strings.ToUpper(e.Request.Method)
		}
		g, ok := byMethod[method]
		if !ok {
			g = &MethodGroup{Method: method}
			byMethod[method] = g
			order = append(order, method)
		}
		g.Count++
		g.TotalDurationMS += e.Time
		if e.Response != nil {
			switch {
			case e.Response.Status >= 200 && e.Response.Status < 300:
				g.SuccessCount++
			case e.Response.Status >= 400:
				g.FailureCount++
			}
		}
	}
	out := make([]MethodGroup, 0, len(byMethod))
	for _, method := range order {
		g := byMethod[method]
		g.AvgDurationMS = g.TotalDurationMS / float64(g.Count)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// AuthFailure annotates one 401/403 entry with the credential context that
// was sent, distinguishing "no credentials" from "credentials rejected".
type AuthFailure struct {
	URL           string `json:"url"`
	Method        string `json:"method"`
	Status        int    `json:"status"`
	HasAuthHeader bool   `json:"hasAuthHeader"`
	CookieCount   int    `json:"cookieCount"`
}

// FindAuthFailures returns entries with status 401 or 403.
func FindAuthFailures(entries []harlog.Entry) []AuthFailure {
	var out []AuthFailure
	for _, e := range entries {
		if e.Response == nil || (e.Response.Status != 401 && e.Response.Status != 403) {
			continue
		}
		f := AuthFailure{Status: e.Response.Status}
		if e.Request != nil {
			f.URL = e.Request.URL
			f.Method = e.Request.Method
			f.HasAuthHeader = harlog.HasHeader(e.Request.Headers, "Authorization")
			f.CookieCount = len(e.Request.Cookies)
		}
		out = append(out, f)
	}
	return out
}

// Percentile is one computed duration percentile.
type Percentile struct {
	Percentile float64 `json:"percentile"`
	ValueMS    float64 `json:"valueMs"`
}

// DefaultPercentiles are used when the caller passes none.
var DefaultPercentiles = []float64{50, 75, 90, 95, 99}

// DurationPercentiles computes duration percentiles with the nearest-rank
// method: index = ceil(p/100 * n) - 1, clamped to [0, n-1]. No
// interpolation. Returns an empty slice for zero entries.
func DurationPercentiles(entries []harlog.Entry, percentiles []float64) []Percentile {
	if len(entries) == 0 {
		return nil
	}
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	durations := make([]float64, len(entries))
	for i, e := range entries {
		durations[i] = e.Time
	}
	sort.Float64s(durations)

	out := make([]Percentile, 0, len(percentiles))
	for _, p := range percentiles {
		idx := int(math.Ceil(p/100*float64(len(durations)))) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(durations) {
			idx = len(durations) - 1
		}
		out = append(out, Percentile{Percentile: p, ValueMS: durations[idx]})
	}
	return out
}

// SlowEntry is one top-N projection by duration.
type SlowEntry struct {
	URL        string  `json:"url"`
	Method     string  `json:"method"`
	DurationMS float64 `json:"durationMs"`
	Status     int     `json:"status"`
}

// FindSlowest returns the n slowest entries, descending by duration.
func FindSlowest(entries []harlog.Entry, n int) []SlowEntry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	sorted := append([]harlog.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time > sorted[j].Time })
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]SlowEntry, 0, n)
	for _, e := range sorted[:n] {
		s := SlowEntry{DurationMS: e.Time}
		if e.Request != nil {
			s.URL, s.Method = e.Request.URL, e.Request.Method
		}
		if e.Response != nil {
			s.Status = e.Response.Status
		}
		out = append(out, s)
	}
	return out
}

// LargeEntry is one top-N projection by response size.
type LargeEntry struct {
	URL         string `json:"url"`
	Method      string `json:"method"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// FindLargest returns the n largest entries by response size, descending.
func FindLargest(entries []harlog.Entry, n int) []LargeEntry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	sorted := append([]harlog.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return harlog.ResponseSize(sorted[i]) > harlog.ResponseSize(sorted[j])
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]LargeEntry, 0, n)
	for _, e := range sorted[:n] {
		l := LargeEntry{Size: harlog.ResponseSize(e), ContentType: harlog.ContentType(e)}
		if e.Request != nil {
			l.URL, l.Method = e.Request.URL, e.Request.Method
		}
		out = append(out, l)
	}
	return out
}

// Bandwidth totals the bytes moved in each direction.
type Bandwidth struct {
	RequestBytes  int64   `json:"requestBytes"`
	ResponseBytes int64   `json:"responseBytes"`
	TotalBytes    int64   `json:"totalBytes"`
	RequestMiB    float64 `json:"requestMib"`
	ResponseMiB   float64 `json:"responseMib"`
	TotalMiB      float64 `json:"totalMib"`
}

// TotalBandwidth sums request body bytes and response content bytes.
// Unknown sizes (-1) contribute nothing.
func TotalBandwidth(entries []harlog.Entry) Bandwidth {
	var b Bandwidth
	for _, e := range entries {
		if e.Request != nil && e.Request.BodySize > 0 {
			b.RequestBytes += e.Request.BodySize
		}
		b.ResponseBytes += harlog.ResponseSize(e)
	}
	b.TotalBytes = b.RequestBytes + b.ResponseBytes
	const mib = 1 << 20
	b.RequestMiB = float64(b.RequestBytes) / mib
	b.ResponseMiB = float64(b.ResponseBytes) / mib
	b.TotalMiB = float64(b.TotalBytes) / mib
	return b
}

// TimeRange is the observed capture window. HasData is false when no entry
// carried a parsable timestamp.
type TimeRange struct {
	HasData bool   `json:"hasData"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	SpanMS  int64  `json:"spanMs"`
}

// GetTimeRange returns the min/max entry start timestamps and the span
// between them. Entries with unparsable timestamps are skipped.
func GetTimeRange(entries []harlog.Entry) TimeRange {
	var (
		tr         TimeRange
		start, end time.Time
	)
	for _, e := range entries {
		ts, ok := harlog.EntryTime(e)
		if !ok {
			continue
		}
		if !tr.HasData {
			tr.HasData = true
			start, end = ts, ts
			tr.Start, tr.End = e.StartedDateTime, e.StartedDateTime
			continue
		}
		if ts.Before(start) {
			start, tr.Start = ts, e.StartedDateTime
		}
		if ts.After(end) {
			end, tr.End = ts, e.StartedDateTime
		}
	}
	if tr.HasData {
		tr.SpanMS = end.Sub(start).Milliseconds()
	}
	return tr
}

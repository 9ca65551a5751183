package stats

import (
	"reflect"
	"testing"

	"github.com/trailstash/harlens/internal/harlog"
)

func entry(method string, status int, durationMS float64, size int64) harlog.Entry {
	return harlog.Entry{
		StartedDateTime: "2026-08-20T10:00:00Z",
		Time:            durationMS,
		Request:         &harlog.Request{Method: method, URL: "https://a.test/" + method, BodySize: -1},
		Response:        &harlog.Response{Status: status, Content: harlog.Content{Size: size}},
	}
}

func TestGroupByStatusSortsByCountDescending(t *testing.T) {
	entries := []harlog.Entry{
		entry("GET", 200, 10, 100),
		entry("GET", 200, 30, 300),
		entry("GET", 200, 20, 200),
		entry("GET", 404, 5, 50),
	}
	groups := GroupByStatus(entries)
	if len(groups) != 2 {
		t.Fatalf("GroupByStatus() = %d groups; want 2", len(groups))
	}
	g := groups[0]
	if g.Status != 200 || g.Count != 3 {
		t.Fatalf("top group = %+v; want status 200 count 3", g)
	}
	if g.TotalDurationMS != 60 || g.AvgDurationMS != 20 || g.MinDurationMS != 10 || g.MaxDurationMS != 30 {
		t.Fatalf("duration aggregates = %+v; want total 60 avg 20 min 10 max 30", g)
	}
	if g.TotalSize != 600 || g.AvgSize != 200 {
		t.Fatalf("size aggregates = %+v; want total 600 avg 200", g)
	}
	if len(g.URLs) != 3 {
		t.Fatalf("group urls = %v; want 3", g.URLs)
	}
}

func TestBucketCompleteness(t *testing.T) {
	entries := []harlog.Entry{
		entry("GET", 200, 0, 0),
		entry("GET", 200, 99.9, 512),
		entry("GET", 200, 100, 1<<10),
		entry("GET", 200, 4999, 50<<10),
		entry("GET", 200, 12000, 2<<20),
		entry("GET", 200, 600, 20<<20),
	}

	sum := 0
	for _, g := range GroupBySize(entries) {
		sum += g.Count
	}
	if sum != len(entries) {
		t.Fatalf("GroupBySize() bucket counts sum = %d; want %d", sum, len(entries))
	}

	sum = 0
	for _, g := range GroupByDuration(entries) {
		sum += g.Count
	}
	if sum != len(entries) {
		t.Fatalf("GroupByDuration() bucket counts sum = %d; want %d", sum, len(entries))
	}

	sum = 0
	for _, g := range GroupByStatus(entries) {
		sum += g.Count
	}
	if sum != len(entries) {
		t.Fatalf("GroupByStatus() bucket counts sum = %d; want %d", sum, len(entries))
	}
}

func TestGroupBySizeOmitsEmptyBuckets(t *testing.T) {
	entries := []harlog.Entry{
		entry("GET", 200, 10, 500),    // 0-1KB
		entry("GET", 200, 10, 5<<10),  // 1KB-10KB
		entry("GET", 200, 10, 500),    // 0-1KB
		entry("GET", 200, 10, 15<<20), // 10MB+
	}
	groups := GroupBySize(entries)
	want := []RangeGroup{
		{Label: "0-1KB", Count: 2},
		{Label: "1KB-10KB", Count: 1},
		{Label: "10MB+", Count: 1},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("GroupBySize() = %v; want %v", groups, want)
	}
}

func TestGroupByDurationBoundaries(t *testing.T) {
	entries := []harlog.Entry{
		entry("GET", 200, 99.999, 0),
		entry("GET", 200, 100, 0),
		entry("GET", 200, 1000, 0),
		entry("GET", 200, 10000, 0),
	}
	groups := GroupByDuration(entries)
	want := []RangeGroup{
		{Label: "0-100ms", Count: 1},
		{Label: "100-500ms", Count: 1},
		{Label: "1000-5000ms", Count: 1},
		{Label: "10000ms+", Count: 1},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("GroupByDuration() = %v; want %v", groups, want)
	}
}

func TestGroupByMethodUppercasesAndCountsOutcomes(t *testing.T) {
	entries := []harlog.Entry{
		entry("get", 200, 10, 0),
		entry("GET", 500, 30, 0),
		entry("GET", 301, 20, 0),
		entry("post", 201, 40, 0),
	}
	groups := GroupByMethod(entries)
	if len(groups) != 2 {
		t.Fatalf("GroupByMethod() = %d groups; want 2", len(groups))
	}
	get := groups[0]
	if get.Method != "GET" || get.Count != 3 {
		t.Fatalf("top group = %+v; want GET count 3", get)
	}
	if get.SuccessCount != 1 || get.FailureCount != 1 {
		t.Fatalf("GET outcomes = success %d failure %d; want 1/1", get.SuccessCount, get.FailureCount)
	}
	if get.AvgDurationMS != 20 {
		t.Fatalf("GET avg duration = %v; want 20", get.AvgDurationMS)
	}
}

func TestFindAuthFailures(t *testing.T) {
	denied := entry("GET", 401, 10, 0)
	denied.Request.Headers = []harlog.NameValuePair{{Name: "Authorization", Value: "Bearer x"}}
	denied.Request.Cookies = []harlog.Cookie{{Name: "sid", Value: "1"}, {Name: "csrf", Value: "2"}}
	forbidden := entry("POST", 403, 10, 0)
	ok := entry("GET", 200, 10, 0)

	failures := FindAuthFailures([]harlog.Entry{denied, forbidden, ok})
	if len(failures) != 2 {
		t.Fatalf("FindAuthFailures() = %d; want 2", len(failures))
	}
	if !failures[0].HasAuthHeader || failures[0].CookieCount != 2 {
		t.Fatalf("first failure = %+v; want auth header and 2 cookies", failures[0])
	}
	if failures[1].HasAuthHeader || failures[1].CookieCount != 0 {
		t.Fatalf("second failure = %+v; want no credentials", failures[1])
	}
}

func TestDurationPercentilesNearestRank(t *testing.T) {
	var entries []harlog.Entry
	for _, d := range []float64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000} {
		entries = append(entries, entry("GET", 200, d, 0))
	}
	got := DurationPercentiles(entries, nil)
	want := []Percentile{
		{Percentile: 50, ValueMS: 500},
		{Percentile: 75, ValueMS: 800},
		{Percentile: 90, ValueMS: 900},
		{Percentile: 95, ValueMS: 1000},
		{Percentile: 99, ValueMS: 1000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DurationPercentiles() = %v; want %v", got, want)
	}
}

func TestDurationPercentilesMonotonic(t *testing.T) {
	entries := []harlog.Entry{
		entry("GET", 200, 42, 0),
		entry("GET", 200, 7, 0),
		entry("GET", 200, 1300, 0),
		entry("GET", 200, 250, 0),
		entry("GET", 200, 90, 0),
		entry("GET", 200, 5, 0),
		entry("GET", 200, 610, 0),
	}
	ps := DurationPercentiles(entries, []float64{10, 25, 50, 75, 90, 99})
	for i := 1; i < len(ps); i++ {
		if ps[i].ValueMS < ps[i-1].ValueMS {
			t.Fatalf("percentiles not monotonic: %v", ps)
		}
	}
}

func TestDurationPercentilesEmptyInput(t *testing.T) {
	if got := DurationPercentiles(nil, nil); got != nil {
		t.Fatalf("DurationPercentiles(nil) = %v; want nil", got)
	}
}

func TestFindSlowestAndLargest(t *testing.T) {
	entries := []harlog.Entry{
		entry("GET", 200, 10, 100),
		entry("GET", 200, 500, 900),
		entry("GET", 200, 90, 5000),
	}
	slowest := FindSlowest(entries, 2)
	if len(slowest) != 2 || slowest[0].DurationMS != 500 || slowest[1].DurationMS != 90 {
		t.Fatalf("FindSlowest() = %v; want durations [500 90]", slowest)
	}
	largest := FindLargest(entries, 2)
	if len(largest) != 2 || largest[0].Size != 5000 || largest[1].Size != 900 {
		t.Fatalf("FindLargest() = %v; want sizes [5000 900]", largest)
	}
	if FindSlowest(entries, 0) != nil {
		t.Fatalf("FindSlowest(n=0) should be nil")
	}
	if got := FindSlowest(entries, 10); len(got) != len(entries) {
		t.Fatalf("FindSlowest(n>len) = %d; want %d", len(got), len(entries))
	}
}

func TestTotalBandwidth(t *testing.T) {
	upload := entry("POST", 200, 10, 2048)
	upload.Request.BodySize = 1024
	unknown := entry("GET", 200, 10, -1)
	unknown.Response.BodySize = -1
	entries := []harlog.Entry{upload, unknown}

	b := TotalBandwidth(entries)
	if b.RequestBytes != 1024 || b.ResponseBytes != 2048 || b.TotalBytes != 3072 {
		t.Fatalf("TotalBandwidth() = %+v; want 1024/2048/3072", b)
	}
	if b.TotalMiB == 0 {
		t.Fatalf("TotalBandwidth() MiB not populated: %+v", b)
	}
}

func TestGetTimeRange(t *testing.T) {
	first := entry("GET", 200, 10, 0)
	first.StartedDateTime = "2026-08-20T10:00:00Z"
	second := entry("GET", 200, 10, 0)
	second.StartedDateTime = "2026-08-20T10:00:02.500Z"
	broken := entry("GET", 200, 10, 0)
	broken.StartedDateTime = "garbage"

	tr := GetTimeRange([]harlog.Entry{second, broken, first})
	if !tr.HasData {
		t.Fatalf("GetTimeRange() HasData = false; want true")
	}
	if tr.Start != first.StartedDateTime || tr.End != second.StartedDateTime {
		t.Fatalf("GetTimeRange() = %+v; wrong bounds", tr)
	}
	if tr.SpanMS != 2500 {
		t.Fatalf("GetTimeRange() span = %d; want 2500", tr.SpanMS)
	}
}

func TestGetTimeRangeNoData(t *testing.T) {
	if tr := GetTimeRange(nil); tr.HasData {
		t.Fatalf("GetTimeRange(nil) = %+v; want HasData false", tr)
	}
	broken := entry("GET", 200, 10, 0)
	broken.StartedDateTime = "garbage"
	if tr := GetTimeRange([]harlog.Entry{broken}); tr.HasData {
		t.Fatalf("GetTimeRange(unparsable) = %+v; want HasData false", tr)
	}
}

func TestAggregatesOnEmptyInput(t *testing.T) {
	if got := GroupByStatus(nil); len(got) != 0 {
		t.Fatalf("GroupByStatus(nil) = %v; want empty", got)
	}
	if got := GroupBySize(nil); len(got) != 0 {
		t.Fatalf("GroupBySize(nil) = %v; want empty", got)
	}
	if got := GroupByDuration(nil); len(got) != 0 {
		t.Fatalf("GroupByDuration(nil) = %v; want empty", got)
	}
	if got := GroupByMethod(nil); len(got) != 0 {
		t.Fatalf("GroupByMethod(nil) = %v; want empty", got)
	}
	if b := TotalBandwidth(nil); b.TotalBytes != 0 {
		t.Fatalf("TotalBandwidth(nil) = %+v; want zero", b)
	}
}

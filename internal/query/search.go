package query

import (
	"sort"

	"github.com/trailstash/harlens/internal/harlog"
)

// Default thresholds for the convenience wrappers.
const (
	DefaultSlowMS     = 1000.0
	DefaultLargeBytes = int64(1024 * 1024)
)

// Result is one matching entry together with its original position and the
// reasons it matched, one per satisfied criterion.
type Result struct {
	Entry        harlog.Entry `json:"entry"`
	Index        int          `json:"index"`
	MatchReasons []string     `json:"matchReasons"`
}

// Search evaluates the criteria set against every entry and returns the
// entries satisfying all of them, in original order.
//
// An empty criteria set matches nothing: callers must supply at least one
// criterion, which prevents accidental full dumps. Every criterion is
// evaluated for every entry (no short-circuit) so MatchReasons is complete
// and independent of criterion order.
func Search(entries []harlog.Entry, c Criteria) []Result {
	if c.isEmpty() {
		return nil
	}
	checks := compile(c)

	var results []Result
	for i, e := range entries {
		matched := true
		reasons := make([]string, 0, len(checks))
		for _, chk := range checks {
			if chk.match(e) {
				reasons = append(reasons, chk.reason)
			} else {
				matched = false
			}
		}
		if matched {
			results = append(results, Result{Entry: e, Index: i, MatchReasons: reasons})
		}
	}
	return results
}

// ByURL searches by URL substring, or by regular expression when asRegex
// is set.
func ByURL(entries []harlog.Entry, pattern string, asRegex bool) []Result {
	if asRegex {
		return Search(entries, Criteria{URLPattern: pattern})
	}
	return Search(entries, Criteria{URLContains: pattern})
}

// Failures returns entries with 4xx or 5xx responses.
func Failures(entries []harlog.Entry) []Result {
	return Search(entries, Criteria{StatusRange: &[2]int{400, 599}})
}

// Successful returns entries with 2xx responses.
func Successful(entries []harlog.Entry) []Result {
	return Search(entries, Criteria{StatusRange: &[2]int{200, 299}})
}

// Redirects returns entries with 3xx responses.
func Redirects(entries []harlog.Entry) []Result {
	return Search(entries, Criteria{StatusRange: &[2]int{300, 399}})
}

// Slow returns entries at or above thresholdMS, defaulting to 1000ms when
// the threshold is not positive.
func Slow(entries []harlog.Entry, thresholdMS float64) []Result {
	if thresholdMS <= 0 {
		thresholdMS = DefaultSlowMS
	}
	return Search(entries, Criteria{MinDurationMS: &thresholdMS})
}

// Large returns entries with responses at or above thresholdBytes,
// defaulting to 1MiB when the threshold is not positive.
func Large(entries []harlog.Entry, thresholdBytes int64) []Result {
	if thresholdBytes <= 0 {
		thresholdBytes = DefaultLargeBytes
	}
	return Search(entries, Criteria{MinSize: &thresholdBytes})
}

// JSONResponses returns entries whose response content type mentions json.
func JSONResponses(entries []harlog.Entry) []Result {
	return Search(entries, Criteria{ContentType: "json"})
}

// ByMethod returns entries with the given HTTP method, case-insensitive.
func ByMethod(entries []harlog.Entry, method string) []Result {
	return Search(entries, Criteria{Method: method})
}

// Union merges result sets, deduplicating by original index. The first
// occurrence of an index wins; output is sorted ascending by index.
func Union(sets ...[]Result) []Result {
	seen := make(map[int]Result)
	for _, set := range sets {
		for _, r := range set {
			if _, ok := seen[r.Index]; !ok {
				seen[r.Index] = r
			}
		}
	}
	out := make([]Result, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Intersect returns the results present in every given set, keyed by
// original index, in the first set's order. Reasons come from the first
// set's results.
func Intersect(sets ...[]Result) []Result {
	if len(sets) == 0 {
		return nil
	}
	var out []Result
	for _, r := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			found := false
			for _, o := range other {
				if o.Index == r.Index {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, r)
		}
	}
	return out
}

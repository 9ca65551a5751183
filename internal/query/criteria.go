// Package query evaluates multi-criteria searches over capture entries.
// Criteria are AND-combined; absent criteria are not evaluated. Per-criterion
// failures (bad regex, unparsable dates) degrade to "never matches" instead
// of aborting the search.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trailstash/harlens/internal/harlog"
)

// Criteria is the set of independent match conditions for one search.
// Every field is optional; zero values (or nil pointers) disable a
// criterion.
type Criteria struct {
	// URLContains matches entries whose URL contains the substring,
	// case-insensitive.
	URLContains string `json:"urlContains,omitempty"`
	// URLPattern matches entries whose URL matches the regular expression,
	// case-insensitive. An invalid pattern never matches.
	URLPattern string `json:"urlPattern,omitempty"`
	// Method matches the HTTP method exactly, case-insensitive.
	Method string `json:"method,omitempty"`
	// Status matches the exact response status code.
	Status *int `json:"status,omitempty"`
	// StatusRange matches status codes in the inclusive range [min, max].
	StatusRange *[2]int `json:"statusRange,omitempty"`
	// MinDurationMS / MaxDurationMS bound the total exchange duration,
	// each independently optional, inclusive.
	MinDurationMS *float64 `json:"minDurationMs,omitempty"`
	MaxDurationMS *float64 `json:"maxDurationMs,omitempty"`
	// MinSize / MaxSize bound the response size in bytes, inclusive.
	MinSize *int64 `json:"minSize,omitempty"`
	MaxSize *int64 `json:"maxSize,omitempty"`
	// RequestHeaders requires every named request header to be present with
	// a value containing the given substring, case-insensitive.
	RequestHeaders map[string]string `json:"requestHeaders,omitempty"`
	// ResponseHeaders has the same semantics against response headers.
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	// HasRequestBody requires a request body descriptor to be present
	// (true) or absent (false).
	HasRequestBody *bool `json:"hasRequestBody,omitempty"`
	// HasResponseBody, when true, requires response text or a positive
	// response size; when false, requires neither.
	HasResponseBody *bool `json:"hasResponseBody,omitempty"`
	// ContentType matches the response content type by case-insensitive
	// substring.
	ContentType string `json:"contentType,omitempty"`
	// After / Before bound the entry start timestamp, inclusive, parsed as
	// ISO-8601. Entries with unparsable timestamps never match.
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
	// Traceparent matches a trace-id substring against the request's W3C
	// traceparent header. Entries without the header never match.
	Traceparent string `json:"traceparent,omitempty"`
}

func (c Criteria) isEmpty() bool {
	return c.URLContains == "" && c.URLPattern == "" && c.Method == "" &&
		c.Status == nil && c.StatusRange == nil &&
		c.MinDurationMS == nil && c.MaxDurationMS == nil &&
		c.MinSize == nil && c.MaxSize == nil &&
		len(c.RequestHeaders) == 0 && len(c.ResponseHeaders) == 0 &&
		c.HasRequestBody == nil && c.HasResponseBody == nil &&
		c.ContentType == "" && c.After == "" && c.Before == "" &&
		c.Traceparent == ""
}

// check is one compiled criterion: a reason string and a predicate.
type check struct {
	reason string
	match  func(e harlog.Entry) bool
}

var neverMatch = func(harlog.Entry) bool { return false }

// compile translates a criteria set into the checks to run per entry.
// Criteria that cannot be evaluated (invalid regex, unparsable dates)
// compile to a check that never matches rather than failing the search.
func compile(c Criteria) []check {
	var checks []check

	if c.URLContains != "" {
		needle := strings.ToLower(c.URLContains)
		checks = append(checks, check{
			reason: fmt.Sprintf("url contains %q", c.URLContains),
			match: func(e harlog.Entry) bool {
				return e.Request != nil && strings.Contains(strings.ToLower(e.Request.URL), needle)
			},
		})
	}

	if c.URLPattern != "" {
		chk := check{reason: fmt.Sprintf("url matches /%s/", c.URLPattern), match: neverMatch}
		if re, err := regexp.Compile("(?i)" + c.URLPattern); err == nil {
			chk.match = func(e harlog.Entry) bool {
				return e.Request != nil && re.MatchString(e.Request.URL)
			}
		}
		checks = append(checks, chk)
	}

	if c.Method != "" {
		checks = append(checks, check{
			reason: "method is " + strings.ToUpper(c.Method),
			match: func(e harlog.Entry) bool {
				return e.Request != nil && strings.EqualFold(e.Request.Method, c.Method)
			},
		})
	}

	if c.Status != nil {
		want := *c.Status
		checks = append(checks, check{
			reason: fmt.Sprintf("status is %d", want),
			match: func(e harlog.Entry) bool {
				return e.Response != nil && e.Response.Status == want
			},
		})
	}

	if c.StatusRange != nil {
		lo, hi := c.StatusRange[0], c.StatusRange[1]
		checks = append(checks, check{
			reason: fmt.Sprintf("status in [%d, %d]", lo, hi),
			match: func(e harlog.Entry) bool {
				return e.Response != nil && e.Response.Status >= lo && e.Response.Status <= hi
			},
		})
	}

	if c.MinDurationMS != nil {
		minMS := *c.MinDurationMS
		checks = append(checks, check{
			reason: fmt.Sprintf("duration >= %.0fms", minMS),
			match:  func(e harlog.Entry) bool { return e.Time >= minMS },
		})
	}
	if c.MaxDurationMS != nil {
		maxMS := *c.MaxDurationMS
		checks = append(checks, check{
			reason: fmt.Sprintf("duration <= %.0fms", maxMS),
			match:  func(e harlog.Entry) bool { return e.Time <= maxMS },
		})
	}

	if c.MinSize != nil {
		minSize := *c.MinSize
		checks = append(checks, check{
			reason: fmt.Sprintf("size >= %d bytes", minSize),
			match:  func(e harlog.Entry) bool { return harlog.ResponseSize(e) >= minSize },
		})
	}
	if c.MaxSize != nil {
		maxSize := *c.MaxSize
		checks = append(checks, check{
			reason: fmt.Sprintf("size <= %d bytes", maxSize),
			match:  func(e harlog.Entry) bool { return harlog.ResponseSize(e) <= maxSize },
		})
	}

	for name, substr := range c.RequestHeaders {
		checks = append(checks, headerCheck("request", name, substr, func(e harlog.Entry) []harlog.NameValuePair {
			if e.Request == nil {
				return nil
			}
			return e.Request.Headers
		}))
	}
	for name, substr := range c.ResponseHeaders {
		checks = append(checks, headerCheck("response", name, substr, func(e harlog.Entry) []harlog.NameValuePair {
			if e.Response == nil {
				return nil
			}
			return e.Response.Headers
		}))
	}

	if c.HasRequestBody != nil {
		want := *c.HasRequestBody
		reason := "has request body"
		if !want {
			reason = "no request body"
		}
		checks = append(checks, check{
			reason: reason,
			match: func(e harlog.Entry) bool {
				has := e.Request != nil && e.Request.PostData != nil
				return has == want
			},
		})
	}

	if c.HasResponseBody != nil {
		want := *c.HasResponseBody
		reason := "has response body"
		if !want {
			reason = "no response body"
		}
		checks = append(checks, check{
			reason: reason,
			match: func(e harlog.Entry) bool {
				has := e.Response != nil && (e.Response.Content.Text != "" || harlog.ResponseSize(e) > 0)
				return has == want
			},
		})
	}

	if c.ContentType != "" {
		needle := strings.ToLower(c.ContentType)
		checks = append(checks, check{
			reason: fmt.Sprintf("content type contains %q", c.ContentType),
			match: func(e harlog.Entry) bool {
				return strings.Contains(strings.ToLower(harlog.ContentType(e)), needle)
			},
		})
	}

	if c.After != "" {
		chk := check{reason: "started on or after " + c.After, match: neverMatch}
		if bound, err := time.Parse(time.RFC3339Nano, c.After); err == nil {
			chk.match = func(e harlog.Entry) bool {
				ts, ok := harlog.EntryTime(e)
				return ok && !ts.Before(bound)
			}
		}
		checks = append(checks, chk)
	}
	if c.Before != "" {
		chk := check{reason: "started on or before " + c.Before, match: neverMatch}
		if bound, err := time.Parse(time.RFC3339Nano, c.Before); err == nil {
			chk.match = func(e harlog.Entry) bool {
				ts, ok := harlog.EntryTime(e)
				return ok && !ts.After(bound)
			}
		}
		checks = append(checks, chk)
	}

	if c.Traceparent != "" {
		needle := c.Traceparent
		checks = append(checks, check{
			reason: fmt.Sprintf("trace id contains %q", needle),
			match: func(e harlog.Entry) bool {
				if e.Request == nil {
					return false
				}
				raw, ok := harlog.GetHeader(e.Request.Headers, "traceparent")
				if !ok {
					return false
				}
				if traceID := traceIDSegment(raw); traceID != "" && strings.Contains(traceID, needle) {
					return true
				}
				return strings.Contains(raw, needle)
			},
		})
	}

	return checks
}

func headerCheck(side, name, substr string, headersOf func(harlog.Entry) []harlog.NameValuePair) check {
	needle := strings.ToLower(substr)
	return check{
		reason: fmt.Sprintf("%s header %s contains %q", side, name, substr),
		match: func(e harlog.Entry) bool {
			val, ok := harlog.GetHeader(headersOf(e), name)
			return ok && strings.Contains(strings.ToLower(val), needle)
		},
	}
}

// traceIDSegment extracts the trace-id field from a W3C trace-context value
// (version-traceId-spanId-flags): the text between the first and second
// dash. Returns "" when the value has no such segment.
func traceIDSegment(value string) string {
	parts := strings.Split(value, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

package harlog

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EntryURL parses the entry's request URL into its components. Relative or
// unparsable URLs fail with *MalformedURLError: a capture entry must carry
// an absolute URL.
func EntryURL(e Entry) (*url.URL, error) {
	if e.Request == nil {
		return nil, &MalformedURLError{URL: ""}
	}
	u, err := url.Parse(e.Request.URL)
	if err != nil {
		return nil, &MalformedURLError{URL: e.Request.URL, Cause: err}
	}
	if !u.IsAbs() {
		return nil, &MalformedURLError{URL: e.Request.URL}
	}
	return u, nil
}

// EntryTime parses the entry's start timestamp. The second return is false
// when the timestamp is absent or not ISO-8601.
func EntryTime(e Entry) (time.Time, bool) {
	if e.StartedDateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ContentType returns the response content type, preferring the content
// descriptor's mime type over the Content-Type header.
func ContentType(e Entry) string {
	if e.Response == nil {
		return ""
	}
	if e.Response.Content.MimeType != "" {
		return e.Response.Content.MimeType
	}
	ct, _ := GetHeader(e.Response.Headers, "Content-Type")
	return ct
}

// IsJSONResponse reports whether the response content type mentions json.
func IsJSONResponse(e Entry) bool {
	return strings.Contains(strings.ToLower(ContentType(e)), "json")
}

// ResponseSize returns the response byte size, preferring the content
// descriptor's size and falling back to the wire body size. Returns 0 when
// both are unknown.
func ResponseSize(e Entry) int64 {
	if e.Response == nil {
		return 0
	}
	if e.Response.Content.Size > 0 {
		return e.Response.Content.Size
	}
	if e.Response.BodySize > 0 {
		return e.Response.BodySize
	}
	return 0
}

// QueryParams returns the request query parameters as a name→value map.
// Query parameters are conventionally unique per name; duplicates resolve
// last-value-wins.
func QueryParams(e Entry) map[string]string {
	if e.Request == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(e.Request.QueryString))
	for _, p := range e.Request.QueryString {
		out[p.Name] = p.Value
	}
	return out
}

// QueryParam returns a single query parameter value by exact name.
func QueryParam(e Entry, name string) (string, bool) {
	if e.Request == nil {
		return "", false
	}
	var (
		val   string
		found bool
	)
	for _, p := range e.Request.QueryString {
		if p.Name == name {
			val, found = p.Value, true
		}
	}
	return val, found
}

// RequestCookies returns the request cookies as a name→value map,
// last-value-wins.
func RequestCookies(e Entry) map[string]string {
	if e.Request == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(e.Request.Cookies))
	for _, c := range e.Request.Cookies {
		out[c.Name] = c.Value
	}
	return out
}

// RequestCookie returns a single request cookie value by exact name.
func RequestCookie(e Entry, name string) (string, bool) {
	if e.Request == nil {
		return "", false
	}
	var (
		val   string
		found bool
	)
	for _, c := range e.Request.Cookies {
		if c.Name == name {
			val, found = c.Value, true
		}
	}
	return val, found
}

// FormatEntry renders a one-line human-readable summary of an entry.
func FormatEntry(e Entry) string {
	method, rawURL := "?", "?"
	if e.Request != nil {
		method, rawURL = e.Request.Method, e.Request.URL
	}
	status := 0
	if e.Response != nil {
		status = e.Response.Status
	}
	return fmt.Sprintf("%s %s -> %d (%dms, %d bytes)",
		method, rawURL, status, int64(e.Time+0.5), ResponseSize(e))
}

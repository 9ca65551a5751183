package capture

import (
	"net/url"
	"sort"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/trailstash/harlens/internal/harlog"
)

// headerPairs converts a CDP header map into ordered pairs. CDP hands
// headers as an unordered map, so pairs are sorted by name to keep the
// output deterministic.
func headerPairs(headers network.Headers) []harlog.NameValuePair {
	if len(headers) == 0 {
		return nil
	}
	out := make([]harlog.NameValuePair, 0, len(headers))
	for name, value := range headers {
		s, ok := value.(string)
		if !ok {
			continue
		}
		out = append(out, harlog.NameValuePair{Name: name, Value: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func headerValue(headers []harlog.NameValuePair, name string) string {
	val, _ := harlog.GetHeader(headers, name)
	return val
}

// headerValueAny reads one header from the raw CDP map, case-insensitive.
func headerValueAny(headers network.Headers, name string) string {
	for k, v := range headers {
		if !strings.EqualFold(k, name) {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// queryPairs decomposes a URL's query string into ordered pairs, preserving
// duplicates. A URL that does not parse yields no pairs.
func queryPairs(rawURL string) []harlog.NameValuePair {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return nil
	}
	var out []harlog.NameValuePair
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		out = append(out, harlog.NameValuePair{Name: name, Value: value})
	}
	return out
}

// cookiePairs parses the request Cookie header into cookie records.
func cookiePairs(headers []harlog.NameValuePair) []harlog.Cookie {
	raw := headerValue(headers, "Cookie")
	if raw == "" {
		return nil
	}
	var out []harlog.Cookie
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		out = append(out, harlog.Cookie{Name: name, Value: value})
	}
	return out
}

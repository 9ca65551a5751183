package harlog

import "strings"

// GetHeader returns the value of the first header matching name
// (case-insensitive) and whether a match was found.
func GetHeader(headers []NameValuePair, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// GetHeaders returns every value for headers matching name
// (case-insensitive), in original order. Repeated headers such as
// Set-Cookie are legitimate, so all matches are kept.
func GetHeaders(headers []NameValuePair, name string) []string {
	var out []string
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			out = append(out, h.Value)
		}
	}
	return out
}

// HasHeader reports whether any header matches name, case-insensitive.
func HasHeader(headers []NameValuePair, name string) bool {
	_, ok := GetHeader(headers, name)
	return ok
}

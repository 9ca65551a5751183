package harlog

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Parse deserializes a capture document from raw text.
//
// It fails with *MalformedInputError when the text is not well-formed JSON
// and with *InvalidDocumentError when the JSON lacks a root log container or
// an entries array. A malformed document is never coerced into an empty one.
func Parse(text string) (*Document, error) {
	raw := []byte(text)
	if !json.Valid(raw) {
		// Re-run the decoder to surface the syntax position in the error.
		var probe any
		err := json.Unmarshal(raw, &probe)
		return nil, &MalformedInputError{Cause: err}
	}

	var shape struct {
		Log *struct {
			Entries json.RawMessage `json:"entries"`
		} `json:"log"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, invalidDoc("log", "not an object")
	}
	if shape.Log == nil {
		return nil, invalidDoc("log", "missing root log container")
	}
	entries := bytes.TrimSpace(shape.Log.Entries)
	if len(entries) == 0 || bytes.Equal(entries, []byte("null")) {
		return nil, invalidDoc("log.entries", "missing entries array")
	}
	if entries[0] != '[' {
		return nil, invalidDoc("log.entries", "entries is not an array")
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, invalidDoc(typeErr.Field, "unexpected "+typeErr.Value)
		}
		return nil, invalidDoc("log", err.Error())
	}
	return &doc, nil
}

// Stringify serializes a document, compact by default or two-space indented
// when pretty is set.
func Stringify(doc *Document, pretty bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Validate performs deep structural validation beyond what Parse requires:
// a format version, a complete creator identity, and per entry the presence
// of request, response, method, url, timestamp and a sane duration. The
// returned *InvalidDocumentError names the first offending entry and field.
//
// Validation is deliberately separate from Parse so callers can analyze
// syntactically valid but semantically loose documents when only partial
// analysis is needed.
func Validate(doc *Document) error {
	if doc == nil {
		return invalidDoc("log", "document is nil")
	}
	if doc.Log.Version == "" {
		return invalidDoc("log.version", "missing format version")
	}
	if doc.Log.Creator.Name == "" {
		return invalidDoc("log.creator.name", "missing creator name")
	}
	if doc.Log.Creator.Version == "" {
		return invalidDoc("log.creator.version", "missing creator version")
	}
	for i, entry := range doc.Log.Entries {
		if entry.Request == nil {
			return invalidEntry(i, "request", "missing request")
		}
		if entry.Response == nil {
			return invalidEntry(i, "response", "missing response")
		}
		if entry.Request.Method == "" {
			return invalidEntry(i, "request.method", "missing method")
		}
		if entry.Request.URL == "" {
			return invalidEntry(i, "request.url", "missing url")
		}
		if entry.StartedDateTime == "" {
			return invalidEntry(i, "startedDateTime", "missing timestamp")
		}
		if entry.Time < 0 {
			return invalidEntry(i, "time", "negative duration")
		}
	}
	return nil
}

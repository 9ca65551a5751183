package harlog

import "fmt"

// MalformedInputError reports input that is not well-formed JSON.
type MalformedInputError struct {
	Cause error
}

func (e *MalformedInputError) Error() string {
	if e.Cause == nil {
		return "malformed capture input"
	}
	return fmt.Sprintf("malformed capture input: %v", e.Cause)
}

func (e *MalformedInputError) Unwrap() error { return e.Cause }

// InvalidDocumentError reports well-formed input that is missing required
// structure. EntryIndex is -1 for document-level defects.
type InvalidDocumentError struct {
	EntryIndex int
	Field      string
	Reason     string
}

func (e *InvalidDocumentError) Error() string {
	if e.EntryIndex < 0 {
		return fmt.Sprintf("invalid capture document: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid capture document: entry %d: %s: %s", e.EntryIndex, e.Field, e.Reason)
}

// MalformedURLError reports an entry URL that cannot be parsed as an
// absolute URL.
type MalformedURLError struct {
	URL   string
	Cause error
}

func (e *MalformedURLError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("malformed entry url %q", e.URL)
	}
	return fmt.Sprintf("malformed entry url %q: %v", e.URL, e.Cause)
}

func (e *MalformedURLError) Unwrap() error { return e.Cause }

func invalidDoc(field, reason string) error {
	return &InvalidDocumentError{EntryIndex: -1, Field: field, Reason: reason}
}

func invalidEntry(index int, field, reason string) error {
	return &InvalidDocumentError{EntryIndex: index, Field: field, Reason: reason}
}

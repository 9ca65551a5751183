// Package livetrack accumulates capture entries arriving during an active
// session in a bounded FIFO buffer. The tracker provides no internal
// synchronization: a host feeding entries from one goroutine while serving
// reads from another must serialize access itself.
package livetrack

import (
	"time"

	"github.com/trailstash/harlens/internal/harlog"
)

// DefaultCapacity bounds the buffer when the caller does not choose one.
const DefaultCapacity = 10000

const creatorName = "harlens-live"

// Snapshot is a point-in-time view of the tracker state for status display.
type Snapshot struct {
	SessionID  string `json:"sessionId"`
	Active     bool   `json:"active"`
	Count      int    `json:"count"`
	Capacity   int    `json:"capacity"`
	AtCapacity bool   `json:"atCapacity"`
	TotalBytes int64  `json:"totalBytes"`
	Oldest     string `json:"oldest,omitempty"`
	Newest     string `json:"newest,omitempty"`
}

// Tracker is a bounded, session-scoped FIFO buffer of capture entries.
type Tracker struct {
	capacity  int
	sessionID string
	active    bool
	startedAt time.Time
	entries   []harlog.Entry
}

// New creates a tracker with the given capacity, or DefaultCapacity when
// capacity is not positive. The tracker starts inactive.
func New(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{capacity: capacity}
}

// StartSession resets the buffer and moves the tracker to the active state.
func (t *Tracker) StartSession(id string) {
	t.sessionID = id
	t.active = true
	t.startedAt = time.Now().UTC()
	t.entries = nil
}

// StopSession clears the buffer and moves the tracker to the inactive
// state. Documents already exported via ToDocument are unaffected.
func (t *Tracker) StopSession() {
	t.active = false
	t.entries = nil
}

// Active reports whether a session is running.
func (t *Tracker) Active() bool { return t.active }

// SessionID returns the current session identifier, empty when no session
// has ever started.
func (t *Tracker) SessionID() string { return t.sessionID }

// Add appends an entry to the buffer. It is a no-op returning false when no
// session is active. When the buffer exceeds capacity the single oldest
// entry is evicted, keeping adds amortized O(1) under sustained load.
func (t *Tracker) Add(entry harlog.Entry) bool {
	if !t.active {
		return false
	}
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.capacity {
		t.entries = t.entries[1:]
	}
	return true
}

// AddBatch adds each entry in order and returns the count accepted.
func (t *Tracker) AddBatch(entries []harlog.Entry) int {
	accepted := 0
	for _, e := range entries {
		if t.Add(e) {
			accepted++
		}
	}
	return accepted
}

// All returns a copy of the buffered entries in arrival order.
func (t *Tracker) All() []harlog.Entry {
	return append([]harlog.Entry(nil), t.entries...)
}

// After returns a copy of the entries after the given buffer index. An
// index below zero returns everything.
func (t *Tracker) After(index int) []harlog.Entry {
	if index < -1 {
		index = -1
	}
	if index+1 >= len(t.entries) {
		return nil
	}
	return append([]harlog.Entry(nil), t.entries[index+1:]...)
}

// Last returns a copy of the newest n entries in arrival order.
func (t *Tracker) Last(n int) []harlog.Entry {
	if n <= 0 {
		return nil
	}
	if n > len(t.entries) {
		n = len(t.entries)
	}
	return append([]harlog.Entry(nil), t.entries[len(t.entries)-n:]...)
}

// Count returns the number of buffered entries.
func (t *Tracker) Count() int { return len(t.entries) }

// Stats returns a snapshot of the tracker state.
func (t *Tracker) Stats() Snapshot {
	s := Snapshot{
		SessionID:  t.sessionID,
		Active:     t.active,
		Count:      len(t.entries),
		Capacity:   t.capacity,
		AtCapacity: len(t.entries) >= t.capacity,
	}
	for _, e := range t.entries {
		s.TotalBytes += harlog.ResponseSize(e)
	}
	if len(t.entries) > 0 {
		s.Oldest = t.entries[0].StartedDateTime
		s.Newest = t.entries[len(t.entries)-1].StartedDateTime
	}
	return s
}

// ToDocument exports the buffered entries as a standalone capture document.
// Entries are deep-copied, so the document shares no mutable state with the
// buffer and survives StopSession.
func (t *Tracker) ToDocument(version string) *harlog.Document {
	doc := harlog.NewDocument(creatorName, version)
	doc.Log.Comment = "live capture session " + t.sessionID
	doc.Log.Browser = &harlog.Browser{Name: creatorName, Version: version}
	for _, e := range t.entries {
		doc.Log.Entries = append(doc.Log.Entries, e.Clone())
	}
	return doc
}

// Package analyzer owns the loaded capture documents and the live capture
// buffer, and serializes every operation on them behind one mutex. It is the
// single access path the API server and the recorder pipeline share.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/trailstash/harlens/internal/harlog"
	"github.com/trailstash/harlens/internal/livetrack"
	"github.com/trailstash/harlens/internal/query"
	"github.com/trailstash/harlens/internal/stats"
)

// LiveTarget selects the live buffer instead of a loaded document.
const LiveTarget = "live"

var (
	// ErrDocumentNotFound reports an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSessionInactive reports a live operation without an active session.
	ErrSessionInactive = errors.New("no active live session")
)

// DocumentSummary is the listing projection of one loaded document.
type DocumentSummary struct {
	ID         string `json:"id"`
	Creator    string `json:"creator"`
	Version    string `json:"version"`
	EntryCount int    `json:"entryCount"`
	Comment    string `json:"comment,omitempty"`
}

// Service holds parsed documents keyed by id plus one live tracker. All
// methods are safe for concurrent use.
type Service struct {
	version string

	mu      sync.Mutex
	docs    map[string]*harlog.Document
	order   []string
	live    *livetrack.Tracker
	publish func(harlog.Entry)
}

// NewService creates a service with the given app version (stamped into
// exported documents) and live buffer capacity.
func NewService(version string, liveCapacity int) *Service {
	return &Service{
		version: version,
		docs:    make(map[string]*harlog.Document),
		live:    livetrack.New(liveCapacity),
	}
}

// SetPublisher registers a callback invoked for every entry accepted by
// Feed, outside the service lock. Used to fan entries out to stream
// subscribers.
func (s *Service) SetPublisher(fn func(harlog.Entry)) {
	s.mu.Lock()
	s.publish = fn
	s.mu.Unlock()
}

// LoadDocument parses and validates a capture document and registers it
// under a fresh id.
func (s *Service) LoadDocument(ctx context.Context, text string) (DocumentSummary, error) {
	doc, err := harlog.Parse(text)
	if err != nil {
		return DocumentSummary{}, err
	}
	if err := harlog.Validate(doc); err != nil {
		return DocumentSummary{}, err
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.docs[id] = doc
	s.order = append(s.order, id)
	s.mu.Unlock()

	return summarize(id, doc), nil
}

// GetDocument returns a loaded document by id.
func (s *Service) GetDocument(ctx context.Context, id string) (*harlog.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns summaries of all loaded documents in load order.
func (s *Service) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DocumentSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, summarize(id, s.docs[id]))
	}
	return out, nil
}

// DeleteDocument removes a loaded document.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Search runs a criteria search over a document or the live buffer.
func (s *Service) Search(ctx context.Context, target string, c query.Criteria) ([]query.Result, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return query.Search(entries, c), nil
}

// StatusReport groups the target's entries by status code.
func (s *Service) StatusReport(ctx context.Context, target string) ([]stats.StatusGroup, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.GroupByStatus(entries), nil
}

// SizeReport buckets the target's entries by response size.
func (s *Service) SizeReport(ctx context.Context, target string) ([]stats.RangeGroup, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.GroupBySize(entries), nil
}

// DurationReport buckets the target's entries by total duration.
func (s *Service) DurationReport(ctx context.Context, target string) ([]stats.RangeGroup, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.GroupByDuration(entries), nil
}

// MethodReport groups the target's entries by HTTP method.
func (s *Service) MethodReport(ctx context.Context, target string) ([]stats.MethodGroup, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.GroupByMethod(entries), nil
}

// Percentiles computes duration percentiles for the target.
func (s *Service) Percentiles(ctx context.Context, target string, percentiles []float64) ([]stats.Percentile, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.DurationPercentiles(entries, percentiles), nil
}

// Slowest returns the target's n slowest entries.
func (s *Service) Slowest(ctx context.Context, target string, n int) ([]stats.SlowEntry, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.FindSlowest(entries, n), nil
}

// Largest returns the target's n largest entries by response size.
func (s *Service) Largest(ctx context.Context, target string, n int) ([]stats.LargeEntry, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.FindLargest(entries, n), nil
}

// Bandwidth totals the target's transferred bytes.
func (s *Service) Bandwidth(ctx context.Context, target string) (stats.Bandwidth, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return stats.Bandwidth{}, err
	}
	return stats.TotalBandwidth(entries), nil
}

// TimeRange returns the target's observed capture window.
func (s *Service) TimeRange(ctx context.Context, target string) (stats.TimeRange, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return stats.TimeRange{}, err
	}
	return stats.GetTimeRange(entries), nil
}

// AuthFailures returns the target's 401/403 entries with credential context.
func (s *Service) AuthFailures(ctx context.Context, target string) ([]stats.AuthFailure, error) {
	entries, err := s.entriesFor(target)
	if err != nil {
		return nil, err
	}
	return stats.FindAuthFailures(entries), nil
}

// StartLive starts a new live session under a fresh id, resetting the
// buffer. Restarting over a running session is allowed.
func (s *Service) StartLive(ctx context.Context) (livetrack.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.StartSession(uuid.New().String())
	return s.live.Stats(), nil
}

// StopLive ends the live session and clears the buffer, returning the final
// snapshot taken just before clearing.
func (s *Service) StopLive(ctx context.Context) (livetrack.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live.Active() {
		return livetrack.Snapshot{}, ErrSessionInactive
	}
	final := s.live.Stats()
	s.live.StopSession()
	return final, nil
}

// LiveStats returns the current live buffer snapshot.
func (s *Service) LiveStats(ctx context.Context) (livetrack.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Stats(), nil
}

// LiveEntries returns live entries after the given buffer index; -1 returns
// everything.
func (s *Service) LiveEntries(ctx context.Context, afterIndex int) ([]harlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live.Active() {
		return nil, ErrSessionInactive
	}
	return s.live.After(afterIndex), nil
}

// LiveDocument exports the live buffer as a standalone capture document.
func (s *Service) LiveDocument(ctx context.Context) (*harlog.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live.Active() {
		return nil, ErrSessionInactive
	}
	return s.live.ToDocument(s.version), nil
}

// Feed hands one captured entry to the live buffer. Entries arriving while
// no session is active are dropped. Accepted entries are also handed to the
// registered publisher.
func (s *Service) Feed(entry harlog.Entry) bool {
	s.mu.Lock()
	accepted := s.live.Add(entry)
	publish := s.publish
	s.mu.Unlock()

	if accepted && publish != nil {
		publish(entry)
	}
	return accepted
}

// Ingest adds a batch of externally supplied entries to the live buffer and
// returns the count accepted. Requires an active session.
func (s *Service) Ingest(ctx context.Context, entries []harlog.Entry) (int, error) {
	s.mu.Lock()
	if !s.live.Active() {
		s.mu.Unlock()
		return 0, ErrSessionInactive
	}
	accepted := s.live.AddBatch(entries)
	publish := s.publish
	s.mu.Unlock()

	if publish != nil {
		for _, e := range entries {
			publish(e)
		}
	}
	return accepted, nil
}

// entriesFor resolves a target name to its entry slice. The live target
// requires an active session; document targets are resolved by id.
func (s *Service) entriesFor(target string) ([]harlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == LiveTarget {
		if !s.live.Active() {
			return nil, ErrSessionInactive
		}
		return s.live.All(), nil
	}
	doc, ok := s.docs[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, target)
	}
	return doc.Log.Entries, nil
}

func summarize(id string, doc *harlog.Document) DocumentSummary {
	return DocumentSummary{
		ID:         id,
		Creator:    doc.Log.Creator.Name,
		Version:    doc.Log.Version,
		EntryCount: len(doc.Log.Entries),
		Comment:    doc.Log.Comment,
	}
}

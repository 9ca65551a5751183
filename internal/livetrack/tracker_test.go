package livetrack

import (
	"fmt"
	"testing"

	"github.com/trailstash/harlens/internal/harlog"
)

func entry(n int) harlog.Entry {
	return harlog.Entry{
		StartedDateTime: fmt.Sprintf("2026-08-20T10:00:%02dZ", n%60),
		Time:            float64(n),
		Request:         &harlog.Request{Method: "GET", URL: fmt.Sprintf("https://a.test/%d", n)},
		Response:        &harlog.Response{Status: 200, Content: harlog.Content{Size: 100}},
	}
}

func urlsOf(entries []harlog.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Request.URL)
	}
	return out
}

func TestAddRequiresActiveSession(t *testing.T) {
	tr := New(10)
	if tr.Add(entry(1)) {
		t.Fatalf("Add() = true on inactive tracker; want false")
	}
	tr.StartSession("s1")
	if !tr.Add(entry(1)) {
		t.Fatalf("Add() = false on active tracker; want true")
	}
	tr.StopSession()
	if tr.Add(entry(2)) {
		t.Fatalf("Add() = true after StopSession; want false")
	}
	if tr.Count() != 0 {
		t.Fatalf("Count() = %d after StopSession; want 0", tr.Count())
	}
}

func TestFIFOEvictionKeepsNewestEntries(t *testing.T) {
	tr := New(2)
	tr.StartSession("s1")
	for i := 1; i <= 3; i++ {
		tr.Add(entry(i))
	}
	got := urlsOf(tr.All())
	want := []string{"https://a.test/2", "https://a.test/3"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("All() = %v; want %v", got, want)
	}
}

func TestFIFOEvictionProperty(t *testing.T) {
	const capacity, extra = 50, 17
	tr := New(capacity)
	tr.StartSession("s1")
	for i := 0; i < capacity+extra; i++ {
		tr.Add(entry(i))
	}
	all := tr.All()
	if len(all) != capacity {
		t.Fatalf("len(All()) = %d; want %d", len(all), capacity)
	}
	for i, e := range all {
		want := fmt.Sprintf("https://a.test/%d", extra+i)
		if e.Request.URL != want {
			t.Fatalf("entry %d url = %q; want %q", i, e.Request.URL, want)
		}
	}
}

func TestAddBatchCountsAccepted(t *testing.T) {
	tr := New(10)
	batch := []harlog.Entry{entry(1), entry(2), entry(3)}
	if got := tr.AddBatch(batch); got != 0 {
		t.Fatalf("AddBatch() = %d on inactive tracker; want 0", got)
	}
	tr.StartSession("s1")
	if got := tr.AddBatch(batch); got != 3 {
		t.Fatalf("AddBatch() = %d; want 3", got)
	}
}

func TestStartSessionResetsBuffer(t *testing.T) {
	tr := New(10)
	tr.StartSession("s1")
	tr.Add(entry(1))
	tr.StartSession("s2")
	if tr.Count() != 0 {
		t.Fatalf("Count() = %d after restart; want 0", tr.Count())
	}
	if tr.SessionID() != "s2" {
		t.Fatalf("SessionID() = %q; want s2", tr.SessionID())
	}
}

func TestReadAccessorsReturnCopies(t *testing.T) {
	tr := New(10)
	tr.StartSession("s1")
	tr.Add(entry(1))
	tr.Add(entry(2))

	all := tr.All()
	all[0] = entry(99)
	if got := tr.All()[0].Request.URL; got != "https://a.test/1" {
		t.Fatalf("internal buffer mutated through All(): %q", got)
	}

	last := tr.Last(1)
	if len(last) != 1 || last[0].Request.URL != "https://a.test/2" {
		t.Fatalf("Last(1) = %v; want newest entry", urlsOf(last))
	}
	last[0] = entry(99)
	if got := tr.Last(1)[0].Request.URL; got != "https://a.test/2" {
		t.Fatalf("internal buffer mutated through Last(): %q", got)
	}
}

func TestAfterReturnsOnlyNewEntries(t *testing.T) {
	tr := New(10)
	tr.StartSession("s1")
	for i := 1; i <= 4; i++ {
		tr.Add(entry(i))
	}
	got := urlsOf(tr.After(1))
	want := []string{"https://a.test/3", "https://a.test/4"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("After(1) = %v; want %v", got, want)
	}
	if tr.After(3) != nil {
		t.Fatalf("After(last) should be nil")
	}
	if got := tr.After(-1); len(got) != 4 {
		t.Fatalf("After(-1) = %d entries; want all 4", len(got))
	}
}

func TestStatsSnapshot(t *testing.T) {
	tr := New(2)
	tr.StartSession("s1")
	tr.Add(entry(1))
	s := tr.Stats()
	if !s.Active || s.SessionID != "s1" || s.Count != 1 || s.Capacity != 2 || s.AtCapacity {
		t.Fatalf("Stats() = %+v; unexpected snapshot", s)
	}
	if s.TotalBytes != 100 {
		t.Fatalf("Stats().TotalBytes = %d; want 100", s.TotalBytes)
	}
	tr.Add(entry(2))
	s = tr.Stats()
	if !s.AtCapacity || s.Oldest == "" || s.Newest == "" {
		t.Fatalf("Stats() = %+v; want at-capacity with bounds", s)
	}
}

func TestToDocumentSurvivesStopSession(t *testing.T) {
	tr := New(10)
	tr.StartSession("session-abc")
	tr.Add(entry(1))
	tr.Add(entry(2))

	doc := tr.ToDocument("0.3.0")
	if err := harlog.Validate(doc); err != nil {
		t.Fatalf("Validate(ToDocument()) = %v; want nil", err)
	}
	if len(doc.Log.Entries) != 2 {
		t.Fatalf("exported entries = %d; want 2", len(doc.Log.Entries))
	}

	// The export shares no mutable state with the buffer.
	doc.Log.Entries[0].Request.URL = "https://tampered.test/"
	if got := tr.All()[0].Request.URL; got != "https://a.test/1" {
		t.Fatalf("buffer mutated through exported document: %q", got)
	}

	tr.StopSession()
	if len(doc.Log.Entries) != 2 {
		t.Fatalf("exported document affected by StopSession")
	}
}

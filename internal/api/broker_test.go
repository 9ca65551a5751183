package api

import (
	"encoding/json"
	"testing"

	"github.com/trailstash/harlens/internal/harlog"
)

func streamEntry(url string) harlog.Entry {
	return harlog.Entry{
		StartedDateTime: "2026-08-20T10:00:00Z",
		Request:         &harlog.Request{Method: "GET", URL: url},
		Response:        &harlog.Response{Status: 200},
	}
}

func TestBrokerFansOutToAllSubscribers(t *testing.T) {
	b := NewBroker()
	id1, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()
	if b.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d; want 2", b.ClientCount())
	}

	b.PublishEntry(streamEntry("https://a.test/1"))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case payload := <-ch:
			var e harlog.Entry
			if err := json.Unmarshal(payload, &e); err != nil {
				t.Fatalf("payload unmarshal: %v", err)
			}
			if e.Request.URL != "https://a.test/1" {
				t.Fatalf("payload url = %q; want https://a.test/1", e.Request.URL)
			}
		default:
			t.Fatalf("subscriber did not receive the entry")
		}
	}

	b.Unsubscribe(id1)
	if b.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d after unsubscribe; want 1", b.ClientCount())
	}
	if _, ok := <-ch1; ok {
		t.Fatalf("unsubscribed channel not closed")
	}
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	b := NewBroker()
	_, ch := b.Subscribe()

	for i := 0; i < subscriberBufSize+10; i++ {
		b.PublishEntry(streamEntry("https://a.test/flood"))
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBufSize {
		t.Fatalf("received %d entries; want buffer size %d with overflow dropped", received, subscriberBufSize)
	}
}

func TestBrokerUnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroker()
	id, _ := b.Subscribe()
	b.Unsubscribe(id)
	b.Unsubscribe(id)
	if b.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d; want 0", b.ClientCount())
	}
}

package capture

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/trailstash/harlens/internal/harlog"
)

func completeExchange(t *testing.T, p *Pipeline, id network.RequestID, body []byte) {
	t.Helper()
	p.OnRequestWillBeSent(&network.EventRequestWillBeSent{
		RequestID: id,
		Request: &network.Request{
			Method: "GET",
			URL:    "https://api.test/v1/items?page=2&page=3&q=a%20b",
			Headers: network.Headers{
				"Accept": "application/json",
				"Cookie": "sid=abc; theme=dark",
			},
		},
	})
	p.OnResponseReceived(&network.EventResponseReceived{
		RequestID: id,
		Response: &network.Response{
			Status:          200,
			StatusText:      "OK",
			MimeType:        "application/json",
			Protocol:        "h2",
			RemoteIPAddress: "10.0.0.5",
			Headers:         network.Headers{"Content-Type": "application/json"},
		},
	})
	p.OnLoadingFinished(&network.EventLoadingFinished{
		RequestID:         id,
		EncodedDataLength: float64(len(body)),
	}, func() ([]byte, error) { return body, nil })
}

func awaitEntry(t *testing.T, ch <-chan harlog.Entry) harlog.Entry {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("no entry delivered to sink")
		return harlog.Entry{}
	}
}

func TestPipelineCorrelatesExchangeIntoEntry(t *testing.T) {
	ch := make(chan harlog.Entry, 1)
	p := NewPipeline(1<<20, func(e harlog.Entry) { ch <- e })
	defer p.Close()

	completeExchange(t, p, "req-1", []byte(`{"ok":true}`))
	e := awaitEntry(t, ch)

	if e.Request == nil || e.Request.Method != "GET" {
		t.Fatalf("entry request = %+v; want GET", e.Request)
	}
	if got := urlsOfPairs(e.Request.QueryString); got != "page=2,page=3,q=a b" {
		t.Fatalf("query pairs = %q; want duplicates preserved and unescaped", got)
	}
	if len(e.Request.Cookies) != 2 || e.Request.Cookies[0].Name != "sid" || e.Request.Cookies[1].Value != "dark" {
		t.Fatalf("cookies = %v; want sid=abc theme=dark", e.Request.Cookies)
	}
	if e.Response == nil || e.Response.Status != 200 || e.Response.HTTPVersion != "h2" {
		t.Fatalf("entry response = %+v; want 200 over h2", e.Response)
	}
	if e.Response.Content.Text != `{"ok":true}` || e.Response.Content.MimeType != "application/json" {
		t.Fatalf("content = %+v; want body text and json mime", e.Response.Content)
	}
	if e.Response.Content.Size != int64(len(`{"ok":true}`)) {
		t.Fatalf("content size = %d; want body length", e.Response.Content.Size)
	}
	if e.ServerIPAddress != "10.0.0.5" {
		t.Fatalf("server ip = %q; want 10.0.0.5", e.ServerIPAddress)
	}
	if e.StartedDateTime == "" {
		t.Fatalf("startedDateTime not set")
	}
	if _, ok := harlog.EntryTime(e); !ok {
		t.Fatalf("startedDateTime %q not parsable", e.StartedDateTime)
	}
	if p.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d after completion; want 0", p.PendingCount())
	}
}

func TestPipelineDecodesAndBoundsPostData(t *testing.T) {
	ch := make(chan harlog.Entry, 1)
	p := NewPipeline(5, func(e harlog.Entry) { ch <- e })
	defer p.Close()

	p.OnRequestWillBeSent(&network.EventRequestWillBeSent{
		RequestID: "req-2",
		Request: &network.Request{
			Method:      "POST",
			URL:         "https://api.test/v1/items",
			Headers:     network.Headers{"Content-Type": "text/plain"},
			HasPostData: true,
			PostDataEntries: []*network.PostDataEntry{
				{Bytes: base64.StdEncoding.EncodeToString([]byte("hello world"))},
			},
		},
	})
	p.OnResponseReceived(&network.EventResponseReceived{
		RequestID: "req-2",
		Response:  &network.Response{Status: 201},
	})
	p.OnLoadingFinished(&network.EventLoadingFinished{RequestID: "req-2"}, nil)

	e := awaitEntry(t, ch)
	if e.Request.PostData == nil || e.Request.PostData.Text != "hello" {
		t.Fatalf("post data = %+v; want truncated to 5 bytes", e.Request.PostData)
	}
	if e.Request.PostData.MimeType != "text/plain" {
		t.Fatalf("post data mime = %q; want text/plain", e.Request.PostData.MimeType)
	}
	if e.Request.BodySize != int64(len("hello world")) {
		t.Fatalf("request body size = %d; want original length", e.Request.BodySize)
	}
	if !strings.Contains(e.Request.Comment, "body truncated") || !strings.Contains(e.Request.Comment, "sha256") {
		t.Fatalf("request comment = %q; want truncation note", e.Request.Comment)
	}
}

func TestPipelineTruncatesLargeResponseBodies(t *testing.T) {
	ch := make(chan harlog.Entry, 1)
	p := NewPipeline(4, func(e harlog.Entry) { ch <- e })
	defer p.Close()

	completeExchange(t, p, "req-3", []byte("0123456789"))
	e := awaitEntry(t, ch)

	if e.Response.Content.Text != "0123" {
		t.Fatalf("content text = %q; want first 4 bytes", e.Response.Content.Text)
	}
	if e.Response.Content.Size != 10 {
		t.Fatalf("content size = %d; want original 10", e.Response.Content.Size)
	}
	if !strings.Contains(e.Comment, "original 10 bytes") {
		t.Fatalf("entry comment = %q; want truncation note", e.Comment)
	}
}

func TestPipelineDropsUnmatchedAndFailedExchanges(t *testing.T) {
	sunk := make(chan harlog.Entry, 1)
	p := NewPipeline(1<<20, func(e harlog.Entry) { sunk <- e })
	defer p.Close()

	// Response and finish without a request are ignored.
	p.OnResponseReceived(&network.EventResponseReceived{RequestID: "ghost", Response: &network.Response{Status: 200}})
	p.OnLoadingFinished(&network.EventLoadingFinished{RequestID: "ghost"}, nil)

	// A failed load clears its pending exchange without emitting.
	p.OnRequestWillBeSent(&network.EventRequestWillBeSent{
		RequestID: "req-4",
		Request:   &network.Request{Method: "GET", URL: "https://api.test/"},
	})
	p.OnLoadingFailed(&network.EventLoadingFailed{RequestID: "req-4"})
	if p.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d after failure; want 0", p.PendingCount())
	}

	// A finish without a response received is dropped too.
	p.OnRequestWillBeSent(&network.EventRequestWillBeSent{
		RequestID: "req-5",
		Request:   &network.Request{Method: "GET", URL: "https://api.test/"},
	})
	p.OnLoadingFinished(&network.EventLoadingFinished{RequestID: "req-5"}, nil)

	select {
	case e := <-sunk:
		t.Fatalf("sink received %v; want nothing", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func urlsOfPairs(pairs []harlog.NameValuePair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, ",")
}

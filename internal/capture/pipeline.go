// Package capture converts CDP network events into capture entries. Request
// and response events are correlated through a pending map keyed by CDP
// request id; completed entries are handed to the configured sinks.
package capture

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/network"
	"github.com/trailstash/harlens/internal/harlog"
)

// EntrySink consumes one completed capture entry.
type EntrySink func(harlog.Entry)

type pendingExchange struct {
	entry    harlog.Entry
	started  time.Time // monotonic event time, duration base
	queued   time.Time // wall clock, stale cleanup
	timing   *network.ResourceTiming
	hasReply bool
}

// Pipeline correlates CDP network events into entries.
type Pipeline struct {
	sinks        []EntrySink
	maxBodyBytes int

	pending   map[network.RequestID]*pendingExchange
	pendingMu sync.Mutex

	done chan struct{}
}

// NewPipeline creates a pipeline delivering completed entries to the given
// sinks. maxBodyBytes bounds stored response bodies; larger bodies are
// truncated and annotated with their original size and sha256.
func NewPipeline(maxBodyBytes int, sinks ...EntrySink) *Pipeline {
	p := &Pipeline{
		sinks:        sinks,
		maxBodyBytes: maxBodyBytes,
		pending:      make(map[network.RequestID]*pendingExchange),
		done:         make(chan struct{}),
	}
	go p.cleanupLoop()
	return p
}

func (p *Pipeline) Close() {
	close(p.done)
}

// PendingCount returns the number of uncompleted exchanges.
func (p *Pipeline) PendingCount() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pending)
}

func (p *Pipeline) OnRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	started := time.Now()
	wall := time.Now().UTC()
	if ev.Timestamp != nil {
		started = ev.Timestamp.Time()
	}
	if ev.WallTime != nil {
		wall = ev.WallTime.Time().UTC()
	}

	req := &harlog.Request{
		Method:      ev.Request.Method,
		URL:         ev.Request.URL,
		HTTPVersion: "",
		Headers:     headerPairs(ev.Request.Headers),
		QueryString: queryPairs(ev.Request.URL),
		HeadersSize: -1,
		BodySize:    -1,
	}
	req.Cookies = cookiePairs(req.Headers)

	if ev.Request.HasPostData && len(ev.Request.PostDataEntries) > 0 {
		text, truncated, originalSize, bodyHash := truncateStringBytes(decodePostData(ev.Request.PostDataEntries), p.maxBodyBytes)
		req.PostData = &harlog.PostData{
			MimeType: headerValue(req.Headers, "Content-Type"),
			Text:     text,
		}
		req.BodySize = int64(originalSize)
		if truncated {
			req.Comment = fmt.Sprintf("body truncated: original %d bytes, sha256 %s", originalSize, bodyHash)
		}
	}

	p.pendingMu.Lock()
	p.pending[ev.RequestID] = &pendingExchange{
		entry: harlog.Entry{
			StartedDateTime: wall.Format(time.RFC3339Nano),
			Request:         req,
			Timings:         harlog.Timings{Blocked: -1, DNS: -1, Connect: -1, SSL: -1},
		},
		started: started,
		queued:  time.Now(),
	}
	p.pendingMu.Unlock()
}

func (p *Pipeline) OnResponseReceived(ev *network.EventResponseReceived) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	pending, ok := p.pending[ev.RequestID]
	if !ok {
		return
	}
	pending.hasReply = true
	pending.timing = ev.Response.Timing
	pending.entry.Response = &harlog.Response{
		Status:      int(ev.Response.Status),
		StatusText:  ev.Response.StatusText,
		HTTPVersion: ev.Response.Protocol,
		Headers:     headerPairs(ev.Response.Headers),
		Content:     harlog.Content{Size: -1, MimeType: ev.Response.MimeType},
		RedirectURL: headerValueAny(ev.Response.Headers, "Location"),
		HeadersSize: -1,
		BodySize:    -1,
	}
	pending.entry.ServerIPAddress = ev.Response.RemoteIPAddress
}

// OnLoadingFinished completes an exchange. getBody fetches the response
// body; it may be nil when the owning tab is already gone. Body fetch and
// sink delivery run on their own goroutine so the CDP event loop is never
// blocked.
func (p *Pipeline) OnLoadingFinished(ev *network.EventLoadingFinished, getBody func() ([]byte, error)) {
	p.pendingMu.Lock()
	pending, ok := p.pending[ev.RequestID]
	if ok {
		delete(p.pending, ev.RequestID)
	}
	p.pendingMu.Unlock()

	if !ok || !pending.hasReply {
		return
	}

	finished := time.Now()
	if ev.Timestamp != nil {
		finished = ev.Timestamp.Time()
	}
	totalMS := float64(finished.Sub(pending.started)) / float64(time.Millisecond)
	if totalMS < 0 {
		totalMS = 0
	}
	pending.entry.Time = totalMS
	pending.entry.Timings = phaseTimings(pending.timing, totalMS)
	pending.entry.Response.BodySize = int64(ev.EncodedDataLength)

	go func() {
		var body []byte
		if getBody != nil {
			fetched, err := getBody()
			if err != nil {
				slog.Debug("response body fetch failed", "request_id", ev.RequestID, "error", err)
			} else {
				body = fetched
			}
		}
		p.fillContent(&pending.entry, body)
		for _, sink := range p.sinks {
			sink(pending.entry)
		}
	}()
}

func (p *Pipeline) OnLoadingFailed(ev *network.EventLoadingFailed) {
	p.pendingMu.Lock()
	delete(p.pending, ev.RequestID)
	p.pendingMu.Unlock()
}

// fillContent stores the (possibly truncated) response body on the entry.
func (p *Pipeline) fillContent(entry *harlog.Entry, body []byte) {
	entry.Response.Content.Size = int64(len(body))
	if len(body) == 0 {
		return
	}
	kept, truncated, originalSize, bodyHash := truncateBytes(body, p.maxBodyBytes)
	if utf8.Valid(kept) {
		entry.Response.Content.Text = string(kept)
	} else {
		entry.Response.Content.Text = base64.StdEncoding.EncodeToString(kept)
		entry.Response.Content.Encoding = "base64"
	}
	if truncated {
		entry.Comment = fmt.Sprintf("body truncated: original %d bytes, sha256 %s", originalSize, bodyHash)
	}
}

func (p *Pipeline) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cleanupStale()
		case <-p.done:
			return
		}
	}
}

func (p *Pipeline) cleanupStale() {
	threshold := time.Now().Add(-5 * time.Minute)

	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	for id, pending := range p.pending {
		if pending.queued.Before(threshold) {
			delete(p.pending, id)
		}
	}
}

func decodePostData(entries []*network.PostDataEntry) string {
	var decoded []byte
	for _, entry := range entries {
		if entry == nil || entry.Bytes == "" {
			continue
		}
		part, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			decoded = append(decoded, []byte(entry.Bytes)...)
		} else {
			decoded = append(decoded, part...)
		}
	}
	return string(decoded)
}

// phaseTimings maps CDP resource timing onto send/wait/receive phases.
// Without timing data the whole duration is attributed to wait.
func phaseTimings(t *network.ResourceTiming, totalMS float64) harlog.Timings {
	out := harlog.Timings{Blocked: -1, DNS: -1, Connect: -1, SSL: -1, Wait: totalMS}
	if t == nil {
		return out
	}
	send := t.SendEnd - t.SendStart
	wait := t.ReceiveHeadersEnd - t.SendEnd
	if send < 0 || wait < 0 {
		return out
	}
	receive := totalMS - t.ReceiveHeadersEnd
	if receive < 0 {
		receive = 0
	}
	out.Send, out.Wait, out.Receive = send, wait, receive
	return out
}

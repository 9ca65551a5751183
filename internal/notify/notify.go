// Package notify posts plain-text webhook notifications, used to announce
// the end of a recording session.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/trailstash/harlens/internal/livetrack"
)

// SessionSummary renders a one-line human-readable summary of a finished
// capture session.
func SessionSummary(snap livetrack.Snapshot) string {
	msg := fmt.Sprintf("capture session %s finished: %d entries, %d bytes", snap.SessionID, snap.Count, snap.TotalBytes)
	if snap.Oldest != "" {
		msg += fmt.Sprintf(" (%s .. %s)", snap.Oldest, snap.Newest)
	}
	return msg
}

// Send posts a message to the endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Package cdp attaches to browser tabs over the Chrome DevTools Protocol
// and routes their network events into the capture pipeline.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/trailstash/harlens/internal/capture"
	"github.com/trailstash/harlens/internal/config"
)

// Client manages CDP connections to browser tabs.
type Client struct {
	cfg         *config.RecorderConfig
	pipeline    *capture.Pipeline
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabs        map[target.ID]*TabContext
	tabsMu      sync.RWMutex
	done        chan struct{}
}

type TabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(cfg *config.RecorderConfig, pipeline *capture.Pipeline) *Client {
	return &Client{
		cfg:      cfg,
		pipeline: pipeline,
		tabs:     make(map[target.ID]*TabContext),
		done:     make(chan struct{}),
	}
}

// Connect attaches to every page target matching the tab URL filter.
func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	cdpURL := c.cfg.CDPURL()
	slog.Info("Connecting to browser", "url", cdpURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(c.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}

	slog.Info("Found browser targets", "count", len(targets))

	attachedCount := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attachedCount++
	}

	if attachedCount == 0 {
		return fmt.Errorf("no tabs found matching HARLENS_TAB_URL_FILTER=%q", c.cfg.TabURLFilter)
	}

	slog.Info("Attached to tabs", "count", attachedCount, "tab_url_filter", c.cfg.TabURLFilter)
	return nil
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &TabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	if err := chromedp.Run(tabCtx, network.Enable(), network.SetCacheDisabled(true), page.Enable()); err != nil {
		tabCancel()
		c.tabsMu.Lock()
		delete(c.tabs, targetID)
		c.tabsMu.Unlock()
		return fmt.Errorf("failed to enable network/page domains: %w", err)
	}

	slog.Info("Attached to tab", "target_id", targetID, "url", truncateURL(url))
	chromedp.ListenTarget(tabCtx, c.createEventHandler(targetID))

	if c.cfg.ReloadOnAttach {
		reloadCtx, reloadCancel := context.WithTimeout(tabCtx, 30*time.Second)
		defer reloadCancel()
		if err := chromedp.Run(reloadCtx, chromedp.Reload()); err != nil {
			slog.Warn("Failed to reload tab (continuing)", "target_id", targetID, "error", err)
		} else {
			slog.Info("Reloaded tab after attach", "target_id", targetID, "url", truncateURL(url))
		}
	}

	return nil
}

func (c *Client) createEventHandler(tabID target.ID) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				slog.Info("Tab navigated", "tab_id", tabID, "url", truncateURL(e.Frame.URL))
			}
		case *network.EventRequestWillBeSent:
			c.pipeline.OnRequestWillBeSent(e)
		case *network.EventResponseReceived:
			c.pipeline.OnResponseReceived(e)
		case *network.EventLoadingFinished:
			c.tabsMu.RLock()
			tab, ok := c.tabs[tabID]
			c.tabsMu.RUnlock()

			var getBody func() ([]byte, error)
			if ok {
				tabCtx := tab.ctx
				getBody = func() ([]byte, error) {
					bodyCtx, bodyCancel := context.WithTimeout(tabCtx, 10*time.Second)
					defer bodyCancel()

					var body []byte
					err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
						var err error
						body, err = network.GetResponseBody(e.RequestID).Do(ctx)
						return err
					}))
					return body, err
				}
			}
			c.pipeline.OnLoadingFinished(e, getBody)
		case *network.EventLoadingFailed:
			c.pipeline.OnLoadingFailed(e)
		}
	}
}

func (c *Client) Close() error {
	close(c.done)

	c.tabsMu.Lock()
	defer c.tabsMu.Unlock()
	c.tabs = make(map[target.ID]*TabContext)

	if c.allocCancel != nil {
		c.allocCancel()
	}

	slog.Info("CDP client closed")
	return nil
}

func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func (c *Client) matchesTabURL(url string) bool {
	if c.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.cfg.TabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}

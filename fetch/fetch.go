package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/models"
)

// Fetch modes accepted by Request.Mode.
const (
	ModeAuto    = "auto"
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Request describes one page acquisition.
type Request struct {
	URL     string
	Timeout time.Duration
	Stealth bool
	Mode    string // "auto" (default), "http", "browser"
}

// Result is the unified output of any engine.
type Result struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	Engine     string // "http" or "browser"
}

// Fetcher picks the cheapest engine that can render a page: pure HTTP with a
// Chrome TLS fingerprint first, escalating to the headless browser when the
// HTTP result looks like an unrendered SPA shell. Hosts that needed the
// browser once are remembered and go straight to the browser next time.
type Fetcher struct {
	cfg     config.FetcherConfig
	http    *HTTPEngine
	browser *Browser
	memory  *HostMemory
}

// NewFetcher creates a Fetcher. browser may be nil; HTTP-only deployments
// then fail browser-mode requests instead of escalating.
func NewFetcher(cfg config.FetcherConfig, browser *Browser) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		http:    NewHTTPEngine(),
		browser: browser,
		memory:  NewHostMemory(cfg.MemoryTTL),
	}
}

// Fetch acquires the page per the request's mode. The request timeout is
// clamped to the configured maximum; zero means the default.
func (f *Fetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.DefaultTimeout
	}
	if timeout > f.cfg.MaxTimeout {
		timeout = f.cfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch req.Mode {
	case ModeHTTP:
		return f.http.Fetch(ctx, req.URL)
	case ModeBrowser:
		return f.browserFetch(ctx, req)
	}

	return f.autoFetch(ctx, req)
}

// autoFetch is the HTTP-first path with browser escalation.
func (f *Fetcher) autoFetch(ctx context.Context, req *Request) (*Result, error) {
	host := hostOf(req.URL)

	if f.browser != nil && f.memory.NeedsBrowser(host) {
		slog.Debug("fetch: host memory hit, going straight to browser", "host", host)
		return f.browserFetch(ctx, req)
	}

	httpCtx, cancel := context.WithTimeout(ctx, f.cfg.HTTPTimeout)
	res, err := f.http.Fetch(httpCtx, req.URL)
	cancel()

	switch {
	case err == nil && !NeedsBrowser(res.HTML):
		return res, nil
	case f.browser == nil:
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	if err != nil {
		slog.Debug("fetch: http engine failed, escalating", "url", req.URL, "error", err)
	} else {
		slog.Debug("fetch: http result looks unrendered, escalating", "url", req.URL)
	}
	f.memory.MarkNeedsBrowser(host)
	return f.browserFetch(ctx, req)
}

func (f *Fetcher) browserFetch(ctx context.Context, req *Request) (*Result, error) {
	if f.browser == nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "browser engine is not configured", nil)
	}
	return f.browser.Fetch(ctx, req)
}

// Browser exposes the underlying browser for screenshot capture; nil when
// running HTTP-only.
func (f *Fetcher) Browser() *Browser { return f.browser }

// HTTPClient exposes the Chrome-fingerprinted HTTP client so image
// downloads present the same TLS signature as page fetches.
func (f *Fetcher) HTTPClient() *http.Client { return f.http.Client() }

// Close releases the host memory's background resources.
func (f *Fetcher) Close() {
	f.memory.Stop()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

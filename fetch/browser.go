package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/models"
)

// Browser manages the global headless browser lifecycle and the page pool.
// It is safe for concurrent use.
type Browser struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	activePages atomic.Int32
}

// NewBrowser launches a headless browser and initialises the reusable page
// pool.
func NewBrowser(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	pool := rod.NewPagePool(cfg.MaxPages)
	slog.Info("page pool created", "maxPages", cfg.MaxPages)

	return &Browser{
		browser:  browser,
		pagePool: pool,
		cfg:      cfg,
	}, nil
}

// Fetch renders the page in a pooled tab and returns its final DOM.
//
// Lifecycle:
//
//  1. Acquire page          – borrow a tab from the pool (or create one)
//  2. DEFER: cleanup        – about:blank + return to pool (leak prevention)
//  3. Stealth injection     – mask navigator.webdriver etc. (before navigation!)
//  4. Referer spoof         – look like a Google search click-through
//  5. Context binding       – propagate timeout to all Rod operations
//  6. Navigate + wait       – DOM-stable wait catches late gallery hydration
//  7. Extract               – page HTML, title, status, final URL
//
// Steps 3-4 must precede step 6: stealth JS and extra headers only apply to
// navigations that happen after they are installed. Step 2's about:blank
// uses the ORIGINAL page reference (without request context), so cleanup
// succeeds even when the request context has expired.
func (b *Browser) Fetch(ctx context.Context, req *Request) (*Result, error) {
	page, err := b.acquirePage()
	if err != nil {
		return nil, err
	}
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	b.spoofReferer(page, req.URL)

	p := page.Context(ctx)
	return b.render(p, req.URL)
}

// render navigates a context-bound page and extracts the result.
func (b *Browser) render(p *rod.Page, pageURL string) (*Result, error) {
	if err := p.Navigate(pageURL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	// Status code via the Performance API; rod network events conflict with
	// other CDP domains on recent Chromium, this path needs no listeners.
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = pageURL
	}

	return &Result{
		HTML:       rawHTML,
		Title:      title,
		StatusCode: statusCode,
		FinalURL:   finalURL,
		Engine:     ModeBrowser,
	}, nil
}

// CaptureScreenshot navigates to the page and returns a PNG screenshot of
// the viewport as a data URI, ready for the vision API.
func (b *Browser) CaptureScreenshot(ctx context.Context, pageURL string, stealthMode bool) (string, error) {
	page, err := b.acquirePage()
	if err != nil {
		return "", err
	}
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	if stealthMode {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	b.spoofReferer(page, pageURL)

	p := page.Context(ctx)
	if err := p.Navigate(pageURL); err != nil {
		return "", categorizeError(err, "navigation to target URL failed")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, capturing current state", "error", err)
	}

	png, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeCapture, "screenshot capture failed", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func (b *Browser) acquirePage() (*rod.Page, error) {
	page, err := b.pagePool.Get(func() (*rod.Page, error) {
		return b.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	return page, nil
}

// spoofReferer makes the navigation look like a Google search click-through.
func (b *Browser) spoofReferer(page *rod.Page, pageURL string) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	headers := proto.NetworkHeaders{
		"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(page)
}

// Stats returns a snapshot of the pool's current state.
func (b *Browser) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    b.cfg.MaxPages,
		ActivePages: int(b.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process. Call this on
// graceful shutdown to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining page pool")
	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("browser shutting down: closing browser")
	b.browser.MustClose()
	slog.Info("browser shutdown complete")
}

func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

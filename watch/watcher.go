package watch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/simhash"
)

// FetchFunc obtains the current rendered markup of the watched page.
type FetchFunc func(ctx context.Context) (string, error)

// fingerprintThreshold is the Hamming distance beyond which two consecutive
// page fingerprints count as a structural change.
const fingerprintThreshold = 3

// Watcher observes one product page for new image-bearing content and
// re-runs extraction on a debounce timer when it appears.
//
// State machine: idle until Start, then observing, bouncing through a
// debounced-recheck whenever a qualifying change lands. A qualifying change
// is a never-seen image URL or a fingerprint jump past the threshold.
// The debounce timer resets on every further qualifying change, so a burst
// of gallery hydration produces one extraction pass, not ten.
type Watcher struct {
	id        string
	pageURL   string
	productID string
	cfg       config.WatchConfig
	extractor *extract.Extractor
	fetch     FetchFunc

	// nudge carries out-of-band recheck requests from subscriptions.
	nudge    chan struct{}
	sessions chan *models.Session
	onUpdate func(*models.Session)

	mu          sync.Mutex
	lastFP      uint64
	knownURLs   map[string]struct{}
	seenFP      uint64
	seenURLs    map[string]struct{}
	pendingHTML string

	suspended atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a watcher in the idle state. onUpdate, when non-nil,
// is invoked for every debounced extraction pass (the forced-retry path
// bypasses it and returns its session directly).
func NewWatcher(id, pageURL, productID string, cfg config.WatchConfig, extractor *extract.Extractor, fetch FetchFunc, onUpdate func(*models.Session)) *Watcher {
	return &Watcher{
		id:        id,
		pageURL:   pageURL,
		productID: productID,
		cfg:       cfg,
		extractor: extractor,
		fetch:     fetch,
		nudge:     make(chan struct{}, 1),
		sessions:  make(chan *models.Session, 16),
		onUpdate:  onUpdate,
		knownURLs: make(map[string]struct{}),
		seenURLs:  make(map[string]struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the watch identifier.
func (w *Watcher) ID() string { return w.id }

// PageURL returns the watched page URL.
func (w *Watcher) PageURL() string { return w.pageURL }

// Sessions streams the sessions produced by debounced re-extraction passes.
// Slow consumers lose the oldest sessions, never the newest.
func (w *Watcher) Sessions() <-chan *models.Session { return w.sessions }

// Nudge schedules an out-of-band recheck, the server-side analog of a
// scroll/click/image-load event on the page. It never blocks; rechecks
// already pending coalesce.
func (w *Watcher) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// WaitForImages polls the page on an exponential backoff schedule until the
// image collector finds anything, the wait window times out, or ctx is
// cancelled. The schedule starts at WaitBackoff, doubles per attempt, and
// caps at WaitBackoffCap. A Nudge triggers an immediate recheck without
// consuming a backoff slot. All transient triggers are detached before
// returning, whichever way the wait resolves.
func (w *Watcher) WaitForImages(ctx context.Context) bool {
	sub := w.Subscribe()
	defer sub.Cancel()

	ctx, cancel := context.WithTimeout(ctx, w.cfg.WaitTimeout)
	defer cancel()

	delay := w.cfg.WaitBackoff
	for {
		if w.checkImages(ctx) {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-w.nudge:
			// Out-of-band recheck; keep the current backoff step.
		case <-time.After(delay):
			delay *= 2
			if delay > w.cfg.WaitBackoffCap {
				delay = w.cfg.WaitBackoffCap
			}
		}
	}
}

func (w *Watcher) checkImages(ctx context.Context) bool {
	html, err := w.fetch(ctx)
	if err != nil {
		slog.Debug("watch: snapshot failed while waiting for images",
			"watch_id", w.id, "error", err)
		return false
	}
	return w.extractor.HasImages(html, w.pageURL)
}

// Start moves the watcher from idle to observing. The observing loop runs
// until Stop.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
	slog.Info("watch: observing", "watch_id", w.id, "url", w.pageURL)
}

// Stop halts observation and closes the session stream. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		}
		close(w.sessions)
		slog.Info("watch: stopped", "watch_id", w.id, "url", w.pageURL)
	})
}

// run is the observing loop: poll for qualifying changes on a fixed
// interval, collapse bursts behind the debounce timer, emit one extraction
// pass per quiet period.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	arm := func() {
		if debounce == nil {
			debounce = time.NewTimer(w.cfg.Debounce)
			debounceC = debounce.C
			return
		}
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(w.cfg.Debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if w.suspended.Load() {
				continue
			}
			if w.qualifyingChange(ctx) {
				arm()
			}

		case <-w.nudge:
			if w.suspended.Load() {
				continue
			}
			if w.qualifyingChange(ctx) {
				arm()
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.emit(ctx)
		}
	}
}

// qualifyingChange snapshots the page and reports whether a mutation landed
// that the watcher has not acknowledged yet. Re-observing a still-pending
// delta on later polls returns false, so an armed debounce is only pushed
// back by genuinely new mutations. The snapshot is kept either way so the
// debounced emit re-extracts from the freshest markup.
func (w *Watcher) qualifyingChange(ctx context.Context) bool {
	html, err := w.fetch(ctx)
	if err != nil {
		slog.Debug("watch: snapshot failed", "watch_id", w.id, "error", err)
		return false
	}

	fp := simhash.FingerprintPage(html)
	urls := w.extractor.ImageURLs(html, w.pageURL)

	w.mu.Lock()
	defer w.mu.Unlock()

	diverged := simhash.Distance(fp, w.lastFP) > fingerprintThreshold
	for _, u := range urls {
		if _, known := w.knownURLs[u]; !known {
			diverged = true
			break
		}
	}
	if !diverged {
		return false
	}
	w.pendingHTML = html

	fresh := simhash.Distance(fp, w.seenFP) > fingerprintThreshold
	for _, u := range urls {
		if _, seen := w.seenURLs[u]; !seen {
			fresh = true
			break
		}
	}
	if fresh {
		w.seenFP = fp
		for _, u := range urls {
			w.seenURLs[u] = struct{}{}
		}
	}
	return fresh
}

// emit runs one extraction pass and publishes the session.
func (w *Watcher) emit(ctx context.Context) {
	w.mu.Lock()
	html := w.pendingHTML
	w.pendingHTML = ""
	w.mu.Unlock()

	if html == "" {
		var err error
		if html, err = w.fetch(ctx); err != nil {
			slog.Warn("watch: re-extraction snapshot failed", "watch_id", w.id, "error", err)
			return
		}
	}

	session, err := w.extractor.Extract(html, w.pageURL, w.productID)
	if err != nil {
		slog.Warn("watch: re-extraction failed", "watch_id", w.id, "error", err)
		return
	}
	w.setBaseline(html, session)

	// Latest session wins; drop the oldest when the consumer lags. The run
	// loop is the only sender, so one eviction always frees a slot.
	select {
	case w.sessions <- session:
	default:
		select {
		case <-w.sessions:
		default:
		}
		w.sessions <- session
	}
	slog.Info("watch: new session", "watch_id", w.id, "images", len(session.Images))
	if w.onUpdate != nil {
		w.onUpdate(session)
	}
}

// ForceRetry suspends observation, waits a settle delay, resumes, and runs
// one synchronous extraction pass, returning its session directly. The
// debounce machinery is bypassed entirely.
func (w *Watcher) ForceRetry(ctx context.Context) (*models.Session, error) {
	w.suspended.Store(true)

	select {
	case <-ctx.Done():
		w.suspended.Store(false)
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "forced retry cancelled during settle delay", ctx.Err())
	case <-time.After(w.cfg.SettleDelay):
	}
	w.suspended.Store(false)

	html, err := w.fetch(ctx)
	if err != nil {
		return nil, err
	}
	session, err := w.extractor.Extract(html, w.pageURL, w.productID)
	if err != nil {
		return nil, err
	}
	w.setBaseline(html, session)
	return session, nil
}

// setBaseline records the markup and session an emitted pass was built
// from; subsequent qualifying checks diff against it.
func (w *Watcher) setBaseline(html string, session *models.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastFP = simhash.FingerprintPage(html)
	w.knownURLs = make(map[string]struct{}, len(session.Images))
	for _, img := range session.Images {
		w.knownURLs[img.URL] = struct{}{}
	}
	w.seenFP = w.lastFP
	w.seenURLs = make(map[string]struct{}, len(w.knownURLs))
	for u := range w.knownURLs {
		w.seenURLs[u] = struct{}{}
	}
}

// Baseline seeds the watcher's change detection from an extraction pass
// that already happened (the startup extraction), so observation doesn't
// immediately re-fire on content the caller has already seen.
func (w *Watcher) Baseline(html string, session *models.Session) {
	w.setBaseline(html, session)
}

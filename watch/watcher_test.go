package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/models"
)

const (
	emptyPage = `<html><body><h1 class="product-title">Oak Chair</h1></body></html>`
	onePage   = `<html><body><h1 class="product-title">Oak Chair</h1>
		<img src="https://cdn.example.com/a.jpg"></body></html>`
	twoPage = `<html><body><h1 class="product-title">Oak Chair</h1>
		<img src="https://cdn.example.com/a.jpg">
		<img src="https://cdn.example.com/b.jpg"></body></html>`
)

func testConfig() config.WatchConfig {
	return config.WatchConfig{
		WaitTimeout:    time.Second,
		WaitBackoff:    5 * time.Millisecond,
		WaitBackoffCap: 40 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		Debounce:       30 * time.Millisecond,
		SettleDelay:    10 * time.Millisecond,
	}
}

// fakePage serves successive snapshots of a page under mutation.
type fakePage struct {
	html    atomic.Value
	fetches atomic.Int32
}

func newFakePage(initial string) *fakePage {
	p := &fakePage{}
	p.html.Store(initial)
	return p
}

func (p *fakePage) set(html string) { p.html.Store(html) }

func (p *fakePage) fetch(ctx context.Context) (string, error) {
	p.fetches.Add(1)
	return p.html.Load().(string), nil
}

func newTestWatcher(t *testing.T, page *fakePage) *Watcher {
	t.Helper()
	w := NewWatcher("w-test", "https://shop.example.com/product/abc", "abc",
		testConfig(), extract.NewExtractor(nil), page.fetch, nil)
	return w
}

func TestWaitForImagesResolvesWhenImagesAppear(t *testing.T) {
	page := newFakePage(emptyPage)
	w := newTestWatcher(t, page)

	go func() {
		time.Sleep(20 * time.Millisecond)
		page.set(onePage)
	}()

	assert.True(t, w.WaitForImages(context.Background()))
}

func TestWaitForImagesTimesOut(t *testing.T) {
	page := newFakePage(emptyPage)
	cfg := testConfig()
	cfg.WaitTimeout = 50 * time.Millisecond
	w := NewWatcher("w-timeout", "https://shop.example.com/product/abc", "abc",
		cfg, extract.NewExtractor(nil), page.fetch, nil)

	start := time.Now()
	assert.False(t, w.WaitForImages(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitForImagesNudgeTriggersRecheck(t *testing.T) {
	page := newFakePage(emptyPage)
	cfg := testConfig()
	cfg.WaitBackoff = time.Second // would blow past the test without a nudge
	cfg.WaitBackoffCap = time.Second
	cfg.WaitTimeout = 2 * time.Second
	w := NewWatcher("w-nudge", "https://shop.example.com/product/abc", "abc",
		cfg, extract.NewExtractor(nil), page.fetch, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		page.set(onePage)
		w.Nudge()
	}()

	start := time.Now()
	assert.True(t, w.WaitForImages(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestObservingEmitsSessionOnNewImage(t *testing.T) {
	page := newFakePage(onePage)
	w := newTestWatcher(t, page)

	session, err := w.extractor.Extract(onePage, w.pageURL, w.productID)
	require.NoError(t, err)
	w.Baseline(onePage, session)

	w.Start()
	defer w.Stop()

	page.set(twoPage)

	select {
	case got := <-w.Sessions():
		require.NotNil(t, got)
		assert.Len(t, got.Images, 2)
		assert.Equal(t, "Oak Chair", got.Metadata.ProductName)
	case <-time.After(2 * time.Second):
		t.Fatal("no session emitted after a new image appeared")
	}
}

func TestObservingIgnoresUnchangedPage(t *testing.T) {
	page := newFakePage(onePage)
	w := newTestWatcher(t, page)

	session, err := w.extractor.Extract(onePage, w.pageURL, w.productID)
	require.NoError(t, err)
	w.Baseline(onePage, session)

	w.Start()
	defer w.Stop()

	select {
	case <-w.Sessions():
		t.Fatal("session emitted without a qualifying change")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebounceCollapsesBursts(t *testing.T) {
	page := newFakePage(emptyPage)
	w := newTestWatcher(t, page)

	session, err := w.extractor.Extract(emptyPage, w.pageURL, w.productID)
	require.NoError(t, err)
	w.Baseline(emptyPage, session)

	w.Start()
	defer w.Stop()

	// Two mutations inside one debounce window.
	page.set(onePage)
	time.Sleep(15 * time.Millisecond)
	page.set(twoPage)

	var emitted int
	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case s, ok := <-w.Sessions():
			if !ok {
				t.Fatal("session stream closed early")
			}
			emitted++
			assert.Len(t, s.Images, 2, "debounced pass should see the final state")
		case <-deadline:
			assert.Equal(t, 1, emitted)
			return
		}
	}
}

func TestReobservedChangeDoesNotResetDebounce(t *testing.T) {
	// The page mutates once and then holds steady while polls keep
	// re-observing the same delta. The debounce must fire after one window
	// instead of being pushed back on every poll.
	page := newFakePage(onePage)
	cfg := testConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Debounce = 50 * time.Millisecond
	w := NewWatcher("w-steady", "https://shop.example.com/product/abc", "abc",
		cfg, extract.NewExtractor(nil), page.fetch, nil)

	session, err := w.extractor.Extract(onePage, w.pageURL, w.productID)
	require.NoError(t, err)
	w.Baseline(onePage, session)

	w.Start()
	defer w.Stop()

	page.set(twoPage)

	var emitted int
	deadline := time.After(400 * time.Millisecond)
	for {
		select {
		case s, ok := <-w.Sessions():
			if !ok {
				t.Fatal("session stream closed early")
			}
			emitted++
			assert.Len(t, s.Images, 2)
		case <-deadline:
			assert.Equal(t, 1, emitted, "one held change should emit exactly once")
			return
		}
	}
}

func TestForceRetryReturnsFreshSession(t *testing.T) {
	page := newFakePage(onePage)
	w := newTestWatcher(t, page)
	w.Start()
	defer w.Stop()

	page.set(twoPage)
	session, err := w.ForceRetry(context.Background())
	require.NoError(t, err)
	assert.Len(t, session.Images, 2)
}

func TestStopIsIdempotent(t *testing.T) {
	page := newFakePage(onePage)
	w := newTestWatcher(t, page)
	w.Start()
	w.Stop()
	w.Stop()

	_, open := <-w.Sessions()
	assert.False(t, open)
}

func TestSubscriptionCancelDetaches(t *testing.T) {
	page := newFakePage(onePage)
	w := newTestWatcher(t, page)

	sub := w.Subscribe()
	sub.Cancel()
	sub.Cancel() // idempotent
	sub.Nudge()  // dropped, not delivered

	select {
	case <-w.nudge:
		t.Fatal("cancelled subscription delivered a nudge")
	default:
	}
}

func TestManagerLifecycle(t *testing.T) {
	page := newFakePage(onePage)
	m := NewManager(testConfig(), extract.NewExtractor(nil))

	w := m.Start("https://shop.example.com/product/abc", "abc", "", page.fetch, "", nil)
	require.NotNil(t, w)
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(w.ID())
	require.NoError(t, err)
	assert.Same(t, w, got)

	require.NoError(t, m.Stop(w.ID()))
	assert.Equal(t, 0, m.Count())

	_, err = m.Get(w.ID())
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeWatchNotFound, se.Code)

	err = m.Stop(w.ID())
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeWatchNotFound, se.Code)
}

func TestManagerStopAll(t *testing.T) {
	page := newFakePage(onePage)
	m := NewManager(testConfig(), extract.NewExtractor(nil))

	m.Start("https://shop.example.com/product/a", "a", "", page.fetch, "", nil)
	m.Start("https://shop.example.com/product/b", "b", "", page.fetch, "", nil)
	require.Equal(t, 2, m.Count())

	m.StopAll()
	assert.Equal(t, 0, m.Count())
}

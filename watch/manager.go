package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/webhook"
)

// Manager owns the set of active watchers and their webhook fan-out.
type Manager struct {
	cfg       config.WatchConfig
	extractor *extract.Extractor
	watchers  sync.Map // watch id -> *managed
	mu        sync.Mutex
	active    int
}

type managed struct {
	w          *Watcher
	webhookURL string
}

// NewManager creates an empty watch registry.
func NewManager(cfg config.WatchConfig, extractor *extract.Extractor) *Manager {
	return &Manager{cfg: cfg, extractor: extractor}
}

// Config returns the watch configuration shared by all watchers.
func (m *Manager) Config() config.WatchConfig { return m.cfg }

// Start registers a new watcher for pageURL and begins observing. When
// webhookURL is non-empty, every debounced re-extraction pass delivers a
// signed watch.updated event carrying the fresh session. seedHTML and seed,
// when given, prime the change baseline from an extraction pass the caller
// already ran, so observation doesn't re-fire on content already seen.
func (m *Manager) Start(pageURL, productID, webhookURL string, fetch FetchFunc, seedHTML string, seed *models.Session) *Watcher {
	id := uuid.NewString()

	var onUpdate func(*models.Session)
	if webhookURL != "" {
		secret := m.cfg.WebhookSecret
		onUpdate = func(s *models.Session) {
			webhook.DeliverAsync(webhookURL, secret, webhook.NewEvent(webhook.EventWatchUpdated, id, s))
		}
	}

	w := NewWatcher(id, pageURL, productID, m.cfg, m.extractor, fetch, onUpdate)
	if seed != nil {
		w.Baseline(seedHTML, seed)
	}
	m.watchers.Store(id, &managed{w: w, webhookURL: webhookURL})
	m.mu.Lock()
	m.active++
	m.mu.Unlock()
	w.Start()
	return w
}

// Get returns the watcher with the given id.
func (m *Manager) Get(id string) (*Watcher, error) {
	v, ok := m.watchers.Load(id)
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeWatchNotFound,
			fmt.Sprintf("no active watch with id %s", id), nil)
	}
	return v.(*managed).w, nil
}

// Stop halts the watcher with the given id and removes it from the registry,
// delivering a watch.stopped event when the watch registered a webhook.
func (m *Manager) Stop(id string) error {
	v, ok := m.watchers.LoadAndDelete(id)
	if !ok {
		return models.NewScrapeError(models.ErrCodeWatchNotFound,
			fmt.Sprintf("no active watch with id %s", id), nil)
	}
	mw := v.(*managed)
	mw.w.Stop()
	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	if mw.webhookURL != "" {
		webhook.DeliverAsync(mw.webhookURL, m.cfg.WebhookSecret,
			webhook.NewEvent(webhook.EventWatchStopped, id, map[string]string{
				"watch_id": id,
				"url":      mw.w.PageURL(),
			}))
	}
	return nil
}

// ForceRetry suspends the identified watcher, lets the page settle, and runs
// one synchronous extraction pass.
func (m *Manager) ForceRetry(ctx context.Context, id string) (*models.Session, error) {
	w, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return w.ForceRetry(ctx)
}

// Count reports the number of active watchers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// StopAll halts every active watcher. Used on shutdown.
func (m *Manager) StopAll() {
	m.watchers.Range(func(key, value any) bool {
		value.(*managed).w.Stop()
		m.watchers.Delete(key)
		return true
	})
	m.mu.Lock()
	m.active = 0
	m.mu.Unlock()
}

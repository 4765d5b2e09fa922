package predict

import (
	"context"
	"fmt"
	"sync"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/logger"
	"github.com/kartoza/goodspeed/internal/metrics"
	"github.com/kartoza/goodspeed/internal/registry"
	"github.com/kartoza/goodspeed/internal/storage"
)

// Manager owns the single loaded model. Selecting another model discards
// the previous one.
type Manager struct {
	ns       storage.Namespace
	cfg      *config.Config
	settings *config.SettingsStore

	mu      sync.Mutex
	session *Session
}

// NewManager creates a manager over ns. settings may be nil.
func NewManager(ns storage.Namespace, cfg *config.Config, settings *config.SettingsStore) *Manager {
	return &Manager{
		ns:       ns,
		cfg:      cfg,
		settings: settings,
	}
}

// Discover rescans the namespace
func (m *Manager) Discover(ctx context.Context) (*registry.Catalog, error) {
	c, err := registry.Discover(ctx, m.ns, m.cfg.Registry)
	if err != nil {
		metrics.DiscoveredModels.Set(0)
		return nil, err
	}
	metrics.DiscoveredModels.Set(float64(c.Len()))
	return c, nil
}

// Preferred returns the label to preselect: the last model the user chose
// if it is still available, otherwise the first in the catalog.
func (m *Manager) Preferred(c *registry.Catalog) string {
	if m.settings != nil {
		settings, err := m.settings.Load()
		if err != nil {
			logger.Warnf("load settings: %v", err)
		} else if _, ok := c.Get(settings.LastModel); ok {
			return settings.LastModel
		}
	}
	if labels := c.Labels(); len(labels) > 0 {
		return labels[0]
	}
	return ""
}

// Current returns the loaded session, or nil
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Select returns a session for label, loading its artifacts unless the
// same pair is already loaded.
func (m *Manager) Select(ctx context.Context, label string) (*Session, error) {
	c, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := c.Get(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownModel, label)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.Model().Entry == entry {
		return m.session, nil
	}

	log := logger.WithModel(label)
	model, err := registry.Load(ctx, m.ns, entry)
	if err != nil {
		metrics.ModelLoadFailureCount.WithLabelValues(label).Inc()
		log.Errorf("load failed: %v", err)
		return nil, err
	}
	metrics.ModelLoadCount.WithLabelValues(label).Inc()

	session := NewSession(model, m.cfg.Fields, m.cfg.Predict)
	for _, column := range session.Warnings() {
		log.Warnf("feature column %q is not produced by any known field", column)
	}
	log.Infof("loaded %s with %d feature columns", entry.ModelName, model.NumFeatures())

	m.session = session
	if m.settings != nil {
		if err := m.settings.Save(config.Settings{LastModel: label}); err != nil {
			log.Warnf("save settings: %v", err)
		}
	}
	return session, nil
}

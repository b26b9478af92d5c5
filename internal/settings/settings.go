// Package settings holds the operator's current capture settings and
// propagates changes to live sessions.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/leadbot/internal/hermes"
	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

// Persister stores capture settings across restarts.
type Persister interface {
	LoadCaptureSettings(ctx context.Context) (lead.CaptureConfig, bool, error)
	SaveCaptureSettings(ctx context.Context, cfg lead.CaptureConfig, updatedBy string) error
}

// Publisher announces accepted changes to other instances.
type Publisher interface {
	PublishSettingsUpdated(evt hermes.SettingsUpdatedEvent) error
}

// Listener is called with the new settings after every accepted change.
type Listener func(ctx context.Context, cfg lead.CaptureConfig)

type Manager struct {
	persister  Persister
	logger     *slog.Logger
	publisher  Publisher
	instanceID string

	// writeMu serialises Update and Reload.
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   lead.CaptureConfig
	listeners []Listener
}

// NewManager starts from initial, which must be valid. persister may be nil.
func NewManager(initial lead.CaptureConfig, persister Persister, logger *slog.Logger) (*Manager, error) {
	initial = initial.Normalized()
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial settings: %w", err)
	}
	return &Manager{persister: persister, logger: logger, current: initial}, nil
}

// AnnounceTo publishes every accepted update on the settings subject,
// tagged with instanceID so this instance can ignore its own echoes.
func (m *Manager) AnnounceTo(pub Publisher, instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher, m.instanceID = pub, instanceID
}

// Current returns the active settings.
func (m *Manager) Current() lead.CaptureConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange registers a listener for accepted changes.
func (m *Manager) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Update validates and applies cfg. Invalid settings are rejected and the
// current ones kept.
func (m *Manager) Update(ctx context.Context, cfg lead.CaptureConfig, updatedBy string) (lead.CaptureConfig, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		m.logger.Warn("rejected capture settings", "updated_by", updatedBy, "error", err)
		return m.Current(), err
	}
	if m.persister != nil {
		if err := m.persister.SaveCaptureSettings(ctx, cfg, updatedBy); err != nil {
			return m.Current(), fmt.Errorf("persist settings: %w", err)
		}
	}
	m.set(ctx, cfg)
	m.logger.Info("capture settings updated",
		"updated_by", updatedBy,
		"enabled", cfg.Enabled,
		"mode", string(cfg.Mode),
		"threshold", cfg.Threshold,
	)
	m.announce(cfg, updatedBy)
	return cfg, nil
}

// Reload re-reads the persisted settings, typically after another instance
// announced a change. Stored settings that fail validation are ignored.
func (m *Manager) Reload(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.persister == nil {
		return nil
	}
	cfg, found, err := m.persister.LoadCaptureSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return nil
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		m.logger.Warn("ignoring invalid stored capture settings", "error", err)
		return nil
	}
	if reflect.DeepEqual(cfg, m.Current()) {
		return nil
	}
	m.set(ctx, cfg)
	m.logger.Info("capture settings reloaded", "mode", string(cfg.Mode))
	return nil
}

// HandleSettingsUpdated is the NATS handler for leadbot.settings.updated.
func (m *Manager) HandleSettingsUpdated(subject string, data []byte) {
	var evt hermes.SettingsUpdatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		m.logger.Error("failed to parse settings event", "subject", subject, "error", err)
		return
	}

	m.mu.RLock()
	self := m.instanceID
	m.mu.RUnlock()
	if self != "" && evt.InstanceID == self {
		return
	}

	if err := m.Reload(context.Background()); err != nil {
		m.logger.Error("settings reload failed", "updated_by", evt.UpdatedBy, "error", err)
	}
}

func (m *Manager) announce(cfg lead.CaptureConfig, updatedBy string) {
	m.mu.RLock()
	pub, id := m.publisher, m.instanceID
	m.mu.RUnlock()
	if pub == nil {
		return
	}
	err := pub.PublishSettingsUpdated(hermes.SettingsUpdatedEvent{
		InstanceID: id,
		UpdatedBy:  updatedBy,
		Mode:       string(cfg.Mode),
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		m.logger.Warn("failed to announce settings update", "error", err)
	}
}

func (m *Manager) set(ctx context.Context, cfg lead.CaptureConfig) {
	m.mu.Lock()
	m.current = cfg
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(ctx, cfg)
	}
}

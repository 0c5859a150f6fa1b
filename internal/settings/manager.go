package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// TerminalConfig is the terminal configuration posted by the host application.
type TerminalConfig struct {
	Vendor         string          `json:"vendor"`
	ActivationCode string          `json:"activation_code,omitempty"`
	Settings       json.RawMessage `json:"settings,omitempty"`
}

// Equal reports whether two configurations would produce the same gateway.
func (c *TerminalConfig) Equal(other *TerminalConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Vendor == other.Vendor &&
		c.ActivationCode == other.ActivationCode &&
		bytes.Equal(compact(c.Settings), compact(other.Settings))
}

// SameGateway reports whether only the activation code differs.
func (c *TerminalConfig) SameGateway(other *TerminalConfig) bool {
	if c == nil || other == nil {
		return false
	}
	return c.Vendor == other.Vendor && bytes.Equal(compact(c.Settings), compact(other.Settings))
}

// Manager handles the storage and retrieval of the terminal configuration.
type Manager struct {
	sync.RWMutex
	logger         *zap.SugaredLogger
	active         *TerminalConfig
	updateCallback func(cfg *TerminalConfig)
}

// NewManager creates a new configuration manager.
func NewManager(logger *zap.SugaredLogger) *Manager {
	return &Manager{logger: logger}
}

// UpdateSettings parses a posted configuration and makes it active. A payload without a
// vendor deactivates the terminal.
func (m *Manager) UpdateSettings(payload []byte) error {
	var cfg TerminalConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return fmt.Errorf("could not unmarshal terminal config: %w", err)
	}
	cfg.Vendor = strings.TrimSpace(cfg.Vendor)
	cfg.ActivationCode = strings.TrimSpace(cfg.ActivationCode)

	if cfg.Vendor == "" {
		m.Set(nil)
		return nil
	}
	if len(cfg.Settings) > 0 && !json.Valid(cfg.Settings) {
		return fmt.Errorf("settings for vendor %s are not valid JSON", cfg.Vendor)
	}
	m.Set(&cfg)
	return nil
}

// Set replaces the active configuration and runs the update callback when it changed.
func (m *Manager) Set(cfg *TerminalConfig) {
	m.Lock()
	if m.active.Equal(cfg) {
		m.Unlock()
		m.logger.Debugf("Terminal configuration unchanged")
		return
	}

	if cfg == nil {
		m.logger.Info("Terminal configuration cleared. Deactivating gateway.")
		m.active = nil
	} else {
		m.logger.Infof("Received terminal configuration for vendor %s", cfg.Vendor)
		cfgCopy := *cfg
		m.active = &cfgCopy
	}
	callback := m.updateCallback
	m.Unlock()

	if callback != nil {
		callback(m.GetActive())
	}
}

// GetActive returns a copy of the current configuration, or nil when none is set.
func (m *Manager) GetActive() *TerminalConfig {
	m.RLock()
	defer m.RUnlock()

	if m.active == nil {
		return nil
	}
	cfgCopy := *m.active
	return &cfgCopy
}

// SetUpdateCallback sets the function to call when the configuration changes.
func (m *Manager) SetUpdateCallback(callback func(cfg *TerminalConfig)) {
	m.Lock()
	defer m.Unlock()
	m.updateCallback = callback
}

func compact(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	if buf.String() == "null" {
		return nil
	}
	return buf.Bytes()
}

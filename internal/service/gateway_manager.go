package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"bridge-pos-payments/internal/payments"
	"bridge-pos-payments/internal/settings"
	"bridge-pos-payments/internal/terminal"
	"bridge-pos-payments/internal/vendors"
)

const activationTimeout = 30 * time.Second

// GatewayManager owns the payment client for the configured terminal and rebuilds it
// when the terminal configuration changes.
type GatewayManager struct {
	mu      sync.RWMutex
	logger  *zap.SugaredLogger
	session *payments.Session
	opts    payments.Options
	config  *settings.TerminalConfig
	client  *payments.Client
}

func NewGatewayManager(logger *zap.SugaredLogger, session *payments.Session, opts payments.Options) *GatewayManager {
	if session == nil {
		session = payments.NewSession("")
	}
	return &GatewayManager{
		logger:  logger,
		session: session,
		opts:    opts,
	}
}

// Client returns the active payment client, or NOT_CONFIGURED when no terminal is set up.
func (gm *GatewayManager) Client() (*payments.Client, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	if gm.client == nil {
		return nil, terminal.NewOperationError(terminal.CodeNotConfigured, "Terminal não configurado")
	}
	return gm.client, nil
}

// HandleConfigChange applies a new terminal configuration. A nil config stops the
// gateway. The gateway is not replaced while an operation is running.
func (gm *GatewayManager) HandleConfigChange(cfg *settings.TerminalConfig) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if gm.client != nil && gm.client.IsBusy() {
		gm.logger.Warnf("Terminal busy, configuration change deferred")
		return terminal.NewOperationError(terminal.CodeOperationInProgress, "Operação em andamento; tente novamente")
	}

	if gm.client != nil && gm.config.SameGateway(cfg) {
		if cfg.ActivationCode != gm.config.ActivationCode {
			gm.logger.Infof("Activation code changed, re-activating %s", cfg.Vendor)
			gm.activate(gm.client, cfg.ActivationCode)
		}
		gm.config = cfg
		return nil
	}

	if err := gm.stopCurrentGateway(); err != nil {
		return err
	}
	if cfg == nil {
		gm.logger.Info("No terminal configuration - gateway stopped")
		return nil
	}
	return gm.startNewGateway(cfg)
}

func (gm *GatewayManager) stopCurrentGateway() error {
	if gm.client == nil {
		return nil
	}
	gm.logger.Infof("Stopping current gateway: %s", gm.config.Vendor)
	if err := gm.client.Close(); err != nil {
		gm.logger.Errorf("Error stopping gateway %s: %v", gm.config.Vendor, err)
		return err
	}
	gm.client = nil
	gm.config = nil
	gm.session.Clear()
	return nil
}

func (gm *GatewayManager) startNewGateway(cfg *settings.TerminalConfig) error {
	newFunc, err := vendors.Get(cfg.Vendor)
	if err != nil {
		gm.logger.Errorf("Failed to get vendor: %v", err)
		return terminal.WrapOperationError(terminal.CodeNotConfigured, fmt.Sprintf("Fornecedor de terminal desconhecido: %s (disponíveis: %s)", cfg.Vendor, strings.Join(vendors.Names(), ", ")), err)
	}

	gateway, err := newFunc(gm.logger.With("vendor", cfg.Vendor), cfg.Settings)
	if err != nil {
		gm.logger.Errorf("Failed to create gateway: %v", err)
		return terminal.WrapOperationError(terminal.CodeNotConfigured, "Configuração do terminal inválida", err)
	}

	client := payments.NewClient(gateway, gm.session, gm.logger, gm.opts)
	if cfg.ActivationCode != "" {
		gm.activate(client, cfg.ActivationCode)
	}

	gm.client = client
	gm.config = cfg
	gm.logger.Infof("Gateway %s started: model=%s serial=%s", cfg.Vendor, gateway.Model(), gateway.SerialNumber())
	return nil
}

// activate failures leave the gateway running unauthenticated; operations then fail
// with NOT_AUTHENTICATED until a valid code is posted.
func (gm *GatewayManager) activate(client *payments.Client, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), activationTimeout)
	defer cancel()
	if err := client.Activate(ctx, code); err != nil {
		gm.logger.Errorf("Terminal activation failed: %v", err)
	}
}

func (gm *GatewayManager) Stop() error {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.stopCurrentGateway()
}

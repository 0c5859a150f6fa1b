package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bridge-pos-payments/internal/api"
	"bridge-pos-payments/internal/core"
	"bridge-pos-payments/internal/payments"
	"bridge-pos-payments/internal/service"
	"bridge-pos-payments/internal/settings"
	_ "bridge-pos-payments/internal/vendors/simulated"
)

func main() {
	envLoaded := loadEnvironment()

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Bridge POS Payments application...")
	if !envLoaded {
		logger.Debug("No .env file found, using environment variables")
	}

	dataDir := core.GetDataDirectory()
	store, err := core.NewTransactionStore(core.TransactionsDir(dataDir), getInt("POS_STORE_MAX_MB", 64), getDuration("POS_RETENTION", core.DefaultRetention), logger)
	if err != nil {
		logger.Fatalf("Failed to create transaction store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("Failed to close transaction store: %v", err)
		}
	}()
	audit := core.NewAuditLogger(core.AuditDir(dataDir), int64(getInt("POS_AUDIT_MAX_MB", 10)), logger)

	session := payments.NewSession(os.Getenv("POS_ACTIVATION_CODE"))
	gateways := service.NewGatewayManager(logger, session, payments.Options{
		Store:       store,
		Audit:       audit,
		AbortWindow: getDuration("POS_ABORT_WINDOW", payments.DefaultAbortWindow),
	})

	settingsManager := settings.NewManager(logger)
	settingsManager.SetUpdateCallback(func(cfg *settings.TerminalConfig) {
		if err := gateways.HandleConfigChange(cfg); err != nil {
			logger.Errorf("Failed to apply terminal configuration: %v", err)
		}
	})

	apiAddr := ":33480"
	if port := os.Getenv("POS_SERVICE_PORT"); port != "" {
		apiAddr = ":" + port
	}
	server := api.NewServer(apiAddr, logger, settingsManager, gateways, store, audit)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("API Server failed: %v", err)
		}
	}()

	if cfg := bootConfig(); cfg != nil {
		settingsManager.Set(cfg)
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := server.Stop(ctx); err != nil {
		logger.Errorf("API Server stop failed: %v", err)
	}
	cancel()
	if err := gateways.Stop(); err != nil {
		logger.Errorf("Gateway stop failed: %v", err)
	}
	logger.Info("Bridge POS Payments application stopped")
}

// bootConfig builds the terminal configuration from the environment so the bridge can
// start serving without waiting for POST /terminal_config.
func bootConfig() *settings.TerminalConfig {
	vendor := os.Getenv("POS_VENDOR")
	if vendor == "" && os.Getenv("MODE") == "simulation" {
		vendor = "simulated"
	}
	if vendor == "" {
		return nil
	}

	raw := json.RawMessage(getString("POS_VENDOR_SETTINGS", "{}"))
	if !json.Valid(raw) {
		raw = json.RawMessage("{}")
	}
	return &settings.TerminalConfig{
		Vendor:         vendor,
		ActivationCode: os.Getenv("POS_ACTIVATION_CODE"),
		Settings:       raw,
	}
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bridge-pos-payments/internal/core"
	"bridge-pos-payments/internal/payments"
	"bridge-pos-payments/internal/settings"
)

// ClientProvider hands out the payment client of the configured terminal.
type ClientProvider interface {
	Client() (*payments.Client, error)
}

// TransactionHistory is the read side of the transaction store.
type TransactionHistory interface {
	List(operation string, limit int) ([]core.TransactionRecord, error)
	Last(operation string) (*core.TransactionRecord, error)
	Get(transactionCode string) (*core.TransactionRecord, error)
	Count() (int, error)
}

// AuditStats reports the audit trail state for /metrics.
type AuditStats interface {
	GetStats() map[string]interface{}
}

// Server is the HTTP surface the host application drives the terminal through.
type Server struct {
	*http.Server
	Logger          *zap.SugaredLogger
	SettingsManager *settings.Manager
	Clients         ClientProvider
	History         TransactionHistory
	Audit           AuditStats
	startedAt       time.Time
}

// NewServer creates and configures a new server. Payment and void requests hold the
// connection until the terminal settles, so the write timeout covers a full customer
// interaction.
func NewServer(addr string, logger *zap.SugaredLogger, sm *settings.Manager, clients ClientProvider, history TransactionHistory, audit AuditStats) *Server {
	s := &Server{
		Logger:          logger,
		SettingsManager: sm,
		Clients:         clients,
		History:         history,
		Audit:           audit,
		startedAt:       time.Now(),
	}

	s.Server = &http.Server{
		Addr:           addr,
		Handler:        s.Routes(),
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   3 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// Routes builds the router. It is exported for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.Logger))

	r.Post("/payments", s.paymentHandler)
	r.Post("/voids", s.voidHandler)
	r.Post("/abort", s.abortHandler)

	r.Route("/state", func(r chi.Router) {
		r.Get("/", s.stateHandler)
		r.Post("/reset", s.resetHandler)
		r.Get("/stream", s.stateStreamHandler)
	})

	r.Get("/device", s.deviceHandler)
	r.Post("/activation", s.activateHandler)
	r.Delete("/activation", s.deactivateHandler)

	r.Get("/transactions", s.transactionsHandler)
	r.Get("/transactions/last", s.lastTransactionHandler)
	r.Get("/transactions/{code}", s.transactionHandler)
	r.Get("/installments", s.installmentsHandler)
	r.Post("/receipts/reprint", s.reprintHandler)

	r.Post("/terminal_config", s.settingsHandler)
	r.Get("/terminal_config", s.currentSettingsHandler)
	r.Get("/metrics", s.metricsHandler)
	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.Logger.Infof("Starting API Server on %s", s.Addr)
	return s.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.Logger.Info("Shutting down API Server...")
	return s.Shutdown(ctx)
}

func requestLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debugw("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

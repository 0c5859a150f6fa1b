package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bridge-pos-payments/internal/core"
	"bridge-pos-payments/internal/terminal"
	"bridge-pos-payments/internal/vendors"
)

const maxBodyBytes = 64 << 10

func (s *Server) paymentHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}

	var req terminal.PaymentRequest
	if !s.decode(w, r, &req) {
		return
	}

	// A dropped HTTP connection must not cancel a card interaction in progress; the host
	// follows up through /state and /abort.
	tx, err := client.RequestPayment(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) voidHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}

	var req terminal.VoidRequest
	if !s.decode(w, r, &req) {
		return
	}

	tx, err := client.RequestVoid(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) abortHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	if err := client.AbortCurrentOperation(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "abort_requested"})
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, client.Snapshot())
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	if !client.Reset() {
		s.writeError(w, terminal.NewOperationError(terminal.CodeOperationInProgress, "Operação em andamento; cancele antes de reiniciar"))
		return
	}
	writeJSON(w, http.StatusOK, client.Snapshot())
}

// stateStreamHandler pushes every snapshot change as a server-sent event.
func (s *Server) stateStreamHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, cancel := client.Subscribe(16)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(v interface{}) bool {
		data, err := json.Marshal(v)
		if err != nil {
			s.Logger.Errorf("Failed to encode snapshot: %v", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(client.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-updates:
			if !open || !send(snap) {
				return
			}
		}
	}
}

type deviceInfo struct {
	Vendor        string                `json:"vendor,omitempty"`
	Model         string                `json:"model"`
	SerialNumber  string                `json:"serial_number"`
	Authenticated bool                  `json:"authenticated"`
	Busy          bool                  `json:"busy"`
	Capabilities  []string              `json:"capabilities"`
	UserData      terminal.UserData     `json:"user_data"`
	SubAcquirer   *terminal.SubAcquirer `json:"sub_acquirer,omitempty"`
}

func (s *Server) deviceHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}

	info := deviceInfo{
		Model:         client.Model(),
		SerialNumber:  client.SerialNumber(),
		Authenticated: client.IsAuthenticated(),
		Busy:          client.IsBusy(),
		Capabilities:  []string{},
		UserData:      client.UserData(),
	}
	if cfg := s.SettingsManager.GetActive(); cfg != nil {
		info.Vendor = cfg.Vendor
	}
	for _, c := range terminal.AllCapabilities() {
		if client.HasCapability(c) {
			info.Capabilities = append(info.Capabilities, c.String())
		}
	}
	if sa, ok := client.SubAcquirer(); ok {
		info.SubAcquirer = sa
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) activateHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	var body struct {
		ActivationCode string `json:"activation_code"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := client.Activate(r.Context(), body.ActivationCode); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": client.IsAuthenticated()})
}

func (s *Server) deactivateHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	if err := client.Deactivate(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": client.IsAuthenticated()})
}

func (s *Server) lastTransactionHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	tx, err := client.LastApprovedTransaction()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) transactionsHandler(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.writeError(w, terminal.NewOperationError(terminal.CodeNotConfigured, "Histórico de transações indisponível"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, terminal.NewOperationError(terminal.CodeInvalidArgument, "limit deve ser um inteiro positivo"))
			return
		}
		limit = n
	}

	records, err := s.History.List(r.URL.Query().Get("operation"), limit)
	if err != nil {
		s.Logger.Errorf("Failed to list transactions: %v", err)
		http.Error(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// transactionHandler looks a stored transaction up by its transaction code.
func (s *Server) transactionHandler(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.writeError(w, terminal.NewOperationError(terminal.CodeNotConfigured, "Histórico de transações indisponível"))
		return
	}

	record, err := s.History.Get(chi.URLParam(r, "code"))
	if errors.Is(err, core.ErrTransactionNotFound) {
		s.writeError(w, terminal.NewOperationError(terminal.CodeNoTransaction, "Transação não encontrada"))
		return
	}
	if err != nil {
		s.Logger.Errorf("Failed to get transaction: %v", err)
		http.Error(w, "Failed to retrieve transaction", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// installmentsHandler answers GET /installments?amount=<centavos>&plan=<plan>. Both
// parameters are required; plan takes a name (NONE, SELLER_FUNDED, BUYER_FUNDED) or its
// number.
func (s *Server) installmentsHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		s.writeError(w, terminal.NewOperationError(terminal.CodeInvalidArgument, "amount deve ser um inteiro em centavos"))
		return
	}
	plan, err := parsePlan(r.URL.Query().Get("plan"))
	if err != nil {
		s.writeError(w, terminal.NewOperationError(terminal.CodeInvalidArgument, err.Error()))
		return
	}

	options, err := client.CalculateInstallments(amount, plan)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func parsePlan(v string) (terminal.InstallmentPlan, error) {
	if v == "" {
		return 0, errors.New("plan é obrigatório")
	}
	if n, err := strconv.Atoi(v); err == nil {
		return terminal.InstallmentPlan(n), nil
	}
	var plan terminal.InstallmentPlan
	if err := plan.UnmarshalJSON([]byte(strconv.Quote(v))); err != nil {
		return 0, err
	}
	return plan, nil
}

func (s *Server) reprintHandler(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w)
	if !ok {
		return
	}
	var body struct {
		Copy terminal.ReceiptCopy `json:"copy"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Copy == "" {
		body.Copy = terminal.ReceiptCustomer
	}
	if err := client.ReprintReceipt(r.Context(), body.Copy); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "printed"})
}

func (s *Server) settingsHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.Logger.Errorf("Error reading settings body: %v", err)
		http.Error(w, "Error reading request body", http.StatusInternalServerError)
		return
	}

	if err := s.SettingsManager.UpdateSettings(body); err != nil {
		s.Logger.Errorf("Failed to process terminal config: %v", err)
		s.writeError(w, terminal.WrapOperationError(terminal.CodeInvalidArgument, "Configuração inválida", err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) currentSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cfg := s.SettingsManager.GetActive()
	if cfg == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{})
		return
	}
	if cfg.ActivationCode != "" {
		cfg.ActivationCode = "******"
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	hostname, _ := os.Hostname()
	response := map[string]interface{}{
		"service": map[string]interface{}{
			"uptime_seconds": time.Since(s.startedAt).Seconds(),
			"mode":           os.Getenv("MODE"),
			"pid":            os.Getpid(),
			"hostname":       hostname,
		},
		"timestamp": time.Now(),
	}

	if s.History != nil {
		if count, err := s.History.Count(); err == nil {
			stats := map[string]interface{}{"stored": count, "status": "ok"}
			if last, err := s.History.Last(""); err == nil {
				stats["last_stored_at"] = last.CreatedAt
				stats["last_operation"] = last.Operation
			}
			response["transactions"] = stats
		} else {
			response["transactions"] = map[string]interface{}{"status": "unavailable"}
		}
	}
	if s.Audit != nil {
		response["audit"] = s.Audit.GetStats()
	}
	response["vendors"] = vendors.Names()

	if client, err := s.Clients.Client(); err == nil {
		snap := client.Snapshot()
		response["terminal"] = map[string]interface{}{
			"serial_number":  client.SerialNumber(),
			"authenticated":  client.IsAuthenticated(),
			"busy":           client.IsBusy(),
			"state":          snap.State,
			"abort_requests": client.AbortRequests(),
		}
	} else {
		response["terminal"] = map[string]interface{}{"status": "not_configured"}
	}

	writeJSON(w, http.StatusOK, response)
}

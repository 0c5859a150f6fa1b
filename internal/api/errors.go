package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bridge-pos-payments/internal/payments"
	"bridge-pos-payments/internal/terminal"
)

var statusByCode = map[string]int{
	terminal.CodeInvalidArgument:     http.StatusBadRequest,
	terminal.CodeOperationInProgress: http.StatusConflict,
	terminal.CodeNoTransaction:       http.StatusNotFound,
	terminal.CodeNotConfigured:       http.StatusServiceUnavailable,
	terminal.CodeNotAuthenticated:    http.StatusUnauthorized,
	terminal.CodeAborted:             http.StatusConflict,
	terminal.CodeNotApproved:         http.StatusPaymentRequired,
}

// StatusFor maps an OperationError code to the HTTP status the bridge answers with.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	opErr, ok := terminal.AsOperationError(err)
	if !ok {
		opErr = terminal.WrapOperationError(terminal.CodeGatewayFailure, "Erro interno", err)
	}
	status := StatusFor(opErr.Code)
	if status >= http.StatusInternalServerError {
		s.Logger.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, opErr)
}

func (s *Server) client(w http.ResponseWriter) (*payments.Client, bool) {
	client, err := s.Clients.Client()
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return client, true
}

// decode reads a JSON body into v, answering INVALID_ARG on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, terminal.NewOperationError(terminal.CodeInvalidArgument, "JSON inválido: "+err.Error()))
		return false
	}
	return true
}

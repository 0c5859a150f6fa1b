// Package payments is the facade the bridge uses to drive a payment terminal: it validates
// requests, runs them on the gateway with the progress tracker listening, and turns the
// terminal's results into a transaction or an *terminal.OperationError.
package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"bridge-pos-payments/internal/core"
	"bridge-pos-payments/internal/progress"
	"bridge-pos-payments/internal/terminal"
	"bridge-pos-payments/internal/vendors"
)

// DefaultAbortWindow is how long an outstanding abort suppresses further abort calls
// when the operation does not settle first.
const DefaultAbortWindow = time.Second

const (
	msgGatewayFailure = "Falha na comunicação com o terminal"
	msgInterrupted    = "Operação interrompida"
	msgAbortFailed    = "Falha ao cancelar operação"
	msgBusy           = "Já existe uma operação em andamento"
	msgNoTransaction  = "Nenhuma transação aprovada"
)

// TransactionStore persists approved results.
type TransactionStore interface {
	SaveTransaction(operation string, tx *terminal.TransactionResult) error
}

// AuditRecorder receives one entry per operation outcome.
type AuditRecorder interface {
	Record(entry core.AuditEntry) error
}

type Options struct {
	Store       TransactionStore
	Audit       AuditRecorder
	AbortWindow time.Duration
}

// Client is the facade over one gateway. It runs at most one payment or void at a time;
// a request made while another is in flight fails with OPERATION_IN_PROGRESS.
type Client struct {
	gateway vendors.Gateway
	session *Session
	tracker *progress.Tracker
	logger  *zap.SugaredLogger
	store   TransactionStore
	audit   AuditRecorder

	abortWindow time.Duration

	mu           sync.Mutex
	inFlight     bool
	abortPending bool
	abortGen     uint64
	abortCalls   int
}

func NewClient(gateway vendors.Gateway, session *Session, logger *zap.SugaredLogger, opts Options) *Client {
	if session == nil {
		session = NewSession("")
	}
	window := opts.AbortWindow
	if window <= 0 {
		window = DefaultAbortWindow
	}
	return &Client{
		gateway:     gateway,
		session:     session,
		tracker:     progress.NewTracker(logger),
		logger:      logger,
		store:       opts.Store,
		audit:       opts.Audit,
		abortWindow: window,
	}
}

// RequestPayment charges req on the terminal and blocks until the terminal settles.
func (c *Client) RequestPayment(ctx context.Context, req terminal.PaymentRequest) (*terminal.TransactionResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.finish()

	entry := core.AuditEntry{
		Operation:     string(progress.OperationPayment),
		Amount:        req.Amount,
		UserReference: req.UserReference,
	}

	if verr := req.Validate(); verr != nil {
		c.tracker.Reject(progress.OperationPayment, verr)
		c.logger.Warnf("Payment rejected: %s", verr.Message)
		c.record(entry, core.OutcomeRejected, verr, nil)
		return nil, verr
	}

	c.tracker.Start(progress.OperationPayment)
	c.logger.Infof("Payment started: amount=%s type=%s plan=%s installments=%d",
		terminal.FormatAmount(req.Amount), req.Type, req.InstallmentPlan, req.Installments)

	res, err := c.gateway.Pay(ctx, req, c.tracker)
	return c.settle(progress.OperationPayment, entry, res, err)
}

// RequestVoid cancels a previously approved transaction and blocks until the terminal settles.
func (c *Client) RequestVoid(ctx context.Context, req terminal.VoidRequest) (*terminal.TransactionResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.finish()

	entry := core.AuditEntry{
		Operation:       string(progress.OperationVoid),
		TransactionCode: req.TransactionCode,
	}

	if verr := req.Validate(); verr != nil {
		c.tracker.Reject(progress.OperationVoid, verr)
		c.logger.Warnf("Void rejected: %s", verr.Message)
		c.record(entry, core.OutcomeRejected, verr, nil)
		return nil, verr
	}

	req = req.Normalized()
	entry.TransactionCode = req.TransactionCode

	c.tracker.Start(progress.OperationVoid)
	c.logger.Infof("Void started: transaction=%s kind=%s", req.TransactionCode, req.Kind)

	res, err := c.gateway.Void(ctx, req, c.tracker)
	return c.settle(progress.OperationVoid, entry, res, err)
}

// settle translates the gateway outcome. The tracker reaches its terminal state before
// the caller sees the result.
func (c *Client) settle(kind progress.OperationKind, entry core.AuditEntry, res terminal.Result, err error) (*terminal.TransactionResult, error) {
	if err != nil {
		opErr, ok := terminal.AsOperationError(err)
		if !ok {
			msg := msgGatewayFailure
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				msg = msgInterrupted
			}
			opErr = terminal.WrapOperationError(terminal.CodeGatewayFailure, msg, err)
		}
		c.tracker.Fail(opErr)
		c.logger.Errorf("%s failed in gateway: %v", kind, err)
		c.record(entry, core.OutcomeFailed, opErr, nil)
		return nil, opErr
	}

	tx, uerr := res.Unwrap()
	if uerr != nil {
		opErr, _ := terminal.AsOperationError(uerr)
		c.tracker.Fail(opErr)
		c.logger.Infof("%s not completed: %s", kind, opErr.Error())
		c.record(entry, core.OutcomeFailed, opErr, nil)
		return nil, opErr
	}

	c.tracker.Succeed()
	c.logger.Infof("%s approved: transaction=%s amount=%s", kind, tx.TransactionCode, tx.Amount)

	if c.store != nil {
		if err := c.store.SaveTransaction(string(kind), tx); err != nil {
			c.logger.Errorf("Failed to persist %s %s: %v", kind, tx.TransactionCode, err)
		}
	}
	c.record(entry, core.OutcomeApproved, nil, tx)
	return tx, nil
}

func (c *Client) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return terminal.NewOperationError(terminal.CodeOperationInProgress, msgBusy)
	}
	c.inFlight = true
	// A new operation starts with a clean abort guard; a pending window timer becomes a no-op.
	c.abortPending = false
	c.abortGen++
	return nil
}

// finish ends the operation and releases a pending abort guard.
func (c *Client) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.abortPending = false
	c.abortGen++
}

// AbortCurrentOperation asks the terminal to stop the operation in flight and returns
// without waiting for it. While an abort is outstanding further calls are no-ops; the
// guard clears when the operation settles or after the abort window.
func (c *Client) AbortCurrentOperation() error {
	c.mu.Lock()
	if c.abortPending {
		c.mu.Unlock()
		c.logger.Debugf("Abort already requested, ignoring")
		return nil
	}
	c.abortPending = true
	c.abortGen++
	c.abortCalls++
	gen := c.abortGen
	c.mu.Unlock()

	c.logger.Infof("Abort requested (state %s)", c.tracker.Snapshot().State)
	opErr := c.gateway.Abort()
	if opErr != nil {
		c.clearAbort(gen)
		if opErr.Code == "" {
			opErr = terminal.NewOperationError(terminal.CodeAbortFailed, firstNonEmpty(opErr.Message, msgAbortFailed))
		}
		c.logger.Errorf("Abort failed: %s", opErr.Error())
		c.record(core.AuditEntry{Operation: "abort"}, core.OutcomeFailed, opErr, nil)
		return opErr
	}

	c.record(core.AuditEntry{Operation: "abort"}, core.OutcomeAborted, nil, nil)
	time.AfterFunc(c.abortWindow, func() { c.clearAbort(gen) })
	return nil
}

func (c *Client) clearAbort(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abortGen == gen {
		c.abortPending = false
	}
}

func (c *Client) record(entry core.AuditEntry, outcome string, opErr *terminal.OperationError, tx *terminal.TransactionResult) {
	if c.audit == nil {
		return
	}
	entry.Outcome = outcome
	entry.SerialNumber = c.gateway.SerialNumber()
	if opErr != nil {
		entry.Code = opErr.Code
		entry.Message = opErr.Message
	}
	if tx != nil {
		entry.TransactionCode = tx.TransactionCode
	}
	if err := c.audit.Record(entry); err != nil {
		c.logger.Warnf("Failed to write audit entry: %v", err)
	}
}

// Activate authenticates the terminal with code and keeps it in the session.
func (c *Client) Activate(ctx context.Context, code string) error {
	if code == "" {
		return terminal.NewOperationError(terminal.CodeInvalidArgument, "activation_code é obrigatório")
	}
	if err := c.gateway.Activate(ctx, code); err != nil {
		return asOperationError(err, terminal.CodeNotAuthenticated, "Falha na ativação do terminal")
	}
	c.session.SetActivationCode(code)
	c.logger.Infof("Terminal %s activated", c.gateway.SerialNumber())
	return nil
}

// Deactivate releases the terminal using the code held by the session.
func (c *Client) Deactivate(ctx context.Context) error {
	code, ok := c.session.ActivationCode()
	if !ok {
		return terminal.NewOperationError(terminal.CodeNotAuthenticated, "Terminal não está ativado")
	}
	if err := c.gateway.Deactivate(ctx, code); err != nil {
		return asOperationError(err, terminal.CodeGatewayFailure, "Falha na desativação do terminal")
	}
	c.session.Clear()
	return nil
}

func (c *Client) ReprintReceipt(ctx context.Context, receipt terminal.ReceiptCopy) error {
	if !receipt.Valid() {
		return terminal.NewOperationError(terminal.CodeInvalidArgument, "via de impressão desconhecida: "+string(receipt))
	}
	if err := c.gateway.ReprintReceipt(ctx, receipt); err != nil {
		return asOperationError(err, terminal.CodePrintFailed, "Falha na impressão")
	}
	return nil
}

func (c *Client) CalculateInstallments(amount int64, plan terminal.InstallmentPlan) ([]terminal.Installment, error) {
	if amount <= 0 {
		return nil, terminal.NewOperationError(terminal.CodeInvalidArgument, "amount deve ser maior que zero")
	}
	if !plan.Valid() {
		return nil, terminal.NewOperationError(terminal.CodeInvalidArgument, "installment_type desconhecido")
	}
	options, err := c.gateway.CalculateInstallments(amount, plan)
	if err != nil {
		return nil, asOperationError(err, terminal.CodeGatewayFailure, "Falha no cálculo de parcelas")
	}
	return options, nil
}

// LastApprovedTransaction asks the terminal for its last approved transaction.
func (c *Client) LastApprovedTransaction() (*terminal.TransactionResult, error) {
	res := c.gateway.LastApprovedTransaction()
	if res.Err == nil && res.Transaction == nil {
		return nil, terminal.NewOperationError(terminal.CodeNoTransaction, msgNoTransaction)
	}
	return res.Unwrap()
}

func (c *Client) Model() string { return c.gateway.Model() }

func (c *Client) SerialNumber() string { return c.gateway.SerialNumber() }

func (c *Client) IsAuthenticated() bool { return c.gateway.IsAuthenticated() }

// IsBusy reports whether this client or the terminal itself has an operation running.
func (c *Client) IsBusy() bool {
	c.mu.Lock()
	inFlight := c.inFlight
	c.mu.Unlock()
	return inFlight || c.gateway.IsBusy()
}

func (c *Client) HasCapability(capability terminal.Capability) bool {
	return c.gateway.HasCapability(capability)
}

func (c *Client) SubAcquirer() (*terminal.SubAcquirer, bool) { return c.gateway.SubAcquirer() }

func (c *Client) UserData() terminal.UserData { return c.gateway.UserData() }

func (c *Client) Snapshot() progress.Snapshot { return c.tracker.Snapshot() }

// Reset returns the reducer to IDLE. It refuses while a request is running, whatever
// substate the reducer shows, since later events of that request would be dropped.
func (c *Client) Reset() bool {
	c.mu.Lock()
	busy := c.inFlight
	c.mu.Unlock()
	if busy {
		c.logger.Warnf("Reset ignored: operation in progress (state %s)", c.tracker.Snapshot().State)
		return false
	}
	return c.tracker.Reset()
}

func (c *Client) Subscribe(buffer int) (<-chan progress.Snapshot, func()) {
	return c.tracker.Subscribe(buffer)
}

// AbortRequests counts abort calls that reached the gateway.
func (c *Client) AbortRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abortCalls
}

// Close releases the gateway.
func (c *Client) Close() error {
	return c.gateway.Close()
}

func asOperationError(err error, code, message string) *terminal.OperationError {
	if opErr, ok := terminal.AsOperationError(err); ok {
		return opErr
	}
	return terminal.WrapOperationError(code, message, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

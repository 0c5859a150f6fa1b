package simulated

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bridge-pos-payments/internal/terminal"
	"bridge-pos-payments/internal/vendors"
)

const VendorName = "simulated"

const (
	kindPayment = "VENDA"
	kindVoid    = "ESTORNO"

	defaultModel     = "SIM-A930"
	defaultSerial    = "SIM0000001"
	defaultStepDelay = 150 * time.Millisecond
)

// Settings is the vendor section of the terminal configuration.
type Settings struct {
	Model        string   `json:"model"`
	SerialNumber string   `json:"serial_number"`
	Capabilities []string `json:"capabilities"`

	// ScriptFile is a JSONL file of Steps replacing the built-in scripts.
	ScriptFile  string `json:"script_file"`
	StepDelayMS *int   `json:"step_delay_ms"`

	// ActivationCode, when set, is the only code Activate accepts.
	ActivationCode string `json:"activation_code"`
	// Preactivated skips the activation step.
	Preactivated bool `json:"preactivated"`
	// DeclineAmounts are amounts, in minor units, the simulated host refuses.
	DeclineAmounts []int64 `json:"decline_amounts"`
	// FailAbort makes Abort report a failure instead of cancelling.
	FailAbort bool `json:"fail_abort"`

	MaxInstallments int    `json:"max_installments"`
	MonthlyInterest string `json:"monthly_interest"`

	User        terminal.UserData     `json:"user_data"`
	SubAcquirer *terminal.SubAcquirer `json:"sub_acquirer"`
}

func init() {
	vendors.Register(VendorName, New)
}

// Gateway plays back scripted terminal interactions. It never touches a card reader;
// it exists so the bridge can run end to end without hardware.
type Gateway struct {
	logger   *zap.SugaredLogger
	settings Settings
	scripts  map[string][]Step
	delay    time.Duration
	interest decimal.Decimal
	caps     map[terminal.Capability]bool
	declines map[int64]bool
	ledger   *ledger

	mu            sync.Mutex
	authenticated bool
	busy          bool
	listener      terminal.EventListener
	abortCh       chan struct{}
	abortOnce     *sync.Once
}

func New(logger *zap.SugaredLogger, rawConfig json.RawMessage) (vendors.Gateway, error) {
	var s Settings
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &s); err != nil {
			return nil, fmt.Errorf("invalid simulated terminal settings: %w", err)
		}
	}
	return NewGateway(logger, s)
}

// NewGateway builds a simulated terminal from already decoded settings.
func NewGateway(logger *zap.SugaredLogger, s Settings) (*Gateway, error) {
	if s.Model == "" {
		s.Model = defaultModel
	}
	if s.SerialNumber == "" {
		s.SerialNumber = defaultSerial
	}
	if s.MaxInstallments <= 0 {
		s.MaxInstallments = defaultMaxInstallments
	}
	if s.MonthlyInterest == "" {
		s.MonthlyInterest = defaultMonthlyInterest
	}

	interest, err := decimal.NewFromString(s.MonthlyInterest)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly_interest %q: %w", s.MonthlyInterest, err)
	}

	caps := make(map[terminal.Capability]bool)
	if len(s.Capabilities) == 0 {
		for _, c := range []terminal.Capability{terminal.CapabilityMag, terminal.CapabilityICC, terminal.CapabilityPICC, terminal.CapabilityPED, terminal.CapabilityKeyboard, terminal.CapabilityPrinter} {
			caps[c] = true
		}
	}
	for _, name := range s.Capabilities {
		c, err := terminal.ParseCapability(name)
		if err != nil {
			return nil, err
		}
		caps[c] = true
	}

	scripts, err := LoadScripts(s.ScriptFile)
	if err != nil {
		return nil, err
	}

	delay := defaultStepDelay
	if s.StepDelayMS != nil {
		delay = time.Duration(*s.StepDelayMS) * time.Millisecond
	}

	declines := make(map[int64]bool, len(s.DeclineAmounts))
	for _, a := range s.DeclineAmounts {
		declines[a] = true
	}

	logger.Infof("Simulated terminal %s (%s) ready, %d capabilities, step delay %s", s.SerialNumber, s.Model, len(caps), delay)

	return &Gateway{
		logger:        logger,
		settings:      s,
		scripts:       scripts,
		delay:         delay,
		interest:      interest,
		caps:          caps,
		declines:      declines,
		ledger:        newLedger(s.SerialNumber),
		authenticated: s.Preactivated,
	}, nil
}

func (g *Gateway) Name() string {
	return VendorName
}

func (g *Gateway) Activate(ctx context.Context, activationCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.settings.ActivationCode != "" && activationCode != g.settings.ActivationCode {
		return terminal.NewOperationError(terminal.CodeNotAuthenticated, "Código de ativação inválido")
	}

	g.mu.Lock()
	g.authenticated = true
	g.mu.Unlock()

	g.logger.Infof("Simulated terminal %s activated", g.settings.SerialNumber)
	return nil
}

func (g *Gateway) Deactivate(ctx context.Context, activationCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.authenticated {
		return terminal.NewOperationError(terminal.CodeNotAuthenticated, "POS não autenticado!")
	}
	g.authenticated = false
	g.logger.Infof("Simulated terminal %s deactivated", g.settings.SerialNumber)
	return nil
}

func (g *Gateway) Pay(ctx context.Context, req terminal.PaymentRequest, listener terminal.EventListener) (terminal.Result, error) {
	scriptName := ScriptPayment
	if req.Type == terminal.PaymentPix {
		scriptName = ScriptPix
	}
	steps := g.scripts[scriptName]
	declinedByHost := g.declines[req.Amount]
	if declinedByHost {
		steps = declined(steps)
	}

	return g.run(ctx, scriptName, steps, listener, func() terminal.Result {
		if declinedByHost {
			return terminal.Failure(terminal.NewOperationError(terminal.CodeNotApproved, "Transação não autorizada"))
		}
		installments := req.Installments
		if installments == 0 {
			installments = 1
		}
		tx := g.ledger.record(req.Amount, req.Type, installments, req.UserReference, kindPayment)
		g.ledger.approve(tx)
		return terminal.Success(tx)
	})
}

func (g *Gateway) Void(ctx context.Context, req terminal.VoidRequest, listener terminal.EventListener) (terminal.Result, error) {
	req = req.Normalized()
	original, lookupErr := g.ledger.find(req.TransactionCode, req.TransactionID)

	steps := g.scripts[ScriptVoid]
	if lookupErr != nil {
		steps = declined(steps)
	}

	return g.run(ctx, ScriptVoid, steps, listener, func() terminal.Result {
		if lookupErr != nil {
			return terminal.Failure(lookupErr)
		}
		amount := original.OriginalAmount
		tx := g.ledger.record(amount, terminal.PaymentType(original.PaymentType), original.Installments, original.UserReference, kindVoid)
		g.ledger.approve(tx)
		g.ledger.markVoided(original.TransactionCode)
		return terminal.Success(tx)
	})
}

// run plays steps to listener and settles with the result of settle. Only one run is
// active at a time; an abort settles the run with ABORTED before the next step.
func (g *Gateway) run(ctx context.Context, scriptName string, steps []Step, listener terminal.EventListener, settle func() terminal.Result) (terminal.Result, error) {
	g.mu.Lock()
	if !g.authenticated {
		g.mu.Unlock()
		return terminal.Failure(terminal.NewOperationError(terminal.CodeNotAuthenticated, "POS não autenticado!")), nil
	}
	if g.busy {
		g.mu.Unlock()
		return terminal.Failure(terminal.NewOperationError(terminal.CodeOperationInProgress, "Terminal ocupado")), nil
	}
	abortCh := make(chan struct{})
	g.busy = true
	g.listener = listener
	g.abortCh = abortCh
	g.abortOnce = &sync.Once{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.busy = false
		g.listener = nil
		g.abortCh = nil
		g.abortOnce = nil
		g.mu.Unlock()
	}()

	g.logger.Debugf("Simulated terminal playing %s script, %d steps", scriptName, len(steps))

	for _, step := range steps {
		timer := time.NewTimer(step.delay(g.delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return terminal.Result{}, ctx.Err()
		case <-abortCh:
			timer.Stop()
			g.logger.Infof("Simulated terminal aborted during %s", scriptName)
			return terminal.Failure(terminal.NewOperationError(terminal.CodeAborted, "Operação cancelada")), nil
		case <-timer.C:
		}
		g.emit(step)
	}

	return settle(), nil
}

func (g *Gateway) emit(step Step) {
	g.mu.Lock()
	listener := g.listener
	g.mu.Unlock()

	if listener != nil {
		listener.OnEvent(step.Message, step.Code)
	}
}

func (g *Gateway) Abort() *terminal.OperationError {
	if g.settings.FailAbort {
		return terminal.NewOperationError(terminal.CodeAbortFailed, "Falha ao cancelar operação")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.abortCh == nil {
		g.logger.Debugf("Abort requested with no operation in flight")
		return nil
	}
	ch := g.abortCh
	g.abortOnce.Do(func() { close(ch) })
	return nil
}

func (g *Gateway) LastApprovedTransaction() terminal.Result {
	tx, ok := g.ledger.last()
	if !ok {
		return terminal.Failure(terminal.NewOperationError(terminal.CodeNoTransaction, "Nenhuma transação aprovada"))
	}
	return terminal.Success(tx)
}

func (g *Gateway) ReprintReceipt(ctx context.Context, receipt terminal.ReceiptCopy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !g.HasCapability(terminal.CapabilityPrinter) {
		return terminal.NewOperationError(terminal.CodePrintFailed, "Terminal sem impressora")
	}
	tx, ok := g.ledger.last()
	if !ok {
		return terminal.NewOperationError(terminal.CodeNoTransaction, "Nenhuma transação para reimprimir")
	}
	g.logger.Infof("Simulated terminal reprinting %s receipt for %s", receipt, tx.TransactionCode)
	return nil
}

func (g *Gateway) CalculateInstallments(amount int64, plan terminal.InstallmentPlan) ([]terminal.Installment, error) {
	return installmentsFor(amount, plan, g.settings.MaxInstallments, g.interest)
}

func (g *Gateway) Model() string {
	return g.settings.Model
}

func (g *Gateway) SerialNumber() string {
	return g.settings.SerialNumber
}

func (g *Gateway) IsAuthenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

func (g *Gateway) IsBusy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

func (g *Gateway) HasCapability(c terminal.Capability) bool {
	return g.caps[c]
}

func (g *Gateway) SubAcquirer() (*terminal.SubAcquirer, bool) {
	if g.settings.SubAcquirer == nil {
		return nil, false
	}
	sa := *g.settings.SubAcquirer
	return &sa, true
}

func (g *Gateway) UserData() terminal.UserData {
	return g.settings.User
}

func (g *Gateway) Close() error {
	_ = g.Abort()
	g.logger.Infof("Simulated terminal %s closed", g.settings.SerialNumber)
	return nil
}

package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bridge-pos-payments/internal/core"
	"bridge-pos-payments/internal/progress"
	"bridge-pos-payments/internal/terminal"
)

// fakeGateway plays a fixed list of events and settles with a canned outcome.
type fakeGateway struct {
	mu sync.Mutex

	events   []terminal.ProgressEvent
	// trailing events are emitted after release.
	trailing []terminal.ProgressEvent
	result   terminal.Result
	err      error
	abortErr *terminal.OperationError
	// release, when set, blocks Pay/Void until it is closed.
	release chan struct{}
	started chan struct{}

	payCalls   int
	voidCalls  int
	abortCalls int
	lastPay    terminal.PaymentRequest
	lastVoid   terminal.VoidRequest
	last       terminal.Result
	activated  string
}

func (f *fakeGateway) run(listener terminal.EventListener) (terminal.Result, error) {
	for _, ev := range f.events {
		listener.OnEvent(ev.Message, ev.Code)
	}
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	for _, ev := range f.trailing {
		listener.OnEvent(ev.Message, ev.Code)
	}
	return f.result, f.err
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) Activate(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code == "bad" {
		return errors.New("rejected by host")
	}
	f.activated = code
	return nil
}

func (f *fakeGateway) Deactivate(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = ""
	return nil
}

func (f *fakeGateway) Pay(ctx context.Context, req terminal.PaymentRequest, listener terminal.EventListener) (terminal.Result, error) {
	f.mu.Lock()
	f.payCalls++
	f.lastPay = req
	f.mu.Unlock()
	return f.run(listener)
}

func (f *fakeGateway) Void(ctx context.Context, req terminal.VoidRequest, listener terminal.EventListener) (terminal.Result, error) {
	f.mu.Lock()
	f.voidCalls++
	f.lastVoid = req
	f.mu.Unlock()
	return f.run(listener)
}

func (f *fakeGateway) Abort() *terminal.OperationError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortCalls++
	return f.abortErr
}

func (f *fakeGateway) AbortCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abortCalls
}

func (f *fakeGateway) LastApprovedTransaction() terminal.Result { return f.last }

func (f *fakeGateway) ReprintReceipt(ctx context.Context, receipt terminal.ReceiptCopy) error {
	return nil
}

func (f *fakeGateway) CalculateInstallments(amount int64, plan terminal.InstallmentPlan) ([]terminal.Installment, error) {
	return []terminal.Installment{{Quantity: 1, Amount: terminal.FormatAmount(amount), Total: terminal.FormatAmount(amount)}}, nil
}

func (f *fakeGateway) Model() string { return "FAKE-1" }
func (f *fakeGateway) SerialNumber() string { return "SN-FAKE" }
func (f *fakeGateway) IsAuthenticated() bool { return true }
func (f *fakeGateway) IsBusy() bool { return false }
func (f *fakeGateway) HasCapability(c terminal.Capability) bool { return c == terminal.CapabilityPrinter }
func (f *fakeGateway) SubAcquirer() (*terminal.SubAcquirer, bool) { return nil, false }
func (f *fakeGateway) UserData() terminal.UserData { return terminal.UserData{CompanyName: "Loja"} }
func (f *fakeGateway) Close() error { return nil }

type memoryStore struct {
	saved []*terminal.TransactionResult
}

func (m *memoryStore) SaveTransaction(operation string, tx *terminal.TransactionResult) error {
	m.saved = append(m.saved, tx)
	return nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func (m *memoryAudit) Record(entry core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func newClient(gw *fakeGateway, opts Options) *Client {
	return NewClient(gw, NewSession(""), zap.NewNop().Sugar(), opts)
}

func approvedTx() *terminal.TransactionResult {
	return &terminal.TransactionResult{
		TransactionCode: "CODE123",
		TransactionID:   "ID456",
		Amount:          "20.00",
		PaymentType:     int(terminal.PaymentPix),
		Installments:    1,
	}
}

func pixPayment() terminal.PaymentRequest {
	return terminal.PaymentRequest{
		Amount:          2000,
		Type:            terminal.PaymentPix,
		InstallmentPlan: terminal.InstallmentNone,
		Installments:    1,
	}
}

func TestRequestPayment_PixApproved(t *testing.T) {
	tx := approvedTx()
	gw := &fakeGateway{
		events: []terminal.ProgressEvent{{Code: terminal.EventApproved}},
		result: terminal.Success(tx),
	}
	store := &memoryStore{}
	audit := &memoryAudit{}
	client := newClient(gw, Options{Store: store, Audit: audit})

	got, err := client.RequestPayment(context.Background(), pixPayment())
	require.NoError(t, err)
	assert.Same(t, tx, got)
	assert.Equal(t, *approvedTx(), *got)

	snap := client.Snapshot()
	assert.Equal(t, progress.StateSuccess, snap.State)
	assert.True(t, snap.IsSuccess())
	assert.False(t, snap.IsError())

	require.Len(t, store.saved, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, core.OutcomeApproved, audit.entries[0].Outcome)
	assert.Equal(t, "CODE123", audit.entries[0].TransactionCode)
	assert.Equal(t, "SN-FAKE", audit.entries[0].SerialNumber)
}

func TestRequestPayment_InvalidNeverReachesGateway(t *testing.T) {
	valid := pixPayment()
	cases := []struct {
		name   string
		mutate func(r *terminal.PaymentRequest)
	}{
		{"zero amount", func(r *terminal.PaymentRequest) { r.Amount = 0 }},
		{"negative amount", func(r *terminal.PaymentRequest) { r.Amount = -10 }},
		{"no installments", func(r *terminal.PaymentRequest) { r.Installments = 0 }},
		{"unknown type", func(r *terminal.PaymentRequest) { r.Type = 4 }},
		{"unknown plan", func(r *terminal.PaymentRequest) { r.InstallmentPlan = 7 }},
		{"reference with symbols", func(r *terminal.PaymentRequest) { r.UserReference = "ref-01" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{result: terminal.Success(approvedTx())}
			client := newClient(gw, Options{})

			req := valid
			tc.mutate(&req)
			_, err := client.RequestPayment(context.Background(), req)

			require.Error(t, err)
			assert.True(t, terminal.IsCode(err, terminal.CodeInvalidArgument))
			assert.Zero(t, gw.payCalls)

			snap := client.Snapshot()
			assert.Equal(t, progress.StateError, snap.State)
			assert.NotEmpty(t, snap.Message)
		})
	}
}

func TestRequestVoid_EmptyCodeRejected(t *testing.T) {
	gw := &fakeGateway{result: terminal.Success(approvedTx())}
	client := newClient(gw, Options{})

	_, err := client.RequestVoid(context.Background(), terminal.VoidRequest{TransactionCode: "", TransactionID: "X"})
	require.Error(t, err)
	assert.True(t, terminal.IsCode(err, terminal.CodeInvalidArgument))
	assert.Zero(t, gw.voidCalls)

	_, err = client.RequestVoid(context.Background(), terminal.VoidRequest{TransactionCode: "A", TransactionID: "   "})
	assert.True(t, terminal.IsCode(err, terminal.CodeInvalidArgument))

	_, err = client.RequestVoid(context.Background(), terminal.VoidRequest{TransactionCode: "A", TransactionID: "B", Kind: 9})
	assert.True(t, terminal.IsCode(err, terminal.CodeInvalidArgument))
	assert.Zero(t, gw.voidCalls)
}

func TestRequestVoid_NormalizesRequest(t *testing.T) {
	gw := &fakeGateway{
		events: []terminal.ProgressEvent{{Code: terminal.EventAuthorizing}, {Code: terminal.EventApproved}},
		result: terminal.Success(approvedTx()),
	}
	client := newClient(gw, Options{})

	_, err := client.RequestVoid(context.Background(), terminal.VoidRequest{TransactionCode: " CODE123 ", TransactionID: "ID456"})
	require.NoError(t, err)
	assert.Equal(t, "CODE123", gw.lastVoid.TransactionCode)
	assert.Equal(t, terminal.VoidPayment, gw.lastVoid.Kind)

	snap := client.Snapshot()
	assert.Equal(t, progress.OperationVoid, snap.Operation)
	assert.Equal(t, progress.VoidCatalog().Success, snap.Message)
}

func TestRequestPayment_GatewayReportsError(t *testing.T) {
	gw := &fakeGateway{
		events: []terminal.ProgressEvent{{Code: terminal.EventNotApproved}},
		result: terminal.Failure(terminal.NewOperationError(terminal.CodeNotApproved, "Transação negada")),
	}
	client := newClient(gw, Options{})

	_, err := client.RequestPayment(context.Background(), pixPayment())
	require.Error(t, err)
	assert.True(t, terminal.IsCode(err, terminal.CodeNotApproved))

	snap := client.Snapshot()
	assert.Equal(t, progress.StateError, snap.State)
	assert.Equal(t, "Transação negada", snap.Message)
}

func TestRequestPayment_GatewayException(t *testing.T) {
	cause := errors.New("usb link lost")
	gw := &fakeGateway{err: cause}
	client := newClient(gw, Options{})

	_, err := client.RequestPayment(context.Background(), pixPayment())
	require.Error(t, err)
	assert.True(t, terminal.IsCode(err, terminal.CodeGatewayFailure))
	assert.ErrorIs(t, err, cause)

	snap := client.Snapshot()
	assert.Equal(t, progress.StateError, snap.State)
	assert.NotEmpty(t, snap.Message)
}

func TestRequestPayment_EmptyResultIsError(t *testing.T) {
	gw := &fakeGateway{}
	client := newClient(gw, Options{})

	_, err := client.RequestPayment(context.Background(), pixPayment())
	assert.True(t, terminal.IsCode(err, terminal.CodeGatewayFailure))
	assert.True(t, client.Snapshot().IsError())
}

func TestRequestPayment_ConcurrentRejected(t *testing.T) {
	gw := &fakeGateway{
		events:  []terminal.ProgressEvent{{Code: terminal.EventWaitingCard}},
		result:  terminal.Success(approvedTx()),
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	client := newClient(gw, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := client.RequestPayment(context.Background(), pixPayment())
		done <- err
	}()
	<-gw.started

	_, err := client.RequestPayment(context.Background(), pixPayment())
	assert.True(t, terminal.IsCode(err, terminal.CodeOperationInProgress))
	assert.Equal(t, progress.StateWaitingCard, client.Snapshot().State)
	assert.True(t, client.IsBusy())
	assert.False(t, client.Reset())

	close(gw.release)
	require.NoError(t, <-done)
	assert.True(t, client.Reset())
	assert.Equal(t, progress.StateIdle, client.Snapshot().State)
}

func TestAbort_DebouncedUntilWindowElapses(t *testing.T) {
	gw := &fakeGateway{}
	client := newClient(gw, Options{AbortWindow: 50 * time.Millisecond})

	require.NoError(t, client.AbortCurrentOperation())
	require.NoError(t, client.AbortCurrentOperation())
	assert.Equal(t, 1, gw.AbortCalls())

	require.Eventually(t, func() bool {
		_ = client.AbortCurrentOperation()
		return gw.AbortCalls() == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, client.AbortRequests())
}

func TestAbort_GuardClearsWhenOperationSettles(t *testing.T) {
	gw := &fakeGateway{
		result:  terminal.Failure(terminal.NewOperationError(terminal.CodeAborted, "Operação cancelada")),
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	client := newClient(gw, Options{AbortWindow: time.Hour})

	done := make(chan error, 1)
	go func() {
		_, err := client.RequestPayment(context.Background(), pixPayment())
		done <- err
	}()
	<-gw.started

	require.NoError(t, client.AbortCurrentOperation())
	require.NoError(t, client.AbortCurrentOperation())
	assert.Equal(t, 1, gw.AbortCalls())
	assert.True(t, client.Snapshot().IsProcessing())

	close(gw.release)
	err := <-done
	assert.True(t, terminal.IsCode(err, terminal.CodeAborted))
	assert.True(t, client.Snapshot().IsError())

	require.NoError(t, client.AbortCurrentOperation())
	assert.Equal(t, 2, gw.AbortCalls())
}

func TestAbort_NewOperationStartsWithCleanGuard(t *testing.T) {
	gw := &fakeGateway{
		result:  terminal.Failure(terminal.NewOperationError(terminal.CodeAborted, "Operação cancelada")),
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	client := newClient(gw, Options{AbortWindow: time.Hour})

	// an abort while idle arms the guard for the whole window
	require.NoError(t, client.AbortCurrentOperation())
	assert.Equal(t, 1, gw.AbortCalls())

	done := make(chan error, 1)
	go func() {
		_, err := client.RequestPayment(context.Background(), pixPayment())
		done <- err
	}()
	<-gw.started

	require.NoError(t, client.AbortCurrentOperation())
	assert.Equal(t, 2, gw.AbortCalls())

	close(gw.release)
	assert.True(t, terminal.IsCode(<-done, terminal.CodeAborted))
}

func TestReset_RefusedWhileRequestRunsPastApproval(t *testing.T) {
	gw := &fakeGateway{
		events:   []terminal.ProgressEvent{{Code: terminal.EventApproved}},
		trailing: []terminal.ProgressEvent{{Code: terminal.EventWaitingRemoveCard}},
		result:   terminal.Success(approvedTx()),
		release:  make(chan struct{}),
		started:  make(chan struct{}),
	}
	client := newClient(gw, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := client.RequestPayment(context.Background(), pixPayment())
		done <- err
	}()
	<-gw.started

	assert.Equal(t, progress.StateApproved, client.Snapshot().State)
	assert.False(t, client.Snapshot().IsProcessing())
	assert.False(t, client.Reset())
	assert.Equal(t, progress.StateApproved, client.Snapshot().State)

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, progress.StateSuccess, client.Snapshot().State)
	assert.Equal(t, terminal.EventWaitingRemoveCard, client.Snapshot().LastEvent)

	assert.True(t, client.Reset())
	assert.Equal(t, progress.StateIdle, client.Snapshot().State)
}

func TestAbort_FailureIsReturned(t *testing.T) {
	gw := &fakeGateway{abortErr: &terminal.OperationError{Message: "terminal recusou"}}
	client := newClient(gw, Options{})

	err := client.AbortCurrentOperation()
	require.Error(t, err)
	assert.True(t, terminal.IsCode(err, terminal.CodeAbortFailed))

	// a failed abort does not hold the guard
	_ = client.AbortCurrentOperation()
	assert.Equal(t, 2, gw.AbortCalls())
}

func TestKeystrokesResetAcrossOperations(t *testing.T) {
	gw := &fakeGateway{
		events: []terminal.ProgressEvent{
			{Code: terminal.EventDigitPassword},
			{Code: terminal.EventDigitPassword},
			{Code: terminal.EventDigitPassword},
		},
		result: terminal.Success(approvedTx()),
	}
	client := newClient(gw, Options{})

	_, err := client.RequestPayment(context.Background(), pixPayment())
	require.NoError(t, err)
	assert.Equal(t, 3, client.Snapshot().Keystrokes)

	gw.events = []terminal.ProgressEvent{{Code: terminal.EventDigitPassword}}
	updates, cancel := client.Subscribe(16)
	defer cancel()

	_, err = client.RequestPayment(context.Background(), pixPayment())
	require.NoError(t, err)

	var digit progress.Snapshot
	for snap := range updates {
		if snap.State == progress.StateDigitPassword {
			digit = snap
		}
		if snap.State == progress.StateSuccess {
			break
		}
	}
	assert.Equal(t, 1, digit.Keystrokes)
	assert.Equal(t, "Senha: *", digit.Message)
}

func TestLastApprovedTransaction(t *testing.T) {
	gw := &fakeGateway{}
	client := newClient(gw, Options{})

	_, err := client.LastApprovedTransaction()
	assert.True(t, terminal.IsCode(err, terminal.CodeNoTransaction))

	gw.last = terminal.Failure(terminal.NewOperationError(terminal.CodeNotAuthenticated, "POS não autenticado!"))
	_, err = client.LastApprovedTransaction()
	assert.True(t, terminal.IsCode(err, terminal.CodeNotAuthenticated))

	gw.last = terminal.Success(approvedTx())
	tx, err := client.LastApprovedTransaction()
	require.NoError(t, err)
	assert.Equal(t, "CODE123", tx.TransactionCode)
}

func TestActivateAndDeactivate(t *testing.T) {
	gw := &fakeGateway{}
	session := NewSession("")
	client := NewClient(gw, session, zap.NewNop().Sugar(), Options{})

	err := client.Activate(context.Background(), "bad")
	assert.True(t, terminal.IsCode(err, terminal.CodeNotAuthenticated))
	_, ok := session.ActivationCode()
	assert.False(t, ok)

	require.NoError(t, client.Activate(context.Background(), "403938"))
	code, ok := session.ActivationCode()
	assert.True(t, ok)
	assert.Equal(t, "403938", code)

	require.NoError(t, client.Deactivate(context.Background()))
	_, ok = session.ActivationCode()
	assert.False(t, ok)

	err = client.Deactivate(context.Background())
	assert.True(t, terminal.IsCode(err, terminal.CodeNotAuthenticated))
}

func TestAccessorsAndHelpers(t *testing.T) {
	gw := &fakeGateway{}
	client := newClient(gw, Options{})

	assert.Equal(t, "FAKE-1", client.Model())
	assert.Equal(t, "SN-FAKE", client.SerialNumber())
	assert.True(t, client.HasCapability(terminal.CapabilityPrinter))
	assert.False(t, client.HasCapability(terminal.CapabilityPICC))
	assert.Equal(t, "Loja", client.UserData().CompanyName)
	_, ok := client.SubAcquirer()
	assert.False(t, ok)

	err := client.ReprintReceipt(context.Background(), terminal.ReceiptCopy("both"))
	assert.True(t, terminal.IsCode(err, terminal.CodeInvalidArgument))
	assert.NoError(t, client.ReprintReceipt(context.Background(), terminal.ReceiptCustomer))

	_, err = client.CalculateInstallments(0, terminal.InstallmentNone)
	assert.True(t, terminal.IsCode(err, terminal.CodeInvalidArgument))
	options, err := client.CalculateInstallments(1000, terminal.InstallmentNone)
	require.NoError(t, err)
	assert.Equal(t, "10.00", options[0].Total)
}

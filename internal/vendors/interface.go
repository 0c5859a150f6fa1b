package vendors

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"bridge-pos-payments/internal/terminal"
)

// Gateway is a payment terminal SDK. Pay and Void block until the terminal settles and
// report progress to the listener passed in; the gateway keeps only that one listener
// and drops it when the call returns.
//
// A returned error means the gateway itself failed (communication, crash). Failures the
// terminal reports come back as an error-shaped Result.
type Gateway interface {
	Name() string

	Activate(ctx context.Context, activationCode string) error
	Deactivate(ctx context.Context, activationCode string) error

	Pay(ctx context.Context, req terminal.PaymentRequest, listener terminal.EventListener) (terminal.Result, error)
	Void(ctx context.Context, req terminal.VoidRequest, listener terminal.EventListener) (terminal.Result, error)
	// Abort asks the terminal to stop the operation in flight. It does not wait for it.
	Abort() *terminal.OperationError

	LastApprovedTransaction() terminal.Result
	ReprintReceipt(ctx context.Context, receipt terminal.ReceiptCopy) error
	CalculateInstallments(amount int64, plan terminal.InstallmentPlan) ([]terminal.Installment, error)

	Model() string
	SerialNumber() string
	IsAuthenticated() bool
	IsBusy() bool
	HasCapability(c terminal.Capability) bool
	SubAcquirer() (*terminal.SubAcquirer, bool)
	UserData() terminal.UserData

	Close() error
}

// NewFunc is a function signature for creating a new gateway instance.
// It will be passed the vendor-specific section of the terminal settings.
type NewFunc func(logger *zap.SugaredLogger, vendorSettings json.RawMessage) (Gateway, error)

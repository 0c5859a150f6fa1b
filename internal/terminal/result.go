package terminal

import (
	"errors"
	"fmt"
)

// Error codes carried by OperationError.
const (
	CodeInvalidArgument     = "INVALID_ARG"
	CodeOperationInProgress = "OPERATION_IN_PROGRESS"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeGatewayFailure      = "GATEWAY_FAILURE"
	CodeAborted             = "ABORTED"
	CodeAbortFailed         = "ABORT_FAILED"
	CodeNoTransaction       = "NO_TRANSACTION"
	CodeNotApproved         = "NOT_APPROVED"
	CodePrintFailed         = "PRINT_FAILED"
	CodeNotConfigured       = "NOT_CONFIGURED"
)

// OperationError is the error shape surfaced for every failed terminal operation.
type OperationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func NewOperationError(code, message string) *OperationError {
	return &OperationError{Code: code, Message: message}
}

// WrapOperationError builds an OperationError that keeps err as its cause.
func WrapOperationError(code, message string, err error) *OperationError {
	return &OperationError{Code: code, Message: message, cause: err}
}

func (e *OperationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OperationError) Unwrap() error {
	return e.cause
}

// AsOperationError extracts an OperationError from err's chain.
func AsOperationError(err error) (*OperationError, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an OperationError with the given code.
func IsCode(err error, code string) bool {
	opErr, ok := AsOperationError(err)
	return ok && opErr.Code == code
}

// CardIssuerNationality of the card brand/issuer.
type CardIssuerNationality string

const (
	NationalityUnavailable   CardIssuerNationality = "UNAVAILABLE"
	NationalityDomestic      CardIssuerNationality = "DOMESTIC"
	NationalityInternational CardIssuerNationality = "INTERNATIONAL"
)

// TransactionResult is the record returned by the terminal for an approved operation.
// It is handed to the caller unaltered.
type TransactionResult struct {
	TransactionCode        string                `json:"transaction_code,omitempty"`
	TransactionID          string                `json:"transaction_id,omitempty"`
	Date                   string                `json:"date,omitempty"`
	Time                   string                `json:"time,omitempty"`
	HostNSU                string                `json:"host_nsu,omitempty"`
	CardBrand              string                `json:"card_brand,omitempty"`
	Bin                    string                `json:"bin,omitempty"`
	Holder                 string                `json:"holder,omitempty"`
	UserReference          string                `json:"user_reference,omitempty"`
	TerminalSerialNumber   string                `json:"terminal_serial_number,omitempty"`
	Amount                 string                `json:"amount,omitempty"`
	AvailableBalance       string                `json:"available_balance,omitempty"`
	CardApplication        string                `json:"card_application,omitempty"`
	Label                  string                `json:"label,omitempty"`
	HolderName             string                `json:"holder_name,omitempty"`
	ExtendedHolderName     string                `json:"extended_holder_name,omitempty"`
	CardIssuerNationality  CardIssuerNationality `json:"card_issuer_nationality,omitempty"`
	ReaderModel            string                `json:"reader_model,omitempty"`
	NSU                    string                `json:"nsu,omitempty"`
	AutoCode               string                `json:"auto_code,omitempty"`
	Installments           int                   `json:"installments,omitempty"`
	OriginalAmount         int64                 `json:"original_amount,omitempty"`
	BuyerName              string                `json:"buyer_name,omitempty"`
	PaymentType            int                   `json:"payment_type,omitempty"`
	TypeTransaction        string                `json:"type_transaction,omitempty"`
	AppIdentification      string                `json:"app_identification,omitempty"`
	CardHash               string                `json:"card_hash,omitempty"`
	PreAutoDueDate         string                `json:"pre_auto_due_date,omitempty"`
	PreAutoOriginalAmount  string                `json:"pre_auto_original_amount,omitempty"`
	UserRegistered         int                   `json:"user_registered,omitempty"`
	AccumulatedValue       string                `json:"accumulated_value,omitempty"`
	ConsumerIdentification string                `json:"consumer_identification,omitempty"`
	CurrentBalance         string                `json:"current_balance,omitempty"`
	ConsumerPhoneNumber    string                `json:"consumer_phone_number,omitempty"`
	ClubePagScreensIDs     string                `json:"clube_pag_screens_ids,omitempty"`
	PartialPayAuthorized   string                `json:"partial_pay_partially_authorized_amount,omitempty"`
	PartialPayRemaining    string                `json:"partial_pay_remaining_amount,omitempty"`
	PixTxIDCode            string                `json:"pix_tx_id_code,omitempty"`
}

// Result is what the gateway settles an operation with: exactly one of Transaction or Err is set.
type Result struct {
	Transaction *TransactionResult
	Err         *OperationError
}

func Success(tx *TransactionResult) Result {
	return Result{Transaction: tx}
}

func Failure(err *OperationError) Result {
	return Result{Err: err}
}

// IsError reports whether the result is error-shaped. A result carrying neither case
// counts as an error.
func (r Result) IsError() bool {
	return r.Err != nil || r.Transaction == nil
}

// Unwrap converts the union to Go's value-or-error convention.
func (r Result) Unwrap() (*TransactionResult, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Transaction == nil {
		return nil, NewOperationError(CodeGatewayFailure, "resultado vazio do terminal")
	}
	return r.Transaction, nil
}

package terminal

import (
	"fmt"
	"regexp"
	"strings"
)

var userReferencePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// PaymentRequest describes a sale to be charged on the terminal.
type PaymentRequest struct {
	// Amount in minor currency units (centavos): 1000 is R$10,00.
	Amount          int64           `json:"amount"`
	Type            PaymentType     `json:"type"`
	InstallmentPlan InstallmentPlan `json:"installment_type"`
	Installments    int             `json:"installments"`
	// PrintReceipt defaults to true when nil.
	PrintReceipt  *bool  `json:"print_receipt,omitempty"`
	UserReference string `json:"user_reference,omitempty"`
}

// ShouldPrint resolves the receipt flag with its default.
func (r PaymentRequest) ShouldPrint() bool {
	if r.PrintReceipt == nil {
		return true
	}
	return *r.PrintReceipt
}

// Validate checks the request in a fixed order and reports the first violation as an
// INVALID_ARG OperationError.
func (r PaymentRequest) Validate() *OperationError {
	switch {
	case r.Amount <= 0:
		return invalidArg("amount deve ser maior que zero, recebido %d", r.Amount)
	case r.Installments < 1:
		return invalidArg("installments deve ser no mínimo 1, recebido %d", r.Installments)
	case !r.Type.Valid():
		return invalidArg("type de pagamento desconhecido: %d", int(r.Type))
	case !r.InstallmentPlan.Valid():
		return invalidArg("installment_type desconhecido: %d", int(r.InstallmentPlan))
	case r.UserReference != "" && !userReferencePattern.MatchString(r.UserReference):
		return invalidArg("user_reference deve conter apenas letras e números")
	}
	return nil
}

// VoidRequest identifies a previously approved transaction to cancel.
type VoidRequest struct {
	TransactionCode string   `json:"transaction_code"`
	TransactionID   string   `json:"transaction_id"`
	PrintReceipt    *bool    `json:"print_receipt,omitempty"`
	Kind            VoidKind `json:"void_type,omitempty"`
}

// EffectiveKind resolves the void kind with its PAYMENT default.
func (r VoidRequest) EffectiveKind() VoidKind {
	if r.Kind == 0 {
		return VoidPayment
	}
	return r.Kind
}

func (r VoidRequest) ShouldPrint() bool {
	return r.PrintReceipt != nil && *r.PrintReceipt
}

func (r VoidRequest) Validate() *OperationError {
	switch {
	case strings.TrimSpace(r.TransactionCode) == "":
		return invalidArg("transaction_code é obrigatório")
	case strings.TrimSpace(r.TransactionID) == "":
		return invalidArg("transaction_id é obrigatório")
	case r.Kind != 0 && !r.Kind.Valid():
		return invalidArg("void_type desconhecido: %d", int(r.Kind))
	}
	return nil
}

// Normalized returns a copy with trimmed identifiers and the default kind filled in.
func (r VoidRequest) Normalized() VoidRequest {
	r.TransactionCode = strings.TrimSpace(r.TransactionCode)
	r.TransactionID = strings.TrimSpace(r.TransactionID)
	r.Kind = r.EffectiveKind()
	return r
}

func invalidArg(format string, args ...interface{}) *OperationError {
	return NewOperationError(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

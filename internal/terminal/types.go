package terminal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PaymentType identifies the payment method. Values follow the vendor SDK numbering.
type PaymentType int

const (
	PaymentCredit  PaymentType = 1
	PaymentDebit   PaymentType = 2
	PaymentVoucher PaymentType = 3
	PaymentPix     PaymentType = 5
)

var paymentTypeNames = map[PaymentType]string{
	PaymentCredit:  "CREDIT",
	PaymentDebit:   "DEBIT",
	PaymentVoucher: "VOUCHER",
	PaymentPix:     "PIX",
}

// Valid reports whether t is a recognized payment type.
func (t PaymentType) Valid() bool {
	_, ok := paymentTypeNames[t]
	return ok
}

func (t PaymentType) String() string {
	if name, ok := paymentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PaymentType(%d)", int(t))
}

// UnmarshalJSON accepts either the numeric vendor code or the name.
func (t *PaymentType) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, paymentTypeNames)
	if err != nil {
		return fmt.Errorf("payment type: %w", err)
	}
	*t = PaymentType(v)
	return nil
}

// InstallmentPlan says whether a payment is split and who bears the financing cost.
type InstallmentPlan int

const (
	InstallmentNone         InstallmentPlan = 1
	InstallmentSellerFunded InstallmentPlan = 2
	InstallmentBuyerFunded  InstallmentPlan = 3
)

var installmentPlanNames = map[InstallmentPlan]string{
	InstallmentNone:         "NONE",
	InstallmentSellerFunded: "SELLER_FUNDED",
	InstallmentBuyerFunded:  "BUYER_FUNDED",
}

func (p InstallmentPlan) Valid() bool {
	_, ok := installmentPlanNames[p]
	return ok
}

func (p InstallmentPlan) String() string {
	if name, ok := installmentPlanNames[p]; ok {
		return name
	}
	return fmt.Sprintf("InstallmentPlan(%d)", int(p))
}

func (p *InstallmentPlan) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, installmentPlanNames)
	if err != nil {
		return fmt.Errorf("installment plan: %w", err)
	}
	*p = InstallmentPlan(v)
	return nil
}

// VoidKind selects what a void cancels: a captured payment or a pending PIX QR code.
type VoidKind int

const (
	VoidPayment VoidKind = 1
	VoidQRCode  VoidKind = 2
)

var voidKindNames = map[VoidKind]string{
	VoidPayment: "PAYMENT",
	VoidQRCode:  "QRCODE",
}

func (k VoidKind) Valid() bool {
	_, ok := voidKindNames[k]
	return ok
}

func (k VoidKind) String() string {
	if name, ok := voidKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("VoidKind(%d)", int(k))
}

func (k *VoidKind) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, voidKindNames)
	if err != nil {
		return fmt.Errorf("void kind: %w", err)
	}
	*k = VoidKind(v)
	return nil
}

// decodeEnum maps a JSON number or name onto an enum value. Unknown numbers are kept
// as-is so request validation can report them; unknown names are rejected here.
func decodeEnum[T ~int](data []byte, names map[T]string) (int, error) {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("expected number or string, got %s", string(data))
	}
	for v, name := range names {
		if strings.EqualFold(name, s) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", s)
}

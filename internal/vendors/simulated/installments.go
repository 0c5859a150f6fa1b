package simulated

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bridge-pos-payments/internal/terminal"
)

const (
	defaultMaxInstallments = 12
	defaultMonthlyInterest = "0.0299"
	// minimumInstallment is the smallest share the acquirer accepts, in minor units.
	minimumInstallment = 500
)

// installmentsFor lists the split options the simulated acquirer offers for amount.
// Seller-funded plans divide the amount evenly; buyer-funded plans add compound
// interest using the fixed-payment formula.
func installmentsFor(amount int64, plan terminal.InstallmentPlan, maxQty int, monthlyRate decimal.Decimal) ([]terminal.Installment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}
	if !plan.Valid() {
		return nil, fmt.Errorf("unknown installment plan %d", int(plan))
	}

	total := terminal.AmountDecimal(amount)
	if plan == terminal.InstallmentNone {
		return []terminal.Installment{{
			Quantity: 1,
			Amount:   total.StringFixed(2),
			Total:    total.StringFixed(2),
		}}, nil
	}

	options := make([]terminal.Installment, 0, maxQty)
	for n := 2; n <= maxQty; n++ {
		qty := decimal.NewFromInt(int64(n))

		var share decimal.Decimal
		if plan == terminal.InstallmentSellerFunded || monthlyRate.IsZero() {
			share = total.DivRound(qty, 2)
		} else {
			// PMT = A * i * (1+i)^n / ((1+i)^n - 1)
			factor := decimal.NewFromInt(1).Add(monthlyRate).Pow(qty)
			share = total.Mul(monthlyRate).Mul(factor).DivRound(factor.Sub(decimal.NewFromInt(1)), 2)
		}

		if share.LessThan(terminal.AmountDecimal(minimumInstallment)) {
			break
		}

		planTotal := total
		if plan == terminal.InstallmentBuyerFunded {
			planTotal = share.Mul(qty)
		}
		options = append(options, terminal.Installment{
			Quantity: n,
			Amount:   share.StringFixed(2),
			Total:    planTotal.StringFixed(2),
		})
	}
	return options, nil
}

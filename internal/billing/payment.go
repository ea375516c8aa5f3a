package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

type PaymentOutcome struct {
	Mode       string
	Splits     []domain.SplitPayment
	Status     string
	PaidAmount decimal.Decimal
}

func isSingleMode(mode string) bool {
	switch mode {
	case domain.PaymentModeCash, domain.PaymentModeCard, domain.PaymentModeUPI:
		return true
	default:
		return false
	}
}

// ReconcilePayment settles the payment section of a new bill. A bill paid
// in one mode is either fully paid or unpaid; split payments must add up to
// the grand total within SplitTolerance.
func ReconcilePayment(grandTotal decimal.Decimal, mode string, splits []domain.SplitPayment, markAsPaid bool) (PaymentOutcome, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" && len(splits) > 0 {
		mode = domain.PaymentModeSplit
	}
	if mode == "" {
		mode = domain.PaymentModeCash
	}

	outcome := PaymentOutcome{Mode: mode, Status: domain.PaymentStatusUnpaid, PaidAmount: decimal.Zero}
	switch {
	case mode == domain.PaymentModeSplit:
		normalized, err := ValidateSplits(grandTotal, splits)
		if err != nil {
			return PaymentOutcome{}, err
		}
		outcome.Splits = normalized
	case isSingleMode(mode):
		if len(splits) > 0 {
			return PaymentOutcome{}, ValidationError(CodeInvalidSplit, "split payments require payment mode split", map[string]any{"payment_mode": mode})
		}
	default:
		return PaymentOutcome{}, ValidationError(CodeInvalidPaymentMode, "payment mode must be cash, card, upi or split", map[string]any{"payment_mode": mode})
	}

	if markAsPaid {
		outcome.Status = domain.PaymentStatusPaid
		outcome.PaidAmount = grandTotal
	}
	return outcome, nil
}

// ValidateSplits checks the split entries against the grand total and
// returns them with modes normalized and amounts rounded to cents.
func ValidateSplits(grandTotal decimal.Decimal, splits []domain.SplitPayment) ([]domain.SplitPayment, error) {
	if len(splits) < 2 {
		return nil, ValidationError(CodeInvalidSplit, "split payment needs at least two entries", map[string]any{"entries": len(splits)})
	}
	normalized := make([]domain.SplitPayment, 0, len(splits))
	sum := decimal.Zero
	for i, split := range splits {
		mode := strings.ToLower(strings.TrimSpace(split.Mode))
		if !isSingleMode(mode) {
			return nil, ValidationError(CodeInvalidSplit, "split payment mode must be cash, card or upi", map[string]any{
				"index": i,
				"mode":  split.Mode,
			})
		}
		if split.Amount.Sign() <= 0 {
			return nil, ValidationError(CodeInvalidSplit, "split payment amount must be positive", map[string]any{
				"index":  i,
				"amount": split.Amount.String(),
			})
		}
		amount := Round2(split.Amount)
		sum = sum.Add(amount)
		normalized = append(normalized, domain.SplitPayment{Mode: mode, Amount: amount})
	}
	diff := sum.Sub(grandTotal)
	if diff.Abs().GreaterThan(SplitTolerance) {
		return nil, &SplitMismatchError{GrandTotal: grandTotal, Paid: sum, Difference: diff}
	}
	return normalized, nil
}

// ApplyPaymentUpdate records a payment against an existing bill. Status is
// paid when the paid amount covers the grand total, partially paid otherwise.
// A split update must settle the whole bill.
func ApplyPaymentUpdate(bill domain.Bill, req domain.UpdatePaymentRequest, at time.Time) (domain.Bill, error) {
	if bill.IsCancelled() {
		return domain.Bill{}, IntegrityError(CodeBillCancelled, "cancelled bills cannot take payments", map[string]any{"bill_id": bill.ID})
	}

	mode := strings.ToLower(strings.TrimSpace(req.PaymentMode))
	if mode == "" && len(req.SplitPayments) > 0 {
		mode = domain.PaymentModeSplit
	}

	switch {
	case mode == domain.PaymentModeSplit:
		normalized, err := ValidateSplits(bill.GrandTotal, req.SplitPayments)
		if err != nil {
			return domain.Bill{}, err
		}
		bill.SplitPayments = normalized
		bill.PaidAmount = bill.GrandTotal
	case isSingleMode(mode):
		if len(req.SplitPayments) > 0 {
			return domain.Bill{}, ValidationError(CodeInvalidSplit, "split payments require payment mode split", map[string]any{"payment_mode": mode})
		}
		if req.PaidAmount.Sign() <= 0 {
			return domain.Bill{}, ValidationError(CodeInvalidPaidAmount, "paid amount must be positive", map[string]any{
				"paid_amount": req.PaidAmount.String(),
			})
		}
		bill.SplitPayments = nil
		bill.PaidAmount = Round2(req.PaidAmount)
	default:
		return domain.Bill{}, ValidationError(CodeInvalidPaymentMode, "payment mode must be cash, card, upi or split", map[string]any{"payment_mode": mode})
	}

	bill.PaymentMode = mode
	if bill.PaidAmount.GreaterThanOrEqual(bill.GrandTotal) {
		bill.PaymentStatus = domain.PaymentStatusPaid
	} else {
		bill.PaymentStatus = domain.PaymentStatusPartiallyPaid
	}
	bill.UpdatedAt = at
	return bill, nil
}

// Cancel moves a bill to cancelled. Monetary fields are left untouched and a
// bill that is already cancelled is returned unchanged with changed=false.
func Cancel(bill domain.Bill, reason string, at time.Time) (domain.Bill, bool, error) {
	if bill.IsCancelled() {
		return bill, false, nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Bill{}, false, ValidationError(CodeMissingCancelReason, "cancel reason is required", nil)
	}
	cancelledAt := at
	bill.PaymentStatus = domain.PaymentStatusCancelled
	bill.CancelledAt = &cancelledAt
	bill.CancelReason = reason
	bill.UpdatedAt = at
	return bill, true, nil
}

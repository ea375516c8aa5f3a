package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind sentinels. Every error returned by this package unwraps to one of them.
var (
	ErrValidation  = errors.New("validation failed")
	ErrEligibility = errors.New("discount not eligible")
	ErrIntegrity   = errors.New("integrity violation")
)

type ErrorCode string

const (
	CodeEmptyOrders         ErrorCode = "EMPTY_ORDERS"
	CodeInvalidOrderType    ErrorCode = "INVALID_ORDER_TYPE"
	CodeInvalidQuantity     ErrorCode = "INVALID_QUANTITY"
	CodeInvalidPrice        ErrorCode = "INVALID_PRICE"
	CodeInvalidDiscount     ErrorCode = "INVALID_DISCOUNT"
	CodeMissingReason       ErrorCode = "MISSING_DISCOUNT_REASON"
	CodeInvalidGSTIN        ErrorCode = "INVALID_GSTIN"
	CodeInvalidCharge       ErrorCode = "INVALID_CHARGE"
	CodeInvalidSettings     ErrorCode = "INVALID_SETTINGS"
	CodeInvalidPaymentMode  ErrorCode = "INVALID_PAYMENT_MODE"
	CodeInvalidSplit        ErrorCode = "INVALID_SPLIT_PAYMENT"
	CodeSplitMismatch       ErrorCode = "SPLIT_PAYMENT_MISMATCH"
	CodeInvalidPaidAmount   ErrorCode = "INVALID_PAID_AMOUNT"
	CodeMissingCancelReason ErrorCode = "MISSING_CANCEL_REASON"
	CodeInvalidPreset       ErrorCode = "INVALID_PRESET"

	CodePresetInactive      ErrorCode = "PRESET_INACTIVE"
	CodePresetWrongScope    ErrorCode = "PRESET_WRONG_SCOPE"
	CodePresetNotActiveYet  ErrorCode = "PRESET_NOT_ACTIVE_YET"
	CodePresetExpired       ErrorCode = "PRESET_EXPIRED"
	CodePresetNotToday      ErrorCode = "PRESET_NOT_AVAILABLE_TODAY"
	CodePresetNotNow        ErrorCode = "PRESET_NOT_AVAILABLE_NOW"
	CodePresetScheduleBad   ErrorCode = "PRESET_SCHEDULE_INVALID"
	CodePresetMinBillNotMet ErrorCode = "PRESET_MIN_BILL_NOT_MET"

	CodeOrderAlreadyBilled ErrorCode = "ORDER_ALREADY_BILLED"
	CodeBillCancelled      ErrorCode = "BILL_CANCELLED"
	CodeUnbalancedBill     ErrorCode = "UNBALANCED_BILL"
)

type Error struct {
	Kind    error
	Code    ErrorCode
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func ValidationError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: message, Details: details}
}

func EligibilityError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Kind: ErrEligibility, Code: code, Message: message, Details: details}
}

func IntegrityError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Kind: ErrIntegrity, Code: code, Message: message, Details: details}
}

// SplitMismatchError reports a split payment whose entries do not add up to
// the grand total. Difference is sum(entries) - grandTotal.
type SplitMismatchError struct {
	GrandTotal decimal.Decimal
	Paid       decimal.Decimal
	Difference decimal.Decimal
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split payments total %s but bill total is %s (difference %s)",
		e.Paid.StringFixed(2), e.GrandTotal.StringFixed(2), e.Difference.StringFixed(2))
}

func (e *SplitMismatchError) Unwrap() error {
	return ErrValidation
}

// MissingReasonError is returned when a discount needs a reason and none was given.
type MissingReasonError struct {
	PresetID   string
	MenuItemID string
	OrderID    string
}

func (e *MissingReasonError) Error() string {
	if e.MenuItemID != "" {
		return fmt.Sprintf("discount on item %s (order %s) requires a reason", e.MenuItemID, e.OrderID)
	}
	return "bill discount requires a reason"
}

func (e *MissingReasonError) Unwrap() error {
	return ErrValidation
}

// CodeOf extracts the error code for transport layers.
func CodeOf(err error) ErrorCode {
	var billingErr *Error
	if errors.As(err, &billingErr) {
		return billingErr.Code
	}
	var split *SplitMismatchError
	if errors.As(err, &split) {
		return CodeSplitMismatch
	}
	var reason *MissingReasonError
	if errors.As(err, &reason) {
		return CodeMissingReason
	}
	return ""
}

// DetailsOf returns structured details for err, if any.
func DetailsOf(err error) map[string]any {
	var billingErr *Error
	if errors.As(err, &billingErr) {
		return billingErr.Details
	}
	var split *SplitMismatchError
	if errors.As(err, &split) {
		return map[string]any{
			"grand_total": split.GrandTotal.StringFixed(2),
			"paid":        split.Paid.StringFixed(2),
			"difference":  split.Difference.StringFixed(2),
		}
	}
	var reason *MissingReasonError
	if errors.As(err, &reason) {
		details := map[string]any{}
		if reason.PresetID != "" {
			details["preset_id"] = reason.PresetID
		}
		if reason.MenuItemID != "" {
			details["menu_item_id"] = reason.MenuItemID
			details["order_id"] = reason.OrderID
		}
		return details
	}
	return nil
}

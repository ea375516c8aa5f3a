package billing

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

// Input is everything a calculation needs. Now is pinned by the caller so a
// preview and the final submit evaluate presets at the same instant.
type Input struct {
	Orders          []domain.Order
	OrderType       string
	ItemDiscounts   []domain.ItemDiscount
	ItemPresets     map[string]domain.DiscountPreset
	BillDiscount    BillDiscountInput
	PackagingCharge *decimal.Decimal
	Settings        domain.Settings
	Now             time.Time
	Location        *time.Location
}

// Calculate runs the full pipeline. It performs no I/O and is safe for
// concurrent use.
func Calculate(in Input) (domain.CalculationResult, error) {
	orderType, err := NormalizeOrderType(in.OrderType)
	if err != nil {
		return domain.CalculationResult{}, err
	}
	if err := validateOrders(in.Orders); err != nil {
		return domain.CalculationResult{}, err
	}

	lines := Consolidate(in.Orders)
	lines, items, err := ApplyItemDiscounts(lines, in.ItemDiscounts, in.ItemPresets, in.Now, in.Location)
	if err != nil {
		return domain.CalculationResult{}, err
	}

	discount, err := ApplyBillDiscount(items.AfterItemDiscount, in.BillDiscount, in.Now, in.Location)
	if err != nil {
		return domain.CalculationResult{}, err
	}
	afterAll := Round2(items.AfterItemDiscount.Sub(discount.Amount))

	settings := in.Settings
	packaging := in.PackagingCharge
	if len(lines) == 0 {
		// nothing ordered, nothing charged
		settings.EnablePackagingCharge = false
		packaging = nil
	}
	charges, err := ApplyCharges(afterAll, orderType, packaging, settings)
	if err != nil {
		return domain.CalculationResult{}, err
	}

	result := domain.CalculationResult{
		OrderType:           orderType,
		Items:               lines,
		Subtotal:            items.Subtotal,
		TotalItemDiscount:   items.TotalItemDiscount,
		AfterItemDiscount:   items.AfterItemDiscount,
		BillDiscountType:    discount.Type,
		BillDiscountValue:   discount.Value,
		BillDiscountAmount:  discount.Amount,
		DiscountPresetID:    discount.PresetID,
		DiscountReason:      discount.Reason,
		AfterAllDiscounts:   afterAll,
		ServiceChargeRate:   charges.ServiceChargeRate,
		ServiceChargeAmount: charges.ServiceChargeAmount,
		PackagingCharge:     charges.PackagingCharge,
		TaxableAmount:       charges.TaxableAmount,
		GSTScheme:           charges.GSTScheme,
		CGSTRate:            charges.CGSTRate,
		CGSTAmount:          charges.CGSTAmount,
		SGSTRate:            charges.SGSTRate,
		SGSTAmount:          charges.SGSTAmount,
		TotalTax:            charges.TotalTax,
		RoundOff:            charges.RoundOff,
		GrandTotal:          charges.GrandTotal,
	}
	if err := CheckBillInvariants(result); err != nil {
		return domain.CalculationResult{}, err
	}
	return result, nil
}

// CheckBillInvariants verifies the reconciliation equalities between the
// derived monetary fields.
func CheckBillInvariants(r domain.CalculationResult) error {
	checks := []struct {
		name  string
		left  decimal.Decimal
		right decimal.Decimal
	}{
		{"after_item_discount", r.Subtotal.Sub(r.TotalItemDiscount), r.AfterItemDiscount},
		{"after_all_discounts", r.AfterItemDiscount.Sub(r.BillDiscountAmount), r.AfterAllDiscounts},
		{"taxable_amount", r.AfterAllDiscounts.Add(r.ServiceChargeAmount).Add(r.PackagingCharge), r.TaxableAmount},
		{"grand_total", r.TaxableAmount.Add(r.TotalTax).Add(r.RoundOff), r.GrandTotal},
		{"total_tax", r.CGSTAmount.Add(r.SGSTAmount), r.TotalTax},
	}
	for _, c := range checks {
		if !c.left.Equal(c.right) {
			return IntegrityError(CodeUnbalancedBill, "bill totals do not reconcile", map[string]any{
				"field":    c.name,
				"expected": c.left.String(),
				"actual":   c.right.String(),
			})
		}
	}
	if r.AfterAllDiscounts.Sign() < 0 {
		return IntegrityError(CodeUnbalancedBill, "discounts exceed the bill amount", nil)
	}
	if r.GSTScheme == domain.GSTSchemeComposition && (!r.TotalTax.IsZero() || !r.CGSTAmount.IsZero() || !r.SGSTAmount.IsZero()) {
		return IntegrityError(CodeUnbalancedBill, "composition scheme bills cannot carry tax", nil)
	}
	return nil
}

// NormalizeOrderType defaults an empty order type to dine-in.
func NormalizeOrderType(orderType string) (string, error) {
	orderType = strings.ToLower(strings.TrimSpace(orderType))
	switch orderType {
	case "":
		return domain.OrderTypeDineIn, nil
	case domain.OrderTypeDineIn, domain.OrderTypeTakeaway, domain.OrderTypeDelivery:
		return orderType, nil
	default:
		return "", ValidationError(CodeInvalidOrderType, "order type must be dine_in, takeaway or delivery", map[string]any{"order_type": orderType})
	}
}

func validateOrders(orders []domain.Order) error {
	for _, order := range orders {
		for _, item := range order.Items {
			if item.Quantity <= 0 {
				return ValidationError(CodeInvalidQuantity, "item quantity must be positive", map[string]any{
					"order_id":     order.ID,
					"menu_item_id": item.MenuItemID,
				})
			}
			if item.UnitPrice.Sign() < 0 {
				return ValidationError(CodeInvalidPrice, "item price cannot be negative", map[string]any{
					"order_id":     order.ID,
					"menu_item_id": item.MenuItemID,
				})
			}
		}
	}
	return nil
}

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// ValidateGSTIN checks the 15 character GSTIN layout: state code, PAN,
// entity number, the fixed Z and a check character.
func ValidateGSTIN(gstin string) error {
	if !gstinPattern.MatchString(gstin) {
		return ValidationError(CodeInvalidGSTIN, "GSTIN format is invalid", map[string]any{"gstin": gstin})
	}
	return nil
}

// NormalizeGSTIN upper-cases and trims a GSTIN before validation.
func NormalizeGSTIN(gstin string) string {
	return strings.ToUpper(strings.TrimSpace(gstin))
}

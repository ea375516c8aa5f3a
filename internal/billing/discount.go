package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

// Consolidate flattens the orders into bill lines. Identical menu items from
// different orders stay on separate lines.
func Consolidate(orders []domain.Order) []domain.BillItem {
	lines := make([]domain.BillItem, 0)
	for _, order := range orders {
		for _, item := range order.Items {
			lines = append(lines, domain.BillItem{
				MenuItemID:     item.MenuItemID,
				OrderID:        order.ID,
				Name:           item.Name,
				Quantity:       item.Quantity,
				Price:          item.UnitPrice,
				LineTotal:      Round2(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))),
				DiscountAmount: decimal.Zero,
			})
		}
	}
	return lines
}

type ItemTotals struct {
	Subtotal          decimal.Decimal
	TotalItemDiscount decimal.Decimal
	AfterItemDiscount decimal.Decimal
}

type resolvedItemDiscount struct {
	discountType string
	value        decimal.Decimal
	reason       string
	maxAmount    *decimal.Decimal
}

func lineKey(menuItemID, orderID string) string {
	return menuItemID + "\x00" + orderID
}

// ApplyItemDiscounts applies per-line percentage discounts. Discounts are
// matched by (menu item, order); a later entry for the same pair replaces an
// earlier one. Entries that match no line are ignored. An item preset's
// minimum bill is checked against the subtotal and its cap limits each line.
func ApplyItemDiscounts(lines []domain.BillItem, discounts []domain.ItemDiscount, itemPresets map[string]domain.DiscountPreset, now time.Time, loc *time.Location) ([]domain.BillItem, ItemTotals, error) {
	byLine := make(map[string]domain.ItemDiscount, len(discounts))
	for _, d := range discounts {
		byLine[lineKey(d.MenuItemID, d.OrderID)] = d
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
	}
	subtotal = Round2(subtotal)

	out := make([]domain.BillItem, len(lines))
	totals := ItemTotals{Subtotal: decimal.Zero, TotalItemDiscount: decimal.Zero}
	for i, line := range lines {
		line.DiscountAmount = decimal.Zero
		line.DiscountType = ""
		line.DiscountValue = nil
		line.DiscountReason = ""

		if d, ok := byLine[lineKey(line.MenuItemID, line.OrderID)]; ok {
			resolved, err := resolveItemDiscount(d, itemPresets, subtotal, now, loc)
			if err != nil {
				return nil, ItemTotals{}, err
			}
			if resolved.value.Sign() > 0 {
				value := resolved.value
				line.DiscountType = resolved.discountType
				line.DiscountValue = &value
				line.DiscountReason = resolved.reason
				line.DiscountAmount = Round2(Percent(line.LineTotal, value))
				if resolved.maxAmount != nil && resolved.maxAmount.Sign() > 0 {
					line.DiscountAmount = minDecimal(line.DiscountAmount, Round2(*resolved.maxAmount))
				}
			}
		}

		totals.Subtotal = totals.Subtotal.Add(line.LineTotal)
		totals.TotalItemDiscount = totals.TotalItemDiscount.Add(line.DiscountAmount)
		out[i] = line
	}
	totals.Subtotal = Round2(totals.Subtotal)
	totals.TotalItemDiscount = Round2(totals.TotalItemDiscount)
	totals.AfterItemDiscount = Round2(totals.Subtotal.Sub(totals.TotalItemDiscount))
	return out, totals, nil
}

func resolveItemDiscount(d domain.ItemDiscount, itemPresets map[string]domain.DiscountPreset, subtotal decimal.Decimal, now time.Time, loc *time.Location) (resolvedItemDiscount, error) {
	reason := strings.TrimSpace(d.Reason)

	if d.DiscountPresetID != "" {
		preset, ok := itemPresets[d.DiscountPresetID]
		if !ok {
			return resolvedItemDiscount{}, ValidationError(CodeInvalidPreset, "unknown item discount preset", map[string]any{"preset_id": d.DiscountPresetID})
		}
		if preset.Scope != domain.PresetScopeItem {
			return resolvedItemDiscount{}, EligibilityError(CodePresetWrongScope, "preset cannot be applied to items", map[string]any{"preset_id": preset.ID})
		}
		if err := ScheduleEligible(preset, now, loc); err != nil {
			return resolvedItemDiscount{}, err
		}
		if err := CheckMinBill(preset, subtotal); err != nil {
			return resolvedItemDiscount{}, err
		}
		if preset.DiscountType != domain.DiscountTypePercentage {
			return resolvedItemDiscount{}, ValidationError(CodeInvalidDiscount, "item discounts are percentage-only", map[string]any{"preset_id": preset.ID})
		}
		if preset.RequiresReason && reason == "" {
			return resolvedItemDiscount{}, &MissingReasonError{PresetID: preset.ID, MenuItemID: d.MenuItemID, OrderID: d.OrderID}
		}
		return resolvedItemDiscount{
			discountType: domain.DiscountTypePercentage,
			value:        preset.DiscountValue,
			reason:       reason,
			maxAmount:    preset.MaxDiscountAmount,
		}, nil
	}

	switch d.DiscountType {
	case "", domain.DiscountTypePercentage:
		if d.DiscountValue.Sign() < 0 || d.DiscountValue.GreaterThan(hundred) {
			return resolvedItemDiscount{}, ValidationError(CodeInvalidDiscount, "item discount must be between 0 and 100 percent", map[string]any{
				"menu_item_id":   d.MenuItemID,
				"order_id":       d.OrderID,
				"discount_value": d.DiscountValue.String(),
			})
		}
		discountType := domain.DiscountTypePercentage
		if d.DiscountValue.Equal(hundred) {
			discountType = domain.DiscountTypeComplimentary
		}
		return resolvedItemDiscount{discountType: discountType, value: d.DiscountValue, reason: reason}, nil
	case domain.DiscountTypeComplimentary:
		return resolvedItemDiscount{discountType: domain.DiscountTypeComplimentary, value: hundred, reason: reason}, nil
	default:
		return resolvedItemDiscount{}, ValidationError(CodeInvalidDiscount, "item discounts are percentage-only", map[string]any{
			"menu_item_id":  d.MenuItemID,
			"order_id":      d.OrderID,
			"discount_type": d.DiscountType,
		})
	}
}

type BillDiscountInput struct {
	Type   string
	Value  *decimal.Decimal
	Preset *domain.DiscountPreset
	Reason string
}

type BillDiscountResult struct {
	Type     string
	Value    *decimal.Decimal
	Amount   decimal.Decimal
	PresetID string
	Reason   string
}

// ApplyBillDiscount computes the single bill-level discount. A selected
// preset supplies type and value and replaces any explicit values.
func ApplyBillDiscount(afterItemDiscount decimal.Decimal, in BillDiscountInput, now time.Time, loc *time.Location) (BillDiscountResult, error) {
	reason := strings.TrimSpace(in.Reason)
	result := BillDiscountResult{Amount: decimal.Zero, Reason: reason}

	discountType := strings.TrimSpace(in.Type)
	var value decimal.Decimal
	if in.Value != nil {
		value = *in.Value
	}
	var maxAmount *decimal.Decimal

	if in.Preset != nil {
		p := *in.Preset
		if p.Scope != domain.PresetScopeBill {
			return BillDiscountResult{}, EligibilityError(CodePresetWrongScope, "preset cannot be applied to the bill", map[string]any{"preset_id": p.ID})
		}
		if err := ScheduleEligible(p, now, loc); err != nil {
			return BillDiscountResult{}, err
		}
		if err := CheckMinBill(p, afterItemDiscount); err != nil {
			return BillDiscountResult{}, err
		}
		if p.RequiresReason && reason == "" {
			return BillDiscountResult{}, &MissingReasonError{PresetID: p.ID}
		}
		discountType = p.DiscountType
		value = p.DiscountValue
		maxAmount = p.MaxDiscountAmount
		result.PresetID = p.ID
	}

	if discountType == "" {
		if value.Sign() != 0 {
			return BillDiscountResult{}, ValidationError(CodeInvalidDiscount, "bill discount type is required", nil)
		}
		return result, nil
	}

	var amount decimal.Decimal
	switch discountType {
	case domain.DiscountTypePercentage:
		if value.Sign() < 0 || value.GreaterThan(hundred) {
			return BillDiscountResult{}, ValidationError(CodeInvalidDiscount, "bill discount must be between 0 and 100 percent", map[string]any{
				"discount_value": value.String(),
			})
		}
		amount = Round2(Percent(afterItemDiscount, value))
	case domain.DiscountTypeFlat:
		if value.Sign() < 0 {
			return BillDiscountResult{}, ValidationError(CodeInvalidDiscount, "flat bill discount cannot be negative", map[string]any{
				"discount_value": value.String(),
			})
		}
		amount = Round2(minDecimal(value, afterItemDiscount))
	default:
		return BillDiscountResult{}, ValidationError(CodeInvalidDiscount, "bill discount type must be percentage or flat", map[string]any{
			"discount_type": discountType,
		})
	}
	if maxAmount != nil && maxAmount.Sign() > 0 {
		amount = minDecimal(amount, Round2(*maxAmount))
	}

	if value.Sign() == 0 && result.PresetID == "" {
		return result, nil
	}
	result.Type = discountType
	result.Value = &value
	result.Amount = amount
	return result, nil
}

package suggestion

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestSuggestPicksLargestDiscount(t *testing.T) {
	now := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	presets := []domain.DiscountPreset{
		{ID: "p-flat", Name: "Flat 30", Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypeFlat, DiscountValue: dec("30"), IsActive: true, AutoSuggest: true},
		{ID: "p-pct", Name: "20% off", Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypePercentage, DiscountValue: dec("20"), MaxDiscountAmount: decPtr("40"), IsActive: true, AutoSuggest: true},
		{ID: "p-big", Name: "Big spender", Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypeFlat, DiscountValue: dec("100"), MinBillAmount: decPtr("1000"), IsActive: true, AutoSuggest: true},
		{ID: "p-manual", Name: "Manager comp", Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypePercentage, DiscountValue: dec("50"), IsActive: true, AutoSuggest: true, RequiresReason: true},
		{ID: "p-hidden", Name: "Not suggested", Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypePercentage, DiscountValue: dec("90"), IsActive: true},
		{ID: "p-item", Name: "Item promo", Scope: domain.PresetScopeItem, DiscountType: domain.DiscountTypePercentage, DiscountValue: dec("90"), IsActive: true, AutoSuggest: true},
	}

	best, candidates := NewEngine(time.UTC).Suggest(presets, dec("300"), now)
	if best == nil {
		t.Fatalf("expected a suggestion")
	}
	if best.PresetID != "p-pct" {
		t.Fatalf("expected capped percentage preset to win, got %s", best.PresetID)
	}
	if !best.DiscountAmount.Equal(dec("40")) {
		t.Fatalf("expected discount 40, got %s", best.DiscountAmount)
	}
	if len(candidates) != 2 || candidates[1].PresetID != "p-flat" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestSuggestEmptyBill(t *testing.T) {
	presets := []domain.DiscountPreset{
		{ID: "p-flat", Name: "Flat 30", Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypeFlat, DiscountValue: dec("30"), IsActive: true, AutoSuggest: true},
	}
	best, candidates := NewEngine(nil).Suggest(presets, decimal.Zero, time.Now())
	if best != nil || len(candidates) != 0 {
		t.Fatalf("expected no suggestion for an empty bill")
	}
}

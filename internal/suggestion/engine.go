package suggestion

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/billing"
	"restopos/backend/internal/domain"
)

// Engine ranks auto-suggest bill presets for a running bill.
type Engine struct {
	location *time.Location
	limit    int
}

func NewEngine(location *time.Location) *Engine {
	if location == nil {
		location = time.UTC
	}
	return &Engine{location: location, limit: 5}
}

// Suggest returns the best preset for afterItemDiscount at now, plus the
// ranked candidates. Presets that fail either eligibility phase are skipped.
func (e *Engine) Suggest(presets []domain.DiscountPreset, afterItemDiscount decimal.Decimal, now time.Time) (*domain.PresetSuggestion, []domain.PresetSuggestion) {
	candidates := make([]domain.PresetSuggestion, 0)
	if afterItemDiscount.Sign() <= 0 {
		return nil, candidates
	}

	for _, preset := range billing.EligiblePresets(presets, now, e.location) {
		if !preset.AutoSuggest || preset.Scope != domain.PresetScopeBill {
			continue
		}
		if preset.RequiresReason {
			// the cashier has to type a reason, so it is never auto-applied
			continue
		}
		p := preset
		result, err := billing.ApplyBillDiscount(afterItemDiscount, billing.BillDiscountInput{Preset: &p}, now, e.location)
		if err != nil || result.Amount.Sign() <= 0 {
			continue
		}
		candidates = append(candidates, domain.PresetSuggestion{
			PresetID:       preset.ID,
			Name:           preset.Name,
			DiscountAmount: result.Amount,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].DiscountAmount.Equal(candidates[j].DiscountAmount) {
			return candidates[i].DiscountAmount.GreaterThan(candidates[j].DiscountAmount)
		}
		return candidates[i].PresetID < candidates[j].PresetID
	})
	if len(candidates) > e.limit {
		candidates = candidates[:e.limit]
	}
	if len(candidates) == 0 {
		return nil, candidates
	}
	best := candidates[0]
	return &best, candidates
}

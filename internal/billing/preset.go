package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	hhmmLayout = "15:04"
)

// ScheduleEligible is the time-based half of preset eligibility: active flag,
// inclusive date range, inclusive HH:MM window and weekday set, all evaluated
// against now in loc.
func ScheduleEligible(p domain.DiscountPreset, now time.Time, loc *time.Location) error {
	if !p.IsActive {
		return EligibilityError(CodePresetInactive, "Discount preset is inactive", map[string]any{"preset_id": p.ID})
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := local.Format(dateLayout)

	if p.StartDate != "" {
		if !isValidDate(p.StartDate) {
			return EligibilityError(CodePresetScheduleBad, "Discount preset schedule is invalid", map[string]any{"start_date": p.StartDate})
		}
		if today < p.StartDate {
			return EligibilityError(CodePresetNotActiveYet, "Discount preset is not active yet", map[string]any{
				"preset_id":  p.ID,
				"start_date": p.StartDate,
			})
		}
	}
	if p.EndDate != "" {
		if !isValidDate(p.EndDate) {
			return EligibilityError(CodePresetScheduleBad, "Discount preset schedule is invalid", map[string]any{"end_date": p.EndDate})
		}
		if today > p.EndDate {
			return EligibilityError(CodePresetExpired, "Discount preset has expired", map[string]any{
				"preset_id": p.ID,
				"end_date":  p.EndDate,
			})
		}
	}

	if len(p.ActiveDays) > 0 {
		dow := int(local.Weekday())
		allowed := false
		for _, d := range p.ActiveDays {
			if d == dow {
				allowed = true
				break
			}
		}
		if !allowed {
			return EligibilityError(CodePresetNotToday, "Discount preset is not available today", map[string]any{
				"preset_id":   p.ID,
				"active_days": p.ActiveDays,
				"today":       dow,
			})
		}
	}

	if p.StartTime != "" || p.EndTime != "" {
		start, end := p.StartTime, p.EndTime
		if start == "" {
			start = "00:00"
		}
		if end == "" {
			end = "23:59"
		}
		if !isValidHHMM(start) || !isValidHHMM(end) || start >= end {
			// windows crossing midnight are never eligible
			return EligibilityError(CodePresetScheduleBad, "Discount preset schedule is invalid", map[string]any{
				"preset_id":  p.ID,
				"start_time": p.StartTime,
				"end_time":   p.EndTime,
			})
		}
		nowHHMM := local.Format(hhmmLayout)
		if nowHHMM < start || nowHHMM > end {
			return EligibilityError(CodePresetNotNow, "Discount preset is not available at this time", map[string]any{
				"preset_id":  p.ID,
				"start_time": start,
				"end_time":   end,
				"now":        nowHHMM,
			})
		}
	}
	return nil
}

// CheckMinBill is the amount-based half of preset eligibility.
func CheckMinBill(p domain.DiscountPreset, afterItemDiscount decimal.Decimal) error {
	if p.MinBillAmount == nil || p.MinBillAmount.Sign() <= 0 {
		return nil
	}
	if afterItemDiscount.LessThan(*p.MinBillAmount) {
		return EligibilityError(CodePresetMinBillNotMet, "Bill amount is below the preset minimum", map[string]any{
			"preset_id":       p.ID,
			"min_bill_amount": p.MinBillAmount.StringFixed(2),
			"bill_amount":     afterItemDiscount.StringFixed(2),
		})
	}
	return nil
}

// EligiblePresets returns the presets that pass the schedule check at now,
// ordered by name.
func EligiblePresets(presets []domain.DiscountPreset, now time.Time, loc *time.Location) []domain.DiscountPreset {
	result := make([]domain.DiscountPreset, 0, len(presets))
	for _, p := range presets {
		if ScheduleEligible(p, now, loc) == nil {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// ValidatePreset checks a preset definition before it is stored.
func ValidatePreset(p domain.DiscountPreset) error {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationError(CodeInvalidPreset, "preset name is required", nil)
	}
	if p.Scope != domain.PresetScopeBill && p.Scope != domain.PresetScopeItem {
		return ValidationError(CodeInvalidPreset, "scope must be bill or item", map[string]any{"scope": p.Scope})
	}
	switch p.DiscountType {
	case domain.DiscountTypePercentage:
		if p.DiscountValue.Sign() <= 0 || p.DiscountValue.GreaterThan(hundred) {
			return ValidationError(CodeInvalidDiscount, "percentage discount must be greater than 0 and at most 100", map[string]any{
				"discount_value": p.DiscountValue.String(),
			})
		}
	case domain.DiscountTypeFlat:
		if p.Scope == domain.PresetScopeItem {
			return ValidationError(CodeInvalidPreset, "item presets must be percentage discounts", nil)
		}
		if p.DiscountValue.Sign() <= 0 {
			return ValidationError(CodeInvalidDiscount, "flat discount must be greater than 0", nil)
		}
	default:
		return ValidationError(CodeInvalidPreset, "discount type must be percentage or flat", map[string]any{"discount_type": p.DiscountType})
	}
	if p.MinBillAmount != nil && p.MinBillAmount.Sign() < 0 {
		return ValidationError(CodeInvalidPreset, "min bill amount cannot be negative", nil)
	}
	if p.MaxDiscountAmount != nil && p.MaxDiscountAmount.Sign() < 0 {
		return ValidationError(CodeInvalidPreset, "max discount amount cannot be negative", nil)
	}

	if p.StartDate != "" && !isValidDate(p.StartDate) {
		return ValidationError(CodeInvalidPreset, "start date must be YYYY-MM-DD", map[string]any{"start_date": p.StartDate})
	}
	if p.EndDate != "" && !isValidDate(p.EndDate) {
		return ValidationError(CodeInvalidPreset, "end date must be YYYY-MM-DD", map[string]any{"end_date": p.EndDate})
	}
	if p.StartDate != "" && p.EndDate != "" && p.StartDate > p.EndDate {
		return ValidationError(CodeInvalidPreset, "start date must not be after end date", nil)
	}

	if p.StartTime != "" && !isValidHHMM(p.StartTime) {
		return ValidationError(CodeInvalidPreset, "start time must be HH:MM", map[string]any{"start_time": p.StartTime})
	}
	if p.EndTime != "" && !isValidHHMM(p.EndTime) {
		return ValidationError(CodeInvalidPreset, "end time must be HH:MM", map[string]any{"end_time": p.EndTime})
	}
	if p.StartTime != "" && p.EndTime != "" && p.StartTime >= p.EndTime {
		return ValidationError(CodeInvalidPreset, "time window must end after it starts; windows crossing midnight are not supported", map[string]any{
			"start_time": p.StartTime,
			"end_time":   p.EndTime,
		})
	}

	seen := make(map[int]bool, len(p.ActiveDays))
	for _, d := range p.ActiveDays {
		if d < 0 || d > 6 {
			return ValidationError(CodeInvalidPreset, "active days must be between 0 (Sunday) and 6 (Saturday)", map[string]any{"day": d})
		}
		if seen[d] {
			return ValidationError(CodeInvalidPreset, "active days must not repeat", map[string]any{"day": d})
		}
		seen[d] = true
	}
	return nil
}

func isValidHHMM(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	_, err := time.Parse(hhmmLayout, value)
	return err == nil
}

func isValidDate(value string) bool {
	if len(value) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

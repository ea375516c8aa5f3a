package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restopos/backend/internal/billing"
	"restopos/backend/internal/domain"
	"restopos/backend/internal/xid"
)

func presetFromRequest(req domain.PresetCreateRequest) domain.DiscountPreset {
	return domain.DiscountPreset{
		Name:              strings.TrimSpace(req.Name),
		Scope:             strings.ToLower(strings.TrimSpace(req.Scope)),
		DiscountType:      strings.ToLower(strings.TrimSpace(req.DiscountType)),
		DiscountValue:     req.DiscountValue,
		MinBillAmount:     req.MinBillAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		StartDate:         strings.TrimSpace(req.StartDate),
		EndDate:           strings.TrimSpace(req.EndDate),
		StartTime:         strings.TrimSpace(req.StartTime),
		EndTime:           strings.TrimSpace(req.EndTime),
		ActiveDays:        sortedDays(req.ActiveDays),
		RequiresReason:    req.RequiresReason,
		AutoSuggest:       req.AutoSuggest,
	}
}

func (s *Service) CreatePreset(ctx context.Context, req domain.PresetCreateRequest) (domain.DiscountPreset, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.DiscountPreset{}, err
	}
	restaurantID, err := s.restaurantFor(ctx, req.RestaurantID)
	if err != nil {
		return domain.DiscountPreset{}, err
	}

	preset := presetFromRequest(req)
	if err := billing.ValidatePreset(preset); err != nil {
		return domain.DiscountPreset{}, err
	}
	now := s.now()
	preset.ID = xid.New("preset")
	preset.RestaurantID = restaurantID
	preset.IsActive = true
	preset.CreatedAt = now
	preset.UpdatedAt = now

	created, err := s.repo.CreatePreset(ctx, preset)
	if err != nil {
		return domain.DiscountPreset{}, err
	}
	s.logAudit(ctx, restaurantID, "preset_create", "discount_preset", created.ID, fmt.Sprintf(
		"name=%s,scope=%s,type=%s,value=%s", created.Name, created.Scope, created.DiscountType, created.DiscountValue.String(),
	))
	return *created, nil
}

// UpdatePreset replaces a preset's definition. Activation and creation time
// are kept; use SetPresetActive to toggle.
func (s *Service) UpdatePreset(ctx context.Context, presetID string, req domain.PresetCreateRequest) (domain.DiscountPreset, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.DiscountPreset{}, err
	}
	restaurantID, err := s.restaurantFor(ctx, req.RestaurantID)
	if err != nil {
		return domain.DiscountPreset{}, err
	}
	existing, err := s.repo.GetPreset(ctx, restaurantID, strings.TrimSpace(presetID))
	if err != nil {
		return domain.DiscountPreset{}, err
	}

	updated := presetFromRequest(req)
	if err := billing.ValidatePreset(updated); err != nil {
		return domain.DiscountPreset{}, err
	}
	updated.ID = existing.ID
	updated.RestaurantID = existing.RestaurantID
	updated.IsActive = existing.IsActive
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdatePreset(ctx, updated)
	if err != nil {
		return domain.DiscountPreset{}, err
	}
	s.logAudit(ctx, restaurantID, "preset_update", "discount_preset", saved.ID, fmt.Sprintf(
		"name=%s,type=%s,value=%s", saved.Name, saved.DiscountType, saved.DiscountValue.String(),
	))
	return *saved, nil
}

// SetPresetActive toggles a preset. Presets are never deleted so historical
// bills keep resolving their preset name.
func (s *Service) SetPresetActive(ctx context.Context, restaurantID string, presetID string, active bool) (domain.DiscountPreset, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.DiscountPreset{}, err
	}
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.DiscountPreset{}, err
	}
	saved, err := s.repo.SetPresetActive(ctx, restaurantID, strings.TrimSpace(presetID), active, s.now())
	if err != nil {
		return domain.DiscountPreset{}, err
	}
	s.logAudit(ctx, restaurantID, "preset_set_active", "discount_preset", saved.ID, fmt.Sprintf("active=%t", saved.IsActive))
	return *saved, nil
}

func (s *Service) ListPresets(ctx context.Context, restaurantID string, includeInactive bool) ([]domain.DiscountPreset, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPresets(ctx, restaurantID, includeInactive)
}

// EligiblePresets returns the active presets whose schedule window contains
// at. A zero at means now. The minimum bill check needs a running total and
// is left to bill calculation.
func (s *Service) EligiblePresets(ctx context.Context, restaurantID string, at time.Time) ([]domain.DiscountPreset, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	presets, err := s.repo.ListPresets(ctx, restaurantID, false)
	if err != nil {
		return nil, err
	}
	return billing.EligiblePresets(presets, at, s.location), nil
}

func (s *Service) GetSettings(ctx context.Context, restaurantID string) (domain.Settings, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.Settings{}, err
	}
	return s.settingsFor(ctx, restaurantID)
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Settings{}, err
	}
	restaurantID, err := s.restaurantFor(ctx, settings.RestaurantID)
	if err != nil {
		return domain.Settings{}, err
	}

	settings.RestaurantID = restaurantID
	settings.RestaurantName = strings.TrimSpace(settings.RestaurantName)
	settings.GSTScheme = strings.ToLower(strings.TrimSpace(settings.GSTScheme))
	settings.GSTIN = billing.NormalizeGSTIN(settings.GSTIN)
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	if settings.RoundingUnit.IsZero() {
		settings.RoundingUnit = billing.DefaultRoundingUnit
	}
	if err := billing.ValidateSettings(settings); err != nil {
		return domain.Settings{}, err
	}
	settings.UpdatedAt = s.now()

	saved, err := s.repo.UpsertSettings(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	s.logAudit(ctx, restaurantID, "settings_update", "settings", restaurantID, fmt.Sprintf(
		"scheme=%s,gst=%s,service=%s,rounding=%s",
		saved.GSTScheme, saved.GSTRate.String(), saved.ServiceChargeRate.String(), saved.RoundingUnit.String(),
	))
	return *saved, nil
}

package billing

import (
	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

type Charges struct {
	ServiceChargeRate   decimal.Decimal
	ServiceChargeAmount decimal.Decimal
	PackagingCharge     decimal.Decimal
	TaxableAmount       decimal.Decimal
	GSTScheme           string
	CGSTRate            decimal.Decimal
	CGSTAmount          decimal.Decimal
	SGSTRate            decimal.Decimal
	SGSTAmount          decimal.Decimal
	TotalTax            decimal.Decimal
	RoundOff            decimal.Decimal
	GrandTotal          decimal.Decimal
}

// ValidateSettings rejects settings the charge calculator cannot use.
func ValidateSettings(s domain.Settings) error {
	if s.GSTScheme != domain.GSTSchemeRegular && s.GSTScheme != domain.GSTSchemeComposition {
		return ValidationError(CodeInvalidSettings, "gst scheme must be regular or composition", map[string]any{"gst_scheme": s.GSTScheme})
	}
	if s.GSTRate.Sign() < 0 || s.GSTRate.GreaterThan(hundred) {
		return ValidationError(CodeInvalidSettings, "gst rate must be between 0 and 100", map[string]any{"gst_rate": s.GSTRate.String()})
	}
	if s.ServiceChargeRate.Sign() < 0 || s.ServiceChargeRate.GreaterThan(hundred) {
		return ValidationError(CodeInvalidSettings, "service charge rate must be between 0 and 100", map[string]any{
			"service_charge_rate": s.ServiceChargeRate.String(),
		})
	}
	if s.DefaultPackagingCharge.Sign() < 0 {
		return ValidationError(CodeInvalidSettings, "default packaging charge cannot be negative", nil)
	}
	if s.RoundingUnit.Sign() < 0 {
		return ValidationError(CodeInvalidSettings, "rounding unit cannot be negative", nil)
	}
	if s.GSTIN != "" {
		if err := ValidateGSTIN(s.GSTIN); err != nil {
			return err
		}
	}
	return nil
}

// ApplyCharges adds service and packaging charges, computes GST and rounds
// the grand total to the configured unit. Rates in settings are percentages.
func ApplyCharges(afterAllDiscounts decimal.Decimal, orderType string, packagingOverride *decimal.Decimal, s domain.Settings) (Charges, error) {
	if err := ValidateSettings(s); err != nil {
		return Charges{}, err
	}
	if packagingOverride != nil && packagingOverride.Sign() < 0 {
		return Charges{}, ValidationError(CodeInvalidCharge, "packaging charge cannot be negative", nil)
	}

	c := Charges{
		GSTScheme:           s.GSTScheme,
		ServiceChargeRate:   decimal.Zero,
		ServiceChargeAmount: decimal.Zero,
		PackagingCharge:     decimal.Zero,
		CGSTRate:            decimal.Zero,
		CGSTAmount:          decimal.Zero,
		SGSTRate:            decimal.Zero,
		SGSTAmount:          decimal.Zero,
		TotalTax:            decimal.Zero,
	}

	if s.ServiceChargeRate.Sign() > 0 && (orderType == domain.OrderTypeDineIn || s.ApplyServiceChargeToTakeaway) {
		c.ServiceChargeRate = s.ServiceChargeRate
		c.ServiceChargeAmount = Round2(Percent(afterAllDiscounts, s.ServiceChargeRate))
	}

	if orderType != domain.OrderTypeDineIn && s.EnablePackagingCharge {
		c.PackagingCharge = Round2(s.DefaultPackagingCharge)
		if packagingOverride != nil {
			c.PackagingCharge = Round2(*packagingOverride)
		}
	}

	c.TaxableAmount = Round2(afterAllDiscounts.Add(c.ServiceChargeAmount).Add(c.PackagingCharge))

	if s.GSTScheme == domain.GSTSchemeRegular && s.GSTRate.Sign() > 0 {
		half := s.GSTRate.Div(two)
		c.CGSTRate = half
		c.SGSTRate = half
		c.CGSTAmount = Round2(Percent(c.TaxableAmount, half))
		c.SGSTAmount = Round2(Percent(c.TaxableAmount, half))
		c.TotalTax = c.CGSTAmount.Add(c.SGSTAmount)
	}

	preRound := c.TaxableAmount.Add(c.TotalTax)
	c.GrandTotal = RoundToUnit(preRound, s.RoundingUnit)
	c.RoundOff = c.GrandTotal.Sub(preRound)
	return c, nil
}

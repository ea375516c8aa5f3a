package billing

import (
	"sort"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

// Summarize aggregates bills in a single pass. presetNames maps preset ids to
// display names; unknown ids fall back to the id itself. Split bills are
// counted under split as a whole.
func Summarize(bills []domain.Bill, presetNames map[string]string) domain.Summary {
	var (
		overview  = zeroOverview()
		payments  = domain.PaymentBreakdown{Cash: zeroBucket(), Card: zeroBucket(), UPI: zeroBucket(), Split: zeroBucket()}
		custom    = domain.DiscountBucket{TotalDiscount: decimal.Zero}
		unpaid    = domain.UnpaidSummary{TotalDue: decimal.Zero}
		byPreset  = map[string]*domain.PresetDiscountBucket{}
		presetIDs []string
	)

	for _, bill := range bills {
		if bill.IsCancelled() {
			overview.CancelledBills++
			continue
		}
		overview.ActiveBills++
		overview.TotalRevenue = overview.TotalRevenue.Add(bill.GrandTotal)
		overview.TotalTaxCollected = overview.TotalTaxCollected.Add(bill.TotalTax)
		overview.TotalCGST = overview.TotalCGST.Add(bill.CGSTAmount)
		overview.TotalSGST = overview.TotalSGST.Add(bill.SGSTAmount)
		overview.TotalServiceCharge = overview.TotalServiceCharge.Add(bill.ServiceChargeAmount)
		overview.TotalItemDiscounts = overview.TotalItemDiscounts.Add(bill.TotalItemDiscount)
		overview.TotalBillDiscounts = overview.TotalBillDiscounts.Add(bill.BillDiscountAmount)

		if bucket := paymentBucket(&payments, bill.PaymentMode); bucket != nil {
			bucket.Count++
			bucket.Amount = bucket.Amount.Add(bill.GrandTotal)
		}

		if bill.BillDiscountAmount.Sign() > 0 {
			if bill.DiscountPresetID == "" {
				custom.Count++
				custom.TotalDiscount = custom.TotalDiscount.Add(bill.BillDiscountAmount)
			} else {
				bucket, ok := byPreset[bill.DiscountPresetID]
				if !ok {
					name := presetNames[bill.DiscountPresetID]
					if name == "" {
						name = bill.DiscountPresetID
					}
					bucket = &domain.PresetDiscountBucket{PresetID: bill.DiscountPresetID, Name: name, TotalDiscount: decimal.Zero}
					byPreset[bill.DiscountPresetID] = bucket
					presetIDs = append(presetIDs, bill.DiscountPresetID)
				}
				bucket.Count++
				bucket.TotalDiscount = bucket.TotalDiscount.Add(bill.BillDiscountAmount)
			}
		}

		if bill.PaymentStatus == domain.PaymentStatusUnpaid || bill.PaymentStatus == domain.PaymentStatusPartiallyPaid {
			unpaid.Count++
			due := bill.GrandTotal.Sub(bill.PaidAmount)
			if due.Sign() > 0 {
				unpaid.TotalDue = unpaid.TotalDue.Add(due)
			}
		}
	}

	overview.TotalDiscount = overview.TotalItemDiscounts.Add(overview.TotalBillDiscounts)
	if overview.ActiveBills > 0 {
		overview.AverageBillValue = Round2(overview.TotalRevenue.Div(decimal.NewFromInt(int64(overview.ActiveBills))))
	}
	roundOverview(&overview)

	presets := make([]domain.PresetDiscountBucket, 0, len(presetIDs))
	for _, id := range presetIDs {
		bucket := *byPreset[id]
		bucket.TotalDiscount = Round2(bucket.TotalDiscount)
		presets = append(presets, bucket)
	}
	sort.SliceStable(presets, func(i, j int) bool {
		if !presets[i].TotalDiscount.Equal(presets[j].TotalDiscount) {
			return presets[i].TotalDiscount.GreaterThan(presets[j].TotalDiscount)
		}
		return presets[i].Name < presets[j].Name
	})
	custom.TotalDiscount = Round2(custom.TotalDiscount)
	unpaid.TotalDue = Round2(unpaid.TotalDue)
	for _, bucket := range []*domain.PaymentBucket{&payments.Cash, &payments.Card, &payments.UPI, &payments.Split} {
		bucket.Amount = Round2(bucket.Amount)
	}

	return domain.Summary{
		Overview:          overview,
		PaymentBreakdown:  payments,
		DiscountBreakdown: domain.DiscountBreakdown{Presets: presets, CustomDiscounts: custom},
		UnpaidBills:       unpaid,
	}
}

func paymentBucket(b *domain.PaymentBreakdown, mode string) *domain.PaymentBucket {
	switch mode {
	case domain.PaymentModeCash:
		return &b.Cash
	case domain.PaymentModeCard:
		return &b.Card
	case domain.PaymentModeUPI:
		return &b.UPI
	case domain.PaymentModeSplit:
		return &b.Split
	default:
		return nil
	}
}

func zeroBucket() domain.PaymentBucket {
	return domain.PaymentBucket{Amount: decimal.Zero}
}

func zeroOverview() domain.SummaryOverview {
	return domain.SummaryOverview{
		TotalRevenue:       decimal.Zero,
		AverageBillValue:   decimal.Zero,
		TotalTaxCollected:  decimal.Zero,
		TotalCGST:          decimal.Zero,
		TotalSGST:          decimal.Zero,
		TotalServiceCharge: decimal.Zero,
		TotalDiscount:      decimal.Zero,
		TotalItemDiscounts: decimal.Zero,
		TotalBillDiscounts: decimal.Zero,
	}
}

func roundOverview(o *domain.SummaryOverview) {
	o.TotalRevenue = Round2(o.TotalRevenue)
	o.TotalTaxCollected = Round2(o.TotalTaxCollected)
	o.TotalCGST = Round2(o.TotalCGST)
	o.TotalSGST = Round2(o.TotalSGST)
	o.TotalServiceCharge = Round2(o.TotalServiceCharge)
	o.TotalDiscount = Round2(o.TotalDiscount)
	o.TotalItemDiscounts = Round2(o.TotalItemDiscounts)
	o.TotalBillDiscounts = Round2(o.TotalBillDiscounts)
}

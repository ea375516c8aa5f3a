package invoice

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleBill() domain.Bill {
	ten := dec("10")
	return domain.Bill{
		ID:           "bill-1",
		BillNumber:   42,
		RestaurantID: "r1",
		TableNumber:  "T3",
		CreatedAt:    time.Date(2026, 3, 14, 7, 35, 0, 0, time.UTC),
		CustomerName: "Asha",
		CalculationResult: domain.CalculationResult{
			OrderType: domain.OrderTypeDineIn,
			Items: []domain.BillItem{
				{MenuItemID: "m1", OrderID: "o1", Name: "Paneer Butter Masala With Extra Gravy", Quantity: 2, Price: dec("220"), LineTotal: dec("440"), DiscountType: domain.DiscountTypePercentage, DiscountValue: &ten, DiscountAmount: dec("44")},
				{MenuItemID: "m2", OrderID: "o1", Name: "Butter Naan", Quantity: 4, Price: dec("45"), LineTotal: dec("180"), DiscountAmount: decimal.Zero},
			},
			Subtotal:            dec("620"),
			TotalItemDiscount:   dec("44"),
			AfterItemDiscount:   dec("576"),
			BillDiscountAmount:  decimal.Zero,
			AfterAllDiscounts:   dec("576"),
			ServiceChargeRate:   dec("10"),
			ServiceChargeAmount: dec("57.60"),
			PackagingCharge:     decimal.Zero,
			TaxableAmount:       dec("633.60"),
			GSTScheme:           domain.GSTSchemeRegular,
			CGSTRate:            dec("2.5"),
			CGSTAmount:          dec("15.84"),
			SGSTRate:            dec("2.5"),
			SGSTAmount:          dec("15.84"),
			TotalTax:            dec("31.68"),
			RoundOff:            dec("-0.28"),
			GrandTotal:          dec("665.00"),
		},
		PaymentMode:   domain.PaymentModeCash,
		PaymentStatus: domain.PaymentStatusPaid,
		PaidAmount:    dec("665.00"),
	}
}

func sampleProfile() domain.Settings {
	return domain.Settings{
		RestaurantName: "Spice Route",
		Address:        "12 MG Road, Bengaluru 560001",
		Phone:          "+91 80 5555 0101",
		GSTIN:          "29ABCDE1234F1Z5",
		Currency:       "INR",
		InvoiceFooter:  "Thank you, visit again",
	}
}

func TestRenderThermalLayout(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	receipt := RenderThermal(sampleBill(), sampleProfile(), ist)

	for _, line := range receipt.Lines {
		if n := len([]rune(line)); n > Width {
			t.Fatalf("line exceeds %d columns (%d): %q", Width, n, line)
		}
	}
	text := receipt.Text()
	for _, want := range []string{"Bill No: 42", "2026-03-14 13:05", "CGST 2.5%", "SGST 2.5%", "Round off", "-0.28", "INR 665.00", "Discount 10%", "GSTIN: 29ABCDE1234F1Z5"} {
		if !strings.Contains(text, want) {
			t.Fatalf("receipt missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "CANCELLED") {
		t.Fatalf("active bill must not carry a cancelled banner")
	}
	if !bytes.HasPrefix(receipt.ESCPOS, escInit) || !bytes.HasSuffix(receipt.ESCPOS, escCut) {
		t.Fatalf("escpos payload must start with init and end with cut")
	}
}

func TestRenderThermalCompositionAndCancelled(t *testing.T) {
	bill := sampleBill()
	bill.GSTScheme = domain.GSTSchemeComposition
	bill.CGSTAmount, bill.SGSTAmount, bill.TotalTax = decimal.Zero, decimal.Zero, decimal.Zero
	at := bill.CreatedAt.Add(time.Hour)
	bill.PaymentStatus = domain.PaymentStatusCancelled
	bill.CancelledAt = &at
	bill.CancelReason = "Customer walked out"

	text := RenderThermal(bill, sampleProfile(), time.UTC).Text()
	if strings.Contains(text, "CGST") || strings.Contains(text, "SGST") {
		t.Fatalf("composition bill must not print CGST/SGST:\n%s", text)
	}
	if !strings.Contains(text, "Composition taxable person") {
		t.Fatalf("composition declaration missing:\n%s", text)
	}
	if !strings.Contains(text, "*** CANCELLED ***") || !strings.Contains(text, "Customer walked out") {
		t.Fatalf("cancelled banner missing:\n%s", text)
	}
}

func TestRenderThermalPartialPaymentShowsBalance(t *testing.T) {
	bill := sampleBill()
	bill.PaymentStatus = domain.PaymentStatusPartiallyPaid
	bill.PaidAmount = dec("500")

	text := RenderThermal(bill, sampleProfile(), time.UTC).Text()
	if !strings.Contains(text, "PARTIALLY PAID") || !strings.Contains(text, "165.00") {
		t.Fatalf("expected balance due 165.00:\n%s", text)
	}
}

func TestRenderPDF(t *testing.T) {
	bill := sampleBill()
	bill.PaymentMode = domain.PaymentModeSplit
	bill.SplitPayments = []domain.SplitPayment{
		{Mode: domain.PaymentModeCash, Amount: dec("300")},
		{Mode: domain.PaymentModeUPI, Amount: dec("365")},
	}

	out, err := RenderPDF(bill, sampleProfile(), time.UTC)
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}
}

func TestWrapAndLeftRight(t *testing.T) {
	lines := wrap("Composition taxable person, not eligible to collect tax on supplies", Width)
	if len(lines) != 2 {
		t.Fatalf("expected two wrapped lines, got %q", lines)
	}
	if got := leftRight(strings.Repeat("x", 50), "9.99"); len(got) != Width || !strings.HasSuffix(got, " 9.99") {
		t.Fatalf("leftRight should truncate the label, got %q", got)
	}
}

package billing

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"restopos/backend/internal/domain"
)

func reportBill(number int64, mode, status, grand, billDiscount, presetID string) domain.Bill {
	bill := sampleBill()
	bill.ID = "bill-" + decimal.NewFromInt(number).String()
	bill.BillNumber = number
	bill.PaymentMode = mode
	bill.PaymentStatus = status
	bill.GrandTotal = money(grand)
	bill.BillDiscountAmount = money(billDiscount)
	bill.DiscountPresetID = presetID
	bill.CGSTAmount = money("4.95")
	bill.SGSTAmount = money("4.95")
	bill.ServiceChargeAmount = money("18")
	if status == domain.PaymentStatusPaid {
		bill.PaidAmount = bill.GrandTotal
	}
	return bill
}

func TestSummarize(t *testing.T) {
	partial := reportBill(4, domain.PaymentModeCash, domain.PaymentStatusPartiallyPaid, "150", "0", "")
	partial.PaidAmount = money("50")

	bills := []domain.Bill{
		reportBill(1, domain.PaymentModeCash, domain.PaymentStatusPaid, "207.90", "10", ""),
		reportBill(2, domain.PaymentModeSplit, domain.PaymentStatusPaid, "300", "25", "preset-hh"),
		reportBill(3, domain.PaymentModeUPI, domain.PaymentStatusUnpaid, "100.10", "25", "preset-hh"),
		partial,
		reportBill(5, domain.PaymentModeCard, domain.PaymentStatusCancelled, "999", "99", "preset-hh"),
	}

	summary := Summarize(bills, map[string]string{"preset-hh": "Weekend lunch"})
	o := summary.Overview
	require.Equal(t, 4, o.ActiveBills)
	require.Equal(t, 1, o.CancelledBills)
	requireMoney(t, "758", o.TotalRevenue, "total_revenue")
	requireMoney(t, "189.50", o.AverageBillValue, "average_bill_value")
	requireMoney(t, "39.60", o.TotalTaxCollected, "total_tax")
	requireMoney(t, "19.80", o.TotalCGST, "total_cgst")
	requireMoney(t, "19.80", o.TotalSGST, "total_sgst")
	requireMoney(t, "72", o.TotalServiceCharge, "total_service_charge")
	requireMoney(t, "80", o.TotalItemDiscounts, "total_item_discounts")
	requireMoney(t, "60", o.TotalBillDiscounts, "total_bill_discounts")
	requireMoney(t, "140", o.TotalDiscount, "total_discount")

	p := summary.PaymentBreakdown
	require.Equal(t, 2, p.Cash.Count)
	requireMoney(t, "357.90", p.Cash.Amount, "cash")
	require.Equal(t, 1, p.Split.Count)
	requireMoney(t, "300", p.Split.Amount, "split")
	require.Equal(t, 1, p.UPI.Count)
	require.Equal(t, 0, p.Card.Count)

	d := summary.DiscountBreakdown
	require.Len(t, d.Presets, 1)
	require.Equal(t, "Weekend lunch", d.Presets[0].Name)
	require.Equal(t, 2, d.Presets[0].Count)
	requireMoney(t, "50", d.Presets[0].TotalDiscount, "preset discount")
	require.Equal(t, 1, d.CustomDiscounts.Count)
	requireMoney(t, "10", d.CustomDiscounts.TotalDiscount, "custom discount")

	require.Equal(t, 2, summary.UnpaidBills.Count)
	requireMoney(t, "200.10", summary.UnpaidBills.TotalDue, "total_due")
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, nil)
	require.Equal(t, 0, summary.Overview.ActiveBills)
	requireMoney(t, "0", summary.Overview.AverageBillValue, "average_bill_value")
	require.NotNil(t, summary.DiscountBreakdown.Presets)
}

func TestExportCSV(t *testing.T) {
	bill := reportBill(42, domain.PaymentModeCash, domain.PaymentStatusPaid, "207.90", "0", "")
	bill.CreatedAt = time.Date(2026, 3, 14, 7, 35, 0, 0, time.UTC)
	bill.TableNumber = "T4"
	bill.CustomerName = `Ravi "RK" Kumar, Jr`
	bill.CustomerMobile = "9876543210"
	bill.ServiceChargeAmount = money("18")
	bill.RoundOff = decimal.Zero

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []domain.Bill{bill}, ist))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, "\ufeff"), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Bill No,Date,Table,Customer,Mobile,Subtotal,Item Discount,Bill Discount,After Discounts,Service Charge,Taxable Amount,CGST,SGST,Total Tax,Round Off,Grand Total,Payment Mode,Status", lines[0])
	require.Equal(t, `"42","2026-03-14 13:05","T4","Ravi ""RK"" Kumar, Jr","9876543210","200.00","20.00","0.00","180.00","18.00","198.00","4.95","4.95","9.90","0.00","207.90","cash","paid"`, lines[1])
}

func TestExportCSVNeutralizesFormulas(t *testing.T) {
	bill := reportBill(7, domain.PaymentModeCash, domain.PaymentStatusPaid, "207.90", "0", "")
	bill.CreatedAt = time.Date(2026, 3, 14, 7, 35, 0, 0, time.UTC)
	bill.TableNumber = "@T1"
	bill.CustomerName = `=HYPERLINK("http://x","y")`
	bill.CustomerMobile = "+919876543210"
	bill.RoundOff = money("-0.10")

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []domain.Bill{bill}, ist))

	row := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")[1]
	require.Contains(t, row, `"'@T1"`)
	require.Contains(t, row, `"'=HYPERLINK(""http://x"",""y"")"`)
	require.Contains(t, row, `"+919876543210"`)
	require.Contains(t, row, `"-0.10"`)
}

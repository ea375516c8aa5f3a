package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"restopos/backend/internal/domain"
)

// RenderPDF produces an A4 tax invoice for a persisted bill.
func RenderPDF(bill domain.Bill, profile domain.Settings, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	title := "TAX INVOICE"
	if bill.GSTScheme == domain.GSTSchemeComposition {
		title = "BILL OF SUPPLY"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(fmt.Sprintf("Invoice %d", bill.BillNumber), false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, tr(defaultString(profile.RestaurantName, "Restaurant")), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if profile.Address != "" {
		pdf.MultiCell(0, 5, tr(profile.Address), "", "C", false)
	}
	if profile.Phone != "" {
		pdf.CellFormat(0, 5, tr("Phone: "+profile.Phone), "", 1, "C", false, 0, "")
	}
	if profile.GSTIN != "" {
		pdf.CellFormat(0, 5, "GSTIN: "+profile.GSTIN, "", 1, "C", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, title, "TB", 1, "C", false, 0, "")

	if bill.IsCancelled() {
		pdf.SetTextColor(200, 0, 0)
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, "CANCELLED", "", 1, "C", false, 0, "")
		if bill.CancelReason != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(0, 5, tr("Reason: "+bill.CancelReason), "", "C", false)
		}
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 10)
	half := 90.0
	pdf.CellFormat(half, 6, fmt.Sprintf("Bill No: %d", bill.BillNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+bill.CreatedAt.In(loc).Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
	pdf.CellFormat(half, 6, tr("Table: "+defaultString(bill.TableNumber, "-")), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Order type: "+strings.ReplaceAll(bill.OrderType, "_", " "), "", 1, "R", false, 0, "")
	if bill.CustomerName != "" || bill.CustomerMobile != "" {
		pdf.CellFormat(0, 6, tr(strings.TrimSpace("Customer: "+bill.CustomerName+" "+bill.CustomerMobile)), "", 1, "L", false, 0, "")
	}
	if bill.CustomerGSTIN != "" {
		pdf.CellFormat(0, 6, "Customer GSTIN: "+bill.CustomerGSTIN, "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	widths := []float64{80, 20, 25, 25, 30}
	headers := []string{"Item", "Qty", "Rate", "Discount", "Amount"}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, item := range bill.Items {
		discount := "-"
		if item.DiscountAmount.IsPositive() {
			discount = "-" + money(item.DiscountAmount)
		}
		pdf.CellFormat(widths[0], 6, tr(truncate(item.Name, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, money(item.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, discount, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, money(item.LineTotal.Sub(item.DiscountAmount)), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	labelWidth := widths[0] + widths[1] + widths[2] + widths[3]
	for _, row := range totals(bill) {
		pdf.CellFormat(labelWidth, 6, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, row.amount, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(labelWidth, 8, "Grand total ("+defaultString(profile.Currency, "INR")+")", "T", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 8, money(bill.GrandTotal), "T", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
	for _, line := range paymentLines(bill) {
		pdf.CellFormat(0, 5, strings.TrimSpace(collapseSpaces(line)), "", 1, "L", false, 0, "")
	}

	if bill.GSTScheme == domain.GSTSchemeComposition {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, compositionDeclaration, "", "L", false)
	}
	if bill.Notes != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr("Notes: "+bill.Notes), "", "L", false)
	}
	if profile.InvoiceFooter != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, tr(profile.InvoiceFooter), "", "C", false)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

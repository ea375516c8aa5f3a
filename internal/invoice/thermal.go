package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

// Width is the character width of an 80mm thermal roll in font A.
const Width = 42

const compositionDeclaration = "Composition taxable person, not eligible to collect tax on supplies"

var (
	escInit = []byte{0x1b, 0x40}
	escFeed = []byte{0x1b, 0x64, 0x03}
	escCut  = []byte{0x1d, 0x56, 0x41, 0x10}
)

type Thermal struct {
	Lines  []string
	ESCPOS []byte
}

func (t Thermal) Text() string {
	return strings.Join(t.Lines, "\n")
}

// RenderThermal lays out a persisted bill for a 42-column receipt printer.
func RenderThermal(bill domain.Bill, profile domain.Settings, loc *time.Location) Thermal {
	if loc == nil {
		loc = time.UTC
	}
	rule := strings.Repeat("-", Width)
	double := strings.Repeat("=", Width)

	lines := make([]string, 0, 48+len(bill.Items)*2)
	lines = append(lines, center(defaultString(profile.RestaurantName, "Restaurant")))
	for _, extra := range []string{profile.Address, profile.Phone} {
		for _, wrapped := range wrap(extra, Width) {
			lines = append(lines, center(wrapped))
		}
	}
	if profile.GSTIN != "" {
		lines = append(lines, center("GSTIN: "+profile.GSTIN))
	}
	lines = append(lines, double)
	if bill.IsCancelled() {
		lines = append(lines, center("*** CANCELLED ***"))
		if bill.CancelReason != "" {
			lines = append(lines, wrap("Reason: "+bill.CancelReason, Width)...)
		}
		lines = append(lines, rule)
	}

	lines = append(lines,
		leftRight(fmt.Sprintf("Bill No: %d", bill.BillNumber), bill.CreatedAt.In(loc).Format("2006-01-02 15:04")),
		leftRight("Table: "+defaultString(bill.TableNumber, "-"), "Type: "+bill.OrderType),
	)
	if bill.CustomerName != "" {
		lines = append(lines, truncate("Customer: "+bill.CustomerName, Width))
	}
	if bill.CustomerGSTIN != "" {
		lines = append(lines, "Cust GSTIN: "+bill.CustomerGSTIN)
	}
	lines = append(lines, rule, fmt.Sprintf("%-20s%4s%8s%10s", "Item", "Qty", "Rate", "Amount"), rule)

	for _, item := range bill.Items {
		lines = append(lines, fmt.Sprintf("%-20s%4d%8s%10s", truncate(item.Name, 20), item.Quantity, money(item.Price), money(item.LineTotal)))
		if item.DiscountAmount.IsPositive() {
			label := "  Discount"
			if item.DiscountValue != nil {
				label = fmt.Sprintf("  Discount %s%%", item.DiscountValue.String())
			}
			lines = append(lines, leftRight(label, "-"+money(item.DiscountAmount)))
		}
	}
	lines = append(lines, rule)
	lines = append(lines, totalsLines(bill)...)
	lines = append(lines, double)
	lines = append(lines, leftRight("GRAND TOTAL", defaultString(profile.Currency, "INR")+" "+money(bill.GrandTotal)))
	lines = append(lines, rule)
	lines = append(lines, paymentLines(bill)...)

	if bill.GSTScheme == domain.GSTSchemeComposition {
		lines = append(lines, rule)
		lines = append(lines, wrap(compositionDeclaration, Width)...)
	}
	if profile.InvoiceFooter != "" {
		lines = append(lines, rule)
		for _, wrapped := range wrap(profile.InvoiceFooter, Width) {
			lines = append(lines, center(wrapped))
		}
	}
	lines = append(lines, "")

	escpos := append([]byte{}, escInit...)
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, escFeed...)
	escpos = append(escpos, escCut...)

	return Thermal{Lines: lines, ESCPOS: escpos}
}

type labeledAmount struct {
	label  string
	amount string
}

// totals returns the summary rows shared by every renderer. Zero-value
// optional rows are left out; composition bills never show CGST or SGST.
func totals(bill domain.Bill) []labeledAmount {
	rows := []labeledAmount{{"Subtotal", money(bill.Subtotal)}}
	if bill.TotalItemDiscount.IsPositive() {
		rows = append(rows, labeledAmount{"Item discounts", "-" + money(bill.TotalItemDiscount)})
	}
	if bill.BillDiscountAmount.IsPositive() {
		label := "Bill discount"
		if bill.BillDiscountType == domain.DiscountTypePercentage && bill.BillDiscountValue != nil {
			label = fmt.Sprintf("Bill discount %s%%", bill.BillDiscountValue.String())
		}
		rows = append(rows, labeledAmount{label, "-" + money(bill.BillDiscountAmount)})
	}
	if bill.ServiceChargeAmount.IsPositive() {
		rows = append(rows, labeledAmount{fmt.Sprintf("Service charge %s%%", bill.ServiceChargeRate.String()), money(bill.ServiceChargeAmount)})
	}
	if bill.PackagingCharge.IsPositive() {
		rows = append(rows, labeledAmount{"Packaging", money(bill.PackagingCharge)})
	}
	rows = append(rows, labeledAmount{"Taxable amount", money(bill.TaxableAmount)})
	if bill.GSTScheme != domain.GSTSchemeComposition {
		rows = append(rows,
			labeledAmount{fmt.Sprintf("CGST %s%%", bill.CGSTRate.String()), money(bill.CGSTAmount)},
			labeledAmount{fmt.Sprintf("SGST %s%%", bill.SGSTRate.String()), money(bill.SGSTAmount)},
		)
	}
	if !bill.RoundOff.IsZero() {
		rows = append(rows, labeledAmount{"Round off", signed(bill.RoundOff)})
	}
	return rows
}

func totalsLines(bill domain.Bill) []string {
	rows := totals(bill)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, leftRight(row.label, row.amount))
	}
	return lines
}

func paymentLines(bill domain.Bill) []string {
	lines := []string{leftRight("Payment: "+bill.PaymentMode, strings.ToUpper(strings.ReplaceAll(bill.PaymentStatus, "_", " ")))}
	for _, split := range bill.SplitPayments {
		lines = append(lines, leftRight("  "+split.Mode, money(split.Amount)))
	}
	if bill.PaymentStatus == domain.PaymentStatusPartiallyPaid {
		lines = append(lines,
			leftRight("Paid", money(bill.PaidAmount)),
			leftRight("Balance due", money(bill.GrandTotal.Sub(bill.PaidAmount))),
		)
	}
	return lines
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + money(d)
	}
	return money(d)
}

func center(s string) string {
	s = truncate(s, Width)
	pad := (Width - len([]rune(s))) / 2
	return strings.Repeat(" ", pad) + s
}

func leftRight(left, right string) string {
	space := Width - len([]rune(left)) - len([]rune(right))
	if space < 1 {
		left = truncate(left, Width-len([]rune(right))-1)
		space = 1
	}
	return left + strings.Repeat(" ", space) + right
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := ""
	for _, word := range words {
		word = truncate(word, width)
		switch {
		case current == "":
			current = word
		case len([]rune(current))+1+len([]rune(word)) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

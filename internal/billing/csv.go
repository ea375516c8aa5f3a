package billing

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

// utf8BOM makes spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

var csvHeader = []string{
	"Bill No", "Date", "Table", "Customer", "Mobile", "Subtotal", "Item Discount",
	"Bill Discount", "After Discounts", "Service Charge", "Taxable Amount", "CGST",
	"SGST", "Total Tax", "Round Off", "Grand Total", "Payment Mode", "Status",
}

// ExportCSV writes a bare header line then one row per bill. Every row value
// is quoted so that names with commas or quotes survive spreadsheet import,
// and text that a spreadsheet would run as a formula is prefixed with '.
func ExportCSV(w io.Writer, bills []domain.Bill, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	if _, err := bw.WriteString(strings.Join(csvHeader, ",") + "\r\n"); err != nil {
		return err
	}
	for _, bill := range bills {
		row := ReportRow(bill, loc)
		if err := writeCSVRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReportHeader returns the column titles shared by the CSV and XLSX exports.
func ReportHeader() []string {
	return append([]string(nil), csvHeader...)
}

// ReportRow renders one bill as export cells. Money is fixed to two decimals
// and the date is formatted in loc.
func ReportRow(bill domain.Bill, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	return []string{
		strconv.FormatInt(bill.BillNumber, 10),
		bill.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		bill.TableNumber,
		bill.CustomerName,
		bill.CustomerMobile,
		bill.Subtotal.StringFixed(2),
		bill.TotalItemDiscount.StringFixed(2),
		bill.BillDiscountAmount.StringFixed(2),
		bill.AfterAllDiscounts.StringFixed(2),
		bill.ServiceChargeAmount.StringFixed(2),
		bill.TaxableAmount.StringFixed(2),
		bill.CGSTAmount.StringFixed(2),
		bill.SGSTAmount.StringFixed(2),
		bill.TotalTax.StringFixed(2),
		bill.RoundOff.StringFixed(2),
		bill.GrandTotal.StringFixed(2),
		bill.PaymentMode,
		bill.PaymentStatus,
	}
}

func writeCSVRow(w *bufio.Writer, values []string) error {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(neutralizeFormula(v), `"`, `""`) + `"`
	}
	_, err := w.WriteString(strings.Join(quoted, ",") + "\r\n")
	return err
}

// neutralizeFormula prefixes text starting with a formula trigger. Numbers
// such as a negative round off are left alone.
func neutralizeFormula(v string) string {
	if v == "" || !strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return v
	}
	if _, err := decimal.NewFromString(v); err == nil {
		return v
	}
	return "'" + v
}

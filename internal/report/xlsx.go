package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"restopos/backend/internal/billing"
	"restopos/backend/internal/domain"
)

const (
	billsSheet   = "Bills"
	summarySheet = "Summary"
)

// money columns in the shared export layout, zero based.
const (
	firstMoneyCol = 5
	lastMoneyCol  = 15
)

// BillsWorkbook builds an XLSX workbook with one row per bill on the Bills
// sheet and the aggregated summary on a second sheet. Money cells are numeric
// with a two decimal format so spreadsheets can total them.
func BillsWorkbook(bills []domain.Bill, summary domain.Summary, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", billsSheet); err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := billing.ReportHeader()
	if err := setRow(f, billsSheet, 1, toCells(header)); err != nil {
		return nil, err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(billsSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, bill := range bills {
		row := billing.ReportRow(bill, loc)
		cells := make([]any, len(row))
		for col, value := range row {
			switch {
			case col == 0:
				cells[col] = bill.BillNumber
			case col >= firstMoneyCol && col <= lastMoneyCol:
				cells[col] = decimal.RequireFromString(value).InexactFloat64()
			default:
				cells[col] = value
			}
		}
		if err := setRow(f, billsSheet, i+2, cells); err != nil {
			return nil, err
		}
	}
	if len(bills) > 0 {
		from, _ := excelize.CoordinatesToCellName(firstMoneyCol+1, 2)
		to, _ := excelize.CoordinatesToCellName(lastMoneyCol+1, len(bills)+1)
		if err := f.SetCellStyle(billsSheet, from, to, moneyStyle); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	o := summary.Overview
	rows := [][]any{
		{"Restaurant", summary.RestaurantID},
		{"From", summary.From},
		{"To", summary.To},
		{"Active bills", o.ActiveBills},
		{"Cancelled bills", o.CancelledBills},
		{"Unpaid bills", summary.UnpaidBills.Count},
		{"Total revenue", o.TotalRevenue.InexactFloat64()},
		{"Average bill value", o.AverageBillValue.InexactFloat64()},
		{"Total tax collected", o.TotalTaxCollected.InexactFloat64()},
		{"CGST", o.TotalCGST.InexactFloat64()},
		{"SGST", o.TotalSGST.InexactFloat64()},
		{"Service charge", o.TotalServiceCharge.InexactFloat64()},
		{"Total discount", o.TotalDiscount.InexactFloat64()},
		{"Item discounts", o.TotalItemDiscounts.InexactFloat64()},
		{"Bill discounts", o.TotalBillDiscounts.InexactFloat64()},
		{"Total due", summary.UnpaidBills.TotalDue.InexactFloat64()},
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "B7", fmt.Sprintf("B%d", len(rows)), moneyStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

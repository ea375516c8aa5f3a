package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"restopos/backend/internal/billing"
	"restopos/backend/internal/cache"
	"restopos/backend/internal/domain"
	"restopos/backend/internal/invoice"
	"restopos/backend/internal/report"
	"restopos/backend/internal/store"
)

const dateLayout = "2006-01-02"

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// dateWindow is an inclusive range of local dates mapped to the half-open
// UTC interval [start, end). A zero window is unbounded.
type dateWindow struct {
	from  string
	to    string
	start time.Time
	end   time.Time
}

func (s *Service) parseRange(from string, to string) (dateWindow, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" && to == "" {
		return dateWindow{}, nil
	}
	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}

	start, err := time.ParseInLocation(dateLayout, from, s.location)
	if err != nil {
		return dateWindow{}, fmt.Errorf("%w: from must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	last, err := time.ParseInLocation(dateLayout, to, s.location)
	if err != nil {
		return dateWindow{}, fmt.Errorf("%w: to must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	if last.Before(start) {
		return dateWindow{}, fmt.Errorf("%w: from must not be after to", store.ErrInvalidInput)
	}
	return dateWindow{
		from:  from,
		to:    to,
		start: start.UTC(),
		end:   last.AddDate(0, 0, 1).UTC(),
	}, nil
}

func (s *Service) today() string {
	return s.now().In(s.location).Format(dateLayout)
}

// Summary aggregates the bills of a date range. Results are cached under
// the restaurant's current revision, which every bill mutation bumps.
func (s *Service) Summary(ctx context.Context, restaurantID string, from string, to string) (domain.Summary, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.Summary{}, err
	}
	if strings.TrimSpace(from) == "" && strings.TrimSpace(to) == "" {
		from = s.today()
	}
	window, err := s.parseRange(from, to)
	if err != nil {
		return domain.Summary{}, err
	}

	key := ""
	if revision, err := s.summaryCache.Revision(ctx, restaurantID); err != nil {
		s.logger.Warn("summary cache unavailable", zap.String("restaurant_id", restaurantID), zap.Error(err))
	} else {
		key = cache.SummaryKey(restaurantID, revision, window.from, window.to)
		cached, ok, err := s.summaryCache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("summary cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return *cached, nil
		}
	}

	summary, err := s.buildSummary(ctx, restaurantID, window)
	if err != nil {
		return domain.Summary{}, err
	}

	if key != "" {
		if err := s.summaryCache.Set(ctx, key, &summary, s.summaryTTL); err != nil {
			s.logger.Warn("summary cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *Service) buildSummary(ctx context.Context, restaurantID string, window dateWindow) (domain.Summary, error) {
	bills, err := s.repo.ListBills(ctx, domain.BillListFilter{RestaurantID: restaurantID, From: window.start, To: window.end})
	if err != nil {
		return domain.Summary{}, err
	}
	return s.summarize(ctx, restaurantID, window, bills)
}

func (s *Service) summarize(ctx context.Context, restaurantID string, window dateWindow, bills []domain.Bill) (domain.Summary, error) {
	presets, err := s.repo.ListPresets(ctx, restaurantID, true)
	if err != nil {
		return domain.Summary{}, err
	}
	names := make(map[string]string, len(presets))
	for _, preset := range presets {
		names[preset.ID] = preset.Name
	}

	summary := billing.Summarize(bills, names)
	summary.RestaurantID = restaurantID
	summary.From = window.from
	summary.To = window.to
	summary.GeneratedAt = s.now()
	return summary, nil
}

// Export is a generated document ready to be served or archived.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

func (s *Service) exportWindow(ctx context.Context, restaurantID string, from string, to string, status string) (string, dateWindow, []domain.Bill, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return "", dateWindow{}, nil, err
	}
	if strings.TrimSpace(from) == "" && strings.TrimSpace(to) == "" {
		from = s.today()
	}
	window, err := s.parseRange(from, to)
	if err != nil {
		return "", dateWindow{}, nil, err
	}
	status, err = normalizeStatusFilter(status)
	if err != nil {
		return "", dateWindow{}, nil, err
	}
	bills, err := s.repo.ListBills(ctx, domain.BillListFilter{
		RestaurantID: restaurantID,
		From:         window.start,
		To:           window.end,
		Status:       status,
	})
	if err != nil {
		return "", dateWindow{}, nil, err
	}
	return restaurantID, window, bills, nil
}

func (s *Service) ExportBillsCSV(ctx context.Context, restaurantID string, from string, to string, status string) (Export, error) {
	_, window, bills, err := s.exportWindow(ctx, restaurantID, from, to, status)
	if err != nil {
		return Export{}, err
	}
	var buf bytes.Buffer
	if err := billing.ExportCSV(&buf, bills, s.location); err != nil {
		return Export{}, err
	}
	return Export{
		FileName:    fmt.Sprintf("bills-%s-to-%s.csv", window.from, window.to),
		ContentType: contentTypeCSV,
		Body:        buf.Bytes(),
	}, nil
}

// ExportBillsXLSX builds a workbook with the bill rows and the summary of
// the same range.
func (s *Service) ExportBillsXLSX(ctx context.Context, restaurantID string, from string, to string, status string) (Export, error) {
	restaurantID, window, bills, err := s.exportWindow(ctx, restaurantID, from, to, status)
	if err != nil {
		return Export{}, err
	}
	summary, err := s.summarize(ctx, restaurantID, window, bills)
	if err != nil {
		return Export{}, err
	}
	body, err := report.BillsWorkbook(bills, summary, s.location)
	if err != nil {
		return Export{}, err
	}
	return Export{
		FileName:    fmt.Sprintf("bills-%s-to-%s.xlsx", window.from, window.to),
		ContentType: contentTypeXLSX,
		Body:        body,
	}, nil
}

func (s *Service) ArchiveBillsCSV(ctx context.Context, restaurantID string, from string, to string, status string) (domain.ArchiveResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.ArchiveResponse{}, err
	}
	if s.archiver == nil {
		return domain.ArchiveResponse{}, ErrArchiveUnavailable
	}
	resolved, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.ArchiveResponse{}, err
	}
	export, err := s.ExportBillsCSV(ctx, resolved, from, to, status)
	if err != nil {
		return domain.ArchiveResponse{}, err
	}
	key := fmt.Sprintf("exports/%s/%d-%s", resolved, s.now().Unix(), export.FileName)
	return s.archive(ctx, resolved, "bills_export_archive", "export", key, key, export)
}

func (s *Service) ThermalInvoice(ctx context.Context, restaurantID string, billID string) (domain.ThermalInvoiceResponse, error) {
	bill, profile, err := s.invoiceSource(ctx, restaurantID, billID)
	if err != nil {
		return domain.ThermalInvoiceResponse{}, err
	}
	receipt := invoice.RenderThermal(bill, profile, s.location)
	return domain.ThermalInvoiceResponse{
		BillID:       bill.ID,
		EscposBase64: base64.StdEncoding.EncodeToString(receipt.ESCPOS),
		PreviewText:  receipt.Text(),
		FileName:     fmt.Sprintf("bill-%d.bin", bill.BillNumber),
	}, nil
}

func (s *Service) InvoicePDF(ctx context.Context, restaurantID string, billID string) (Export, error) {
	bill, profile, err := s.invoiceSource(ctx, restaurantID, billID)
	if err != nil {
		return Export{}, err
	}
	body, err := invoice.RenderPDF(bill, profile, s.location)
	if err != nil {
		return Export{}, err
	}
	return Export{
		FileName:    fmt.Sprintf("bill-%d.pdf", bill.BillNumber),
		ContentType: contentTypePDF,
		Body:        body,
	}, nil
}

func (s *Service) ArchiveInvoicePDF(ctx context.Context, restaurantID string, billID string) (domain.ArchiveResponse, error) {
	if s.archiver == nil {
		return domain.ArchiveResponse{}, ErrArchiveUnavailable
	}
	resolved, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.ArchiveResponse{}, err
	}
	export, err := s.InvoicePDF(ctx, resolved, billID)
	if err != nil {
		return domain.ArchiveResponse{}, err
	}
	key := fmt.Sprintf("invoices/%s/%s", resolved, export.FileName)
	return s.archive(ctx, resolved, "invoice_archive", "bill", strings.TrimSpace(billID), key, export)
}

func (s *Service) archive(ctx context.Context, restaurantID string, action string, entityType string, entityID string, key string, export Export) (domain.ArchiveResponse, error) {
	url, err := s.archiver.PutObject(ctx, key, export.Body, export.ContentType, "")
	if err != nil {
		return domain.ArchiveResponse{}, err
	}
	s.logAudit(ctx, restaurantID, action, entityType, entityID, fmt.Sprintf("key=%s,bytes=%d", key, len(export.Body)))
	return domain.ArchiveResponse{
		Key:         key,
		URL:         url,
		ContentType: export.ContentType,
		Bytes:       len(export.Body),
	}, nil
}

func (s *Service) invoiceSource(ctx context.Context, restaurantID string, billID string) (domain.Bill, domain.Settings, error) {
	bill, err := s.GetBill(ctx, restaurantID, billID)
	if err != nil {
		return domain.Bill{}, domain.Settings{}, err
	}
	profile, err := s.settingsFor(ctx, bill.RestaurantID)
	if err != nil {
		return domain.Bill{}, domain.Settings{}, err
	}
	return bill, profile, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, restaurantID string, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().Add(-24 * time.Hour)
	} else {
		parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.location)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, restaurantID, from, to, limit)
}

package httpapi

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/service"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleBillFeed authenticates with ?token= because browsers cannot set
// headers on a websocket handshake.
func (a *API) handleBillFeed(w http.ResponseWriter, r *http.Request) {
	if a.hub == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("realtime feed disabled"))
		return
	}
	actor, err := a.auth.ParseToken(strings.TrimSpace(r.URL.Query().Get("token")))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	a.hub.Serve(w, r, actor.RestaurantID)
}

func restaurantParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("restaurant_id"))
}

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderCreateRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	order, err := a.service.CreateOrder(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (a *API) handleUnbilledOrders(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 200, 500)
	orders, err := a.service.ListUnbilledOrders(r.Context(), restaurantParam(r), limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handlePreviewBill(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculationRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	preview, err := a.service.PreviewBill(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (a *API) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBillRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	bill, err := a.service.CreateBill(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bill": bill})
}

func (a *API) handleListBills(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), 100, 1000)
	bills, err := a.service.ListBills(r.Context(), restaurantParam(r), query.Get("from"), query.Get("to"), query.Get("status"), limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (a *API) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := a.service.GetBill(r.Context(), restaurantParam(r), chi.URLParam(r, "billID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
}

func (a *API) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePaymentRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	bill, err := a.service.UpdatePayment(r.Context(), restaurantParam(r), chi.URLParam(r, "billID"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
}

// handleCancelBill lets admins cancel directly. Cashiers must present the
// manager PIN, which is rate limited per client.
func (a *API) handleCancelBill(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}

	approved := false
	if actor, _ := service.ActorFromContext(r.Context()); actor.Role != domain.RoleAdmin {
		if !a.pinLimiter.Allow("pin:cancel:" + clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
			writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
			return
		}
		approved = true
	}

	bill, err := a.service.CancelBill(r.Context(), restaurantParam(r), chi.URLParam(r, "billID"), req.CancelReason, approved)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
}

func (a *API) handleThermalInvoice(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.service.ThermalInvoice(r.Context(), restaurantParam(r), chi.URLParam(r, "billID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (a *API) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	export, err := a.service.InvoicePDF(r.Context(), restaurantParam(r), chi.URLParam(r, "billID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeDownload(w, export)
}

func (a *API) handleArchiveInvoice(w http.ResponseWriter, r *http.Request) {
	archived, err := a.service.ArchiveInvoicePDF(r.Context(), restaurantParam(r), chi.URLParam(r, "billID"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"archive": archived})
}

func (a *API) handleListPresets(w http.ResponseWriter, r *http.Request) {
	includeInactive := strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")
	presets, err := a.service.ListPresets(r.Context(), restaurantParam(r), includeInactive)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (a *API) handleEligiblePresets(w http.ResponseWriter, r *http.Request) {
	var at time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("at must be an RFC3339 timestamp"))
			return
		}
		at = parsed
	}
	presets, err := a.service.EligiblePresets(r.Context(), restaurantParam(r), at)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (a *API) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var req domain.PresetCreateRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	preset, err := a.service.CreatePreset(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"preset": preset})
}

func (a *API) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	var req domain.PresetCreateRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	preset, err := a.service.UpdatePreset(r.Context(), chi.URLParam(r, "presetID"), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preset": preset})
}

func (a *API) handleSetPresetActive(w http.ResponseWriter, r *http.Request) {
	var req domain.PresetToggleRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	preset, err := a.service.SetPresetActive(r.Context(), restaurantParam(r), chi.URLParam(r, "presetID"), req.Active)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preset": preset})
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetSettings(r.Context(), restaurantParam(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if !a.decodeRequest(w, r, &req) {
		return
	}
	settings, err := a.service.UpdateSettings(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// handleSummary serves JSON by default and a printable page for
// ?format=html.
func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	summary, err := a.service.Summary(r.Context(), restaurantParam(r), query.Get("from"), query.Get("to"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	if strings.EqualFold(query.Get("format"), "html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(summaryToPrintableHTML(summary)))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleBillsCSV(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	export, err := a.service.ExportBillsCSV(r.Context(), restaurantParam(r), query.Get("from"), query.Get("to"), query.Get("status"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeDownload(w, export)
}

func (a *API) handleBillsXLSX(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	export, err := a.service.ExportBillsXLSX(r.Context(), restaurantParam(r), query.Get("from"), query.Get("to"), query.Get("status"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeDownload(w, export)
}

func (a *API) handleArchiveBills(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	archived, err := a.service.ArchiveBillsCSV(r.Context(), restaurantParam(r), query.Get("from"), query.Get("to"), query.Get("status"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"archive": archived})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), restaurantParam(r), query.Get("date"), limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

func (a *API) handleListCashiers(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	cashiers := a.auth.ListCashiers(r.Context(), actor.RestaurantID)
	writeJSON(w, http.StatusOK, map[string]any{"cashiers": cashiers})
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	restaurantID := actor.RestaurantID
	if requested := strings.TrimSpace(req.RestaurantID); requested != "" && requested != restaurantID {
		writeError(w, http.StatusForbidden, service.ErrForbiddenRestaurant)
		return
	}

	cashier, err := a.auth.CreateCashier(r.Context(), restaurantID, req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUsernameTaken) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
}

// summaryHTMLTmpl auto-escapes every field, including preset names typed in
// by admins.
var summaryHTMLTmpl = template.Must(template.New("bill-summary").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Bill Summary {{.From}} to {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Bill Summary {{.From}} to {{.To}}</h2>
  <p>Restaurant: {{.RestaurantID}}</p>
  <p>Active bills: {{.Overview.ActiveBills}} | Cancelled: {{.Overview.CancelledBills}}</p>
  <p>Revenue: {{.Overview.TotalRevenue.StringFixed 2}} | Average: {{.Overview.AverageBillValue.StringFixed 2}} | Tax: {{.Overview.TotalTaxCollected.StringFixed 2}} (CGST {{.Overview.TotalCGST.StringFixed 2}}, SGST {{.Overview.TotalSGST.StringFixed 2}}) | Service charge: {{.Overview.TotalServiceCharge.StringFixed 2}} | Discounts: {{.Overview.TotalDiscount.StringFixed 2}}</p>

  <h3>By Payment</h3>
  <table>
    <thead><tr><th>Mode</th><th>Bills</th><th>Amount</th></tr></thead>
    <tbody>
      <tr><td>Cash</td><td class="num">{{.PaymentBreakdown.Cash.Count}}</td><td class="num">{{.PaymentBreakdown.Cash.Amount.StringFixed 2}}</td></tr>
      <tr><td>Card</td><td class="num">{{.PaymentBreakdown.Card.Count}}</td><td class="num">{{.PaymentBreakdown.Card.Amount.StringFixed 2}}</td></tr>
      <tr><td>UPI</td><td class="num">{{.PaymentBreakdown.UPI.Count}}</td><td class="num">{{.PaymentBreakdown.UPI.Amount.StringFixed 2}}</td></tr>
      <tr><td>Split</td><td class="num">{{.PaymentBreakdown.Split.Count}}</td><td class="num">{{.PaymentBreakdown.Split.Amount.StringFixed 2}}</td></tr>
    </tbody>
  </table>

  <h3>Discounts</h3>
  <table>
    <thead><tr><th>Preset</th><th>Bills</th><th>Discount</th></tr></thead>
    <tbody>{{range .DiscountBreakdown.Presets}}<tr><td>{{.Name}}</td><td class="num">{{.Count}}</td><td class="num">{{.TotalDiscount.StringFixed 2}}</td></tr>{{end}}
      <tr><td>Custom</td><td class="num">{{.DiscountBreakdown.CustomDiscounts.Count}}</td><td class="num">{{.DiscountBreakdown.CustomDiscounts.TotalDiscount.StringFixed 2}}</td></tr>
    </tbody>
  </table>

  <p>Unpaid bills: {{.UnpaidBills.Count}} | Due: {{.UnpaidBills.TotalDue.StringFixed 2}}</p>
</body>
</html>
`))

func summaryToPrintableHTML(summary domain.Summary) string {
	var buf bytes.Buffer
	if err := summaryHTMLTmpl.Execute(&buf, summary); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/realtime"
	"restopos/backend/internal/service"
	"restopos/backend/internal/store/memory"
)

const testRestaurant = "main-restaurant"

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded(testRestaurant)
	hub := realtime.NewHub(zap.NewNop())
	svc := service.New(repo, nil, service.Options{
		DefaultRestaurantID: testRestaurant,
		DefaultSettings: domain.Settings{
			RestaurantName:               "Spice Route",
			GSTScheme:                    domain.GSTSchemeRegular,
			GSTRate:                      decimal.NewFromInt(5),
			ApplyServiceChargeToTakeaway: true,
			RoundingUnit:                 decimal.RequireFromString("0.01"),
			Currency:                     "INR",
		},
		Publisher: hub,
	})
	auth := NewAuthManager("test-secret-key", time.Hour, "123456", testRestaurant, repo, zap.NewNop())

	return New(svc, auth, hub, []string{"*"}, zap.NewNop())
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (raw: %s)", err, rec.Body.String())
	}
}

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func createBill(t *testing.T, api *API, token string, req domain.CreateBillRequest) (domain.Bill, *httptest.ResponseRecorder) {
	t.Helper()
	rec := doJSON(t, api, http.MethodPost, "/api/v1/bills", token, req)
	if rec.Code != http.StatusCreated {
		return domain.Bill{}, rec
	}
	var payload struct {
		Bill domain.Bill `json:"bill"`
	}
	decodeBody(t, rec, &payload)
	return payload.Bill, rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "admin123"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.LoginResponse
	decodeBody(t, rec, &body)
	if body.AccessToken == "" {
		t.Fatalf("expected access_token in response, got %+v", body)
	}
	if body.RestaurantID != testRestaurant {
		t.Fatalf("expected restaurant %s, got %s", testRestaurant, body.RestaurantID)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_MissingFieldsRejected(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Code != "INVALID_REQUEST" || body.Details["password"] != "required" {
		t.Fatalf("expected password required, got %+v", body)
	}
}

func TestBillsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/api/v1/bills", "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCashierCannotReadReports(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/summary", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/api/v1/nope", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json error body, got %q", ct)
	}
}

func TestBillLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	calc := domain.CalculationRequest{OrderIDs: []string{"ord-demo-1", "ord-demo-2"}, OrderType: domain.OrderTypeDineIn}

	rec := doJSON(t, api, http.MethodPost, "/api/v1/bills/preview", token, calc)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var preview domain.PreviewResponse
	decodeBody(t, rec, &preview)
	if !preview.Result.Subtotal.Equal(decimal.NewFromInt(1060)) {
		t.Fatalf("expected subtotal 1060, got %s", preview.Result.Subtotal)
	}
	if !preview.Result.GrandTotal.Equal(decimal.NewFromInt(1113)) {
		t.Fatalf("expected grand total 1113, got %s", preview.Result.GrandTotal)
	}

	bill, rec := createBill(t, api, token, domain.CreateBillRequest{
		CalculationRequest: calc,
		PaymentMode:        domain.PaymentModeCash,
		MarkAsPaid:         true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if bill.BillNumber != 1 || bill.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("unexpected bill %+v", bill)
	}
	if bill.TableNumber != "T1" || bill.CreatedBy != "cashier" {
		t.Fatalf("expected table T1 by cashier, got %s by %s", bill.TableNumber, bill.CreatedBy)
	}
	if !bill.PaidAmount.Equal(bill.GrandTotal) {
		t.Fatalf("expected paid amount to equal grand total, got %s", bill.PaidAmount)
	}

	_, rec = createBill(t, api, token, domain.CreateBillRequest{CalculationRequest: calc, PaymentMode: domain.PaymentModeCash})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second bill expected 409, got %d", rec.Code)
	}
	var conflict errorResponse
	decodeBody(t, rec, &conflict)
	if conflict.Code != "ORDER_ALREADY_BILLED" {
		t.Fatalf("expected ORDER_ALREADY_BILLED, got %+v", conflict)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/"+bill.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/bill-missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing bill expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/orders/unbilled", token, nil)
	var unbilled struct {
		Orders []domain.Order `json:"orders"`
	}
	decodeBody(t, rec, &unbilled)
	if len(unbilled.Orders) != 1 || unbilled.Orders[0].ID != "ord-demo-3" {
		t.Fatalf("expected only ord-demo-3 unbilled, got %+v", unbilled.Orders)
	}
}

func TestSplitPaymentTolerance(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")
	calc := domain.CalculationRequest{OrderIDs: []string{"ord-demo-3"}}

	// 600 + 5% GST = 630.00
	_, rec := createBill(t, api, token, domain.CreateBillRequest{
		CalculationRequest: calc,
		PaymentMode:        domain.PaymentModeSplit,
		SplitPayments: []domain.SplitPayment{
			{Mode: domain.PaymentModeCash, Amount: decimal.RequireFromString("300")},
			{Mode: domain.PaymentModeUPI, Amount: decimal.RequireFromString("329.98")},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched split, got %d (%s)", rec.Code, rec.Body.String())
	}
	var mismatch errorResponse
	decodeBody(t, rec, &mismatch)
	if mismatch.Code != "SPLIT_PAYMENT_MISMATCH" || mismatch.Details["difference"] != "-0.02" {
		t.Fatalf("unexpected mismatch body %+v", mismatch)
	}

	bill, rec := createBill(t, api, token, domain.CreateBillRequest{
		CalculationRequest: calc,
		PaymentMode:        domain.PaymentModeSplit,
		MarkAsPaid:         true,
		SplitPayments: []domain.SplitPayment{
			{Mode: domain.PaymentModeCash, Amount: decimal.RequireFromString("300")},
			{Mode: domain.PaymentModeUPI, Amount: decimal.RequireFromString("329.99")},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 within tolerance, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(bill.SplitPayments) != 2 || bill.PaymentMode != domain.PaymentModeSplit {
		t.Fatalf("expected split bill, got %+v", bill)
	}
}

func TestCancelBillRequiresManagerPINForCashier(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	bill, rec := createBill(t, api, token, domain.CreateBillRequest{
		CalculationRequest: domain.CalculationRequest{OrderIDs: []string{"ord-demo-3"}},
		PaymentMode:        domain.PaymentModeCard,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	path := "/api/v1/bills/" + bill.ID + "/cancel"

	rec = doJSON(t, api, http.MethodPost, path, token, domain.CancelRequest{CancelReason: "customer left"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without pin, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, path, token, domain.CancelRequest{CancelReason: "customer left", ManagerPIN: "123456"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with pin, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Bill domain.Bill `json:"bill"`
	}
	decodeBody(t, rec, &payload)
	if payload.Bill.PaymentStatus != domain.PaymentStatusCancelled || payload.Bill.CancelledAt == nil {
		t.Fatalf("expected cancelled bill, got %+v", payload.Bill)
	}

	admin := loginAsAdmin(t, api)
	rec = doJSON(t, api, http.MethodPost, path, admin, domain.CancelRequest{CancelReason: "again"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected repeated cancel to succeed, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/bills/"+bill.ID+"/payment", admin, domain.UpdatePaymentRequest{
		PaymentMode: domain.PaymentModeCash,
		PaidAmount:  decimal.NewFromInt(630),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 paying a cancelled bill, got %d", rec.Code)
	}
	var conflict errorResponse
	decodeBody(t, rec, &conflict)
	if conflict.Code != "BILL_CANCELLED" {
		t.Fatalf("expected BILL_CANCELLED, got %+v", conflict)
	}
}

func TestUpdatePaymentOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	bill, rec := createBill(t, api, token, domain.CreateBillRequest{
		CalculationRequest: domain.CalculationRequest{OrderIDs: []string{"ord-demo-3"}},
		PaymentMode:        domain.PaymentModeCash,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if bill.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid bill, got %s", bill.PaymentStatus)
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/bills/"+bill.ID+"/payment", token, domain.UpdatePaymentRequest{
		PaymentMode: domain.PaymentModeUPI,
		PaidAmount:  decimal.NewFromInt(200),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Bill domain.Bill `json:"bill"`
	}
	decodeBody(t, rec, &payload)
	if payload.Bill.PaymentStatus != domain.PaymentStatusPartiallyPaid {
		t.Fatalf("expected partially paid, got %s", payload.Bill.PaymentStatus)
	}
}

func TestAdminReportsAndExports(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	if _, rec := createBill(t, api, admin, domain.CreateBillRequest{
		CalculationRequest: domain.CalculationRequest{OrderIDs: []string{"ord-demo-3"}},
		PaymentMode:        domain.PaymentModeUPI,
		MarkAsPaid:         true,
	}); rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, api, http.MethodGet, "/api/v1/reports/summary", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var summary domain.Summary
	decodeBody(t, rec, &summary)
	if summary.Overview.ActiveBills != 1 || summary.PaymentBreakdown.UPI.Count != 1 {
		t.Fatalf("unexpected summary %+v", summary.Overview)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/summary?format=html", admin, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Bill Summary") {
		t.Fatalf("expected printable summary, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/bills.csv", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Fatalf("expected attachment disposition, got %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rec.Body.String(), "\ufeff") {
		t.Fatalf("expected csv to start with a byte order mark")
	}
	if !strings.Contains(rec.Body.String(), "630.00") {
		t.Fatalf("expected bill total in csv, got %s", rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/bills.xlsx", admin, nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected xlsx workbook, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/reports/bills/archive", admin, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without object storage, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/summary?from=2026-03-10&to=2026-03-01", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/audit-logs", admin, nil)
	var audit struct {
		Logs []domain.AuditLog `json:"audit_logs"`
	}
	decodeBody(t, rec, &audit)
	if len(audit.Logs) == 0 {
		t.Fatalf("expected audit entries after bill creation")
	}
}

func TestInvoiceEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "cashier", "cashier123")

	bill, rec := createBill(t, api, token, domain.CreateBillRequest{
		CalculationRequest: domain.CalculationRequest{OrderIDs: []string{"ord-demo-3"}},
		PaymentMode:        domain.PaymentModeCash,
		MarkAsPaid:         true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/"+bill.ID+"/invoice/thermal", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("thermal expected 200, got %d", rec.Code)
	}
	var receipt domain.ThermalInvoiceResponse
	decodeBody(t, rec, &receipt)
	if receipt.EscposBase64 == "" || !strings.Contains(receipt.PreviewText, "Spice Route") {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/"+bill.ID+"/invoice/pdf", token, nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf, got %d", rec.Code)
	}
}

func TestPresetManagementOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)
	cashier := loginAs(t, api, "cashier", "cashier123")

	create := domain.PresetCreateRequest{
		Name:          "Lunch 10%",
		Scope:         domain.PresetScopeBill,
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		AutoSuggest:   true,
	}
	rec := doJSON(t, api, http.MethodPost, "/api/v1/discount-presets", cashier, create)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier create expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/discount-presets", admin, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Preset domain.DiscountPreset `json:"preset"`
	}
	decodeBody(t, rec, &created)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/discount-presets/"+created.Preset.ID+"/active", admin, domain.PresetToggleRequest{Active: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/discount-presets", cashier, nil)
	var active struct {
		Presets []domain.DiscountPreset `json:"presets"`
	}
	decodeBody(t, rec, &active)
	for _, preset := range active.Presets {
		if preset.ID == created.Preset.ID {
			t.Fatalf("expected deactivated preset to be hidden")
		}
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/discount-presets?include_inactive=true", cashier, nil)
	var all struct {
		Presets []domain.DiscountPreset `json:"presets"`
	}
	decodeBody(t, rec, &all)
	if len(all.Presets) != len(active.Presets)+1 {
		t.Fatalf("expected inactive preset in full listing, got %d vs %d", len(all.Presets), len(active.Presets))
	}

	// A Saturday falls outside the weekday happy hour.
	rec = doJSON(t, api, http.MethodGet, "/api/v1/discount-presets/eligible?at=2026-03-14T06:30:00Z", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("eligible expected 200, got %d", rec.Code)
	}
	var eligible struct {
		Presets []domain.DiscountPreset `json:"presets"`
	}
	decodeBody(t, rec, &eligible)
	for _, preset := range eligible.Presets {
		if preset.ID == "preset-happy-hour" {
			t.Fatalf("happy hour should not be eligible on a Saturday")
		}
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/discount-presets/eligible?at=yesterday", cashier, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timestamp, got %d", rec.Code)
	}
}

func TestSettingsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/settings", admin, nil)
	var current struct {
		Settings domain.Settings `json:"settings"`
	}
	decodeBody(t, rec, &current)
	if current.Settings.RestaurantName != "Spice Route" {
		t.Fatalf("expected default settings, got %+v", current.Settings)
	}

	update := current.Settings
	update.GSTScheme = domain.GSTSchemeComposition
	update.GSTIN = "27aapfu0939f1zv"
	rec = doJSON(t, api, http.MethodPut, "/api/v1/settings", admin, update)
	if rec.Code != http.StatusOK {
		t.Fatalf("update expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var saved struct {
		Settings domain.Settings `json:"settings"`
	}
	decodeBody(t, rec, &saved)
	if saved.Settings.GSTIN != "27AAPFU0939F1ZV" || saved.Settings.GSTScheme != domain.GSTSchemeComposition {
		t.Fatalf("unexpected saved settings %+v", saved.Settings)
	}

	update.GSTIN = "not-a-gstin"
	rec = doJSON(t, api, http.MethodPut, "/api/v1/settings", admin, update)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gstin, got %d", rec.Code)
	}
}

func TestCreateCashierValidation(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAsAdmin(t, api)

	cases := []struct {
		name  string
		req   domain.CashierCreateRequest
		field string
		tag   string
	}{
		{"short username", domain.CashierCreateRequest{Username: "ab", Password: "pass1234"}, "username", "min"},
		{"username with space", domain.CashierCreateRequest{Username: "new cashier", Password: "pass1234"}, "username", "username"},
		{"short password", domain.CashierCreateRequest{Username: "kasir2", Password: "123"}, "password", "min"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, api, http.MethodPost, "/api/v1/users/cashiers", admin, tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var body errorResponse
			decodeBody(t, rec, &body)
			if body.Details[tc.field] != tc.tag {
				t.Fatalf("expected %s=%s, got %+v", tc.field, tc.tag, body.Details)
			}
		})
	}

	req := domain.CashierCreateRequest{Username: "kasir2", Password: "pass1234"}
	rec := doJSON(t, api, http.MethodPost, "/api/v1/users/cashiers", admin, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/users/cashiers", admin, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/users/cashiers", admin, nil)
	var listed struct {
		Cashiers []domain.CashierUser `json:"cashiers"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Cashiers) != 2 {
		t.Fatalf("expected seeded cashier plus new one, got %+v", listed.Cashiers)
	}

	loginAs(t, api, "kasir2", "pass1234")
}

// TestMustHashPassword verifies that the test helper produces valid bcrypt hashes
// (used to confirm test infrastructure is sound).
func TestMustHashPassword(t *testing.T) {
	hash := mustHashPassword(t, "secret")
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Fatalf("hash verification failed: %v", err)
	}
}

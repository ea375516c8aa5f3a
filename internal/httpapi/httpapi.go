package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"restopos/backend/internal/billing"
	"restopos/backend/internal/domain"
	"restopos/backend/internal/realtime"
	"restopos/backend/internal/service"
	"restopos/backend/internal/store"
)

const maxJSONBody = 1 << 20

type API struct {
	service        *service.Service
	auth           *AuthManager
	hub            *realtime.Hub
	allowedOrigins []string
	logger         *zap.Logger
	validate       *validator.Validate
	loginLimiter   *keyedLimiter
	pinLimiter     *keyedLimiter
}

// New wires the HTTP surface. hub may be nil, in which case the websocket
// feed answers 503.
func New(svc *service.Service, auth *AuthManager, hub *realtime.Hub, allowedOrigins []string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:        svc,
		auth:           auth,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		logger:         logger.Named("http"),
		validate:       newValidator(),
		loginLimiter:   newKeyedLimiter(5, time.Minute),
		pinLimiter:     newKeyedLimiter(8, time.Minute),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t\r\n")
	})
	return v
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(limitJSONBody)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w)
	})

	r.Get("/healthz", a.handleHealth)
	r.Get("/ws/bills", a.handleBillFeed)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleCashier, domain.RoleAdmin))

			r.Post("/orders", a.handleCreateOrder)
			r.Get("/orders/unbilled", a.handleUnbilledOrders)

			r.Post("/bills/preview", a.handlePreviewBill)
			r.Post("/bills", a.handleCreateBill)
			r.Get("/bills", a.handleListBills)
			r.Get("/bills/{billID}", a.handleGetBill)
			r.Patch("/bills/{billID}/payment", a.handleUpdatePayment)
			r.Post("/bills/{billID}/cancel", a.handleCancelBill)
			r.Get("/bills/{billID}/invoice/thermal", a.handleThermalInvoice)
			r.Get("/bills/{billID}/invoice/pdf", a.handleInvoicePDF)
			r.Post("/bills/{billID}/invoice/archive", a.handleArchiveInvoice)

			r.Get("/discount-presets", a.handleListPresets)
			r.Get("/discount-presets/eligible", a.handleEligiblePresets)
			r.Get("/settings", a.handleGetSettings)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleAdmin))

			r.Post("/discount-presets", a.handleCreatePreset)
			r.Patch("/discount-presets/{presetID}", a.handleUpdatePreset)
			r.Post("/discount-presets/{presetID}/active", a.handleSetPresetActive)
			r.Put("/settings", a.handleUpdateSettings)

			r.Get("/reports/summary", a.handleSummary)
			r.Get("/reports/bills.csv", a.handleBillsCSV)
			r.Get("/reports/bills.xlsx", a.handleBillsXLSX)
			r.Post("/reports/bills/archive", a.handleArchiveBills)

			r.Get("/audit-logs", a.handleAuditLogs)
			r.Get("/users/cashiers", a.handleListCashiers)
			r.Post("/users/cashiers", a.handleCreateCashier)
		})
	})

	return r
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		}
		next.ServeHTTP(w, r)
	})
}

// decodeRequest reads a JSON body and runs struct validation on it.
func (a *API) decodeRequest(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			writeError(w, http.StatusBadRequest, err)
			return false
		}
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		first := fieldErrs[0]
		writeProblem(w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("%s failed %s validation", first.Field(), first.Tag()), details)
		return false
	}
	return true
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// writeServiceError maps service, billing and store errors onto statuses.
// Billing errors keep their machine-readable code and details.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	switch {
	case errors.Is(err, billing.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, billing.ErrEligibility):
		status, code = http.StatusUnprocessableEntity, "DISCOUNT_NOT_ELIGIBLE"
	case errors.Is(err, billing.ErrIntegrity):
		status, code = http.StatusConflict, "INTEGRITY_VIOLATION"
	case errors.Is(err, store.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, store.ErrOrderAlreadyBilled):
		status, code = http.StatusConflict, string(billing.CodeOrderAlreadyBilled)
	case errors.Is(err, store.ErrBillCancelled):
		status, code = http.StatusConflict, string(billing.CodeBillCancelled)
	case errors.Is(err, store.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrAdminRequired),
		errors.Is(err, service.ErrForbiddenRestaurant),
		errors.Is(err, service.ErrManagerApprovalRequired):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, service.ErrArchiveUnavailable):
		status, code = http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE"
	}
	if billingCode := billing.CodeOf(err); billingCode != "" {
		code = string(billingCode)
	}

	if status >= 500 {
		a.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			writeProblem(w, status, code, "internal server error", nil)
			return
		}
	}
	writeProblem(w, status, code, err.Error(), billing.DetailsOf(err))
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError writes a plain transport error. 5xx bodies never carry the
// underlying message.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeProblem(w, status, "", msg, nil)
}

func writeProblem(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	body := map[string]any{"error": message}
	if code != "" {
		body["code"] = code
	}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDownload(w http.ResponseWriter, export service.Export) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Body)
}

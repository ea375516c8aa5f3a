package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"restopos/backend/internal/billing"
	"restopos/backend/internal/cache"
	"restopos/backend/internal/domain"
	"restopos/backend/internal/events"
	"restopos/backend/internal/store"
	"restopos/backend/internal/suggestion"
	"restopos/backend/internal/xid"
)

var (
	ErrAdminRequired           = errors.New("admin role required")
	ErrForbiddenRestaurant     = errors.New("restaurant is outside the caller's scope")
	ErrManagerApprovalRequired = errors.New("manager approval required")
	ErrArchiveUnavailable      = errors.New("object storage is not configured")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Archiver uploads generated documents and returns their public URL.
type Archiver interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string, cacheControl string) (string, error)
}

type Options struct {
	DefaultRestaurantID string
	// DefaultSettings apply to restaurants that have not saved settings yet.
	DefaultSettings domain.Settings
	Location        *time.Location
	SummaryCache    cache.SummaryCache
	SummaryTTL      time.Duration
	Publisher       events.Publisher
	Archiver        Archiver
	Logger          *zap.Logger
	Clock           func() time.Time
}

type Service struct {
	repo                store.Repository
	suggester           *suggestion.Engine
	defaultRestaurantID string
	defaultSettings     domain.Settings
	location            *time.Location
	summaryCache        cache.SummaryCache
	summaryTTL          time.Duration
	publisher           events.Publisher
	archiver            Archiver
	logger              *zap.Logger
	clock               func() time.Time
}

func New(repo store.Repository, suggester *suggestion.Engine, opts Options) *Service {
	if opts.DefaultRestaurantID == "" {
		opts.DefaultRestaurantID = "main-restaurant"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if suggester == nil {
		suggester = suggestion.NewEngine(opts.Location)
	}
	if opts.SummaryCache == nil {
		opts.SummaryCache = cache.NoopSummaryCache{}
	}
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = time.Minute
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Service{
		repo:                repo,
		suggester:           suggester,
		defaultRestaurantID: opts.DefaultRestaurantID,
		defaultSettings:     opts.DefaultSettings,
		location:            opts.Location,
		summaryCache:        opts.SummaryCache,
		summaryTTL:          opts.SummaryTTL,
		publisher:           opts.Publisher,
		archiver:            opts.Archiver,
		logger:              opts.Logger.Named("service"),
		clock:               opts.Clock,
	}
}

func (s *Service) Location() *time.Location {
	return s.location
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// restaurantFor resolves the restaurant a call acts on. Staff tokens are
// bound to one restaurant and may not reach into another.
func (s *Service) restaurantFor(ctx context.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	actor, ok := ActorFromContext(ctx)
	if ok && actor.RestaurantID != "" {
		if requested != "" && requested != actor.RestaurantID {
			return "", ErrForbiddenRestaurant
		}
		return actor.RestaurantID, nil
	}
	if requested == "" {
		return s.defaultRestaurantID, nil
	}
	return requested, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrAdminRequired
	}
	return actor, nil
}

// settingsFor returns the saved settings, or the configured defaults when
// the restaurant has none yet.
func (s *Service) settingsFor(ctx context.Context, restaurantID string) (domain.Settings, error) {
	saved, err := s.repo.GetSettings(ctx, restaurantID)
	if err == nil {
		return *saved, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Settings{}, err
	}
	settings := s.defaultSettings
	settings.RestaurantID = restaurantID
	if settings.GSTScheme == "" {
		settings.GSTScheme = domain.GSTSchemeRegular
	}
	if settings.RoundingUnit.IsZero() {
		settings.RoundingUnit = billing.DefaultRoundingUnit
	}
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	return settings, nil
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	restaurantID, err := s.restaurantFor(ctx, req.RestaurantID)
	if err != nil {
		return domain.Order{}, err
	}
	if len(req.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order needs at least one item", store.ErrInvalidInput)
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		item.MenuItemID = strings.TrimSpace(item.MenuItemID)
		item.Name = strings.TrimSpace(item.Name)
		if item.MenuItemID == "" || item.Name == "" {
			return domain.Order{}, fmt.Errorf("%w: menu_item_id and name are required", store.ErrInvalidInput)
		}
		if item.Quantity <= 0 {
			return domain.Order{}, billing.ValidationError(billing.CodeInvalidQuantity, "item quantity must be positive", map[string]any{"menu_item_id": item.MenuItemID})
		}
		if item.UnitPrice.Sign() < 0 {
			return domain.Order{}, billing.ValidationError(billing.CodeInvalidPrice, "item price cannot be negative", map[string]any{"menu_item_id": item.MenuItemID})
		}
		items = append(items, item)
	}

	created, err := s.repo.CreateOrder(ctx, domain.Order{
		ID:             xid.New("ord"),
		RestaurantID:   restaurantID,
		TableNumber:    strings.TrimSpace(req.TableNumber),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerMobile: strings.TrimSpace(req.CustomerMobile),
		Items:          items,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, restaurantID, "order_create", "order", created.ID, fmt.Sprintf("table=%s,items=%d", created.TableNumber, len(created.Items)))
	return *created, nil
}

func (s *Service) ListUnbilledOrders(ctx context.Context, restaurantID string, limit int) ([]domain.Order, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 200
	}
	return s.repo.ListUnbilledOrders(ctx, restaurantID, limit)
}

type calculation struct {
	result   domain.CalculationResult
	orders   []domain.Order
	settings domain.Settings
}

func normalizeOrderIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, billing.ValidationError(billing.CodeEmptyOrders, "at least one order is required", nil)
	}
	return out, nil
}

// calculate loads the orders, presets and settings a request refers to and
// runs the billing pipeline at now.
func (s *Service) calculate(ctx context.Context, restaurantID string, req domain.CalculationRequest, now time.Time) (calculation, error) {
	ids, err := normalizeOrderIDs(req.OrderIDs)
	if err != nil {
		return calculation{}, err
	}

	orders, err := s.repo.GetOrdersByIDs(ctx, restaurantID, ids)
	if err != nil {
		return calculation{}, err
	}
	for _, order := range orders {
		if order.BillID != "" {
			return calculation{}, billing.IntegrityError(billing.CodeOrderAlreadyBilled, "order is already billed", map[string]any{
				"order_id": order.ID,
				"bill_id":  order.BillID,
			})
		}
	}

	itemPresets := map[string]domain.DiscountPreset{}
	for _, d := range req.ItemDiscounts {
		if d.DiscountPresetID == "" {
			continue
		}
		if _, ok := itemPresets[d.DiscountPresetID]; ok {
			continue
		}
		preset, err := s.repo.GetPreset(ctx, restaurantID, d.DiscountPresetID)
		if errors.Is(err, store.ErrNotFound) {
			// Calculate reports the unknown id with the line it belongs to
			continue
		}
		if err != nil {
			return calculation{}, err
		}
		itemPresets[preset.ID] = *preset
	}

	billDiscount := billing.BillDiscountInput{
		Type:   req.BillDiscountType,
		Value:  req.BillDiscountValue,
		Reason: req.DiscountReason,
	}
	if presetID := strings.TrimSpace(req.DiscountPresetID); presetID != "" {
		preset, err := s.repo.GetPreset(ctx, restaurantID, presetID)
		if errors.Is(err, store.ErrNotFound) {
			return calculation{}, billing.ValidationError(billing.CodeInvalidPreset, "unknown discount preset", map[string]any{"preset_id": presetID})
		}
		if err != nil {
			return calculation{}, err
		}
		billDiscount.Preset = preset
	}

	settings, err := s.settingsFor(ctx, restaurantID)
	if err != nil {
		return calculation{}, err
	}

	result, err := billing.Calculate(billing.Input{
		Orders:          orders,
		OrderType:       req.OrderType,
		ItemDiscounts:   req.ItemDiscounts,
		ItemPresets:     itemPresets,
		BillDiscount:    billDiscount,
		PackagingCharge: req.PackagingCharge,
		Settings:        settings,
		Now:             now,
		Location:        s.location,
	})
	if err != nil {
		return calculation{}, err
	}
	return calculation{result: result, orders: orders, settings: settings}, nil
}

// PreviewBill prices a prospective bill without writing anything and ranks
// the auto-suggest presets the cashier could still apply.
func (s *Service) PreviewBill(ctx context.Context, req domain.CalculationRequest) (domain.PreviewResponse, error) {
	restaurantID, err := s.restaurantFor(ctx, req.RestaurantID)
	if err != nil {
		return domain.PreviewResponse{}, err
	}
	now := s.now()

	calc, err := s.calculate(ctx, restaurantID, req, now)
	if err != nil {
		return domain.PreviewResponse{}, err
	}

	resp := domain.PreviewResponse{Result: calc.result, Candidates: []domain.PresetSuggestion{}, EvaluatedAt: now}
	if calc.result.DiscountPresetID != "" {
		return resp, nil
	}
	presets, err := s.repo.ListPresets(ctx, restaurantID, false)
	if err != nil {
		s.logger.Warn("preset suggestion skipped", zap.String("restaurant_id", restaurantID), zap.Error(err))
		return resp, nil
	}
	resp.Suggested, resp.Candidates = s.suggester.Suggest(presets, calc.result.AfterItemDiscount, now)
	return resp, nil
}

func (s *Service) CreateBill(ctx context.Context, req domain.CreateBillRequest) (domain.Bill, error) {
	restaurantID, err := s.restaurantFor(ctx, req.RestaurantID)
	if err != nil {
		return domain.Bill{}, err
	}
	now := s.now()

	gstin := billing.NormalizeGSTIN(req.CustomerGSTIN)
	if gstin != "" {
		if err := billing.ValidateGSTIN(gstin); err != nil {
			return domain.Bill{}, err
		}
	}

	calc, err := s.calculate(ctx, restaurantID, req.CalculationRequest, now)
	if err != nil {
		return domain.Bill{}, err
	}
	payment, err := billing.ReconcilePayment(calc.result.GrandTotal, req.PaymentMode, req.SplitPayments, req.MarkAsPaid)
	if err != nil {
		return domain.Bill{}, err
	}
	if err := billing.CheckBillInvariants(calc.result); err != nil {
		s.logger.Error("refusing unbalanced bill", zap.String("restaurant_id", restaurantID), zap.Error(err))
		return domain.Bill{}, err
	}

	first := calc.orders[0]
	actor, _ := ActorFromContext(ctx)
	bill := domain.Bill{
		ID:                xid.New("bill"),
		RestaurantID:      restaurantID,
		TableNumber:       firstNonEmpty(req.TableNumber, first.TableNumber),
		OrderIDs:          orderIDs(calc.orders),
		CreatedBy:         actor.Username,
		CreatedAt:         now,
		CustomerName:      firstNonEmpty(req.CustomerName, first.CustomerName),
		CustomerMobile:    firstNonEmpty(req.CustomerMobile, first.CustomerMobile),
		CustomerGSTIN:     gstin,
		Notes:             strings.TrimSpace(req.Notes),
		CalculationResult: calc.result,
		PaymentMode:       payment.Mode,
		SplitPayments:     payment.Splits,
		PaymentStatus:     payment.Status,
		PaidAmount:        payment.PaidAmount,
		UpdatedAt:         now,
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if errors.Is(err, store.ErrOrderAlreadyBilled) {
		return domain.Bill{}, billing.IntegrityError(billing.CodeOrderAlreadyBilled, "order is already billed", map[string]any{"order_ids": bill.OrderIDs})
	}
	if err != nil {
		return domain.Bill{}, err
	}

	s.afterBillChange(ctx, *created, domain.EventBillCreated, fmt.Sprintf(
		"number=%d,orders=%s,total=%s,status=%s",
		created.BillNumber, strings.Join(created.OrderIDs, "|"), created.GrandTotal.StringFixed(2), created.PaymentStatus,
	))
	return *created, nil
}

func (s *Service) GetBill(ctx context.Context, restaurantID string, billID string) (domain.Bill, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.Bill{}, err
	}
	bill, err := s.repo.GetBill(ctx, restaurantID, strings.TrimSpace(billID))
	if err != nil {
		return domain.Bill{}, err
	}
	return *bill, nil
}

// ListBills returns bills created between from and to (inclusive local
// dates) ordered by bill number.
func (s *Service) ListBills(ctx context.Context, restaurantID string, from string, to string, status string, limit int) ([]domain.Bill, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	window, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	status, err = normalizeStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBills(ctx, domain.BillListFilter{
		RestaurantID: restaurantID,
		From:         window.start,
		To:           window.end,
		Status:       status,
		Limit:        limit,
	})
}

func (s *Service) UpdatePayment(ctx context.Context, restaurantID string, billID string, req domain.UpdatePaymentRequest) (domain.Bill, error) {
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.Bill{}, err
	}
	current, err := s.repo.GetBill(ctx, restaurantID, strings.TrimSpace(billID))
	if err != nil {
		return domain.Bill{}, err
	}

	updated, err := billing.ApplyPaymentUpdate(*current, req, s.now())
	if err != nil {
		return domain.Bill{}, err
	}
	saved, err := s.repo.UpdateBillStatus(ctx, updated)
	if errors.Is(err, store.ErrBillCancelled) {
		// cancelled after we read it
		return domain.Bill{}, billing.IntegrityError(billing.CodeBillCancelled, "cancelled bills cannot take payments", map[string]any{"bill_id": updated.ID})
	}
	if err != nil {
		return domain.Bill{}, err
	}

	s.afterBillChange(ctx, *saved, domain.EventBillPaymentUpdated, fmt.Sprintf(
		"mode=%s,paid=%s,status=%s", saved.PaymentMode, saved.PaidAmount.StringFixed(2), saved.PaymentStatus,
	))
	return *saved, nil
}

// CancelBill marks a bill cancelled. Admins may cancel directly; cashiers
// need a manager approval checked by the caller. Cancelling twice is a no-op.
func (s *Service) CancelBill(ctx context.Context, restaurantID string, billID string, reason string, managerApproved bool) (domain.Bill, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Bill{}, ErrAdminRequired
	}
	if actor.Role != domain.RoleAdmin && !managerApproved {
		return domain.Bill{}, ErrManagerApprovalRequired
	}
	restaurantID, err := s.restaurantFor(ctx, restaurantID)
	if err != nil {
		return domain.Bill{}, err
	}
	current, err := s.repo.GetBill(ctx, restaurantID, strings.TrimSpace(billID))
	if err != nil {
		return domain.Bill{}, err
	}

	cancelled, changed, err := billing.Cancel(*current, reason, s.now())
	if err != nil {
		return domain.Bill{}, err
	}
	if !changed {
		return cancelled, nil
	}
	saved, err := s.repo.UpdateBillStatus(ctx, cancelled)
	if errors.Is(err, store.ErrBillCancelled) {
		// a concurrent cancel won; report its stored state
		stored, err := s.repo.GetBill(ctx, restaurantID, current.ID)
		if err != nil {
			return domain.Bill{}, err
		}
		return *stored, nil
	}
	if err != nil {
		return domain.Bill{}, err
	}

	s.afterBillChange(ctx, *saved, domain.EventBillCancelled, fmt.Sprintf("reason=%s,manager_approved=%t", saved.CancelReason, managerApproved))
	return *saved, nil
}

// afterBillChange runs the side effects of a committed bill mutation. None
// of them can fail the mutation itself.
func (s *Service) afterBillChange(ctx context.Context, bill domain.Bill, eventType string, detail string) {
	if err := s.summaryCache.Bump(ctx, bill.RestaurantID); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.String("restaurant_id", bill.RestaurantID), zap.Error(err))
	}

	actor, _ := ActorFromContext(ctx)
	event := domain.BillEvent{
		Type:          eventType,
		RestaurantID:  bill.RestaurantID,
		BillID:        bill.ID,
		BillNumber:    bill.BillNumber,
		PaymentStatus: bill.PaymentStatus,
		GrandTotal:    bill.GrandTotal,
		Actor:         actor.Username,
		OccurredAt:    bill.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("bill event publish failed", zap.String("type", eventType), zap.String("bill_id", bill.ID), zap.Error(err))
	}

	s.logAudit(ctx, bill.RestaurantID, strings.ReplaceAll(eventType, ".", "_"), "bill", bill.ID, detail)
}

func (s *Service) logAudit(ctx context.Context, restaurantID string, action string, entityType string, entityID string, detail string) {
	if restaurantID == "" {
		restaurantID = s.defaultRestaurantID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		RestaurantID:  restaurantID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		s.logger.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

func normalizeStatusFilter(status string) (string, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.PaymentStatusUnpaid, domain.PaymentStatusPartiallyPaid, domain.PaymentStatusPaid, domain.PaymentStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown payment status %q", store.ErrInvalidInput, status)
	}
}

func orderIDs(orders []domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	return ids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func sortedDays(days []int) []int {
	out := slices.Clone(days)
	slices.Sort(out)
	return out
}

package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
	"restopos/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	ordersByID      map[string]domain.Order
	billsByID       map[string]domain.Bill
	billSequences   map[string]int64
	presetsByID     map[string]domain.DiscountPreset
	settingsByID    map[string]domain.Settings
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables; if unset, dev defaults are used with a warning.
func seedUsers(restaurantID string) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		zap.L().Warn("memory store is using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:     u.username,
			Password:     string(hash),
			Role:         u.role,
			RestaurantID: restaurantID,
			Active:       true,
			CreatedAt:    now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		ordersByID:      make(map[string]domain.Order),
		billsByID:       make(map[string]domain.Bill),
		billSequences:   make(map[string]int64),
		presetsByID:     make(map[string]domain.DiscountPreset),
		settingsByID:    make(map[string]domain.Settings),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store with demo users, open table orders and a few
// discount presets for restaurantID. Settings are not seeded so the
// configured defaults apply until an admin saves them.
func NewSeeded(restaurantID string) *Store {
	s := New()
	s.usersByUsername = seedUsers(restaurantID)

	now := time.Now().UTC()
	price := decimal.RequireFromString
	orders := []domain.Order{
		{
			ID: "ord-demo-1", RestaurantID: restaurantID, TableNumber: "T1", CreatedAt: now.Add(-40 * time.Minute),
			Items: []domain.OrderItem{
				{MenuItemID: "menu-paneer-tikka", Name: "Paneer Tikka", Quantity: 2, UnitPrice: price("220")},
				{MenuItemID: "menu-butter-naan", Name: "Butter Naan", Quantity: 4, UnitPrice: price("45")},
			},
		},
		{
			ID: "ord-demo-2", RestaurantID: restaurantID, TableNumber: "T1", CreatedAt: now.Add(-25 * time.Minute),
			Items: []domain.OrderItem{
				{MenuItemID: "menu-dal-makhani", Name: "Dal Makhani", Quantity: 1, UnitPrice: price("260")},
				{MenuItemID: "menu-sweet-lassi", Name: "Sweet Lassi", Quantity: 2, UnitPrice: price("90")},
			},
		},
		{
			ID: "ord-demo-3", RestaurantID: restaurantID, TableNumber: "T6", CreatedAt: now.Add(-10 * time.Minute),
			CustomerName: "Walk-in", Items: []domain.OrderItem{
				{MenuItemID: "menu-masala-dosa", Name: "Masala Dosa", Quantity: 3, UnitPrice: price("140")},
				{MenuItemID: "menu-filter-coffee", Name: "Filter Coffee", Quantity: 3, UnitPrice: price("60")},
			},
		},
	}
	for _, order := range orders {
		s.ordersByID[order.ID] = order
	}

	minBill := price("1000")
	maxDiscount := price("150")
	presets := []domain.DiscountPreset{
		{
			ID: "preset-happy-hour", RestaurantID: restaurantID, Name: "Happy Hour 15%",
			Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypePercentage, DiscountValue: price("15"),
			MaxDiscountAmount: &maxDiscount, StartTime: "16:00", EndTime: "19:00", ActiveDays: []int{1, 2, 3, 4, 5},
			IsActive: true, AutoSuggest: true,
		},
		{
			ID: "preset-big-table", RestaurantID: restaurantID, Name: "Big Table Flat 100",
			Scope: domain.PresetScopeBill, DiscountType: domain.DiscountTypeFlat, DiscountValue: price("100"),
			MinBillAmount: &minBill, IsActive: true, AutoSuggest: true,
		},
		{
			ID: "preset-manager-comp", RestaurantID: restaurantID, Name: "Manager Comp",
			Scope: domain.PresetScopeItem, DiscountType: domain.DiscountTypePercentage, DiscountValue: price("100"),
			RequiresReason: true, IsActive: true,
		},
	}
	for _, preset := range presets {
		preset.CreatedAt = now
		preset.UpdatedAt = now
		s.presetsByID[preset.ID] = preset
	}
	return s
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(order.RestaurantID) == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrConflict
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.BillID = ""
	order = cloneOrder(order)
	s.ordersByID[order.ID] = order
	dup := cloneOrder(order)
	return &dup, nil
}

// GetOrdersByIDs returns the orders in the order ids were given. Any missing
// id fails the whole lookup.
func (s *Store) GetOrdersByIDs(_ context.Context, restaurantID string, ids []string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		order, ok := s.ordersByID[id]
		if !ok || order.RestaurantID != restaurantID {
			return nil, store.ErrNotFound
		}
		result = append(result, cloneOrder(order))
	}
	return result, nil
}

func (s *Store) ListUnbilledOrders(_ context.Context, restaurantID string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, 16)
	for _, order := range s.ordersByID {
		if order.RestaurantID != restaurantID || order.BillID != "" {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	slices.SortFunc(result, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	if strings.TrimSpace(bill.RestaurantID) == "" || len(bill.OrderIDs) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(bill.OrderIDs))
	for _, id := range bill.OrderIDs {
		if seen[id] {
			return nil, store.ErrInvalidInput
		}
		seen[id] = true
		order, ok := s.ordersByID[id]
		if !ok || order.RestaurantID != bill.RestaurantID {
			return nil, store.ErrNotFound
		}
		if order.BillID != "" {
			return nil, store.ErrOrderAlreadyBilled
		}
	}

	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	bill.UpdatedAt = bill.CreatedAt
	s.billSequences[bill.RestaurantID]++
	bill.BillNumber = s.billSequences[bill.RestaurantID]

	for _, id := range bill.OrderIDs {
		order := s.ordersByID[id]
		order.BillID = bill.ID
		s.ordersByID[id] = order
	}
	s.billsByID[bill.ID] = cloneBill(bill)

	dup := cloneBill(bill)
	return &dup, nil
}

func (s *Store) GetBill(_ context.Context, restaurantID string, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.billsByID[id]
	if !ok || bill.RestaurantID != restaurantID {
		return nil, store.ErrNotFound
	}
	dup := cloneBill(bill)
	return &dup, nil
}

func (s *Store) ListBills(_ context.Context, filter domain.BillListFilter) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Bill, 0, 64)
	for _, bill := range s.billsByID {
		if bill.RestaurantID != filter.RestaurantID {
			continue
		}
		if !filter.From.IsZero() && bill.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !bill.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.Status != "" && bill.PaymentStatus != filter.Status {
			continue
		}
		result = append(result, cloneBill(bill))
	}
	slices.SortFunc(result, func(a, b domain.Bill) int {
		switch {
		case a.BillNumber < b.BillNumber:
			return -1
		case a.BillNumber > b.BillNumber:
			return 1
		default:
			return 0
		}
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) UpdateBillStatus(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.billsByID[bill.ID]
	if !ok || current.RestaurantID != bill.RestaurantID {
		return nil, store.ErrNotFound
	}
	if current.IsCancelled() {
		return nil, store.ErrBillCancelled
	}
	current.PaymentMode = bill.PaymentMode
	current.SplitPayments = bill.SplitPayments
	current.PaymentStatus = bill.PaymentStatus
	current.PaidAmount = bill.PaidAmount
	current.CancelledAt = bill.CancelledAt
	current.CancelReason = bill.CancelReason
	current.UpdatedAt = bill.UpdatedAt
	s.billsByID[bill.ID] = cloneBill(current)

	dup := cloneBill(current)
	return &dup, nil
}

func (s *Store) CreatePreset(_ context.Context, preset domain.DiscountPreset) (*domain.DiscountPreset, error) {
	if strings.TrimSpace(preset.RestaurantID) == "" || strings.TrimSpace(preset.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if preset.ID == "" {
		preset.ID = xid.New("preset")
	}
	now := time.Now().UTC()
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = now
	}
	preset.UpdatedAt = preset.CreatedAt
	s.presetsByID[preset.ID] = clonePreset(preset)
	dup := clonePreset(preset)
	return &dup, nil
}

func (s *Store) UpdatePreset(_ context.Context, preset domain.DiscountPreset) (*domain.DiscountPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.presetsByID[preset.ID]
	if !ok || current.RestaurantID != preset.RestaurantID {
		return nil, store.ErrNotFound
	}
	preset.CreatedAt = current.CreatedAt
	if preset.UpdatedAt.IsZero() {
		preset.UpdatedAt = time.Now().UTC()
	}
	s.presetsByID[preset.ID] = clonePreset(preset)
	dup := clonePreset(preset)
	return &dup, nil
}

func (s *Store) GetPreset(_ context.Context, restaurantID string, id string) (*domain.DiscountPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preset, ok := s.presetsByID[id]
	if !ok || preset.RestaurantID != restaurantID {
		return nil, store.ErrNotFound
	}
	dup := clonePreset(preset)
	return &dup, nil
}

func (s *Store) ListPresets(_ context.Context, restaurantID string, includeInactive bool) ([]domain.DiscountPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DiscountPreset, 0, len(s.presetsByID))
	for _, preset := range s.presetsByID {
		if preset.RestaurantID != restaurantID {
			continue
		}
		if !includeInactive && !preset.IsActive {
			continue
		}
		result = append(result, clonePreset(preset))
	}
	slices.SortFunc(result, func(a, b domain.DiscountPreset) int {
		if a.Name == b.Name {
			return strings.Compare(a.ID, b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) SetPresetActive(_ context.Context, restaurantID string, id string, active bool, at time.Time) (*domain.DiscountPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preset, ok := s.presetsByID[id]
	if !ok || preset.RestaurantID != restaurantID {
		return nil, store.ErrNotFound
	}
	preset.IsActive = active
	preset.UpdatedAt = at
	s.presetsByID[id] = preset
	dup := clonePreset(preset)
	return &dup, nil
}

func (s *Store) GetSettings(_ context.Context, restaurantID string) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settingsByID[restaurantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &settings, nil
}

func (s *Store) UpsertSettings(_ context.Context, settings domain.Settings) (*domain.Settings, error) {
	if strings.TrimSpace(settings.RestaurantID) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}
	s.settingsByID[settings.RestaurantID] = settings
	return &settings, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, restaurantID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if restaurantID != "" && entry.RestaurantID != restaurantID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	dup.Items = slices.Clone(src.Items)
	return dup
}

func cloneBill(src domain.Bill) domain.Bill {
	dup := src
	dup.OrderIDs = slices.Clone(src.OrderIDs)
	dup.Items = slices.Clone(src.Items)
	dup.SplitPayments = slices.Clone(src.SplitPayments)
	if src.CancelledAt != nil {
		at := *src.CancelledAt
		dup.CancelledAt = &at
	}
	return dup
}

func clonePreset(src domain.DiscountPreset) domain.DiscountPreset {
	dup := src
	dup.ActiveDays = slices.Clone(src.ActiveDays)
	return dup
}

package store

import (
	"context"
	"errors"
	"time"

	"restopos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrOrderAlreadyBilled = errors.New("order already billed")
	ErrConflict           = errors.New("conflict")
	ErrBillCancelled      = errors.New("bill cancelled")
)

type Repository interface {
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrdersByIDs(ctx context.Context, restaurantID string, ids []string) ([]domain.Order, error)
	ListUnbilledOrders(ctx context.Context, restaurantID string, limit int) ([]domain.Order, error)

	// CreateBill atomically checks that every order in bill.OrderIDs exists
	// and is unbilled, assigns the next bill number for the restaurant,
	// persists the bill and links the orders to it. Nothing is written on
	// failure.
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, restaurantID string, id string) (*domain.Bill, error)
	ListBills(ctx context.Context, filter domain.BillListFilter) ([]domain.Bill, error)
	// UpdateBillStatus persists payment or cancellation fields only. A bill
	// that is already cancelled is never rewritten: ErrBillCancelled.
	UpdateBillStatus(ctx context.Context, bill domain.Bill) (*domain.Bill, error)

	CreatePreset(ctx context.Context, preset domain.DiscountPreset) (*domain.DiscountPreset, error)
	UpdatePreset(ctx context.Context, preset domain.DiscountPreset) (*domain.DiscountPreset, error)
	GetPreset(ctx context.Context, restaurantID string, id string) (*domain.DiscountPreset, error)
	ListPresets(ctx context.Context, restaurantID string, includeInactive bool) ([]domain.DiscountPreset, error)
	SetPresetActive(ctx context.Context, restaurantID string, id string, active bool, at time.Time) (*domain.DiscountPreset, error)

	GetSettings(ctx context.Context, restaurantID string) (*domain.Settings, error)
	UpsertSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, restaurantID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

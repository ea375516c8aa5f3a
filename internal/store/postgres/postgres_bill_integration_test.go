package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
)

func TestCreateBillLinksOrdersAndRejectsRebilling(t *testing.T) {
	databaseURL := os.Getenv("RESTOPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set RESTOPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	restaurantID := fmt.Sprintf("it-restaurant-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bills WHERE restaurant_id = $1`, restaurantID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE restaurant_id = $1`, restaurantID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bill_sequences WHERE restaurant_id = $1`, restaurantID)
	})

	newOrder := func() domain.Order {
		order, err := s.CreateOrder(ctx, domain.Order{
			RestaurantID: restaurantID,
			TableNumber:  "T4",
			Items: []domain.OrderItem{
				{MenuItemID: "menu-idli", Name: "Idli", Quantity: 2, UnitPrice: decimal.RequireFromString("40.50")},
			},
		})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		return *order
	}
	first := newOrder()
	second := newOrder()

	grand := decimal.RequireFromString("85")
	bill, err := s.CreateBill(ctx, domain.Bill{
		RestaurantID:  restaurantID,
		OrderIDs:      []string{first.ID},
		PaymentMode:   domain.PaymentModeCash,
		PaymentStatus: domain.PaymentStatusUnpaid,
		CalculationResult: domain.CalculationResult{
			OrderType:  domain.OrderTypeDineIn,
			GSTScheme:  domain.GSTSchemeRegular,
			Subtotal:   decimal.RequireFromString("81"),
			GrandTotal: grand,
		},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.BillNumber != 1 {
		t.Fatalf("expected first bill number 1, got %d", bill.BillNumber)
	}

	_, err = s.CreateBill(ctx, domain.Bill{
		RestaurantID:  restaurantID,
		OrderIDs:      []string{second.ID, first.ID},
		PaymentMode:   domain.PaymentModeCash,
		PaymentStatus: domain.PaymentStatusUnpaid,
	})
	if !errors.Is(err, store.ErrOrderAlreadyBilled) {
		t.Fatalf("expected ErrOrderAlreadyBilled, got %v", err)
	}

	unbilled, err := s.ListUnbilledOrders(ctx, restaurantID, 0)
	if err != nil {
		t.Fatalf("list unbilled: %v", err)
	}
	if len(unbilled) != 1 || unbilled[0].ID != second.ID {
		t.Fatalf("expected only the second order unbilled, got %+v", unbilled)
	}

	loaded, err := s.GetBill(ctx, restaurantID, bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if !loaded.GrandTotal.Equal(grand) {
		t.Fatalf("expected grand total %s, got %s", grand, loaded.GrandTotal)
	}

	next, err := s.CreateBill(ctx, domain.Bill{
		RestaurantID:  restaurantID,
		OrderIDs:      []string{second.ID},
		PaymentMode:   domain.PaymentModeCash,
		PaymentStatus: domain.PaymentStatusUnpaid,
	})
	if err != nil {
		t.Fatalf("create second bill: %v", err)
	}
	if next.BillNumber != 2 {
		t.Fatalf("failed attempt must not consume a bill number, got %d", next.BillNumber)
	}

	stale := *loaded
	cancelledAt := time.Now().UTC()
	cancelled := *loaded
	cancelled.PaymentStatus = domain.PaymentStatusCancelled
	cancelled.CancelledAt = &cancelledAt
	cancelled.CancelReason = "wrong table"
	if _, err := s.UpdateBillStatus(ctx, cancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stale.PaymentStatus = domain.PaymentStatusPaid
	stale.PaidAmount = grand
	if _, err := s.UpdateBillStatus(ctx, stale); !errors.Is(err, store.ErrBillCancelled) {
		t.Fatalf("expected ErrBillCancelled for a stale payment write, got %v", err)
	}
	if _, err := s.UpdateBillStatus(ctx, domain.Bill{RestaurantID: restaurantID, ID: "bill-missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing bill, got %v", err)
	}
	reloaded, err := s.GetBill(ctx, restaurantID, bill.ID)
	if err != nil {
		t.Fatalf("reload bill: %v", err)
	}
	if !reloaded.IsCancelled() || reloaded.CancelledAt == nil {
		t.Fatalf("cancelled bill was rewritten: %s", reloaded.PaymentStatus)
	}
}

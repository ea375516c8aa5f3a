package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
)

func TestHubDeliversEventsPerRestaurant(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("restaurant"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/?restaurant=r1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello["type"] != "bills.subscribed" {
		t.Fatalf("unexpected hello %v", hello)
	}
	if hub.Subscribers("r1") != 1 {
		t.Fatalf("expected one subscriber")
	}

	if err := hub.Publish(context.Background(), domain.BillEvent{Type: domain.EventBillCreated, RestaurantID: "r2", BillID: "bill-other"}); err != nil {
		t.Fatalf("publish other: %v", err)
	}
	if err := hub.Publish(context.Background(), domain.BillEvent{
		Type:         domain.EventBillCreated,
		RestaurantID: "r1",
		BillID:       "bill-1",
		BillNumber:   1,
		GrandTotal:   decimal.RequireFromString("262.00"),
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var got message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Type != domain.EventBillCreated || got.Data.BillID != "bill-1" {
		t.Fatalf("expected r1 event only, got %+v", got)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Publish(context.Background(), domain.BillEvent{Type: domain.EventBillCancelled, RestaurantID: "r1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublishDoesNotWaitOnSlowClients(t *testing.T) {
	hub := NewHub(nil)
	stalled := newClient(nil)
	hub.subscribe("r1", stalled)

	start := time.Now()
	for i := 0; i <= sendBuffer; i++ {
		if err := hub.Publish(context.Background(), domain.BillEvent{Type: domain.EventBillCreated, RestaurantID: "r1", BillNumber: int64(i + 1)}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("publish blocked on a stalled client for %s", elapsed)
	}

	if hub.Subscribers("r1") != 0 {
		t.Fatalf("expected the stalled client to be dropped")
	}
	select {
	case <-stalled.dropped:
	default:
		t.Fatalf("expected the stalled client to be signalled")
	}
	if got := len(stalled.send); got != sendBuffer {
		t.Fatalf("expected a full queue of %d, got %d", sendBuffer, got)
	}
}

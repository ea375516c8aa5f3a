package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"restopos/backend/internal/domain"
)

func TestBillFeedRequiresToken(t *testing.T) {
	api := newTestAPI(t)
	rec := doJSON(t, api, http.MethodGet, "/ws/bills", "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestBillFeedStreamsCreatedBills(t *testing.T) {
	api := newTestAPI(t)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	token := loginAs(t, api, "cashier", "cashier123")
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/bills?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read subscribe ack: %v", err)
	}
	if hello["type"] != "bills.subscribed" || hello["restaurant_id"] != testRestaurant {
		t.Fatalf("unexpected ack %v", hello)
	}

	payload, _ := json.Marshal(domain.CreateBillRequest{
		CalculationRequest: domain.CalculationRequest{OrderIDs: []string{"ord-demo-3"}},
		PaymentMode:        domain.PaymentModeCash,
		MarkAsPaid:         true,
	})
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/bills", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create expected 201, got %d", res.StatusCode)
	}

	var event struct {
		Type string           `json:"type"`
		Data domain.BillEvent `json:"data"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read bill event: %v", err)
	}
	if event.Type != domain.EventBillCreated || event.Data.BillNumber != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
}

package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/payments"
)

// ledgerOrders serves order lookups from the same rows the ledger mutates.
type ledgerOrders struct {
	ledger *memLedger
	payers int
}

func (l *ledgerOrders) FindByNumber(_ context.Context, orderNumber string) (*models.StudentOrder, error) {
	l.ledger.mu.Lock()
	defer l.ledger.mu.Unlock()
	o, ok := l.ledger.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &o, nil
}

func (l *ledgerOrders) FindByProviderRef(_ context.Context, provider, ref string) (*models.StudentOrder, error) {
	l.ledger.mu.Lock()
	defer l.ledger.mu.Unlock()
	for _, o := range l.ledger.orders {
		if o.PaymentProvider == provider && o.ProviderRef != nil && *o.ProviderRef == ref {
			return &o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (l *ledgerOrders) AttachIntent(_ context.Context, order *models.StudentOrder, intent *payments.Intent) error {
	l.ledger.mu.Lock()
	defer l.ledger.mu.Unlock()
	o := l.ledger.orders[order.OrderNumber]
	if intent.Reference != "" {
		ref := intent.Reference
		o.ProviderRef = &ref
	}
	o.PaymentProvider = intent.Provider
	l.ledger.orders[order.OrderNumber] = o
	return nil
}

func (l *ledgerOrders) RecordPayer(context.Context, string, *payments.Confirmation) {
	l.payers++
}

// paypalAPI echoes the custom_id it was given back on capture and answers
// signature checks with verifyStatus.
type paypalAPI struct {
	created      map[string]interface{}
	captures     int32
	verifyStatus string
}

func fakePayPalAPI(t *testing.T) (*httptest.Server, *paypalAPI) {
	api := &paypalAPI{created: map[string]interface{}{}, verifyStatus: "SUCCESS"}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&api.created))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PP-35","status":"CREATED"}`))
	})
	mux.HandleFunc("/v2/checkout/orders/PP-35/capture", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&api.captures, 1)
		unit := api.created["purchase_units"].([]interface{})[0].(map[string]interface{})
		resp := map[string]interface{}{
			"id":     "PP-35",
			"status": "COMPLETED",
			"payer":  map[string]interface{}{"email_address": "sam@example.com", "name": map[string]string{"given_name": "Sam", "surname": "Lee"}},
			"purchase_units": []interface{}{map[string]interface{}{
				"payments": map[string]interface{}{"captures": []interface{}{map[string]interface{}{
					"id": "CAP-35", "status": "COMPLETED", "custom_id": unit["custom_id"],
				}}},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]string{"verification_status": api.verifyStatus}))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, api
}

func TestPayPalCheckoutCreditsThirtyFiveClasses(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addBalance(models.StudentClassBalance{StudentID: student, TotalClasses: 5, UsedClasses: 2})

	pkg, ok := FindPackage(DefaultCatalog(), "one-on-one", "35")
	require.True(t, ok)
	order := BuildOrder(&models.UserProfile{ID: student}, &pkg, payments.ProviderPayPal, "ORD-1700000000000-K3J9QZ1")
	ledger.addOrder(order)

	srv, api := fakePayPalAPI(t)
	client := payments.NewPayPalClient(srv.URL, "id", "secret", "")
	rate := decimal.RequireFromString("0.14")
	records := &ledgerOrders{ledger: ledger}
	checkout := NewCheckoutService(records, newTestReconciler(ledger),
		payments.NewRegistry(payments.NewPayPalProvider(client, rate)), client, rate)

	paypalID, err := checkout.CreatePayPalOrder(context.Background(), PayPalOrderRequest{
		Amount:   decimal.RequireFromString("0.01"),
		Metadata: map[string]interface{}{"orderNumber": order.OrderNumber, "classes": 999},
	})
	require.NoError(t, err)
	assert.Equal(t, "PP-35", paypalID)

	unit := api.created["purchase_units"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "1166.20", unit["amount"].(map[string]interface{})["value"], "amount must come from the order")
	assert.Equal(t, "35课时 - 35 课时", unit["description"])

	res, outcome, err := checkout.CapturePayPalOrder(context.Background(), paypalID)
	require.NoError(t, err)
	assert.Equal(t, "Sam Lee", res.PayerName)
	require.True(t, outcome.Credited())

	stored := ledger.order(order.OrderNumber)
	assert.Equal(t, models.OrderPaid, stored.Status)
	bal, _ := ledger.balance(student)
	assert.Equal(t, 40, bal.TotalClasses)
	assert.Equal(t, 38, bal.RemainingClasses)
	assert.Equal(t, 1, records.payers)

	_, outcome, err = checkout.CapturePayPalOrder(context.Background(), paypalID)
	require.NoError(t, err)
	assert.False(t, outcome.Credited())
	bal, _ = ledger.balance(student)
	assert.Equal(t, 38, bal.RemainingClasses)
}

func TestApplyRejectsForeignReference(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	order := pendingOrder("ORD-1-REFREF1", student, 10)
	ref := "cs_expected"
	order.ProviderRef = &ref
	order.PaymentProvider = payments.ProviderStripe
	ledger.addOrder(order)

	checkout := NewCheckoutService(&ledgerOrders{ledger: ledger}, newTestReconciler(ledger), payments.NewRegistry(), nil, decimal.Zero)
	_, err := checkout.Apply(context.Background(), &payments.Confirmation{
		Provider: payments.ProviderStripe, Reference: "cs_other", OrderNumber: order.OrderNumber, Paid: true,
	})
	assert.ErrorIs(t, err, ErrReferenceMismatch)
	_, ok := ledger.balance(student)
	assert.False(t, ok)
}

func TestManualConfirmationAwaitsReview(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	order := pendingOrder("ORD-1-WECHAT1", student, 10)
	order.PaymentProvider = payments.ProviderWechat
	ledger.addOrder(order)

	checkout := NewCheckoutService(&ledgerOrders{ledger: ledger}, newTestReconciler(ledger),
		payments.NewRegistry(payments.NewManualProvider(payments.ProviderWechat, "/qr.png")), nil, decimal.Zero)

	stored := ledger.order(order.OrderNumber)
	intent, err := checkout.StartCheckout(context.Background(), &stored, "")
	require.NoError(t, err)
	assert.Equal(t, "/qr.png", intent.QRCodeURL)

	outcome, err := checkout.ConfirmOrder(context.Background(), &stored, "")
	require.NoError(t, err)
	assert.False(t, outcome.Credited())
	assert.Equal(t, models.OrderPendingConfirmation, ledger.order(order.OrderNumber).Status)
	_, ok := ledger.balance(student)
	assert.False(t, ok)
}

func paypalCheckout(t *testing.T, ledger *memLedger, webhookID string) (*CheckoutService, *paypalAPI) {
	srv, api := fakePayPalAPI(t)
	client := payments.NewPayPalClient(srv.URL, "id", "secret", webhookID)
	rate := decimal.RequireFromString("0.14")
	checkout := NewCheckoutService(&ledgerOrders{ledger: ledger}, newTestReconciler(ledger),
		payments.NewRegistry(payments.NewPayPalProvider(client, rate)), client, rate)
	return checkout, api
}

func paypalOrder(number string, studentID uuid.UUID, ref string) models.StudentOrder {
	order := pendingOrder(number, studentID, 10)
	order.PaymentProvider = payments.ProviderPayPal
	order.ProviderRef = &ref
	return order
}

func TestCaptureRefusedForCancelledOrder(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	order := paypalOrder("ORD-1-CANCEL1", student, "PP-35")
	order.Status = models.OrderCancelled
	ledger.addOrder(order)

	checkout, api := paypalCheckout(t, ledger, "")
	_, _, err := checkout.CapturePayPalOrder(context.Background(), "PP-35")
	assert.ErrorIs(t, err, ErrNotPayable)
	assert.Zero(t, atomic.LoadInt32(&api.captures), "no money may be taken for a closed order")
	_, ok := ledger.balance(student)
	assert.False(t, ok)
}

func TestCaptureAllowedForPendingLinkedOrder(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(paypalOrder("ORD-1-PENDNG1", student, "PP-35"))

	checkout, api := paypalCheckout(t, ledger, "")
	_, err := checkout.CreatePayPalOrder(context.Background(), PayPalOrderRequest{
		Amount:   decimal.NewFromInt(10),
		Metadata: map[string]interface{}{"orderNumber": "ORD-1-PENDNG1"},
	})
	require.NoError(t, err)

	_, outcome, err := checkout.CapturePayPalOrder(context.Background(), "PP-35")
	require.NoError(t, err)
	assert.True(t, outcome.Credited())
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.captures))
	bal, _ := ledger.balance(student)
	assert.Equal(t, 10, bal.RemainingClasses)
}

func captureEvent(orderNumber, paypalOrderID string) []byte {
	customID, _ := json.Marshal(map[string]string{"orderNumber": orderNumber})
	event, _ := json.Marshal(map[string]interface{}{
		"event_type": payments.PayPalEventCaptureComplete,
		"resource": map[string]interface{}{
			"id":                 "CAP-35",
			"status":             payments.PayPalStatusCompleted,
			"custom_id":          string(customID),
			"supplementary_data": map[string]interface{}{"related_ids": map[string]string{"order_id": paypalOrderID}},
		},
	})
	return event
}

func TestPayPalWebhookCreditsOnceAcrossReplays(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(paypalOrder("ORD-1-WEBHK01", student, "PP-35"))

	checkout, _ := paypalCheckout(t, ledger, "WH-ID")
	req := payments.WebhookRequest{
		Payload: captureEvent("ORD-1-WEBHK01", "PP-35"),
		Headers: map[string]string{"Paypal-Transmission-Id": "T-1"},
	}

	outcome, err := checkout.HandleWebhook(context.Background(), payments.ProviderPayPal, req)
	require.NoError(t, err)
	require.True(t, outcome.Credited())
	assert.Equal(t, models.OrderPaid, ledger.order("ORD-1-WEBHK01").Status)

	outcome, err = checkout.HandleWebhook(context.Background(), payments.ProviderPayPal, req)
	require.NoError(t, err)
	assert.False(t, outcome.Credited())
	bal, _ := ledger.balance(student)
	assert.Equal(t, 10, bal.TotalClasses)
	assert.Equal(t, 10, bal.RemainingClasses)
}

func TestPayPalWebhookWithBadSignatureChangesNothing(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(paypalOrder("ORD-1-FORGED1", student, "PP-35"))

	checkout, api := paypalCheckout(t, ledger, "WH-ID")
	api.verifyStatus = "FAILURE"
	_, err := checkout.HandleWebhook(context.Background(), payments.ProviderPayPal, payments.WebhookRequest{
		Payload: captureEvent("ORD-1-FORGED1", "PP-35"),
	})
	assert.ErrorIs(t, err, payments.ErrSignatureInvalid)
	assert.Equal(t, models.OrderPending, ledger.order("ORD-1-FORGED1").Status)
	_, ok := ledger.balance(student)
	assert.False(t, ok)
}

func TestPayPalWebhookForAnotherPayPalOrderRejected(t *testing.T) {
	ledger := newMemLedger()
	student := uuid.New()
	ledger.addOrder(paypalOrder("ORD-1-OTHER01", student, "PP-35"))

	checkout, _ := paypalCheckout(t, ledger, "WH-ID")
	_, err := checkout.HandleWebhook(context.Background(), payments.ProviderPayPal, payments.WebhookRequest{
		Payload: captureEvent("ORD-1-OTHER01", "PP-99"),
	})
	assert.ErrorIs(t, err, ErrReferenceMismatch)
	_, ok := ledger.balance(student)
	assert.False(t, ok)
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	config "github.com/wavemandarin/mandarin_school/configs"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/payments"
	"github.com/wavemandarin/mandarin_school/services"
)

func TestCheckoutOrderReturnsPayPalClientID(t *testing.T) {
	db, mock := useMockDB(t)
	student := &models.UserProfile{ID: uuid.New(), Email: "anna@example.com"}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PP-77","status":"CREATED"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	rate := decimal.RequireFromString("0.14")
	client := payments.NewPayPalClient(srv.URL, "server-id", "secret", "")
	orders := services.NewOrderService(db, nil)
	Init(Deps{
		Config:   &config.AppConfig{PayPalClientID: "server-id", PayPalPublicClientID: "browser-id", CNYToUSDRate: rate},
		Orders:   orders,
		Checkout: services.NewCheckoutService(orders, nil, payments.NewRegistry(payments.NewPayPalProvider(client, rate)), client, rate),
	})

	mock.ExpectQuery(`SELECT \* FROM "student_orders" WHERE order_number = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "student_id", "package_name", "classes_purchased", "amount", "currency", "status", "payment_provider"}).
			AddRow(uuid.NewString(), "ORD-1-PAYPAL1", student.ID.String(), "35课时", 35, "8330", "CNY", "pending", "paypal"))
	mock.ExpectExec(`UPDATE "student_orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	app := fiber.New()
	app.Post("/api/orders/:orderNumber/checkout", func(c *fiber.Ctx) error {
		c.Locals("profile", student)
		return c.Next()
	}, CheckoutOrder)

	status, body := doJSON(t, app, "POST", "/api/orders/ORD-1-PAYPAL1/checkout", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "browser-id", body["paypal_client_id"])
	assert.NotContains(t, body, "publishable_key")
	intent := body["intent"].(map[string]interface{})
	assert.Equal(t, "PP-77", intent["reference"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/payments"
	"github.com/wavemandarin/mandarin_school/services"
)

type PayPalCreateOrderRequest struct {
	Amount      json.RawMessage        `json:"amount"`
	Currency    string                 `json:"currency"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// parseAmount accepts both "99.90" and 99.9.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, errors.New("amount is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func PayPalCreateOrder(c *fiber.Ctx) error {
	var req PayPalCreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON", "error_zh": "请求格式错误"})
	}
	amount, err := parseAmount(req.Amount)
	_, linked := req.Metadata["orderNumber"].(string)
	if !linked && (err != nil || !amount.IsPositive()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount", "error_zh": "金额无效"})
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	orderID, err := deps.Checkout.CreatePayPalOrder(c.UserContext(), services.PayPalOrderRequest{
		Amount:      amount,
		Currency:    req.Currency,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"orderId": orderID})
}

func PayPalCaptureOrder(c *fiber.Ctx) error {
	var req struct {
		OrderID string `json:"orderId" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON", "error_zh": "请求格式错误"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Order ID is required", "error_zh": "缺少订单ID"})
	}

	res, outcome, err := deps.Checkout.CapturePayPalOrder(c.UserContext(), req.OrderID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    res.Status == payments.PayPalStatusCompleted,
		"orderId":    res.OrderID,
		"status":     res.Status,
		"metadata":   res.Metadata,
		"payerEmail": res.PayerEmail,
		"payerName":  res.PayerName,
		"credited":   outcome.Credited(),
	})
}

func StripeSessionStatus(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id is required"})
	}
	if deps.Stripe == nil {
		return serviceError(c, payments.ErrUnknownProvider)
	}
	status, err := deps.Stripe.SessionStatus(c.UserContext(), sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Stripe session lookup failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session"})
	}
	return c.JSON(status)
}

func webhookHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})
	return headers
}

func providerWebhook(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome, err := deps.Checkout.HandleWebhook(c.UserContext(), provider, payments.WebhookRequest{
			Payload: append([]byte(nil), c.Body()...),
			Headers: webhookHeaders(c),
		})
		if err != nil {
			logrus.WithError(err).WithField("provider", provider).Warn("Webhook rejected")
			if errors.Is(err, services.ErrPaymentIncomplete) {
				return c.JSON(fiber.Map{"received": true})
			}
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"received": true, "credited": outcome.Credited()})
	}
}

var (
	StripeWebhook = providerWebhook(payments.ProviderStripe)
	PayPalWebhook = providerWebhook(payments.ProviderPayPal)
)

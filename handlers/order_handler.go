package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/middleware"
	"github.com/wavemandarin/mandarin_school/payments"
)

type CreateOrderRequest struct {
	CourseKey       string `json:"course_key" validate:"required"`
	PackageKey      string `json:"package_key" validate:"required"`
	PaymentProvider string `json:"payment_provider" validate:"required,oneof=stripe paypal wechat alipay"`
}

func CreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON", "error_zh": "请求格式错误"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "error_zh": "请求参数无效"})
	}

	if !deps.Checkout.Supports(req.PaymentProvider) {
		return serviceError(c, fmt.Errorf("%w: %s", payments.ErrUnknownProvider, req.PaymentProvider))
	}

	profile := middleware.CurrentProfile(c)
	order, err := deps.Orders.CreateOrder(c.UserContext(), profile, req.CourseKey, req.PackageKey, req.PaymentProvider)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func ListMyOrders(c *fiber.Ctx) error {
	orders, err := deps.Orders.ListForStudent(c.UserContext(), middleware.CurrentProfile(c).ID, 0)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(orders)
}

func GetMyOrder(c *fiber.Ctx) error {
	order, err := deps.Orders.GetForStudent(c.UserContext(), middleware.CurrentProfile(c).ID, c.Params("orderNumber"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(order)
}

// CheckoutOrder creates the payment intent for the order's provider.
func CheckoutOrder(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	order, err := deps.Orders.GetForStudent(c.UserContext(), profile.ID, c.Params("orderNumber"))
	if err != nil {
		return serviceError(c, err)
	}
	intent, err := deps.Checkout.StartCheckout(c.UserContext(), order, profile.Email)
	if err != nil {
		return serviceError(c, err)
	}
	resp := fiber.Map{"order_number": order.OrderNumber, "intent": intent}
	switch intent.Provider {
	case payments.ProviderStripe:
		resp["publishable_key"] = deps.Config.StripePublishableKey
	case payments.ProviderPayPal:
		resp["paypal_client_id"] = deps.Config.PayPalPublicClientID
	}
	return c.JSON(resp)
}

// ConfirmOrder is called by the client after the provider UI reports completion.
func ConfirmOrder(c *fiber.Ctx) error {
	var req struct {
		Reference string `json:"reference"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON", "error_zh": "请求格式错误"})
		}
	}

	order, err := deps.Orders.GetForStudent(c.UserContext(), middleware.CurrentProfile(c).ID, c.Params("orderNumber"))
	if err != nil {
		return serviceError(c, err)
	}
	outcome, err := deps.Checkout.ConfirmOrder(c.UserContext(), order, req.Reference)
	if err != nil {
		return serviceError(c, err)
	}

	resp := fiber.Map{
		"success":  true,
		"order":    outcome.Order,
		"credited": outcome.Credited(),
	}
	if outcome.Credit != nil && outcome.Credit.Balance != nil {
		resp["balance"] = outcome.Credit.Balance
	}
	return c.JSON(resp)
}

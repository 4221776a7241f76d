package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/wavemandarin/mandarin_school/handlers"
)

func PaymentRoutes(app *fiber.App, g Guards) {
	api := app.Group("/api")

	orders := api.Group("/orders", g.Student)
	orders.Post("", handlers.CreateOrder)
	orders.Get("/me", handlers.ListMyOrders)
	orders.Get("/:orderNumber", handlers.GetMyOrder)
	orders.Post("/:orderNumber/checkout", handlers.CheckoutOrder)
	orders.Post("/:orderNumber/confirm", handlers.ConfirmOrder)

	paypal := api.Group("/paypal", g.Student)
	paypal.Post("/create-order", handlers.PayPalCreateOrder)
	paypal.Post("/capture-order", handlers.PayPalCaptureOrder)

	api.Get("/stripe/session-status", g.Student, handlers.StripeSessionStatus)

	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", handlers.StripeWebhook)
	webhooks.Post("/paypal", handlers.PayPalWebhook)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/wavemandarin/mandarin_school/payments"
)

// GetConversionRate exposes the fixed CNY→USD rate used for card and PayPal charges.
func GetConversionRate(c *fiber.Ctx) error {
	rate := deps.Config.CNYToUSDRate
	example := payments.ConvertCNYToUSD(decimal.NewFromInt(100), rate)
	return c.JSON(fiber.Map{
		"cny_to_usd":  rate.String(),
		"example_cny": "100.00",
		"example_usd": example.StringFixed(2),
	})
}

// GetClientConfig returns the browser-safe keys the storefront needs to load the
// Supabase and payment SDKs.
func GetClientConfig(c *fiber.Ctx) error {
	cfg := deps.Config
	return c.JSON(fiber.Map{
		"supabase_url":           cfg.SupabaseURL,
		"supabase_anon_key":      cfg.SupabaseAnonKey,
		"paypal_client_id":       cfg.PayPalPublicClientID,
		"stripe_publishable_key": cfg.StripePublishableKey,
	})
}

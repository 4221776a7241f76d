package main

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	config "github.com/wavemandarin/mandarin_school/configs"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/handlers"
	"github.com/wavemandarin/mandarin_school/jobs"
	"github.com/wavemandarin/mandarin_school/middleware"
	"github.com/wavemandarin/mandarin_school/notifications"
	"github.com/wavemandarin/mandarin_school/payments"
	"github.com/wavemandarin/mandarin_school/routes"
	"github.com/wavemandarin/mandarin_school/services"
	"github.com/wavemandarin/mandarin_school/websocket"
)

func setupLogging(cfg *config.AppConfig) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// paymentRegistry builds the providers that have credentials; wechat and alipay are always on.
func paymentRegistry(cfg *config.AppConfig) (*payments.Registry, *payments.PayPalClient, *payments.StripeProvider) {
	var (
		paypalClient *payments.PayPalClient
		paypal       payments.PaymentProvider
		stripe       *payments.StripeProvider
		stripeP      payments.PaymentProvider
	)
	if cfg.PayPalClientID != "" && cfg.PayPalClientSecret != "" {
		paypalClient = payments.NewPayPalClient(cfg.PayPalBaseURL(), cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalWebhookID)
		paypal = payments.NewPayPalProvider(paypalClient, cfg.CNYToUSDRate)
	} else {
		logrus.Warn("⚠️ PayPal not configured. Missing PAYPAL_CLIENT_ID or PAYPAL_CLIENT_SECRET.")
	}
	if cfg.StripeSecretKey != "" {
		stripe = payments.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.CNYToUSDRate)
		stripeP = stripe
	} else {
		logrus.Warn("⚠️ Stripe not configured. Missing STRIPE_SECRET_KEY.")
	}

	registry := payments.NewRegistry(
		stripeP,
		paypal,
		payments.NewManualProvider(payments.ProviderWechat, cfg.WechatQRURL),
		payments.NewManualProvider(payments.ProviderAlipay, cfg.AlipayQRURL),
	)
	return registry, paypalClient, stripe
}

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	database.ConnectDB(cfg)
	database.Migrate()
	database.ConnectRedis(cfg)
	database.SeedCatalog(services.DefaultCatalog())
	notifications.InitEmailService(cfg)

	catalog := services.NewCatalogService(database.DB)
	profiles := services.NewProfileService(database.DB, database.GetRedisClient())
	orders := services.NewOrderService(database.DB, catalog)
	adminAuth := services.NewAdminAuth(services.NewGormAdminStore(database.DB), cfg.AdminSecret)

	reconciler := services.NewReconciler(services.NewGormLedger(database.DB), func(result services.CreditResult) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		student, err := profiles.FindByID(ctx, result.Order.StudentID)
		if err != nil {
			logrus.WithError(err).WithField("order_number", result.Order.OrderNumber).Warn("Paid order has no reachable student profile")
			return
		}
		subject, body := notifications.OrderPaidEmail(student.Name, result.Order.PackageName,
			result.Order.ClassesPurchased, result.Balance.RemainingClasses, result.Order.OrderNumber)
		notifications.SendEmail(student.Name, student.Email, subject, body)
	})

	registry, paypalClient, stripe := paymentRegistry(cfg)
	checkout := services.NewCheckoutService(orders, reconciler, registry, paypalClient, cfg.CNYToUSDRate)

	handlers.Init(handlers.Deps{
		Config:     cfg,
		Catalog:    catalog,
		Orders:     orders,
		Profiles:   profiles,
		Reconciler: reconciler,
		Checkout:   checkout,
		AdminAuth:  adminAuth,
		Stripe:     stripe,
	})

	c := cron.New()
	if _, err := c.AddFunc("*/5 * * * *", jobs.SendClassReminders); err != nil {
		logrus.WithError(err).Fatal("Failed to schedule class reminders")
	}
	if _, err := c.AddFunc("@hourly", jobs.ExpireStaleOrders(orders, cfg.OrderExpiryDays)); err != nil {
		logrus.WithError(err).Fatal("Failed to schedule order expiry")
	}
	c.Start()
	defer c.Stop()
	logrus.Info("✅ Cron jobs scheduled successfully.")

	go websocket.RunHub()

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Wave Mandarin",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  45 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			logrus.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Error("Unhandled request error")
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Principal-Password, Stripe-Signature, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(middleware.LoggerMiddleware())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Wave Mandarin API",
		})
	})
	app.Get("/health", handlers.HealthCheck)

	routes.Register(app, routes.Guards{
		Student:          middleware.StudentRequired(cfg.SupabaseJWTSecret, profiles),
		Admin:            middleware.AdminRequired(adminAuth),
		AdminOrPrincipal: middleware.AdminOrPrincipal(adminAuth, cfg.PrincipalPassword),
	})

	logrus.WithField("port", cfg.Port).Info("✅ Server is running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("🔥 Server failed to start")
	}
}

package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type AppConfig struct {
	Port   string
	AppEnv string

	DatabaseURL string
	RedisURL    string
	LogLevel    string

	SupabaseURL            string
	SupabaseJWTSecret      string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string

	AdminSecret       string
	PrincipalPassword string

	PayPalClientID       string
	PayPalClientSecret   string
	PayPalMode           string
	PayPalWebhookID      string
	PayPalPublicClientID string
	CNYToUSDRate         decimal.Decimal

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripePublishableKey string

	WechatQRURL string
	AlipayQRURL string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	CloudinaryURL string

	OrderExpiryDays int
}

var (
	loadOnce sync.Once
	current  *AppConfig
)

// Config returns a raw environment value, loading .env on first use.
func Config(key string) string {
	loadEnv()
	return os.Getenv(key)
}

func loadEnv() {
	loadOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			logrus.Warn("Warning: .env file not found, reading from system environment variables")
		}
	})
}

// Load builds the typed configuration once and caches it.
func Load() *AppConfig {
	if current != nil {
		return current
	}
	loadEnv()

	rate, err := decimal.NewFromString(getEnv("CNY_TO_USD_RATE", "0.14"))
	if err != nil {
		logrus.WithError(err).Warn("Invalid CNY_TO_USD_RATE, falling back to 0.14")
		rate = decimal.RequireFromString("0.14")
	}

	expiryDays, err := strconv.Atoi(getEnv("ORDER_EXPIRY_DAYS", "7"))
	if err != nil {
		expiryDays = 7
	}

	current = &AppConfig{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		DatabaseURL: firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("SUPABASE_DB_URL")),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SupabaseURL:            firstNonEmpty(os.Getenv("SUPABASE_URL"), os.Getenv("NEXT_PUBLIC_SUPABASE_URL")),
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseAnonKey:        firstNonEmpty(os.Getenv("NEXT_PUBLIC_SUPABASE_ANON_KEY"), os.Getenv("SUPABASE_ANON_KEY")),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),

		AdminSecret:       os.Getenv("ADMIN_SECRET"),
		PrincipalPassword: os.Getenv("PRINCIPAL_PASSWORD"),

		PayPalClientID:       os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret:   os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalMode:           getEnv("PAYPAL_MODE", "sandbox"),
		PayPalWebhookID:      os.Getenv("PAYPAL_WEBHOOK_ID"),
		PayPalPublicClientID: firstNonEmpty(os.Getenv("NEXT_PUBLIC_PAYPAL_CLIENT_ID"), os.Getenv("PAYPAL_CLIENT_ID")),
		CNYToUSDRate:         rate,

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePublishableKey: os.Getenv("NEXT_PUBLIC_STRIPE_PUBLISHABLE_KEY"),

		WechatQRURL: getEnv("WECHAT_QR_URL", "/images/wechat-pay-qr.png"),
		AlipayQRURL: getEnv("ALIPAY_QR_URL", "/images/alipay-qr.png"),

		BrevoAPIKey:     os.Getenv("BREVO_API_KEY"),
		EmailSender:     os.Getenv("EMAIL_SENDER"),
		EmailSenderName: getEnv("EMAIL_SENDER_NAME", "Wave Mandarin"),

		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),

		OrderExpiryDays: expiryDays,
	}

	validate(current)
	return current
}

func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// PayPalBaseURL follows PAYPAL_MODE: "live" talks to production, anything else to sandbox.
func (c *AppConfig) PayPalBaseURL() string {
	if c.PayPalMode == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validate(c *AppConfig) {
	if c.DatabaseURL == "" {
		if c.SupabaseServiceRoleKey != "" {
			logrus.Warn("SUPABASE_SERVICE_ROLE_KEY is set but DATABASE_URL is not; the API needs a direct Postgres connection string")
		} else {
			logrus.Warn("DATABASE_URL is not set")
		}
	}
	if c.IsProduction() {
		required := map[string]string{
			"ADMIN_SECRET":        c.AdminSecret,
			"PRINCIPAL_PASSWORD":  c.PrincipalPassword,
			"SUPABASE_JWT_SECRET": c.SupabaseJWTSecret,
		}
		for k, v := range required {
			if strings.TrimSpace(v) == "" {
				logrus.Fatalf("Missing required secret %s in production", k)
			}
		}
		if len(c.AdminSecret) < 16 {
			logrus.Fatal("ADMIN_SECRET too short (min 16 chars)")
		}
		return
	}
	if err := ensureAdminSecret(c); err != nil {
		logrus.WithError(err).Fatal("Could not generate an admin token secret")
	}
}

// ensureAdminSecret gives development setups without ADMIN_SECRET a random per-boot
// secret, so admin tokens are never signed with an empty key.
func ensureAdminSecret(c *AppConfig) error {
	if strings.TrimSpace(c.AdminSecret) != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	c.AdminSecret = hex.EncodeToString(buf)
	logrus.Warn("ADMIN_SECRET is not set; using a random secret, admin sessions end on restart")
	return nil
}

package handlers

import (
	"errors"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	config "github.com/wavemandarin/mandarin_school/configs"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/payments"
	"github.com/wavemandarin/mandarin_school/services"
)

var validate = validator.New()

// Deps are the services handlers call into; set once at startup with Init.
type Deps struct {
	Config     *config.AppConfig
	Catalog    *services.CatalogService
	Orders     *services.OrderService
	Profiles   *services.ProfileService
	Reconciler *services.Reconciler
	Checkout   *services.CheckoutService
	AdminAuth  *services.AdminAuth
	Stripe     *payments.StripeProvider
}

var deps Deps

func Init(d Deps) {
	deps = d
}

func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

func pageMeta(total int64, page, limit int) fiber.Map {
	return fiber.Map{
		"total":     total,
		"page":      page,
		"last_page": int(math.Ceil(float64(total) / float64(limit))),
	}
}

// serviceError maps domain errors to status codes. Payment flows get a Chinese message too.
func serviceError(c *fiber.Ctx, err error) error {
	status, msg, msgZh := fiber.StatusInternalServerError, "Internal server error", "服务器错误"
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		status, msg, msgZh = fiber.StatusNotFound, "Order not found", "订单不存在"
	case errors.Is(err, services.ErrPackageNotFound):
		status, msg, msgZh = fiber.StatusNotFound, "Package not found", "课程套餐不存在"
	case errors.Is(err, services.ErrProfileNotFound), errors.Is(err, database.ErrNotFound):
		status, msg, msgZh = fiber.StatusNotFound, "Not found", "未找到"
	case errors.Is(err, services.ErrIllegalTransition):
		status, msg, msgZh = fiber.StatusConflict, "Order status change not allowed", "不允许的订单状态变更"
	case errors.Is(err, services.ErrNotPayable):
		status, msg, msgZh = fiber.StatusConflict, "Order is not awaiting payment", "订单不处于待支付状态"
	case errors.Is(err, services.ErrReferenceMismatch):
		status, msg, msgZh = fiber.StatusBadRequest, "Payment does not match this order", "支付信息与订单不匹配"
	case errors.Is(err, services.ErrPaymentIncomplete):
		status, msg, msgZh = fiber.StatusPaymentRequired, "Payment not completed", "支付未完成"
	case errors.Is(err, services.ErrFreePackage):
		status, msg, msgZh = fiber.StatusBadRequest, "Trial classes are booked through the booking form", "体验课请通过预约表单申请"
	case errors.Is(err, payments.ErrNotApproved):
		status, msg, msgZh = fiber.StatusPaymentRequired, "Payment has not been approved", "支付尚未授权"
	case errors.Is(err, payments.ErrUnknownProvider):
		status, msg, msgZh = fiber.StatusBadRequest, "Payment method not available", "该支付方式不可用"
	case errors.Is(err, payments.ErrSignatureInvalid):
		status, msg, msgZh = fiber.StatusBadRequest, "Invalid signature", "签名无效"
	case errors.Is(err, payments.ErrWebhookUnsupported):
		status, msg, msgZh = fiber.StatusNotFound, "Webhook not supported", "不支持的回调"
	case errors.Is(err, payments.ErrPaymentTimeout):
		status, msg, msgZh = fiber.StatusInternalServerError, payments.TimeoutMessage, "请求超时，请检查网络连接"
	case errors.Is(err, database.ErrDuplicate):
		status, msg, msgZh = fiber.StatusConflict, "Record already exists", "记录已存在"
	case errors.Is(err, database.ErrTableNotFound):
		status, msg, msgZh = fiber.StatusServiceUnavailable, "Database tables not created yet", "数据库表尚未创建"
	}
	if status >= fiber.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Error("Request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "error_zh": msgZh})
}

func HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok", "database": "ok", "cache": "disabled"}
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
	}
	if rdb := database.GetRedisClient(); rdb != nil {
		status["cache"] = "ok"
		if rdb.Ping(c.UserContext()).Err() != nil {
			status["cache"] = "unreachable"
		}
	}
	return c.JSON(status)
}

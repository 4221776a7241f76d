package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"github.com/wavemandarin/mandarin_school/payments"
	"github.com/wavemandarin/mandarin_school/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrFreePackage = errors.New("free packages are booked through the booking form")

type OrderService struct {
	db      *gorm.DB
	catalog PackageLookup
	now     func() time.Time
}

func NewOrderService(db *gorm.DB, catalog PackageLookup) *OrderService {
	return &OrderService{db: db, catalog: catalog, now: time.Now}
}

// BuildOrder prices an order from the catalog entry; client-supplied amounts are never used.
func BuildOrder(profile *models.UserProfile, pkg *models.CoursePackage, provider, orderNumber string) models.StudentOrder {
	return models.StudentOrder{
		OrderNumber:      orderNumber,
		StudentID:        profile.ID,
		CourseKey:        pkg.CourseKey,
		PackageKey:       pkg.PackageKey,
		PackageName:      pkg.NameZh,
		ClassesPurchased: pkg.ClassCount,
		Amount:           pkg.Price,
		Currency:         pkg.Currency,
		ValidityDays:     pkg.ValidityDays,
		Status:           models.OrderPending,
		PaymentProvider:  provider,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, profile *models.UserProfile, courseKey, packageKey, provider string) (*models.StudentOrder, error) {
	pkg, err := s.catalog.ActivePackage(ctx, courseKey, packageKey)
	if err != nil {
		return nil, err
	}
	if pkg.IsFree() {
		return nil, ErrFreePackage
	}

	number, err := utils.GenerateUniqueOrderNumber(s.now, func(candidate string) (bool, error) {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.StudentOrder{}).Where("order_number = ?", candidate).Count(&count).Error
		return count > 0, database.Classify(err)
	})
	if err != nil {
		return nil, err
	}

	order := BuildOrder(profile, pkg, provider, number)
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, database.Classify(err)
	}
	logrus.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"student_id":   profile.ID,
		"package":      courseKey + "/" + packageKey,
		"provider":     provider,
	}).Info("Order created")
	return &order, nil
}

func (s *OrderService) ListForStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]models.StudentOrder, error) {
	var orders []models.StudentOrder
	q := s.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, database.Classify(err)
	}
	return orders, nil
}

func (s *OrderService) FindByNumber(ctx context.Context, orderNumber string) (*models.StudentOrder, error) {
	var order models.StudentOrder
	err := s.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &order, nil
}

// GetForStudent hides orders owned by someone else behind ErrOrderNotFound.
func (s *OrderService) GetForStudent(ctx context.Context, studentID uuid.UUID, orderNumber string) (*models.StudentOrder, error) {
	order, err := s.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.StudentID != studentID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) FindByProviderRef(ctx context.Context, provider, ref string) (*models.StudentOrder, error) {
	var order models.StudentOrder
	err := s.db.WithContext(ctx).Where("payment_provider = ? AND provider_ref = ?", provider, ref).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &order, nil
}

// AttachIntent stores the provider reference so webhooks and confirmations can find the order.
func (s *OrderService) AttachIntent(ctx context.Context, order *models.StudentOrder, intent *payments.Intent) error {
	updates := map[string]interface{}{"payment_provider": intent.Provider}
	if intent.Reference != "" {
		updates["provider_ref"] = intent.Reference
	}
	meta, err := json.Marshal(map[string]interface{}{
		"charged_amount":   intent.Amount.StringFixed(2),
		"charged_currency": intent.Currency,
	})
	if err == nil {
		updates["payment_metadata"] = datatypes.JSON(meta)
	}
	return database.Classify(s.db.WithContext(ctx).Model(order).Updates(updates).Error)
}

// RecordPayer merges confirmation details into the order's payment metadata.
func (s *OrderService) RecordPayer(ctx context.Context, orderNumber string, conf *payments.Confirmation) {
	meta := map[string]interface{}{
		"provider_status": conf.Status,
		"payer_email":     conf.PayerEmail,
		"payer_name":      conf.PayerName,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	err = s.db.WithContext(ctx).Model(&models.StudentOrder{}).
		Where("order_number = ?", orderNumber).
		Update("payment_metadata", gorm.Expr("COALESCE(payment_metadata, '{}'::jsonb) || ?::jsonb", string(data))).Error
	if err != nil {
		logrus.WithError(err).WithField("order_number", orderNumber).Warn("Failed to record payer details")
	}
}

// ExpireStale cancels orders left in pending for longer than maxAge.
// Orders already handed to a provider keep their status since a payment may still land.
func (s *OrderService) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.StudentOrder{}).
		Where("status = ? AND created_at < ? AND (provider_ref IS NULL OR provider_ref = '')", models.OrderPending, s.now().Add(-maxAge)).
		Update("status", models.OrderCancelled)
	return res.RowsAffected, database.Classify(res.Error)
}

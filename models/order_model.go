package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderPending             OrderStatus = "pending"
	OrderPaid                OrderStatus = "paid"
	OrderCancelled           OrderStatus = "cancelled"
	OrderRefunded            OrderStatus = "refunded"
	OrderPendingConfirmation OrderStatus = "pending_confirmation"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:             {OrderPaid, OrderCancelled, OrderPendingConfirmation},
	OrderPendingConfirmation: {OrderPaid, OrderCancelled},
	OrderPaid:                {OrderRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderCancelled, OrderRefunded, OrderPendingConfirmation:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type StudentOrder struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderNumber      string          `gorm:"size:40;not null;uniqueIndex" json:"order_number"`
	StudentID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	CourseKey        string          `gorm:"size:50" json:"course_id"`
	PackageKey       string          `gorm:"size:50" json:"package_id"`
	PackageName      string          `gorm:"size:255;not null" json:"package_name"`
	ClassesPurchased int             `gorm:"not null" json:"classes_purchased"`
	Amount           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency         string          `gorm:"size:3;not null;default:'CNY'" json:"currency"`
	ValidityDays     int             `gorm:"default:365" json:"validity_days"`
	Status           OrderStatus     `gorm:"size:30;not null;default:'pending';index" json:"status"`
	PaymentProvider  string          `gorm:"size:20" json:"payment_provider"`
	ProviderRef      *string         `gorm:"size:255;index" json:"provider_ref,omitempty"`
	PaymentMetadata  datatypes.JSON  `json:"payment_metadata,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreditedAt       *time.Time      `json:"credited_at,omitempty"`

	Student *UserProfile `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *StudentOrder) IsCredited() bool {
	return o.CreditedAt != nil
}

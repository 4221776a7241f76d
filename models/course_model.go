package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Course struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CourseKey     string    `gorm:"size:50;not null;uniqueIndex" json:"course_key"`
	TitleZh       string    `gorm:"size:255;not null" json:"title_zh"`
	TitleEn       string    `gorm:"size:255;not null" json:"title_en"`
	DescriptionZh string    `gorm:"type:text" json:"description_zh"`
	DescriptionEn string    `gorm:"type:text" json:"description_en"`
	Color         string    `gorm:"size:30" json:"color"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`

	Packages []CoursePackage `gorm:"foreignKey:CourseKey;references:CourseKey" json:"packages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CoursePackage is one purchasable class bundle. Prices are in CNY.
type CoursePackage struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CourseKey     string          `gorm:"size:50;not null;uniqueIndex:idx_course_package" json:"course_key"`
	PackageKey    string          `gorm:"size:50;not null;uniqueIndex:idx_course_package" json:"package_key"`
	NameZh        string          `gorm:"size:255;not null" json:"name_zh"`
	NameEn        string          `gorm:"size:255;not null" json:"name_en"`
	DescriptionZh string          `gorm:"type:text" json:"description_zh"`
	DescriptionEn string          `gorm:"type:text" json:"description_en"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Currency      string          `gorm:"size:3;not null;default:'CNY'" json:"currency"`
	ClassCount    int             `gorm:"not null" json:"class_count"`
	ValidityDays  int             `gorm:"not null;default:365" json:"validity_days"`
	Discount      string          `gorm:"size:20" json:"discount"`
	Popular       bool            `gorm:"default:false" json:"popular"`
	SortOrder     int             `gorm:"default:0" json:"sort_order"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	PerClass      decimal.Decimal `gorm:"-" json:"price_per_class"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *CoursePackage) AfterFind(*gorm.DB) error {
	p.PerClass = p.PricePerClass()
	return nil
}

func (p *CoursePackage) AfterSave(*gorm.DB) error {
	p.PerClass = p.PricePerClass()
	return nil
}

// PricePerClass is zero for free packages.
func (p CoursePackage) PricePerClass() decimal.Decimal {
	if p.ClassCount == 0 {
		return decimal.Zero
	}
	return p.Price.Div(decimal.NewFromInt(int64(p.ClassCount))).Round(0)
}

func (p CoursePackage) IsFree() bool {
	return p.Price.IsZero()
}

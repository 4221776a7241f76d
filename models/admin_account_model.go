package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AdminAccount struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Username     string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        *string   `gorm:"size:255" json:"email"`
	Phone        *string   `gorm:"size:50" json:"phone"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBcryptHash reports whether the stored hash is bcrypt ($2a$, $2b$, $2y$)
// rather than the legacy Base64 encoding.
func (a *AdminAccount) HasBcryptHash() bool {
	return strings.HasPrefix(a.PasswordHash, "$2")
}

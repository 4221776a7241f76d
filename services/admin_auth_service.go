package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AdminTokenTTL     = 24 * time.Hour
	BcryptCost        = 10
	MinPasswordLength = 8
)

type AdminStore interface {
	FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type AdminAuth struct {
	store  AdminStore
	secret []byte
	now    func() time.Time
}

func NewAdminAuth(store AdminStore, secret string) *AdminAuth {
	return &AdminAuth{store: store, secret: []byte(secret), now: time.Now}
}

// Login checks the password and upgrades legacy Base64 hashes to bcrypt on success.
func (a *AdminAuth) Login(ctx context.Context, username, password string) (*models.AdminAccount, string, error) {
	admin, err := a.store.FindByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !admin.IsActive {
		return nil, "", ErrAccountInactive
	}

	if admin.HasBcryptHash() {
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
			return nil, "", ErrInvalidCredentials
		}
	} else {
		decoded, err := base64.StdEncoding.DecodeString(admin.PasswordHash)
		if err != nil || subtle.ConstantTimeCompare(decoded, []byte(password)) != 1 {
			return nil, "", ErrInvalidCredentials
		}
		a.migrateLegacyHash(ctx, admin, password)
	}

	return admin, a.IssueToken(admin.ID), nil
}

func (a *AdminAuth) migrateLegacyHash(ctx context.Context, admin *models.AdminAccount, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash legacy admin password")
		return
	}
	if err := a.store.UpdatePasswordHash(ctx, admin.ID, hash); err != nil {
		logrus.WithError(err).WithField("admin_id", admin.ID).Error("Failed to migrate legacy admin password")
		return
	}
	admin.PasswordHash = hash
	logrus.WithField("admin_id", admin.ID).Info("Migrated admin password to bcrypt")
}

// IssueToken returns base64("<adminID>:<unix millis>:<base64 HMAC-SHA256>").
func (a *AdminAuth) IssueToken(adminID uuid.UUID) string {
	payload := adminID.String() + ":" + strconv.FormatInt(a.now().UnixMilli(), 10)
	raw := payload + ":" + a.sign(payload)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func (a *AdminAuth) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ParseToken validates signature and age without touching the store.
func (a *AdminAuth) ParseToken(token string) (uuid.UUID, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 {
		return uuid.Nil, ErrInvalidToken
	}

	expected := a.sign(parts[0] + ":" + parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return uuid.Nil, ErrInvalidToken
	}

	adminID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	if a.now().Sub(time.UnixMilli(ts)) > AdminTokenTTL {
		return uuid.Nil, ErrTokenExpired
	}
	return adminID, nil
}

// VerifyToken also requires the account to still exist and be active.
func (a *AdminAuth) VerifyToken(ctx context.Context, token string) (*models.AdminAccount, error) {
	adminID, err := a.ParseToken(token)
	if err != nil {
		return nil, err
	}
	admin, err := a.store.FindByID(ctx, adminID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrAccountInactive
	}
	return admin, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPrincipalPassword compares in constant time. An unset password never matches.
func CheckPrincipalPassword(expected, given string) bool {
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

type GormAdminStore struct {
	db *gorm.DB
}

func NewGormAdminStore(db *gorm.DB) *GormAdminStore {
	return &GormAdminStore{db: db}
}

func (s *GormAdminStore) FindByUsername(ctx context.Context, username string) (*models.AdminAccount, error) {
	var admin models.AdminAccount
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, database.Classify(err)
	}
	return &admin, nil
}

func (s *GormAdminStore) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	var admin models.AdminAccount
	if err := s.db.WithContext(ctx).First(&admin, "id = ?", id).Error; err != nil {
		return nil, database.Classify(err)
	}
	return &admin, nil
}

func (s *GormAdminStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	err := s.db.WithContext(ctx).Model(&models.AdminAccount{}).Where("id = ?", id).Update("password_hash", hash).Error
	return database.Classify(err)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
	"gorm.io/gorm"
)

const profileCacheTTL = 5 * time.Minute

// Identity is what a verified student access token tells us about the caller.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Phone  string
}

// DefaultProfileName prefers the sign-up name, then the email local part.
func DefaultProfileName(id Identity) string {
	if name := strings.TrimSpace(id.Name); name != "" {
		return name
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return "Student"
}

type ProfileService struct {
	db    *gorm.DB
	cache *redis.Client
}

// NewProfileService accepts a nil cache.
func NewProfileService(db *gorm.DB, cache *redis.Client) *ProfileService {
	return &ProfileService{db: db, cache: cache}
}

func profileCacheKey(userID uuid.UUID) string {
	return "profile:" + userID.String()
}

// Resolve finds the caller's profile, creating a student profile from the token
// claims when none exists yet.
func (s *ProfileService) Resolve(ctx context.Context, id Identity) (*models.UserProfile, error) {
	if p := s.cached(ctx, id.UserID); p != nil {
		return p, nil
	}

	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).Limit(1).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = models.UserProfile{
			UserID: id.UserID,
			Name:   DefaultProfileName(id),
			Email:  id.Email,
			Phone:  id.Phone,
			Role:   models.RoleStudent,
		}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			if !errors.Is(database.Classify(err), database.ErrDuplicate) {
				return nil, database.Classify(err)
			}
			// concurrent request created it first
			if err := s.db.WithContext(ctx).Where("user_id = ?", id.UserID).First(&profile).Error; err != nil {
				return nil, database.Classify(err)
			}
		} else {
			logrus.WithField("user_id", id.UserID).Info("Created profile from token claims")
		}
	} else if err != nil {
		return nil, database.Classify(err)
	}

	s.store(ctx, &profile)
	return &profile, nil
}

func (s *ProfileService) FindByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Preload("ClassBalance").First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &profile, nil
}

// FindForOrder accepts either a profile id or an auth user id, as older orders stored both.
func (s *ProfileService) FindForOrder(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("id = ? OR user_id = ?", id, id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return &profile, nil
}

func (s *ProfileService) Update(ctx context.Context, profile *models.UserProfile, name, phone string) error {
	if name != "" {
		profile.Name = name
	}
	profile.Phone = phone
	if err := s.db.WithContext(ctx).Model(profile).Updates(map[string]interface{}{
		"name":  profile.Name,
		"phone": profile.Phone,
	}).Error; err != nil {
		return database.Classify(err)
	}
	s.Invalidate(ctx, profile.UserID)
	return nil
}

func (s *ProfileService) Invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, profileCacheKey(userID)).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate cached profile")
	}
}

func (s *ProfileService) cached(ctx context.Context, userID uuid.UUID) *models.UserProfile {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, profileCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Warn("Profile cache read failed")
		}
		return nil
	}
	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil
	}
	return &profile
}

func (s *ProfileService) store(ctx context.Context, profile *models.UserProfile) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, profileCacheKey(profile.UserID), data, profileCacheTTL).Err(); err != nil {
		logrus.WithError(err).Warn("Profile cache write failed")
	}
}

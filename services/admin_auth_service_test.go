package services

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavemandarin/mandarin_school/database"
	"github.com/wavemandarin/mandarin_school/models"
)

type memAdminStore struct {
	admins  map[uuid.UUID]*models.AdminAccount
	updates int
}

func newMemAdminStore(admins ...*models.AdminAccount) *memAdminStore {
	s := &memAdminStore{admins: map[uuid.UUID]*models.AdminAccount{}}
	for _, a := range admins {
		s.admins[a.ID] = a
	}
	return s
}

func (s *memAdminStore) FindByUsername(_ context.Context, username string) (*models.AdminAccount, error) {
	for _, a := range s.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memAdminStore) FindByID(_ context.Context, id uuid.UUID) (*models.AdminAccount, error) {
	a, ok := s.admins[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memAdminStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.updates++
	s.admins[id].PasswordHash = hash
	return nil
}

const testSecret = "test-admin-secret-0123456789"

func TestAdminTokenExpiry(t *testing.T) {
	admin := &models.AdminAccount{ID: uuid.New(), Username: "teacher", IsActive: true}
	auth := NewAdminAuth(newMemAdminStore(admin), testSecret)

	issued := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	token := auth.IssueToken(admin.ID)

	auth.now = func() time.Time { return issued.Add(23*time.Hour + 59*time.Minute) }
	got, err := auth.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	auth.now = func() time.Time { return issued.Add(24*time.Hour + time.Minute) }
	_, err = auth.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAdminTokenRejectsTampering(t *testing.T) {
	admin := &models.AdminAccount{ID: uuid.New(), Username: "teacher", IsActive: true}
	auth := NewAdminAuth(newMemAdminStore(admin), testSecret)
	token := auth.IssueToken(admin.ID)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	parts := strings.Split(string(raw), ":")
	forged := base64.StdEncoding.EncodeToString([]byte(uuid.NewString() + ":" + parts[1] + ":" + parts[2]))
	_, err = auth.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAdminAuth(newMemAdminStore(admin), "another-secret-abcdefgh")
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ParseToken("not base64!")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotContains(t, string(raw), testSecret)
}

func TestAdminTokenRequiresActiveAccount(t *testing.T) {
	admin := &models.AdminAccount{ID: uuid.New(), Username: "teacher", IsActive: true}
	store := newMemAdminStore(admin)
	auth := NewAdminAuth(store, testSecret)
	token := auth.IssueToken(admin.ID)

	store.admins[admin.ID].IsActive = false
	_, err := auth.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrAccountInactive)

	delete(store.admins, admin.ID)
	_, err = auth.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginMigratesLegacyPassword(t *testing.T) {
	admin := &models.AdminAccount{
		ID:           uuid.New(),
		Username:     "laoshi",
		Name:         "Li Laoshi",
		PasswordHash: base64.StdEncoding.EncodeToString([]byte("legacy-pass")),
		IsActive:     true,
	}
	store := newMemAdminStore(admin)
	auth := NewAdminAuth(store, testSecret)

	got, token, err := auth.Login(context.Background(), "laoshi", "legacy-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, store.updates)
	assert.True(t, got.HasBcryptHash())
	assert.True(t, store.admins[admin.ID].HasBcryptHash())

	_, _, err = auth.Login(context.Background(), "laoshi", "legacy-pass")
	require.NoError(t, err)
	assert.Equal(t, 1, store.updates)

	_, _, err = auth.Login(context.Background(), "laoshi", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginFailures(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	inactive := &models.AdminAccount{ID: uuid.New(), Username: "gone", PasswordHash: hash, IsActive: false}
	auth := NewAdminAuth(newMemAdminStore(inactive), testSecret)

	_, _, err = auth.Login(context.Background(), "nobody", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(context.Background(), "gone", "correct-horse")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestCheckPrincipalPassword(t *testing.T) {
	assert.True(t, CheckPrincipalPassword("MWPM", "MWPM"))
	assert.False(t, CheckPrincipalPassword("MWPM", "mwpm"))
	assert.False(t, CheckPrincipalPassword("", ""))
	assert.False(t, CheckPrincipalPassword("MWPM", ""))
}

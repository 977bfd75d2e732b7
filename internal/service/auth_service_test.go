package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(context.Context, string, time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthFixture(t *testing.T, users ...models.User) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		u.PasswordHash = string(hash)
		repo.users[u.ID] = &u
	}
	svc := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "shootdesk"})
	return svc, repo
}

func TestAuthServiceLoginIssuesOperatorClaims(t *testing.T) {
	svc, repo := newAuthFixture(t, models.User{ID: "u-1", Email: "op@example.com", Role: models.RoleOperator, OperatorID: ptrInt64(7), Active: true})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "OP@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, int64(3600), res.ExpiresIn)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	actor := claims.Actor()
	assert.Equal(t, "u-1", actor.ID)
	assert.Equal(t, models.RoleOperator, actor.Role)
	require.NotNil(t, actor.OperatorID)
	assert.Equal(t, int64(7), *actor.OperatorID)
}

func TestAuthServiceLoginRejections(t *testing.T) {
	svc, _ := newAuthFixture(t,
		models.User{ID: "u-1", Email: "admin@example.com", Role: models.RoleAdmin, Active: true},
		models.User{ID: "u-2", Email: "gone@example.com", Role: models.RoleRequester, Active: false},
		models.User{ID: "u-3", Email: "loose@example.com", Role: models.RoleOperator, Active: true},
	)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, models.LoginRequest{Email: "gone@example.com", Password: "password123"})
	require.ErrorIs(t, err, appErrors.ErrInactiveAccount)
	_, err = svc.Login(ctx, models.LoginRequest{Email: "loose@example.com", Password: "password123"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "x"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateTokenExpiry(t *testing.T) {
	svc, _ := newAuthFixture(t, models.User{ID: "u-1", Email: "admin@example.com", Role: models.RoleAdmin, Active: true})
	issued := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(res.AccessToken)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	other.now = func() time.Time { return issued }
	_, err = other.ValidateToken(res.AccessToken)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceMe(t *testing.T) {
	svc, _ := newAuthFixture(t, models.User{ID: "u-1", Email: "req@example.com", FullName: "Kim", Role: models.RoleRequester, Active: true})

	info, err := svc.Me(context.Background(), models.ActorContext{ID: "u-1", Role: models.RoleRequester})
	require.NoError(t, err)
	assert.Equal(t, "Kim", info.FullName)

	_, err = svc.Me(context.Background(), models.ActorContext{ID: "missing"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "operator_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("u1", "op@example.com", "hash", "Operator One", "OPERATOR", int64(3), true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE email = $1 LIMIT 1")).WithArgs("op@example.com").WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "op@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOperator, user.Role)
	require.NotNil(t, user.OperatorID)
	assert.Equal(t, int64(3), *user.OperatorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "req@example.com", PasswordHash: "hash", FullName: "Requester", Role: models.RoleRequester, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Len(t, user.ID, 36)
	assert.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateLastLogin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	ts := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1")).
		WithArgs("u1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastLogin(context.Background(), "u1", ts))
	require.NoError(t, mock.ExpectationsWereMet())
}

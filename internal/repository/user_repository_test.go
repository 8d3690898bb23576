package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozsegura/vozsegura-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "phone", "role", "status", "failed_attempts", "locked_until", "last_login", "created_at", "updated_at"})
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := userRows(now).
		AddRow("1", "user@example.com", "hash", nil, nil, nil, string(models.RoleAdmin), string(models.StatusActive), 0, nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, first_name, last_name, phone, role, status, failed_attempts, locked_until, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, 0, user.FailedAttempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterFailedAttempt(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	lockUntil := time.Now().Add(15 * time.Minute)
	rows := sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).AddRow(5, lockUntil)
	mock.ExpectQuery("UPDATE users SET failed_attempts = failed_attempts \\+ 1").
		WillReturnRows(rows)

	attempts, lockedUntil, err := repo.RegisterFailedAttempt(context.Background(), "u1", 5, lockUntil)
	require.NoError(t, err)
	assert.Equal(t, 5, attempts)
	require.NotNil(t, lockedUntil)
	assert.WithinDuration(t, lockUntil, *lockedUntil, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterFailedAttemptBelowThreshold(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"failed_attempts", "locked_until"}).AddRow(2, nil)
	mock.ExpectQuery("UPDATE users SET failed_attempts = failed_attempts \\+ 1").
		WillReturnRows(rows)

	attempts, lockedUntil, err := repo.RegisterFailedAttempt(context.Background(), "u1", 5, time.Now().Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Nil(t, lockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetLockout(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = $2 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ResetLockout(context.Background(), "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordClearsLockout(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $2, failed_attempts = 0, locked_until = NULL, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePassword(context.Background(), "u1", "newhash", time.Now().UTC())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	listRows := userRows(now).
		AddRow("1", "a@example.com", "hash", nil, nil, nil, string(models.RoleAdmin), string(models.StatusActive), 0, nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, first_name, last_name, phone, role, status, failed_attempts, locked_until, last_login, created_at, updated_at FROM users WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "s1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package models

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientportal/internal/apperrors"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := NewDB(sqlDB)
	require.NoError(t, err)
	return db, mock
}

func TestResolveDefaultsToClient(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_roles" WHERE user_id = $1`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role"}))

	role, err := db.Roles.Resolve(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, RoleClient, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_roles" WHERE user_id = $1`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role"}).
			AddRow(uuid.NewString(), userID.String(), "client").
			AddRow(uuid.NewString(), userID.String(), "admin"))

	role, err := db.Roles.Resolve(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
}

func TestHasRole(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "user_roles" WHERE user_id = $1 AND role = $2`)).
		WithArgs(userID, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := db.Roles.HasRole(context.Background(), userID, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetProfileNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE user_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "full_name", "phone", "created_at", "updated_at"}))

	_, err := db.Profiles.GetByUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()
	name := "Ana Souza"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "profiles" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "profiles" WHERE user_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "full_name", "phone", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), userID.String(), name, nil, time.Now(), time.Now()))

	profile, err := db.Profiles.Update(context.Background(), userID, ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.DisplayName())
	assert.Nil(t, profile.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrimaryRole(t *testing.T) {
	u := &User{Roles: []UserRole{{Role: RoleClient}}}
	assert.Equal(t, RoleClient, u.PrimaryRole())

	u.Roles = append(u.Roles, UserRole{Role: RoleAdmin})
	assert.Equal(t, RoleAdmin, u.PrimaryRole())

	assert.Equal(t, RoleClient, (&User{}).PrimaryRole())
}

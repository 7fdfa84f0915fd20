package models

import (
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clientportal/internal/apperrors"
)

// DB holds the gorm connection and all model managers
type DB struct {
	*gorm.DB
	Users    *UserManager
	Profiles *ProfileManager
	Roles    *RoleManager
}

// NewDB opens gorm on top of an existing pool so raw SQL and the managers
// share connections. The schema itself is owned by the SQL migrations.
func NewDB(sqlDB *sql.DB) (*DB, error) {
	config := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return wrap(gormDB), nil
}

func wrap(gormDB *gorm.DB) *DB {
	return &DB{
		DB:       gormDB,
		Users:    NewUserManager(gormDB),
		Profiles: NewProfileManager(gormDB),
		Roles:    NewRoleManager(gormDB),
	}
}

// Django-like convenience methods

// GetObjectOr404 retrieves an object or returns a not-found error (similar to Django's get_object_or_404)
func GetObjectOr404[T any](db *gorm.DB, conditions ...interface{}) (*T, error) {
	var obj T
	err := db.First(&obj, conditions...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("object %w", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &obj, nil
}

// Exists checks if a record exists (similar to Django's exists())
func Exists[T any](db *gorm.DB, query interface{}, args ...interface{}) (bool, error) {
	var count int64
	err := db.Model(new(T)).Where(query, args...).Count(&count).Error
	return count > 0, err
}

// Count returns the count of records (similar to Django's count())
func Count[T any](db *gorm.DB, conditions ...interface{}) (int64, error) {
	var count int64
	query := db.Model(new(T))
	if len(conditions) > 0 {
		query = query.Where(conditions[0], conditions[1:]...)
	}
	err := query.Count(&count).Error
	return count, err
}

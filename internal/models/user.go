package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clientportal/internal/apperrors"
)

// User represents an account. Rows are written by the auth flow in the
// database package; this model only reads them.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Provider  string    `gorm:"column:provider;not null" json:"provider"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Profile *Profile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Roles   []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// PrimaryRole collapses the loaded roles to admin or client.
func (u *User) PrimaryRole() AppRole {
	for _, r := range u.Roles {
		if r.Role == RoleAdmin {
			return RoleAdmin
		}
	}
	return RoleClient
}

// UserManager provides Django-like ORM methods for User
type UserManager struct {
	db *gorm.DB
}

// NewUserManager creates a new UserManager instance
func NewUserManager(db *gorm.DB) *UserManager {
	return &UserManager{db: db}
}

// Get retrieves a user by ID with profile and roles loaded
func (m *UserManager) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := m.db.WithContext(ctx).Preload("Profile").Preload("Roles").First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Clients lists every non-admin account with its profile, newest first.
func (m *UserManager) Clients(ctx context.Context) ([]User, error) {
	var users []User
	err := m.db.WithContext(ctx).
		Preload("Profile").
		Where("NOT EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = users.id AND r.role = ?)", RoleAdmin).
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return users, nil
}

// CountClients returns how many non-admin accounts exist.
func (m *UserManager) CountClients(ctx context.Context) (int64, error) {
	return Count[User](m.db.WithContext(ctx),
		"NOT EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = users.id AND r.role = ?)", RoleAdmin)
}

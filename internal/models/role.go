package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRole is one row of user_roles. A user may hold several.
type UserRole struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Role   AppRole   `gorm:"type:app_role;not null;column:role" json:"role"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// RoleManager resolves and grants roles.
type RoleManager struct {
	db *gorm.DB
}

func NewRoleManager(db *gorm.DB) *RoleManager {
	return &RoleManager{db: db}
}

// Resolve returns admin if the user holds the admin role and client
// otherwise, including when no role row exists.
func (m *RoleManager) Resolve(ctx context.Context, userID uuid.UUID) (AppRole, error) {
	var roles []UserRole
	if err := m.db.WithContext(ctx).Where("user_id = ?", userID).Find(&roles).Error; err != nil {
		return RoleClient, fmt.Errorf("failed to resolve role: %w", err)
	}
	for _, r := range roles {
		if r.Role == RoleAdmin {
			return RoleAdmin, nil
		}
	}
	return RoleClient, nil
}

// HasRole reports whether the user holds role.
func (m *RoleManager) HasRole(ctx context.Context, userID uuid.UUID, role AppRole) (bool, error) {
	return Exists[UserRole](m.db.WithContext(ctx), "user_id = ? AND role = ?", userID, role)
}

// Grant adds role to the user; granting twice is a no-op.
func (m *RoleManager) Grant(ctx context.Context, userID uuid.UUID, role AppRole) error {
	err := m.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRole{UserID: userID, Role: role}).Error
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

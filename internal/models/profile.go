package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clientportal/internal/apperrors"
)

// Profile holds the display data of an account.
type Profile struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid();column:id" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;column:user_id" json:"user_id"`
	FullName *string   `gorm:"column:full_name" json:"full_name"`
	Phone    *string   `gorm:"column:phone" json:"phone"`
	Timestamps
}

func (Profile) TableName() string {
	return "profiles"
}

// DisplayName returns the full name, or an empty string when unset.
func (p *Profile) DisplayName() string {
	if p == nil || p.FullName == nil {
		return ""
	}
	return *p.FullName
}

// ProfileUpdate carries the editable fields. Nil leaves a field unchanged;
// an empty string clears it.
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

// ProfileManager provides Django-like ORM methods for Profile
type ProfileManager struct {
	db *gorm.DB
}

func NewProfileManager(db *gorm.DB) *ProfileManager {
	return &ProfileManager{db: db}
}

// GetByUser retrieves the profile of a user
func (m *ProfileManager) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return GetObjectOr404[Profile](m.db.WithContext(ctx), "user_id = ?", userID)
}

// Update applies the non-nil fields of upd and returns the stored profile.
func (m *ProfileManager) Update(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*Profile, error) {
	updates := map[string]interface{}{}
	if upd.FullName != nil {
		updates["full_name"] = nullable(*upd.FullName)
	}
	if upd.Phone != nil {
		updates["phone"] = nullable(*upd.Phone)
	}
	if len(updates) > 0 {
		result := m.db.WithContext(ctx).Model(&Profile{}).Where("user_id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("profile %w", apperrors.ErrNotFound)
		}
	}
	return m.GetByUser(ctx, userID)
}

func nullable(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

package models

import (
	"time"

	"clientportal/internal/workflow"
)

// AppRole mirrors the app_role PostgreSQL enum.
type AppRole = workflow.Role

const (
	RoleAdmin  AppRole = workflow.RoleAdmin
	RoleClient AppRole = workflow.RoleClient
)

// Timestamps contains the audit columns shared by most tables.
type Timestamps struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"clientportal/internal/apperrors"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Provider     string    `json:"provider"`
	ProviderID   string    `json:"provider_id,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAccount is what sign-up writes: the user row plus its profile and role.
type NewAccount struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Role         string
}

// ErrEmailTaken is returned when sign-up hits the unique email index.
var ErrEmailTaken = fmt.Errorf("email already registered: %w", apperrors.ErrConflict)

const userColumns = `id, email, COALESCE(password_hash, ''), provider, COALESCE(provider_id, ''),
	COALESCE(avatar_url, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Provider, &user.ProviderID,
		&user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateAccount inserts the user, its profile and its role in one transaction.
func (s *service) CreateAccount(ctx context.Context, account *NewAccount) (*User, error) {
	role := account.Role
	if role == "" {
		role = "client"
	}

	var user *User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, provider, created_at, updated_at)
			VALUES ($1, $2, 'email', NOW(), NOW())
			RETURNING `+userColumns,
			strings.ToLower(strings.TrimSpace(account.Email)), account.PasswordHash,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, full_name, phone, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())`,
			user.ID, nullString(account.FullName), nullString(account.Phone),
		)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role)
		if err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpsertOAuthUser creates a user from an OAuth identity or refreshes it. New
// users get an empty profile and the client role.
func (s *service) UpsertOAuthUser(ctx context.Context, in *User) (*User, error) {
	var user *User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRowContext(ctx, `
			INSERT INTO users (email, provider, provider_id, avatar_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			ON CONFLICT (email)
			DO UPDATE SET
				provider = EXCLUDED.provider,
				provider_id = EXCLUDED.provider_id,
				avatar_url = EXCLUDED.avatar_url,
				updated_at = NOW()
			RETURNING `+userColumns,
			strings.ToLower(strings.TrimSpace(in.Email)), in.Provider, nullString(in.ProviderID), nullString(in.AvatarURL),
		))
		if err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, created_at, updated_at)
			VALUES ($1, NOW(), NOW())
			ON CONFLICT (user_id) DO NOTHING`, user.ID)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role)
			SELECT $1, 'client'
			WHERE NOT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1)`, user.ID)
		if err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Package auth signs users in with a password or an OAuth provider and
// issues the session they carry afterwards.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markbates/goth"

	"clientportal/internal/apperrors"
	"clientportal/internal/database"
	"clientportal/internal/workflow"
)

// RoleStore resolves and grants portal roles.
type RoleStore interface {
	Resolve(ctx context.Context, userID uuid.UUID) (workflow.Role, error)
	HasRole(ctx context.Context, userID uuid.UUID, role workflow.Role) (bool, error)
	Grant(ctx context.Context, userID uuid.UUID, role workflow.Role) error
}

type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type SignUpInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type SignInInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is a signed-in user with the role resolved at sign-in.
type Session struct {
	User        *database.User `json:"user"`
	Role        workflow.Role  `json:"role"`
	AccessToken string         `json:"access_token,omitempty"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

type Service struct {
	db      database.Service
	roles   RoleStore
	tokens  TokenConfig
	isAdmin func(email string) bool
	log     *slog.Logger
}

func NewService(db database.Service, roles RoleStore, tokens TokenConfig, isAdmin func(string) bool, log *slog.Logger) *Service {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{db: db, roles: roles, tokens: tokens, isAdmin: isAdmin, log: log}
}

// SignUp creates an account with a profile and the client role. Password
// sign-up never grants admin: the address is unverified.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	role := workflow.RoleClient
	user, err := s.db.CreateAccount(ctx, &database.NewAccount{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         string(role),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account created", "user_id", user.ID, "role", role)
	return s.issue(user, role)
}

func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	user, err := s.db.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(user.PasswordHash, in.Password); err != nil {
		return nil, err
	}
	return s.Resume(ctx, user)
}

// OAuthSignIn stores the provider identity and signs the user in. The
// provider vouches for the email, so listed admin addresses are granted the
// admin role here.
func (s *Service) OAuthSignIn(ctx context.Context, gu goth.User) (*Session, error) {
	if gu.Email == "" {
		return nil, apperrors.BadRequest("provider did not return an email")
	}
	user, err := s.db.UpsertOAuthUser(ctx, &database.User{
		Email:      gu.Email,
		Provider:   gu.Provider,
		ProviderID: gu.UserID,
		AvatarURL:  gu.AvatarURL,
	})
	if err != nil {
		return nil, err
	}
	if s.isAdmin(user.Email) {
		if err := s.roles.Grant(ctx, user.ID, workflow.RoleAdmin); err != nil {
			return nil, err
		}
	}
	return s.Resume(ctx, user)
}

// Resume resolves the current role of user and issues a fresh session.
func (s *Service) Resume(ctx context.Context, user *database.User) (*Session, error) {
	role, err := s.roles.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(user, role)
}

// Lookup loads the user behind a session cookie or token subject.
func (s *Service) Lookup(ctx context.Context, userID uuid.UUID) (*database.User, workflow.Role, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	role, err := s.roles.Resolve(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return user, role, nil
}

// Verify checks a bearer token and returns its subject.
func (s *Service) Verify(token string) (uuid.UUID, error) {
	claims, err := ParseToken(s.tokens.Secret, token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", apperrors.ErrUnauthenticated)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token subject: %w", apperrors.ErrUnauthenticated)
	}
	return id, nil
}

func (s *Service) issue(user *database.User, role workflow.Role) (*Session, error) {
	token, err := NewAccessToken(s.tokens.Secret, s.tokens.Issuer, s.tokens.TTL, Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(role),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{
		User:        user,
		Role:        role,
		AccessToken: token,
		ExpiresAt:   time.Now().UTC().Add(s.tokens.TTL),
	}, nil
}

// BootstrapAdmins grants the admin role to every existing account listed in
// emails. Unknown addresses are skipped; they become admins on their first
// OAuth sign-in.
func (s *Service) BootstrapAdmins(ctx context.Context, emails []string) error {
	for _, email := range emails {
		user, err := s.db.GetUserByEmail(ctx, email)
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Info("admin email has no account yet", "email", email)
			continue
		}
		if err != nil {
			return err
		}
		already, err := s.roles.HasRole(ctx, user.ID, workflow.RoleAdmin)
		if err != nil {
			return err
		}
		if already {
			continue
		}
		if err := s.roles.Grant(ctx, user.ID, workflow.RoleAdmin); err != nil {
			return err
		}
		s.log.Info("admin role granted", "user_id", user.ID)
	}
	return nil
}

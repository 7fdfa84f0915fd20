package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientportal/internal/apperrors"
	"clientportal/internal/database"
	"clientportal/internal/workflow"
)

type fakeDB struct {
	database.Service
	users    map[string]*database.User
	accounts []*database.NewAccount
}

func (f *fakeDB) CreateAccount(ctx context.Context, a *database.NewAccount) (*database.User, error) {
	if _, ok := f.users[a.Email]; ok {
		return nil, database.ErrEmailTaken
	}
	f.accounts = append(f.accounts, a)
	u := &database.User{ID: uuid.New(), Email: a.Email, PasswordHash: a.PasswordHash, Provider: "email"}
	f.users[a.Email] = u
	return u, nil
}

func (f *fakeDB) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

type fakeRoles struct {
	granted map[uuid.UUID]workflow.Role
	grants  int
}

func (f *fakeRoles) Resolve(ctx context.Context, id uuid.UUID) (workflow.Role, error) {
	if r, ok := f.granted[id]; ok {
		return r, nil
	}
	return workflow.RoleClient, nil
}

func (f *fakeRoles) HasRole(ctx context.Context, id uuid.UUID, role workflow.Role) (bool, error) {
	r, ok := f.granted[id]
	return ok && r == role, nil
}

func (f *fakeRoles) Grant(ctx context.Context, id uuid.UUID, role workflow.Role) error {
	f.grants++
	f.granted[id] = role
	return nil
}

func newTestService(admins ...string) (*Service, *fakeDB, *fakeRoles) {
	db := &fakeDB{users: map[string]*database.User{}}
	roles := &fakeRoles{granted: map[uuid.UUID]workflow.Role{}}
	isAdmin := func(email string) bool {
		for _, a := range admins {
			if a == email {
				return true
			}
		}
		return false
	}
	svc := NewService(db, roles, TokenConfig{Secret: "test-secret", Issuer: "portal", TTL: time.Hour}, isAdmin, nil)
	return svc, db, roles
}

func TestPasswordRules(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "123456"))
	assert.ErrorIs(t, CheckPassword(hash, "654321"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("", "123456"), ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("s3cret", "portal", time.Minute, Claims{UserID: "abc", Role: "admin"})
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseToken("other", token)
	assert.Error(t, err)

	expired, err := NewAccessToken("s3cret", "portal", -time.Minute, Claims{UserID: "abc"})
	require.NoError(t, err)
	_, err = ParseToken("s3cret", expired)
	assert.Error(t, err)

	_, err = NewAccessToken("", "portal", time.Minute, Claims{UserID: "abc"})
	assert.ErrorIs(t, err, ErrNoSigningSecret)

	// a token signed with the empty key must never verify
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "abc"}).SignedString([]byte(""))
	require.NoError(t, err)
	_, err = ParseToken("", forged)
	assert.ErrorIs(t, err, ErrNoSigningSecret)
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, db, _ := newTestService()
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "segredo", FullName: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleClient, session.Role)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "Ana", db.accounts[0].FullName)
	assert.Equal(t, "client", db.accounts[0].Role)

	id, err := svc.Verify(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "segredo"})
	assert.Equal(t, MsgEmailTaken, LocalizeError(err))

	_, err = svc.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "errada"})
	assert.Equal(t, MsgInvalidCredentials, LocalizeError(err))

	_, err = svc.SignIn(ctx, SignInInput{Email: "nobody@example.com", Password: "segredo"})
	assert.Equal(t, MsgInvalidCredentials, LocalizeError(err))

	signedIn, err := svc.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, signedIn.User.ID)
}

func (f *fakeDB) UpsertOAuthUser(ctx context.Context, u *database.User) (*database.User, error) {
	if existing, ok := f.users[u.Email]; ok {
		return existing, nil
	}
	u.ID = uuid.New()
	f.users[u.Email] = u
	return u, nil
}

func TestPasswordSignUpNeverGrantsAdmin(t *testing.T) {
	svc, db, roles := newTestService("boss@agency.com")
	ctx := context.Background()

	session, err := svc.SignUp(ctx, SignUpInput{Email: "boss@agency.com", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleClient, session.Role)
	assert.Equal(t, "client", db.accounts[0].Role)

	signedIn, err := svc.SignIn(ctx, SignInInput{Email: "boss@agency.com", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleClient, signedIn.Role)
	assert.Empty(t, roles.granted)
}

func TestAdminEmailsBecomeAdmins(t *testing.T) {
	svc, db, roles := newTestService("boss@agency.com", "later@agency.com")
	ctx := context.Background()

	session, err := svc.OAuthSignIn(ctx, goth.User{Email: "boss@agency.com", Provider: "google", UserID: "g-1"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleAdmin, session.Role)

	other, err := svc.OAuthSignIn(ctx, goth.User{Email: "someone@agency.com", Provider: "google", UserID: "g-2"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RoleClient, other.Role)

	existing := &database.User{ID: uuid.New(), Email: "later@agency.com"}
	db.users[existing.Email] = existing
	require.NoError(t, svc.BootstrapAdmins(ctx, []string{"later@agency.com", "ghost@agency.com"}))
	assert.Equal(t, workflow.RoleAdmin, roles.granted[existing.ID])

	// a second boot finds the role in place and writes nothing
	grants := roles.grants
	require.NoError(t, svc.BootstrapAdmins(ctx, []string{"later@agency.com"}))
	assert.Equal(t, grants, roles.grants)
}

func TestLocalizeError(t *testing.T) {
	assert.Equal(t, MsgWeakPassword, LocalizeError(ErrWeakPassword))
	assert.Equal(t, MsgGeneric, LocalizeError(errors.New("connection reset")))
	assert.Equal(t, "A senha deve ter pelo menos 6 caracteres.", MsgWeakPassword)
}

func TestInitGothProvidersSkipsUnconfigured(t *testing.T) {
	assert.Empty(t, InitGothProviders(OAuthConfig{}))
	assert.Equal(t, []string{"google"}, InitGothProviders(OAuthConfig{GoogleClientID: "id", GoogleClientSecret: "secret", CallbackURL: "http://localhost/cb"}))
}

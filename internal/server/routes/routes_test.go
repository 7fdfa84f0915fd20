package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientportal/internal/apperrors"
	"clientportal/internal/auth"
	"clientportal/internal/authz"
	"clientportal/internal/config"
	"clientportal/internal/database"
	"clientportal/internal/models"
	"clientportal/internal/realtime"
	"clientportal/internal/services"
	"clientportal/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

type fakeDB struct {
	database.Service

	mu       sync.Mutex
	users    map[uuid.UUID]*database.User
	projects map[uuid.UUID]*database.Project
	marked   [][]uuid.UUID
}

func (f *fakeDB) GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeDB) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeDB) ListProjects(ctx context.Context, viewer database.Viewer) ([]*database.Project, error) {
	var out []*database.Project
	for _, p := range f.projects {
		if viewer.Admin || p.ClientID == viewer.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDB) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*database.ProjectChange, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperrors.NotFound("project not found")
	}
	p.Status = status
	return &database.ProjectChange{
		Project:      p,
		Activity:     &database.ProjectActivity{ID: uuid.New(), ProjectID: p.ID, Action: "status_changed"},
		Notification: &database.Notification{ID: uuid.New(), UserID: p.ClientID, Title: "Status atualizado"},
	}, nil
}

func (f *fakeDB) MarkNotificationsAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, ids)
	return ids, nil
}

type fakeRoles map[uuid.UUID]workflow.Role

func (r fakeRoles) Resolve(ctx context.Context, userID uuid.UUID) (workflow.Role, error) {
	if role, ok := r[userID]; ok {
		return role, nil
	}
	return workflow.RoleClient, nil
}

func (r fakeRoles) HasRole(ctx context.Context, userID uuid.UUID, role workflow.Role) (bool, error) {
	got, ok := r[userID]
	return ok && got == role, nil
}

func (r fakeRoles) Grant(ctx context.Context, userID uuid.UUID, role workflow.Role) error {
	r[userID] = role
	return nil
}

type testServer struct {
	cfg      *config.Config
	db       *fakeDB
	roles    fakeRoles
	orm      *models.DB
	broker   *realtime.Broker
	auth     *auth.Service
	authz    *authz.Enforcer
	projects *services.ProjectService
	feeds    *services.FeedService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: testSecret, JWTIssuer: "test", JWTTTL: time.Hour, AuthRatePerMinute: 60}
	db := &fakeDB{users: map[uuid.UUID]*database.User{}, projects: map[uuid.UUID]*database.Project{}}
	roles := fakeRoles{}
	broker := realtime.NewBroker(realtime.DefaultBuffer, nil)

	return &testServer{
		cfg:      cfg,
		db:       db,
		roles:    roles,
		broker:   broker,
		auth:     auth.NewService(db, roles, auth.TokenConfig{Secret: testSecret, Issuer: "test", TTL: time.Hour}, nil, nil),
		authz:    enforcer,
		projects: services.NewProjectService(db, enforcer, broker, nil),
		feeds:    services.NewFeedService(db, enforcer, broker),
	}
}

func (s *testServer) GetDB() database.Service                 { return s.db }
func (s *testServer) GetModels() *models.DB                   { return s.orm }
func (s *testServer) GetConfig() *config.Config               { return s.cfg }
func (s *testServer) GetAuth() *auth.Service                  { return s.auth }
func (s *testServer) GetAuthz() *authz.Enforcer               { return s.authz }
func (s *testServer) GetProjects() *services.ProjectService   { return s.projects }
func (s *testServer) GetTickets() *services.TicketService     { return nil }
func (s *testServer) GetMaterials() *services.MaterialService { return nil }
func (s *testServer) GetFeeds() *services.FeedService         { return s.feeds }

// addUser registers a user with role and returns a bearer header value.
func (s *testServer) addUser(t *testing.T, role workflow.Role) (*database.User, string) {
	t.Helper()
	u := &database.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com"}
	s.db.users[u.ID] = u
	s.roles[u.ID] = role

	token, err := auth.NewAccessToken(testSecret, "test", time.Hour, auth.Claims{UserID: u.ID.String(), Email: u.Email, Role: string(role)})
	require.NoError(t, err)
	return u, "Bearer " + token
}

func (s *testServer) engine() *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("portal-session", cookie.NewStore([]byte("session-secret"))))
	NewAuthRoutes(s).RegisterRoutes(r)
	NewProjectRoutes(s).RegisterRoutes(r)
	NewNotificationRoutes(s).RegisterRoutes(r)
	NewDashboardRoutes(s).RegisterRoutes(r)

	mw := NewMiddleware(s)
	r.GET("/admin-only", mw.AuthMiddleware(), mw.AdminMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

// withModels backs GetModels with a mocked connection.
func (s *testServer) withModels(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	orm, err := models.NewDB(sqlDB)
	require.NoError(t, err)
	s.orm = orm
	return mock
}

func do(r http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsAnonymousAndBadTokens(t *testing.T) {
	s := newTestServer(t)
	r := s.engine()

	w := do(r, http.MethodGet, "/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/notifications", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid signature but the account no longer exists
	_, bearer := s.addUser(t, workflow.RoleClient)
	for id := range s.db.users {
		delete(s.db.users, id)
	}
	w = do(r, http.MethodGet, "/notifications", bearer, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddleware(t *testing.T) {
	s := newTestServer(t)
	r := s.engine()
	_, client := s.addUser(t, workflow.RoleClient)
	_, admin := s.addUser(t, workflow.RoleAdmin)

	w := do(r, http.MethodGet, "/admin-only", client, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, w.Body.String())

	w = do(r, http.MethodGet, "/admin-only", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignInWrongPasswordIsLocalized(t *testing.T) {
	s := newTestServer(t)
	r := s.engine()

	w := do(r, http.MethodPost, "/auth/signin", "", gin.H{"email": "nobody@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"`+auth.MsgInvalidCredentials+`"}`, w.Body.String())

	w = do(r, http.MethodPost, "/auth/signin", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProjectStatus(t *testing.T) {
	s := newTestServer(t)
	r := s.engine()
	client, clientBearer := s.addUser(t, workflow.RoleClient)
	_, adminBearer := s.addUser(t, workflow.RoleAdmin)

	project := &database.Project{ID: uuid.New(), ClientID: client.ID, Title: "Site", Status: "awaiting_info"}
	s.db.projects[project.ID] = project
	path := "/dashboard/project/" + project.ID.String() + "/status"

	w := do(r, http.MethodPut, path, clientBearer, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "awaiting_info", project.Status)

	w = do(r, http.MethodPut, path, adminBearer, gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/dashboard/project/nope/status", adminBearer, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, path, adminBearer, gin.H{"status": "in_review"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in_review", project.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "in_review", body["status"])
	assert.EqualValues(t, 65, body["progress"])
}

func TestMarkAllAsRead(t *testing.T) {
	s := newTestServer(t)
	r := s.engine()
	_, bearer := s.addUser(t, workflow.RoleClient)

	a, b := uuid.New(), uuid.New()
	w := do(r, http.MethodPost, "/notifications/read-all", bearer, gin.H{"ids": []string{a.String(), b.String()}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.db.marked, 1)
	assert.Equal(t, []uuid.UUID{a, b}, s.db.marked[0])

	w = do(r, http.MethodPost, "/notifications/read-all", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.db.marked, 2)
	assert.Empty(t, s.db.marked[1])

	w = do(r, http.MethodPost, "/notifications/read-all", bearer, gin.H{"ids": []string{"bogus"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, s.db.marked, 2)
}

func TestNotificationStream(t *testing.T) {
	s := newTestServer(t)
	r := s.engine()
	user, bearer := s.addUser(t, workflow.RoleClient)
	topic := realtime.NotificationsTopic(user.ID.String())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/notifications/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool { return s.broker.SubscriberCount(topic) == 1 }, time.Second, 5*time.Millisecond)

	ev, err := realtime.NewInsert(realtime.TableNotifications, &database.Notification{ID: uuid.New(), UserID: user.ID, Title: "Olá"})
	require.NoError(t, err)
	s.broker.Publish(context.Background(), topic, ev)

	// give the handler a moment to write the event before hanging up
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "event:connected\n"), body)
	assert.Contains(t, body, "event:insert\n")
	assert.Contains(t, body, `"table":"notifications"`)
	assert.Equal(t, 0, s.broker.SubscriberCount(topic))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(60, 2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodGet, "/limited", "", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
	w := do(r, http.MethodGet, "/limited", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAdminDashboardSummary(t *testing.T) {
	s := newTestServer(t)
	mock := s.withModels(t)
	r := s.engine()
	client, clientBearer := s.addUser(t, workflow.RoleClient)
	_, adminBearer := s.addUser(t, workflow.RoleAdmin)

	for _, status := range []string{"awaiting_info", "in_review", "published"} {
		p := &database.Project{ID: uuid.New(), ClientID: client.ID, Title: status, Status: status}
		s.db.projects[p.ID] = p
	}

	w := do(r, http.MethodGet, "/dashboard/admin", clientBearer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "provider", "created_at", "updated_at"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	w = do(r, http.MethodGet, "/dashboard/admin", adminBearer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Summary adminSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, adminSummary{Clients: 4, ActiveProjects: 2, PublishedProjects: 1}, body.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientDetailShowsPrimaryRole(t *testing.T) {
	s := newTestServer(t)
	mock := s.withModels(t)
	mock.MatchExpectationsInOrder(false)
	r := s.engine()
	_, adminBearer := s.addUser(t, workflow.RoleAdmin)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "provider", "created_at", "updated_at"}).
			AddRow(id.String(), "ana@example.com", "email", now, now))
	mock.ExpectQuery(`SELECT \* FROM "profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "full_name", "phone", "created_at", "updated_at"}))
	mock.ExpectQuery(`SELECT \* FROM "user_roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role"}).
			AddRow(uuid.NewString(), id.String(), "client"))

	w := do(r, http.MethodGet, "/dashboard/clients/"+id.String(), adminBearer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Role string `json:"role"`
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "client", body.Role)
	assert.Equal(t, "ana@example.com", body.User.Email)

	w = do(r, http.MethodGet, "/dashboard/clients/not-a-uuid", adminBearer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

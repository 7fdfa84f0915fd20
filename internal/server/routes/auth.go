package routes

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"clientportal/internal/apperrors"
	"clientportal/internal/auth"
	"clientportal/internal/authz"
	"clientportal/internal/config"
	"clientportal/internal/database"
	"clientportal/internal/models"
	"clientportal/internal/services"
)

const sessionUserKey = "user_id"

type ServerInterface interface {
	GetDB() database.Service
	GetModels() *models.DB
	GetConfig() *config.Config
	GetAuth() *auth.Service
	GetAuthz() *authz.Enforcer
	GetProjects() *services.ProjectService
	GetTickets() *services.TicketService
	GetMaterials() *services.MaterialService
	GetFeeds() *services.FeedService
}

type AuthRoutes struct {
	server ServerInterface
}

func NewAuthRoutes(server ServerInterface) *AuthRoutes {
	return &AuthRoutes{server: server}
}

func (ar *AuthRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ar.server)
	limit := RateLimitMiddleware(ar.server.GetConfig().AuthRatePerMinute, 15)

	r.POST("/auth/signup", limit, ar.signUpHandler)
	r.POST("/auth/signin", limit, ar.signInHandler)
	r.POST("/auth/signout", ar.signOutHandler)
	r.GET("/auth/session", middleware.AuthMiddleware(), ar.sessionHandler)

	// OAuth routes
	r.GET("/auth/:provider", limit, ar.authHandler)
	r.GET("/auth/:provider/callback", limit, ar.authCallbackHandler)
	r.GET("/logout", ar.logoutHandler)
}

// authError answers sign-in and sign-up failures with the localized message.
func authError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": auth.LocalizeError(err)})
}

func startSession(c *gin.Context, session *auth.Session) error {
	s := sessions.Default(c)
	s.Set(sessionUserKey, session.User.ID.String())
	s.Set("email", session.User.Email)
	return s.Save()
}

func (ar *AuthRoutes) signUpHandler(c *gin.Context) {
	var req auth.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email e senha são obrigatórios."})
		return
	}

	session, err := ar.server.GetAuth().SignUp(c.Request.Context(), req)
	if err != nil {
		authError(c, err)
		return
	}
	if err := startSession(c, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": auth.MsgGeneric})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (ar *AuthRoutes) signInHandler(c *gin.Context) {
	var req auth.SignInInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email e senha são obrigatórios."})
		return
	}

	session, err := ar.server.GetAuth().SignIn(c.Request.Context(), req)
	if err != nil {
		authError(c, err)
		return
	}
	if err := startSession(c, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": auth.MsgGeneric})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (ar *AuthRoutes) signOutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// sessionHandler returns the signed-in user with role and profile.
func (ar *AuthRoutes) sessionHandler(c *gin.Context) {
	user := currentUser(c)
	actor := currentActor(c)

	profile, err := ar.server.GetModels().Profiles.GetByUser(c.Request.Context(), user.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"role":          actor.Role,
		"profile":       profile,
		"authenticated": true,
	})
}

func (ar *AuthRoutes) authHandler(c *gin.Context) {
	provider := c.Param("provider")

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = "/auth/" + provider

	q := req.URL.Query()
	q.Add("provider", provider)
	req.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, req)
}

func (ar *AuthRoutes) authCallbackHandler(c *gin.Context) {
	provider := c.Param("provider")

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = "/auth/" + provider + "/callback"

	q := req.URL.Query()
	q.Add("provider", provider)
	req.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := ar.server.GetAuth().OAuthSignIn(c.Request.Context(), gothUser)
	if err != nil {
		authError(c, err)
		return
	}
	if err := startSession(c, session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, ar.server.GetConfig().FrontendURL+"/dashboard")
}

func (ar *AuthRoutes) logoutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	session.Save()

	c.Redirect(http.StatusFound, ar.server.GetConfig().FrontendURL+"/")
}

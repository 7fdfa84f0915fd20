package routes

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clientportal/internal/apperrors"
	"clientportal/internal/authz"
	"clientportal/internal/database"
	"clientportal/internal/services"
	"clientportal/internal/workflow"
)

type Middleware struct {
	server ServerInterface
}

func NewMiddleware(server ServerInterface) *Middleware {
	return &Middleware{server: server}
}

// AuthMiddleware accepts the browser session cookie or a bearer token and
// loads the user and role into the context.
func (m *Middleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := m.identify(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		user, role, err := m.server.GetAuth().Lookup(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or database error"})
			return
		}

		c.Set("user", user)
		c.Set("role", role)
		c.Next()
	}
}

func (m *Middleware) identify(c *gin.Context) (uuid.UUID, bool) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		id, err := m.server.GetAuth().Verify(strings.TrimPrefix(header, "Bearer "))
		return id, err == nil
	}

	raw, ok := sessions.Default(c).Get(sessionUserKey).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// AdminMiddleware lets through only roles allowed on the admin panel. It
// must run after AuthMiddleware.
func (m *Middleware) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentActor(c)
		if err := m.server.GetAuthz().Authorize(actor.Role, authz.ResourceAdminPanel, authz.ActionRead); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *database.User {
	user, _ := c.MustGet("user").(*database.User)
	return user
}

func currentActor(c *gin.Context) services.Actor {
	role, _ := c.Get("role")
	r, _ := role.(workflow.Role)
	return services.Actor{UserID: currentUser(c).ID, Role: workflow.ParseRole(string(r))}
}

// respondError writes err as the standard {"error": ...} body.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.PublicMessage(err)})
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clientportal/internal/models"
)

type UserRoutes struct {
	server ServerInterface
}

func NewUserRoutes(server ServerInterface) *UserRoutes {
	return &UserRoutes{server: server}
}

func (ur *UserRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ur.server)

	r.GET("/profile", middleware.AuthMiddleware(), ur.getProfileHandler)
	r.PUT("/profile", middleware.AuthMiddleware(), ur.updateProfileHandler)
}

func (ur *UserRoutes) getProfileHandler(c *gin.Context) {
	user := currentUser(c)

	profile, err := ur.server.GetModels().Profiles.GetByUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"profile":    profile,
	})
}

func (ur *UserRoutes) updateProfileHandler(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	profile, err := ur.server.GetModels().Profiles.Update(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

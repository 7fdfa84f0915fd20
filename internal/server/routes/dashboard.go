package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clientportal/internal/apperrors"
	"clientportal/internal/workflow"
)

type DashboardRoutes struct {
	server ServerInterface
}

func NewDashboardRoutes(server ServerInterface) *DashboardRoutes {
	return &DashboardRoutes{server: server}
}

func (dr *DashboardRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(dr.server)

	r.GET("/dashboard", middleware.AuthMiddleware(), dr.dashboardHandler)
	r.GET("/dashboard/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware(), dr.adminHandler)
	r.GET("/dashboard/clients", middleware.AuthMiddleware(), middleware.AdminMiddleware(), dr.adminHandler)
	r.GET("/dashboard/clients/:id", middleware.AuthMiddleware(), middleware.AdminMiddleware(), dr.clientHandler)
}

// dashboardHandler returns everything the shell needs: who is signed in,
// the menu for their role and the projects they can see.
func (dr *DashboardRoutes) dashboardHandler(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	actor := currentActor(c)

	profile, err := dr.server.GetModels().Profiles.GetByUser(ctx, user.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		respondError(c, err)
		return
	}
	projects, err := dr.server.GetProjects().List(ctx, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"role":     actor.Role,
		"profile":  profile,
		"menu":     workflow.Menu(actor.Role),
		"projects": projects,
	})
}

type adminSummary struct {
	Clients           int64 `json:"clients"`
	ActiveProjects    int   `json:"active_projects"`
	PublishedProjects int   `json:"published_projects"`
}

// adminHandler lists every client with their profile next to all projects,
// headed by the totals shown on the admin overview.
func (dr *DashboardRoutes) adminHandler(c *gin.Context) {
	ctx := c.Request.Context()
	users := dr.server.GetModels().Users

	clients, err := users.Clients(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	clientCount, err := users.CountClients(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	projects, err := dr.server.GetProjects().List(ctx, currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	summary := adminSummary{Clients: clientCount}
	for _, p := range projects {
		if workflow.ProjectStatus(p.Status) == workflow.StatusPublished {
			summary.PublishedProjects++
		} else {
			summary.ActiveProjects++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":  summary,
		"clients":  clients,
		"projects": projects,
		"menu":     workflow.Menu(currentActor(c).Role),
	})
}

func (dr *DashboardRoutes) clientHandler(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	user, err := dr.server.GetModels().Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"role":    user.PrimaryRole(),
		"profile": user.Profile,
	})
}

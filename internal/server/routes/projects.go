package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"clientportal/internal/services"
)

type ProjectRoutes struct {
	server ServerInterface
}

func NewProjectRoutes(server ServerInterface) *ProjectRoutes {
	return &ProjectRoutes{server: server}
}

func (pr *ProjectRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(pr.server)

	projects := r.Group("/dashboard")
	projects.Use(middleware.AuthMiddleware())
	{
		projects.GET("/projects", pr.listProjectsHandler)
		projects.POST("/projects", pr.createProjectHandler)
		projects.GET("/project/:id", pr.getProjectHandler)
		projects.PUT("/project/:id/status", pr.updateStatusHandler)
		projects.GET("/project/:id/activities", pr.listActivitiesHandler)
		projects.GET("/project/:id/activities/stream", pr.streamActivitiesHandler)
		projects.GET("/project/:id/materials", pr.listMaterialsHandler)
		projects.POST("/project/:id/materials", pr.uploadMaterialHandler)
		projects.GET("/project/:id/materials/:materialId/download", pr.downloadMaterialHandler)
	}
}

func (pr *ProjectRoutes) listProjectsHandler(c *gin.Context) {
	projects, err := pr.server.GetProjects().List(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (pr *ProjectRoutes) createProjectHandler(c *gin.Context) {
	var req services.NewProject
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	project, err := pr.server.GetProjects().Create(c.Request.Context(), currentActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (pr *ProjectRoutes) getProjectHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	project, err := pr.server.GetProjects().Get(c.Request.Context(), currentActor(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (pr *ProjectRoutes) updateStatusHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	project, err := pr.server.GetProjects().SetStatus(c.Request.Context(), currentActor(c), projectID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (pr *ProjectRoutes) listActivitiesHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	activities, err := pr.server.GetFeeds().Activities(c.Request.Context(), currentActor(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities})
}

func (pr *ProjectRoutes) streamActivitiesHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	events, cancel, err := pr.server.GetFeeds().SubscribeActivities(c.Request.Context(), currentActor(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	streamEvents(c, events, gin.H{"table": "project_activities", "project_id": projectID})
}

func (pr *ProjectRoutes) listMaterialsHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	materials, err := pr.server.GetMaterials().List(c.Request.Context(), currentActor(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": materials})
}

// uploadMaterialHandler accepts a multipart "file" plus the optional
// briefing fields.
func (pr *ProjectRoutes) uploadMaterialHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	material, err := pr.server.GetMaterials().Submit(c.Request.Context(), currentActor(c), services.MaterialInput{
		ProjectID:           projectID,
		FileName:            header.Filename,
		ContentType:         header.Header.Get("Content-Type"),
		Size:                header.Size,
		Body:                file,
		BusinessDescription: c.PostForm("business_description"),
		DesiredColors:       c.PostForm("desired_colors"),
		SocialMedia:         c.PostForm("social_media"),
		PhoneWhatsapp:       c.PostForm("phone_whatsapp"),
	})
	if err != nil {
		slog.Warn("material upload failed", "project_id", projectID, "file", header.Filename, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, material)
}

func (pr *ProjectRoutes) downloadMaterialHandler(c *gin.Context) {
	projectID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	materialID, ok := paramUUID(c, "materialId")
	if !ok {
		return
	}

	url, err := pr.server.GetMaterials().DownloadURL(c.Request.Context(), currentActor(c), projectID, materialID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type NotificationRoutes struct {
	server ServerInterface
}

func NewNotificationRoutes(server ServerInterface) *NotificationRoutes {
	return &NotificationRoutes{server: server}
}

func (nr *NotificationRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(nr.server)

	r.GET("/notifications", middleware.AuthMiddleware(), nr.getUserNotificationsHandler)
	r.GET("/notifications/stream", middleware.AuthMiddleware(), nr.streamNotificationsHandler)
	r.POST("/notifications/read-all", middleware.AuthMiddleware(), nr.markAllAsReadHandler)
	r.POST("/notifications/:id/read", middleware.AuthMiddleware(), nr.markNotificationAsReadHandler)
}

// getUserNotificationsHandler returns the latest notifications of the
// authenticated user, newest first.
func (nr *NotificationRoutes) getUserNotificationsHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		limit = 0
	}

	notifications, err := nr.server.GetFeeds().Notifications(c.Request.Context(), currentActor(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// markNotificationAsReadHandler marks a specific notification as read
func (nr *NotificationRoutes) markNotificationAsReadHandler(c *gin.Context) {
	notificationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := nr.server.GetFeeds().MarkRead(c.Request.Context(), currentActor(c), notificationID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// markAllAsReadHandler marks the listed notifications, or all unread ones
// when no ids are sent.
func (nr *NotificationRoutes) markAllAsReadHandler(c *gin.Context) {
	var req markReadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
			return
		}
		ids = append(ids, id)
	}

	marked, err := nr.server.GetFeeds().MarkManyRead(c.Request.Context(), currentActor(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ids": marked})
}

func (nr *NotificationRoutes) streamNotificationsHandler(c *gin.Context) {
	actor := currentActor(c)
	events, cancel, err := nr.server.GetFeeds().SubscribeNotifications(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	streamEvents(c, events, gin.H{"table": "notifications", "user_id": actor.UserID})
}

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clientportal/internal/services"
)

type TicketRoutes struct {
	server ServerInterface
}

func NewTicketRoutes(server ServerInterface) *TicketRoutes {
	return &TicketRoutes{server: server}
}

func (tr *TicketRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(tr.server)

	tickets := r.Group("/dashboard/tickets")
	tickets.Use(middleware.AuthMiddleware())
	{
		tickets.GET("", tr.listTicketsHandler)
		tickets.POST("", tr.createTicketHandler)
		tickets.GET("/:id", tr.getTicketHandler)
		tickets.PUT("/:id/status", tr.updateStatusHandler)
		tickets.GET("/:id/messages", tr.listMessagesHandler)
		tickets.POST("/:id/messages", tr.postMessageHandler)
	}
}

// listTicketsHandler lists visible tickets; ?project=<id> narrows to one
// project.
func (tr *TicketRoutes) listTicketsHandler(c *gin.Context) {
	var projectID *uuid.UUID
	if raw := c.Query("project"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}
		projectID = &id
	}

	tickets, err := tr.server.GetTickets().List(c.Request.Context(), currentActor(c), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (tr *TicketRoutes) createTicketHandler(c *gin.Context) {
	var req services.NewTicket
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ticket, err := tr.server.GetTickets().Create(c.Request.Context(), currentActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (tr *TicketRoutes) getTicketHandler(c *gin.Context) {
	ticketID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	ticket, err := tr.server.GetTickets().Get(c.Request.Context(), currentActor(c), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (tr *TicketRoutes) updateStatusHandler(c *gin.Context) {
	ticketID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	ticket, err := tr.server.GetTickets().SetStatus(c.Request.Context(), currentActor(c), ticketID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (tr *TicketRoutes) listMessagesHandler(c *gin.Context) {
	ticketID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	messages, err := tr.server.GetTickets().Messages(c.Request.Context(), currentActor(c), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type messageRequest struct {
	Message string `json:"message"`
}

func (tr *TicketRoutes) postMessageHandler(c *gin.Context) {
	ticketID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	message, err := tr.server.GetTickets().PostMessage(c.Request.Context(), currentActor(c), ticketID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

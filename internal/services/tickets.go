package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"clientportal/internal/apperrors"
	"clientportal/internal/authz"
	"clientportal/internal/database"
	"clientportal/internal/metrics"
	"clientportal/internal/realtime"
	"clientportal/internal/workflow"
)

type NewTicket struct {
	ProjectID   uuid.UUID `json:"project_id" binding:"required"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
}

// TicketView adds display labels to a ticket.
type TicketView struct {
	*database.Ticket
	StatusLabel   string `json:"status_label"`
	PriorityLabel string `json:"priority_label"`
}

func NewTicketView(t *database.Ticket) TicketView {
	return TicketView{
		Ticket:        t,
		StatusLabel:   workflow.TicketStatusLabel(t.Status),
		PriorityLabel: workflow.PriorityLabel(t.Priority),
	}
}

type TicketService struct {
	db    database.Service
	authz Authorizer
	out   publisher
	log   *slog.Logger
}

func NewTicketService(db database.Service, az Authorizer, pub realtime.Publisher, log *slog.Logger) *TicketService {
	log = orDefault(log)
	return &TicketService{db: db, authz: az, out: publisher{pub: pub, log: log}, log: log}
}

// Create opens a ticket on a project the actor can see.
func (s *TicketService) Create(ctx context.Context, actor Actor, in NewTicket) (*TicketView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceTicket, authz.ActionCreate); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	description := strings.TrimSpace(in.Description)
	if subject == "" || description == "" {
		return nil, apperrors.BadRequest("subject and description are required")
	}
	priority, err := workflow.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetProject(ctx, in.ProjectID, actor.Viewer()); err != nil {
		return nil, err
	}

	ticket := &database.Ticket{
		ProjectID:   in.ProjectID,
		CreatedBy:   actor.UserID,
		Subject:     subject,
		Description: description,
		Priority:    string(priority),
		Status:      string(workflow.TicketOpen),
	}
	activity, err := s.db.CreateTicket(ctx, ticket)
	metrics.Observe("ticket_create", err)
	if err != nil {
		return nil, err
	}
	s.out.activity(ctx, activity)

	view := NewTicketView(ticket)
	return &view, nil
}

func (s *TicketService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*TicketView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceTicket, authz.ActionRead); err != nil {
		return nil, err
	}
	ticket, err := s.db.GetTicket(ctx, id, actor.Viewer())
	if err != nil {
		return nil, err
	}
	view := NewTicketView(ticket)
	return &view, nil
}

// List returns visible tickets, most recently updated first, optionally for
// one project.
func (s *TicketService) List(ctx context.Context, actor Actor, projectID *uuid.UUID) ([]TicketView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceTicket, authz.ActionRead); err != nil {
		return nil, err
	}
	tickets, err := s.db.ListTickets(ctx, actor.Viewer(), projectID)
	if err != nil {
		return nil, err
	}
	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, NewTicketView(t))
	}
	return views, nil
}

// Messages returns the thread of a visible ticket, oldest first.
func (s *TicketService) Messages(ctx context.Context, actor Actor, ticketID uuid.UUID) ([]*database.TicketMessage, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.db.ListTicketMessages(ctx, ticketID)
}

// PostMessage appends a trimmed, non-empty message. The ticket's status and
// updated_at are not changed by a message.
func (s *TicketService) PostMessage(ctx context.Context, actor Actor, ticketID uuid.UUID, text string) (*database.TicketMessage, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceTicket, authz.ActionMessage); err != nil {
		return nil, err
	}
	body, ok := workflow.NormalizeMessage(text)
	if !ok {
		return nil, workflow.ErrEmptyMessage
	}
	ticket, err := s.db.GetTicket(ctx, ticketID, actor.Viewer())
	if err != nil {
		return nil, err
	}

	message := &database.TicketMessage{TicketID: ticket.ID, SenderID: actor.UserID, Message: body}
	activity, err := s.db.CreateTicketMessage(ctx, message, ticket.ProjectID)
	metrics.Observe("ticket_message", err)
	if err != nil {
		return nil, err
	}
	s.out.activity(ctx, activity)
	return message, nil
}

// SetStatus moves a ticket to any state. Admin only; the creator is notified.
func (s *TicketService) SetStatus(ctx context.Context, actor Actor, ticketID uuid.UUID, status string) (*TicketView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceTicket, authz.ActionUpdateStatus); err != nil {
		return nil, err
	}
	next, err := workflow.ParseTicketStatus(status)
	if err != nil {
		return nil, err
	}

	change, err := s.db.UpdateTicketStatus(ctx, ticketID, string(next))
	metrics.Observe("ticket_status", err)
	if err != nil {
		return nil, err
	}
	s.log.Info("ticket status changed", "ticket_id", ticketID, "status", next, "actor", actor.UserID)
	s.out.notification(ctx, change.Notification)

	view := NewTicketView(change.Ticket)
	return &view, nil
}

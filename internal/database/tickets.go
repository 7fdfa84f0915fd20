package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clientportal/internal/apperrors"
	"clientportal/internal/workflow"
)

type Ticket struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	CreatedBy   uuid.UUID `json:"created_by"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TicketMessage struct {
	ID        uuid.UUID `json:"id"`
	TicketID  uuid.UUID `json:"ticket_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketChange is the result of a ticket status update.
type TicketChange struct {
	Ticket       *Ticket
	Notification *Notification
}

const ticketColumns = `t.id, t.project_id, t.created_by, t.subject, t.description, t.priority, t.status, t.created_at, t.updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*Ticket, error) {
	ticket := &Ticket{}
	if err := row.Scan(
		&ticket.ID, &ticket.ProjectID, &ticket.CreatedBy, &ticket.Subject, &ticket.Description,
		&ticket.Priority, &ticket.Status, &ticket.CreatedAt, &ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return ticket, nil
}

// CreateTicket opens a ticket and appends a ticket_opened activity to its
// project.
func (s *service) CreateTicket(ctx context.Context, ticket *Ticket) (*ProjectActivity, error) {
	var activity *ProjectActivity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tickets (project_id, created_by, subject, description, priority, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			ticket.ProjectID, ticket.CreatedBy, ticket.Subject, ticket.Description, ticket.Priority, ticket.Status,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		activity = &ProjectActivity{
			ProjectID:   ticket.ProjectID,
			UserID:      &ticket.CreatedBy,
			Action:      string(workflow.ActionTicketOpened),
			Description: fmt.Sprintf("Solicitação aberta: %s", ticket.Subject),
		}
		return insertActivity(ctx, tx, activity)
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// GetTicket returns a ticket visible to the viewer through its project.
func (s *service) GetTicket(ctx context.Context, id uuid.UUID, viewer Viewer) (*Ticket, error) {
	ticket, err := scanTicket(s.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND ($2 OR p.client_id = $3)`,
		id, viewer.Admin, viewer.UserID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// ListTickets returns visible tickets, most recently updated first,
// optionally narrowed to one project.
func (s *service) ListTickets(ctx context.Context, viewer Viewer, projectID *uuid.UUID) ([]*Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets t
		JOIN projects p ON p.id = t.project_id
		WHERE ($1 OR p.client_id = $2) AND ($3::uuid IS NULL OR t.project_id = $3)
		ORDER BY t.updated_at DESC`,
		viewer.Admin, viewer.UserID, nullUUID(projectID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

// UpdateTicketStatus sets any status, bumps updated_at and notifies the
// ticket's creator.
func (s *service) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status string) (*TicketChange, error) {
	change := &TicketChange{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ticket, err := scanTicket(tx.QueryRowContext(ctx, `
			UPDATE tickets t
			SET status = $2, updated_at = NOW()
			WHERE t.id = $1
			RETURNING `+ticketColumns,
			id, status,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ticket %w", apperrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}
		change.Ticket = ticket

		change.Notification = &Notification{
			UserID:    ticket.CreatedBy,
			ProjectID: &ticket.ProjectID,
			Title:     "Solicitação atualizada",
			Message:   fmt.Sprintf("%s: %s", ticket.Subject, workflow.TicketStatusLabel(ticket.Status)),
		}
		return insertNotification(ctx, tx, change.Notification)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// CreateTicketMessage appends a message to the thread. The ticket row itself
// is left untouched, so neither its status nor its updated_at move.
func (s *service) CreateTicketMessage(ctx context.Context, message *TicketMessage, projectID uuid.UUID) (*ProjectActivity, error) {
	var activity *ProjectActivity
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO ticket_messages (ticket_id, sender_id, message, created_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id, created_at`,
			message.TicketID, message.SenderID, message.Message,
		).Scan(&message.ID, &message.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		activity = &ProjectActivity{
			ProjectID:   projectID,
			UserID:      &message.SenderID,
			Action:      string(workflow.ActionMessage),
			Description: "Nova mensagem em solicitação",
		}
		return insertActivity(ctx, tx, activity)
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// ListTicketMessages returns the thread oldest first. Messages written in the
// same instant are ordered by id so the order is stable.
func (s *service) ListTicketMessages(ctx context.Context, ticketID uuid.UUID) ([]*TicketMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticket_id, sender_id, message, created_at
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*TicketMessage{}
	for rows.Next() {
		message := &TicketMessage{}
		if err := rows.Scan(&message.ID, &message.TicketID, &message.SenderID, &message.Message, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

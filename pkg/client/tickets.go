package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"clientportal/internal/workflow"
)

// TicketMessage is one entry of a support ticket conversation.
type TicketMessage struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	SenderID  string    `json:"sender_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func messageKey(m TicketMessage) (time.Time, string) {
	return m.CreatedAt, m.ID
}

// TicketMessages returns the conversation of a ticket, oldest first.
func (c *Client) TicketMessages(ctx context.Context, ticketID string) ([]TicketMessage, error) {
	var resp struct {
		Messages []TicketMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, ticketPath(ticketID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	workflow.SortMessages(resp.Messages, messageKey)
	return resp.Messages, nil
}

// PostTicketMessage appends text to the conversation and returns the stored
// message.
func (c *Client) PostTicketMessage(ctx context.Context, ticketID, text string) (*TicketMessage, error) {
	var msg TicketMessage
	body := map[string]string{"message": text}
	if err := c.do(ctx, http.MethodPost, ticketPath(ticketID)+"/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ticketPath(id string) string {
	return "/dashboard/tickets/" + url.PathEscape(id)
}

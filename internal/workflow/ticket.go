package workflow

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"clientportal/internal/apperrors"
)

var ErrEmptyMessage = fmt.Errorf("%w: message is empty", apperrors.ErrValidation)

type TicketStatus string

const (
	TicketOpen           TicketStatus = "open"
	TicketInProgress     TicketStatus = "in_progress"
	TicketAwaitingClient TicketStatus = "awaiting_client"
	TicketCompleted      TicketStatus = "completed"
)

var ticketStatusLabels = map[TicketStatus]string{
	TicketOpen:           "Aberto",
	TicketInProgress:     "Em atendimento",
	TicketAwaitingClient: "Aguardando cliente",
	TicketCompleted:      "Concluído",
}

// TicketStatuses returns the four ticket states, open first.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{TicketOpen, TicketInProgress, TicketAwaitingClient, TicketCompleted}
}

func (s TicketStatus) Valid() bool {
	_, ok := ticketStatusLabels[s]
	return ok
}

// ParseTicketStatus accepts any of the four states. Transitions between them
// are unrestricted; only who may change them is checked elsewhere.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	s := TicketStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown ticket status %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func TicketStatusLabel(raw string) string {
	if label, ok := ticketStatusLabels[TicketStatus(raw)]; ok {
		return label
	}
	return ticketStatusLabels[TicketOpen]
}

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

var priorityLabels = map[TicketPriority]string{
	PriorityLow:    "Baixa",
	PriorityMedium: "Média",
	PriorityHigh:   "Alta",
}

// ParsePriority defaults an empty value to medium.
func ParsePriority(raw string) (TicketPriority, error) {
	if raw == "" {
		return PriorityMedium, nil
	}
	p := TicketPriority(raw)
	if _, ok := priorityLabels[p]; !ok {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidStatus, raw)
	}
	return p, nil
}

func PriorityLabel(raw string) string {
	if label, ok := priorityLabels[TicketPriority(raw)]; ok {
		return label
	}
	return priorityLabels[PriorityMedium]
}

// NormalizeMessage trims a chat message and reports whether anything is left.
func NormalizeMessage(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

// SortMessages orders a conversation oldest first. Messages written in the
// same instant are ordered by id so every reader sees the same thread.
func SortMessages[T any](msgs []T, key func(T) (time.Time, string)) {
	slices.SortStableFunc(msgs, func(a, b T) int {
		at, aid := key(a)
		bt, bid := key(b)
		if c := at.Compare(bt); c != 0 {
			return c
		}
		return cmp.Compare(aid, bid)
	})
}

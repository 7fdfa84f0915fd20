package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clientportal/internal/apperrors"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ProjectID *uuid.UUID `json:"project_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

func insertNotification(ctx context.Context, q queryer, notification *Notification) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, project_id, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING id, created_at`,
		notification.UserID, nullUUID(notification.ProjectID), notification.Title, notification.Message,
	).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	notification.Read = false
	return nil
}

// GetUserNotifications retrieves notifications for a user
func (s *service) GetUserNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, title, message, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		notification := &Notification{}
		var projectID uuid.NullUUID
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&projectID,
			&notification.Title,
			&notification.Message,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if projectID.Valid {
			id := projectID.UUID
			notification.ProjectID = &id
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationAsRead marks a notification as read
func (s *service) MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("notification %w", apperrors.ErrNotFound)
	}

	return nil
}

// MarkNotificationsAsRead flips the given ids, or every unread notification of
// the user when ids is empty, and returns the ids that changed.
func (s *service) MarkNotificationsAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE user_id = $1 AND read = FALSE
		RETURNING id`
	args := []any{userID}
	if len(ids) > 0 {
		raw := make([]string, len(ids))
		for i, id := range ids {
			raw[i] = id.String()
		}
		query = `
		UPDATE notifications
		SET read = TRUE
		WHERE user_id = $1 AND read = FALSE AND id = ANY($2::uuid[])
		RETURNING id`
		args = append(args, "{"+strings.Join(raw, ",")+"}")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	defer rows.Close()

	updated := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification ids: %w", err)
	}
	return updated, nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectActivity is an append-only timeline entry. Nothing in this package
// updates or deletes one.
type ProjectActivity struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	UserID      *uuid.UUID `json:"user_id"`
	Action      string     `json:"action"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

func insertActivity(ctx context.Context, q queryer, activity *ProjectActivity) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO project_activities (project_id, user_id, action, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`,
		activity.ProjectID, nullUUID(activity.UserID), activity.Action, activity.Description,
	).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListProjectActivities returns the newest entries first.
func (s *service) ListProjectActivities(ctx context.Context, projectID uuid.UUID, limit int) ([]*ProjectActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, user_id, action, description, created_at
		FROM project_activities
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer rows.Close()

	activities := []*ProjectActivity{}
	for rows.Next() {
		activity := &ProjectActivity{}
		var userID uuid.NullUUID
		if err := rows.Scan(
			&activity.ID, &activity.ProjectID, &userID,
			&activity.Action, &activity.Description, &activity.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if userID.Valid {
			id := userID.UUID
			activity.UserID = &id
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}

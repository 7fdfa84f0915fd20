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

type Project struct {
	ID                uuid.UUID  `json:"id"`
	ClientID          uuid.UUID  `json:"client_id"`
	Title             string     `json:"title"`
	ServiceType       string     `json:"service_type"`
	Status            string     `json:"status"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ProjectChange is everything a project write produced, so the caller can
// publish it once the transaction is committed.
type ProjectChange struct {
	Project      *Project
	Activity     *ProjectActivity
	Notification *Notification
}

const projectColumns = `id, client_id, title, service_type, status, estimated_delivery, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	project := &Project{}
	var delivery sql.NullTime
	if err := row.Scan(
		&project.ID, &project.ClientID, &project.Title, &project.ServiceType,
		&project.Status, &delivery, &project.CreatedAt, &project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if delivery.Valid {
		t := delivery.Time
		project.EstimatedDelivery = &t
	}
	return project, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreateProject inserts the project together with its "created" activity and
// a notification for the client.
func (s *service) CreateProject(ctx context.Context, project *Project, actorID uuid.UUID) (*ProjectChange, error) {
	change := &ProjectChange{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		created, err := scanProject(tx.QueryRowContext(ctx, `
			INSERT INTO projects (client_id, title, service_type, status, estimated_delivery, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING `+projectColumns,
			project.ClientID, project.Title, project.ServiceType, project.Status, nullTime(project.EstimatedDelivery),
		))
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		change.Project = created

		change.Activity = &ProjectActivity{
			ProjectID:   created.ID,
			UserID:      &actorID,
			Action:      string(workflow.ActionCreated),
			Description: fmt.Sprintf("Projeto \"%s\" criado", created.Title),
		}
		if err := insertActivity(ctx, tx, change.Activity); err != nil {
			return err
		}

		change.Notification = &Notification{
			UserID:    created.ClientID,
			ProjectID: &created.ID,
			Title:     "Novo projeto",
			Message:   fmt.Sprintf("O projeto \"%s\" foi criado.", created.Title),
		}
		return insertNotification(ctx, tx, change.Notification)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// GetProject returns the project if the viewer may see it. A project owned by
// someone else reads as not found.
func (s *service) GetProject(ctx context.Context, id uuid.UUID, viewer Viewer) (*Project, error) {
	project, err := scanProject(s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1 AND ($2 OR client_id = $3)`,
		id, viewer.Admin, viewer.UserID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// ListProjects returns the visible projects, newest first.
func (s *service) ListProjects(ctx context.Context, viewer Viewer) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE ($1 OR client_id = $2)
		ORDER BY created_at DESC`,
		viewer.Admin, viewer.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectStatus writes the new status, appends a status_change activity
// and notifies the client, all in one transaction. Any status may follow any
// other.
func (s *service) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*ProjectChange, error) {
	change := &ProjectChange{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		updated, err := scanProject(tx.QueryRowContext(ctx, `
			UPDATE projects
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+projectColumns,
			id, status,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %w", apperrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to update project status: %w", err)
		}
		change.Project = updated

		change.Activity = &ProjectActivity{
			ProjectID:   updated.ID,
			UserID:      &actorID,
			Action:      string(workflow.ActionStatusChange),
			Description: workflow.StatusChangeDescription(workflow.ProjectStatus(updated.Status)),
		}
		if err := insertActivity(ctx, tx, change.Activity); err != nil {
			return err
		}

		change.Notification = &Notification{
			UserID:    updated.ClientID,
			ProjectID: &updated.ID,
			Title:     "Status do projeto atualizado",
			Message:   fmt.Sprintf("%s: %s", updated.Title, workflow.StatusChangeDescription(workflow.ProjectStatus(updated.Status))),
		}
		return insertNotification(ctx, tx, change.Notification)
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"clientportal/internal/apperrors"
	"clientportal/internal/authz"
	"clientportal/internal/database"
	"clientportal/internal/metrics"
	"clientportal/internal/realtime"
	"clientportal/internal/workflow"
)

// ProjectView is a project with its derived progress fields.
type ProjectView struct {
	*database.Project
	Progress     int             `json:"progress"`
	StatusLabel  string          `json:"status_label"`
	ServiceLabel string          `json:"service_label"`
	Steps        []workflow.Step `json:"steps"`
}

func NewProjectView(p *database.Project) ProjectView {
	return ProjectView{
		Project:      p,
		Progress:     workflow.ProgressOf(p.Status),
		StatusLabel:  workflow.ProjectStatusLabel(p.Status),
		ServiceLabel: workflow.ServiceLabel(p.ServiceType),
		Steps:        workflow.Steps(p.Status),
	}
}

type NewProject struct {
	ClientID          uuid.UUID  `json:"client_id" binding:"required"`
	Title             string     `json:"title" binding:"required"`
	ServiceType       string     `json:"service_type"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

type ProjectService struct {
	db    database.Service
	authz Authorizer
	out   publisher
	log   *slog.Logger
}

func NewProjectService(db database.Service, az Authorizer, pub realtime.Publisher, log *slog.Logger) *ProjectService {
	log = orDefault(log)
	return &ProjectService{db: db, authz: az, out: publisher{pub: pub, log: log}, log: log}
}

// Create opens a project for a client. New projects start awaiting info.
func (s *ProjectService) Create(ctx context.Context, actor Actor, in NewProject) (*ProjectView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceProject, authz.ActionCreate); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.BadRequest("title is required")
	}
	serviceType, err := workflow.ParseServiceType(in.ServiceType)
	if err != nil {
		return nil, err
	}

	project := &database.Project{
		ClientID:          in.ClientID,
		Title:             title,
		ServiceType:       string(serviceType),
		Status:            string(workflow.StatusAwaitingInfo),
		EstimatedDelivery: in.EstimatedDelivery,
	}
	change, err := s.db.CreateProject(ctx, project, actor.UserID)
	metrics.Observe("project_create", err)
	if err != nil {
		return nil, err
	}

	s.out.activity(ctx, change.Activity)
	s.out.notification(ctx, change.Notification)
	view := NewProjectView(change.Project)
	return &view, nil
}

// SetStatus moves a project to any status, forward or backward. Only admins
// may do it; the change, its timeline entry and the client's notification
// are committed together and published afterwards.
func (s *ProjectService) SetStatus(ctx context.Context, actor Actor, projectID uuid.UUID, status string) (*ProjectView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceProject, authz.ActionUpdateStatus); err != nil {
		return nil, err
	}
	next, err := workflow.ParseProjectStatus(status)
	if err != nil {
		return nil, err
	}

	change, err := s.db.UpdateProjectStatus(ctx, projectID, string(next), actor.UserID)
	metrics.Observe("project_status", err)
	if err != nil {
		return nil, fmt.Errorf("failed to set project status: %w", err)
	}
	s.log.Info("project status changed", "project_id", projectID, "status", next, "actor", actor.UserID)

	s.out.activity(ctx, change.Activity)
	s.out.notification(ctx, change.Notification)
	view := NewProjectView(change.Project)
	return &view, nil
}

func (s *ProjectService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*ProjectView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceProject, authz.ActionRead); err != nil {
		return nil, err
	}
	project, err := s.db.GetProject(ctx, id, actor.Viewer())
	if err != nil {
		return nil, err
	}
	view := NewProjectView(project)
	return &view, nil
}

// List returns the projects the actor can see, newest first.
func (s *ProjectService) List(ctx context.Context, actor Actor) ([]ProjectView, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceProject, authz.ActionRead); err != nil {
		return nil, err
	}
	projects, err := s.db.ListProjects(ctx, actor.Viewer())
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, NewProjectView(p))
	}
	return views, nil
}

package services

import (
	"context"

	"github.com/google/uuid"

	"clientportal/internal/authz"
	"clientportal/internal/database"
	"clientportal/internal/realtime"
)

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
	ActivityLimit            = 50
)

// Subscriber opens realtime subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan realtime.Event, func())
}

// FeedService serves the notification inbox and project timelines, both as
// pages and as live streams.
type FeedService struct {
	db    database.Service
	authz Authorizer
	subs  Subscriber
}

func NewFeedService(db database.Service, az Authorizer, subs Subscriber) *FeedService {
	return &FeedService{db: db, authz: az, subs: subs}
}

// ClampLimit applies the notification page default and cap.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		return MaxNotificationLimit
	}
	return limit
}

func (s *FeedService) Notifications(ctx context.Context, actor Actor, limit int) ([]*database.Notification, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceNotification, authz.ActionRead); err != nil {
		return nil, err
	}
	return s.db.GetUserNotifications(ctx, actor.UserID, ClampLimit(limit))
}

func (s *FeedService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.authz.Authorize(actor.Role, authz.ResourceNotification, authz.ActionUpdate); err != nil {
		return err
	}
	return s.db.MarkNotificationAsRead(ctx, id, actor.UserID)
}

// MarkManyRead marks the given notifications, or every unread one when ids
// is empty, and returns the ids that changed.
func (s *FeedService) MarkManyRead(ctx context.Context, actor Actor, ids []uuid.UUID) ([]uuid.UUID, error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceNotification, authz.ActionUpdate); err != nil {
		return nil, err
	}
	return s.db.MarkNotificationsAsRead(ctx, actor.UserID, ids)
}

// SubscribeNotifications streams the actor's new notifications.
func (s *FeedService) SubscribeNotifications(ctx context.Context, actor Actor) (<-chan realtime.Event, func(), error) {
	if err := s.authz.Authorize(actor.Role, authz.ResourceNotification, authz.ActionRead); err != nil {
		return nil, nil, err
	}
	events, cancel := s.subs.Subscribe(ctx, realtime.NotificationsTopic(actor.UserID.String()))
	return events, cancel, nil
}

// Activities returns the latest timeline entries of a visible project.
func (s *FeedService) Activities(ctx context.Context, actor Actor, projectID uuid.UUID) ([]*database.ProjectActivity, error) {
	if err := s.visibleProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.db.ListProjectActivities(ctx, projectID, ActivityLimit)
}

// SubscribeActivities streams new timeline entries of a visible project.
func (s *FeedService) SubscribeActivities(ctx context.Context, actor Actor, projectID uuid.UUID) (<-chan realtime.Event, func(), error) {
	if err := s.visibleProject(ctx, actor, projectID); err != nil {
		return nil, nil, err
	}
	events, cancel := s.subs.Subscribe(ctx, realtime.ProjectActivitiesTopic(projectID.String()))
	return events, cancel, nil
}

func (s *FeedService) visibleProject(ctx context.Context, actor Actor, projectID uuid.UUID) error {
	if err := s.authz.Authorize(actor.Role, authz.ResourceProject, authz.ActionRead); err != nil {
		return err
	}
	_, err := s.db.GetProject(ctx, projectID, actor.Viewer())
	return err
}

// Package services holds the portal's use cases. Each write checks the
// actor's role, runs its database transaction and then publishes what it
// produced to the realtime broker.
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"clientportal/internal/database"
	"clientportal/internal/realtime"
	"clientportal/internal/workflow"
)

// Actor is the signed-in user a call is made for.
type Actor struct {
	UserID uuid.UUID
	Role   workflow.Role
}

func (a Actor) Viewer() database.Viewer {
	return database.Viewer{UserID: a.UserID, Admin: a.Role.IsAdmin()}
}

// Authorizer decides role-level permissions; see internal/authz.
type Authorizer interface {
	Authorize(role workflow.Role, resource, action string) error
}

type publisher struct {
	pub realtime.Publisher
	log *slog.Logger
}

func (p publisher) activity(ctx context.Context, activity *database.ProjectActivity) {
	if p.pub == nil || activity == nil {
		return
	}
	ev, err := realtime.NewInsert(realtime.TableProjectActivities, activity)
	if err != nil {
		p.log.Error("failed to encode activity event", "activity_id", activity.ID, "error", err)
		return
	}
	p.pub.Publish(ctx, realtime.ProjectActivitiesTopic(activity.ProjectID.String()), ev)
}

func (p publisher) notification(ctx context.Context, notification *database.Notification) {
	if p.pub == nil || notification == nil {
		return
	}
	ev, err := realtime.NewInsert(realtime.TableNotifications, notification)
	if err != nil {
		p.log.Error("failed to encode notification event", "notification_id", notification.ID, "error", err)
		return
	}
	p.pub.Publish(ctx, realtime.NotificationsTopic(notification.UserID.String()), ev)
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

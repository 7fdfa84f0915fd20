package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"clientportal/pkg/feed"
)

// Notifications is the signed-in user's notification source.
type Notifications struct {
	c *Client
}

var _ feed.NotificationSource = (*Notifications)(nil)

func (c *Client) Notifications() *Notifications {
	return &Notifications{c: c}
}

func (n *Notifications) Fetch(ctx context.Context, limit int) ([]feed.Notification, error) {
	var resp struct {
		Notifications []feed.Notification `json:"notifications"`
	}
	path := fmt.Sprintf("/notifications?limit=%d", limit)
	if err := n.c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (n *Notifications) Subscribe(ctx context.Context) (<-chan feed.Notification, error) {
	return subscribe[feed.Notification](ctx, n.c, "/notifications/stream", "notifications")
}

func (n *Notifications) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return n.c.do(ctx, http.MethodPost, "/notifications/read-all", map[string][]string{"ids": ids}, nil)
}

// Activities is the timeline source of one project.
type Activities struct {
	c         *Client
	projectID string
}

var _ feed.Source[feed.Activity] = (*Activities)(nil)

func (c *Client) Activities(projectID string) *Activities {
	return &Activities{c: c, projectID: projectID}
}

// Fetch returns the latest entries. The server caps the page itself.
func (a *Activities) Fetch(ctx context.Context, limit int) ([]feed.Activity, error) {
	var resp struct {
		Activities []feed.Activity `json:"activities"`
	}
	if err := a.c.do(ctx, http.MethodGet, a.basePath()+"/activities", nil, &resp); err != nil {
		return nil, err
	}
	if limit > 0 && len(resp.Activities) > limit {
		resp.Activities = resp.Activities[:limit]
	}
	return resp.Activities, nil
}

func (a *Activities) Subscribe(ctx context.Context) (<-chan feed.Activity, error) {
	return subscribe[feed.Activity](ctx, a.c, a.basePath()+"/activities/stream", "project_activities")
}

func (a *Activities) basePath() string {
	return "/dashboard/project/" + url.PathEscape(a.projectID)
}

// NewInbox wires a feed.Inbox to the API.
func (c *Client) NewInbox() *feed.Inbox {
	return feed.NewInbox(c.Notifications())
}

// NewTimeline wires a feed.Timeline for projectID to the API.
func (c *Client) NewTimeline(projectID string) *feed.Timeline {
	return feed.NewTimeline(c.Activities(projectID))
}

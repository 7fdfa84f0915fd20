package feed

import "time"

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID *string   `json:"project_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) FeedID() string      { return n.ID }
func (n Notification) FeedTime() time.Time { return n.CreatedAt }

// MergeOver keeps the read flag monotonic: a late or duplicate insert echo
// never turns a read notification unread again.
func (n Notification) MergeOver(prev Notification) Notification {
	n.Read = n.Read || prev.Read
	return n
}

type Activity struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	UserID      *string   `json:"user_id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a Activity) FeedID() string      { return a.ID }
func (a Activity) FeedTime() time.Time { return a.CreatedAt }

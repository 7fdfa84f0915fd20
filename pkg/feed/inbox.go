package feed

import (
	"context"
	"fmt"
)

const InboxLimit = 20

// NotificationSource adds persistence of read flags to a notification Source.
type NotificationSource interface {
	Source[Notification]
	MarkRead(ctx context.Context, ids []string) error
}

// Inbox is the notification bell: the latest notifications of the signed-in
// user, kept current over a subscription.
type Inbox struct {
	*Live[Notification]
	store NotificationSource
}

func NewInbox(src NotificationSource) *Inbox {
	return &Inbox{Live: newLive[Notification](src, InboxLimit), store: src}
}

// UnreadCount counts unread notifications in the loaded window only.
func (i *Inbox) UnreadCount() int {
	n := 0
	for _, item := range i.Items() {
		if !item.Read {
			n++
		}
	}
	return n
}

// Badge is the bell label for the current unread count.
func (i *Inbox) Badge() string {
	return BadgeLabel(i.UnreadCount())
}

// MarkAsRead flips one notification locally and then persists it. If the
// write fails the local flag is restored and the error returned.
func (i *Inbox) MarkAsRead(ctx context.Context, id string) error {
	return i.markRead(ctx, func(n Notification) bool { return n.ID == id })
}

// MarkAllAsRead does the same for every unread notification in the window.
// Notifications beyond the window are left alone.
func (i *Inbox) MarkAllAsRead(ctx context.Context) error {
	return i.markRead(ctx, func(Notification) bool { return true })
}

func (i *Inbox) markRead(ctx context.Context, match func(Notification) bool) error {
	var flipped []string
	i.apply(func(items []Notification) []Notification {
		for idx := range items {
			if !items[idx].Read && match(items[idx]) {
				items[idx].Read = true
				flipped = append(flipped, items[idx].ID)
			}
		}
		return items
	})
	if len(flipped) == 0 {
		return nil
	}

	if err := i.store.MarkRead(ctx, flipped); err != nil {
		i.restoreUnread(flipped)
		return fmt.Errorf("mark as read: %w", err)
	}
	return nil
}

func (i *Inbox) restoreUnread(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	i.apply(func(items []Notification) []Notification {
		for idx := range items {
			if _, ok := set[items[idx].ID]; ok {
				items[idx].Read = false
			}
		}
		return items
	})
}

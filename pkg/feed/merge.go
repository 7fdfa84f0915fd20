// Package feed keeps the client-side state of the portal's live lists: the
// notification inbox and the project activity timeline. Both merge a fetched
// page with events pushed over a subscription.
package feed

import (
	"cmp"
	"slices"
	"strconv"
	"time"
)

// Entry is anything that can sit in a feed.
type Entry interface {
	FeedID() string
	FeedTime() time.Time
}

// merger is implemented by entries that carry state which must not go
// backwards when a stale copy arrives.
type merger[T any] interface {
	MergeOver(prev T) T
}

// MergeByID returns a new slice holding existing and incoming entries with
// one entry per id, newest first. An incoming entry replaces an existing one
// with the same id, combined through MergeOver when the type has it.
// Entries created in the same instant are ordered by id, descending, so the
// result does not depend on arrival order.
func MergeByID[T Entry](existing, incoming []T) []T {
	index := make(map[string]int, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))

	add := func(e T) {
		if i, ok := index[e.FeedID()]; ok {
			if m, ok := any(e).(merger[T]); ok {
				e = m.MergeOver(out[i])
			}
			out[i] = e
			return
		}
		index[e.FeedID()] = len(out)
		out = append(out, e)
	}
	for _, e := range existing {
		add(e)
	}
	for _, e := range incoming {
		add(e)
	}

	slices.SortStableFunc(out, func(a, b T) int {
		if c := b.FeedTime().Compare(a.FeedTime()); c != 0 {
			return c
		}
		return cmp.Compare(b.FeedID(), a.FeedID())
	})
	return out
}

// BadgeLabel renders an unread count for the bell: nothing for zero, the
// number up to nine, then "9+".
func BadgeLabel(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 9:
		return "9+"
	default:
		return strconv.Itoa(unread)
	}
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrAlreadyOpen        = errors.New("feed: already open")
	ErrSubscriptionClosed = errors.New("feed: subscription closed")
)

// Source supplies a first page and a stream of newly inserted entries. The
// channel returned by Subscribe is closed when ctx ends or the transport
// drops.
type Source[T Entry] interface {
	Fetch(ctx context.Context, limit int) ([]T, error)
	Subscribe(ctx context.Context) (<-chan T, error)
}

// Live is a merged, deduplicated view over a Source. It holds at most one
// subscription at a time.
type Live[T Entry] struct {
	src      Source[T]
	limit    int
	onChange func([]T)

	mu     sync.Mutex
	items  []T
	open   bool
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newLive[T Entry](src Source[T], limit int) *Live[T] {
	return &Live[T]{src: src, limit: limit}
}

// OnChange registers fn to be called with a snapshot after every change.
// It must be set before Open.
func (l *Live[T]) OnChange(fn func([]T)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Open subscribes and then loads the first page. Subscribing first means an
// entry inserted while the page is loading arrives on the stream and is
// deduplicated against the page instead of being lost.
func (l *Live[T]) Open(ctx context.Context) error {
	l.mu.Lock()
	if l.open {
		l.mu.Unlock()
		return ErrAlreadyOpen
	}
	subCtx, cancel := context.WithCancel(ctx)
	l.open = true
	l.cancel = cancel
	l.err = nil
	l.items = nil
	l.done = make(chan struct{})
	l.mu.Unlock()

	events, err := l.src.Subscribe(subCtx)
	if err != nil {
		l.reset(cancel)
		return fmt.Errorf("subscribe: %w", err)
	}
	go l.consume(subCtx, events)

	page, err := l.src.Fetch(ctx, l.limit)
	if err != nil {
		l.Close()
		return fmt.Errorf("fetch: %w", err)
	}
	l.apply(func(items []T) []T { return MergeByID(items, page) })
	return nil
}

func (l *Live[T]) reset(cancel context.CancelFunc) {
	cancel()
	l.mu.Lock()
	l.open = false
	l.cancel = nil
	close(l.done)
	l.mu.Unlock()
}

func (l *Live[T]) consume(ctx context.Context, events <-chan T) {
	defer func() {
		l.mu.Lock()
		if ctx.Err() == nil && l.err == nil {
			l.err = ErrSubscriptionClosed
		}
		done := l.done
		l.mu.Unlock()
		close(done)
	}()
	for e := range events {
		l.apply(func(items []T) []T { return MergeByID(items, []T{e}) })
	}
}

// apply mutates the items under the lock and notifies outside it.
func (l *Live[T]) apply(fn func([]T) []T) {
	l.mu.Lock()
	l.items = fn(l.items)
	snapshot := l.snapshotLocked()
	notify := l.onChange
	l.mu.Unlock()
	if notify != nil {
		notify(snapshot)
	}
}

func (l *Live[T]) snapshotLocked() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Close ends the subscription and waits for the consumer to stop. Requests
// already in flight are not cancelled. Closing a closed feed is a no-op.
func (l *Live[T]) Close() {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return
	}
	cancel, done := l.cancel, l.done
	l.open = false
	l.cancel = nil
	l.mu.Unlock()

	cancel()
	<-done
}

// Items returns a snapshot, newest first.
func (l *Live[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Err reports why the subscription ended on its own, if it did. There is no
// automatic reconnect; callers Close and Open again.
func (l *Live[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done is closed once the subscription has stopped.
func (l *Live[T]) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

const TimelineLimit = 50

// Timeline is the activity feed of one project.
type Timeline struct {
	*Live[Activity]
}

func NewTimeline(src Source[Activity]) *Timeline {
	return &Timeline{Live: newLive[Activity](src, TimelineLimit)}
}

// Package notify implements the live notification feed: an in-process hub
// that fans out full result-set snapshots to per-user subscribers whenever a
// user's notification set changes. This replaces the managed backend's live
// query with an explicit, cancellable subscription handle so lifecycle and
// cancellation are testable.
//
// Every change delivers the complete current snapshot (newest first,
// capped), not a diff, so clients never reconcile partial state. Snapshots
// are coalesced per subscriber, so a slow consumer observes the latest state
// rather than a backlog.
package notify

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
	"github.com/dale-app/carnaval-backend/internal/repo"
)

// DefaultSnapshotLimit caps how many notifications a snapshot carries.
const DefaultSnapshotLimit = 20

// Subscription is a live feed of notification snapshots for one user.
// The caller must invoke Cancel when done; the feed does not stop on its own.
type Subscription struct {
	// C delivers the full current snapshot on every change. It is closed
	// after Cancel.
	C <-chan []domain.Notification

	once   sync.Once
	cancel func()
}

// Cancel releases the subscription. Safe to call multiple times.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Noop returns an already-terminated subscription whose Cancel does nothing.
// Handed out to unauthenticated callers so they share the same contract.
func Noop() *Subscription {
	ch := make(chan []domain.Notification)
	close(ch)
	return &Subscription{C: ch}
}

// subscriber is one registered feed. The buffered channel plus drain-then-send
// in push() coalesces snapshots for slow consumers.
type subscriber struct {
	ch chan []domain.Notification
}

func (s *subscriber) push(snap []domain.Notification) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// Hub tracks subscribers per user and re-queries the snapshot on publish.
// Safe for concurrent use.
type Hub struct {
	db    *gorm.DB
	limit int

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub builds a Hub over db. A non-positive limit falls back to
// DefaultSnapshotLimit.
func NewHub(db *gorm.DB, limit int) *Hub {
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	return &Hub{
		db:    db,
		limit: limit,
		subs:  make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registers a live feed for userID and immediately delivers the
// current snapshot, so new subscribers never start empty-handed. The
// returned handle must be canceled by the caller.
func (h *Hub) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	snap, err := repo.ListNotifications(ctx, h.db, userID, h.limit)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{ch: make(chan []domain.Notification, 1)}
	sub.ch <- snap

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(sub.ch)
		},
	}, nil
}

// Publish re-queries userID's snapshot and fans it out to all subscribers.
// Called after any mutation of the user's notification set. Query failures
// are returned to the caller; subscribers simply miss one update.
func (h *Hub) Publish(ctx context.Context, userID string) error {
	h.mu.Lock()
	n := len(h.subs[userID])
	h.mu.Unlock()
	if n == 0 {
		return nil
	}

	snap, err := repo.ListNotifications(ctx, h.db, userID, h.limit)
	if err != nil {
		return err
	}

	h.mu.Lock()
	for sub := range h.subs[userID] {
		sub.push(snap)
	}
	h.mu.Unlock()
	return nil
}

// Subscribers reports how many live feeds exist for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

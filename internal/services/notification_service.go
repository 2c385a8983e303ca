// Package services – NotificationService
//
// This file implements the NotificationService, which creates notification
// records, exposes the live subscription feed, and flips the read flag. The
// service normalizes every created record (read=false, server-assigned
// timestamp) regardless of what the caller supplied, and republishes the
// owning user's snapshot through the hub after each mutation.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
	"github.com/dale-app/carnaval-backend/internal/notify"
	"github.com/dale-app/carnaval-backend/internal/repo"
)

// NotificationService implements the notification use-cases.
type NotificationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Hub fans out snapshots to live subscribers.
	Hub *notify.Hub
}

// CreateNotification carries the caller-controlled fields of a new
// notification. Read state and creation time are not caller-controlled.
type CreateNotification struct {
	UserID       string
	FromUserID   string
	FromUserName string
	Type         domain.NotificationType
	Title        string
	Message      string
	Link         string
}

// Create persists a notification and republishes the target user's live
// snapshot. Read is always forced to false and CreatedAt to the server
// clock, whatever the caller supplied upstream. Unknown type tags are
// rejected with ErrBadNotificationType.
func (s *NotificationService) Create(ctx context.Context, in CreateNotification) error {
	if !in.Type.Valid() {
		return ErrBadNotificationType
	}

	n := &domain.Notification{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		FromUserID:   in.FromUserID,
		FromUserName: in.FromUserName,
		Type:         in.Type,
		Title:        in.Title,
		Message:      in.Message,
		Link:         in.Link,
		Read:         false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateNotification(ctx, s.DB, n); err != nil {
		return err
	}

	if err := s.Hub.Publish(ctx, in.UserID); err != nil {
		// Subscribers miss one update; the record itself is durable.
		log.Warn().Err(err).Str("user_id", in.UserID).Msg("notification publish failed")
	}
	return nil
}

// Subscribe opens a live snapshot feed for userID. Unauthenticated callers
// (empty userID) receive an already-terminated subscription whose Cancel is
// a no-op, so callers never need to branch on auth state.
func (s *NotificationService) Subscribe(ctx context.Context, userID string) (*notify.Subscription, error) {
	if userID == "" {
		return notify.Noop(), nil
	}
	return s.Hub.Subscribe(ctx, userID)
}

// MarkAsRead flips the read flag on one of userID's notifications and
// republishes the owner's snapshot. A record targeted at another user is
// reported as missing, the same conflation the ficada owner check uses.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id string) error {
	n, err := repo.GetNotification(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	if n.UserID != userID {
		return ErrNotificationNotFound
	}

	if err := repo.MarkNotificationRead(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}

	if err := s.Hub.Publish(ctx, n.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", n.UserID).Msg("notification publish failed")
	}
	return nil
}

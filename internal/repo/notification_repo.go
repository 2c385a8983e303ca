// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
//
// Notifications are append-mostly: rows are inserted on ficada creation and
// the only mutation ever applied is flipping the read flag. The listing query
// mirrors the live-subscription contract: newest first, capped.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
)

// CreateNotification inserts a new notification row.
func CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

// ListNotifications returns the latest notifications targeted at userID,
// ordered by creation time descending and capped at limit rows.
func ListNotifications(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetNotification fetches a single notification by ID, or ErrNotFound.
func GetNotification(ctx context.Context, db *gorm.DB, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkNotificationRead flips the read flag to true. Returns ErrNotFound when
// no row matched. Re-marking an already-read notification succeeds.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

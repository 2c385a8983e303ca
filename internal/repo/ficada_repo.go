// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ficada
// model.
//
// Functions:
//
//   - CreateFicada(ctx, db, f) -> error
//     Inserts a new ficada row; the caller supplies ID and owner.
//
//   - ListFicadas(ctx, db, userID) -> []domain.Ficada, error
//     Returns all ficadas for an owner, newest-created-first.
//
//   - CountFicadas(ctx, db, userID) -> (int64, error)
//     Returns the total number of ficadas owned by the user.
//
//   - ListFicadasPage(ctx, db, userID, offset, limit) -> []domain.Ficada, error
//     Returns a paginated slice of ficadas for an owner.
//
//   - GetFicada(ctx, db, id) -> *domain.Ficada, error
//     Fetches a single ficada by ID regardless of owner; the service layer is
//     responsible for the ownership check so that absence and ownership
//     mismatch collapse into the same caller-visible outcome.
//
//   - UpdateFicadaFields(ctx, db, id, fields) -> error
//     Partial column update; ErrNotFound when no row matched.
//
//   - DeleteFicada(ctx, db, id) -> error
//     Soft-deletes the row; ErrNotFound when no row matched.
//
//   - FicadasStats(ctx, db, userID) -> (count, maxUpdatedAt, error)
//     Cheap aggregate used to build weak ETags for the listing endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
)

// CreateFicada inserts a new ficada row owned by f.UserID.
func CreateFicada(ctx context.Context, db *gorm.DB, f *domain.Ficada) error {
	return db.WithContext(ctx).Create(f).Error
}

// ListFicadas returns all ficadas belonging to userID, ordered by creation
// time descending (most recent first). It returns an empty slice if the user
// has none. On DB error, it returns the error.
func ListFicadas(ctx context.Context, db *gorm.DB, userID string) ([]domain.Ficada, error) {
	var out []domain.Ficada
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountFicadas returns the total number of ficadas owned by userID.
func CountFicadas(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Ficada{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListFicadasPage returns a paginated slice of ficadas for userID, ordered by
// creation time descending. Use CountFicadas to obtain the total for
// pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListFicadasPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Ficada, error) {
	var out []domain.Ficada
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetFicada fetches a single ficada by ID. If the record does not exist, it
// returns ErrNotFound. Ownership is deliberately not part of the query; the
// service layer compares the stored owner against the caller.
func GetFicada(ctx context.Context, db *gorm.DB, id string) (*domain.Ficada, error) {
	var f domain.Ficada
	if err := db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFicadaFields applies a partial column update to the ficada row.
// Returns ErrNotFound when no row matched.
func UpdateFicadaFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Ficada{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteFicada removes the ficada row (soft delete). Returns ErrNotFound
// when no row matched.
func DeleteFicada(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Ficada{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FicadasStats returns the row count and the maximum updated_at for a user's
// ficadas. The pair changes whenever the set changes, which makes it a cheap
// weak-ETag source for the listing endpoint.
func FicadasStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	var total int64
	if err := db.WithContext(ctx).
		Model(&domain.Ficada{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var row struct{ Max *time.Time }
	if err := db.WithContext(ctx).
		Model(&domain.Ficada{}).
		Select("MAX(updated_at) AS max").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return total, row.Max, nil
}

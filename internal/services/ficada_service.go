// Package services – FicadaService
//
// This file implements the FicadaService, which manages the lifecycle of
// ficadas (recorded connections). Only the owner may read-for-mutation,
// update, or delete a record; absence and ownership mismatch collapse into
// the same not-found outcome. Creation additionally coordinates two
// best-effort side effects: photo upload and the reciprocate notification
// toward a counterparty.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
	"github.com/dale-app/carnaval-backend/internal/repo"
	"github.com/dale-app/carnaval-backend/internal/storage"
)

// Notifier is the notification contract required by FicadaService. Kept as
// an interface so tests can observe the side effect without a hub.
type Notifier interface {
	Create(ctx context.Context, in CreateNotification) error
}

// FicadaService implements the ficada use-cases.
type FicadaService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store holds ficada photos.
	Store storage.ObjectStore
	// Notifier dispatches the reciprocate notification on creation.
	Notifier Notifier
}

// CreateFicada carries the fields of a new ficada.
type CreateFicada struct {
	Name         string
	Instagram    string
	Phone        string
	Comment      string
	TargetUserID string
	FromUserName string // display name of the creator, used in the notification

	Photo            []byte
	PhotoContentType string
}

// UpdateFicada is a partial mutation. Nil fields are left untouched; non-nil
// fields overwrite, including explicit empty strings.
type UpdateFicada struct {
	Name      *string
	Instagram *string
	Phone     *string
	Comment   *string

	Photo            []byte
	PhotoContentType string
}

// GetAll returns the caller's ficadas, newest-created-first. Without a
// session it returns an empty slice and no error.
func (s *FicadaService) GetAll(ctx context.Context, userID string) ([]domain.Ficada, error) {
	if userID == "" {
		return []domain.Ficada{}, nil
	}
	return repo.ListFicadas(ctx, s.DB, userID)
}

// ListPage returns a page of the caller's ficadas and the total count.
// It applies defaults for invalid page/pageSize.
func (s *FicadaService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Ficada, int64, error) {
	if userID == "" {
		return []domain.Ficada{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountFicadas(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Ficada{}, 0, nil
	}

	items, err := repo.ListFicadasPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// GetByID fetches a single ficada for its owner. A missing record and an
// ownership mismatch are both ErrFicadaNotFound.
func (s *FicadaService) GetByID(ctx context.Context, userID, id string) (*domain.Ficada, error) {
	return s.owned(ctx, userID, id)
}

// Create persists a new ficada and then runs the two secondary effects, each
// isolated so its failure never rolls back or fails the primary write:
//
//   - photo upload: on success the record's photo reference is set; on
//     failure the ficada simply has no photo.
//   - reciprocate notification: fired only when a target user was specified.
//
// The two effects are independent: a failed upload does not suppress the
// notification, and vice versa.
func (s *FicadaService) Create(ctx context.Context, userID string, in CreateFicada) (*domain.Ficada, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}

	f := &domain.Ficada{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Instagram: in.Instagram,
		Phone:     in.Phone,
		Comment:   in.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if in.TargetUserID != "" {
		f.TargetUserID = &in.TargetUserID
	}

	if err := repo.CreateFicada(ctx, s.DB, f); err != nil {
		return nil, err
	}

	if len(in.Photo) > 0 {
		url, err := s.Store.Upload(ctx, storage.FicadaPhotoKey(f.ID), in.Photo, in.PhotoContentType)
		if err != nil {
			log.Warn().Err(err).Str("ficada_id", f.ID).Msg("ficada photo upload failed")
		} else if err := repo.UpdateFicadaFields(ctx, s.DB, f.ID, map[string]any{"photo_url": url}); err != nil {
			log.Warn().Err(err).Str("ficada_id", f.ID).Msg("ficada photo reference update failed")
		} else {
			f.PhotoURL = &url
		}
	}

	if in.TargetUserID != "" {
		fromName := displayName(in.FromUserName)
		err := s.Notifier.Create(ctx, CreateNotification{
			UserID:       in.TargetUserID,
			FromUserID:   userID,
			FromUserName: fromName,
			Type:         domain.TypeReciprocate,
			Title:        "Nova Conexão!",
			Message:      fmt.Sprintf("%s te adicionou. Conecte de volta!", fromName),
			Link:         "/connect/" + userID,
		})
		if err != nil {
			log.Warn().Err(err).Str("target_user_id", in.TargetUserID).Msg("reciprocate notification failed")
		}
	}

	return f, nil
}

// Update mutates an owned ficada. The record is re-fetched first and the
// stored owner compared against the caller; a miss on either count is
// ErrFicadaNotFound. When a new photo is provided, the previous stored
// object is deleted first (a no-op when the old reference does not point
// into our store) and the new object is uploaded under the ficada's key.
func (s *FicadaService) Update(ctx context.Context, userID, id string, upd UpdateFicada) (*domain.Ficada, error) {
	f, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		fields["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Instagram != nil {
		fields["instagram"] = *upd.Instagram
	}
	if upd.Phone != nil {
		fields["phone"] = *upd.Phone
	}
	if upd.Comment != nil {
		fields["comment"] = *upd.Comment
	}

	if len(upd.Photo) > 0 {
		if f.PhotoURL != nil {
			s.deletePhoto(ctx, *f.PhotoURL)
		}
		url, err := s.Store.Upload(ctx, storage.FicadaPhotoKey(id), upd.Photo, upd.PhotoContentType)
		if err != nil {
			return nil, err
		}
		fields["photo_url"] = url
	}

	if err := repo.UpdateFicadaFields(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFicadaNotFound
		}
		return nil, err
	}

	return repo.GetFicada(ctx, s.DB, id)
}

// Delete removes an owned ficada. The stored photo, if any, is deleted first
// with failures swallowed; then the record itself is removed.
func (s *FicadaService) Delete(ctx context.Context, userID, id string) error {
	f, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if f.PhotoURL != nil {
		s.deletePhoto(ctx, *f.PhotoURL)
	}

	if err := repo.DeleteFicada(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrFicadaNotFound
		}
		return err
	}
	return nil
}

// displayName normalizes a creator name for display in a notification.
// Names arrive as free-form input, often all lowercase; word-initial letters
// are uppercased with pt-BR casing rules and the rest left untouched. An
// empty name falls back to a generic placeholder.
func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Alguém"
	}
	// cases.Caser is not safe for concurrent use, so build one per call.
	return cases.Title(language.BrazilianPortuguese, cases.NoLower).String(name)
}

// owned fetches a ficada and verifies the caller is the recorded owner.
// Absence and ownership mismatch produce the same error so existence is not
// leaked.
func (s *FicadaService) owned(ctx context.Context, userID, id string) (*domain.Ficada, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	f, err := repo.GetFicada(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrFicadaNotFound
		}
		return nil, err
	}
	if f.UserID != userID {
		return nil, ErrFicadaNotFound
	}
	return f, nil
}

// deletePhoto best-effort removes a stored photo by its reference URL.
// References that do not map into our store resolve to an empty key and are
// skipped.
func (s *FicadaService) deletePhoto(ctx context.Context, photoURL string) {
	key := storage.KeyFromURL(photoURL)
	if key == "" {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("photo delete failed")
	}
}

// Ficada HTTP handlers.
//
// This file exposes REST endpoints for ficada resources:
//   - GET    /ficadas       (list, paginated, ETag support)
//   - POST   /ficadas       (create, multipart with optional photo)
//   - GET    /ficadas/:id
//   - PUT    /ficadas/:id   (partial update, multipart)
//   - DELETE /ficadas/:id
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including conditional
// responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
	"github.com/dale-app/carnaval-backend/internal/repo"
	"github.com/dale-app/carnaval-backend/internal/services"
	"github.com/dale-app/carnaval-backend/internal/utils"
)

// FicadaService defines ficada lifecycle operations consumed by HTTP
// handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type FicadaService interface {
	GetAll(ctx context.Context, userID string) ([]domain.Ficada, error)
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Ficada, int64, error)
	GetByID(ctx context.Context, userID, id string) (*domain.Ficada, error)
	Create(ctx context.Context, userID string, in services.CreateFicada) (*domain.Ficada, error)
	Update(ctx context.Context, userID, id string, upd services.UpdateFicada) (*domain.Ficada, error)
	Delete(ctx context.Context, userID, id string) error
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListFicadasResponse wraps a page of ficadas and pagination information.
type ListFicadasResponse struct {
	Ficadas    []domain.Ficada `json:"ficadas"`
	Pagination Pagination      `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// ListFicadas returns a page of the caller's ficadas, newest first. Supports
// weak ETag via If-None-Match and may answer 304.
func (h *Handlers) ListFicadas(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.ficadaSvc.(*services.FicadaService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.FicadasStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"ficadas:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.ficadaSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListFicadasResponse{
		Ficadas: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetFicada returns a single owned ficada.
func (h *Handlers) GetFicada(c *gin.Context) {
	f, err := h.ficadaSvc.GetByID(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// CreateFicada records a new connection. The optional photo and the
// reciprocate notification are best-effort and never fail the create.
func (h *Handlers) CreateFicada(c *gin.Context) {
	photo, photoCT, err := formPhoto(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Foto inválida")
		return
	}

	in := services.CreateFicada{
		Name:             c.PostForm("name"),
		Instagram:        strings.TrimSpace(c.PostForm("instagram")),
		Phone:            strings.TrimSpace(c.PostForm("phone")),
		Comment:          strings.TrimSpace(c.PostForm("comment")),
		TargetUserID:     strings.TrimSpace(c.PostForm("target_user_id")),
		Photo:            photo,
		PhotoContentType: photoCT,
	}

	// The notification names the creator; use the cached profile when warm.
	if p := h.authSvc.CurrentUser(c.Request.Context(), userID(c), userEmail(c)); p != nil {
		in.FromUserName = p.Name
	}

	f, err := h.ficadaSvc.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, f)
}

// UpdateFicada applies a partial update to an owned ficada. Only fields
// present in the form are touched; present-but-empty values overwrite.
func (h *Handlers) UpdateFicada(c *gin.Context) {
	var upd services.UpdateFicada

	if v, present := c.GetPostForm("name"); present {
		t := strings.TrimSpace(v)
		upd.Name = &t
	}
	if v, present := c.GetPostForm("instagram"); present {
		t := strings.TrimSpace(v)
		upd.Instagram = &t
	}
	if v, present := c.GetPostForm("phone"); present {
		t := strings.TrimSpace(v)
		upd.Phone = &t
	}
	if v, present := c.GetPostForm("comment"); present {
		t := strings.TrimSpace(v)
		upd.Comment = &t
	}

	photo, photoCT, err := formPhoto(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Foto inválida")
		return
	}
	upd.Photo = photo
	upd.PhotoContentType = photoCT

	f, err := h.ficadaSvc.Update(c.Request.Context(), userID(c), c.Param("id"), upd)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// DeleteFicada removes an owned ficada and its stored photo.
func (h *Handlers) DeleteFicada(c *gin.Context) {
	if err := h.ficadaSvc.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// Auth HTTP handlers.
//
// This file exposes REST endpoints for the account lifecycle:
//   - POST /auth/register   (multipart: email, password, name, optional photo)
//   - POST /auth/login      (JSON)
//   - POST /auth/logout
//   - GET  /me              (merged current-user profile, auth-gate semantics)
//   - PUT  /me              (multipart partial profile update)
//
// Handlers are transport-thin: they validate input shape, call application
// services, and translate results into HTTP responses. Partial updates use
// form-field presence to distinguish "not provided" from "explicitly empty".
package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dale-app/carnaval-backend/internal/services"
	"github.com/dale-app/carnaval-backend/internal/session"
)

// maxPhotoBytes caps uploaded photo size. Larger files are rejected before
// they reach the object store.
const maxPhotoBytes = 5 << 20

// AuthService defines the account operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type AuthService interface {
	Register(ctx context.Context, email, password, name string, photo []byte, photoContentType string) (*session.Profile, string, error)
	Login(ctx context.Context, email, password string) (*session.Profile, string, error)
	Logout(ctx context.Context, userID string)
	CurrentUser(ctx context.Context, userID, email string) *session.Profile
	UpdateProfile(ctx context.Context, userID string, upd services.ProfileUpdate) (*session.Profile, error)
}

// userID extracts the authenticated user id from the Gin context (set by the
// auth middleware). Returns "" for anonymous requests.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// userEmail extracts the token email from the Gin context. It feeds the
// auth-ready gate's fallback profile when the session cache is cold.
func userEmail(c *gin.Context) string {
	if v, ok := c.Get("userEmail"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// formPhoto reads the optional "photo" multipart file. Returns (nil, "", nil)
// when the field is absent.
func formPhoto(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, "", nil
		}
		return nil, "", err
	}
	if fh.Size > maxPhotoBytes {
		return nil, "", errPhotoTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxPhotoBytes {
		return nil, "", errPhotoTooLarge
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return data, ct, nil
}

// errPhotoTooLarge signals an oversized upload before the store is touched.
var errPhotoTooLarge = photoSizeError{}

type photoSizeError struct{}

func (photoSizeError) Error() string { return "photo exceeds the size limit" }

// formString returns the trimmed form field and whether it was present at
// all. Presence is what distinguishes a partial update's "leave untouched"
// from an explicit empty overwrite.
func formString(c *gin.Context, name string) (string, bool) {
	v, ok := c.GetPostForm(name)
	return strings.TrimSpace(v), ok
}

// formBool parses a form field as a boolean, reporting presence separately.
func formBool(c *gin.Context, name string) (bool, bool) {
	v, ok := c.GetPostForm(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	default:
		return false, true
	}
}

// LoginRequest is the JSON payload for authenticating.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse couples the merged profile with the issued bearer token.
type AuthResponse struct {
	Token string           `json:"token"`
	User  *session.Profile `json:"user"`
}

// Register creates an account plus profile and returns the bearer token.
func (h *Handlers) Register(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	name := c.PostForm("name")

	photo, photoCT, err := formPhoto(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Foto inválida")
		return
	}

	p, token, err := h.authSvc.Register(c.Request.Context(), email, password, name, photo, photoCT)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, AuthResponse{Token: token, User: p})
}

// Login validates credentials and returns the profile plus a fresh token.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Todos os campos são obrigatórios")
		return
	}

	p, token, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, AuthResponse{Token: token, User: p})
}

// Logout drops the server-side session cache for the caller. The bearer
// token itself simply expires; there is no revocation list.
func (h *Handlers) Logout(c *gin.Context) {
	h.authSvc.Logout(c.Request.Context(), userID(c))
	noContent(c)
}

// Me returns the merged current-user profile, waiting on the auth-ready gate
// so a fresh process never answers with an empty profile for a valid session.
func (h *Handlers) Me(c *gin.Context) {
	p := h.authSvc.CurrentUser(c.Request.Context(), userID(c), userEmail(c))
	if p == nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Usuário não autenticado")
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateMe applies a partial profile update. Only fields present in the form
// are touched; present-but-empty values overwrite.
func (h *Handlers) UpdateMe(c *gin.Context) {
	var upd services.ProfileUpdate

	if v, present := formString(c, "name"); present {
		upd.Name = &v
	}
	if v, present := c.GetPostForm("instagram"); present {
		t := strings.TrimSpace(v)
		upd.Instagram = &t
	}
	if v, present := c.GetPostForm("phone"); present {
		t := strings.TrimSpace(v)
		upd.Phone = &t
	}
	if v, present := formBool(c, "share_instagram"); present {
		upd.ShareInstagram = &v
	}
	if v, present := formBool(c, "share_phone"); present {
		upd.SharePhone = &v
	}

	photo, photoCT, err := formPhoto(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Foto inválida")
		return
	}
	upd.Photo = photo
	upd.PhotoContentType = photoCT

	p, err := h.authSvc.UpdateProfile(c.Request.Context(), userID(c), upd)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

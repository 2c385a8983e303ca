package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dale-app/carnaval-backend/internal/services"
)

func TestFail_IncludesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "req-123")
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		Fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nope")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID != "req-123" || er.Code != ErrCodeBadRequest || er.Message != "nope" {
		t.Fatalf("body = %+v", er)
	}
}

func Test_serviceError_Mapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{services.ErrMissingFields, 400, ErrCodeBadRequest},
		{services.ErrWeakPassword, 400, ErrCodeWeakPassword},
		{services.ErrInvalidEmail, 400, ErrCodeInvalidEmail},
		{services.ErrEmailInUse, 409, ErrCodeConflict},
		{services.ErrInvalidCredentials, 401, ErrCodeUnauthorized},
		{services.ErrProfileMissing, 404, ErrCodeNotFound},
		{services.ErrNotAuthenticated, 401, ErrCodeUnauthorized},
		{services.ErrNameRequired, 400, ErrCodeBadRequest},
		{services.ErrFicadaNotFound, 404, ErrCodeNotFound},
		{services.ErrUserNotFound, 404, ErrCodeNotFound},
		{services.ErrBadNotificationType, 400, ErrCodeBadRequest},
		{services.ErrNotificationNotFound, 404, ErrCodeNotFound},
		{errors.New("disk on fire"), 500, ErrCodeInternal},
	}
	for _, tc := range cases {
		status, code, msg := serviceError(tc.err)
		if status != tc.wantStatus || code != tc.wantCode {
			t.Fatalf("serviceError(%v) = (%d,%s), want (%d,%s)", tc.err, status, code, tc.wantStatus, tc.wantCode)
		}
		if msg == "" {
			t.Fatalf("serviceError(%v) returned empty message", tc.err)
		}
	}

	// Unknown errors never leak their text
	if _, _, msg := serviceError(errors.New("secret detail")); msg != msgInternal {
		t.Fatalf("internal message leaked: %q", msg)
	}
}

func Test_noContent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.DELETE("/x", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

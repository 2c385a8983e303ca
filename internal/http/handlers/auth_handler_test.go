package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dale-app/carnaval-backend/internal/services"
	"github.com/dale-app/carnaval-backend/internal/session"
)

// ---------- stubs ----------

// Flexible auth service stub; nil hooks fall back to permissive defaults.
type stubAuthSvc struct {
	register      func(ctx context.Context, email, password, name string, photo []byte, photoCT string) (*session.Profile, string, error)
	login         func(ctx context.Context, email, password string) (*session.Profile, string, error)
	logout        func(ctx context.Context, userID string)
	currentUser   func(ctx context.Context, userID, email string) *session.Profile
	updateProfile func(ctx context.Context, userID string, upd services.ProfileUpdate) (*session.Profile, error)
}

func (s stubAuthSvc) Register(ctx context.Context, email, password, name string, photo []byte, ct string) (*session.Profile, string, error) {
	if s.register != nil {
		return s.register(ctx, email, password, name, photo, ct)
	}
	return &session.Profile{ID: "u1", Email: email, Name: name}, "tok", nil
}

func (s stubAuthSvc) Login(ctx context.Context, email, password string) (*session.Profile, string, error) {
	if s.login != nil {
		return s.login(ctx, email, password)
	}
	return &session.Profile{ID: "u1", Email: email}, "tok", nil
}

func (s stubAuthSvc) Logout(ctx context.Context, userID string) {
	if s.logout != nil {
		s.logout(ctx, userID)
	}
}

func (s stubAuthSvc) CurrentUser(ctx context.Context, userID, email string) *session.Profile {
	if s.currentUser != nil {
		return s.currentUser(ctx, userID, email)
	}
	return nil
}

func (s stubAuthSvc) UpdateProfile(ctx context.Context, userID string, upd services.ProfileUpdate) (*session.Profile, error) {
	if s.updateProfile != nil {
		return s.updateProfile(ctx, userID, upd)
	}
	return &session.Profile{ID: userID}, nil
}

// newTestHandlers wires a Handlers value with the given auth stub and inert
// stand-ins for everything else. The other stubs live next to the tests that
// exercise them.
func newTestHandlers(auth AuthService) *Handlers {
	return New(auth, stubFicadaSvc{}, stubNotifSvc{}, stubConnectSvc{}, newTestResolver(), "https://dale.app")
}

// asUser injects the auth middleware's context key, the way Auth() does.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set("userID", id)
		}
		c.Next()
	}
}

// multipartForm builds a multipart body with the given fields and an optional
// photo part.
func multipartForm(t *testing.T, fields map[string]string, photo []byte, photoCT string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if photo != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="photo"; filename="photo.jpg"`)
		if photoCT != "" {
			hdr.Set("Content-Type", photoCT)
		}
		pw, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create photo part: %v", err)
		}
		if _, err := pw.Write(photo); err != nil {
			t.Fatalf("write photo: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}

// ---------- helper tests ----------

func Test_userID_Helper(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := gin.CreateTestContextOnly(httptest.NewRecorder(), gin.New())
	if got := userID(c); got != "" {
		t.Fatalf("anonymous userID = %q, want empty", got)
	}
	c.Set("userID", "u1")
	if got := userID(c); got != "u1" {
		t.Fatalf("ctx userID = %q", got)
	}
	c.Set("userID", 42) // wrong type degrades to anonymous
	if got := userID(c); got != "" {
		t.Fatalf("wrong-type userID = %q, want empty", got)
	}
}

func Test_formBool(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		raw          string
		want, wantOK bool
	}{
		{"true", true, true},
		{"1", true, true},
		{"YES", true, true},
		{"on", true, true},
		{"false", false, true},
		{"0", false, true},
		{"garbage", false, true},
		{"", false, true}, // present but empty is still present
	}
	for _, tc := range cases {
		body, ct := multipartForm(t, map[string]string{"flag": tc.raw}, nil, "")
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		req := httptest.NewRequest(http.MethodPost, "/", body)
		req.Header.Set("Content-Type", ct)
		c.Request = req
		got, present := formBool(c, "flag")
		if got != tc.want || present != tc.wantOK {
			t.Fatalf("formBool(%q) = (%v,%v), want (%v,%v)", tc.raw, got, present, tc.want, tc.wantOK)
		}
	}

	// Absent field
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	body, ct := multipartForm(t, map[string]string{"other": "x"}, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	c.Request = req
	if _, present := formBool(c, "flag"); present {
		t.Fatal("absent field reported present")
	}
}

// ---------- Register ----------

func TestRegister_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotPhotoCT string
	var gotPhotoLen int
	h := newTestHandlers(stubAuthSvc{
		register: func(_ context.Context, email, password, name string, photo []byte, ct string) (*session.Profile, string, error) {
			gotPhotoCT = ct
			gotPhotoLen = len(photo)
			return &session.Profile{ID: "u1", Email: email, Name: name}, "tok-123", nil
		},
	})
	r := gin.New()
	r.POST("/auth/register", h.Register)

	body, ct := multipartForm(t, map[string]string{
		"email":    "ana@example.com",
		"password": "secret1",
		"name":     "Ana",
	}, []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("register -> %d body=%s", w.Code, w.Body.String())
	}
	var out AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Token != "tok-123" || out.User == nil || out.User.Email != "ana@example.com" {
		t.Fatalf("unexpected response: %#v", out)
	}
	if gotPhotoCT != "image/jpeg" || gotPhotoLen != 3 {
		t.Fatalf("photo not forwarded: ct=%q len=%d", gotPhotoCT, gotPhotoLen)
	}
}

func TestRegister_ServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"weak password", services.ErrWeakPassword, 400, ErrCodeWeakPassword, "A senha deve ter pelo menos 6 caracteres"},
		{"invalid email", services.ErrInvalidEmail, 400, ErrCodeInvalidEmail, "Email inválido"},
		{"missing fields", services.ErrMissingFields, 400, ErrCodeBadRequest, "Todos os campos são obrigatórios"},
		{"email in use", services.ErrEmailInUse, 409, ErrCodeConflict, "Este email já está cadastrado"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(stubAuthSvc{
				register: func(context.Context, string, string, string, []byte, string) (*session.Profile, string, error) {
					return nil, "", tc.err
				},
			})
			r := gin.New()
			r.POST("/auth/register", h.Register)

			body, ct := multipartForm(t, map[string]string{"email": "a@b.c", "password": "x", "name": "A"}, nil, "")
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
			req.Header.Set("Content-Type", ct)
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			er := decodeError(t, w)
			if er.Code != tc.wantCode || er.Message != tc.wantMsg {
				t.Fatalf("body = %+v", er)
			}
		})
	}
}

func TestRegister_PhotoTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)

	called := false
	h := newTestHandlers(stubAuthSvc{
		register: func(context.Context, string, string, string, []byte, string) (*session.Profile, string, error) {
			called = true
			return nil, "", nil
		},
	})
	r := gin.New()
	r.POST("/auth/register", h.Register)

	big := make([]byte, maxPhotoBytes+1)
	body, ct := multipartForm(t, map[string]string{"email": "a@b.c", "password": "secret1", "name": "A"}, big, "image/jpeg")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized photo -> %d", w.Code)
	}
	if er := decodeError(t, w); er.Message != "Foto inválida" {
		t.Fatalf("body = %+v", er)
	}
	if called {
		t.Fatal("service reached despite oversized photo")
	}
}

// ---------- Login ----------

func TestLogin_BadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(stubAuthSvc{})
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{bad"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(stubAuthSvc{
		login: func(context.Context, string, string) (*session.Profile, string, error) {
			return nil, "", services.ErrInvalidCredentials
		},
	})
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.c","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad creds -> %d", w.Code)
	}
	if er := decodeError(t, w); er.Message != "Email ou senha incorretos" {
		t.Fatalf("body = %+v", er)
	}
}

func TestLogin_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(stubAuthSvc{
		login: func(_ context.Context, email, password string) (*session.Profile, string, error) {
			if email != "ana@example.com" || password != "secret1" {
				t.Fatalf("credentials not forwarded: %q %q", email, password)
			}
			return &session.Profile{ID: "u1", Email: email, Name: "Ana"}, "tok-9", nil
		},
	})
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"ana@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login -> %d body=%s", w.Code, w.Body.String())
	}
	var out AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Token != "tok-9" || out.User.Name != "Ana" {
		t.Fatalf("unexpected response: %#v", out)
	}
}

// ---------- Logout / Me ----------

func TestLogout_ForwardsUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotUID string
	h := newTestHandlers(stubAuthSvc{
		logout: func(_ context.Context, uid string) { gotUID = uid },
	})
	r := gin.New()
	r.POST("/auth/logout", asUser("u7"), h.Logout)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("logout -> %d", w.Code)
	}
	if gotUID != "u7" {
		t.Fatalf("logout uid = %q", gotUID)
	}
}

func TestMe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Profile resolves
	h := newTestHandlers(stubAuthSvc{
		currentUser: func(_ context.Context, uid, _ string) *session.Profile {
			if uid != "u1" {
				return nil
			}
			return &session.Profile{ID: "u1", Name: "Ana"}
		},
	})
	r := gin.New()
	r.GET("/me", asUser("u1"), h.Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("me -> %d body=%s", w.Code, w.Body.String())
	}
	var p session.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.ID != "u1" || p.Name != "Ana" {
		t.Fatalf("profile = %#v", p)
	}

	// No profile resolves to 401
	r2 := gin.New()
	r2.GET("/me", asUser("u-unknown"), h.Me)
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown me -> %d", w.Code)
	}
}

func TestMe_ForwardsTokenEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// The email carried by the bearer token reaches the auth-ready gate so a
	// cold-cache fallback profile still knows the caller's email.
	var gotEmail string
	h := newTestHandlers(stubAuthSvc{
		currentUser: func(_ context.Context, uid, email string) *session.Profile {
			gotEmail = email
			return &session.Profile{ID: uid, Email: email}
		},
	})
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Set("userEmail", "ana@x.com")
	}, h.Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("me -> %d body=%s", w.Code, w.Body.String())
	}
	if gotEmail != "ana@x.com" {
		t.Fatalf("token email not forwarded: %q", gotEmail)
	}
}

// ---------- UpdateMe ----------

func TestUpdateMe_PresenceSemantics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got services.ProfileUpdate
	h := newTestHandlers(stubAuthSvc{
		updateProfile: func(_ context.Context, uid string, upd services.ProfileUpdate) (*session.Profile, error) {
			if uid != "u1" {
				t.Fatalf("uid = %q", uid)
			}
			got = upd
			return &session.Profile{ID: uid}, nil
		},
	})
	r := gin.New()
	r.PUT("/me", asUser("u1"), h.UpdateMe)

	// name present, instagram explicitly empty, share_phone=false;
	// phone and share_instagram absent.
	body, ct := multipartForm(t, map[string]string{
		"name":        "  Ana Clara ",
		"instagram":   "",
		"share_phone": "false",
	}, nil, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("update -> %d body=%s", w.Code, w.Body.String())
	}
	if got.Name == nil || *got.Name != "Ana Clara" {
		t.Fatalf("Name = %v", got.Name)
	}
	if got.Instagram == nil || *got.Instagram != "" {
		t.Fatalf("explicitly empty instagram not captured: %v", got.Instagram)
	}
	if got.Phone != nil {
		t.Fatalf("absent phone captured: %v", got.Phone)
	}
	if got.SharePhone == nil || *got.SharePhone != false {
		t.Fatalf("SharePhone = %v", got.SharePhone)
	}
	if got.ShareInstagram != nil {
		t.Fatalf("absent ShareInstagram captured: %v", got.ShareInstagram)
	}
	if got.Photo != nil {
		t.Fatal("no photo was sent")
	}
}

func TestUpdateMe_NotAuthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(stubAuthSvc{
		updateProfile: func(context.Context, string, services.ProfileUpdate) (*session.Profile, error) {
			return nil, services.ErrNotAuthenticated
		},
	})
	r := gin.New()
	r.PUT("/me", h.UpdateMe) // no auth middleware

	body, ct := multipartForm(t, map[string]string{"name": "X"}, nil, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/me", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous update -> %d", w.Code)
	}
	if er := decodeError(t, w); er.Message != "Usuário não autenticado" {
		t.Fatalf("body = %+v", er)
	}
}

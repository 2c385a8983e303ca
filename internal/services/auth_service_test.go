package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dale-app/carnaval-backend/internal/domain"
	"github.com/dale-app/carnaval-backend/internal/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(&domain.Account{}, &domain.User{}, &domain.Ficada{}, &domain.Notification{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// memStore is an in-memory ObjectStore recording every call, with optional
// injected failures.
type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploads    []string
	deletes    []string
	failUpload bool
	failDelete bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, key)
	if m.failUpload {
		return "", errors.New("store down")
	}
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	if m.failDelete {
		return errors.New("store down")
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

func newAuthService(t *testing.T, db *gorm.DB, store *memStore) *AuthService {
	t.Helper()
	svc := &AuthService{
		DB:        db,
		Store:     store,
		JWTSecret: []byte("test-secret"),
		TokenTTL:  time.Hour,
	}
	svc.Sessions = session.NewManager(svc.LoadProfile, time.Second)
	return svc
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestRegister_WeakPassword_NoExternalCall(t *testing.T) {
	db := newTestDB(t)
	store := newMemStore()
	svc := newAuthService(t, db, store)

	_, _, err := svc.Register(context.Background(), "a@x.com", "12345", "Ana", []byte{1}, "image/jpeg")
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if store.uploadCount() != 0 {
		t.Fatalf("store touched on validation failure")
	}
	var n int64
	db.Model(&domain.Account{}).Count(&n)
	if n != 0 {
		t.Fatalf("account created despite validation failure")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())

	for _, tc := range [][3]string{
		{"", "secret1", "Ana"},
		{"a@x.com", "", "Ana"},
		{"a@x.com", "secret1", ""},
	} {
		if _, _, err := svc.Register(context.Background(), tc[0], tc[1], tc[2], nil, ""); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("Register(%q,%q,%q) expected ErrMissingFields, got %v", tc[0], tc[1], tc[2], err)
		}
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	if _, _, err := svc.Register(context.Background(), "not-an-email", "secret1", "Ana", nil, ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRegister_Success_PrimesCache(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())

	p, token, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a bearer token")
	}
	if p.Name != "Ana" || p.PhotoURL != nil {
		t.Fatalf("unexpected profile: %+v", p)
	}

	cached, ok := svc.Sessions.Current(p.ID)
	if !ok || cached.Name != "Ana" || cached.PhotoURL != nil {
		t.Fatalf("session cache not primed: %+v, %v", cached, ok)
	}
}

func TestRegister_PhotoUploadFailure_DoesNotAbort(t *testing.T) {
	store := newMemStore()
	store.failUpload = true
	svc := newAuthService(t, newTestDB(t), store)

	p, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", []byte{1, 2}, "image/jpeg")
	if err != nil {
		t.Fatalf("Register should survive upload failure: %v", err)
	}
	if p.PhotoURL != nil {
		t.Fatalf("photo reference set despite failed upload")
	}
	if store.uploadCount() != 1 {
		t.Fatalf("upload not attempted")
	}
}

func TestRegister_PhotoStoredUnderProfileKey(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(t, newTestDB(t), store)

	p, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", []byte{1, 2}, "image/jpeg")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	wantKey := "users/" + p.ID + "/profile.jpg"
	if p.PhotoURL == nil || *p.PhotoURL != "https://cdn.test/"+wantKey {
		t.Fatalf("unexpected photo reference: %v", p.PhotoURL)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())

	if _, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, ""); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "A@X.com", "secret2", "Bia", nil, ""); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	if _, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail_SameError(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	if _, _, err := svc.Login(context.Background(), "nobody@x.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_EmptyInputs(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	if _, _, err := svc.Login(context.Background(), "", "x"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "a@x.com", ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestLogin_ProfileMissing(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, newMemStore())

	if _, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Identity stays, profile document vanishes.
	if err := db.Unscoped().Where("email = ?", "a@x.com").Delete(&domain.User{}).Error; err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "a@x.com", "secret1"); !errors.Is(err, ErrProfileMissing) {
		t.Fatalf("expected ErrProfileMissing, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	p, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc.Sessions.Clear(p.ID)

	got, token, err := svc.Login(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != p.ID || token == "" {
		t.Fatalf("unexpected login result: %+v", got)
	}
	if _, ok := svc.Sessions.Current(p.ID); !ok {
		t.Fatalf("session cache not primed on login")
	}
}

func TestUpdateProfile_PartialFieldsUntouched(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	p, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Establish falsy-but-meaningful prior values: empty instagram, false flag.
	_, err = svc.UpdateProfile(context.Background(), p.ID, ProfileUpdate{
		Instagram:      strPtr(""),
		Phone:          strPtr("5511999"),
		ShareInstagram: boolPtr(false),
		SharePhone:     boolPtr(false),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	// Update only the name: everything else must keep its prior value.
	got, err := svc.UpdateProfile(context.Background(), p.ID, ProfileUpdate{Name: strPtr("Ana Clara")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "Ana Clara" {
		t.Fatalf("name not updated: %+v", got)
	}
	if got.Instagram != "" || got.Phone != "5511999" {
		t.Fatalf("contact fields disturbed: %+v", got)
	}
	if got.ShareInstagram == nil || *got.ShareInstagram != false {
		t.Fatalf("ShareInstagram disturbed: %+v", got.ShareInstagram)
	}
	if got.SharePhone == nil || *got.SharePhone != false {
		t.Fatalf("SharePhone disturbed: %+v", got.SharePhone)
	}
}

func TestUpdateProfile_ExplicitFalseAndEmptyOverwrite(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	p, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = svc.UpdateProfile(context.Background(), p.ID, ProfileUpdate{
		Instagram:      strPtr("@ana"),
		ShareInstagram: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := svc.UpdateProfile(context.Background(), p.ID, ProfileUpdate{
		Instagram:      strPtr(""),
		ShareInstagram: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Instagram != "" {
		t.Fatalf("explicit empty string did not overwrite: %q", got.Instagram)
	}
	if got.ShareInstagram == nil || *got.ShareInstagram {
		t.Fatalf("explicit false did not overwrite: %v", got.ShareInstagram)
	}
}

func TestUpdateProfile_NotAuthenticated(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	if _, err := svc.UpdateProfile(context.Background(), "", ProfileUpdate{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestLogout_ClearsCache(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())
	p, _, err := svc.Register(context.Background(), "a@x.com", "secret1", "Ana", nil, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	svc.Logout(context.Background(), p.ID)
	if _, ok := svc.Sessions.Current(p.ID); ok {
		t.Fatalf("cache not cleared on logout")
	}
}

func TestToken_RoundTrip(t *testing.T) {
	svc := newAuthService(t, newTestDB(t), newMemStore())

	token, err := svc.SignToken("u1", "ana@x.com")
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	claims, err := ParseToken(token, svc.JWTSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("claims.UserID = %q", claims.UserID)
	}
	if claims.Email != "ana@x.com" {
		t.Fatalf("claims.Email = %q", claims.Email)
	}

	if _, err := ParseToken(token, []byte("other-secret")); err == nil {
		t.Fatalf("expected failure with wrong secret")
	}
}

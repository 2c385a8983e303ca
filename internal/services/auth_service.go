// Package services – AuthService
//
// This file implements the AuthService, which manages the account lifecycle:
// registration, login, logout, and partial profile updates. It validates
// inputs before touching any store, hashes credentials with bcrypt, issues
// HS256 bearer tokens, and keeps the session manager's current-user cache in
// step with every auth event.
//
// Service-level errors (e.g. ErrWeakPassword, ErrInvalidCredentials,
// ErrProfileMissing) are returned for predictable cases so handlers can map
// them to HTTP results and localized messages consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/domain"
	"github.com/dale-app/carnaval-backend/internal/repo"
	"github.com/dale-app/carnaval-backend/internal/session"
	"github.com/dale-app/carnaval-backend/internal/storage"
)

// minPasswordLen is the minimum accepted password length, enforced before
// any store is touched.
const minPasswordLen = 6

// emailRE is a permissive shape check; the mail provider is the real
// authority on deliverability.
var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Claims is the JWT payload carried by bearer tokens. The email travels in
// the token so a cold-cache fallback profile still knows who it is for.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService implements registration, login, and profile management on top
// of the account and profile repositories, the object store, and the session
// manager.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store holds profile photos. Uploads during registration are
	// best-effort and never abort account creation.
	Store storage.ObjectStore
	// Sessions is the current-user cache, primed on every auth event.
	Sessions *session.Manager
	// JWTSecret signs bearer tokens (HS256).
	JWTSecret []byte
	// TokenTTL bounds token validity.
	TokenTTL time.Duration
}

// ProfileUpdate is a partial profile mutation. Nil fields are left untouched;
// non-nil fields overwrite the prior value, including explicitly provided
// empty strings and false booleans. A nil Photo means "keep the current
// photo".
type ProfileUpdate struct {
	Name           *string
	Instagram      *string
	Phone          *string
	ShareInstagram *bool
	SharePhone     *bool

	Photo            []byte
	PhotoContentType string
}

// Register creates an identity account and its profile document.
//
// Validation happens before any store access: empty email, password, or name
// fail with ErrMissingFields, short passwords with ErrWeakPassword, and
// malformed emails with ErrInvalidEmail.
//
// Photo upload is deliberately best-effort: a storage failure is logged and
// the account is created without a photo. On success the session cache is
// primed and a bearer token is issued.
func (s *AuthService) Register(ctx context.Context, email, password, name string, photo []byte, photoContentType string) (*session.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || password == "" || name == "" {
		return nil, "", ErrMissingFields
	}
	if len([]rune(password)) < minPasswordLen {
		return nil, "", ErrWeakPassword
	}
	if !emailRE.MatchString(email) {
		return nil, "", ErrInvalidEmail
	}

	taken, err := repo.EmailTaken(ctx, s.DB, email)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	id := uuid.NewString()

	var photoURL *string
	if len(photo) > 0 {
		url, upErr := s.Store.Upload(ctx, storage.ProfilePhotoKey(id), photo, photoContentType)
		if upErr != nil {
			// Continue without the photo so the account is still created.
			log.Warn().Err(upErr).Str("user_id", id).Msg("profile photo upload failed during registration")
		} else {
			photoURL = &url
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateAccount(ctx, tx, &domain.Account{
			ID:           id,
			Email:        email,
			PasswordHash: string(hash),
		}); err != nil {
			return err
		}
		return repo.CreateUser(ctx, tx, &domain.User{
			ID:       id,
			Email:    email,
			Name:     name,
			PhotoURL: photoURL,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
			return nil, "", ErrEmailInUse
		}
		return nil, "", err
	}

	p := &session.Profile{ID: id, Email: email, Name: name, PhotoURL: photoURL}
	s.Sessions.Set(p)

	token, err := s.SignToken(id, email)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// Login validates the credential and requires the profile document to exist:
// an identity account without a profile row fails with ErrProfileMissing
// even though the password matched. Wrong email and wrong password are
// indistinguishable (ErrInvalidCredentials).
func (s *AuthService) Login(ctx context.Context, email, password string) (*session.Profile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", ErrMissingFields
	}

	acct, err := repo.GetAccountByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	u, err := repo.GetUser(ctx, s.DB, acct.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrProfileMissing
		}
		return nil, "", err
	}

	p := profileFromUser(u)
	s.Sessions.Set(p)

	token, err := s.SignToken(acct.ID, acct.Email)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// Logout tears down the cached session. Bearer tokens are stateless and
// simply age out.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.Sessions.Clear(userID)
}

// CurrentUser returns the merged profile for an authenticated caller,
// waiting on the auth-ready gate when the cache is cold.
func (s *AuthService) CurrentUser(ctx context.Context, userID, email string) *session.Profile {
	return s.Sessions.WaitForAuth(ctx, userID, email)
}

// UpdateProfile applies a partial profile mutation. Nil fields stay
// untouched (including prior empty-string and false values) and non-nil
// fields overwrite. A new photo replaces the stored object under the user's
// fixed profile key; unlike registration, an upload failure here fails the
// whole update.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*session.Profile, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
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
	if upd.ShareInstagram != nil {
		fields["share_instagram"] = *upd.ShareInstagram
	}
	if upd.SharePhone != nil {
		fields["share_phone"] = *upd.SharePhone
	}

	if len(upd.Photo) > 0 {
		url, err := s.Store.Upload(ctx, storage.ProfilePhotoKey(userID), upd.Photo, upd.PhotoContentType)
		if err != nil {
			return nil, err
		}
		fields["photo_url"] = url
	}

	if err := repo.UpdateUserFields(ctx, s.DB, userID, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileMissing
		}
		return nil, err
	}

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	p := profileFromUser(u)
	s.Sessions.Set(p)
	return p, nil
}

// LoadProfile is the session.Loader backing the auth-ready gate.
func (s *AuthService) LoadProfile(ctx context.Context, userID string) (*session.Profile, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return profileFromUser(u), nil
}

// SignToken issues an HS256 bearer token for userID.
func (s *AuthService) SignToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// ParseToken validates a bearer token and returns its claims.
func ParseToken(tokenStr string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := token.Claims.(*Claims); ok && token.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// profileFromUser builds the merged session profile for a profile row.
func profileFromUser(u *domain.User) *session.Profile {
	return &session.Profile{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		PhotoURL:       u.PhotoURL,
		Instagram:      u.Instagram,
		Phone:          u.Phone,
		ShareInstagram: u.ShareInstagram,
		SharePhone:     u.SharePhone,
	}
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

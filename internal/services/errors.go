// Package services defines the business logic for auth, ficadas, and
// notifications. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into the user-facing localized messages and HTTP status codes
// is performed at the handler layer.
package services

import "errors"

// Auth-related errors.
var (
	// ErrMissingFields is returned when a required registration or login
	// field is empty. No external call is attempted in this case.
	ErrMissingFields = errors.New("required fields missing")

	// ErrWeakPassword is returned when a registration password is shorter
	// than six characters. No external call is attempted in this case.
	ErrWeakPassword = errors.New("password too short")

	// ErrInvalidEmail is returned when the email does not look like an
	// email address.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrEmailInUse is returned when registering with an email that already
	// has an identity account.
	ErrEmailInUse = errors.New("email already registered")

	// ErrInvalidCredentials covers wrong email or wrong password on login.
	// The two causes are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrProfileMissing is returned when the identity credential validates
	// but no profile document exists for the account.
	ErrProfileMissing = errors.New("user profile not found")

	// ErrNotAuthenticated is returned when an operation requires an active
	// session and none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Ficada-related errors.
var (
	// ErrNameRequired is returned when creating a ficada without a name.
	ErrNameRequired = errors.New("name is required")

	// ErrFicadaNotFound covers both a missing record and an ownership
	// mismatch, so callers cannot distinguish absence from someone else's
	// record.
	ErrFicadaNotFound = errors.New("ficada not found")
)

// Notification- and connect-related errors.
var (
	// ErrUserNotFound is returned when resolving a connect link against an
	// unknown user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrBadNotificationType is returned when a notification carries an
	// unknown type tag.
	ErrBadNotificationType = errors.New("unknown notification type")

	// ErrNotificationNotFound is returned when marking an unknown
	// notification as read.
	ErrNotificationNotFound = errors.New("notification not found")
)

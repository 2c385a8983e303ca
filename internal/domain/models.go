// Package domain defines the persistence models for users, ficadas, and
// notifications. These types are mapped with GORM and form the core data
// layer of the contact-exchange application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType tags the kind of a notification. Modeled as a typed
// constant set rather than free text so new variants cannot be introduced
// by typo.
type NotificationType string

// TypeReciprocate is sent to a user when someone records a ficada targeting
// them, inviting them to connect back. Currently the only variant.
const TypeReciprocate NotificationType = "reciprocate"

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	return t == TypeReciprocate
}

// Account is the identity record: the credential side of a user, kept
// separate from the profile so an identity can exist while its profile
// document is missing or deleted. Login requires both to exist.
type Account struct {
	ID           string         `json:"id"    gorm:"type:char(36);primaryKey"`
	Email        string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:ux_accounts_email"`
	PasswordHash string         `json:"-"     gorm:"type:varchar(128);not null"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-"     gorm:"index"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// User is the profile document for an account, keyed by the same ID. The
// session layer merges it with identity fields into the cached current-user
// view.
//
// Share semantics are asymmetric on purpose: Instagram is disclosed on a
// connect unless ShareInstagram is explicitly false, while the phone number
// is disclosed only when SharePhone is explicitly true. Both are nullable so
// "never set" stays distinguishable from an explicit choice.
type User struct {
	ID             string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Email          string         `json:"email"          gorm:"type:varchar(255);not null"`
	Name           string         `json:"name"           gorm:"type:varchar(255);not null"`
	PhotoURL       *string        `json:"photoURL"       gorm:"type:varchar(512)"`
	Instagram      string         `json:"instagram"      gorm:"type:varchar(64)"`
	Phone          string         `json:"phone"          gorm:"type:varchar(32)"`
	ShareInstagram *bool          `json:"shareInstagram"`
	SharePhone     *bool          `json:"sharePhone"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// DisclosesInstagram applies the share default: shown unless explicitly hidden.
func (u *User) DisclosesInstagram() bool {
	return u.ShareInstagram == nil || *u.ShareInstagram
}

// DisclosesPhone applies the share default: hidden unless explicitly shown.
func (u *User) DisclosesPhone() bool {
	return u.SharePhone != nil && *u.SharePhone
}

// Ficada is a recorded connection a user keeps about a person met at an
// event. Only the owning user may read-for-mutation, update, or delete it.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owner; indexed for the newest-first listing query.
//   - TargetUserID: optional counterparty, set when the ficada was created
//     via a connect link; its presence triggers a reciprocate notification.
//   - Comment: free-text private note, never shown to the counterparty.
//   - PhotoURL: optional stored photo reference.
type Ficada struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"userId"       gorm:"type:char(36);not null;index:idx_user_ficadas"`
	TargetUserID *string        `json:"targetUserId" gorm:"type:char(36)"`
	Name         string         `json:"name"         gorm:"type:varchar(255);not null"`
	Instagram    string         `json:"instagram"    gorm:"type:varchar(64)"`
	Phone        string         `json:"phone"        gorm:"type:varchar(32)"`
	Comment      string         `json:"comment"      gorm:"type:text"`
	PhotoURL     *string        `json:"photoURL"     gorm:"type:varchar(512)"`
	CreatedAt    time.Time      `json:"createdAt"    gorm:"index:idx_user_ficadas,priority:2"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Ficada.
func (Ficada) TableName() string { return "ficadas" }

// Notification alerts a user that someone recorded a connection targeting
// them. Rows are only ever mutated to flip Read to true; the application
// never deletes them.
type Notification struct {
	ID           string           `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID       string           `json:"userId"       gorm:"type:char(36);not null;index:idx_user_notifications"`
	FromUserID   string           `json:"fromUserId"   gorm:"type:char(36);not null"`
	FromUserName string           `json:"fromUserName" gorm:"type:varchar(255)"`
	Type         NotificationType `json:"type"         gorm:"type:varchar(32);not null"`
	Title        string           `json:"title"        gorm:"type:varchar(255)"`
	Message      string           `json:"message"      gorm:"type:text"`
	Link         string           `json:"link"         gorm:"type:varchar(512)"`
	Read         bool             `json:"read"         gorm:"not null;default:false"`
	CreatedAt    time.Time        `json:"createdAt"    gorm:"index:idx_user_notifications,priority:2"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// Package services – ConnectService
//
// This file implements the ConnectService, which resolves a connect link's
// target user into the public "card" shown before connecting back. The card
// applies the asymmetric disclosure defaults: Instagram is shown unless the
// target explicitly opted out, while the phone number is shown only when the
// target explicitly opted in.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dale-app/carnaval-backend/internal/repo"
)

// ConnectService resolves connect-link targets.
type ConnectService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// PublicCard is the disclosed view of a connect-link target. Contact fields
// are empty when the target does not share them.
type PublicCard struct {
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	PhotoURL  *string `json:"photoURL"`
	Instagram string  `json:"instagram"`
	Phone     string  `json:"phone"`
}

// Card returns the public card for targetUserID, or ErrUserNotFound.
func (s *ConnectService) Card(ctx context.Context, targetUserID string) (*PublicCard, error) {
	if targetUserID == "" {
		return nil, ErrUserNotFound
	}
	u, err := repo.GetUser(ctx, s.DB, targetUserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	card := &PublicCard{
		UserID:   u.ID,
		Name:     u.Name,
		PhotoURL: u.PhotoURL,
	}
	if card.Name == "" {
		card.Name = "Pessoa"
	}
	if u.DisclosesInstagram() {
		card.Instagram = u.Instagram
	}
	if u.DisclosesPhone() {
		card.Phone = u.Phone
	}
	return card, nil
}

package handlers

import (
	"github.com/dale-app/carnaval-backend/internal/routes"
)

// Handlers groups the HTTP endpoints for auth, ficadas, notifications, the
// connect card, and route resolution. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc    AuthService
	ficadaSvc  FicadaService
	notifSvc   NotificationService
	connectSvc ConnectService

	resolver *routes.Resolver

	// publicBaseURL is the origin minted into connect links, e.g.
	// "https://dale.app".
	publicBaseURL string
}

// New constructs a Handlers instance bound to the given services.
func New(auth AuthService, ficadas FicadaService, notifs NotificationService, connect ConnectService, resolver *routes.Resolver, publicBaseURL string) *Handlers {
	return &Handlers{
		authSvc:       auth,
		ficadaSvc:     ficadas,
		notifSvc:      notifs,
		connectSvc:    connect,
		resolver:      resolver,
		publicBaseURL: publicBaseURL,
	}
}

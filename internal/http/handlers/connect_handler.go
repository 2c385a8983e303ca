// Connect-link HTTP handlers.
//
// This file exposes the public connect card, the caller's shareable connect
// link, and the route/QR resolution endpoint backing client-side navigation:
//   - GET /connect/:userId       (public card, disclosure defaults applied)
//   - GET /me/connect-link       (mint the caller's QR/link URL)
//   - GET /routes/resolve        (resolve a path or QR payload + auth gate)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dale-app/carnaval-backend/internal/http/middleware"
	"github.com/dale-app/carnaval-backend/internal/routes"
	"github.com/dale-app/carnaval-backend/internal/services"
)

// ConnectService resolves connect-link targets into public cards.
type ConnectService interface {
	Card(ctx context.Context, targetUserID string) (*services.PublicCard, error)
}

// ConnectCard returns the disclosed view of the link target. Public: scanning
// a QR code must work before the scanner logs in.
func (h *Handlers) ConnectCard(c *gin.Context) {
	card, err := h.connectSvc.Card(c.Request.Context(), c.Param("userId"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, card)
}

// ConnectLinkResponse carries the caller's shareable connect URL.
type ConnectLinkResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// MyConnectLink mints the caller's connect URL, optionally carrying the
// client's cache-busting temp marker.
func (h *Handlers) MyConnectLink(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Usuário não autenticado")
		return
	}

	path := "/connect/" + uid
	if temp := strings.TrimSpace(c.Query("temp")); temp != "" {
		path += "?temp=" + url.QueryEscape(temp)
	}
	ok(c, http.StatusOK, ConnectLinkResponse{
		URL:  h.publicBaseURL + path,
		Path: path,
	})
}

// ResolveRouteResponse couples the matched route with the auth-gate decision.
type ResolveRouteResponse struct {
	Route    *routes.Route   `json:"route"`
	Decision routes.Decision `json:"decision"`
}

// ResolveRoute resolves `payload` (an in-app path, a connect URL, or a legacy
// QR payload) into a route and gates it against the caller's session state.
// Authentication is taken from the optional bearer token: a valid token means
// the gate sees an authenticated caller. Paths no matcher recognizes resolve
// to a null route with a login-redirect decision.
func (h *Handlers) ResolveRoute(c *gin.Context) {
	payload := c.Query("payload")
	if strings.TrimSpace(payload) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "payload obrigatório")
		return
	}

	// QR payloads (connect URLs, legacy scheme) normalize to an in-app
	// path; anything already path-shaped is resolved directly.
	path := payload
	if !strings.HasPrefix(payload, "/") {
		normalized, err := routes.ParseQRPayload(payload)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "QR code inválido")
			return
		}
		path = normalized
	}

	route, err := h.resolver.Resolve(path)
	if err != nil {
		if errors.Is(err, routes.ErrNoRoute) {
			// Unregistered paths fall back to a login redirect instead of
			// failing hard, so a stale link never strands the client.
			middleware.LoggerFrom(c).Error().Str("path", path).Msg("unknown route, falling back to login")
			ok(c, http.StatusOK, ResolveRouteResponse{Decision: h.resolver.Fallback()})
			return
		}
		failService(c, err)
		return
	}

	authenticated := userID(c) != ""
	ok(c, http.StatusOK, ResolveRouteResponse{
		Route:    route,
		Decision: h.resolver.Gate(route, authenticated),
	})
}

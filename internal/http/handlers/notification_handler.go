// Notification HTTP handlers.
//
// This file exposes the live notification feed and the read-flag endpoint:
//   - GET  /notifications/ws       (WebSocket; pushes the full snapshot on
//     every change, newest first, capped)
//   - POST /notifications/:id/read
//
// The WebSocket connection is one-directional: the server pushes snapshots,
// the client only needs to hold the connection open. Closing the socket
// cancels the subscription.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dale-app/carnaval-backend/internal/http/middleware"
	"github.com/dale-app/carnaval-backend/internal/notify"
)

// NotificationService defines the notification operations consumed by HTTP
// handlers.
type NotificationService interface {
	Subscribe(ctx context.Context, userID string) (*notify.Subscription, error)
	MarkAsRead(ctx context.Context, userID, id string) error
}

const (
	// wsWriteTimeout bounds a single snapshot write.
	wsWriteTimeout = 10 * time.Second
	// wsPingInterval keeps intermediaries from reaping idle connections.
	wsPingInterval = 30 * time.Second
)

// wsUpgrader upgrades subscription requests. Origin enforcement happens in
// the CORS layer; the bearer token already gates this endpoint.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// SubscribeNotifications upgrades to a WebSocket and streams the caller's
// notification snapshots until the client disconnects.
func (h *Handlers) SubscribeNotifications(c *gin.Context) {
	uid := userID(c)

	sub, err := h.notifSvc.Subscribe(c.Request.Context(), uid)
	if err != nil {
		failService(c, err)
		return
	}
	defer sub.Cancel()

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Read pump: the client sends nothing meaningful, but reading is what
	// surfaces close frames and dead peers.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lg := middleware.LoggerFrom(c)
	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case snap, open := <-sub.C:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				lg.Debug().Err(err).Msg("notification push failed, closing")
				return
			}
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// MarkNotificationRead flips the read flag on one of the caller's
// notifications; records targeted at other users read as missing.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.notifSvc.MarkAsRead(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

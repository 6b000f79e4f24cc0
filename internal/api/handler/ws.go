package handler

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/logging"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin accepts non-browser clients (no Origin header), same-host
// pages and the configured allow-list. "*" allows every origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// ServeEvents upgrades GET /ws/events to a websocket that streams events
// to the admin console. Browsers cannot set headers on the upgrade, so the
// staff token may also come as ?token=.
func (h *Handler) ServeEvents(c *gin.Context) {
	caller := capabilityOf(c)
	if caller.Staff == nil {
		if raw := c.Query("token"); raw != "" {
			claims, err := h.Tokens.Parse(raw, auth.KindStaff)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
				return
			}
			caller.Staff = claims
		}
	}
	if h.StaffAuthRequired && !caller.IsStaff() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := eventhub.NewWebSocketClient(h.Hub, conn, uuid.NewString(), caller.Actor())
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}
	client.Run()
}

package handler

import (
	"complaintdesk/backend/internal/auth"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// OwnerTokenHeader carries the token issued when a record was created.
	OwnerTokenHeader = "X-Owner-Token"
	capabilityKey    = "capability"
)

// Capabilities reads the staff bearer token and the owner token. Absent
// tokens are fine; a token that does not verify is rejected with 401.
func (h *Handler) Capabilities() gin.HandlerFunc {
	return func(c *gin.Context) {
		var caller auth.Capability

		if raw := bearerToken(c.GetHeader("Authorization")); raw != "" {
			claims, err := h.Tokens.Parse(raw, auth.KindStaff)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
				return
			}
			caller.Staff = claims
		}

		if raw := strings.TrimSpace(c.GetHeader(OwnerTokenHeader)); raw != "" {
			claims, err := h.Tokens.Parse(raw, auth.KindOwner)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid owner token"})
				return
			}
			caller.Owner = claims
		}

		c.Set(capabilityKey, caller)
		c.Next()
	}
}

func capabilityOf(c *gin.Context) auth.Capability {
	if v, ok := c.Get(capabilityKey); ok {
		if caller, ok := v.(auth.Capability); ok {
			return caller
		}
	}
	return auth.Capability{}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// limitSubmissions applies the rate limiter when one is configured.
func (h *Handler) limitSubmissions() gin.HandlerFunc {
	if h.Limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.Limiter.Middleware()
}

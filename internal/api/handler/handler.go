// Package handler exposes the services over HTTP/JSON with gin.
package handler

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/feedback"
	"complaintdesk/backend/internal/storage"
)

// Handler holds the services the routes call into.
type Handler struct {
	Complaints *complaint.Service
	Feedback   *feedback.Service
	Analytics  *analysis.Service
	Accounts   *auth.Service
	Tokens     *auth.Issuer
	Hub        *eventhub.Hub
	Storage    storage.Storage

	// Limiter throttles public submissions; nil disables it.
	Limiter *RateLimiter
	// AllowedOrigins limits which browser origins may open the event stream.
	AllowedOrigins []string
	// StaffAuthRequired gates the live event stream behind a staff token.
	StaffAuthRequired bool
}

func NewHandler(
	complaints *complaint.Service,
	fb *feedback.Service,
	analytics *analysis.Service,
	accounts *auth.Service,
	tokens *auth.Issuer,
	hub *eventhub.Hub,
	store storage.Storage,
) *Handler {
	return &Handler{
		Complaints: complaints,
		Feedback:   fb,
		Analytics:  analytics,
		Accounts:   accounts,
		Tokens:     tokens,
		Hub:        hub,
		Storage:    store,
	}
}

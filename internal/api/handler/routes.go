package handler

import (
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/metrics"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the gin engine with every route and wraps it in CORS.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	useJSONFieldNames()
	h.AllowedOrigins = allowedOrigins

	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(), metrics.Middleware())
	h.RegisterRoutes(r)

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", OwnerTokenHeader, logging.RequestIDHeader},
		ExposedHeaders:   []string{OwnerTokenHeader, logging.RequestIDHeader},
		AllowCredentials: false,
	}).Handler(r)
}

// RegisterRoutes mounts the HTTP surface on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/metrics", metrics.Handler())

	caps := h.Capabilities()

	api := r.Group("/api", caps)
	{
		api.POST("/auth/login", h.limitSubmissions(), h.Login)
		api.GET("/analytics", h.GetAnalytics)

		complaints := api.Group("/complaints")
		complaints.POST("", h.limitSubmissions(), h.CreateComplaint)
		complaints.GET("", h.ListComplaints)
		complaints.GET("/ref/:referenceId", h.GetComplaintByReference)
		complaints.GET("/:id", h.GetComplaint)
		complaints.PUT("/:id/status", h.UpdateComplaintStatus)
		complaints.POST("/:id/respond", h.RespondToComplaint)
		complaints.PUT("/:id", h.UpdateComplaint)
		complaints.DELETE("/:id", h.DeleteComplaint)
		complaints.DELETE("/:id/admin", h.AdminDeleteComplaint)

		invites := api.Group("/feedback")
		invites.POST("/session/:sessionId/invite", h.SendInvite)
		invites.POST("/submit", h.limitSubmissions(), h.SubmitInvitedFeedback)
	}

	fb := r.Group("/feedback", caps)
	{
		fb.GET("", h.ListFeedback)
		fb.POST("", h.limitSubmissions(), h.CreateFeedback)
		fb.GET("/:id", h.GetFeedback)
		fb.PUT("/:id", h.UpdateFeedback)
		fb.DELETE("/:id", h.DeleteFeedback)
		fb.POST("/:id/reply", h.AddReply)
		fb.PUT("/:id/reply/:replyId", h.EditReply)
		fb.DELETE("/:id/reply/:replyId", h.DeleteReply)
	}

	r.GET("/ws/events", caps, h.ServeEvents)
}

package handler

import (
	"complaintdesk/backend/internal/feedback"
	"complaintdesk/backend/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type createFeedbackRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message" binding:"required"`
	Rating   *int   `json:"rating" binding:"omitempty,min=1,max=5"`
	Category string `json:"category"`
}

type updateFeedbackRequest struct {
	Message        *string `json:"message"`
	Rating         *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	RequesterEmail string  `json:"requesterEmail"`
}

type requesterRequest struct {
	RequesterEmail string `json:"requesterEmail"`
}

type replyRequest struct {
	Sender      string `json:"sender" binding:"required"`
	Message     string `json:"message" binding:"required"`
	Email       string `json:"email"`
	SenderEmail string `json:"senderEmail"`
}

type editReplyRequest struct {
	Message        string `json:"message" binding:"required"`
	RequesterEmail string `json:"requesterEmail"`
}

type inviteRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type submitInvitedRequest struct {
	Token   string `json:"token" binding:"required"`
	Message string `json:"message" binding:"required"`
	Rating  *int   `json:"rating" binding:"omitempty,min=1,max=5"`
}

type createdFeedback struct {
	*models.Feedback
	OwnerToken string `json:"ownerToken"`
}

func (h *Handler) ListFeedback(c *gin.Context) {
	list, err := h.Feedback.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetFeedback(c *gin.Context) {
	f, err := h.Feedback.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) CreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	f, token, err := h.Feedback.Create(c.Request.Context(), feedback.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Message:  req.Message,
		Rating:   req.Rating,
		Category: req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header(OwnerTokenHeader, token)
	c.JSON(http.StatusCreated, createdFeedback{Feedback: f, OwnerToken: token})
}

func (h *Handler) UpdateFeedback(c *gin.Context) {
	var req updateFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.Feedback.Update(c.Request.Context(), capabilityOf(c), c.Param("id"), req.RequesterEmail, feedback.UpdateInput{
		Message: req.Message,
		Rating:  req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFeedback(c *gin.Context) {
	var req requesterRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.Feedback.Delete(c.Request.Context(), capabilityOf(c), c.Param("id"), req.RequesterEmail); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddReply handles POST /feedback/:id/reply and returns the whole thread.
func (h *Handler) AddReply(c *gin.Context) {
	var req replyRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.Feedback.AddReply(c.Request.Context(), capabilityOf(c), c.Param("id"), feedback.ReplyInput{
		Sender:      req.Sender,
		Message:     req.Message,
		Email:       req.Email,
		SenderEmail: req.SenderEmail,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) EditReply(c *gin.Context) {
	var req editReplyRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.Feedback.EditReply(c.Request.Context(), capabilityOf(c), c.Param("id"), c.Param("replyId"), req.RequesterEmail, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteReply(c *gin.Context) {
	var req requesterRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	f, err := h.Feedback.DeleteReply(c.Request.Context(), capabilityOf(c), c.Param("id"), c.Param("replyId"), req.RequesterEmail)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// SendInvite handles POST /api/feedback/session/:sessionId/invite.
func (h *Handler) SendInvite(c *gin.Context) {
	var req inviteRequest
	if !bindJSON(c, &req) {
		return
	}

	sessionID := c.Param("sessionId")
	token, err := h.Feedback.Invite(c.Request.Context(), capabilityOf(c), sessionID, feedback.InviteInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Invite created for session " + sessionID,
		"token":   token,
	})
}

// SubmitInvitedFeedback handles POST /api/feedback/submit.
func (h *Handler) SubmitInvitedFeedback(c *gin.Context) {
	var req submitInvitedRequest
	if !bindJSON(c, &req) {
		return
	}

	f, err := h.Feedback.SubmitInvited(c.Request.Context(), req.Token, req.Message, req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Feedback submitted successfully",
		"feedback": f,
	})
}

package handler

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"net/http"

	"github.com/gin-gonic/gin"
)

type createComplaintRequest struct {
	Name        string `json:"name" binding:"max=200"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone" binding:"max=50"`
	Category    string `json:"category"`
	Description string `json:"description" binding:"required"`
	Branch      string `json:"branch"`
}

type statusRequest struct {
	Status        string `json:"status" binding:"required"`
	ResponseNotes string `json:"responseNotes"`
}

type respondRequest struct {
	Response string `json:"response"`
}

type ownerUpdateRequest struct {
	Email       string `json:"email"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type ownerDeleteRequest struct {
	Email string `json:"email"`
}

// createdComplaint is the stored record plus the owner token for it.
type createdComplaint struct {
	*models.Complaint
	OwnerToken string `json:"ownerToken"`
}

// CreateComplaint handles POST /api/complaints.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, token, err := h.Complaints.Create(c.Request.Context(), complaint.CreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Category:    req.Category,
		Description: req.Description,
		Branch:      req.Branch,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header(OwnerTokenHeader, token)
	c.JSON(http.StatusCreated, createdComplaint{Complaint: rec, OwnerToken: token})
}

// ListComplaints handles GET /api/complaints with optional ?email= and ?status=.
func (h *Handler) ListComplaints(c *gin.Context) {
	list, err := h.Complaints.List(c.Request.Context(), storage.ComplaintFilter{
		Email:  c.Query("email"),
		Status: models.Status(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	rec, err := h.Complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetComplaintByReference(c *gin.Context) {
	rec, err := h.Complaints.GetByReference(c.Request.Context(), c.Param("referenceId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateComplaintStatus handles the staff PUT /api/complaints/:id/status.
func (h *Handler) UpdateComplaintStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.Complaints.UpdateStatus(c.Request.Context(), capabilityOf(c), c.Param("id"), models.Status(req.Status), req.ResponseNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) RespondToComplaint(c *gin.Context) {
	var req respondRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.Complaints.Respond(c.Request.Context(), capabilityOf(c), c.Param("id"), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateComplaint handles the owner PUT /api/complaints/:id.
func (h *Handler) UpdateComplaint(c *gin.Context) {
	var req ownerUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.Complaints.UpdateByOwner(c.Request.Context(), capabilityOf(c), c.Param("id"), req.Email, complaint.OwnerUpdate{
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteComplaint handles the owner DELETE /api/complaints/:id. The email may
// come in the body or as ?email=.
func (h *Handler) DeleteComplaint(c *gin.Context) {
	var req ownerDeleteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}

	if err := h.Complaints.DeleteByOwner(c.Request.Context(), capabilityOf(c), c.Param("id"), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) AdminDeleteComplaint(c *gin.Context) {
	if err := h.Complaints.DeleteByStaff(c.Request.Context(), capabilityOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

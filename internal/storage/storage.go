package storage

import (
	"complaintdesk/backend/internal/models"
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by version-checked updates when the stored
	// version moved on since the record was read.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// ComplaintFilter narrows ListComplaints. Zero fields match everything.
type ComplaintFilter struct {
	Email  string
	Status models.Status
}

// Storage is the record store shared by every service.
//
// Update methods replace the whole record. The caller passes the record with
// the Version it read; on success Version is advanced by one, and when the
// stored version differs the update fails with ErrConflict.
type Storage interface {
	SaveComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	GetComplaintByReference(ctx context.Context, referenceID string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	UpdateComplaint(ctx context.Context, c *models.Complaint) error
	DeleteComplaint(ctx context.Context, id string) error

	SaveFeedback(ctx context.Context, f *models.Feedback) error
	GetFeedbackByID(ctx context.Context, id string) (*models.Feedback, error)
	// ListFeedback returns all feedback, newest first.
	ListFeedback(ctx context.Context) ([]models.Feedback, error)
	UpdateFeedback(ctx context.Context, f *models.Feedback) error
	DeleteFeedback(ctx context.Context, id string) error

	SaveManager(ctx context.Context, m *models.Manager) error
	GetManagerByEmail(ctx context.Context, email string) (*models.Manager, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

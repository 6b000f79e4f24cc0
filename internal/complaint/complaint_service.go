// Package complaint provides the core logic for handling complaints: intake,
// staff status workflow and owner-gated edits.
package complaint

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/errs"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/metrics"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreateInput is what the public form submits.
type CreateInput struct {
	Name        string
	Email       string
	Phone       string
	Category    string
	Description string
	Branch      string
}

// OwnerUpdate carries the fields an owner may change. Empty fields are left as they are.
type OwnerUpdate struct {
	Category    string
	Description string
}

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Locker  storage.Locker
	Tokens  *auth.Issuer
	Events  eventhub.Publisher

	// StaffAuthRequired makes the staff paths demand a staff capability.
	StaffAuthRequired bool

	now func() time.Time
}

// NewService creates a new complaint service.
func NewService(s storage.Storage, l storage.Locker, tokens *auth.Issuer, events eventhub.Publisher) *Service {
	if events == nil {
		events = eventhub.Discard{}
	}
	return &Service{
		Storage: s,
		Locker:  l,
		Tokens:  tokens,
		Events:  events,
		now:     time.Now,
	}
}

// Create stores a new complaint in the pending state and returns it with an
// owner token bound to it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Complaint, string, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, "", errs.Validation("description is required")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if err := validate.Var(email, "email"); err != nil {
			return nil, "", errs.Validation("email must be a valid email address")
		}
	}
	category, err := parseCategory(in.Category)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	c := &models.Complaint{
		Customer: models.Customer{
			Name:  strings.TrimSpace(in.Name),
			Email: email,
			Phone: strings.TrimSpace(in.Phone),
		},
		Category:    category,
		Description: description,
		Status:      models.StatusPending,
		Branch:      strings.TrimSpace(in.Branch),
		Logs:        []models.LogEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.AppendLog(ownerActor(email), "created", "", now)

	if err := s.insertWithReference(ctx, c, now); err != nil {
		return nil, "", err
	}

	token, err := s.Tokens.IssueOwner(auth.RecordComplaint, c.ID, email)
	if err != nil {
		return nil, "", errs.Unexpected("failed to issue owner token", err)
	}

	metrics.RecordsCreated.WithLabelValues("complaint").Inc()
	s.publish(ctx, models.EventComplaintCreated, c)
	logging.Ctx(ctx).Info().Str("complaint_id", c.ID).Str("reference", c.ReferenceID).Msg("complaint created")
	return c, token, nil
}

// insertWithReference retries on the rare reference collision.
func (s *Service) insertWithReference(ctx context.Context, c *models.Complaint, now time.Time) error {
	var lastErr error
	for attempt := 0; attempt < config.ReferenceMaxRetries; attempt++ {
		ref, err := NewReferenceID(now)
		if err != nil {
			return errs.Unexpected("failed to generate reference", err)
		}
		c.ReferenceID = ref
		c.ID = ""

		err = s.Storage.SaveComplaint(ctx, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return errs.Unexpected("failed to save complaint", err)
		}
		lastErr = err
		logging.Ctx(ctx).Warn().Str("reference", ref).Msg("reference collision, retrying")
	}
	return errs.Unexpected("failed to allocate a unique reference", lastErr)
}

// List returns every complaint matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter storage.ComplaintFilter) ([]models.Complaint, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errs.Validationf("invalid status %q", filter.Status)
	}
	filter.Email = strings.TrimSpace(filter.Email)

	list, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, errs.Unexpected("failed to list complaints", err)
	}
	return list, nil
}

// Get fetches a complaint by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	return c, nil
}

// GetByReference fetches a complaint by its tracking code.
func (s *Service) GetByReference(ctx context.Context, referenceID string) (*models.Complaint, error) {
	c, err := s.Storage.GetComplaintByReference(ctx, strings.TrimSpace(referenceID))
	if err != nil {
		return nil, readErr(err)
	}
	return c, nil
}

// UpdateStatus is the staff path: it sets status and replaces the response notes.
func (s *Service) UpdateStatus(ctx context.Context, caller auth.Capability, id string, status models.Status, notes string) (*models.Complaint, error) {
	if err := s.requireStaff(caller, "complaint.status"); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, errs.Validationf("status must be one of %s", strings.Join(config.ComplaintStatuses, ", "))
	}

	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) error {
		c.Status = status
		c.ResponseNotes = notes
		c.AppendLog(caller.Actor(), "status:"+string(status), notes, now)
		return nil
	})
}

// Respond records a staff response without touching the status.
func (s *Service) Respond(ctx context.Context, caller auth.Capability, id, response string) (*models.Complaint, error) {
	if err := s.requireStaff(caller, "complaint.respond"); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) error {
		c.ResponseNotes = response
		c.AppendLog(caller.Actor(), "respond", response, now)
		return nil
	})
}

// UpdateByOwner lets the submitter change category and description.
func (s *Service) UpdateByOwner(ctx context.Context, caller auth.Capability, id, email string, in OwnerUpdate) (*models.Complaint, error) {
	var category models.Category
	if strings.TrimSpace(in.Category) != "" {
		parsed, err := parseCategory(in.Category)
		if err != nil {
			return nil, err
		}
		category = parsed
	}
	description := strings.TrimSpace(in.Description)
	if in.Description != "" && description == "" {
		return nil, errs.Validation("description cannot be empty")
	}

	return s.mutate(ctx, id, func(c *models.Complaint, now time.Time) error {
		if !s.ownerAllowed(caller, c, email) {
			metrics.AuthorizationDenied.WithLabelValues("complaint.update").Inc()
			return errs.Forbidden("Not allowed to edit this complaint")
		}
		if category != "" {
			c.Category = category
		}
		if description != "" {
			c.Description = description
		}
		c.AppendLog(ownerActor(c.Customer.Email), "updated", "", now)
		return nil
	})
}

// DeleteByOwner removes a complaint on behalf of its submitter.
func (s *Service) DeleteByOwner(ctx context.Context, caller auth.Capability, id, email string) error {
	return s.remove(ctx, id, func(c *models.Complaint) error {
		if !s.ownerAllowed(caller, c, email) {
			metrics.AuthorizationDenied.WithLabelValues("complaint.delete").Inc()
			return errs.Forbidden("Not allowed to delete this complaint")
		}
		return nil
	})
}

// DeleteByStaff removes a complaint from the admin console.
func (s *Service) DeleteByStaff(ctx context.Context, caller auth.Capability, id string) error {
	if err := s.requireStaff(caller, "complaint.admin_delete"); err != nil {
		return err
	}
	return s.remove(ctx, id, func(*models.Complaint) error { return nil })
}

// ownerAllowed holds for staff, for the holder of this complaint's owner
// token, and for a caller who supplies the exact submitter email.
func (s *Service) ownerAllowed(caller auth.Capability, c *models.Complaint, email string) bool {
	if caller.IsStaff() || caller.OwnsRecord(auth.RecordComplaint, c.ID) {
		return true
	}
	return c.OwnedBy(strings.TrimSpace(email))
}

func (s *Service) requireStaff(caller auth.Capability, op string) error {
	if !s.StaffAuthRequired || caller.IsStaff() {
		return nil
	}
	metrics.AuthorizationDenied.WithLabelValues(op).Inc()
	return errs.Unauthenticated("staff token required")
}

// mutate runs fn on the stored complaint under the record lock and saves it
// with a version check.
func (s *Service) mutate(ctx context.Context, id string, fn func(c *models.Complaint, now time.Time) error) (*models.Complaint, error) {
	unlock, err := s.Locker.Lock(ctx, "complaint:"+id)
	if err != nil {
		return nil, errs.Unexpected("failed to lock complaint", err)
	}
	defer unlock()

	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}

	now := s.now()
	if err := fn(c, now); err != nil {
		return nil, err
	}
	c.UpdatedAt = now

	if err := s.Storage.UpdateComplaint(ctx, c); err != nil {
		return nil, writeErr(err)
	}

	s.publish(ctx, models.EventComplaintUpdated, c)
	return c, nil
}

func (s *Service) remove(ctx context.Context, id string, check func(c *models.Complaint) error) error {
	unlock, err := s.Locker.Lock(ctx, "complaint:"+id)
	if err != nil {
		return errs.Unexpected("failed to lock complaint", err)
	}
	defer unlock()

	c, err := s.Storage.GetComplaintByID(ctx, id)
	if err != nil {
		return readErr(err)
	}
	if err := check(c); err != nil {
		return err
	}
	if err := s.Storage.DeleteComplaint(ctx, id); err != nil {
		return writeErr(err)
	}

	s.publish(ctx, models.EventComplaintDeleted, c)
	logging.Ctx(ctx).Info().Str("complaint_id", id).Msg("complaint deleted")
	return nil
}

func (s *Service) publish(ctx context.Context, t models.EventType, c *models.Complaint) {
	e := models.Event{
		Type:        t,
		RecordID:    c.ID,
		ReferenceID: c.ReferenceID,
		Category:    string(c.Category),
		At:          s.now(),
	}
	if t == models.EventComplaintUpdated {
		e.Status = c.Status
	}
	s.Events.Publish(ctx, e)
}

func parseCategory(raw string) (models.Category, error) {
	c := models.NormalizeCategory(raw)
	if !c.Valid() {
		return "", errs.Validationf("category must be one of %s", strings.Join(config.ComplaintCategories, ", "))
	}
	return c, nil
}

func ownerActor(email string) string {
	if email == "" {
		return "customer"
	}
	return email
}

func readErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFound("Complaint not found")
	}
	return errs.Unexpected("failed to load complaint", err)
}

func writeErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errs.NotFound("Complaint not found")
	case errors.Is(err, storage.ErrConflict):
		metrics.WriteConflicts.WithLabelValues("complaint").Inc()
		return errs.Conflict("complaint was modified concurrently, retry")
	default:
		return errs.Unexpected("failed to save complaint", err)
	}
}

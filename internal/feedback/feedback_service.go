// Package feedback manages rated feedback items and their reply threads.
package feedback

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
)

// CreateInput is a public feedback submission.
type CreateInput struct {
	Username string
	Email    string
	Message  string
	Rating   *int
	Category string
}

// UpdateInput replaces message and/or rating. A nil field, or a blank
// message, leaves the stored value alone.
type UpdateInput struct {
	Message *string
	Rating  *int
}

// ReplyInput is a new reply. SenderEmail is what the public console sends
// in place of Email.
type ReplyInput struct {
	Sender      string
	Message     string
	Email       string
	SenderEmail string
}

// Service handles feedback and replies.
type Service struct {
	Storage storage.Storage
	Locker  storage.Locker
	Tokens  *auth.Issuer
	Events  eventhub.Publisher

	StaffAuthRequired bool

	now func() time.Time
}

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

// Create stores a feedback item and returns it with an owner token.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Feedback, string, error) {
	f, err := s.insert(ctx, &models.Feedback{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Message:  in.Message,
		Rating:   in.Rating,
		Category: strings.TrimSpace(in.Category),
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.Tokens.IssueOwner(auth.RecordFeedback, f.ID, f.Email)
	if err != nil {
		return nil, "", errs.Unexpected("failed to issue owner token", err)
	}
	return f, token, nil
}

func (s *Service) insert(ctx context.Context, f *models.Feedback) (*models.Feedback, error) {
	if strings.TrimSpace(f.Message) == "" {
		return nil, errs.Validation("message is required")
	}
	if err := checkRating(f.Rating); err != nil {
		return nil, err
	}

	now := s.now()
	f.Replies = []models.Reply{}
	f.CreatedAt = now
	f.UpdatedAt = now

	if err := s.Storage.SaveFeedback(ctx, f); err != nil {
		return nil, errs.Unexpected("failed to save feedback", err)
	}

	metrics.RecordsCreated.WithLabelValues("feedback").Inc()
	s.publish(ctx, models.EventFeedbackCreated, f)
	logging.Ctx(ctx).Info().Str("feedback_id", f.ID).Msg("feedback created")
	return f, nil
}

// List returns all feedback, newest first.
func (s *Service) List(ctx context.Context) ([]models.Feedback, error) {
	list, err := s.Storage.ListFeedback(ctx)
	if err != nil {
		return nil, errs.Unexpected("failed to fetch feedback", err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Feedback, error) {
	f, err := s.Storage.GetFeedbackByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	return f, nil
}

// Update replaces message and rating. With staff auth enforced, only staff,
// the owner token holder, or a requester with the feedback's email may do it.
func (s *Service) Update(ctx context.Context, caller auth.Capability, id, requesterEmail string, in UpdateInput) (*models.Feedback, error) {
	if err := checkRating(in.Rating); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, models.EventFeedbackUpdated, func(f *models.Feedback, now time.Time) error {
		if !s.itemAllowed(caller, f, requesterEmail) {
			metrics.AuthorizationDenied.WithLabelValues("feedback.update").Inc()
			return errs.Forbidden("Not allowed to edit this feedback")
		}
		if in.Message != nil && strings.TrimSpace(*in.Message) != "" {
			f.Message = *in.Message
		}
		if in.Rating != nil {
			rating := *in.Rating
			f.Rating = &rating
		}
		return nil
	})
}

// Delete removes a feedback item and its replies.
func (s *Service) Delete(ctx context.Context, caller auth.Capability, id, requesterEmail string) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	f, err := s.Storage.GetFeedbackByID(ctx, id)
	if err != nil {
		return readErr(err)
	}
	if !s.itemAllowed(caller, f, requesterEmail) {
		metrics.AuthorizationDenied.WithLabelValues("feedback.delete").Inc()
		return errs.Forbidden("Not allowed to delete this feedback")
	}
	if err := s.Storage.DeleteFeedback(ctx, id); err != nil {
		return writeErr(err)
	}

	s.publish(ctx, models.EventFeedbackDeleted, f)
	return nil
}

// AddReply appends a reply to the thread and returns the whole feedback.
func (s *Service) AddReply(ctx context.Context, caller auth.Capability, id string, in ReplyInput) (*models.Feedback, error) {
	sender := models.Sender(strings.TrimSpace(in.Sender))
	if sender != models.SenderAdmin && sender != models.SenderUser {
		return nil, errs.Validation(`sender must be "admin" or "user"`)
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, errs.Validation("message is required")
	}
	if sender == models.SenderAdmin {
		if err := s.requireStaff(caller, "reply.add"); err != nil {
			return nil, err
		}
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = strings.TrimSpace(in.SenderEmail)
	}
	if email == "" && caller.OwnsRecord(auth.RecordFeedback, id) {
		email = caller.OwnerEmail()
	}

	return s.mutate(ctx, id, models.EventReplyAdded, func(f *models.Feedback, now time.Time) error {
		f.Replies = append(f.Replies, models.NewReply(sender, in.Message, email, now))
		return nil
	})
}

// EditReply replaces a reply's message.
func (s *Service) EditReply(ctx context.Context, caller auth.Capability, feedbackID, replyID, requesterEmail, message string) (*models.Feedback, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errs.Validation("message is required")
	}

	return s.mutate(ctx, feedbackID, models.EventReplyUpdated, func(f *models.Feedback, now time.Time) error {
		i, err := s.authorizeReply(caller, f, replyID, requesterEmail, ReplyEdit)
		if err != nil {
			return err
		}
		f.Replies[i].Message = message
		f.Replies[i].UpdatedAt = now
		return nil
	})
}

// DeleteReply removes one reply, leaving the others in order.
func (s *Service) DeleteReply(ctx context.Context, caller auth.Capability, feedbackID, replyID, requesterEmail string) (*models.Feedback, error) {
	return s.mutate(ctx, feedbackID, models.EventReplyDeleted, func(f *models.Feedback, now time.Time) error {
		i, err := s.authorizeReply(caller, f, replyID, requesterEmail, ReplyDelete)
		if err != nil {
			return err
		}
		f.Replies = append(f.Replies[:i], f.Replies[i+1:]...)
		return nil
	})
}

func (s *Service) authorizeReply(caller auth.Capability, f *models.Feedback, replyID, requesterEmail string, op ReplyOp) (int, error) {
	i := f.FindReply(replyID)
	if i < 0 {
		return -1, errs.NotFound("Reply not found")
	}
	reply := f.Replies[i]

	if requesterEmail == "" && caller.OwnsRecord(auth.RecordFeedback, f.ID) {
		requesterEmail = caller.OwnerEmail()
	}
	if err := AuthorizeReplyChange(reply, requesterEmail, op); err != nil {
		metrics.AuthorizationDenied.WithLabelValues("reply." + string(op)).Inc()
		return -1, err
	}
	if reply.Sender == models.SenderAdmin {
		if err := s.requireStaff(caller, "reply."+string(op)); err != nil {
			return -1, err
		}
	}
	return i, nil
}

func (s *Service) itemAllowed(caller auth.Capability, f *models.Feedback, requesterEmail string) bool {
	if !s.StaffAuthRequired {
		return true
	}
	if caller.IsStaff() || caller.OwnsRecord(auth.RecordFeedback, f.ID) {
		return true
	}
	requesterEmail = strings.TrimSpace(requesterEmail)
	return requesterEmail != "" && requesterEmail == f.Email
}

func (s *Service) requireStaff(caller auth.Capability, op string) error {
	if !s.StaffAuthRequired || caller.IsStaff() {
		return nil
	}
	metrics.AuthorizationDenied.WithLabelValues(op).Inc()
	return errs.Unauthenticated("staff token required")
}

func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	unlock, err := s.Locker.Lock(ctx, "feedback:"+id)
	if err != nil {
		return nil, errs.Unexpected("failed to lock feedback", err)
	}
	return unlock, nil
}

// mutate loads the feedback under its lock, applies fn and saves it with a
// version check.
func (s *Service) mutate(ctx context.Context, id string, event models.EventType, fn func(f *models.Feedback, now time.Time) error) (*models.Feedback, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, err := s.Storage.GetFeedbackByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}

	now := s.now()
	if err := fn(f, now); err != nil {
		return nil, err
	}
	f.UpdatedAt = now

	if err := s.Storage.UpdateFeedback(ctx, f); err != nil {
		return nil, writeErr(err)
	}

	s.publish(ctx, event, f)
	return f, nil
}

func (s *Service) publish(ctx context.Context, t models.EventType, f *models.Feedback) {
	s.Events.Publish(ctx, models.Event{
		Type:     t,
		RecordID: f.ID,
		Category: f.Category,
		Rating:   f.Rating,
		At:       s.now(),
	})
}

func checkRating(r *int) error {
	if r == nil {
		return nil
	}
	if *r < config.MinRating || *r > config.MaxRating {
		return errs.Validationf("rating must be between %d and %d", config.MinRating, config.MaxRating)
	}
	return nil
}

func readErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFound("Feedback not found")
	}
	return errs.Unexpected("failed to load feedback", err)
}

func writeErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errs.NotFound("Feedback not found")
	case errors.Is(err, storage.ErrConflict):
		metrics.WriteConflicts.WithLabelValues("feedback").Inc()
		return errs.Conflict("feedback was modified concurrently, retry")
	default:
		return errs.Unexpected("failed to save feedback", err)
	}
}

package feedback

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/errs"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"context"
	"strings"
)

// InviteInput identifies who is invited to rate a service session.
type InviteInput struct {
	Name  string
	Email string
	Phone string
}

// Invite issues a feedback invitation for a session. Delivering it is up
// to the caller; the token is returned.
func (s *Service) Invite(ctx context.Context, caller auth.Capability, sessionID string, in InviteInput) (string, error) {
	if err := s.requireStaff(caller, "feedback.invite"); err != nil {
		return "", err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errs.Validation("session id is required")
	}
	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Phone) == "" {
		return "", errs.Validation("email or phone is required")
	}

	token, err := s.Tokens.IssueInvite(sessionID, strings.TrimSpace(in.Name), strings.TrimSpace(in.Email))
	if err != nil {
		return "", errs.Unexpected("failed to issue invite", err)
	}
	logging.Ctx(ctx).Info().Str("session_id", sessionID).Msg("feedback invite issued")
	return token, nil
}

// SubmitInvited creates feedback carrying the identity from an invite token.
func (s *Service) SubmitInvited(ctx context.Context, token, message string, rating *int) (*models.Feedback, error) {
	claims, err := s.Tokens.Parse(strings.TrimSpace(token), auth.KindInvite)
	if err != nil {
		return nil, errs.Unauthenticated("invalid or expired invite")
	}

	return s.insert(ctx, &models.Feedback{
		Username:  claims.Name,
		Email:     claims.Email,
		Message:   message,
		Rating:    rating,
		SessionID: claims.SessionID,
	})
}

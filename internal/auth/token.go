// Package auth issues and verifies the signed tokens that replace
// client-replayed identity: staff tokens for the admin console, owner tokens
// bound to a single submission, and feedback invite tokens.
package auth

import (
	"complaintdesk/backend/internal/models"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the three token families.
type TokenKind string

const (
	KindStaff  TokenKind = "staff"
	KindOwner  TokenKind = "owner"
	KindInvite TokenKind = "invite"
)

// Record types an owner token can be bound to.
const (
	RecordComplaint = "complaint"
	RecordFeedback  = "feedback"
)

const issuerName = "complaintdesk-service"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongKind    = errors.New("token kind not accepted here")
)

// Claims is the payload of every token the service signs.
type Claims struct {
	Kind       TokenKind   `json:"kind"`
	Role       models.Role `json:"role,omitempty"`
	Email      string      `json:"email,omitempty"`
	Name       string      `json:"name,omitempty"`
	RecordType string      `json:"rtype,omitempty"`
	RecordID   string      `json:"rid,omitempty"`
	SessionID  string      `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 tokens.
type Issuer struct {
	secret    []byte
	staffTTL  time.Duration
	ownerTTL  time.Duration
	inviteTTL time.Duration
	now       func() time.Time
}

func NewIssuer(secret string, staffTTL, ownerTTL, inviteTTL time.Duration) *Issuer {
	return &Issuer{
		secret:    []byte(secret),
		staffTTL:  staffTTL,
		ownerTTL:  ownerTTL,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

// IssueStaff signs a token for a manager account.
func (i *Issuer) IssueStaff(m *models.Manager) (string, error) {
	return i.sign(Claims{
		Kind:  KindStaff,
		Role:  m.Role,
		Email: m.Email,
		Name:  m.Name,
	}, m.ID, i.staffTTL)
}

// IssueOwner signs a token bound to one complaint or feedback record.
func (i *Issuer) IssueOwner(recordType, recordID, email string) (string, error) {
	return i.sign(Claims{
		Kind:       KindOwner,
		Email:      email,
		RecordType: recordType,
		RecordID:   recordID,
	}, recordID, i.ownerTTL)
}

// IssueInvite signs a feedback invitation for a service session.
func (i *Issuer) IssueInvite(sessionID, name, email string) (string, error) {
	return i.sign(Claims{
		Kind:      KindInvite,
		Name:      name,
		Email:     email,
		SessionID: sessionID,
	}, sessionID, i.inviteTTL)
}

func (i *Issuer) sign(c Claims, subject string, ttl time.Duration) (string, error) {
	now := i.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuerName,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", c.Kind, err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry, and checks the token kind.
func (i *Issuer) Parse(raw string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

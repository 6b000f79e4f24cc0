package auth

import (
	"complaintdesk/backend/internal/errs"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps the login timing similar for unknown accounts.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service manages staff accounts.
type Service struct {
	Storage storage.Storage
	Tokens  *Issuer
}

func NewService(s storage.Storage, tokens *Issuer) *Service {
	return &Service{Storage: s, Tokens: tokens}
}

// Login checks manager credentials and returns a staff token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Manager, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, errs.Validation("email and password are required")
	}

	m, err := s.Storage.GetManagerByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", nil, errs.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return "", nil, errs.Unexpected("failed to load manager", err)
	}
	if !CheckPassword(m.PasswordHash, password) {
		logging.Ctx(ctx).Warn().Str("email", email).Msg("failed staff login")
		return "", nil, errs.Unauthenticated("invalid email or password")
	}

	token, err := s.Tokens.IssueStaff(m)
	if err != nil {
		return "", nil, errs.Unexpected("failed to issue token", err)
	}
	return token, m, nil
}

// CreateManager registers a staff account.
func (s *Service) CreateManager(ctx context.Context, name, email, password string, role models.Role, branch string) (*models.Manager, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errs.Validation("email is required")
	}
	if len(password) < 8 {
		return nil, errs.Validation("password must be at least 8 characters")
	}
	if role == "" {
		role = models.RoleManager
	}
	if !role.Valid() {
		return nil, errs.Validationf("invalid role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errs.Unexpected("failed to hash password", err)
	}

	m := &models.Manager{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Branch:       branch,
	}
	if err := s.Storage.SaveManager(ctx, m); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errs.Conflict("a manager with this email already exists")
		}
		return nil, errs.Unexpected("failed to save manager", err)
	}
	return m, nil
}

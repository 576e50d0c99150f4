package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/elimucore/elimucore/internal/authz"
	"github.com/elimucore/elimucore/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RegisterInput carries the public registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     authz.Role
}

// Register creates an unapproved account and opens its approval record. The
// account cannot pass the guard until a reviewer approves it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if !input.Role.SelfRegisterable() {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := User{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		Role:         input.Role,
	}
	return s.repo.CreateWithApproval(ctx, user)
}

// Authenticate validates email/password credentials. Accounts that are still
// pending approval or have been deactivated fail with a typed guard denial so
// the caller can distinguish the cases.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, authz.Deny(authz.DenyInactive)
	}
	if !user.IsApproved {
		return nil, authz.Deny(authz.DenyPendingApproval)
	}

	// Best-effort, independent of session issuance.
	if err := s.repo.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("touch last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrPasswordMismatch
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// UpdateProfile changes the account's name and phone.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name, phone string) (*User, error) {
	return s.repo.UpdateProfile(ctx, userID, name, phone)
}

// GetUser fetches an account by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// PruneExpiredSessions drops session rows past their expiry.
func (s *Service) PruneExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}

// LoadPrincipal implements authz.PrincipalLoader for the session middleware.
func (s *Service) LoadPrincipal(ctx context.Context, userID int64) (authz.Principal, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return authz.Principal{}, err
	}
	return user.Principal(), nil
}

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
)

// ErrAccountInactive indicates credentials were valid but the account
// is deactivated or its email was never verified.
var ErrAccountInactive = errors.New("auth: account is not active")

// RoleAssigner grants a named role to a user. Satisfied by
// *rbac.Service.
type RoleAssigner interface {
	AssignRoleByName(ctx context.Context, userID int64, name string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	roles RoleAssigner
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleAssigner) *Service {
	return &Service{repo: repo, roles: roles}
}

// Authenticate validates email/password credentials. Accounts that are
// deactivated or still unverified are rejected even with the correct
// password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if user.EmailVerifiedAt == nil || !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// Register creates a self-service account. New accounts always receive
// the customer role, which grants no back-office permissions.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, User{
		Name:         strings.TrimSpace(input.Name),
		Surname:      strings.TrimSpace(input.Surname),
		Email:        normalizeEmail(input.Email),
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	if s.roles != nil {
		if err := s.roles.AssignRoleByName(ctx, user.ID, rbac.RoleCustomer); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

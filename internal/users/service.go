package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/bodega-erp/bodega/internal/rbac"
)

// RoleDirectory is the slice of role operations this service needs.
// Satisfied by *rbac.Service.
type RoleDirectory interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	AssignRoleByName(ctx context.Context, userID int64, name string) error
	SyncUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
	HasAnyRole(ctx context.Context, userID int64, required ...string) (bool, error)
}

// Service handles the user directory and the customer directory. A
// customer is simply a user holding the customer role.
type Service struct {
	repo  RepositoryPort
	roles RoleDirectory
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleDirectory) *Service {
	return &Service{repo: repo, roles: roles}
}

// ListUsers returns a page of all accounts with their roles.
func (s *Service) ListUsers(ctx context.Context, page, limit int) ([]User, int, error) {
	return s.repo.ListUsers(ctx, page, limit)
}

// GetUser fetches one account with its roles.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// AvailableRoles lists the roles an administrator can assign.
func (s *Service) AvailableRoles(ctx context.Context) ([]rbac.Role, error) {
	return s.roles.ListRoles(ctx)
}

// SyncRoles sets the user's role set to exactly the given role IDs.
func (s *Service) SyncRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.roles.SyncUserRoles(ctx, userID, roleIDs)
}

// ListCustomers pages through users holding the customer role.
func (s *Service) ListCustomers(ctx context.Context, page, limit int, search string) ([]Customer, int, error) {
	return s.repo.ListByRole(ctx, rbac.RoleCustomer, page, limit, search)
}

// GetCustomer fetches one customer by ID.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetByRole(ctx, rbac.RoleCustomer, id)
}

// CreateCustomer creates an account and grants it the customer role.
// The role grant is idempotent, so retrying after a partial failure is
// safe.
func (s *Service) CreateCustomer(ctx context.Context, input CustomerInput) (int64, error) {
	input = normalizeCustomer(input)
	if err := validateCustomer(input, true); err != nil {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateUser(ctx, input, string(hash))
	if err != nil {
		return 0, err
	}
	if err := s.roles.AssignRoleByName(ctx, id, rbac.RoleCustomer); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateCustomer edits a customer's contact details.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) error {
	input = normalizeCustomer(input)
	if err := validateCustomer(input, false); err != nil {
		return err
	}
	if _, err := s.repo.GetByRole(ctx, rbac.RoleCustomer, id); err != nil {
		return err
	}
	return s.repo.UpdateUser(ctx, id, input)
}

// DeleteCustomer removes the customer's account entirely.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByRole(ctx, rbac.RoleCustomer, id); err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, id)
}

func normalizeCustomer(input CustomerInput) CustomerInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.Address = strings.TrimSpace(input.Address)
	return input
}

func validateCustomer(input CustomerInput, requirePassword bool) error {
	if input.Name == "" {
		return errors.New("customer name is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return errors.New("a valid email is required")
	}
	if requirePassword && len(input.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

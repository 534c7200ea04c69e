package rbac

import (
	"context"
	"errors"
	"strings"
)

// Service orchestrates role and permission operations and answers
// authorization queries. Evaluation methods are pure reads over the
// assignment stores and never mutate state.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName fetches a role by its machine name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, strings.TrimSpace(strings.ToLower(name)))
}

// CreateRole inserts a new role. Fails with shared.ErrDuplicateName if
// the machine name is already taken.
func (s *Service) CreateRole(ctx context.Context, name, displayName, description string) (Role, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// UpdateRole updates label and description of an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, displayName, description string) (Role, error) {
	return s.repo.UpdateRole(ctx, id, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// ListPermissions returns the stored permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// RolePermissions returns the permission names held by a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	return s.repo.RolePermissionNames(ctx, roleID)
}

// SetRolePermissions replaces the role's permission set atomically.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, names []string) error {
	return s.repo.ReplaceRolePermissions(ctx, roleID, normalizeNames(names))
}

// AssignRole assigns a role to the given user. Idempotent.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRoleToUser(ctx, userID, roleID)
}

// AssignRoleByName resolves the role's machine name and assigns it.
// Idempotent.
func (s *Service) AssignRoleByName(ctx context.Context, userID int64, name string) error {
	role, err := s.GetRoleByName(ctx, name)
	if err != nil {
		return err
	}
	return s.AssignRole(ctx, userID, role.ID)
}

// RemoveRole removes a role from a user. Idempotent.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRoleFromUser(ctx, userID, roleID)
}

// SyncUserRoles sets the user's role set to exactly the given roles.
func (s *Service) SyncUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return s.repo.ReplaceUserRoles(ctx, userID, roleIDs)
}

// UserRoles returns machine names of the roles held by a user.
func (s *Service) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserRoleNames(ctx, userID)
}

// UserPermissions returns the deduplicated union of permission names
// across all roles held by the user. Empty if the user holds no roles.
func (s *Service) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserPermissionNames(ctx, userID)
}

// HasAnyPermission reports whether the user holds at least one of the
// required permissions. An empty requirement never authorizes.
func (s *Service) HasAnyPermission(ctx context.Context, userID int64, required ...string) (bool, error) {
	granted, err := s.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return hasAny(granted, normalizeNames(required)), nil
}

// HasAllPermissions reports whether the user holds every required
// permission. An empty requirement never authorizes.
func (s *Service) HasAllPermissions(ctx context.Context, userID int64, required ...string) (bool, error) {
	granted, err := s.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return hasAll(granted, normalizeNames(required)), nil
}

// HasAnyRole reports whether the user holds at least one of the
// required roles.
func (s *Service) HasAnyRole(ctx context.Context, userID int64, required ...string) (bool, error) {
	granted, err := s.UserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	return hasAny(granted, normalizeNames(required)), nil
}

// HasAllRoles reports whether the user holds every required role.
func (s *Service) HasAllRoles(ctx context.Context, userID int64, required ...string) (bool, error) {
	granted, err := s.UserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	return hasAll(granted, normalizeNames(required)), nil
}

// IsOwner reports whether the user holds the owner role.
func (s *Service) IsOwner(ctx context.Context, userID int64) (bool, error) {
	return s.HasAnyRole(ctx, userID, RoleOwner)
}

// IsSalesperson reports whether the user holds the salesperson role.
func (s *Service) IsSalesperson(ctx context.Context, userID int64) (bool, error) {
	return s.HasAnyRole(ctx, userID, RoleSalesperson)
}

// IsCustomer reports whether the user holds the customer role.
func (s *Service) IsCustomer(ctx context.Context, userID int64) (bool, error) {
	return s.HasAnyRole(ctx, userID, RoleCustomer)
}

func normalizeNames(names []string) []string {
	unique := make(map[string]struct{}, len(names))
	normalized := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.ToLower(n))
		if n == "" {
			continue
		}
		if _, ok := unique[n]; ok {
			continue
		}
		unique[n] = struct{}{}
		normalized = append(normalized, n)
	}
	return normalized
}

// hasAny implements the any-of check with a fail-closed default: an
// empty requirement must never silently authorize.
func hasAny(granted []string, required []string) bool {
	if len(required) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[strings.ToLower(g)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// hasAll implements the all-of check; empty requirements fail closed
// for the same reason as hasAny.
func hasAll(granted []string, required []string) bool {
	if len(required) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[strings.ToLower(g)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

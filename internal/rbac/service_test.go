package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bodega-erp/bodega/internal/shared"
)

type memoryRepo struct {
	roles       map[int64]Role
	permissions map[string]Permission
	rolePerms   map[int64]map[string]bool
	userRoles   map[int64]map[int64]bool
	nextRoleID  int64
	nextPermID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles:       map[int64]Role{},
		permissions: map[string]Permission{},
		rolePerms:   map[int64]map[string]bool{},
		userRoles:   map[int64]map[int64]bool{},
	}
}

var _ RepositoryPort = (*memoryRepo)(nil)

func (m *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) GetRoleByName(ctx context.Context, name string) (Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (m *memoryRepo) CreateRole(ctx context.Context, name, displayName, description string) (Role, error) {
	if _, err := m.GetRoleByName(ctx, name); err == nil {
		return Role{}, shared.ErrDuplicateName
	}
	m.nextRoleID++
	role := Role{ID: m.nextRoleID, Name: name, DisplayName: displayName, Description: description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, id int64, displayName, description string) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	r.DisplayName, r.Description = displayName, description
	m.roles[id] = r
	return r, nil
}

func (m *memoryRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	for _, p := range m.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) EnsurePermission(ctx context.Context, def Definition) (Permission, error) {
	if p, ok := m.permissions[def.Name]; ok {
		return p, nil
	}
	m.nextPermID++
	p := Permission{ID: m.nextPermID, Name: def.Name, DisplayName: def.DisplayName, Description: def.Description}
	m.permissions[def.Name] = p
	return p, nil
}

func (m *memoryRepo) RolePermissionNames(ctx context.Context, roleID int64) ([]string, error) {
	var out []string
	for name := range m.rolePerms[roleID] {
		out = append(out, name)
	}
	return out, nil
}

func (m *memoryRepo) ReplaceRolePermissions(ctx context.Context, roleID int64, names []string) error {
	set := map[string]bool{}
	for _, name := range names {
		if _, ok := m.permissions[name]; ok {
			set[name] = true
		}
	}
	m.rolePerms[roleID] = set
	return nil
}

func (m *memoryRepo) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	if m.userRoles[userID] == nil {
		m.userRoles[userID] = map[int64]bool{}
	}
	m.userRoles[userID][roleID] = true
	return nil
}

func (m *memoryRepo) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	delete(m.userRoles[userID], roleID)
	return nil
}

func (m *memoryRepo) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	set := map[int64]bool{}
	for _, id := range roleIDs {
		set[id] = true
	}
	m.userRoles[userID] = set
	return nil
}

func (m *memoryRepo) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	var out []string
	for roleID := range m.userRoles[userID] {
		out = append(out, m.roles[roleID].Name)
	}
	return out, nil
}

func (m *memoryRepo) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for roleID := range m.userRoles[userID] {
		for name := range m.rolePerms[roleID] {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func provisionedService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo)
	require.NoError(t, Provision(context.Background(), svc, nil))
	return svc, repo
}

func TestProvisionSeedsRolesAndCatalog(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	perms, err := svc.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms, len(AllPermissions()))

	for _, name := range []string{RoleOwner, RoleSalesperson, RoleCustomer} {
		role, err := svc.GetRoleByName(ctx, name)
		require.NoError(t, err, name)
		require.NotEmpty(t, role.DisplayName)
	}

	owner, _ := svc.GetRoleByName(ctx, RoleOwner)
	granted, err := svc.RolePermissions(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, granted, len(AllPermissions()), "owner starts with the full catalog")

	customer, _ := svc.GetRoleByName(ctx, RoleCustomer)
	granted, err = svc.RolePermissions(ctx, customer.ID)
	require.NoError(t, err)
	require.Empty(t, granted, "customer starts with no permissions")
}

func TestProvisionIsIdempotent(t *testing.T) {
	svc, repo := provisionedService(t)
	ctx := context.Background()

	// Operator trims the salesperson role, then provisioning reruns.
	sales, _ := svc.GetRoleByName(ctx, RoleSalesperson)
	require.NoError(t, svc.SetRolePermissions(ctx, sales.ID, []string{PermViewProducts}))

	require.NoError(t, Provision(ctx, svc, nil))

	granted, err := svc.RolePermissions(ctx, sales.ID)
	require.NoError(t, err)
	require.Equal(t, []string{PermViewProducts}, granted, "re-provisioning must not clobber operator changes")
	require.Len(t, repo.permissions, len(AllPermissions()))
}

func TestEmptyRequirementNeverAuthorizes(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	owner, _ := svc.GetRoleByName(ctx, RoleOwner)
	require.NoError(t, svc.AssignRole(ctx, 1, owner.ID))

	ok, err := svc.HasAnyPermission(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok, "empty any-of requirement fails closed")

	ok, err = svc.HasAllPermissions(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok, "empty all-of requirement fails closed")

	ok, err = svc.HasAnyRole(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSalespersonDefaults(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	sales, _ := svc.GetRoleByName(ctx, RoleSalesperson)
	require.NoError(t, svc.AssignRole(ctx, 5, sales.ID))

	ok, err := svc.HasAnyPermission(ctx, 5, PermCreateSales)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasAnyPermission(ctx, 5, PermDeleteProducts)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.HasAllPermissions(ctx, 5, PermViewSales, PermCreateSales)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasAllPermissions(ctx, 5, PermViewSales, PermManageRoles)
	require.NoError(t, err)
	require.False(t, ok)

	yes, err := svc.IsSalesperson(ctx, 5)
	require.NoError(t, err)
	require.True(t, yes)

	no, err := svc.IsOwner(ctx, 5)
	require.NoError(t, err)
	require.False(t, no)
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	svc, repo := provisionedService(t)
	ctx := context.Background()

	owner, _ := svc.GetRoleByName(ctx, RoleOwner)
	require.NoError(t, svc.AssignRole(ctx, 9, owner.ID))
	require.NoError(t, svc.AssignRole(ctx, 9, owner.ID))

	names, err := svc.UserRoles(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, []string{RoleOwner}, names)
	require.Len(t, repo.userRoles[9], 1)

	// Removing twice is equally harmless.
	require.NoError(t, svc.RemoveRole(ctx, 9, owner.ID))
	require.NoError(t, svc.RemoveRole(ctx, 9, owner.ID))
}

func TestSetRolePermissionsReplacesExactly(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "auditor", "Auditor", "Read-only reviewer")
	require.NoError(t, err)

	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []string{PermViewReports, PermViewProducts}))
	require.NoError(t, svc.SetRolePermissions(ctx, role.ID, []string{PermViewReports, PermExportReports}))

	granted, err := svc.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{PermViewReports, PermExportReports}, granted)
}

func TestPermissionUnionAcrossRoles(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	sales, _ := svc.GetRoleByName(ctx, RoleSalesperson)
	auditor, err := svc.CreateRole(ctx, "auditor", "Auditor", "")
	require.NoError(t, err)
	require.NoError(t, svc.SetRolePermissions(ctx, auditor.ID, []string{PermExportReports, PermViewProducts}))

	require.NoError(t, svc.SyncUserRoles(ctx, 7, []int64{sales.ID, auditor.ID}))

	perms, err := svc.UserPermissions(ctx, 7)
	require.NoError(t, err)
	require.Contains(t, perms, PermExportReports)
	require.Contains(t, perms, PermCreateSales)

	// view_products comes from both roles but appears once.
	count := 0
	for _, p := range perms {
		if p == PermViewProducts {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, RoleOwner, "Owner again", "")
	require.ErrorIs(t, err, shared.ErrDuplicateName)
}

func TestNamesAreNormalized(t *testing.T) {
	svc, _ := provisionedService(t)
	ctx := context.Background()

	sales, _ := svc.GetRoleByName(ctx, RoleSalesperson)
	require.NoError(t, svc.AssignRole(ctx, 3, sales.ID))

	ok, err := svc.HasAnyPermission(ctx, 3, "  View_Products  ")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasAnyRole(ctx, 3, " SALESPERSON ")
	require.NoError(t, err)
	require.True(t, ok)
}

package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-erp/bodega/internal/auth"
	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
)

type stubUsers struct {
	user *auth.User
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

type stubRoles struct {
	assigned map[int64][]string
}

func (s *stubRoles) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return []rbac.Role{
		{ID: 1, Name: rbac.RoleOwner},
		{ID: 2, Name: rbac.RoleSalesperson},
		{ID: 3, Name: rbac.RoleCustomer},
	}, nil
}

func (s *stubRoles) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	roles, _ := s.ListRoles(ctx)
	for _, role := range roles {
		if role.Name == name {
			return role, nil
		}
	}
	return rbac.Role{}, shared.ErrNotFound
}

func (s *stubRoles) AssignRoleByName(ctx context.Context, userID int64, name string) error {
	if s.assigned == nil {
		s.assigned = map[int64][]string{}
	}
	s.assigned[userID] = append(s.assigned[userID], name)
	return nil
}

func (s *stubRoles) UserRoles(ctx context.Context, userID int64) ([]string, error) {
	return s.assigned[userID], nil
}

func TestAssignRoleSuccess(t *testing.T) {
	users := &stubUsers{user: &auth.User{ID: 7, Email: "maria@test.local"}}
	roles := &stubRoles{}
	cli := NewAssignRoleCLI(users, roles)

	msg, err := cli.Run(context.Background(), " Maria@Test.Local ", "OWNER")
	require.NoError(t, err)
	require.Contains(t, msg, "owner")
	require.Contains(t, msg, "roles: owner")
	require.Equal(t, []string{"owner"}, roles.assigned[7])
}

func TestAssignRoleUserNotFound(t *testing.T) {
	cli := NewAssignRoleCLI(&stubUsers{}, &stubRoles{})

	_, err := cli.Run(context.Background(), "ghost@test.local", "owner")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no account registered")
}

func TestAssignRoleUnknownRoleListsAvailable(t *testing.T) {
	users := &stubUsers{user: &auth.User{ID: 7, Email: "maria@test.local"}}
	roles := &stubRoles{}
	cli := NewAssignRoleCLI(users, roles)

	_, err := cli.Run(context.Background(), "maria@test.local", "superadmin")
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown role "superadmin"`)
	require.Contains(t, err.Error(), "customer, owner, salesperson")
	require.Empty(t, roles.assigned)
}

func TestParseAssignRoleArgsPositional(t *testing.T) {
	email, role, err := ParseAssignRoleArgs([]string{"maria@test.local", "owner"})
	require.NoError(t, err)
	require.Equal(t, "maria@test.local", email)
	require.Equal(t, "owner", role)
}

func TestParseAssignRoleArgsFlags(t *testing.T) {
	email, role, err := ParseAssignRoleArgs([]string{"-email", "maria@test.local", "-role", "owner"})
	require.NoError(t, err)
	require.Equal(t, "maria@test.local", email)
	require.Equal(t, "owner", role)
}

func TestParseAssignRoleArgsMixed(t *testing.T) {
	email, role, err := ParseAssignRoleArgs([]string{"-email", "maria@test.local", "owner"})
	require.NoError(t, err)
	require.Equal(t, "maria@test.local", email)
	require.Equal(t, "owner", role)
}

func TestAssignRoleRequiresArguments(t *testing.T) {
	cli := NewAssignRoleCLI(&stubUsers{}, &stubRoles{})

	_, err := cli.Run(context.Background(), "", "owner")
	require.Error(t, err)

	_, err = cli.Run(context.Background(), "maria@test.local", "")
	require.Error(t, err)
}

package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/bodega-erp/bodega/internal/auth"
	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
)

// ParseAssignRoleArgs resolves the email and role from the subcommand
// arguments. The positional form `assign-role <email> <role>` is the
// primary shape; -email/-role flags are accepted as well.
func ParseAssignRoleArgs(args []string) (string, string, error) {
	fs := flag.NewFlagSet("assign-role", flag.ContinueOnError)
	email := fs.String("email", "", "email of the account to modify")
	role := fs.String("role", "", "role to grant (owner, salesperson, customer)")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}

	e, r := *email, *role
	rest := fs.Args()
	if e == "" && len(rest) > 0 {
		e = rest[0]
		rest = rest[1:]
	}
	if r == "" && len(rest) > 0 {
		r = rest[0]
	}
	return e, r, nil
}

// UserFinder resolves accounts by email. Satisfied by auth.Repository.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
}

// RoleDirectory is the role surface the CLI needs. Satisfied by
// *rbac.Service.
type RoleDirectory interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRoleByName(ctx context.Context, name string) (rbac.Role, error)
	AssignRoleByName(ctx context.Context, userID int64, name string) error
	UserRoles(ctx context.Context, userID int64) ([]string, error)
}

// AssignRoleCLI grants a role to an existing account from the command
// line, typically used to bootstrap the first owner.
type AssignRoleCLI struct {
	users UserFinder
	roles RoleDirectory
}

// NewAssignRoleCLI builds the CLI helper.
func NewAssignRoleCLI(users UserFinder, roles RoleDirectory) *AssignRoleCLI {
	return &AssignRoleCLI{users: users, roles: roles}
}

// Run grants roleName to the account registered under email. The
// returned message is suitable for printing to the operator.
func (c *AssignRoleCLI) Run(ctx context.Context, email, roleName string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	roleName = strings.ToLower(strings.TrimSpace(roleName))
	if email == "" || roleName == "" {
		return "", errors.New("assign-role: email and role are required")
	}

	user, err := c.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", fmt.Errorf("assign-role: no account registered as %s", email)
		}
		return "", err
	}

	if _, err := c.roles.GetRoleByName(ctx, roleName); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			available, listErr := c.availableRoles(ctx)
			if listErr != nil {
				return "", fmt.Errorf("assign-role: unknown role %q", roleName)
			}
			return "", fmt.Errorf("assign-role: unknown role %q (available: %s)", roleName, available)
		}
		return "", err
	}

	if err := c.roles.AssignRoleByName(ctx, user.ID, roleName); err != nil {
		return "", err
	}

	held, err := c.roles.UserRoles(ctx, user.ID)
	if err != nil {
		return "", err
	}
	sort.Strings(held)
	return fmt.Sprintf("granted role %q to %s (roles: %s)", roleName, email, strings.Join(held, ", ")), nil
}

func (c *AssignRoleCLI) availableRoles(ctx context.Context) (string, error) {
	roles, err := c.roles.ListRoles(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", "), nil
}

package rbac

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/bodega-erp/bodega/internal/shared"
)

// Provision reconciles the stored catalog against the compiled-in
// permission table and seeds the fixed roles with their default
// permission sets. Re-running it is safe: existing permissions are
// matched by machine name and left untouched, existing roles keep
// their current permission assignments.
func Provision(ctx context.Context, svc *Service, logger *slog.Logger) error {
	for _, def := range AllPermissions() {
		if _, err := svc.repo.EnsurePermission(ctx, def); err != nil {
			return fmt.Errorf("rbac: ensure permission %s: %w", def.Name, err)
		}
	}

	defaults := DefaultRolePermissions()
	for _, seed := range roleSeeds {
		role, err := svc.GetRoleByName(ctx, seed.name)
		if errors.Is(err, shared.ErrNotFound) {
			role, err = svc.CreateRole(ctx, seed.name, seed.displayName, seed.description)
			if err != nil {
				return fmt.Errorf("rbac: create role %s: %w", seed.name, err)
			}
			if err := svc.SetRolePermissions(ctx, role.ID, defaults[seed.name]); err != nil {
				return fmt.Errorf("rbac: set permissions for %s: %w", seed.name, err)
			}
			if logger != nil {
				logger.Info("provisioned role", slog.String("role", seed.name), slog.Int("permissions", len(defaults[seed.name])))
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("rbac: lookup role %s: %w", seed.name, err)
		}
		// Existing roles keep operator-managed permission sets.
	}

	return verifyCatalog(ctx, svc)
}

// verifyCatalog checks the post-provisioning invariant: the stored
// machine-name set equals the compiled-in set, with no orphans and
// nothing missing.
func verifyCatalog(ctx context.Context, svc *Service) error {
	stored, err := svc.ListPermissions(ctx)
	if err != nil {
		return err
	}
	want := make(map[string]struct{}, len(catalog))
	for _, def := range catalog {
		want[def.Name] = struct{}{}
	}
	got := make(map[string]struct{}, len(stored))
	for _, p := range stored {
		if _, ok := want[p.Name]; !ok {
			return fmt.Errorf("rbac: orphan permission %q in storage", p.Name)
		}
		got[p.Name] = struct{}{}
	}
	for name := range want {
		if _, ok := got[name]; !ok {
			return fmt.Errorf("rbac: permission %q missing from storage", name)
		}
	}
	return nil
}

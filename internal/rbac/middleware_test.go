package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-erp/bodega/internal/shared"
)

func requestAs(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/products", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func guardedService(t *testing.T) Middleware {
	t.Helper()
	svc, _ := provisionedService(t)
	ctx := context.Background()

	sales, err := svc.GetRoleByName(ctx, RoleSalesperson)
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 5, sales.ID))

	return Middleware{Service: svc}
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	mw := guardedService(t)
	handler := mw.RequirePermission(PermViewProducts)(okHandler())

	// No session at all.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Session present but anonymous.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs(""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissionForbidden(t *testing.T) {
	mw := guardedService(t)
	handler := mw.RequirePermission(PermDeleteProducts)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermissionGranted(t *testing.T) {
	mw := guardedService(t)
	handler := mw.RequirePermission(PermViewProducts)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionEmptyGuardFailsClosed(t *testing.T) {
	mw := guardedService(t)
	handler := mw.RequirePermission()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllPermissions(t *testing.T) {
	mw := guardedService(t)

	rec := httptest.NewRecorder()
	mw.RequireAllPermissions(PermViewSales, PermCreateSales)(okHandler()).ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireAllPermissions(PermViewSales, PermManageRoles)(okHandler()).ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole(t *testing.T) {
	mw := guardedService(t)

	rec := httptest.NewRecorder()
	mw.RequireRole(RoleSalesperson)(okHandler()).ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireRole(RoleOwner)(okHandler()).ServeHTTP(rec, requestAs("5"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCurrentUserIDRejectsGarbage(t *testing.T) {
	mw := Middleware{}

	_, ok := mw.CurrentUserID(requestAs("not-a-number"))
	require.False(t, ok)

	id, ok := mw.CurrentUserID(requestAs("42"))
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

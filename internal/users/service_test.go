package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
)

type fakeRepo struct {
	users  map[int64]User
	hashes map[int64]string
	roles  map[int64]map[string]bool
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]User{}, hashes: map[int64]string{}, roles: map[int64]map[string]bool{}}
}

func (f *fakeRepo) ListUsers(ctx context.Context, page, limit int) ([]User, int, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) ListByRole(ctx context.Context, role string, page, limit int, search string) ([]Customer, int, error) {
	var out []Customer
	for id, u := range f.users {
		if f.roles[id][role] {
			out = append(out, Customer{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetByRole(ctx context.Context, role string, id int64) (Customer, error) {
	u, ok := f.users[id]
	if !ok || !f.roles[id][role] {
		return Customer{}, shared.ErrNotFound
	}
	return Customer{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

func (f *fakeRepo) CreateUser(ctx context.Context, input CustomerInput, passwordHash string) (int64, error) {
	for _, u := range f.users {
		if u.Email == input.Email {
			return 0, shared.ErrDuplicateName
		}
	}
	f.nextID++
	f.users[f.nextID] = User{ID: f.nextID, Name: input.Name, Surname: input.Surname, Email: input.Email}
	f.hashes[f.nextID] = passwordHash
	return f.nextID, nil
}

func (f *fakeRepo) UpdateUser(ctx context.Context, id int64, input CustomerInput) error {
	u, ok := f.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Name, u.Surname, u.Email = input.Name, input.Surname, input.Email
	f.users[id] = u
	return nil
}

func (f *fakeRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.users, id)
	delete(f.roles, id)
	return nil
}

type fakeRoles struct {
	repo *fakeRepo
}

func (f *fakeRoles) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return []rbac.Role{{ID: 1, Name: rbac.RoleOwner}, {ID: 2, Name: rbac.RoleSalesperson}, {ID: 3, Name: rbac.RoleCustomer}}, nil
}

func (f *fakeRoles) AssignRoleByName(ctx context.Context, userID int64, name string) error {
	if f.repo.roles[userID] == nil {
		f.repo.roles[userID] = map[string]bool{}
	}
	f.repo.roles[userID][name] = true
	return nil
}

func (f *fakeRoles) SyncUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	names := map[int64]string{1: rbac.RoleOwner, 2: rbac.RoleSalesperson, 3: rbac.RoleCustomer}
	f.repo.roles[userID] = map[string]bool{}
	for _, id := range roleIDs {
		if name, ok := names[id]; ok {
			f.repo.roles[userID][name] = true
		}
	}
	return nil
}

func (f *fakeRoles) HasAnyRole(ctx context.Context, userID int64, required ...string) (bool, error) {
	for _, name := range required {
		if f.repo.roles[userID][name] {
			return true, nil
		}
	}
	return false, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, &fakeRoles{repo: repo}), repo
}

func TestCreateCustomerGrantsCustomerRole(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	id, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Ana", Email: "ana@test.local", Password: "longenough"})
	require.NoError(t, err)
	require.True(t, repo.roles[id][rbac.RoleCustomer])

	// Password is stored hashed, never verbatim.
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[id]), []byte("longenough")))
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Ana", Email: "ana@test.local", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "Ana II", Email: "ANA@test.local ", Password: "longenough"})
	require.ErrorIs(t, err, shared.ErrDuplicateName)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, CustomerInput{Email: "x@test.local", Password: "longenough"})
	require.Error(t, err)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "Ana", Email: "not-an-email", Password: "longenough"})
	require.Error(t, err)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "Ana", Email: "x@test.local", Password: "short"})
	require.Error(t, err)
}

func TestUpdateCustomerRequiresCustomerRole(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	// A plain user without the customer role is invisible to the
	// customer directory.
	repo.nextID++
	repo.users[repo.nextID] = User{ID: repo.nextID, Name: "Staff", Email: "staff@test.local"}

	err := svc.UpdateCustomer(ctx, repo.nextID, CustomerInput{Name: "Staff", Email: "staff@test.local"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteCustomer(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	id, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Ana", Email: "ana@test.local", Password: "longenough"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCustomer(ctx, id))
	require.NotContains(t, repo.users, id)

	require.ErrorIs(t, svc.DeleteCustomer(ctx, id), shared.ErrNotFound)
}

func TestSyncRolesUnknownUser(t *testing.T) {
	svc, _ := newTestService()
	err := svc.SyncRoles(context.Background(), 99, []int64{1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSyncRolesReplacesSet(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	id, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Ana", Email: "ana@test.local", Password: "longenough"})
	require.NoError(t, err)

	require.NoError(t, svc.SyncRoles(ctx, id, []int64{2}))
	require.True(t, repo.roles[id][rbac.RoleSalesperson])
	require.False(t, repo.roles[id][rbac.RoleCustomer])
}

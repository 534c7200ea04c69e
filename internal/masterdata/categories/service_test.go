package categories

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-erp/bodega/internal/masterdata/shared"
)

type fakeRepo struct {
	categories map[int64]Category
	inUse      map[int64]bool
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{categories: map[int64]Category{}, inUse: map[int64]bool{}}
}

func (f *fakeRepo) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	var out []Category
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) Create(ctx context.Context, category Category) (Category, error) {
	for _, c := range f.categories {
		if c.Name == category.Name {
			return Category{}, shared.ErrDuplicate
		}
	}
	f.nextID++
	category.ID = f.nextID
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, category Category) error {
	if _, ok := f.categories[id]; !ok {
		return shared.ErrNotFound
	}
	category.ID = id
	f.categories[id] = category
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.categories[id]; !ok {
		return shared.ErrNotFound
	}
	if f.inUse[id] {
		return shared.ErrInUse
	}
	delete(f.categories, id)
	return nil
}

func TestCreateCategory(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Category{Name: "Beverages"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = svc.Create(ctx, Category{Name: "Beverages"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateCategoryValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Category{Name: "  "})
	require.Error(t, err)

	_, err = svc.Create(ctx, Category{Name: strings.Repeat("x", 101)})
	require.Error(t, err)
}

func TestDeleteCategoryInUse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Category{Name: "Beverages"})
	require.NoError(t, err)
	repo.inUse[created.ID] = true

	require.ErrorIs(t, svc.Delete(ctx, created.ID), shared.ErrInUse)
	require.Contains(t, repo.categories, created.ID)
}

func TestInvalidIDs(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
	require.ErrorIs(t, svc.Update(ctx, -1, Category{Name: "x"}), shared.ErrInvalidID)
	require.ErrorIs(t, svc.Delete(ctx, 0), shared.ErrInvalidID)
}

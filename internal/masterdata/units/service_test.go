package units

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bodega-erp/bodega/internal/masterdata/shared"
)

type fakeRepo struct {
	units  map[int64]Unit
	inUse  map[int64]bool
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{units: map[int64]Unit{}, inUse: map[int64]bool{}}
}

func (f *fakeRepo) List(ctx context.Context, filters shared.ListFilters) ([]Unit, int, error) {
	var out []Unit
	for _, u := range f.units {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Unit, error) {
	u, ok := f.units[id]
	if !ok {
		return Unit{}, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) Create(ctx context.Context, unit Unit) (Unit, error) {
	for _, u := range f.units {
		if u.Name == unit.Name {
			return Unit{}, shared.ErrDuplicate
		}
	}
	f.nextID++
	unit.ID = f.nextID
	f.units[unit.ID] = unit
	return unit, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, unit Unit) error {
	if _, ok := f.units[id]; !ok {
		return shared.ErrNotFound
	}
	unit.ID = id
	f.units[id] = unit
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.units[id]; !ok {
		return shared.ErrNotFound
	}
	if f.inUse[id] {
		return shared.ErrInUse
	}
	delete(f.units, id)
	return nil
}

func TestCreateUnit(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Unit{Name: "Kilogram", Abbreviation: "kg"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = svc.Create(ctx, Unit{Name: "Kilogram", Abbreviation: "kg"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateUnitValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Unit{Name: "", Abbreviation: "kg"})
	require.Error(t, err)

	_, err = svc.Create(ctx, Unit{Name: "Kilogram", Abbreviation: ""})
	require.Error(t, err)

	_, err = svc.Create(ctx, Unit{Name: "Kilogram", Abbreviation: "toolongabbrev"})
	require.Error(t, err)
}

func TestDeleteUnitInUse(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Unit{Name: "Kilogram", Abbreviation: "kg"})
	require.NoError(t, err)
	repo.inUse[created.ID] = true

	require.ErrorIs(t, svc.Delete(ctx, created.ID), shared.ErrInUse)
}

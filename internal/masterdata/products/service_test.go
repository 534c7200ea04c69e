package products

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bodega-erp/bodega/internal/masterdata/shared"
)

type fakeRepo struct {
	products map[int64]Product
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[int64]Product{}}
}

func (f *fakeRepo) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (Product, error) {
	for _, p := range f.products {
		if p.Code == code {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (f *fakeRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, p := range f.products {
		if p.Code == product.Code {
			return Product{}, shared.ErrDuplicate
		}
	}
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, product Product) error {
	existing, ok := f.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	product.Stock = existing.Stock
	if product.ImagePath == "" {
		product.ImagePath = existing.ImagePath
	}
	f.products[id] = product
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeRepo) CountAll(ctx context.Context) (int, error) {
	return len(f.products), nil
}

func (f *fakeRepo) ListBelowMinimum(ctx context.Context) ([]Product, error) {
	var out []Product
	for _, p := range f.products {
		if p.LowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func validProduct() Product {
	return Product{
		Code:       "BEV-001",
		Name:       "Cola 1.5L",
		CategoryID: 1,
		UnitID:     1,
		UnitPrice:  decimal.RequireFromString("1.80"),
		MinStock:   10,
	}
}

func newTestService() (*Service, *fakeRepo, *imageRecorder) {
	repo := newFakeRepo()
	images := &imageRecorder{}
	return NewService(repo, images), repo, images
}

type imageRecorder struct {
	saved   []string
	removed []string
}

var _ ImageStore = (*imageRecorder)(nil)

func (r *imageRecorder) Save(code, filename string, content io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	r.saved = append(r.saved, filename)
	return code + "-" + filename, nil
}

func (r *imageRecorder) Remove(path string) error {
	r.removed = append(r.removed, path)
	return nil
}

func TestCreateProduct(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validProduct(), nil)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Contains(t, repo.products, created.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Product)
	}{
		{"missing code", func(p *Product) { p.Code = " " }},
		{"missing name", func(p *Product) { p.Name = "" }},
		{"missing category", func(p *Product) { p.CategoryID = 0 }},
		{"missing unit", func(p *Product) { p.UnitID = 0 }},
		{"negative price", func(p *Product) { p.UnitPrice = decimal.RequireFromString("-1") }},
		{"negative minimum", func(p *Product) { p.MinStock = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProduct()
			tc.mutate(&p)
			_, err := svc.Create(ctx, p, nil)
			require.Error(t, err)
		})
	}
}

func TestCreateProductDuplicateCode(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, validProduct(), nil)
	require.NoError(t, err)

	dup := validProduct()
	dup.Name = "Another cola"
	_, err = svc.Create(ctx, dup, nil)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateProductStoresImage(t *testing.T) {
	svc, repo, images := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validProduct(), &Upload{
		Filename: "cola.png",
		Content:  strings.NewReader("fake-png-bytes"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ImagePath)
	require.Equal(t, []string{"cola.png"}, images.saved)
	require.Equal(t, created.ImagePath, repo.products[created.ID].ImagePath)
}

func TestUpdateProductKeepsStock(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validProduct(), nil)
	require.NoError(t, err)

	// Stock is managed by stock movements only.
	p := repo.products[created.ID]
	p.Stock = 25
	repo.products[created.ID] = p

	edited := validProduct()
	edited.Name = "Cola 1.5L (returnable)"
	require.NoError(t, svc.Update(ctx, created.ID, edited, nil))
	require.Equal(t, int64(25), repo.products[created.ID].Stock)
	require.Equal(t, "Cola 1.5L (returnable)", repo.products[created.ID].Name)
}

func TestDeleteProductRemovesImage(t *testing.T) {
	svc, repo, images := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validProduct(), &Upload{
		Filename: "cola.png",
		Content:  strings.NewReader("fake-png-bytes"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.NotContains(t, repo.products, created.ID)
	require.Equal(t, []string{created.ImagePath}, images.removed)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestListBelowMinimum(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validProduct(), nil)
	require.NoError(t, err)

	p := repo.products[created.ID]
	p.Stock = 5
	repo.products[created.ID] = p

	low, err := svc.ListBelowMinimum(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.True(t, low[0].LowStock())
}

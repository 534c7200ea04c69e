package products

import (
	"context"
	"io"

	"github.com/bodega-erp/bodega/internal/masterdata/shared"
)

// ImageStore persists uploaded product images and returns the path the
// stored file can be served from.
type ImageStore interface {
	Save(productCode string, filename string, content io.Reader) (string, error)
	Remove(path string) error
}

type Service struct {
	repo   Repository
	images ImageStore
}

func NewService(repo Repository, images ImageStore) *Service {
	return &Service{repo: repo, images: images}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, product Product, image *Upload) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	if image != nil {
		path, err := s.images.Save(product.Code, image.Filename, image.Content)
		if err != nil {
			return Product{}, err
		}
		product.ImagePath = path
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product, image *Upload) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(product); err != nil {
		return err
	}
	if image != nil {
		path, err := s.images.Save(product.Code, image.Filename, image.Content)
		if err != nil {
			return err
		}
		product.ImagePath = path
	}
	return s.repo.Update(ctx, id, product)
}

// Delete removes the product and its stored image. Products referenced
// by stock movements fail with shared.ErrInUse from the FK constraint.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if product.ImagePath != "" {
		// Image cleanup failure must not undo the delete.
		_ = s.images.Remove(product.ImagePath)
	}
	return nil
}

func (s *Service) CountAll(ctx context.Context) (int, error) {
	return s.repo.CountAll(ctx)
}

// ListBelowMinimum returns products whose stock has fallen to or below
// their configured minimum.
func (s *Service) ListBelowMinimum(ctx context.Context) ([]Product, error) {
	return s.repo.ListBelowMinimum(ctx)
}

// Upload carries an uploaded image file.
type Upload struct {
	Filename string
	Content  io.Reader
}

package products

import (
	"errors"
	"strings"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return errors.New("product code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("product name is required")
	}
	if p.CategoryID <= 0 {
		return errors.New("product category is required")
	}
	if p.UnitID <= 0 {
		return errors.New("product unit is required")
	}
	if p.UnitPrice.IsNegative() {
		return errors.New("product unit price cannot be negative")
	}
	if p.MinStock < 0 {
		return errors.New("product minimum stock cannot be negative")
	}
	return nil
}

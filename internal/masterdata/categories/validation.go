package categories

import (
	"errors"
	"strings"
)

func (s *Service) validate(c Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("category name is required")
	}
	if len(c.Name) > 100 {
		return errors.New("category name must be at most 100 characters")
	}
	return nil
}

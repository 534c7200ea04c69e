package units

import (
	"errors"
	"strings"
)

func (s *Service) validate(u Unit) error {
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("unit name is required")
	}
	if strings.TrimSpace(u.Abbreviation) == "" {
		return errors.New("unit abbreviation is required")
	}
	if len(u.Abbreviation) > 10 {
		return errors.New("unit abbreviation must be at most 10 characters")
	}
	return nil
}

package service

import (
	"errors"
	"fmt"

	"github.com/ucu-innovators/hub/internal/modules/policy"
	"gorm.io/gorm"
)

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("%w: ...") for detail.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("service unavailable")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// fromPolicy maps a gate decision onto the service error kinds.
func fromPolicy(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, policy.ErrUnauthenticated):
		// anonymous callers are refused, not challenged
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, policy.ErrStateConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
}

// fromRepo translates storage errors; what names the missing entity.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

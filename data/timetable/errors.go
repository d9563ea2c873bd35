package timetable

// errors leaving this package are wrapped in one of these so callers can
// decide what to report without looking at driver errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// the class payload was incomplete, nothing was written
	ErrValidation = errors.New("invalid class")

	// the repository could not be reached, retrying later could work
	ErrStoreUnavailable = errors.New("store unavailable")

	// a week document with the same start date already exists
	//    repositories return this when their uniqueness constraint fires
	ErrDuplicateWeek = errors.New("duplicate week")

	// placement kept losing races with other writers
	ErrPlacementConflict = errors.New("could not place class")

	ErrWeekNotFound = errors.New("week not found")
)

type ValidationError struct {
	Missing []string
	Unknown []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown options: "+strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Unavailable wraps a driver error so it matches ErrStoreUnavailable
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}

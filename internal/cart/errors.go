package cart

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
)

var (
	// ErrDuplicateFound signals that a matching line already exists. It is a decision
	// point for the caller, not a failure.
	ErrDuplicateFound = errors.New("duplicate cart item")
	// ErrItemNotFound is returned when an operation targets an unknown id.
	ErrItemNotFound = errors.New("cart item not found")
)

// DuplicateError carries the existing line that matched the duplicate identity.
type DuplicateError struct {
	Existing Item
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("item matches existing cart item %s", e.Existing.ID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateFound
}

// AsDuplicate extracts the duplicate signal from err.
func AsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

func notFound(id string) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrItemNotFound, fmt.Sprintf("cart item %s not found", id))
}

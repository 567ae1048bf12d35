package cartsync

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/quotecart/internal/cart"
)

// Kind classifies a failed persisted-cart call.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindHTTP              Kind = "http"
	KindDuplicateRejected Kind = "duplicate_rejected"
	KindTimeout           Kind = "timeout"
)

// ErrRemovePending is returned to updates superseded by a remove of the same line.
var ErrRemovePending = errors.New("cart item is being removed")

// SyncError is returned for every failed remote call. Nothing retries it automatically.
type SyncError struct {
	Kind    Kind
	Op      string
	ItemID  string
	Status  int
	Message string
	// DuplicateID names the server-side line that rejected an add.
	DuplicateID string
	Err         error
}

func (e *SyncError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("cart sync %s (%s, status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("cart sync %s (%s): %s", e.Op, e.Kind, msg)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is lets a rejected add match cart.ErrDuplicateFound.
func (e *SyncError) Is(target error) bool {
	return e.Kind == KindDuplicateRejected && target == cart.ErrDuplicateFound
}

// AsSyncError extracts a *SyncError from err.
func AsSyncError(err error) (*SyncError, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HTTPError builds the error for a non-2xx response.
func HTTPError(status int, message string) *SyncError {
	return &SyncError{Kind: KindHTTP, Status: status, Message: message}
}

// DuplicateRejected builds the error for an add the server refused as a duplicate.
func DuplicateRejected(status int, duplicateID, message string) *SyncError {
	return &SyncError{Kind: KindDuplicateRejected, Status: status, DuplicateID: duplicateID, Message: message}
}

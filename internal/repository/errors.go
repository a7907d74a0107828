package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("user not found")

// DuplicateKeyError reports a unique-index violation on Field ("email" or "username").
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s: %v", e.Field, e.Err)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// AsDuplicateKey extracts a *DuplicateKeyError from err.
func AsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

const (
	// Index and constraint names are referenced when classifying violations.
	EmailIndexName    = "users_email_key"
	UsernameIndexName = "users_username_key"
)

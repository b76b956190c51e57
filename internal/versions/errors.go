package versions

import "errors"

var (
	ErrNotFound = errors.New("generation version not found")
	// ErrAlreadyExists signals a duplicate versionKey for the same document
	// and kind; callers observe the existing record.
	ErrAlreadyExists = errors.New("generation version already exists")
	// ErrTerminal guards completed/failed versions against rewrites.
	ErrTerminal = errors.New("generation version already terminal")
)

package documents

import "errors"

var (
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists signals a duplicate ingestion submission; callers
	// observe the existing record instead of re-processing.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInvalidTransition guards the state machine: the requested status
	// change is not defined from the document's current status.
	ErrInvalidTransition = errors.New("invalid document status transition")
	// ErrInsufficientText rejects generation jobs whose parent document has
	// too little extracted text to work with.
	ErrInsufficientText = errors.New("document text too short for generation")
)

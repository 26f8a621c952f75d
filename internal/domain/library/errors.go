package library

import "errors"

var (
	// ErrInvalidInput indicates input that the backend would reject.
	ErrInvalidInput = errors.New("invalid library input")
	// ErrInconsistentBook indicates a book whose copy counts break 0 <= available <= total.
	ErrInconsistentBook = errors.New("inconsistent book copy counts")
)

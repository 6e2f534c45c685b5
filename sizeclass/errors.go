package sizeclass

import "errors"

var (
	// ErrZeroSize indicates a zero or negative request size.
	ErrZeroSize = errors.New("sizeclass: request size must be positive")

	// ErrSizeTooLarge indicates a request above MaxBytes. Such requests must
	// go through a large-object path, which this pool does not provide.
	ErrSizeTooLarge = errors.New("sizeclass: request exceeds MaxBytes")
)

// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., promo code taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotRedeemable indicates a promo code that is missing, expired or exhausted.
	ErrNotRedeemable = errors.New("not redeemable")
)

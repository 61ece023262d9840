package order

import "errors"

var (
	// ErrInvalidAmount rejects a creation whose deposit/amount ratio breaks
	// the auction guard, or a non-positive amount anywhere.
	ErrInvalidAmount = errors.New("order: invalid amount")
	// ErrNotFound reports an unknown order identifier.
	ErrNotFound = errors.New("order: not found")
	// ErrUnauthorized reports a caller not permitted to perform the
	// attempted transition.
	ErrUnauthorized = errors.New("order: unauthorized")
	// ErrInvalidState reports a transition attempted from a status that
	// does not permit it.
	ErrInvalidState = errors.New("order: invalid state")
	// ErrBidTooLow reports an insurance bid under the auction's current
	// minimum price.
	ErrBidTooLow = errors.New("order: bid below minimum price")
	// ErrInsufficientFunds reports a caller account that cannot cover the
	// value attached to the call.
	ErrInsufficientFunds = errors.New("order: insufficient funds")
)

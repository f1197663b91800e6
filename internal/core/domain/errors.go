package domain

import "errors"

var (
	// ErrMalformedEvent means the webhook body could not be decoded into a known shape.
	ErrMalformedEvent = errors.New("malformed gateway event")
	// ErrLookupMiss means no escrow transaction or payout matches the event's key.
	// Gateway test events hit this routinely; it is never surfaced to the caller.
	ErrLookupMiss = errors.New("no matching record for gateway event")
)

package espnow

import "errors"

var (
	// ErrLinkDown reports that a send was skipped because the last known
	// delivery outcome was a failure. It is a no-op, not a counted failure.
	ErrLinkDown = errors.New("link down, transmission skipped")

	// ErrUnrecoverable reports that bring-up exhausted its retry budget.
	ErrUnrecoverable = errors.New("link bring-up failed after all retries")

	// ErrInvalidChannel reports a channel outside the valid 1-13 range.
	ErrInvalidChannel = errors.New("invalid channel (valid range: 1-13)")

	// ErrNotInitialized reports use of the radio protocol before Init.
	ErrNotInitialized = errors.New("radio protocol not initialized")

	// ErrUnknownPeer reports a send addressed to an unregistered peer.
	ErrUnknownPeer = errors.New("peer not registered")
)

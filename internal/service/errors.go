package service

import "errors"

var (
	// ErrSyncInProgress is returned to a concurrent sync trigger while a run
	// of the same kind is in flight. It is never queued or silently dropped.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrInvalidSignature rejects an inbound webhook before any processing.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrNotFound signals a missing local record.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidStatus rejects an unknown order status on the push path.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrMissingCredentials signals that the marketplace cannot be called
	// before API credentials are configured.
	ErrMissingCredentials = errors.New("marketplace credentials not configured")

	// ErrNotRetryable rejects a reprocess request for an event that is not
	// in the FAILED state.
	ErrNotRetryable = errors.New("only FAILED events can be reprocessed")
)

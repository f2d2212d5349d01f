package sync

import "errors"

// Sync failure taxonomy. Every failed run terminates with exactly one of
// these wrapped in its terminal progress event. An empty feed is not a
// failure: it completes as a zero-count success.
var (
	// ErrConnectionNotFound means no sync connection exists for the
	// requested (property, platform) pair.
	ErrConnectionNotFound = errors.New("sync connection not found")

	// ErrInvalidFeedURL means the connection's feed URL is malformed or
	// not HTTP(S). Raised before any network call.
	ErrInvalidFeedURL = errors.New("invalid feed url")

	// ErrFetchFailed means the feed could not be retrieved: transport
	// error, timeout, or non-2xx response. The run aborts with nothing
	// imported; retry is the caller's call, never automatic.
	ErrFetchFailed = errors.New("feed fetch failed")

	// ErrPersistence means a store write failed. Rows imported before the
	// failure stay committed.
	ErrPersistence = errors.New("persistence failure")
)

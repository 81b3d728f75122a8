package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested entity does not exist remotely
	ErrNotFound = errors.New("entity not found")

	// ErrServerOffline indicates the catalog API is unreachable
	ErrServerOffline = errors.New("catalog API is unreachable")

	// ErrAuthFailed indicates the session credentials were rejected
	ErrAuthFailed = errors.New("session is invalid")

	// ErrNotLoggedIn indicates an operation that requires a user session
	// was attempted without one
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrRateLimited indicates the remote rejected the request with a
	// too-many-requests status. Batch fetches must abort on it instead
	// of retrying.
	ErrRateLimited = errors.New("too many requests")

	// ErrTokenConflict indicates a playlist mutation was rejected because
	// the version token was stale. The caller must re-fetch the playlist
	// before retrying.
	ErrTokenConflict = errors.New("playlist version token is stale")

	// ErrMissingToken indicates a playlist mutation was attempted and no
	// version token could be obtained even after a fresh fetch.
	ErrMissingToken = errors.New("no version token for playlist")

	// ErrMoveIncomplete indicates a move added the entry to the target
	// playlist but failed to remove it from the source, leaving it in
	// both. There is no automatic rollback.
	ErrMoveIncomplete = errors.New("entry added to target but not removed from source")
)

package state

import "errors"

var (
	// ErrUnknownTab indicates a tab name outside dashboard, books and members.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrNotReady indicates the container has not finished its first load.
	ErrNotReady = errors.New("state not ready")
	// ErrNotAuthenticated indicates the container has no valid session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStale indicates a refresh finished after a newer one started; its
	// results were discarded.
	ErrStale = errors.New("stale refresh discarded")
)

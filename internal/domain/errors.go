package domain

import "errors"

var (
	// ErrNotFound means the provider answered but had no match.
	ErrNotFound = errors.New("no geocoding result")
	// ErrServiceUnavailable means the provider is not configured or not ready.
	ErrServiceUnavailable = errors.New("geocoding service unavailable")
	// ErrFetchFailed means the catalog source could not be read.
	ErrFetchFailed = errors.New("catalog fetch failed")
	// ErrPersistFailed means the snapshot could not be written.
	ErrPersistFailed = errors.New("snapshot persist failed")
	// ErrUnresolvable is returned to callers of on-demand resolution.
	ErrUnresolvable = errors.New("location not found")
	// ErrAttemptsExhausted means an entry hit its per-session attempt cap.
	ErrAttemptsExhausted = errors.New("resolution attempts exhausted")
	// ErrAlreadyRunning guards the batch pipeline against reentry.
	ErrAlreadyRunning = errors.New("pipeline already running")
	// ErrNoNearbyEntries means an area search matched no catalog entries.
	ErrNoNearbyEntries = errors.New("no catalog entries in area")
	// ErrUnknownEntry means an identity is not present in the live catalog.
	ErrUnknownEntry = errors.New("unknown catalog entry")
)

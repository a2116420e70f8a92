package repository

import "errors"

var (
	// ErrNetwork covers transport errors, request timeouts and non-2xx responses.
	ErrNetwork = errors.New("network failure")
	// ErrExtractionMiss means the response arrived but held no stream URL.
	ErrExtractionMiss = errors.New("stream url not found in response")
	// ErrCycleTimeout is recorded for channels abandoned at the cycle deadline,
	// and returned by fetchers whose rate limit cannot be met before it.
	ErrCycleTimeout = errors.New("cycle deadline exceeded")
	// ErrCycleInProgress is returned when another replica holds the cycle lock.
	ErrCycleInProgress = errors.New("crawl cycle already in progress")
	// ErrSnapshotNotFound is returned by a snapshot cache holding nothing yet.
	ErrSnapshotNotFound = errors.New("no cached snapshot")
)

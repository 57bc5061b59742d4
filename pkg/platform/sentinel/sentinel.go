package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and source clients return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: no identity exists for the requested key
// - ErrNoQuery: a search was issued with an empty term
// - ErrCacheMiss: no cached snapshot exists for a source
// - ErrUnavailable: a source or backing resource is temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrNoQuery     = errors.New("no query supplied")
	ErrCacheMiss   = errors.New("cache miss")
	ErrUnavailable = errors.New("unavailable")
)

// Package source holds what the individual source clients share: the fetch
// error type and the stable source names used for caching and metrics.
package source

import "fmt"

// Source names, used as cache keys and metric labels.
const (
	Inquiries        = "inquiries"
	Cases            = "cases"
	LegacyPersons    = "legacy_persons"
	LegacyBusinesses = "legacy_businesses"
	Forms            = "forms"
	Projects         = "projects"
)

// FetchError marks a failed source fetch. It is fatal to any view that
// depends on the source: callers must never merge against partial data, and
// zero results must remain distinguishable from a failed fetch.
type FetchError struct {
	Source   string
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err as a fetch failure for the named source.
func NewFetchError(src, endpoint string, err error) *FetchError {
	return &FetchError{Source: src, Endpoint: endpoint, Err: err}
}

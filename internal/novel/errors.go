package novel

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// FetchError wraps a transport or non-2xx failure for a single URL.
// It is the only retryable error in the taxonomy.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UnsupportedDomainError means no site adapter matches the URL's domain.
// Terminal and non-retryable.
type UnsupportedDomainError struct {
	Domain string
}

func (e *UnsupportedDomainError) Error() string {
	return fmt.Sprintf("unsupported domain: %s", e.Domain)
}

// NoChaptersFoundError means every chapter-list selector strategy came up
// empty, which usually signals the site's page structure changed.
type NoChaptersFoundError struct {
	Site string
	URL  string
}

func (e *NoChaptersFoundError) Error() string {
	return fmt.Sprintf("no chapters found on %s for %s", e.Site, e.URL)
}

// PersistenceError wraps a failed store write. The extraction result must
// be treated as not-yet-committed; the request stays retryable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure may succeed on a later attempt.
// Only transport-level fetch failures qualify; adapter and structure
// errors are terminal for the URL.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

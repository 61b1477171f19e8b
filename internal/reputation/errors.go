package reputation

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the cache and its collaborators.
var (
	ErrNotFound        = errors.New("reputation record not found")
	ErrDuplicateKey    = errors.New("reputation record already exists")
	ErrDomainImmutable = errors.New("domain of a stored record cannot change")
)

// InvalidDomainError is returned when an input cannot be turned into a canonical domain.
type InvalidDomainError struct {
	Input string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain name: %q", e.Input)
}

// FetchError wraps a failure of the remote reputation service for a domain.
type FetchError struct {
	Domain string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch reputation for %s: %v", e.Domain, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsInvalidDomain reports whether err is (or wraps) an InvalidDomainError.
func IsInvalidDomain(err error) bool {
	var target *InvalidDomainError
	return errors.As(err, &target)
}

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

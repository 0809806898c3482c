package engine

import (
	"errors"
	"fmt"
)

// ErrProfileNotFound is returned when recommendations are requested for a
// user who has never recorded a watch event. Callers must be able to tell
// this apart from "no recommendations found".
var ErrProfileNotFound = errors.New("user profile not found")

// ErrUnknownAlgorithm is returned for an algorithm name outside
// collaborative/content/hybrid.
var ErrUnknownAlgorithm = errors.New("unknown recommendation algorithm")

// ProviderError wraps a failure of the movie catalog provider. Strategy-level
// provider failures abort the whole call; only per-movie enrichment failures
// are tolerated.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("catalog provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness constraint rejected the write (e.g. a
//   notification reservation that already exists for the transition)
// - ErrUnavailable: backing service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)

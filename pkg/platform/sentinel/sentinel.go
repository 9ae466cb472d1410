package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: concurrent write lost or unique constraint hit
// - ErrDuplicate: record for this natural key already exists (e.g. a per-diem
//   payment for the same person, tour, and day)
// - ErrSequenceExhausted: a bounded counter has no numbers left to allocate
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDuplicate         = errors.New("duplicate")
	ErrSequenceExhausted = errors.New("sequence exhausted")
)

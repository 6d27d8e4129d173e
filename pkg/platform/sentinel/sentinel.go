package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors without
// knowing which store implementation produced them.
//
// These represent factual states about rows, not validation failures:
// - ErrNotFound: no non-archived row matches the key
// - ErrConflict: a storage uniqueness constraint rejected the write
// - ErrUnavailable: the store itself failed or timed out
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)

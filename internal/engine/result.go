package engine

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when a sync is attempted without a
// stable user identity. The engine refuses to run before any remote
// call is made, so throwaway identities cannot fragment remote rows.
var ErrNotAuthenticated = errors.New("sync requires a stable user identity")

// ErrPartialBatch marks a batch where some items succeeded and others
// failed. This is an expected, first-class outcome: the result still
// carries the number of successes.
var ErrPartialBatch = errors.New("some attempts failed to sync")

// Result is the universal outcome shape. Every engine operation
// collapses into one of these; no error escapes an engine boundary
// unwrapped.
//
// Success is true only when the whole operation applied cleanly.
// SyncedCount reflects the number of items applied even when
// Success is false, so partial progress is reported, not hidden.
type Result struct {
	Success     bool
	SyncedCount int
	Err         error
}

// String renders the result for logs and CLI output.
func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("ok (synced=%d)", r.SyncedCount)
	}
	return fmt.Sprintf("failed (synced=%d): %v", r.SyncedCount, r.Err)
}

// LightResult is the outcome of a staleness probe. The probe is
// best-effort and never fails its caller, so there is no error field:
// a degraded or offline probe reports zero counts.
type LightResult struct {
	CheckedCount int
	UpdatedCount int
}

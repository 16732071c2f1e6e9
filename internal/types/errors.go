package types

import "errors"

// Error taxonomy for the data layer. Store reads on a missing row return
// ErrNotFound; identifier races on create surface as ErrConflict before the
// retry loop resolves them. Any other store error means the relational
// backend itself failed and is propagated as-is. Cache errors never reach
// callers: the cache layer logs them and degrades to a no-op.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("identifier conflict")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

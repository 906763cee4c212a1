package registry

import (
	"errors"

	"crate-registry/perm"
)

// ErrStoreUnavailable is returned when no artifact store is configured
// for an operation that needs one.
var ErrStoreUnavailable = errors.New("artifact store unavailable")

// PermissionError reports a capability check failure. It is produced
// before any mutation begins, so a denied operation leaves all state
// untouched.
type PermissionError struct {
	Capability perm.Permission
}

func (e *PermissionError) Error() string {
	return "permission denied: requires " + e.Capability.String()
}

// IsPermissionDenied reports whether err is a capability failure, for
// callers mapping errors onto a transport (403 and friends).
func IsPermissionDenied(err error) bool {
	var permErr *PermissionError

	return errors.As(err, &permErr)
}

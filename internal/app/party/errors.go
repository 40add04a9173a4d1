package party

import "errors"

// The engine's error taxonomy. Everything here is a deterministic business
// rejection safe to surface to the actor; anything else bubbling out of the
// service is an infrastructure failure to be logged and retried.
var (
	ErrPermissionDenied = errors.New("permission_denied")
	ErrQuotaExceeded    = errors.New("quota_exceeded")
	ErrNotFound         = errors.New("not_found")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity_exceeded")
	ErrRateLimited      = errors.New("rate_limited")
	ErrInvalidRequest   = errors.New("invalid_request")
)

// IsBusinessRejection reports whether err is one of the deterministic
// rejections above, as opposed to a backing-store failure.
func IsBusinessRejection(err error) bool {
	for _, e := range []error{
		ErrPermissionDenied, ErrQuotaExceeded, ErrNotFound,
		ErrConflict, ErrCapacityExceeded, ErrRateLimited, ErrInvalidRequest,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

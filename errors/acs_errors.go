// api/errors/acs_errors.go
package errors

import "errors"

var (
	ErrACSUnavailable     = errors.New("access-control system unavailable")
	ErrACSOperationFailed = errors.New("access-control operation failed")
)

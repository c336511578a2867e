// api/errors/system_errors.go
package errors

import "errors"

var (
	ErrSystemNotFound    = errors.New("system not found")
	ErrInvalidSystemData = errors.New("invalid system data")
	ErrSystemConflict    = errors.New("system already exists")
	ErrSystemInUse       = errors.New("system has access links or job history")
)

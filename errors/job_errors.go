// api/errors/job_errors.go
package errors

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidJobData    = errors.New("invalid job data")
	ErrScriptNotFound    = errors.New("script not found")
	ErrInvalidScriptData = errors.New("invalid script data")
)

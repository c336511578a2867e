// api/errors/request_errors.go
package errors

import "errors"

var (
	ErrRequestNotFound         = errors.New("request not found")
	ErrInvalidRequestData      = errors.New("invalid request data")
	ErrDuplicateRequest        = errors.New("duplicate pending request")
	ErrRequestAlreadyProcessed = errors.New("request already processed")
	ErrCancelNotAllowed        = errors.New("only the requester or an administrator may cancel a request")
)

// api/errors/role_errors.go
package errors

import "errors"

var (
	ErrRoleNotFound    = errors.New("role not found")
	ErrInvalidRoleData = errors.New("invalid role data")
)

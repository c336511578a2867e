// api/errors/link_errors.go
package errors

import "errors"

var (
	ErrLinkNotFound    = errors.New("access link not found")
	ErrInvalidLinkData = errors.New("invalid access link data")
	ErrDuplicateLink   = errors.New("access link already exists")
)

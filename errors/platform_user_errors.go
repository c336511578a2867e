// api/errors/platform_user_errors.go
package errors

import "errors"

var (
	ErrPlatformUserNotFound    = errors.New("platform user not found")
	ErrInvalidPlatformUserData = errors.New("invalid platform user data")
	ErrPlatformUserConflict    = errors.New("platform user already exists")
	ErrLastActiveAdmin         = errors.New("cannot remove the last active administrator")
)

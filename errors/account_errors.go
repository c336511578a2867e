// api/errors/account_errors.go
package errors

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccountData = errors.New("invalid account data")
)

// api/acs/status.go
package acs

import "fmt"

// Stored-procedure return codes of the access-control database. Zero is
// success; -999 is reserved for connection failure so callers can tell
// it apart from logical failures.
const (
	CodeOK               = 0
	CodeSQLServerError   = 9
	CodeInternalError    = -1
	CodeConnectionFailed = -999
)

var statusMessages = map[int]string{
	CodeOK:               "operation completed",
	101:                  "person number cannot be empty",
	102:                  "person number already in use",
	103:                  "person number does not exist",
	201:                  "person name cannot be empty",
	301:                  "card number cannot be empty",
	302:                  "card number already in use",
	303:                  "card number must be greater than 100 and less than 4294967295",
	304:                  "person already has a card number",
	305:                  "person has no card number",
	401:                  "department group does not exist",
	501:                  "door or floor name cannot be empty",
	502:                  "door or floor name does not exist",
	601:                  "time-slot index must be less than 254",
	602:                  "privilege type does not exist",
	701:                  "department name cannot be empty",
	702:                  "department already in use",
	703:                  "parent department does not exist",
	704:                  "specified department does not exist",
	CodeSQLServerError:   "SQL Server error",
	CodeInternalError:    "database operation failed",
	CodeConnectionFailed: "database connection failed",
}

// StatusMessage maps a stored-procedure return code to its operator
// message.
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("unknown stored procedure return code: %d", code)
}

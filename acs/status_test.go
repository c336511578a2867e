// api/acs/status_test.go
package acs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "operation completed", StatusMessage(CodeOK))
	assert.Equal(t, "person number does not exist", StatusMessage(103))
	assert.Equal(t, "database connection failed", StatusMessage(CodeConnectionFailed))
	assert.Equal(t, "SQL Server error", StatusMessage(CodeSQLServerError))
	assert.Equal(t, "unknown stored procedure return code: 42", StatusMessage(42))
}

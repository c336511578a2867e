// api/service/directory_service_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labops/labportal/api/util"
)

func newDirectoryService(env *testEnv) *DirectoryService {
	return NewDirectoryService(env.accounts, env.roles, util.NewValidationUtil(),
		util.NewCacheService(), util.NewNotificationService(), util.NewEventBus())
}

func TestFindOrCreateAccountKeepsCreationDisplayName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newDirectoryService(env)

	created, err := svc.FindOrCreateAccount(ctx, "zhangsan", "张三")
	require.NoError(t, err)

	// Resolving the same login again, in a different case and with a
	// different display name, returns the existing account unchanged.
	resolved, err := svc.FindOrCreateAccount(ctx, "ZhangSan", "张三（新）")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
	assert.Equal(t, "张三", resolved.DisplayName)

	stored, err := env.accounts.GetAccount(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "张三", stored.DisplayName)
}

func TestFindOrCreateAccountRejectsEmptyFields(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := newDirectoryService(env)

	_, err := svc.FindOrCreateAccount(ctx, "", "张三")
	assert.Error(t, err)

	_, err = svc.FindOrCreateAccount(ctx, "zhangsan", "")
	assert.Error(t, err)
}

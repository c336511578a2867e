// api/service/link_service_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
)

func TestCreateLinkRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	account, err := env.accounts.FindOrCreateAccount(ctx, "zhangsan", "张三")
	require.NoError(t, err)
	env.links.addLink(system.ID, account.ID, model.LinkKindComputer, "Administrator")

	_, err = env.linkSvc.CreateLink(ctx, model.AccessLink{
		Kind:      model.LinkKindComputer,
		SystemID:  system.ID,
		AccountID: account.ID,
		Role:      "administrator",
	}, "operator-1")
	assert.ErrorIs(t, err, portal_errors.ErrDuplicateLink)

	// The same role on the other link kind is a different grant.
	created, err := env.linkSvc.CreateLink(ctx, model.AccessLink{
		Kind:      model.LinkKindWorkstation,
		SystemID:  system.ID,
		AccountID: account.ID,
		Role:      "Administrator",
	}, "operator-1")
	require.NoError(t, err)
	assert.True(t, created.Active)
}

func TestCreateWorkstationLinkCanonicalisesRole(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	account, err := env.accounts.FindOrCreateAccount(ctx, "zhangsan", "张三")
	require.NoError(t, err)
	role, err := env.roles.FindOrCreateRoleByName(ctx, "Analyst")
	require.NoError(t, err)

	created, err := env.linkSvc.CreateLink(ctx, model.AccessLink{
		Kind:      model.LinkKindWorkstation,
		SystemID:  system.ID,
		AccountID: account.ID,
		Role:      "ANALYST",
	}, "operator-1")
	require.NoError(t, err)
	assert.Equal(t, role.ID, created.RoleID)
	assert.Equal(t, "Analyst", created.Role, "the catalog spelling wins")
}

func TestSetLinkActiveUnknownLink(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	err := env.linkSvc.SetLinkActive(ctx, "link-missing", false, "operator-1")
	assert.ErrorIs(t, err, portal_errors.ErrLinkNotFound)
}

func TestListLinksBySystemUnknownSystem(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.linkSvc.ListLinksBySystem(ctx, "system-missing")
	assert.ErrorIs(t, err, portal_errors.ErrSystemNotFound)
}

func TestImportLinksSkipsBadLinesWithoutAborting(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	existing, err := env.accounts.FindOrCreateAccount(ctx, "lisi", "李四")
	require.NoError(t, err)
	env.links.addLink(system.ID, existing.ID, model.LinkKindComputer, "User")

	lines := []string{
		"zhangsan,张三,Administrator", // fine
		"broken line",               // wrong field count
		"",                          // blank, silently ignored
		"wangwu, ,User",             // empty field
		"lisi,李四,User",              // duplicate of the existing grant
		"zhaoliu,赵六,User",           // fine
	}
	result, err := env.linkSvc.ImportLinks(ctx, system.ID, model.LinkKindComputer, lines, "operator-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Skipped, 3)
	assert.Equal(t, 2, result.Skipped[0].Line)
	assert.Equal(t, 4, result.Skipped[1].Line)
	assert.Equal(t, 5, result.Skipped[2].Line)
	assert.Equal(t, "link already exists", result.Skipped[2].Reason)

	details, err := env.links.ListLinksBySystem(ctx, system.ID)
	require.NoError(t, err)
	assert.Len(t, details, 3)
}

func TestImportLinksResolvesWorkstationRolesOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("CDS-01", "Empower", "lab-cds-01")

	lines := []string{
		"zhangsan,张三,操作员",
		"lisi,李四,操作员",
	}
	result, err := env.linkSvc.ImportLinks(ctx, system.ID, model.LinkKindWorkstation, lines, "operator-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	roles, err := env.roles.ListRoles(ctx, 100, 0)
	require.NoError(t, err)
	assert.Len(t, roles, 1, "both rows must bind the same catalog role")
}

func TestImportLinksUnknownSystem(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.linkSvc.ImportLinks(ctx, "system-missing", model.LinkKindComputer, []string{"a,b,c"}, "operator-1")
	assert.ErrorIs(t, err, portal_errors.ErrSystemNotFound)
}

func TestImportLinksInvalidKind(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	_, err := env.linkSvc.ImportLinks(ctx, system.ID, model.LinkKind("printer"), []string{"a,b,c"}, "operator-1")
	assert.ErrorIs(t, err, portal_errors.ErrInvalidLinkData)
}

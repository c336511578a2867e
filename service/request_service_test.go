// api/service/request_service_test.go
package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
)

func TestSubmitAddAccountRejectsDuplicatePending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	payload := model.AddAccountPayload{
		SystemID:     system.ID,
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}
	_, err := env.requestSvc.SubmitAddAccount(ctx, payload, "operator-1", "")
	require.NoError(t, err)

	// The same login in a different case is still the same account.
	payload.Login = "ZhangSan"
	_, err = env.requestSvc.SubmitAddAccount(ctx, payload, "operator-2", "")
	assert.ErrorIs(t, err, portal_errors.ErrDuplicateRequest)
}

func TestSubmitAddAccountAfterDecisionIsAllowed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	payload := model.AddAccountPayload{
		SystemID:     system.ID,
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}
	first, err := env.requestSvc.SubmitAddAccount(ctx, payload, "operator-1", "")
	require.NoError(t, err)
	require.NoError(t, env.requestSvc.CancelRequest(ctx, first.ID, "operator-1", model.PlatformRoleQC))

	// Only pending requests guard against duplicates.
	_, err = env.requestSvc.SubmitAddAccount(ctx, payload, "operator-1", "")
	assert.NoError(t, err)
}

func TestSubmitAddAccountUnknownSystem(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.requestSvc.SubmitAddAccount(ctx, model.AddAccountPayload{
		SystemID:     "system-missing",
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}, "operator-1", "")
	assert.ErrorIs(t, err, portal_errors.ErrSystemNotFound)
}

func TestSubmitAddAccountWithoutRolesIsAccepted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	// Both role fields are optional. A rolesless request just
	// registers the account in the directory.
	submitted, err := env.requestSvc.SubmitAddAccount(ctx, model.AddAccountPayload{
		SystemID:    system.ID,
		Login:       "zhangsan",
		DisplayName: "张三",
	}, "operator-1", "")
	require.NoError(t, err)

	decided, err := env.reconSvc.Approve(ctx, submitted.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCompleted, decided.Status)

	account, err := env.accounts.GetAccountByLogin(ctx, "zhangsan")
	require.NoError(t, err)
	links, err := env.links.ListLinksByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestSubmitDisableByDisplayNameFansOut(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	// Two distinct logins sharing one display name, plus an unrelated
	// account.
	first, err := env.accounts.FindOrCreateAccount(ctx, "zhangsan", "张三")
	require.NoError(t, err)
	_, err = env.accounts.FindOrCreateAccount(ctx, "zhangsan2", "张三")
	require.NoError(t, err)
	_, err = env.accounts.FindOrCreateAccount(ctx, "lisi", "李四")
	require.NoError(t, err)

	// One of the two already has a pending disable request.
	_, err = env.requests.CreateRequest(ctx, model.Request{
		Kind:        model.RequestKindDisableAccount,
		RequestedBy: "operator-0",
		DisableAccount: &model.DisableAccountPayload{
			AccountID: first.ID,
		},
	})
	require.NoError(t, err)

	submission, err := env.requestSvc.SubmitDisableByDisplayName(ctx, "张三", "operator-1", "left the lab")
	require.NoError(t, err)
	assert.Equal(t, 1, submission.Created)
	assert.Equal(t, 1, submission.Skipped)
	assert.Len(t, submission.RequestIDs, 1)
}

func TestSubmitDisableByDisplayNameNoMatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.requestSvc.SubmitDisableByDisplayName(ctx, "不存在", "operator-1", "")
	assert.ErrorIs(t, err, portal_errors.ErrAccountNotFound)
}

func TestSubmitPartialDisableSnapshotsSelection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "Agilent 1260", "lab-hplc-01")
	account, err := env.accounts.FindOrCreateAccount(ctx, "zhangsan", "张三")
	require.NoError(t, err)
	selected := env.links.addLink(system.ID, account.ID, model.LinkKindComputer, "User")
	env.links.addLink(system.ID, account.ID, model.LinkKindWorkstation, "操作员")

	submitted, err := env.requestSvc.SubmitPartialDisable(ctx, account.ID, []string{selected.ID}, "operator-1", "")
	require.NoError(t, err)

	require.NotNil(t, submitted.PartialDisable)
	require.Len(t, submitted.PartialDisable.Links, 1)
	snapshot := submitted.PartialDisable.Links[0]
	assert.Equal(t, selected.ID, snapshot.LinkID)
	assert.Equal(t, model.LinkKindComputer, snapshot.Kind)
	assert.Equal(t, "Agilent 1260", snapshot.SystemName)
	assert.Equal(t, "User", snapshot.Role)
	assert.Equal(t, "张三", submitted.PartialDisable.DisplayName)
}

func TestSubmitPartialDisableRejectsForeignLinks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")
	owner, err := env.accounts.FindOrCreateAccount(ctx, "zhangsan", "张三")
	require.NoError(t, err)
	other, err := env.accounts.FindOrCreateAccount(ctx, "lisi", "李四")
	require.NoError(t, err)
	foreign := env.links.addLink(system.ID, other.ID, model.LinkKindComputer, "User")

	_, err = env.requestSvc.SubmitPartialDisable(ctx, owner.ID, []string{foreign.ID}, "operator-1", "")
	assert.ErrorIs(t, err, portal_errors.ErrLinkNotFound)
}

func TestSubmitPartialDisableEmptySelection(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.requestSvc.SubmitPartialDisable(ctx, "account-1", nil, "operator-1", "")
	assert.ErrorIs(t, err, portal_errors.ErrInvalidRequestData)
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	submitted, err := env.requestSvc.SubmitAddAccount(ctx, model.AddAccountPayload{
		SystemID:     system.ID,
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}, "operator-1", "")
	require.NoError(t, err)

	require.NoError(t, env.requestSvc.CancelRequest(ctx, submitted.ID, "operator-1", model.PlatformRoleQC))

	cancelled, err := env.requests.GetRequest(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, cancelled.Status)

	// The row is kept, and cannot be cancelled twice.
	err = env.requestSvc.CancelRequest(ctx, submitted.ID, "operator-1", model.PlatformRoleQC)
	assert.ErrorIs(t, err, portal_errors.ErrRequestAlreadyProcessed)
}

func TestCancelRequestRequesterOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	submitted, err := env.requestSvc.SubmitAddAccount(ctx, model.AddAccountPayload{
		SystemID:     system.ID,
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}, "operator-1", "")
	require.NoError(t, err)

	// Another operator cannot withdraw someone else's request.
	err = env.requestSvc.CancelRequest(ctx, submitted.ID, "operator-2", model.PlatformRoleQC)
	assert.ErrorIs(t, err, portal_errors.ErrCancelNotAllowed)

	pending, err := env.requests.GetRequest(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, pending.Status)

	// An administrator can.
	require.NoError(t, env.requestSvc.CancelRequest(ctx, submitted.ID, "admin-1", model.PlatformRoleAdmin))

	cancelled, err := env.requests.GetRequest(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, cancelled.Status)
}

func TestCancelRequestUnknownID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	err := env.requestSvc.CancelRequest(ctx, "request-missing", "operator-1", model.PlatformRoleQC)
	assert.ErrorIs(t, err, portal_errors.ErrRequestNotFound)
}

func TestListRequestsFilters(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	system := env.systems.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	_, err := env.requestSvc.SubmitAddAccount(ctx, model.AddAccountPayload{
		SystemID:     system.ID,
		Login:        "zhangsan",
		DisplayName:  "张三",
		ComputerRole: "User",
	}, "operator-1", "")
	require.NoError(t, err)
	_, err = env.requestSvc.SubmitACSDeletion(ctx, model.ACSDeletionPayload{
		TargetID: "10086",
	}, "operator-2", "")
	require.NoError(t, err)

	byKind, err := env.requestSvc.ListRequests(ctx, model.RequestSearchCriteria{Kind: model.RequestKindACSDeletion})
	require.NoError(t, err)
	assert.Len(t, byKind, 1)

	byRequester, err := env.requestSvc.ListRequests(ctx, model.RequestSearchCriteria{RequestedBy: "operator-1"})
	require.NoError(t, err)
	assert.Len(t, byRequester, 1)
}

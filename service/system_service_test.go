// api/service/system_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/util"
)

func newSystemEnv() (*SystemService, *fakeSystemStore) {
	store := newFakeSystemStore()
	svc := NewSystemService(store, util.NewValidationUtil(),
		util.NewCacheService(), util.NewNotificationService(), util.NewEventBus())
	return svc, store
}

func TestCreateSystemRejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSystemEnv()

	_, err := svc.CreateSystem(ctx, model.System{Code: "HPLC-01", Name: "Agilent 1260"}, "admin-1")
	require.NoError(t, err)

	_, err = svc.CreateSystem(ctx, model.System{Code: "hplc-01", Name: "Another"}, "admin-1")
	assert.ErrorIs(t, err, portal_errors.ErrSystemConflict)
}

func TestCreateSystemValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSystemEnv()

	_, err := svc.CreateSystem(ctx, model.System{Name: "no code"}, "admin-1")
	assert.Error(t, err)

	_, err = svc.CreateSystem(ctx, model.System{Code: "X-01", Name: "bad cadence", CheckIntervalDays: -7}, "admin-1")
	assert.Error(t, err)
}

func TestRecordCheckStampsTheRightCadence(t *testing.T) {
	ctx := context.Background()
	svc, store := newSystemEnv()
	system := store.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	checked := time.Now().Add(-24 * time.Hour)
	require.NoError(t, svc.RecordCheck(ctx, system.ID, false, checked, "qc-1"))

	qaChecked := time.Now().Add(-2 * time.Hour)
	require.NoError(t, svc.RecordCheck(ctx, system.ID, true, qaChecked, "qa-1"))

	stored, err := store.GetSystem(ctx, system.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	require.NotNil(t, stored.LastQACheckedAt)
	assert.True(t, stored.LastCheckedAt.Equal(checked))
	assert.True(t, stored.LastQACheckedAt.Equal(qaChecked))
}

func TestRecordCheckRejectsFutureDate(t *testing.T) {
	ctx := context.Background()
	svc, store := newSystemEnv()
	system := store.addSystem("HPLC-01", "HPLC", "lab-hplc-01")

	err := svc.RecordCheck(ctx, system.ID, false, time.Now().Add(time.Hour), "qc-1")
	assert.Error(t, err)
}

func TestNextCheckDue(t *testing.T) {
	lastChecked := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	system := model.System{
		CheckIntervalDays:   30,
		LastCheckedAt:       &lastChecked,
		QACheckIntervalDays: 90,
	}

	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), system.NextCheckDue())
	assert.True(t, system.NextQACheckDue().IsZero(), "no QA check recorded yet")

	system.CheckIntervalDays = 0
	assert.True(t, system.NextCheckDue().IsZero(), "cadence not configured")
}

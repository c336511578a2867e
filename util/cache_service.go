// api/util/cache_service.go

package util

import (
	"context"

	"github.com/labops/labportal/api/db"
	"github.com/labops/labportal/api/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	return db.GetCachedRequest(ctx, requestID)
}

func (c *CacheService) SetRequest(ctx context.Context, request model.Request) error {
	return db.CacheRequest(ctx, &request)
}

func (c *CacheService) DeleteRequest(ctx context.Context, requestID string) error {
	return db.DeleteCachedRequest(ctx, requestID)
}

func (c *CacheService) SetAccount(ctx context.Context, account model.Account) error {
	return db.CacheAccount(ctx, &account)
}

func (c *CacheService) DeleteAccount(ctx context.Context, accountID string) error {
	return db.DeleteCachedAccount(ctx, accountID)
}

func (c *CacheService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return db.GetCachedAccount(ctx, accountID)
}

func (c *CacheService) SetSystem(ctx context.Context, system model.System) error {
	return db.CacheSystem(ctx, &system)
}

func (c *CacheService) DeleteSystem(ctx context.Context, systemID string) error {
	return db.DeleteCachedSystem(ctx, systemID)
}

func (c *CacheService) GetSystem(ctx context.Context, systemID string) (*model.System, error) {
	return db.GetCachedSystem(ctx, systemID)
}

func (c *CacheService) SetScript(ctx context.Context, script model.Script) error {
	return db.CacheScript(ctx, &script)
}

func (c *CacheService) DeleteScript(ctx context.Context, scriptID string) error {
	return db.DeleteCachedScript(ctx, scriptID)
}

func (c *CacheService) GetScript(ctx context.Context, scriptID string) (*model.Script, error) {
	return db.GetCachedScript(ctx, scriptID)
}

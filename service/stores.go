// api/service/stores.go
package service

import (
	"context"
	"time"

	"github.com/labops/labportal/api/model"
)

// Consumer-side views of the persistence layer. The DAOs satisfy these;
// tests substitute in-memory implementations.

type accountStore interface {
	FindOrCreateAccount(ctx context.Context, login, displayName string) (*model.Account, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*model.Account, error)
	FindAccountsByDisplayName(ctx context.Context, displayName string) ([]*model.Account, error)
	ListAccounts(ctx context.Context, limit int, offset int) ([]*model.Account, error)
	SearchAccounts(ctx context.Context, criteria model.AccountSearchCriteria) ([]*model.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

type roleStore interface {
	FindOrCreateRoleByName(ctx context.Context, name string) (*model.Role, error)
	GetRole(ctx context.Context, roleID string) (*model.Role, error)
	ListRoles(ctx context.Context, limit int, offset int) ([]*model.Role, error)
}

type systemStore interface {
	CreateSystem(ctx context.Context, system model.System) (string, error)
	UpdateSystem(ctx context.Context, system model.System) (*model.System, error)
	DeleteSystem(ctx context.Context, systemID string) error
	GetSystem(ctx context.Context, systemID string) (*model.System, error)
	GetSystemByHostname(ctx context.Context, hostname string) (*model.System, error)
	ListSystems(ctx context.Context, limit int, offset int) ([]*model.System, error)
	RecordCheck(ctx context.Context, systemID string, qa bool, checkedAt time.Time) error
}

type linkStore interface {
	CreateLink(ctx context.Context, link model.AccessLink) (string, error)
	DuplicateLinkExists(ctx context.Context, systemID, accountID string, kind model.LinkKind, role string) (bool, error)
	FindActiveLink(ctx context.Context, systemID, accountID string, kind model.LinkKind, role string) (*model.AccessLink, error)
	SetLinksActive(ctx context.Context, linkIDs []string, active bool) (int, error)
	DisableLinksForAccount(ctx context.Context, accountID string) (int, error)
	SetComputerLinkRole(ctx context.Context, linkID, newRole string) error
	SetWorkstationLinkRole(ctx context.Context, linkID, roleID string) error
	ListLinksBySystem(ctx context.Context, systemID string) ([]*model.LinkDetail, error)
	ListLinksByAccount(ctx context.Context, accountID string) ([]*model.LinkDetail, error)
}

type requestStore interface {
	CreateRequest(ctx context.Context, request model.Request) (string, error)
	GetRequest(ctx context.Context, requestID string) (*model.Request, error)
	ListRequests(ctx context.Context, criteria model.RequestSearchCriteria) ([]*model.Request, error)
	PendingAddAccountExists(ctx context.Context, login, systemID string) (bool, error)
	PendingDisableExists(ctx context.Context, accountID string) (bool, error)
	MarkStatus(ctx context.Context, requestID string, from, to model.RequestStatus, failureReason, decidedBy string) (bool, error)
}

type scriptStore interface {
	CreateScript(ctx context.Context, script model.Script) (string, error)
	UpdateScript(ctx context.Context, script model.Script) (*model.Script, error)
	DeleteScript(ctx context.Context, scriptID string) error
	GetScript(ctx context.Context, scriptID string) (*model.Script, error)
	ListScripts(ctx context.Context, limit int, offset int) ([]*model.Script, error)
}

type jobStore interface {
	CreateJob(ctx context.Context, job model.Job) (string, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error)
	ListJobsBySystem(ctx context.Context, systemID string, limit, offset int) ([]*model.Job, error)
	ClaimPendingJobs(ctx context.Context, hostname string) ([]model.AgentJob, error)
	ReportJob(ctx context.Context, jobID string, status model.JobStatus, output string) (bool, error)
}

type platformUserStore interface {
	CreatePlatformUser(ctx context.Context, user model.PlatformUser) (string, error)
	UpdatePlatformUser(ctx context.Context, user model.PlatformUser) (*model.PlatformUser, error)
	SetPassword(ctx context.Context, userID, passwordHash string) error
	DeletePlatformUser(ctx context.Context, userID string) error
	GetPlatformUser(ctx context.Context, userID string) (*model.PlatformUser, error)
	GetPlatformUserByUsername(ctx context.Context, username string) (*model.PlatformUser, error)
	ListPlatformUsers(ctx context.Context, limit int, offset int) ([]*model.PlatformUser, error)
}

// acsGateway is the slice of the access-control client the approval
// flow needs.
type acsGateway interface {
	DeleteConsumer(ctx context.Context, consumerNo string) (int, error)
}

// resourceLocker guards a request against concurrent decisions.
type resourceLocker interface {
	Lock(ctx context.Context, resourceName string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, resourceName string) error
}

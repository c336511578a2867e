// api/service/fakes_test.go
package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/labops/labportal/api/db"
	portal_errors "github.com/labops/labportal/api/errors"
	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	zap.ReplaceGlobals(zap.NewNop())
	// Cache calls fail fast against a dead address and are treated as
	// misses by every service.
	db.RedisClient = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	os.Exit(m.Run())
}

// In-memory implementations of the store interfaces. They reproduce the
// persistence semantics the services rely on: case-insensitive
// uniqueness, conditional status transitions and idempotent link
// mutations.

type fakeAccountStore struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*model.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]*model.Account{}}
}

func (f *fakeAccountStore) FindOrCreateAccount(ctx context.Context, login, displayName string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if strings.EqualFold(account.Login, login) {
			copied := *account
			return &copied, nil
		}
	}
	f.seq++
	account := &model.Account{
		ID:          fmt.Sprintf("account-%d", f.seq),
		Login:       login,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	f.accounts[account.ID] = account
	copied := *account
	return &copied, nil
}

func (f *fakeAccountStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, portal_errors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountStore) GetAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if strings.EqualFold(account.Login, login) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, portal_errors.ErrAccountNotFound
}

func (f *fakeAccountStore) FindAccountsByDisplayName(ctx context.Context, displayName string) ([]*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*model.Account
	for _, account := range f.accounts {
		if account.DisplayName == displayName {
			copied := *account
			matched = append(matched, &copied)
		}
	}
	return matched, nil
}

func (f *fakeAccountStore) ListAccounts(ctx context.Context, limit, offset int) ([]*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.Account
	for _, account := range f.accounts {
		copied := *account
		all = append(all, &copied)
	}
	return all, nil
}

func (f *fakeAccountStore) SearchAccounts(ctx context.Context, criteria model.AccountSearchCriteria) ([]*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*model.Account
	for _, account := range f.accounts {
		if criteria.Login != "" && !strings.EqualFold(account.Login, criteria.Login) {
			continue
		}
		if criteria.DisplayName != "" && !strings.Contains(account.DisplayName, criteria.DisplayName) {
			continue
		}
		copied := *account
		matched = append(matched, &copied)
	}
	return matched, nil
}

func (f *fakeAccountStore) DeleteAccount(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[accountID]; !ok {
		return portal_errors.ErrAccountNotFound
	}
	delete(f.accounts, accountID)
	return nil
}

type fakeRoleStore struct {
	mu    sync.Mutex
	seq   int
	roles map[string]*model.Role
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{roles: map[string]*model.Role{}}
}

func (f *fakeRoleStore) FindOrCreateRoleByName(ctx context.Context, name string) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, role := range f.roles {
		if strings.EqualFold(role.Name, name) {
			copied := *role
			return &copied, nil
		}
	}
	f.seq++
	role := &model.Role{
		ID:        fmt.Sprintf("role-%d", f.seq),
		Name:      name,
		CreatedAt: time.Now(),
	}
	f.roles[role.ID] = role
	copied := *role
	return &copied, nil
}

func (f *fakeRoleStore) GetRole(ctx context.Context, roleID string) (*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[roleID]
	if !ok {
		return nil, portal_errors.ErrRoleNotFound
	}
	copied := *role
	return &copied, nil
}

func (f *fakeRoleStore) ListRoles(ctx context.Context, limit, offset int) ([]*model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.Role
	for _, role := range f.roles {
		copied := *role
		all = append(all, &copied)
	}
	return all, nil
}

type fakeSystemStore struct {
	mu      sync.Mutex
	seq     int
	systems map[string]*model.System
}

func newFakeSystemStore() *fakeSystemStore {
	return &fakeSystemStore{systems: map[string]*model.System{}}
}

func (f *fakeSystemStore) addSystem(code, name, hostname string) *model.System {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	system := &model.System{
		ID:       fmt.Sprintf("system-%d", f.seq),
		Code:     code,
		Name:     name,
		Hostname: hostname,
	}
	f.systems[system.ID] = system
	return system
}

func (f *fakeSystemStore) CreateSystem(ctx context.Context, system model.System) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.systems {
		if strings.EqualFold(existing.Code, system.Code) {
			return "", portal_errors.ErrSystemConflict
		}
	}
	f.seq++
	system.ID = fmt.Sprintf("system-%d", f.seq)
	f.systems[system.ID] = &system
	return system.ID, nil
}

func (f *fakeSystemStore) UpdateSystem(ctx context.Context, system model.System) (*model.System, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.systems[system.ID]; !ok {
		return nil, portal_errors.ErrSystemNotFound
	}
	f.systems[system.ID] = &system
	copied := system
	return &copied, nil
}

func (f *fakeSystemStore) DeleteSystem(ctx context.Context, systemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.systems[systemID]; !ok {
		return portal_errors.ErrSystemNotFound
	}
	delete(f.systems, systemID)
	return nil
}

func (f *fakeSystemStore) GetSystem(ctx context.Context, systemID string) (*model.System, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	system, ok := f.systems[systemID]
	if !ok {
		return nil, portal_errors.ErrSystemNotFound
	}
	copied := *system
	return &copied, nil
}

func (f *fakeSystemStore) GetSystemByHostname(ctx context.Context, hostname string) (*model.System, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, system := range f.systems {
		if strings.EqualFold(system.Hostname, hostname) {
			copied := *system
			return &copied, nil
		}
	}
	return nil, portal_errors.ErrSystemNotFound
}

func (f *fakeSystemStore) ListSystems(ctx context.Context, limit, offset int) ([]*model.System, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.System
	for _, system := range f.systems {
		copied := *system
		all = append(all, &copied)
	}
	return all, nil
}

func (f *fakeSystemStore) RecordCheck(ctx context.Context, systemID string, qa bool, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	system, ok := f.systems[systemID]
	if !ok {
		return portal_errors.ErrSystemNotFound
	}
	if qa {
		system.LastQACheckedAt = &checkedAt
	} else {
		system.LastCheckedAt = &checkedAt
	}
	return nil
}

type fakeLinkStore struct {
	mu       sync.Mutex
	seq      int
	links    map[string]*model.AccessLink
	systems  *fakeSystemStore
	accounts *fakeAccountStore
}

func newFakeLinkStore(systems *fakeSystemStore, accounts *fakeAccountStore) *fakeLinkStore {
	return &fakeLinkStore{
		links:    map[string]*model.AccessLink{},
		systems:  systems,
		accounts: accounts,
	}
}

func (f *fakeLinkStore) addLink(systemID, accountID string, kind model.LinkKind, role string) *model.AccessLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	link := &model.AccessLink{
		ID:        fmt.Sprintf("link-%d", f.seq),
		Kind:      kind,
		SystemID:  systemID,
		AccountID: accountID,
		Role:      role,
		Active:    true,
	}
	f.links[link.ID] = link
	return link
}

func (f *fakeLinkStore) removeLink(linkID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, linkID)
}

func (f *fakeLinkStore) CreateLink(ctx context.Context, link model.AccessLink) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	link.ID = fmt.Sprintf("link-%d", f.seq)
	link.Active = true
	f.links[link.ID] = &link
	return link.ID, nil
}

func (f *fakeLinkStore) DuplicateLinkExists(ctx context.Context, systemID, accountID string, kind model.LinkKind, role string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.SystemID == systemID && link.AccountID == accountID &&
			link.Kind == kind && strings.EqualFold(link.Role, role) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLinkStore) FindActiveLink(ctx context.Context, systemID, accountID string, kind model.LinkKind, role string) (*model.AccessLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.Active && link.SystemID == systemID && link.AccountID == accountID &&
			link.Kind == kind && strings.EqualFold(link.Role, role) {
			copied := *link
			return &copied, nil
		}
	}
	return nil, portal_errors.ErrLinkNotFound
}

func (f *fakeLinkStore) SetLinksActive(ctx context.Context, linkIDs []string, active bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	updated := 0
	for _, id := range linkIDs {
		if link, ok := f.links[id]; ok {
			link.Active = active
			updated++
		}
	}
	return updated, nil
}

func (f *fakeLinkStore) DisableLinksForAccount(ctx context.Context, accountID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	disabled := 0
	for _, link := range f.links {
		if link.AccountID == accountID && link.Active {
			link.Active = false
			disabled++
		}
	}
	return disabled, nil
}

func (f *fakeLinkStore) SetComputerLinkRole(ctx context.Context, linkID, newRole string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[linkID]
	if !ok {
		return portal_errors.ErrLinkNotFound
	}
	link.Role = newRole
	return nil
}

func (f *fakeLinkStore) SetWorkstationLinkRole(ctx context.Context, linkID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[linkID]
	if !ok {
		return portal_errors.ErrLinkNotFound
	}
	link.RoleID = roleID
	return nil
}

func (f *fakeLinkStore) detail(link *model.AccessLink) *model.LinkDetail {
	detail := &model.LinkDetail{AccessLink: *link}
	if f.systems != nil {
		if system, err := f.systems.GetSystem(context.Background(), link.SystemID); err == nil {
			detail.SystemName = system.Name
		}
	}
	if f.accounts != nil {
		if account, err := f.accounts.GetAccount(context.Background(), link.AccountID); err == nil {
			detail.Login = account.Login
			detail.DisplayName = account.DisplayName
		}
	}
	return detail
}

func (f *fakeLinkStore) ListLinksBySystem(ctx context.Context, systemID string) ([]*model.LinkDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var details []*model.LinkDetail
	for _, link := range f.links {
		if link.SystemID == systemID {
			details = append(details, f.detail(link))
		}
	}
	return details, nil
}

func (f *fakeLinkStore) ListLinksByAccount(ctx context.Context, accountID string) ([]*model.LinkDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var details []*model.LinkDetail
	for _, link := range f.links {
		if link.AccountID == accountID {
			details = append(details, f.detail(link))
		}
	}
	return details, nil
}

func (f *fakeLinkStore) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, link := range f.links {
		if link.Active {
			count++
		}
	}
	return count
}

func (f *fakeLinkStore) get(linkID string) *model.AccessLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.links[linkID]; ok {
		copied := *link
		return &copied
	}
	return nil
}

type fakeRequestStore struct {
	mu       sync.Mutex
	seq      int
	requests map[string]*model.Request
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: map[string]*model.Request{}}
}

func (f *fakeRequestStore) CreateRequest(ctx context.Context, request model.Request) (string, error) {
	if _, err := request.EncodePayload(); err != nil {
		return "", portal_errors.ErrInvalidRequestData
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	request.ID = fmt.Sprintf("request-%d", f.seq)
	request.Status = model.RequestStatusPending
	request.CreatedAt = time.Now()
	f.requests[request.ID] = &request
	return request.ID, nil
}

func (f *fakeRequestStore) GetRequest(ctx context.Context, requestID string) (*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return nil, portal_errors.ErrRequestNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRequestStore) ListRequests(ctx context.Context, criteria model.RequestSearchCriteria) ([]*model.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*model.Request
	for _, request := range f.requests {
		if criteria.Kind != "" && request.Kind != criteria.Kind {
			continue
		}
		if criteria.Status != "" && request.Status != criteria.Status {
			continue
		}
		if criteria.RequestedBy != "" && request.RequestedBy != criteria.RequestedBy {
			continue
		}
		copied := *request
		matched = append(matched, &copied)
	}
	return matched, nil
}

func (f *fakeRequestStore) PendingAddAccountExists(ctx context.Context, login, systemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, request := range f.requests {
		if request.Kind != model.RequestKindAddAccount || request.Status != model.RequestStatusPending {
			continue
		}
		if request.AddAccount.SystemID == systemID && strings.EqualFold(request.AddAccount.Login, login) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) PendingDisableExists(ctx context.Context, accountID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, request := range f.requests {
		if request.Kind != model.RequestKindDisableAccount || request.Status != model.RequestStatusPending {
			continue
		}
		if request.DisableAccount.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) MarkStatus(ctx context.Context, requestID string, from, to model.RequestStatus, failureReason, decidedBy string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return false, portal_errors.ErrRequestNotFound
	}
	if request.Status != from {
		return false, nil
	}
	now := time.Now()
	request.Status = to
	request.FailureReason = failureReason
	request.DecidedBy = decidedBy
	request.DecidedAt = &now
	request.UpdatedAt = now
	return true, nil
}

type fakeACSGateway struct {
	mu      sync.Mutex
	code    int
	err     error
	deleted []string
}

func (f *fakeACSGateway) DeleteConsumer(ctx context.Context, consumerNo string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, consumerNo)
	return f.code, f.err
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) Lock(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[resourceName] {
		return false, nil
	}
	f.held[resourceName] = true
	return true, nil
}

func (f *fakeLocker) Unlock(ctx context.Context, resourceName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, resourceName)
	return nil
}

type fakeScriptStore struct {
	mu      sync.Mutex
	seq     int
	scripts map[string]*model.Script
	jobRuns map[string]int
}

func newFakeScriptStore() *fakeScriptStore {
	return &fakeScriptStore{scripts: map[string]*model.Script{}, jobRuns: map[string]int{}}
}

func (f *fakeScriptStore) CreateScript(ctx context.Context, script model.Script) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	script.ID = fmt.Sprintf("script-%d", f.seq)
	f.scripts[script.ID] = &script
	return script.ID, nil
}

func (f *fakeScriptStore) UpdateScript(ctx context.Context, script model.Script) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.scripts[script.ID]; !ok {
		return nil, portal_errors.ErrScriptNotFound
	}
	f.scripts[script.ID] = &script
	copied := script
	return &copied, nil
}

func (f *fakeScriptStore) DeleteScript(ctx context.Context, scriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.scripts[scriptID]; !ok {
		return portal_errors.ErrScriptNotFound
	}
	if f.jobRuns[scriptID] > 0 {
		return portal_errors.ErrInvalidScriptData
	}
	delete(f.scripts, scriptID)
	return nil
}

func (f *fakeScriptStore) GetScript(ctx context.Context, scriptID string) (*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	script, ok := f.scripts[scriptID]
	if !ok {
		return nil, portal_errors.ErrScriptNotFound
	}
	copied := *script
	return &copied, nil
}

func (f *fakeScriptStore) ListScripts(ctx context.Context, limit, offset int) ([]*model.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.Script
	for _, script := range f.scripts {
		copied := *script
		all = append(all, &copied)
	}
	return all, nil
}

type fakeJobStore struct {
	mu      sync.Mutex
	seq     int
	jobs    map[string]*model.Job
	systems *fakeSystemStore
	scripts *fakeScriptStore
}

func newFakeJobStore(systems *fakeSystemStore, scripts *fakeScriptStore) *fakeJobStore {
	return &fakeJobStore{jobs: map[string]*model.Job{}, systems: systems, scripts: scripts}
}

func (f *fakeJobStore) CreateJob(ctx context.Context, job model.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	job.ID = fmt.Sprintf("job-%d", f.seq)
	job.Status = model.JobStatusPending
	job.CreatedAt = time.Now()
	f.jobs[job.ID] = &job
	return job.ID, nil
}

func (f *fakeJobStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, portal_errors.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) ListJobs(ctx context.Context, limit, offset int) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.Job
	for _, job := range f.jobs {
		copied := *job
		all = append(all, &copied)
	}
	return all, nil
}

func (f *fakeJobStore) ListJobsBySystem(ctx context.Context, systemID string, limit, offset int) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*model.Job
	for _, job := range f.jobs {
		if job.SystemID == systemID {
			copied := *job
			matched = append(matched, &copied)
		}
	}
	return matched, nil
}

func (f *fakeJobStore) ClaimPendingJobs(ctx context.Context, hostname string) ([]model.AgentJob, error) {
	system, err := f.systems.GetSystemByHostname(ctx, hostname)
	if err != nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []model.AgentJob
	for _, job := range f.jobs {
		if job.SystemID != system.ID || job.Status != model.JobStatusPending {
			continue
		}
		now := time.Now()
		job.Status = model.JobStatusRunning
		job.StartedAt = &now
		agentJob := model.AgentJob{
			JobID:      job.ID,
			SystemCode: system.Code,
		}
		if script, err := f.scripts.GetScript(ctx, job.ScriptID); err == nil {
			agentJob.ScriptName = script.Name
			agentJob.ScriptBody = script.Body
		}
		claimed = append(claimed, agentJob)
	}
	return claimed, nil
}

func (f *fakeJobStore) ReportJob(ctx context.Context, jobID string, status model.JobStatus, output string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return false, portal_errors.ErrJobNotFound
	}
	if job.Status != model.JobStatusRunning {
		return false, nil
	}
	now := time.Now()
	job.Status = status
	job.Output = output
	job.CompletedAt = &now
	return true, nil
}

type fakePlatformUserStore struct {
	mu    sync.Mutex
	seq   int
	users map[string]*model.PlatformUser
}

func newFakePlatformUserStore() *fakePlatformUserStore {
	return &fakePlatformUserStore{users: map[string]*model.PlatformUser{}}
}

func (f *fakePlatformUserStore) isLastActiveAdmin(userID string) bool {
	target, ok := f.users[userID]
	if !ok || target.Role != model.PlatformRoleAdmin || !target.Active {
		return false
	}
	admins := 0
	for _, user := range f.users {
		if user.Role == model.PlatformRoleAdmin && user.Active {
			admins++
		}
	}
	return admins == 1
}

func (f *fakePlatformUserStore) CreatePlatformUser(ctx context.Context, user model.PlatformUser) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return "", portal_errors.ErrPlatformUserConflict
		}
	}
	f.seq++
	user.ID = fmt.Sprintf("user-%d", f.seq)
	f.users[user.ID] = &user
	return user.ID, nil
}

func (f *fakePlatformUserStore) UpdatePlatformUser(ctx context.Context, user model.PlatformUser) (*model.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[user.ID]
	if !ok {
		return nil, portal_errors.ErrPlatformUserNotFound
	}
	demoting := user.Role != model.PlatformRoleAdmin || !user.Active
	if demoting && f.isLastActiveAdmin(user.ID) {
		return nil, portal_errors.ErrLastActiveAdmin
	}
	user.PasswordHash = existing.PasswordHash
	f.users[user.ID] = &user
	copied := user
	copied.PasswordHash = ""
	return &copied, nil
}

func (f *fakePlatformUserStore) SetPassword(ctx context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return portal_errors.ErrPlatformUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakePlatformUserStore) DeletePlatformUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return portal_errors.ErrPlatformUserNotFound
	}
	if f.isLastActiveAdmin(userID) {
		return portal_errors.ErrLastActiveAdmin
	}
	delete(f.users, userID)
	return nil
}

func (f *fakePlatformUserStore) GetPlatformUser(ctx context.Context, userID string) (*model.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, portal_errors.ErrPlatformUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakePlatformUserStore) GetPlatformUserByUsername(ctx context.Context, username string) (*model.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Username, username) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, portal_errors.ErrPlatformUserNotFound
}

func (f *fakePlatformUserStore) ListPlatformUsers(ctx context.Context, limit, offset int) ([]*model.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.PlatformUser
	for _, user := range f.users {
		copied := *user
		copied.PasswordHash = ""
		all = append(all, &copied)
	}
	return all, nil
}

// api/service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/labops/labportal/api/acs"
	"github.com/labops/labportal/api/audit"
	"github.com/labops/labportal/api/dao"
	"github.com/labops/labportal/api/util"
)

type Services struct {
	Directory      IDirectoryService
	System         ISystemService
	Link           ILinkService
	Request        IRequestService
	Reconciliation IReconciliationService
	Job            IJobService
	User           IUserService
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	acsClient *acs.Client,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	accountDAO := dao.NewAccountDAO(driver, auditService)
	roleDAO := dao.NewRoleDAO(driver, auditService)
	systemDAO := dao.NewSystemDAO(driver, auditService)
	linkDAO := dao.NewLinkDAO(driver, auditService)
	requestDAO := dao.NewRequestDAO(driver, auditService)
	scriptDAO := dao.NewScriptDAO(driver, auditService)
	jobDAO := dao.NewJobDAO(driver, auditService)
	platformUserDAO := dao.NewPlatformUserDAO(driver, auditService)

	services := &Services{
		Directory: NewDirectoryService(accountDAO, roleDAO, validationUtil, cacheService, notificationSvc, eventBus),
		System:    NewSystemService(systemDAO, validationUtil, cacheService, notificationSvc, eventBus),
		Link:      NewLinkService(linkDAO, accountDAO, roleDAO, systemDAO, validationUtil, notificationSvc, eventBus),
		Request:   NewRequestService(requestDAO, accountDAO, systemDAO, linkDAO, validationUtil, cacheService, notificationSvc, eventBus),
		Reconciliation: NewReconciliationService(requestDAO, accountDAO, roleDAO, linkDAO, acsClient,
			NewRedisLocker(), cacheService, notificationSvc, eventBus),
		Job:  NewJobService(jobDAO, scriptDAO, systemDAO, validationUtil, cacheService, notificationSvc, eventBus),
		User: NewUserService(platformUserDAO, validationUtil, notificationSvc, eventBus),
	}

	return services, nil
}

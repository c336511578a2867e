// api/controller/controllers.go
package controller

import (
	"github.com/labops/labportal/api/acs"
	"github.com/labops/labportal/api/service"
)

type Controllers struct {
	Account *AccountController
	System  *SystemController
	Link    *LinkController
	Request *RequestController
	Job     *JobController
	User    *UserController
	ACS     *ACSController
}

func InitializeControllers(services *service.Services, acsClient *acs.Client) *Controllers {
	return &Controllers{
		Account: NewAccountController(services.Directory),
		System:  NewSystemController(services.System),
		Link:    NewLinkController(services.Link),
		Request: NewRequestController(services.Request, services.Reconciliation),
		Job:     NewJobController(services.Job),
		User:    NewUserController(services.User),
		ACS:     NewACSController(acsClient),
	}
}

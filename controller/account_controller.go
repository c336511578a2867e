// api/controller/account_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/service"
	"github.com/labops/labportal/api/util"
	helper_util "github.com/labops/labportal/api/util/helper"
)

type AccountController struct {
	directoryService service.IDirectoryService
}

func NewAccountController(directoryService service.IDirectoryService) *AccountController {
	return &AccountController{
		directoryService: directoryService,
	}
}

// RegisterRoutes registers the API routes for the account directory
func (ac *AccountController) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", ac.ResolveAccount)
		accounts.GET("/:id", ac.GetAccount)
		accounts.GET("", ac.ListAccounts)
		accounts.GET("/search", ac.SearchAccounts)
	}
	roles := r.Group("/roles")
	{
		roles.POST("", ac.ResolveRole)
		roles.GET("/:id", ac.GetRole)
		roles.GET("", ac.ListRoles)
	}
}

// RegisterAdminRoutes registers the direct account delete, which skips
// the request workflow and so stays admin-only.
func (ac *AccountController) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.DELETE("/accounts/:id", ac.DeleteAccount)
}

// ResolveAccount endpoint: find-or-create by login
func (ac *AccountController) ResolveAccount(c *gin.Context) {
	var body struct {
		Login       string `json:"login"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid account data", portal_errors.ErrInvalidAccountData)
		return
	}

	account, err := ac.directoryService.FindOrCreateAccount(c, body.Login, body.DisplayName)
	if err != nil {
		switch err {
		case portal_errors.ErrDatabaseOperation:
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to resolve account", err)
		}
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetAccount endpoint
func (ac *AccountController) GetAccount(c *gin.Context) {
	accountID := c.Param("id")

	account, err := ac.directoryService.GetAccount(c, accountID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrAccountNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Account not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve account", err)
		}
		return
	}

	c.JSON(http.StatusOK, account)
}

// ListAccounts endpoint
func (ac *AccountController) ListAccounts(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	accounts, err := ac.directoryService.ListAccounts(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	c.JSON(http.StatusOK, accounts)
}

// SearchAccounts endpoint
func (ac *AccountController) SearchAccounts(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	criteria := model.AccountSearchCriteria{
		Login:       c.Query("login"),
		DisplayName: c.Query("display_name"),
		Limit:       limit,
		Offset:      offset,
	}

	accounts, err := ac.directoryService.SearchAccounts(c, criteria)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to search accounts", err)
		return
	}

	c.JSON(http.StatusOK, accounts)
}

// DeleteAccount endpoint
func (ac *AccountController) DeleteAccount(c *gin.Context) {
	accountID := c.Param("id")
	deleterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := ac.directoryService.DeleteAccount(c, accountID, deleterID); err != nil {
		if errors.Is(err, portal_errors.ErrAccountNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Account not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete account", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ResolveRole endpoint: find-or-create by name
func (ac *AccountController) ResolveRole(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid role data", portal_errors.ErrInvalidRoleData)
		return
	}

	role, err := ac.directoryService.FindOrCreateRole(c, body.Name)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve role", err)
		return
	}

	c.JSON(http.StatusOK, role)
}

// GetRole endpoint
func (ac *AccountController) GetRole(c *gin.Context) {
	roleID := c.Param("id")

	role, err := ac.directoryService.GetRole(c, roleID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrRoleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Role not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve role", err)
		}
		return
	}

	c.JSON(http.StatusOK, role)
}

// ListRoles endpoint
func (ac *AccountController) ListRoles(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	roles, err := ac.directoryService.ListRoles(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list roles", err)
		return
	}

	c.JSON(http.StatusOK, roles)
}

// api/controller/user_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	portal_errors "github.com/labops/labportal/api/errors"
	"github.com/labops/labportal/api/middleware"
	"github.com/labops/labportal/api/model"
	"github.com/labops/labportal/api/service"
	"github.com/labops/labportal/api/util"
	helper_util "github.com/labops/labportal/api/util/helper"
)

type UserController struct {
	userService service.IUserService
}

func NewUserController(userService service.IUserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// RegisterRoutes registers the API routes for operator administration
func (uc *UserController) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", uc.CreateUser)
		users.PUT("/:id", uc.UpdateUser)
		users.PUT("/:id/password", uc.ChangePassword)
		users.DELETE("/:id", uc.DeleteUser)
		users.GET("/:id", uc.GetUser)
		users.GET("", uc.ListUsers)
	}
}

// RegisterAuthRoutes registers the login endpoint, outside the auth
// scope.
func (uc *UserController) RegisterAuthRoutes(r *gin.RouterGroup) {
	r.POST("/login", uc.Login)
}

// Login endpoint verifies credentials and issues a session token
func (uc *UserController) Login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid login data", portal_errors.ErrInvalidPlatformUserData)
		return
	}

	user, err := uc.userService.Authenticate(c, body.Username, body.Password)
	if err != nil {
		if errors.Is(err, portal_errors.ErrUnauthorized) {
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Login failed", err)
		}
		return
	}

	token, err := middleware.IssueToken(*user)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Login failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// CreateUser endpoint
func (uc *UserController) CreateUser(c *gin.Context) {
	var body struct {
		model.PlatformUser
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid user data", portal_errors.ErrInvalidPlatformUserData)
		return
	}
	creatorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", portal_errors.ErrUnauthorized)
		return
	}

	createdUser, err := uc.userService.CreateUser(c, body.PlatformUser, body.Password, creatorID)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrPlatformUserConflict):
			util.RespondWithError(c, http.StatusConflict, "Username already taken", err)
		case errors.Is(err, portal_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, "Failed to create user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, createdUser)
}

// UpdateUser endpoint
func (uc *UserController) UpdateUser(c *gin.Context) {
	userID := c.Param("id")
	var user model.PlatformUser
	if err := c.ShouldBindJSON(&user); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid user data", err)
		return
	}
	user.ID = userID
	updaterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedUser, err := uc.userService.UpdateUser(c, user, updaterID)
	if err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrPlatformUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, portal_errors.ErrLastActiveAdmin):
			util.RespondWithError(c, http.StatusConflict, "Cannot demote the last active admin", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update user", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedUser)
}

// ChangePassword endpoint
func (uc *UserController) ChangePassword(c *gin.Context) {
	userID := c.Param("id")
	var body struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid password data", err)
		return
	}
	changerID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := uc.userService.ChangePassword(c, userID, body.Password, changerID); err != nil {
		if errors.Is(err, portal_errors.ErrPlatformUserNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		} else {
			util.RespondWithError(c, http.StatusBadRequest, "Failed to change password", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteUser endpoint
func (uc *UserController) DeleteUser(c *gin.Context) {
	userID := c.Param("id")
	deleterID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := uc.userService.DeleteUser(c, userID, deleterID); err != nil {
		switch {
		case errors.Is(err, portal_errors.ErrPlatformUserNotFound):
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		case errors.Is(err, portal_errors.ErrLastActiveAdmin):
			util.RespondWithError(c, http.StatusConflict, "Cannot delete the last active admin", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUser endpoint
func (uc *UserController) GetUser(c *gin.Context) {
	userID := c.Param("id")

	user, err := uc.userService.GetUser(c, userID)
	if err != nil {
		if errors.Is(err, portal_errors.ErrPlatformUserNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "User not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers endpoint
func (uc *UserController) ListUsers(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	users, err := uc.userService.ListUsers(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

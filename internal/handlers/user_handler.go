package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"roleadmin/internal/api/middleware"
	"roleadmin/internal/api/validator"
	"roleadmin/internal/utils/logger"
)

type UserHandler struct {
	users  UserManager
	access AccessResolver
	log    *logger.Logger
}

func NewUserHandler(users UserManager, access AccessResolver) *UserHandler {
	return &UserHandler{users: users, access: access, log: logger.New("user_handler")}
}

// ListUsers returns every user with its current balance
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "users and total"
// @Router /api/admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

// AssignRole moves a user to an existing role
// @Summary Change a user's role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body validator.AssignRoleRequest true "Role"
// @Success 200 {object} map[string]string "userId, oldRole, newRole"
// @Failure 400 {object} map[string]interface{} "Unknown role"
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /api/admin/users/{id}/role [put]
func (h *UserHandler) AssignRole(c echo.Context) error {
	var req validator.AssignRoleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	change, err := h.users.AssignRole(c.Request().Context(), c.Param("id"), req.Role, middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, change)
}

// ListModels returns the models the user's role enables
// @Summary List a user's available models
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{} "userId, availableModels, total"
// @Router /api/admin/users/{id}/models [get]
func (h *UserHandler) ListModels(c echo.Context) error {
	userID := c.Param("id")
	available := h.access.ListAvailableModels(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"userId":          userID,
		"availableModels": available,
		"total":           len(available),
	})
}

// ModelAccess resolves one model for the user
// @Summary Resolve model access and coefficient
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param model path string true "Model name"
// @Success 200 {object} map[string]interface{} "userId, model, hasAccess, coefficient, reason"
// @Router /api/admin/users/{id}/models/{model} [get]
func (h *UserHandler) ModelAccess(c echo.Context) error {
	userID, model := c.Param("id"), c.Param("model")
	decision := h.access.ResolveForUser(c.Request().Context(), userID, model)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"userId":      userID,
		"model":       model,
		"hasAccess":   decision.HasAccess,
		"coefficient": decision.Coefficient,
		"reason":      decision.Reason,
	})
}

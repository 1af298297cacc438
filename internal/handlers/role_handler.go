package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"roleadmin/internal/api/middleware"
	"roleadmin/internal/api/validator"
	"roleadmin/internal/services"
	"roleadmin/internal/utils/logger"
)

type RoleHandler struct {
	roles RoleManager
	log   *logger.Logger
}

func NewRoleHandler(roles RoleManager) *RoleHandler {
	return &RoleHandler{roles: roles, log: logger.New("role_handler")}
}

// ListRoles returns every role with its permissions and model access
// @Summary List roles
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "roles and total"
// @Failure 403 {object} map[string]interface{} "Forbidden"
// @Router /api/admin/roles [get]
func (h *RoleHandler) ListRoles(c echo.Context) error {
	roles, err := h.roles.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"roles": roles,
		"total": len(roles),
	})
}

// CreateRole stores a new role under its uppercased name
// @Summary Create a role
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validator.CreateRoleRequest true "Role"
// @Success 201 {object} map[string]interface{} "Created role"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 409 {object} map[string]interface{} "Role already exists"
// @Router /api/admin/roles [post]
func (h *RoleHandler) CreateRole(c echo.Context) error {
	var req validator.CreateRoleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	role, err := h.roles.CreateRole(c.Request().Context(), req.Name, req.Permissions, req.ModelAccess.ToModel(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"role": role})
}

// UpdateRole merges permission groups and replaces modelAccess
// @Summary Update a role
// @Description Permission groups are replaced per capability. modelAccess is replaced whole unless modelAccess=merge is given.
// @Tags roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Role name"
// @Param modelAccess query string false "replace or merge"
// @Param request body validator.UpdateRoleRequest true "Patch"
// @Success 200 {object} map[string]interface{} "Updated role"
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Role not found"
// @Router /api/admin/roles/{name} [put]
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	var req validator.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	patch := services.RoleUpdate{
		Permissions: req.Permissions,
		ModelAccess: req.ModelAccess.ToModel(),
		Mode:        services.ModelAccessMode(c.QueryParam("modelAccess")),
	}
	role, err := h.roles.UpdateRole(c.Request().Context(), c.Param("name"), patch, middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"role": role})
}

// DeleteRole removes a role no user holds
// @Summary Delete a role
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Param name path string true "Role name"
// @Success 200 {object} map[string]string "roleName"
// @Failure 404 {object} map[string]interface{} "Role not found"
// @Failure 409 {object} map[string]interface{} "Role in use"
// @Router /api/admin/roles/{name} [delete]
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	name, err := h.roles.DeleteRole(c.Request().Context(), c.Param("name"), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"roleName": name})
}

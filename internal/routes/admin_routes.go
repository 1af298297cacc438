package routes

import (
	"github.com/labstack/echo/v4"

	"roleadmin/internal/api/middleware"
	"roleadmin/internal/handlers"
	"roleadmin/internal/models"
	"roleadmin/internal/services"
	"roleadmin/internal/utils/logger"
)

// AdminDeps is what the admin routes need besides the services.
type AdminDeps struct {
	Services  *services.Services
	JWTSecret string
	// Limiter throttles mutating requests. Nil disables throttling.
	Limiter middleware.Limiter
}

// SetupAdminRoutes mounts the administrative API under /api/admin.
func SetupAdminRoutes(e *echo.Echo, deps AdminDeps) *echo.Group {
	log := logger.New("admin_routes")
	svc := deps.Services

	roleHandler := handlers.NewRoleHandler(svc.Roles)
	userHandler := handlers.NewUserHandler(svc.Users, svc.Access)
	balanceHandler := handlers.NewBalanceHandler(svc.Ledger)

	admin := e.Group("/api/admin")
	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret)
	admin.Use(authMiddleware.Middleware())
	if deps.Limiter != nil {
		admin.Use(middleware.RateLimit(deps.Limiter))
	}

	require := func(capability, action string) echo.MiddlewareFunc {
		return middleware.RequirePermission(svc.Gate, capability, action)
	}
	manageRoles := require(models.CapRoleManagement, models.ActionUpdate)
	manageBalances := require(models.CapBalanceManagement, models.ActionUpdate)

	admin.GET("/users", userHandler.ListUsers, manageRoles)
	admin.PUT("/users/:id/role", userHandler.AssignRole, manageRoles)
	admin.GET("/users/:id/models", userHandler.ListModels, manageRoles)
	admin.GET("/users/:id/models/:model", userHandler.ModelAccess, manageRoles)

	admin.PUT("/users/:id/balance", balanceHandler.SetBalance, manageBalances)
	admin.PATCH("/users/:id/balance", balanceHandler.AdjustBalance, manageBalances)
	admin.PUT("/users/:id/balance/refill", balanceHandler.ConfigureRefill, manageBalances)
	admin.GET("/users/:id/transactions", balanceHandler.Transactions, manageBalances)

	admin.GET("/roles", roleHandler.ListRoles, manageRoles)
	admin.POST("/roles", roleHandler.CreateRole, require(models.CapRoleManagement, models.ActionCreate))
	admin.PUT("/roles/:name", roleHandler.UpdateRole, manageRoles)
	admin.DELETE("/roles/:name", roleHandler.DeleteRole, require(models.CapRoleManagement, models.ActionDelete))

	log.Success("Admin routes initialized successfully")
	return admin
}

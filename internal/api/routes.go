package api

import (
	_ "roleadmin/docs/swagger"
	"roleadmin/internal/metrics"
	"roleadmin/internal/routes"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func (s *Server) registerRoutes() {
	// Health check
	// @Summary Health check
	// @Description Check if the server is running
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	routes.SetupAdminRoutes(s.echo, s.deps)
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	appmiddleware "roleadmin/internal/api/middleware"
	"roleadmin/internal/api/validator"
	"roleadmin/internal/apperr"
	"roleadmin/internal/config"
	"roleadmin/internal/metrics"
	"roleadmin/internal/routes"
	console "roleadmin/internal/utils/logger"
)

const Version = "1.0.0"

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   routes.AdminDeps
}

var log = console.New("API-Server")

// NewServer @title Role Admin API
// @version 1.0
// @description Administrative API for roles, model access and credit balances.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, deps routes.AdminDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Validator = validator.NewValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(appmiddleware.Metrics())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	e.Use(middleware.BodyLimit("1M"))
	if cfg.Server.RequestsPerSecond > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RequestsPerSecond))))
	}

	e.HTTPErrorHandler = customHTTPErrorHandler

	metrics.Init()

	s := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	log.Info("Listening on %s", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets tests drive the server without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// errorResponse maps err to a status and a JSON-ready message.
func errorResponse(err error) (int, interface{}) {
	var (
		he *echo.HTTPError
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		return he.Code, he.Message
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Fields()
	}

	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return http.StatusBadRequest, err.Error()
	case apperr.ErrNotFound:
		return http.StatusNotFound, err.Error()
	case apperr.ErrConflict:
		return http.StatusConflict, err.Error()
	case apperr.ErrForbidden:
		return http.StatusForbidden, err.Error()
	case apperr.ErrStorage:
		log.Error("storage failure", err)
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
	log.Error("unhandled error", err)
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	code, message := errorResponse(err)

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"error": message,
				"code":  code,
				"time":  time.Now().Format(time.RFC3339),
			})
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

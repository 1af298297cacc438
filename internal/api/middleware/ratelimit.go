package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Limiter admits or rejects one hit for an identifier.
type Limiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// RateLimit throttles mutating requests per authenticated user. A limiter
// failure lets the request through.
func RateLimit(l Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			id := GetUserID(c)
			if id == "" {
				id = c.RealIP()
			}
			ok, err := l.Allow(c.Request().Context(), id)
			if err != nil {
				log.Warn("rate limiter unavailable, allowing %s: %v", id, err)
				return next(c)
			}
			if !ok {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
)

// Authorizer decides whether a user holds capability.action.
type Authorizer interface {
	Authorize(ctx context.Context, userID, capability, action string) error
}

// RequirePermission rejects the request unless the caller's stored role grants
// capability.action. The role claim in the token is ignored.
func RequirePermission(gate Authorizer, capability, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := gate.Authorize(c.Request().Context(), GetUserID(c), capability, action); err != nil {
				return err
			}
			return next(c)
		}
	}
}

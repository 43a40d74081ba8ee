package echoapi

import (
	"github.com/labstack/echo/v4"
)

// roleMiddleware only lets through callers holding one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess := contextSession(ctx)
			if sess.IsAnonymous() {
				return errUnauthorized
			}
			for _, role := range roles {
				if sess.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

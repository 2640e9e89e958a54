package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/elimu/core/user"
)

// authRequired rejects anonymous requests: 401 without a token, 404 when the token's user never signed up.
func authRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := getContextClaims(ctx); err != nil {
			return middleware.ErrJWTMissing
		}
		if contextUser(ctx) == nil {
			return user.ErrNotFound
		}
		return next(ctx)
	}
}

// identityRequired only needs valid claims; sign up happens before the user exists.
func identityRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := getContextClaims(ctx); err != nil {
			return middleware.ErrJWTMissing
		}
		return next(ctx)
	}
}

package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// principalMiddleware resolves the JWT claims into an account.Principal and
// stores it on the context. With the single-session policy enabled it also
// rejects tokens issued before the account's latest login.
func principalMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			prin, err := claims.principal()
			if err != nil {
				return errUnauthorized
			}
			if auth.conf.Server.SingleSession {
				if err = auth.checkSession(ctx.Request().Context(), prin, claims); err != nil {
					return err
				}
			}
			ctx.Set(principalContextKey, prin)
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prin, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if prin.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// selfOrAdminMiddleware restricts a `/:id` subtree to admins and to the
// account of the given role whose id matches the path parameter. Unauthorized
// lookups 404 rather than leak record existence.
func selfOrAdminMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prin, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			id, err := pathID(ctx)
			if err != nil {
				return err
			}
			if prin.IsAdmin() || (prin.Role == role && prin.ID == id) {
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}

func pathID(ctx echo.Context) (int64, error) {
	return pathParamID(ctx, "id")
}

func pathParamID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

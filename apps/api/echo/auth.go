package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/core/auth"
)

const contextCallerKey = "caller"

// authMiddleware verifies the bearer token of the request and stores the caller in the context.
// A missing, malformed, tampered or expired token all fail the same way.
func authMiddleware(issuer *auth.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return core.ErrAuthenticationFailed
			}
			claims, err := issuer.Verify(token)
			if err != nil {
				return err
			}
			caller, err := claims.Caller()
			if err != nil {
				return err
			}
			ctx.Set(contextCallerKey, caller)
			return next(ctx)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func getCaller(ctx echo.Context) (auth.Caller, error) {
	if caller, ok := ctx.Get(contextCallerKey).(auth.Caller); ok {
		return caller, nil
	}
	return auth.Caller{}, core.ErrAuthenticationFailed
}

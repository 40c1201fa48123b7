package middleware

import (
	"context"
	"net/http"

	"storefront/internal/common"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// AdminClaims is the token payload accepted on catalog admin routes.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminJWT guards catalog maintenance routes. The token must be HS256 signed
// with secret; its subject is stored on the request context under
// common.AdminSubjectKey.
func AdminJWT(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(AdminClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := token.Claims.(*AdminClaims); ok {
				ctx := context.WithValue(c.Request().Context(), common.AdminSubjectKey, claims.Subject)
				c.SetRequest(c.Request().WithContext(ctx))
				c.Set("admin_role", claims.Role)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", "Invalid or missing token", nil))
		},
	})
}

// RequireRole rejects requests whose admin token does not carry role. It must
// run after AdminJWT.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got, _ := c.Get("admin_role").(string)
			if got != role {
				return c.JSON(http.StatusForbidden, common.CreateErrorResponse("FORBIDDEN", "Insufficient role", nil))
			}
			return next(c)
		}
	}
}

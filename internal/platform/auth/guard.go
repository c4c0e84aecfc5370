package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
)

const LoginPath = "/login/"

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFromContext(c.Request().Context()); !ok {
				web.Info(c, "Please log in to continue.")
				return c.Redirect(http.StatusFound, LoginPath)
			}
			return next(c)
		}
	}
}

// RequireStaff admits only staff credentials. Anonymous requests go to the
// login page; logged-in non-staff users are sent home.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				web.Info(c, "Please log in to continue.")
				return c.Redirect(http.StatusFound, LoginPath)
			}
			if !p.Staff {
				web.Error(c, "Access denied. Receptionist privileges required.")
				return c.Redirect(http.StatusFound, "/")
			}
			return next(c)
		}
	}
}

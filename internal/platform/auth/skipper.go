package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are infrastructure endpoints that carry no session and never
// change state.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// PublicSkipper returns true for requests to infrastructure endpoints. Use it
// as the Skipper for CSRF and audit middleware.
func PublicSkipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}

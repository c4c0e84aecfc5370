package web

import (
	"embed"

	"github.com/labstack/echo/v4"
)

//go:embed static
var staticFS embed.FS

// RegisterStatic serves the embedded assets under /static/.
func RegisterStatic(e *echo.Echo) {
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))
}

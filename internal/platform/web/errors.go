package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorPage is the data for error.html.
type ErrorPage struct {
	Code    int
	Message string
}

// ErrorHandler renders HTTP errors as HTML pages, or JSON for API-style
// requests. Server errors are logged and their details withheld.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := ""
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
		if code >= http.StatusInternalServerError || msg == "" {
			msg = http.StatusText(code)
		}

		if code >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", code).
				Msg("request failed")
		}

		var werr error
		switch {
		case c.Request().Method == http.MethodHead:
			werr = c.NoContent(code)
		case wantsJSON(c):
			werr = c.JSON(code, map[string]string{"error": msg})
		default:
			werr = Render(c, code, "error.html", http.StatusText(code), ErrorPage{Code: code, Message: msg})
			if werr != nil {
				werr = c.String(code, msg)
			}
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func wantsJSON(c echo.Context) bool {
	if strings.HasPrefix(c.Request().URL.Path, "/health") {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}

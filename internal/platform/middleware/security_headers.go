package middleware

import (
	"github.com/labstack/echo/v4"
)

// contentSecurityPolicy allows only same-origin resources. Inline styles are
// permitted for the page layout; scripts may open same-origin websockets.
const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"connect-src 'self' ws: wss:; form-action 'self'; frame-ancestors 'none'; base-uri 'self'"

// SecurityHeaders sets browser hardening headers on every response. HSTS is
// only sent when the site is served over TLS.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// Pages show patient data.
			h.Set("Cache-Control", "no-store")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}

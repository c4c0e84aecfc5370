package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
)

// AuditEntry records one state-changing request: who did what to which
// record, and how it ended.
type AuditEntry struct {
	CredentialID string
	Username     string
	Role         string
	Action       string
	ResourceID   string
	Method       string
	Path         string
	IPAddress    string
	UserAgent    string
	RequestID    string
	StatusCode   int
	Timestamp    time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every state-changing request (any non-GET, plus logout) with
// the acting credential. Entries always go to the structured log; recorders
// receive them as well.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			// The principal is captured before the handler runs so that
			// logout is attributed to the user who logged out.
			principal, hasPrincipal := auth.PrincipalFromContext(req.Context())

			err := next(c)

			entry := AuditEntry{
				Action:     actionFor(c.Path(), req.Method),
				ResourceID: c.Param("id"),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			if !hasPrincipal {
				principal, hasPrincipal = auth.PrincipalFromContext(c.Request().Context())
			}
			if hasPrincipal {
				entry.CredentialID = principal.CredentialID.String()
				entry.Username = principal.Username
				entry.Role = principal.Role.String()
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, rec := range recorders {
				if rec == nil {
					continue
				}
				if recErr := rec.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("credential_id", entry.CredentialID).
				Str("username", entry.Username).
				Str("role", entry.Role).
				Str("action", entry.Action).
				Str("resource_id", entry.ResourceID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("audit")

			return err
		}
	}
}

func isAuditable(method, path string) bool {
	if auth.IsPublicPath(path) {
		return false
	}
	if path == "/logout/" {
		return true
	}
	return method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions
}

// actionFor names the operation behind a route pattern.
func actionFor(route, method string) string {
	switch route {
	case "/login/":
		return "login"
	case "/logout/":
		return "logout"
	case "/appointment/request/":
		return "appointment.request"
	case "/appointment/:id/approve/":
		return "appointment.review"
	case "/appointment/:id/complete/":
		return "appointment.complete"
	case "/doctors/new/":
		return "doctor.create"
	case "/patients/new/":
		return "patient.create"
	}
	return strings.ToLower(method)
}

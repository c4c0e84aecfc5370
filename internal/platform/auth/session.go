package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
)

type contextKey string

const (
	PrincipalKey  contextKey = "principal"
	SessionCookie            = "hms_session"
	sessionIssuer            = "hospital-mgmt-system"
)

// ErrSessionRevoked is returned by a CredentialChecker when the credential
// behind a session was removed or deactivated.
var ErrSessionRevoked = errors.New("session credential revoked")

// Principal is the authenticated user carried by the session cookie.
type Principal struct {
	CredentialID uuid.UUID
	Username     string
	Role         Role
	Staff        bool
}

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"usr"`
	Role     Role   `json:"role"`
	Staff    bool   `json:"staff"`
}

type SessionConfig struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
}

// CredentialChecker re-validates a session's credential on each request and
// returns its current staff flag.
type CredentialChecker interface {
	CheckSession(ctx context.Context, credentialID uuid.UUID) (staff bool, err error)
}

// SessionManager signs principals into HS256 cookies and reads them back.
type SessionManager struct {
	cfg SessionConfig
	now func() time.Time
}

func NewSessionManager(cfg SessionConfig) *SessionManager {
	return &SessionManager{cfg: cfg, now: time.Now}
}

func (m *SessionManager) Sign(p Principal) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.CredentialID.String(),
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
			ID:        uuid.NewString(),
		},
		Username: p.Username,
		Role:     p.Role,
		Staff:    p.Staff,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) Parse(token string) (*Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("parse session subject: %w", err)
	}
	role, err := ParseRole(string(claims.Role))
	if err != nil {
		return nil, err
	}
	return &Principal{CredentialID: id, Username: claims.Username, Role: role, Staff: claims.Staff}, nil
}

// Issue sets the session cookie for p.
func (m *SessionManager) Issue(c echo.Context, p Principal) error {
	token, err := m.Sign(p)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session decodes the session cookie into the request context. A missing or
// invalid cookie leaves the request anonymous. When checker is non-nil the
// credential is re-validated and the staff flag refreshed.
func (m *SessionManager) Session(checker CredentialChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookie)
			if err != nil || ck.Value == "" {
				return next(c)
			}

			p, err := m.Parse(ck.Value)
			if err != nil {
				m.Clear(c)
				return next(c)
			}

			if checker != nil {
				staff, err := checker.CheckSession(c.Request().Context(), p.CredentialID)
				if errors.Is(err, ErrSessionRevoked) {
					m.Clear(c)
					return next(c)
				}
				if err != nil {
					return fmt.Errorf("check session: %w", err)
				}
				p.Staff = staff
				if p.Role == RoleReceptionist && !staff {
					m.Clear(c)
					return next(c)
				}
			}

			SetPrincipal(c, p)
			return next(c)
		}
	}
}

// SetPrincipal binds p to the request context and exposes it to templates.
func SetPrincipal(c echo.Context, p *Principal) {
	ctx := context.WithValue(c.Request().Context(), PrincipalKey, p)
	c.SetRequest(c.Request().WithContext(ctx))
	c.Set(web.ViewerKey, &web.Viewer{
		Username:  p.Username,
		Role:      p.Role.String(),
		RoleLabel: p.Role.Label(),
		Staff:     p.Staff,
		Dashboard: p.Role.Dashboard(),
	})
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*Principal)
	return p, ok && p != nil
}

// CredentialIDFromContext returns the logged-in credential id, or uuid.Nil.
func CredentialIDFromContext(ctx context.Context) uuid.UUID {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.CredentialID
	}
	return uuid.Nil
}

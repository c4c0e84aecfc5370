package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
)

const (
	doctorCtxKey  = "doctor_profile"
	patientCtxKey = "patient_profile"
)

type DoctorResolver interface {
	DoctorForCredential(ctx context.Context, credentialID uuid.UUID) (*Doctor, error)
}

type PatientResolver interface {
	PatientForCredential(ctx context.Context, credentialID uuid.UUID) (*Patient, error)
}

// RequireDoctor resolves the doctor profile of the logged-in credential.
// Requests without one are sent to the login page.
func RequireDoctor(svc DoctorResolver) echo.MiddlewareFunc {
	return requireProfile(doctorCtxKey, "Doctor profile not found.", func(ctx context.Context, id uuid.UUID) (any, error) {
		return svc.DoctorForCredential(ctx, id)
	})
}

// RequirePatient resolves the patient profile of the logged-in credential.
func RequirePatient(svc PatientResolver) echo.MiddlewareFunc {
	return requireProfile(patientCtxKey, "Patient profile not found.", func(ctx context.Context, id uuid.UUID) (any, error) {
		return svc.PatientForCredential(ctx, id)
	})
}

func requireProfile(key, missing string, resolve func(context.Context, uuid.UUID) (any, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := auth.PrincipalFromContext(c.Request().Context())
			if !ok {
				web.Info(c, "Please log in to continue.")
				return c.Redirect(http.StatusFound, auth.LoginPath)
			}
			profile, err := resolve(c.Request().Context(), p.CredentialID)
			if errors.Is(err, ErrNotFound) {
				web.Error(c, missing)
				return c.Redirect(http.StatusFound, auth.LoginPath)
			}
			if err != nil {
				return err
			}
			c.Set(key, profile)
			return next(c)
		}
	}
}

// DoctorFromContext returns the profile stored by RequireDoctor.
func DoctorFromContext(c echo.Context) *Doctor {
	d, _ := c.Get(doctorCtxKey).(*Doctor)
	return d
}

// PatientFromContext returns the profile stored by RequirePatient.
func PatientFromContext(c echo.Context) *Patient {
	p, _ := c.Get(patientCtxKey).(*Patient)
	return p
}

// SetDoctor and SetPatient bind a profile directly, for handlers mounted
// without the resolving middleware.
func SetDoctor(c echo.Context, d *Doctor)   { c.Set(doctorCtxKey, d) }
func SetPatient(c echo.Context, p *Patient) { c.Set(patientCtxKey, p) }

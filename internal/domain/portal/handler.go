package portal

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/scheduling"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*account.Credential, error)
	RecordLogin(ctx context.Context, id uuid.UUID) error
}

// Directory is the slice of the doctor/patient registry the portal reads.
type Directory interface {
	ProfileLookup
	PatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*identity.Patient, error)
	Counts(ctx context.Context) (doctors, patients int, err error)
}

type Appointments interface {
	ApprovedForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*scheduling.Appointment, error)
	ForPatient(ctx context.Context, patientID uuid.UUID) ([]*scheduling.Appointment, error)
	ReceptionQueue(ctx context.Context) (pending, approved []*scheduling.Appointment, err error)
}

type Handler struct {
	sessions     *auth.SessionManager
	accounts     Authenticator
	roles        *RoleResolver
	directory    Directory
	appointments Appointments
	logger       zerolog.Logger
}

func NewHandler(sessions *auth.SessionManager, accounts Authenticator, directory Directory, appointments Appointments, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions:     sessions,
		accounts:     accounts,
		roles:        NewRoleResolver(directory),
		directory:    directory,
		appointments: appointments,
		logger:       logger,
	}
}

// Middleware the portal routes depend on. LoginLimit may be nil.
type Middleware struct {
	RequireDoctor  echo.MiddlewareFunc
	RequirePatient echo.MiddlewareFunc
	LoginLimit     echo.MiddlewareFunc
}

func (h *Handler) RegisterRoutes(e *echo.Echo, mw Middleware) {
	e.Match([]string{http.MethodGet, http.MethodPost}, "/", h.Home)
	e.GET("/about/", h.About)
	e.GET("/login/", h.LoginForm)
	if mw.LoginLimit != nil {
		e.POST("/login/", h.Login, mw.LoginLimit)
	} else {
		e.POST("/login/", h.Login)
	}
	e.GET("/logout/", h.Logout)

	e.GET("/doctor/dashboard/", h.DoctorDashboard, auth.RequireLogin(), mw.RequireDoctor)
	e.GET("/patient/dashboard/", h.PatientDashboard, auth.RequireLogin(), mw.RequirePatient)
	e.GET("/receptionist/dashboard/", h.ReceptionistDashboard, auth.RequireStaff())
}

// -- Public pages --

type homeData struct {
	DoctorCount  int
	PatientCount int
}

func (h *Handler) Home(c echo.Context) error {
	doctors, patients, err := h.directory.Counts(c.Request().Context())
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "home.html", "Home", homeData{DoctorCount: doctors, PatientCount: patients})
}

func (h *Handler) About(c echo.Context) error {
	return web.Render(c, http.StatusOK, "about.html", "About", nil)
}

// -- Login --

type loginData struct {
	Username string
	Role     string
	Roles    []auth.Role
	Errors   validation.Errors
}

func (h *Handler) LoginForm(c echo.Context) error {
	return h.renderLogin(c, loginData{Role: auth.RolePatient.String()})
}

// Login authenticates the credential first and then checks it against the
// chosen role. No session is issued unless both succeed.
func (h *Handler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	data := loginData{
		Username: strings.TrimSpace(c.FormValue("username")),
		Role:     c.FormValue("role"),
		Errors:   validation.Errors{},
	}
	password := c.FormValue("password")
	data.Errors.Required("username", data.Username)
	data.Errors.Required("password", password)
	if data.Errors.Any() {
		return h.renderLogin(c, data)
	}

	cred, err := h.accounts.Authenticate(ctx, data.Username, password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		h.logger.Info().Str("username", data.Username).Msg("login rejected: bad credentials")
		web.Error(c, "Invalid username or password.")
		return h.renderLogin(c, data)
	}
	if err != nil {
		return err
	}

	role, err := auth.ParseRole(data.Role)
	if err == nil {
		err = h.roles.Resolve(ctx, role, cred)
	} else {
		err = &RoleError{Message: "Invalid role selected."}
	}
	var roleErr *RoleError
	if errors.As(err, &roleErr) {
		h.logger.Info().Str("username", data.Username).Str("role", data.Role).Msg("login rejected: role mismatch")
		web.Error(c, roleErr.Message)
		return h.renderLogin(c, data)
	}
	if err != nil {
		return err
	}

	principal := auth.Principal{CredentialID: cred.ID, Username: cred.Username, Role: role, Staff: cred.IsStaff}
	if err := h.sessions.Issue(c, principal); err != nil {
		return err
	}
	if err := h.accounts.RecordLogin(ctx, cred.ID); err != nil {
		h.logger.Warn().Err(err).Str("credential_id", cred.ID.String()).Msg("record last login")
	}

	web.Success(c, welcome(role, cred.Username))
	return c.Redirect(http.StatusFound, role.Dashboard())
}

func (h *Handler) renderLogin(c echo.Context, data loginData) error {
	data.Roles = auth.Roles
	return web.Render(c, http.StatusOK, "login.html", "Log in", data)
}

func (h *Handler) Logout(c echo.Context) error {
	h.sessions.Clear(c)
	web.Success(c, "You have been logged out successfully.")
	return c.Redirect(http.StatusFound, "/")
}

// -- Dashboards --

type doctorDashboardData struct {
	Doctor           *identity.Doctor
	Patients         []*identity.Patient
	PatientCount     int
	Appointments     []*scheduling.Appointment
	AppointmentCount int
}

func (h *Handler) DoctorDashboard(c echo.Context) error {
	doctor := identity.DoctorFromContext(c)
	if doctor == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	ctx := c.Request().Context()

	patients, err := h.directory.PatientsForDoctor(ctx, doctor.ID)
	if err != nil {
		return err
	}
	appts, err := h.appointments.ApprovedForDoctor(ctx, doctor.ID)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "doctor_dashboard.html", "Doctor Dashboard", doctorDashboardData{
		Doctor:           doctor,
		Patients:         patients,
		PatientCount:     len(patients),
		Appointments:     appts,
		AppointmentCount: len(appts),
	})
}

type patientDashboardData struct {
	Patient      *identity.Patient
	Appointments []*scheduling.Appointment
}

func (h *Handler) PatientDashboard(c echo.Context) error {
	patient := identity.PatientFromContext(c)
	if patient == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	appts, err := h.appointments.ForPatient(c.Request().Context(), patient.ID)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "patient_dashboard.html", "Patient Dashboard", patientDashboardData{
		Patient:      patient,
		Appointments: appts,
	})
}

type receptionistDashboardData struct {
	Pending  []*scheduling.Appointment
	Approved []*scheduling.Appointment
}

func (h *Handler) ReceptionistDashboard(c echo.Context) error {
	pending, approved, err := h.appointments.ReceptionQueue(c.Request().Context())
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "receptionist_dashboard.html", "Receptionist Dashboard", receptionistDashboardData{
		Pending:  pending,
		Approved: approved,
	})
}

// -- Live events --

// Topics implements websocket.TopicResolver. Subscriptions follow the
// session role: receptionists get the whole queue, doctors and patients
// only their own appointments.
func (h *Handler) Topics(c echo.Context) ([]string, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil, nil
	}
	ctx := c.Request().Context()

	switch p.Role {
	case auth.RoleReceptionist:
		if p.Staff {
			return []string{scheduling.TopicReception}, nil
		}
	case auth.RoleDoctor:
		d, err := h.directory.DoctorForCredential(ctx, p.CredentialID)
		if errors.Is(err, identity.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{scheduling.DoctorTopic(d.ID)}, nil
	case auth.RolePatient:
		pt, err := h.directory.PatientForCredential(ctx, p.CredentialID)
		if errors.Is(err, identity.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{scheduling.PatientTopic(pt.ID)}, nil
	}
	return nil, nil
}

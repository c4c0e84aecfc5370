package scheduling

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
)

// DoctorChoices lists the doctors a patient may pick from.
type DoctorChoices interface {
	DoctorChoices(ctx context.Context) ([]*identity.Doctor, error)
}

type Handler struct {
	svc     *Service
	choices DoctorChoices
}

func NewHandler(svc *Service, choices DoctorChoices) *Handler {
	return &Handler{svc: svc, choices: choices}
}

// RegisterRoutes mounts the appointment workflow. requirePatient and
// requireDoctor resolve the caller's profile.
func (h *Handler) RegisterRoutes(e *echo.Echo, requirePatient, requireDoctor echo.MiddlewareFunc) {
	patient := e.Group("/appointment/request", auth.RequireLogin(), requirePatient)
	patient.GET("/", h.RequestForm)
	patient.POST("/", h.Request)

	staff := e.Group("/appointment/:id/approve", auth.RequireStaff())
	staff.GET("/", h.ReviewForm)
	staff.POST("/", h.Review)

	doctor := e.Group("/appointment/:id/complete", auth.RequireLogin(), requireDoctor)
	doctor.POST("/", h.Complete)
}

type requestFormData struct {
	Form    RequestForm
	Errors  validation.Errors
	Doctors []*identity.Doctor
}

type reviewFormData struct {
	Appointment *Appointment
	Form        ReviewForm
	Errors      validation.Errors
	Statuses    []Status
}

// -- Patient --

func (h *Handler) RequestForm(c echo.Context) error {
	return h.renderRequestForm(c, RequestForm{}, nil)
}

func (h *Handler) Request(c echo.Context) error {
	patient := identity.PatientFromContext(c)
	if patient == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}

	form := RequestFormFromRequest(c)
	_, err := h.svc.Request(c.Request().Context(), patient.ID, form)
	var errs validation.Errors
	if errors.As(err, &errs) {
		return h.renderRequestForm(c, form, errs)
	}
	if err != nil {
		return err
	}
	web.Success(c, "Your appointment request has been submitted and is pending approval.")
	return c.Redirect(http.StatusFound, auth.RolePatient.Dashboard())
}

func (h *Handler) renderRequestForm(c echo.Context, form RequestForm, errs validation.Errors) error {
	doctors, err := h.choices.DoctorChoices(c.Request().Context())
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "appointment_request.html", "Request Appointment", requestFormData{
		Form:    form,
		Errors:  errs,
		Doctors: doctors,
	})
}

// -- Receptionist --

func (h *Handler) ReviewForm(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}
	return h.renderReviewForm(c, http.StatusOK, a, ReviewFormFor(a), nil)
}

func (h *Handler) Review(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}

	form := ReviewFormFromRequest(c)
	updated, err := h.svc.Review(c.Request().Context(), a.ID, form)
	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		return h.renderReviewForm(c, http.StatusOK, a, form, errs)
	case errors.Is(err, ErrIllegalTransition):
		errs = validation.Errors{}
		errs.Add("status", "Cannot change status from "+a.Status.Label()+" to "+Status(form.Status).Label()+".")
		return h.renderReviewForm(c, http.StatusConflict, a, form, errs)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Appointment not found")
	case err != nil:
		return err
	}

	switch updated.Status {
	case StatusApproved:
		web.Success(c, "Appointment for "+updated.PatientName+" has been approved.")
	case StatusRejected:
		web.Success(c, "Appointment for "+updated.PatientName+" has been rejected.")
	}
	return c.Redirect(http.StatusFound, auth.RoleReceptionist.Dashboard())
}

func (h *Handler) renderReviewForm(c echo.Context, code int, a *Appointment, form ReviewForm, errs validation.Errors) error {
	return web.Render(c, code, "appointment_approve.html", "Review Appointment", reviewFormData{
		Appointment: a,
		Form:        form,
		Errors:      errs,
		Statuses:    Statuses,
	})
}

// -- Doctor --

func (h *Handler) Complete(c echo.Context) error {
	doctor := identity.DoctorFromContext(c)
	if doctor == nil {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Appointment not found")
	}

	a, err := h.svc.Complete(c.Request().Context(), doctor.ID, id, c.FormValue("doctor_notes"))
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Appointment not found")
	case errors.Is(err, ErrIllegalTransition):
		web.Error(c, "Only approved appointments can be completed.")
	case err != nil:
		return err
	default:
		web.Success(c, "Appointment for "+a.PatientName+" marked as completed.")
	}
	return c.Redirect(http.StatusFound, auth.RoleDoctor.Dashboard())
}

func (h *Handler) load(c echo.Context) (*Appointment, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Appointment not found")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Appointment not found")
	}
	return a, err
}

package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
	"github.com/hshah27/hospital-mgmt-system/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the doctor and patient registry behind gate. The
// caller decides the gate (staff-only unless the registry is public).
func (h *Handler) RegisterRoutes(e *echo.Echo, gate ...echo.MiddlewareFunc) {
	e.GET("/doctors/", h.ListDoctors, gate...)
	e.GET("/doctors/new/", h.NewDoctor, gate...)
	e.POST("/doctors/new/", h.CreateDoctor, gate...)
	e.GET("/patients/", h.ListPatients, gate...)
	e.GET("/patients/new/", h.NewPatient, gate...)
	e.POST("/patients/new/", h.CreatePatient, gate...)
}

type doctorListData struct {
	Doctors []*Doctor
	Page    pagination.Page
}

type doctorFormData struct {
	Form   DoctorForm
	Errors validation.Errors
}

type patientListData struct {
	Patients []*Patient
	Page     pagination.Page
}

type patientFormData struct {
	Form    PatientForm
	Errors  validation.Errors
	Doctors []*Doctor
	Genders []Gender
}

// -- Doctor handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "doctor_list.html", "Doctors", doctorListData{
		Doctors: doctors,
		Page:    pagination.NewPage("/doctors/", pg, total),
	})
}

func (h *Handler) NewDoctor(c echo.Context) error {
	return web.Render(c, http.StatusOK, "doctor_form.html", "Add Doctor", doctorFormData{})
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	form := DoctorFormFromRequest(c)
	d, err := h.svc.CreateDoctor(c.Request().Context(), form)
	var errs validation.Errors
	if errors.As(err, &errs) {
		return web.Render(c, http.StatusOK, "doctor_form.html", "Add Doctor", doctorFormData{Form: form, Errors: errs})
	}
	if err != nil {
		return err
	}
	web.Success(c, "Doctor "+d.Name+" has been added.")
	return c.Redirect(http.StatusFound, "/doctors/")
}

// -- Patient handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "patient_list.html", "Patients", patientListData{
		Patients: patients,
		Page:     pagination.NewPage("/patients/", pg, total),
	})
}

func (h *Handler) NewPatient(c echo.Context) error {
	return h.renderPatientForm(c, PatientForm{}, nil)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	form := PatientFormFromRequest(c)
	p, err := h.svc.CreatePatient(c.Request().Context(), form)
	var errs validation.Errors
	if errors.As(err, &errs) {
		return h.renderPatientForm(c, form, errs)
	}
	if err != nil {
		return err
	}
	web.Success(c, "Patient "+p.Name+" has been added.")
	return c.Redirect(http.StatusFound, "/patients/")
}

func (h *Handler) renderPatientForm(c echo.Context, form PatientForm, errs validation.Errors) error {
	doctors, err := h.svc.DoctorChoices(c.Request().Context())
	if err != nil {
		return err
	}
	return web.Render(c, http.StatusOK, "patient_form.html", "Add Patient", patientFormData{
		Form:    form,
		Errors:  errs,
		Doctors: doctors,
		Genders: Genders,
	})
}

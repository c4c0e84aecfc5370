package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
)

const invalidChoice = "Select a valid choice. That choice is not one of the available choices."

// requestedDateLayouts are tried in order. The first matches the browser's
// datetime-local input; zone-less values are read in the service location.
var requestedDateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// RequestForm is a patient's appointment request as submitted.
type RequestForm struct {
	DoctorID      string
	RequestedDate string
	Symptoms      string
}

func RequestFormFromRequest(c echo.Context) RequestForm {
	return RequestForm{
		DoctorID:      strings.TrimSpace(c.FormValue("doctor")),
		RequestedDate: strings.TrimSpace(c.FormValue("requested_date")),
		Symptoms:      strings.TrimSpace(c.FormValue("symptoms")),
	}
}

func (f RequestForm) parse(loc *time.Location) (uuid.UUID, time.Time, validation.Errors) {
	errs := validation.Errors{}

	var doctorID uuid.UUID
	if f.DoctorID == "" {
		errs.Add("doctor", "This field is required.")
	} else if id, err := uuid.Parse(f.DoctorID); err != nil {
		errs.Add("doctor", invalidChoice)
	} else {
		doctorID = id
	}

	var when time.Time
	if f.RequestedDate == "" {
		errs.Add("requested_date", "This field is required.")
	} else if t, ok := parseRequestedDate(f.RequestedDate, loc); !ok {
		errs.Add("requested_date", "Enter a valid date/time.")
	} else {
		when = t
	}

	errs.Required("symptoms", f.Symptoms)
	return doctorID, when, errs
}

func parseRequestedDate(v string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	for _, layout := range requestedDateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ReviewForm is a receptionist's decision on an appointment.
type ReviewForm struct {
	Status            string
	ReceptionistNotes string
}

func ReviewFormFromRequest(c echo.Context) ReviewForm {
	return ReviewForm{
		Status:            strings.TrimSpace(c.FormValue("status")),
		ReceptionistNotes: strings.TrimSpace(c.FormValue("receptionist_notes")),
	}
}

// ReviewFormFor pre-fills the form with the appointment's current values.
func ReviewFormFor(a *Appointment) ReviewForm {
	return ReviewForm{Status: string(a.Status), ReceptionistNotes: a.ReceptionistNotes}
}

func (f ReviewForm) parse() (Status, validation.Errors) {
	errs := validation.Errors{}
	status := Status(f.Status)
	switch {
	case f.Status == "":
		errs.Add("status", "This field is required.")
	case !status.Valid():
		errs.Add("status", "Select a valid choice. "+f.Status+" is not one of the available choices.")
	}
	return status, errs
}

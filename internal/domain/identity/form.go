package identity

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
)

const dateLayout = "2006-01-02"

// AccountFields are the optional login fields shared by both profile forms.
type AccountFields struct {
	Username  string
	Password1 string
	Password2 string
}

func (a AccountFields) wantsAccount() bool {
	return a.Username != ""
}

type DoctorForm struct {
	Name      string
	Specialty string
	Phone     string
	Email     string
	AccountFields
}

func DoctorFormFromRequest(c echo.Context) DoctorForm {
	return DoctorForm{
		Name:          strings.TrimSpace(c.FormValue("name")),
		Specialty:     strings.TrimSpace(c.FormValue("specialty")),
		Phone:         strings.TrimSpace(c.FormValue("phone")),
		Email:         strings.TrimSpace(c.FormValue("email")),
		AccountFields: accountFieldsFromRequest(c),
	}
}

func (f DoctorForm) validate() validation.Errors {
	errs := validation.Errors{}
	errs.Required("name", f.Name)
	errs.MaxLen("name", f.Name, 100)
	errs.MaxLen("specialty", f.Specialty, 100)
	errs.MaxLen("phone", f.Phone, 20)
	errs.MaxLen("email", f.Email, 254)
	errs.Email("email", f.Email)
	return errs
}

func (f DoctorForm) doctor() *Doctor {
	return &Doctor{Name: f.Name, Specialty: f.Specialty, Phone: f.Phone, Email: f.Email}
}

// PatientForm keeps raw strings so a rejected form can be redisplayed as
// the user typed it.
type PatientForm struct {
	Name         string
	Age          string
	Gender       string
	Address      string
	Phone        string
	AdmittedDate string
	DoctorID     string
	AccountFields
}

func PatientFormFromRequest(c echo.Context) PatientForm {
	return PatientForm{
		Name:          strings.TrimSpace(c.FormValue("name")),
		Age:           strings.TrimSpace(c.FormValue("age")),
		Gender:        strings.TrimSpace(c.FormValue("gender")),
		Address:       strings.TrimSpace(c.FormValue("address")),
		Phone:         strings.TrimSpace(c.FormValue("phone")),
		AdmittedDate:  strings.TrimSpace(c.FormValue("admitted_date")),
		DoctorID:      strings.TrimSpace(c.FormValue("doctor")),
		AccountFields: accountFieldsFromRequest(c),
	}
}

// parse validates the profile fields and converts them into a Patient. The
// doctor reference is only checked for syntax here.
func (f PatientForm) parse() (*Patient, validation.Errors) {
	errs := validation.Errors{}
	errs.Required("name", f.Name)
	errs.MaxLen("name", f.Name, 120)
	errs.MaxLen("phone", f.Phone, 20)

	p := &Patient{Name: f.Name, Address: f.Address, Phone: f.Phone, Gender: Gender(f.Gender)}

	if f.Age != "" {
		age, err := strconv.Atoi(f.Age)
		switch {
		case err != nil:
			errs.Add("age", "Enter a whole number.")
		case age < 0:
			errs.Add("age", "Ensure this value is greater than or equal to 0.")
		case age > math.MaxInt32:
			errs.Add("age", "Ensure this value is less than or equal to 2147483647.")
		default:
			p.Age = &age
		}
	}

	if !p.Gender.Valid() {
		errs.Add("gender", "Select a valid choice. "+f.Gender+" is not one of the available choices.")
	}

	if f.AdmittedDate != "" {
		d, err := time.Parse(dateLayout, f.AdmittedDate)
		if err != nil {
			errs.Add("admitted_date", "Enter a valid date.")
		} else {
			p.AdmittedDate = &d
		}
	}

	if f.DoctorID != "" {
		id, err := uuid.Parse(f.DoctorID)
		if err != nil {
			errs.Add("doctor", invalidDoctorChoice)
		} else {
			p.DoctorID = &id
		}
	}
	return p, errs
}

const invalidDoctorChoice = "Select a valid choice. That choice is not one of the available choices."

func accountFieldsFromRequest(c echo.Context) AccountFields {
	return AccountFields{
		Username:  strings.TrimSpace(c.FormValue("username")),
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}
}

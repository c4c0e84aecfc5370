package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrDoctorNotFound = errors.New("doctor not found")
)

// Doctor is a physician profile. CredentialID is nil for doctors that
// cannot log in.
type Doctor struct {
	ID           uuid.UUID  `db:"id"`
	Name         string     `db:"name"`
	Specialty    string     `db:"specialty"`
	Phone        string     `db:"phone"`
	Email        string     `db:"email"`
	CredentialID *uuid.UUID `db:"credential_id"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (d *Doctor) String() string {
	if d.Specialty != "" {
		return d.Name + " (" + d.Specialty + ")"
	}
	return d.Name
}

type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Genders lists the selectable values in form order.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

func (g Gender) Valid() bool {
	switch g {
	case GenderUnset, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderOther:
		return "Other"
	}
	return ""
}

// Patient is a patient profile, optionally assigned to a doctor.
type Patient struct {
	ID           uuid.UUID  `db:"id"`
	Name         string     `db:"name"`
	Age          *int       `db:"age"`
	Gender       Gender     `db:"gender"`
	Address      string     `db:"address"`
	Phone        string     `db:"phone"`
	AdmittedDate *time.Time `db:"admitted_date"`
	DoctorID     *uuid.UUID `db:"doctor_id"`
	CredentialID *uuid.UUID `db:"credential_id"`
	CreatedAt    time.Time  `db:"created_at"`

	// DoctorName is filled by listing queries that join the doctor.
	DoctorName string `db:"-"`
}

func (p *Patient) String() string {
	return p.Name
}

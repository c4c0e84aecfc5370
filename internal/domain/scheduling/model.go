package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrIllegalTransition = errors.New("illegal appointment status transition")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted}

// transitions is the appointment lifecycle. Rejected and completed are
// terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

func (s Status) String() string { return string(s) }

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending Approval"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// CanTransitionTo reports whether an appointment in s may move to next.
// Staying in the same status is always allowed so notes can be edited.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is a patient's request to see a doctor.
type Appointment struct {
	ID                uuid.UUID `db:"id"`
	PatientID         uuid.UUID `db:"patient_id"`
	DoctorID          uuid.UUID `db:"doctor_id"`
	RequestedDate     time.Time `db:"requested_date"`
	Symptoms          string    `db:"symptoms"`
	Status            Status    `db:"status"`
	ReceptionistNotes string    `db:"receptionist_notes"`
	DoctorNotes       string    `db:"doctor_notes"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`

	// Filled by joined reads.
	PatientName string `db:"-"`
	DoctorName  string `db:"-"`
}

func (a *Appointment) String() string {
	return a.PatientName + " - " + a.DoctorName + " (" + a.Status.Label() + ")"
}

// Event topics. Receptionists follow the whole queue; doctors and patients
// follow their own appointments.
const TopicReception = "reception"

func DoctorTopic(id uuid.UUID) string  { return "doctor:" + id.String() }
func PatientTopic(id uuid.UUID) string { return "patient:" + id.String() }

package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/websocket"
)

// Doctors resolves doctor references on appointment requests.
type Doctors interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

type Service struct {
	repo    Repository
	doctors Doctors
	events  websocket.EventPublisher
	logger  zerolog.Logger
	loc     *time.Location
}

// NewService wires the appointment workflow. events may be nil.
func NewService(repo Repository, doctors Doctors, events websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, doctors: doctors, events: events, logger: logger, loc: time.Local}
}

// Request files a pending appointment for patientID. The status and the
// patient are never taken from the form.
func (s *Service) Request(ctx context.Context, patientID uuid.UUID, f RequestForm) (*Appointment, error) {
	doctorID, when, errs := f.parse(s.loc)
	if doctorID != uuid.Nil {
		if _, err := s.doctors.GetDoctor(ctx, doctorID); errors.Is(err, identity.ErrDoctorNotFound) {
			errs.Add("doctor", invalidChoice)
		} else if err != nil {
			return nil, fmt.Errorf("load doctor: %w", err)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:     patientID,
		DoctorID:      doctorID,
		RequestedDate: when,
		Symptoms:      f.Symptoms,
		Status:        StatusPending,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().Str("appointment_id", a.ID.String()).Str("patient_id", patientID.String()).
		Str("doctor_id", doctorID.String()).Msg("appointment requested")
	s.publish(ctx, "appointment.requested", a, TopicReception, PatientTopic(a.PatientID))
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ReceptionQueue returns the receptionist working set.
func (s *Service) ReceptionQueue(ctx context.Context) (pending, approved []*Appointment, err error) {
	all, err := s.repo.ListByStatus(ctx, StatusPending, StatusApproved)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range all {
		if a.Status == StatusPending {
			pending = append(pending, a)
		} else {
			approved = append(approved, a)
		}
	}
	return pending, approved, nil
}

// ApprovedForDoctor returns the doctor's approved appointments, earliest
// requested first.
func (s *Service) ApprovedForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListForDoctor(ctx, doctorID, StatusApproved)
}

func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListForPatient(ctx, patientID)
}

// Review applies a receptionist decision. Moves outside the lifecycle return
// ErrIllegalTransition and leave the appointment unchanged.
func (s *Service) Review(ctx context.Context, id uuid.UUID, f ReviewForm) (*Appointment, error) {
	status, errs := f.parse()
	if err := errs.Err(); err != nil {
		return nil, err
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, a, status, func(a *Appointment) {
		a.ReceptionistNotes = f.ReceptionistNotes
	})
}

// Complete marks one of doctorID's approved appointments completed. Other
// doctors' appointments are reported as not found.
func (s *Service) Complete(ctx context.Context, doctorID, id uuid.UUID, notes string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doctorID {
		return nil, ErrNotFound
	}
	return s.transition(ctx, a, StatusCompleted, func(a *Appointment) {
		a.DoctorNotes = notes
	})
}

func (s *Service) transition(ctx context.Context, a *Appointment, next Status, apply func(*Appointment)) (*Appointment, error) {
	from := a.Status
	if !from.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, from, next)
	}

	a.Status = next
	apply(a)
	if err := s.repo.Update(ctx, a, from); err != nil {
		return nil, err
	}

	s.logger.Info().Str("appointment_id", a.ID.String()).Str("from", string(from)).
		Str("to", string(next)).Msg("appointment transitioned")
	if from != next {
		s.publish(ctx, "appointment."+string(next), a, TopicReception, DoctorTopic(a.DoctorID), PatientTopic(a.PatientID))
	}
	return a, nil
}

type eventData struct {
	Status        Status    `json:"status"`
	PatientID     uuid.UUID `json:"patientId"`
	DoctorID      uuid.UUID `json:"doctorId"`
	RequestedDate time.Time `json:"requestedDate"`
}

func (s *Service) publish(ctx context.Context, eventType string, a *Appointment, topics ...string) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(eventData{Status: a.Status, PatientID: a.PatientID, DoctorID: a.DoctorID, RequestedDate: a.RequestedDate})
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal appointment event")
		return
	}
	for _, topic := range topics {
		ev := websocket.Event{Type: eventType, Topic: topic, ResourceID: a.ID.String(), Data: data}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("publish appointment event")
		}
	}
}

// Package sandbox seeds demo accounts and appointments so a fresh database
// can be explored right away: one doctor, one patient assigned to that
// doctor, and one receptionist.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/scheduling"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls what Seed creates.
type SeedConfig struct {
	Password         string
	DemoAppointments int
	Seed             int64
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{Password: "password123"}
}

// Sample profiles. Usernames are stable so seeding is idempotent.
var (
	sampleDoctor = identity.DoctorForm{
		Name:          "Dr. John Smith",
		Specialty:     "Cardiology",
		Phone:         "+1-555-0123",
		Email:         "doctor1@hospital.com",
		AccountFields: identity.AccountFields{Username: "doctor1"},
	}
	samplePatient = identity.PatientForm{
		Name:          "Jane Doe",
		Age:           "35",
		Gender:        string(identity.GenderFemale),
		Address:       "123 Main St, Anytown",
		Phone:         "+1-555-0456",
		AccountFields: identity.AccountFields{Username: "patient1"},
	}
	sampleReceptionist = "reception1"
)

// SeedResult summarizes a seed run.
type SeedResult struct {
	Created      []string      `json:"created"`
	Existing     []string      `json:"existing"`
	Appointments int           `json:"appointments"`
	Duration     time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Accounts interface {
	GetByUsername(ctx context.Context, username string) (*account.Credential, error)
	Register(ctx context.Context, in account.NewCredential) (*account.Credential, error)
	SetStaff(ctx context.Context, id uuid.UUID, staff bool) error
}

type Registry interface {
	CreateDoctor(ctx context.Context, f identity.DoctorForm) (*identity.Doctor, error)
	CreatePatient(ctx context.Context, f identity.PatientForm) (*identity.Patient, error)
	DoctorForCredential(ctx context.Context, credentialID uuid.UUID) (*identity.Doctor, error)
	PatientForCredential(ctx context.Context, credentialID uuid.UUID) (*identity.Patient, error)
}

type Appointments interface {
	Request(ctx context.Context, patientID uuid.UUID, f scheduling.RequestForm) (*scheduling.Appointment, error)
	ForPatient(ctx context.Context, patientID uuid.UUID) ([]*scheduling.Appointment, error)
}

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

var symptomPool = []string{
	"Chest pain after exercise",
	"Persistent cough for two weeks",
	"Shortness of breath at night",
	"Irregular heartbeat",
	"Follow-up on blood pressure medication",
	"Dizziness when standing up",
}

// DataGenerator produces deterministic appointment requests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

// AppointmentRequest returns a request with doctorID on a weekday morning
// within two weeks of from.
func (g *DataGenerator) AppointmentRequest(doctorID uuid.UUID, from time.Time) scheduling.RequestForm {
	day := from.AddDate(0, 0, 1+g.rng.Intn(14))
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	when := time.Date(day.Year(), day.Month(), day.Day(), 9+g.rng.Intn(8), 30*g.rng.Intn(2), 0, 0, from.Location())
	return scheduling.RequestForm{
		DoctorID:      doctorID.String(),
		RequestedDate: when.Format("2006-01-02T15:04"),
		Symptoms:      symptomPool[g.rng.Intn(len(symptomPool))],
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder creates the sample accounts, reusing any that already exist.
type Seeder struct {
	accounts     Accounts
	registry     Registry
	appointments Appointments
	generator    *DataGenerator
	config       SeedConfig
	logger       zerolog.Logger
	now          func() time.Time
}

func NewSeeder(accounts Accounts, registry Registry, appointments Appointments, config SeedConfig, logger zerolog.Logger) *Seeder {
	if config.Password == "" {
		config.Password = DefaultSeedConfig().Password
	}
	return &Seeder{
		accounts:     accounts,
		registry:     registry,
		appointments: appointments,
		generator:    NewDataGenerator(config.Seed),
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// Password is the password given to accounts this seeder creates.
func (s *Seeder) Password() string { return s.config.Password }

// Seed ensures the sample doctor, patient and receptionist exist. Running it
// twice creates nothing new.
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	start := s.now()
	result := &SeedResult{}

	doctor, err := s.ensureDoctor(ctx, result)
	if err != nil {
		return nil, err
	}
	patient, err := s.ensurePatient(ctx, doctor, result)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReceptionist(ctx, result); err != nil {
		return nil, err
	}
	if err := s.ensureAppointments(ctx, doctor, patient, result); err != nil {
		return nil, err
	}

	result.Duration = s.now().Sub(start)
	s.logger.Info().Strs("created", result.Created).Strs("existing", result.Existing).
		Int("appointments", result.Appointments).Msg("sample data seeded")
	return result, nil
}

func (s *Seeder) ensureDoctor(ctx context.Context, result *SeedResult) (*identity.Doctor, error) {
	username := sampleDoctor.Username
	cred, err := s.existing(ctx, username)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		d, err := s.registry.DoctorForCredential(ctx, cred.ID)
		if err != nil {
			return nil, fmt.Errorf("%s exists without a doctor profile: %w", username, err)
		}
		result.Existing = append(result.Existing, username)
		return d, nil
	}

	form := sampleDoctor
	form.Password1, form.Password2 = s.config.Password, s.config.Password
	d, err := s.registry.CreateDoctor(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", username, err)
	}
	result.Created = append(result.Created, username)
	return d, nil
}

func (s *Seeder) ensurePatient(ctx context.Context, doctor *identity.Doctor, result *SeedResult) (*identity.Patient, error) {
	username := samplePatient.Username
	cred, err := s.existing(ctx, username)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		p, err := s.registry.PatientForCredential(ctx, cred.ID)
		if err != nil {
			return nil, fmt.Errorf("%s exists without a patient profile: %w", username, err)
		}
		result.Existing = append(result.Existing, username)
		return p, nil
	}

	form := samplePatient
	form.DoctorID = doctor.ID.String()
	form.Password1, form.Password2 = s.config.Password, s.config.Password
	p, err := s.registry.CreatePatient(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", username, err)
	}
	result.Created = append(result.Created, username)
	return p, nil
}

func (s *Seeder) ensureReceptionist(ctx context.Context, result *SeedResult) error {
	cred, err := s.existing(ctx, sampleReceptionist)
	if err != nil {
		return err
	}
	if cred != nil {
		if !cred.IsStaff {
			if err := s.accounts.SetStaff(ctx, cred.ID, true); err != nil {
				return fmt.Errorf("grant staff to %s: %w", sampleReceptionist, err)
			}
		}
		result.Existing = append(result.Existing, sampleReceptionist)
		return nil
	}

	if _, err := s.accounts.Register(ctx, account.NewCredential{
		Username: sampleReceptionist,
		Password: s.config.Password,
		Staff:    true,
	}); err != nil {
		return fmt.Errorf("create %s: %w", sampleReceptionist, err)
	}
	result.Created = append(result.Created, sampleReceptionist)
	return nil
}

// ensureAppointments files demo requests only for a patient with none.
func (s *Seeder) ensureAppointments(ctx context.Context, doctor *identity.Doctor, patient *identity.Patient, result *SeedResult) error {
	if s.config.DemoAppointments <= 0 || s.appointments == nil {
		return nil
	}
	have, err := s.appointments.ForPatient(ctx, patient.ID)
	if err != nil {
		return err
	}
	if len(have) > 0 {
		return nil
	}
	for i := 0; i < s.config.DemoAppointments; i++ {
		if _, err := s.appointments.Request(ctx, patient.ID, s.generator.AppointmentRequest(doctor.ID, s.now())); err != nil {
			return fmt.Errorf("create demo appointment: %w", err)
		}
		result.Appointments++
	}
	return nil
}

func (s *Seeder) existing(ctx context.Context, username string) (*account.Credential, error) {
	cred, err := s.accounts.GetByUsername(ctx, username)
	if errors.Is(err, account.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", username, err)
	}
	return cred, nil
}

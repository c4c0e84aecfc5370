package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/db"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
)

const (
	msgUsernameTaken    = "Username already taken."
	msgPasswordRequired = "Password is required when creating an account."
	msgPasswordMismatch = "Passwords do not match."
)

var msgPasswordTooLong = fmt.Sprintf("Ensure this value has at most %d bytes.", auth.MaxPasswordBytes)

// Accounts creates login credentials for new profiles.
type Accounts interface {
	Register(ctx context.Context, in account.NewCredential) (*account.Credential, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	accounts Accounts
	tx       db.TxRunner
	logger   zerolog.Logger
}

func NewService(doctors DoctorRepository, patients PatientRepository, accounts Accounts, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{doctors: doctors, patients: patients, accounts: accounts, tx: tx, logger: logger}
}

// -- Doctor --

// CreateDoctor validates f and stores the doctor. When f carries a username
// the credential and the profile are written in one transaction.
func (s *Service) CreateDoctor(ctx context.Context, f DoctorForm) (*Doctor, error) {
	errs := f.validate()
	if err := s.checkAccount(ctx, f.AccountFields, errs); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	d := f.doctor()
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		credID, err := s.createCredential(ctx, f.AccountFields)
		if err != nil {
			return err
		}
		d.CredentialID = credID
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("doctor_id", d.ID.String()).Bool("has_login", d.CredentialID != nil).Msg("doctor created")
	return d, nil
}

// GetDoctor returns ErrDoctorNotFound for unknown ids.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (s *Service) DoctorForCredential(ctx context.Context, credentialID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByCredential(ctx, credentialID)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// DoctorChoices returns every doctor, by name, for selection lists.
func (s *Service) DoctorChoices(ctx context.Context) ([]*Doctor, error) {
	n, err := s.doctors.Count(ctx)
	if err != nil || n == 0 {
		return nil, err
	}
	doctors, _, err := s.doctors.List(ctx, n, 0)
	return doctors, err
}

// -- Patient --

// CreatePatient validates f, checks the assigned doctor exists and stores the
// patient, with its optional credential, atomically.
func (s *Service) CreatePatient(ctx context.Context, f PatientForm) (*Patient, error) {
	p, errs := f.parse()
	if p.DoctorID != nil {
		if _, err := s.doctors.GetByID(ctx, *p.DoctorID); errors.Is(err, ErrNotFound) {
			errs.Add("doctor", invalidDoctorChoice)
		} else if err != nil {
			return nil, fmt.Errorf("load doctor: %w", err)
		}
	}
	if err := s.checkAccount(ctx, f.AccountFields, errs); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		credID, err := s.createCredential(ctx, f.AccountFields)
		if err != nil {
			return err
		}
		p.CredentialID = credID
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("patient_id", p.ID.String()).Bool("has_login", p.CredentialID != nil).Msg("patient created")
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) PatientForCredential(ctx context.Context, credentialID uuid.UUID) (*Patient, error) {
	return s.patients.GetByCredential(ctx, credentialID)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) PatientsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Patient, error) {
	return s.patients.ListByDoctor(ctx, doctorID)
}

// Counts returns the number of doctors and patients.
func (s *Service) Counts(ctx context.Context) (doctors, patients int, err error) {
	if doctors, err = s.doctors.Count(ctx); err != nil {
		return 0, 0, err
	}
	if patients, err = s.patients.Count(ctx); err != nil {
		return 0, 0, err
	}
	return doctors, patients, nil
}

// -- Account fields --

func (s *Service) checkAccount(ctx context.Context, a AccountFields, errs validation.Errors) error {
	if !a.wantsAccount() {
		return nil
	}
	if msg := account.ValidateUsername(a.Username); msg != "" {
		errs.Add("username", msg)
	} else {
		taken, err := s.accounts.UsernameTaken(ctx, a.Username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			errs.Add("username", msgUsernameTaken)
		}
	}
	if a.Password1 == "" || a.Password2 == "" {
		errs.Add("password1", msgPasswordRequired)
	} else if len(a.Password1) > auth.MaxPasswordBytes {
		errs.Add("password1", msgPasswordTooLong)
	} else if a.Password1 != a.Password2 {
		errs.Add("password2", msgPasswordMismatch)
	}
	return nil
}

// createCredential registers the login for a new profile, returning nil when
// the form asked for none. A username claimed between the pre-check and the
// insert is reported as a field error.
func (s *Service) createCredential(ctx context.Context, a AccountFields) (*uuid.UUID, error) {
	if !a.wantsAccount() {
		return nil, nil
	}
	cred, err := s.accounts.Register(ctx, account.NewCredential{Username: a.Username, Password: a.Password1})
	if errors.Is(err, account.ErrUsernameTaken) {
		return nil, validation.Errors{"username": {msgUsernameTaken}}
	}
	if err != nil {
		return nil, fmt.Errorf("register credential: %w", err)
	}
	return &cred.ID, nil
}

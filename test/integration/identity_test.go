package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
)

// failingPatients stores nothing and fails every insert, after the
// credential for the profile has already been written.
type failingPatients struct {
	identity.PatientRepository
}

func (failingPatients) Create(ctx context.Context, p *identity.Patient) error {
	return errors.New("disk full")
}

func TestIdentity_DoctorWithLogin(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	d := createDoctor(t, s, "Dr. John Smith", "doctor1")
	if d.CredentialID == nil {
		t.Fatal("expected credential link")
	}

	cred, err := s.accounts.GetByUsername(ctx, "doctor1")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	got, err := s.identity.DoctorForCredential(ctx, cred.ID)
	if err != nil {
		t.Fatalf("DoctorForCredential: %v", err)
	}
	if got.ID != d.ID || got.String() != "Dr. John Smith (Cardiology)" {
		t.Errorf("unexpected doctor %+v", got)
	}
}

func TestIdentity_PatientCreationIsAtomic(t *testing.T) {
	resetTables(t)
	s := newServicesWith(identity.NewDoctorRepo(globalPool), failingPatients{identity.NewPatientRepo(globalPool)})
	ctx := context.Background()

	_, err := s.identity.CreatePatient(ctx, identity.PatientForm{
		Name:          "Jane Doe",
		AccountFields: identity.AccountFields{Username: "patient1", Password1: "password123", Password2: "password123"},
	})
	if err == nil {
		t.Fatal("expected error from failing patient insert")
	}

	if _, err := s.accounts.GetByUsername(ctx, "patient1"); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("expected credential rolled back, got %v", err)
	}
}

func TestIdentity_DuplicateUsernameIsFieldError(t *testing.T) {
	s := newServices(t)
	createDoctor(t, s, "Dr. John Smith", "doctor1")

	_, err := s.identity.CreatePatient(context.Background(), identity.PatientForm{
		Name:          "Jane Doe",
		AccountFields: identity.AccountFields{Username: "doctor1", Password1: "pw", Password2: "pw"},
	})
	var ferr validation.Errors
	if !errors.As(err, &ferr) || len(ferr["username"]) == 0 {
		t.Fatalf("expected username field error, got %v", err)
	}

	_, total, err := s.identity.ListPatients(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if total != 0 {
		t.Errorf("expected no patients, got %d", total)
	}
}

func TestIdentity_ListsOrderedByName(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	doc := createDoctor(t, s, "Dr. Zoe Young", "")
	createDoctor(t, s, "Dr. Adam Brown", "")
	createPatient(t, s, "Walter White", "", doc)
	createPatient(t, s, "Anna Bell", "", doc)

	doctors, total, err := s.identity.ListDoctors(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if total != 2 || doctors[0].Name != "Dr. Adam Brown" {
		t.Errorf("unexpected doctor order: total=%d first=%s", total, doctors[0].Name)
	}

	patients, err := s.identity.PatientsForDoctor(ctx, doc.ID)
	if err != nil {
		t.Fatalf("PatientsForDoctor: %v", err)
	}
	if len(patients) != 2 || patients[0].Name != "Anna Bell" || patients[0].DoctorName != "Dr. Zoe Young" {
		t.Errorf("unexpected patients: %+v", patients)
	}

	dc, pc, err := s.identity.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if dc != 2 || pc != 2 {
		t.Errorf("expected 2/2, got %d/%d", dc, pc)
	}
}

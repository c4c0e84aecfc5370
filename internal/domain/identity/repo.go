package identity

import (
	"context"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByCredential(ctx context.Context, credentialID uuid.UUID) (*Doctor, error)
	// List orders by name.
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	Count(ctx context.Context) (int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByCredential(ctx context.Context, credentialID uuid.UUID) (*Patient, error)
	// List orders by name and fills DoctorName.
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Patient, error)
	Count(ctx context.Context) (int, error)
}

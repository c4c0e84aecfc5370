package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads always join patient and doctor names.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListByStatus orders newest-created first.
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Appointment, error)
	// ListForDoctor orders by requested date, earliest first.
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, status Status) ([]*Appointment, error)
	// ListForPatient orders newest-created first.
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	// Update writes status and notes when the stored status still equals
	// from, and refreshes UpdatedAt. A stale from yields ErrIllegalTransition.
	Update(ctx context.Context, a *Appointment, from Status) error
}

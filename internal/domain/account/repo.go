package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*Credential, error)
	GetByUsername(ctx context.Context, username string) (*Credential, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetStaff(ctx context.Context, id uuid.UUID, staff bool) error
}

package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("credential not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Credential is a login identity. Profiles (doctor, patient) point at it;
// receptionists are credentials with IsStaff set.
type Credential struct {
	ID           uuid.UUID  `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	IsStaff      bool       `db:"is_staff"`
	IsActive     bool       `db:"is_active"`
	LastLogin    *time.Time `db:"last_login"`
	CreatedAt    time.Time  `db:"created_at"`
}

// NewCredential is the input for Service.Register.
type NewCredential struct {
	Username string
	Password string
	Staff    bool
}

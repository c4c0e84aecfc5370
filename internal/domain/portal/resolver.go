package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
)

// RoleError is a role check failure with a message fit for the login page.
type RoleError struct {
	Role    auth.Role
	Message string
}

func (e *RoleError) Error() string { return e.Message }

// ProfileLookup finds role profiles for a credential.
type ProfileLookup interface {
	DoctorForCredential(ctx context.Context, credentialID uuid.UUID) (*identity.Doctor, error)
	PatientForCredential(ctx context.Context, credentialID uuid.UUID) (*identity.Patient, error)
}

type roleCheck func(ctx context.Context, cred *account.Credential) error

// RoleResolver decides whether an authenticated credential may act in the
// role chosen at login. Every auth.Role has exactly one check.
type RoleResolver struct {
	checks map[auth.Role]roleCheck
}

func NewRoleResolver(profiles ProfileLookup) *RoleResolver {
	return &RoleResolver{checks: map[auth.Role]roleCheck{
		auth.RoleDoctor: func(ctx context.Context, cred *account.Credential) error {
			_, err := profiles.DoctorForCredential(ctx, cred.ID)
			return profileErr(auth.RoleDoctor, err)
		},
		auth.RolePatient: func(ctx context.Context, cred *account.Credential) error {
			_, err := profiles.PatientForCredential(ctx, cred.ID)
			return profileErr(auth.RolePatient, err)
		},
		auth.RoleReceptionist: func(_ context.Context, cred *account.Credential) error {
			if !cred.IsStaff {
				return &RoleError{Role: auth.RoleReceptionist, Message: "Receptionist access requires staff privileges."}
			}
			return nil
		},
	}}
}

// Resolve returns nil when cred may log in as role, a *RoleError when it may
// not, and any other error on lookup failure.
func (r *RoleResolver) Resolve(ctx context.Context, role auth.Role, cred *account.Credential) error {
	check, ok := r.checks[role]
	if !ok {
		return &RoleError{Role: role, Message: "Invalid role selected."}
	}
	return check(ctx, cred)
}

func profileErr(role auth.Role, err error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return &RoleError{Role: role, Message: "You are not registered as a " + role.String() + "."}
	}
	if err != nil {
		return fmt.Errorf("resolve %s profile: %w", role, err)
	}
	return nil
}

// welcome is the greeting shown after a successful login.
func welcome(role auth.Role, username string) string {
	switch role {
	case auth.RoleDoctor:
		return "Welcome back, Dr. " + username + "!"
	case auth.RoleReceptionist:
		return "Welcome, Receptionist!"
	default:
		return "Welcome back, " + username + "!"
	}
}

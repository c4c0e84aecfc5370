package auth

import (
	"errors"
	"fmt"
)

// Role is the closed set of portals a credential can log in to.
type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
)

// Roles lists every role in login-form order.
var Roles = []Role{RolePatient, RoleDoctor, RoleReceptionist}

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RolePatient, RoleDoctor, RoleReceptionist:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string { return string(r) }

func (r Role) Label() string {
	switch r {
	case RolePatient:
		return "Patient"
	case RoleDoctor:
		return "Doctor"
	case RoleReceptionist:
		return "Receptionist"
	}
	return ""
}

// Dashboard is the landing page after login.
func (r Role) Dashboard() string {
	switch r {
	case RolePatient:
		return "/patient/dashboard/"
	case RoleDoctor:
		return "/doctor/dashboard/"
	case RoleReceptionist:
		return "/receptionist/dashboard/"
	}
	return "/"
}

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "credentials_username_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "appointments_doctor_id_fkey"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"any unique", unique, "", true},
		{"matching constraint", unique, "credentials_username_key", true},
		{"other constraint", unique, "doctors_credential_id_key", false},
		{"wrapped", fmt.Errorf("insert credential: %w", unique), "credentials_username_key", true},
		{"foreign key", fk, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

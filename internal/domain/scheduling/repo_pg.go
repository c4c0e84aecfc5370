package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hshah27/hospital-mgmt-system/internal/platform/db"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appointmentSelect = `SELECT a.id, a.patient_id, a.doctor_id, a.requested_date, a.symptoms, a.status,
	a.receptionist_notes, a.doctor_notes, a.created_at, a.updated_at, p.name, d.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.RequestedDate, &a.Symptoms, &a.Status,
		&a.ReceptionistNotes, &a.DoctorNotes, &a.CreatedAt, &a.UpdatedAt, &a.PatientName, &a.DoctorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, requested_date, symptoms, status, receptionist_notes, doctor_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.RequestedDate, a.Symptoms, a.Status, a.ReceptionistNotes, a.DoctorNotes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

func (r *repoPG) ListByStatus(ctx context.Context, statuses ...Status) ([]*Appointment, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return r.list(ctx, appointmentSelect+` WHERE a.status = ANY($1) ORDER BY a.created_at DESC, a.id`, values)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status Status) ([]*Appointment, error) {
	return r.list(ctx, appointmentSelect+` WHERE a.doctor_id = $1 AND a.status = $2 ORDER BY a.requested_date, a.id`, doctorID, status)
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, appointmentSelect+` WHERE a.patient_id = $1 ORDER BY a.created_at DESC, a.id`, patientID)
}

func (r *repoPG) Update(ctx context.Context, a *Appointment, from Status) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, receptionist_notes = $4, doctor_notes = $5, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING updated_at`,
		a.ID, from, a.Status, a.ReceptionistNotes, a.DoctorNotes,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := r.GetByID(ctx, a.ID); gerr != nil {
			return gerr
		}
		return ErrIllegalTransition
	}
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

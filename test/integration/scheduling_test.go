package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/scheduling"
)

func requestFor(t *testing.T, s *services, p *identity.Patient, d *identity.Doctor, at time.Time) *scheduling.Appointment {
	t.Helper()
	a, err := s.scheduling.Request(context.Background(), p.ID, scheduling.RequestForm{
		DoctorID:      d.ID.String(),
		RequestedDate: at.Format(time.RFC3339),
		Symptoms:      "Chest pain after exercise",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return a
}

func TestScheduling_Lifecycle(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	doc := createDoctor(t, s, "Dr. John Smith", "doctor1")
	pat := createPatient(t, s, "Jane Doe", "patient1", doc)
	a := requestFor(t, s, pat, doc, time.Now().Add(48*time.Hour))

	if a.Status != scheduling.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}

	pending, approved, err := s.scheduling.ReceptionQueue(ctx)
	if err != nil {
		t.Fatalf("ReceptionQueue: %v", err)
	}
	if len(pending) != 1 || len(approved) != 0 || pending[0].PatientName != "Jane Doe" {
		t.Fatalf("unexpected queue: pending=%d approved=%d", len(pending), len(approved))
	}

	if _, err := s.scheduling.Review(ctx, a.ID, scheduling.ReviewForm{Status: "approved", ReceptionistNotes: "Room 4"}); err != nil {
		t.Fatalf("Review: %v", err)
	}

	forDoctor, err := s.scheduling.ApprovedForDoctor(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ApprovedForDoctor: %v", err)
	}
	if len(forDoctor) != 1 || forDoctor[0].ReceptionistNotes != "Room 4" {
		t.Fatalf("expected approved appointment for doctor, got %+v", forDoctor)
	}

	done, err := s.scheduling.Complete(ctx, doc.ID, a.ID, "Prescribed rest")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != scheduling.StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}

	forDoctor, _ = s.scheduling.ApprovedForDoctor(ctx, doc.ID)
	if len(forDoctor) != 0 {
		t.Error("completed appointment should leave the doctor's approved list")
	}
}

func TestScheduling_RejectedIsTerminal(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	doc := createDoctor(t, s, "Dr. John Smith", "")
	pat := createPatient(t, s, "Jane Doe", "", doc)
	a := requestFor(t, s, pat, doc, time.Now().Add(24*time.Hour))

	if _, err := s.scheduling.Review(ctx, a.ID, scheduling.ReviewForm{Status: "rejected"}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	_, err := s.scheduling.Review(ctx, a.ID, scheduling.ReviewForm{Status: "approved"})
	if !errors.Is(err, scheduling.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}

	got, err := s.scheduling.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != scheduling.StatusRejected {
		t.Errorf("expected status unchanged, got %s", got.Status)
	}
}

func TestScheduling_StaleUpdateRejected(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	doc := createDoctor(t, s, "Dr. John Smith", "")
	pat := createPatient(t, s, "Jane Doe", "", doc)
	a := requestFor(t, s, pat, doc, time.Now().Add(24*time.Hour))

	repo := scheduling.NewRepoPG(globalPool)
	stale, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if _, err := s.scheduling.Review(ctx, a.ID, scheduling.ReviewForm{Status: "approved"}); err != nil {
		t.Fatalf("Review: %v", err)
	}

	stale.Status = scheduling.StatusRejected
	if err := repo.Update(ctx, stale, scheduling.StatusPending); !errors.Is(err, scheduling.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition for stale update, got %v", err)
	}
}

func TestScheduling_PatientHistoryNewestFirst(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	doc := createDoctor(t, s, "Dr. John Smith", "")
	pat := createPatient(t, s, "Jane Doe", "", doc)
	first := requestFor(t, s, pat, doc, time.Now().Add(72*time.Hour))
	time.Sleep(10 * time.Millisecond)
	second := requestFor(t, s, pat, doc, time.Now().Add(24*time.Hour))

	history, err := s.scheduling.ForPatient(ctx, pat.ID)
	if err != nil {
		t.Fatalf("ForPatient: %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID || history[1].ID != first.ID {
		t.Errorf("expected newest request first, got %+v", history)
	}
}

func TestScheduling_UnknownAppointment(t *testing.T) {
	s := newServices(t)
	doc := createDoctor(t, s, "Dr. John Smith", "")

	_, err := s.scheduling.Complete(context.Background(), doc.ID, doc.ID, "")
	if !errors.Is(err, scheduling.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

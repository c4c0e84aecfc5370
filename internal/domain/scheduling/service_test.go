package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/validation"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/websocket"
)

// -- Mock Repository --

type mockRepo struct {
	store map[uuid.UUID]*Appointment
	names map[uuid.UUID]string
	clock time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		store: make(map[uuid.UUID]*Appointment),
		names: make(map[uuid.UUID]string),
		clock: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = m.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockRepo) withNames(a *Appointment) *Appointment {
	cp := *a
	cp.PatientName = m.names[a.PatientID]
	cp.DoctorName = m.names[a.DoctorID]
	return &cp
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.withNames(a), nil
}

func (m *mockRepo) filter(keep func(*Appointment) bool, less func(a, b *Appointment) bool) []*Appointment {
	var out []*Appointment
	for _, a := range m.store {
		if keep(a) {
			out = append(out, m.withNames(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b *Appointment) bool { return a.CreatedAt.After(b.CreatedAt) }

func (m *mockRepo) ListByStatus(_ context.Context, statuses ...Status) ([]*Appointment, error) {
	return m.filter(func(a *Appointment) bool {
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	}, newestFirst), nil
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, status Status) ([]*Appointment, error) {
	return m.filter(func(a *Appointment) bool {
		return a.DoctorID == doctorID && a.Status == status
	}, func(a, b *Appointment) bool { return a.RequestedDate.Before(b.RequestedDate) }), nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return m.filter(func(a *Appointment) bool { return a.PatientID == patientID }, newestFirst), nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment, from Status) error {
	stored, ok := m.store[a.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return ErrIllegalTransition
	}
	stored.Status = a.Status
	stored.ReceptionistNotes = a.ReceptionistNotes
	stored.DoctorNotes = a.DoctorNotes
	stored.UpdatedAt = m.tick()
	a.UpdatedAt = stored.UpdatedAt
	return nil
}

type mockDoctors struct {
	known map[uuid.UUID]*identity.Doctor
}

func (m *mockDoctors) GetDoctor(_ context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, ok := m.known[id]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockDoctors) DoctorChoices(_ context.Context) ([]*identity.Doctor, error) {
	var out []*identity.Doctor
	for _, d := range m.known {
		out = append(out, d)
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) topics() []string {
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Topic)
	}
	return out
}

type testEnv struct {
	svc       *Service
	repo      *mockRepo
	doctors   *mockDoctors
	events    *recordingPublisher
	doctorID  uuid.UUID
	patientID uuid.UUID
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:      newMockRepo(),
		doctors:   &mockDoctors{known: make(map[uuid.UUID]*identity.Doctor)},
		events:    &recordingPublisher{},
		doctorID:  uuid.New(),
		patientID: uuid.New(),
	}
	env.doctors.known[env.doctorID] = &identity.Doctor{ID: env.doctorID, Name: "Dr. John Smith", Specialty: "Cardiology"}
	env.repo.names[env.doctorID] = "Dr. John Smith"
	env.repo.names[env.patientID] = "Jane Doe"
	env.svc = NewService(env.repo, env.doctors, env.events, zerolog.Nop())
	env.svc.loc = time.UTC
	return env
}

func (env *testEnv) request(t *testing.T, when string) *Appointment {
	t.Helper()
	a, err := env.svc.Request(context.Background(), env.patientID, RequestForm{
		DoctorID:      env.doctorID.String(),
		RequestedDate: when,
		Symptoms:      "Chest pain",
	})
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	return a
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, true},
		{StatusPending, StatusCompleted, false},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusApproved, true},
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
		{StatusCompleted, StatusApproved, false},
		{Status("bogus"), Status("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestRequest_CreatesPending(t *testing.T) {
	env := newTestEnv()
	a := env.request(t, "2024-06-01T09:30")

	if a.Status != StatusPending {
		t.Errorf("expected pending, got %s", a.Status)
	}
	if a.PatientID != env.patientID {
		t.Error("expected appointment bound to the requesting patient")
	}
	want := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	if !a.RequestedDate.Equal(want) {
		t.Errorf("expected requested date %v, got %v", want, a.RequestedDate)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	topics := env.events.topics()
	if len(topics) != 2 || topics[0] != TopicReception || topics[1] != PatientTopic(env.patientID) {
		t.Errorf("unexpected event topics: %v", topics)
	}
	if env.events.events[0].Type != "appointment.requested" {
		t.Errorf("unexpected event type %s", env.events.events[0].Type)
	}
}

func TestRequest_AcceptsRFC3339(t *testing.T) {
	env := newTestEnv()
	a := env.request(t, "2024-06-01T09:30:00+02:00")
	if !a.RequestedDate.Equal(time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected requested date %v", a.RequestedDate)
	}
}

func TestRequest_FieldErrors(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name  string
		form  RequestForm
		field string
	}{
		{"missing doctor", RequestForm{RequestedDate: "2024-06-01T09:30", Symptoms: "x"}, "doctor"},
		{"unknown doctor", RequestForm{DoctorID: uuid.NewString(), RequestedDate: "2024-06-01T09:30", Symptoms: "x"}, "doctor"},
		{"malformed doctor", RequestForm{DoctorID: "42", RequestedDate: "2024-06-01T09:30", Symptoms: "x"}, "doctor"},
		{"missing date", RequestForm{DoctorID: env.doctorID.String(), Symptoms: "x"}, "requested_date"},
		{"bad date", RequestForm{DoctorID: env.doctorID.String(), RequestedDate: "tomorrow", Symptoms: "x"}, "requested_date"},
		{"missing symptoms", RequestForm{DoctorID: env.doctorID.String(), RequestedDate: "2024-06-01T09:30", Symptoms: "  "}, "symptoms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Request(context.Background(), env.patientID, tt.form)
			var errs validation.Errors
			if !errors.As(err, &errs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
			if !errs.Has(tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
	if len(env.repo.store) != 0 {
		t.Error("no appointment should be stored")
	}
}

func TestReview_ApproveThenVisibleToDoctor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	later := env.request(t, "2024-06-02T09:00")
	earlier := env.request(t, "2024-06-01T09:00")
	env.request(t, "2024-06-03T09:00")

	for _, a := range []*Appointment{later, earlier} {
		updated, err := env.svc.Review(ctx, a.ID, ReviewForm{Status: "approved", ReceptionistNotes: "Bring prior ECG"})
		if err != nil {
			t.Fatalf("Review() error: %v", err)
		}
		if updated.Status != StatusApproved || updated.ReceptionistNotes != "Bring prior ECG" {
			t.Errorf("unexpected appointment after review: %+v", updated)
		}
		if !updated.UpdatedAt.After(updated.CreatedAt) {
			t.Error("expected updated_at to advance")
		}
	}

	visible, err := env.svc.ApprovedForDoctor(ctx, env.doctorID)
	if err != nil {
		t.Fatalf("ApprovedForDoctor() error: %v", err)
	}
	if len(visible) != 2 || visible[0].ID != earlier.ID || visible[1].ID != later.ID {
		t.Errorf("expected approved appointments ordered by requested date, got %v", visible)
	}

	pending, approved, err := env.svc.ReceptionQueue(ctx)
	if err != nil {
		t.Fatalf("ReceptionQueue() error: %v", err)
	}
	if len(pending) != 1 || len(approved) != 2 {
		t.Errorf("expected 1 pending and 2 approved, got %d and %d", len(pending), len(approved))
	}
	if approved[0].PatientName != "Jane Doe" || approved[0].DoctorName != "Dr. John Smith" {
		t.Errorf("expected joined names, got %q and %q", approved[0].PatientName, approved[0].DoctorName)
	}
}

func TestReview_RejectIsTerminal(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.request(t, "2024-06-01T09:00")

	if _, err := env.svc.Review(ctx, a.ID, ReviewForm{Status: "rejected"}); err != nil {
		t.Fatalf("Review() error: %v", err)
	}
	_, err := env.svc.Review(ctx, a.ID, ReviewForm{Status: "approved"})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if got := env.repo.store[a.ID].Status; got != StatusRejected {
		t.Errorf("status must stay rejected, got %s", got)
	}

	if visible, _ := env.svc.ApprovedForDoctor(ctx, env.doctorID); len(visible) != 0 {
		t.Error("rejected appointment must not be visible to the doctor")
	}
}

func TestReview_SameStatusUpdatesNotes(t *testing.T) {
	env := newTestEnv()
	a := env.request(t, "2024-06-01T09:00")
	before := len(env.events.events)

	updated, err := env.svc.Review(context.Background(), a.ID, ReviewForm{Status: "pending", ReceptionistNotes: "Called patient"})
	if err != nil {
		t.Fatalf("Review() error: %v", err)
	}
	if updated.Status != StatusPending || updated.ReceptionistNotes != "Called patient" {
		t.Errorf("unexpected appointment %+v", updated)
	}
	if len(env.events.events) != before {
		t.Error("a note-only update must not publish an event")
	}
}

func TestReview_InvalidInput(t *testing.T) {
	env := newTestEnv()
	a := env.request(t, "2024-06-01T09:00")

	_, err := env.svc.Review(context.Background(), a.ID, ReviewForm{Status: "cancelled"})
	var errs validation.Errors
	if !errors.As(err, &errs) || !errs.Has("status") {
		t.Errorf("expected status field error, got %v", err)
	}
	if _, err := env.svc.Review(context.Background(), uuid.New(), ReviewForm{Status: "approved"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.request(t, "2024-06-01T09:00")

	if _, err := env.svc.Complete(ctx, env.doctorID, a.ID, "Resolved"); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("pending appointment: expected ErrIllegalTransition, got %v", err)
	}

	env.svc.Review(ctx, a.ID, ReviewForm{Status: "approved"})
	if _, err := env.svc.Complete(ctx, uuid.New(), a.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other doctor: expected ErrNotFound, got %v", err)
	}

	done, err := env.svc.Complete(ctx, env.doctorID, a.ID, "Resolved")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if done.Status != StatusCompleted || done.DoctorNotes != "Resolved" {
		t.Errorf("unexpected appointment %+v", done)
	}

	last := env.events.events[len(env.events.events)-1]
	if last.Type != "appointment.completed" {
		t.Errorf("expected completed event, got %s", last.Type)
	}
}

func TestForPatient_NewestFirst(t *testing.T) {
	env := newTestEnv()
	first := env.request(t, "2024-06-05T09:00")
	second := env.request(t, "2024-06-01T09:00")

	mine, err := env.svc.ForPatient(context.Background(), env.patientID)
	if err != nil {
		t.Fatalf("ForPatient() error: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != second.ID || mine[1].ID != first.ID {
		t.Error("expected newest-created first")
	}
	if mine[0].DoctorName != "Dr. John Smith" {
		t.Errorf("expected doctor name, got %q", mine[0].DoctorName)
	}
}

func TestNilPublisher(t *testing.T) {
	env := newTestEnv()
	env.svc.events = nil
	env.request(t, "2024-06-01T09:00")
}

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/scheduling"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/db"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/websocket"
	"github.com/hshah27/hospital-mgmt-system/migrations"
)

// globalPool is the migrated test database, initialized once in TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	if os.Getenv("HMS_INTEGRATION") != "1" {
		fmt.Fprintln(os.Stderr, "skipping integration tests: set HMS_INTEGRATION=1 to run them")
		os.Exit(0)
	}

	ctx := context.Background()
	pool, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up database: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// setupDatabase connects to HMS_DATABASE_URL when set, otherwise starts a
// container, and applies the embedded migrations.
func setupDatabase(ctx context.Context) (*pgxpool.Pool, func(), error) {
	connStr := os.Getenv("HMS_DATABASE_URL")
	cleanup := func() {}
	if connStr == "" {
		var err error
		connStr, cleanup, err = startPostgres(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("start postgres container: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, connStr, 5, 1)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	if _, err := db.NewMigratorFS(pool, migrations.FS).Up(ctx); err != nil {
		pool.Close()
		cleanup()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, func() {
		pool.Close()
		cleanup()
	}, nil
}

// resetTables empties every table so each test starts clean.
func resetTables(t *testing.T) {
	t.Helper()
	_, err := globalPool.Exec(context.Background(),
		"TRUNCATE appointments, patients, doctors, credentials CASCADE")
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// services is the production wiring against the test database.
type services struct {
	accounts   *account.Service
	identity   *identity.Service
	scheduling *scheduling.Service
	hub        *websocket.Hub
}

func newServices(t *testing.T) *services {
	t.Helper()
	resetTables(t)
	return newServicesWith(identity.NewDoctorRepo(globalPool), identity.NewPatientRepo(globalPool))
}

func newServicesWith(doctors identity.DoctorRepository, patients identity.PatientRepository) *services {
	logger := zerolog.Nop()
	hub := websocket.NewHub(logger)
	accounts := account.NewService(account.NewRepoPG(globalPool), auth.NewPasswordHasher(bcrypt.MinCost), logger)
	registry := identity.NewService(doctors, patients, accounts, db.NewTxRunner(globalPool), logger)
	return &services{
		accounts:   accounts,
		identity:   registry,
		scheduling: scheduling.NewService(scheduling.NewRepoPG(globalPool), registry, hub, logger),
		hub:        hub,
	}
}

func createDoctor(t *testing.T, s *services, name, username string) *identity.Doctor {
	t.Helper()
	f := identity.DoctorForm{Name: name, Specialty: "Cardiology"}
	if username != "" {
		f.AccountFields = identity.AccountFields{Username: username, Password1: "password123", Password2: "password123"}
	}
	d, err := s.identity.CreateDoctor(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateDoctor(%s): %v", name, err)
	}
	return d
}

func createPatient(t *testing.T, s *services, name, username string, doctor *identity.Doctor) *identity.Patient {
	t.Helper()
	f := identity.PatientForm{Name: name, Age: "35", Gender: string(identity.GenderFemale)}
	if doctor != nil {
		f.DoctorID = doctor.ID.String()
	}
	if username != "" {
		f.AccountFields = identity.AccountFields{Username: username, Password1: "password123", Password2: "password123"}
	}
	p, err := s.identity.CreatePatient(context.Background(), f)
	if err != nil {
		t.Fatalf("CreatePatient(%s): %v", name, err)
	}
	return p
}

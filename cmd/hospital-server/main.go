package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/hshah27/hospital-mgmt-system/internal/config"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/account"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/identity"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/portal"
	"github.com/hshah27/hospital-mgmt-system/internal/domain/scheduling"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/auth"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/db"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/middleware"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/sandbox"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/web"
	"github.com/hshah27/hospital-mgmt-system/internal/platform/websocket"
	"github.com/hshah27/hospital-mgmt-system/migrations"
)

const (
	bodyLimit      = "1M"
	requestTimeout = 30 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-server",
		Short: "Hospital management web application",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				migrator := newMigrator(pool, migrationsDir(dir, cfg))
				count, err := migrator.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR, then the embedded set)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := newMigrator(pool, migrationsDir(dir, cfg)).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR, then the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the sample doctor, patient and receptionist accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			appointments, _ := cmd.Flags().GetInt("appointments")
			seed, _ := cmd.Flags().GetInt64("seed")

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				logger := newLogger(cfg)
				svc := newApp(pool, websocket.NewHub(logger), logger)
				seeder := sandbox.NewSeeder(svc.accounts, svc.identity, svc.scheduling, sandbox.SeedConfig{
					Password:         password,
					DemoAppointments: appointments,
					Seed:             seed,
				}, logger)

				result, err := seeder.Seed(ctx)
				if err != nil {
					return err
				}
				for _, u := range result.Created {
					fmt.Printf("Created user: %s\n", u)
				}
				for _, u := range result.Existing {
					fmt.Printf("User already exists: %s\n", u)
				}
				if result.Appointments > 0 {
					fmt.Printf("Requested %d demo appointment(s).\n", result.Appointments)
				}
				fmt.Printf("Sample users ready. Password: %s\n", seeder.Password())
				return nil
			})
		},
	}
	cmd.Flags().String("password", sandbox.DefaultSeedConfig().Password, "Password for the sample accounts")
	cmd.Flags().Int("appointments", 0, "Number of demo appointment requests for the sample patient")
	cmd.Flags().Int64("seed", 0, "Random seed for demo appointments (0 picks one)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage login credentials",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a login credential (use --staff for receptionists)",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			staff, _ := cmd.Flags().GetBool("staff")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := account.NewService(account.NewRepoPG(pool), auth.NewPasswordHasher(bcrypt.DefaultCost), newLogger(cfg))
				cred, err := svc.Register(ctx, account.NewCredential{Username: username, Password: password, Staff: staff})
				if err != nil {
					return err
				}
				fmt.Printf("Created %s (id %s, staff=%t)\n", cred.Username, cred.ID, cred.IsStaff)
				return nil
			})
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Password")
	createCmd.Flags().Bool("staff", false, "Grant staff (receptionist) access")
	cmd.AddCommand(createCmd)

	return cmd
}

// withPool loads config, connects, and runs fn with a background context.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// migrationsDir picks the --dir flag, then MIGRATIONS_DIR. An empty result
// selects the embedded migrations.
func migrationsDir(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.MigrationsDir
}

// newMigrator reads dir when it exists on disk and falls back to the
// migrations compiled into the binary.
func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	return db.NewMigratorFS(pool, migrationSource(dir))
}

func migrationSource(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return migrations.FS
}

// app holds the wired services shared by the server and the CLI.
type app struct {
	accounts   *account.Service
	identity   *identity.Service
	scheduling *scheduling.Service
}

func newApp(pool *pgxpool.Pool, events websocket.EventPublisher, logger zerolog.Logger) *app {
	accounts := account.NewService(account.NewRepoPG(pool), auth.NewPasswordHasher(bcrypt.DefaultCost), logger)
	registry := identity.NewService(
		identity.NewDoctorRepo(pool),
		identity.NewPatientRepo(pool),
		accounts,
		db.NewTxRunner(pool),
		logger,
	)
	appointments := scheduling.NewService(scheduling.NewRepoPG(pool), registry, events, logger)
	return &app{accounts: accounts, identity: registry, scheduling: appointments}
}

// newServer builds the echo instance with all middleware and routes. pool is
// only touched by handlers, so tests may pass a nil pool.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, *websocket.Hub, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, nil, err
	}

	hub := websocket.NewHub(logger)
	svc := newApp(pool, hub, logger)
	sessions := auth.NewSessionManager(auth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		TTL:    cfg.SessionTTL,
		Secure: cfg.CookieSecure,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = web.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.CookieSecure))
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(middleware.RequestTimeout(requestTimeout))
	e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
		Skipper:        auth.PublicSkipper,
		TokenLookup:    "form:" + web.CSRFFormField,
		ContextKey:     web.CSRFContextKey,
		CookieName:     "hms_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	e.Use(sessions.Session(svc.accounts))
	e.Use(middleware.Audit(logger))

	web.RegisterStatic(e)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	requireDoctor := identity.RequireDoctor(svc.identity)
	requirePatient := identity.RequirePatient(svc.identity)

	portalHandler := portal.NewHandler(sessions, svc.accounts, svc.identity, svc.scheduling, logger)
	portalHandler.RegisterRoutes(e, portal.Middleware{
		RequireDoctor:  requireDoctor,
		RequirePatient: requirePatient,
		LoginLimit:     middleware.RateLimit(middleware.LoginRateLimitConfig(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst)),
	})

	scheduling.NewHandler(svc.scheduling, svc.identity).RegisterRoutes(e, requirePatient, requireDoctor)

	identity.NewHandler(svc.identity).RegisterRoutes(e, registryGate(cfg, logger)...)

	// Anonymous connections resolve no topics and are refused.
	websocket.NewHandler(hub, portalHandler.Topics).RegisterRoutes(e.Group(""))

	return e, hub, nil
}

// registryGate is staff-only unless PUBLIC_REGISTRY is set.
func registryGate(cfg *config.Config, logger zerolog.Logger) []echo.MiddlewareFunc {
	if cfg.PublicRegistry {
		logger.Warn().Msg("PUBLIC_REGISTRY enabled: doctor and patient registration is open to anonymous users")
		return nil
	}
	return []echo.MiddlewareFunc{auth.RequireStaff()}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e, hub, err := newServer(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("ws_clients", hub.ClientCount()).Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

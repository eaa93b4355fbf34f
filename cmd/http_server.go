package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/accessly/lock-management/internal"
	"github.com/accessly/lock-management/internal/access"
	"github.com/accessly/lock-management/internal/accesslog"
	accesslogPostgres "github.com/accessly/lock-management/internal/accesslog/postgres"
	"github.com/accessly/lock-management/internal/auth"
	authPostgres "github.com/accessly/lock-management/internal/auth/postgres"
	"github.com/accessly/lock-management/internal/core/events"
	"github.com/accessly/lock-management/internal/credential"
	credentialPostgres "github.com/accessly/lock-management/internal/credential/postgres"
	"github.com/accessly/lock-management/internal/lock"
	lockPostgres "github.com/accessly/lock-management/internal/lock/postgres"
	"github.com/accessly/lock-management/internal/permission"
	permissionPostgres "github.com/accessly/lock-management/internal/permission/postgres"
	"github.com/accessly/lock-management/internal/reservation"
	reservationPostgres "github.com/accessly/lock-management/internal/reservation/postgres"
	transportMiddleware "github.com/accessly/lock-management/internal/transport/middleware"
	"github.com/accessly/lock-management/internal/transport/rest"
	"github.com/accessly/lock-management/internal/user"
	userPostgres "github.com/accessly/lock-management/internal/user/postgres"
	"github.com/accessly/lock-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Writer   *accesslog.Writer
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	deps.Router.Use(transportMiddleware.RequestID)
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		// drain queued audit entries before closing the database
		deps.Writer.Close()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.L()

	if err := validateOpenAPISpec("api/openapi.yml"); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	bus := events.NewEventBus(lg)

	grantRepo := permissionPostgres.NewGrantRepository(gormDB)
	credentialRepo := credentialPostgres.NewCredentialRepository(gormDB)
	accessLogRepo := accesslogPostgres.NewAccessLogRepository(gormDB)
	reservationRepo := reservationPostgres.NewReservationRepository(gormDB)
	lockRepo := lockPostgres.NewLockRepository(gormDB)
	userRepo := userPostgres.NewUserRepository(gormDB)
	authRepo := authPostgres.NewRepository(gormDB)

	lockService := lock.NewService(lockRepo, lg)
	userService := user.NewService(userRepo, config.Security.BCryptCost, lg)
	membership := membershipReader{users: userService, locks: lockService}

	permissionService := permission.NewService(grantRepo, grantRepo, membership, lg)
	credentialService := credential.NewService(credentialRepo, config.Security.BCryptCost, lg)

	accessLogService := accesslog.NewService(accessLogRepo, lg)
	writer := accesslog.NewWriter(accessLogService, accesslog.WriterConfig{
		QueueSize:  config.Audit.QueueSize,
		MaxWorkers: config.Audit.MaxWorkers,
	}, lg)
	accesslog.NewEventHandler(writer, lg).RegisterEventHandlers(bus)

	accessService := access.NewService(credentialService, permissionService, lockReader{locks: lockService}, bus, lg)
	reservationService := reservation.NewService(reservationRepo, permissionService, lockDirectory{locks: lockService}, bus, lg)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.AccessTokenSecret, config.Security.RefreshTokenSecret)
	authService := auth.NewService(authRepo, tokenGen)

	handlers := rest.Handlers{
		Auth:        auth.NewHandler(authService),
		User:        user.NewHandler(userService, credentialService),
		Lock:        lock.NewHandler(lockService),
		Permission:  permission.NewHandler(permissionService),
		Reservation: reservation.NewHandler(reservationService),
		Access:      access.NewHandler(accessService),
		AccessLog:   accesslog.NewHandler(accessLogService),
	}

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Writer:   writer,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// validateOpenAPISpec fails startup when the published contract does not
// parse, so a bad deploy is caught before it serves traffic.
func validateOpenAPISpec(path string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return err
	}
	return doc.Validate(loader.Context)
}

// membershipReader adapts the user and lock services to the resolver's
// expansion interface.
type membershipReader struct {
	users *user.Service
	locks *lock.Service
}

func (m membershipReader) GroupIDsForUser(userID int64) ([]int64, error) {
	return m.users.GroupIDsForUser(userID)
}

func (m membershipReader) LockGroupIDsForLock(lockID int64) ([]int64, error) {
	return m.locks.LockGroupIDsForLock(lockID)
}

type lockReader struct {
	locks *lock.Service
}

func (a lockReader) LockInfo(lockID int64) (*access.LockInfo, error) {
	l, err := a.locks.GetByID(lockID)
	if err != nil {
		if err == lock.ErrLockNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &access.LockInfo{
		ID:            l.ID,
		Name:          l.Name,
		KeypadEnabled: l.KeypadEnabled,
		BadgeEnabled:  l.BadgeEnabled,
	}, nil
}

type lockDirectory struct {
	locks *lock.Service
}

func (a lockDirectory) ReservableState(lockID int64) (bool, bool, error) {
	l, err := a.locks.GetByID(lockID)
	if err != nil {
		if err == lock.ErrLockNotFound {
			return false, false, nil
		}
		return false, false, err
	}
	return true, l.IsReservable, nil
}

func (a lockDirectory) ReservableLocks() ([]reservation.LockSummary, error) {
	locks, err := a.locks.ListReservable()
	if err != nil {
		return nil, err
	}
	out := make([]reservation.LockSummary, 0, len(locks))
	for _, l := range locks {
		out = append(out, reservation.LockSummary{ID: l.ID, Name: l.Name})
	}
	return out, nil
}

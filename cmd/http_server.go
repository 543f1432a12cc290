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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/auth"
	authPostgres "github.com/frahmantamala/azure-docgen/internal/auth/postgres"
	"github.com/frahmantamala/azure-docgen/internal/core/events"
	"github.com/frahmantamala/azure-docgen/internal/document"
	documentPostgres "github.com/frahmantamala/azure-docgen/internal/document/postgres"
	"github.com/frahmantamala/azure-docgen/internal/notification"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	permissionPostgres "github.com/frahmantamala/azure-docgen/internal/permission/postgres"
	"github.com/frahmantamala/azure-docgen/internal/project"
	projectPostgres "github.com/frahmantamala/azure-docgen/internal/project/postgres"
	"github.com/frahmantamala/azure-docgen/internal/review"
	reviewPostgres "github.com/frahmantamala/azure-docgen/internal/review/postgres"
	"github.com/frahmantamala/azure-docgen/internal/template"
	templatePostgres "github.com/frahmantamala/azure-docgen/internal/template/postgres"
	"github.com/frahmantamala/azure-docgen/internal/transport/openapi"
	"github.com/frahmantamala/azure-docgen/internal/transport/rest"
	"github.com/frahmantamala/azure-docgen/internal/user"
	userPostgres "github.com/frahmantamala/azure-docgen/internal/user/postgres"
	"github.com/frahmantamala/azure-docgen/pkg/logger"
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
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	// The spec is served at /openapi.yml; fail fast if it doesn't validate.
	if _, err := openapi.Load("./api/openapi.yml"); err != nil {
		deps.Logger.Warn("openapi document invalid, swagger UI will be degraded", "error", err)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	lg := deps.Logger

	eventBus := events.NewEventBus(lg)
	notification.NewNotifier(lg).Register(eventBus)

	permissionRepo := permissionPostgres.NewPermissionRepository(deps.Gorm)
	permissionService := permission.NewService(permissionRepo, lg)

	reviewRepo := reviewPostgres.NewReviewRepository(deps.Gorm)
	reviewService := review.NewService(reviewRepo, eventBus, lg)

	projectRepo := projectPostgres.NewProjectRepository(deps.Gorm)
	projectService := project.NewService(projectRepo, permissionService, lg)

	documentRepo := documentPostgres.NewDocumentRepository(deps.Gorm)
	documentService := document.NewService(documentRepo, lg)

	templateRepo := templatePostgres.NewTemplateRepository(deps.Gorm)
	templateService := template.NewService(templateRepo, permissionService, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		deps.Config.Security.AccessTokenSecret,
		deps.Config.Security.RefreshTokenSecret,
		deps.Config.Security.AccessTokenDuration,
		deps.Config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), tokenGen, deps.Config.Security.BCryptCost)
	userService := user.NewService(userPostgres.NewRepository(deps.DB), permissionService)

	handlers := rest.Handlers{
		Auth:       auth.NewHandler(authService),
		User:       user.NewHandler(userService, permissionService),
		Project:    project.NewHandler(projectService, permissionService),
		Document:   document.NewHandler(documentService, permissionService),
		Template:   template.NewHandler(templateService),
		Review:     review.NewHandler(reviewService, permissionService),
		Permission: permission.NewHandler(permissionService),
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, handlers, permissionService, lg)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitWithLevel(os.Getenv("APP_ENV"), config.Observability.Logging.Level)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.LoggerWrapper(),
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB opens the pgx-backed connection pool shared by sqlx and gorm.
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

// initGorm wraps the existing pool so both data layers share connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/authplatform/passage/internal/auth/http"
	"github.com/authplatform/passage/internal/auth/service"
	"github.com/authplatform/passage/internal/auth/store"
	"github.com/authplatform/passage/internal/auth/store/drivers/sqlite"
	"github.com/authplatform/passage/pkg/cryptox"
	"github.com/authplatform/passage/pkg/jwtx"
	"github.com/authplatform/passage/pkg/mailx"
	"github.com/authplatform/passage/pkg/obsx"
	"github.com/authplatform/passage/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec
	mail  *mailx.Dispatcher
	otp   *service.OTPStore

	tokenService      *service.TokenService
	authService       *service.AuthService
	permissionService *service.PermissionService
	ownerService      *service.OwnerService
	projectService    *service.ProjectService
	roleService       *service.RoleService
	endUserService    *service.EndUserService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "passage",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	obsx.Init()

	codec, err := jwtx.NewCodec([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initMail()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.otp.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.otp.Stop()
	app.mail.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initMail picks the SMTP sender when configured, otherwise logs outbound
// mail so local development works without a relay.
func (app *Application) initMail() {
	var sender mailx.Sender
	if app.cfg.SMTPHost != "" {
		sender = mailx.NewSMTPSender(
			app.cfg.SMTPHost,
			app.cfg.SMTPPort,
			app.cfg.SMTPUsername,
			app.cfg.SMTPPassword,
			app.cfg.SMTPFrom,
		)
	} else {
		app.logger.Warn("SMTP_HOST not set, outbound mail will be logged only")
		sender = &mailx.LogSender{Logger: app.logger}
	}
	app.mail = mailx.NewDispatcher(sender, app.logger)
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.otp = service.NewOTPStore(app.logger, app.cfg.OTPTTL)

	app.tokenService = &service.TokenService{
		Codec:    app.codec,
		LoginTTL: app.cfg.LoginTTL,
	}

	app.authService = &service.AuthService{Codec: app.codec, Store: app.db}
	app.permissionService = &service.PermissionService{Store: app.db}
	app.ownerService = &service.OwnerService{
		Store:   app.db,
		Tokens:  app.tokenService,
		Mail:    app.mail,
		OTP:     app.otp,
		BaseURL: app.cfg.BaseURL,
	}
	app.projectService = &service.ProjectService{Store: app.db}
	app.roleService = &service.RoleService{Store: app.db}
	app.endUserService = &service.EndUserService{
		Store:   app.db,
		Tokens:  app.tokenService,
		Mail:    app.mail,
		OTP:     app.otp,
		BaseURL: app.cfg.BaseURL,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.PermissionService = app.permissionService
	router.OwnerService = app.ownerService
	router.ProjectService = app.projectService
	router.RoleService = app.roleService
	router.EndUserService = app.endUserService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

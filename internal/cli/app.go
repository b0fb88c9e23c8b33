package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/yukikurage/task-tracker/internal/auth"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/metrics"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
	"gorm.io/gorm"
)

// app is the fully wired core used by a single command run.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *gorm.DB
	store    *repository.Store
	svc      *services.Services
	registry *prometheus.Registry
	opts     *rootOptions
}

// newApp loads configuration, opens and migrates the database and wires the
// services. Logs go to the command's stderr.
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupDefault(cmd.ErrOrStderr(), cfg.LogLevel)

	db, err := database.Open(database.Options{Path: cfg.DBPath, Logger: log, SQLLog: cfg.SQLLog})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cmd.Context(), db, log); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.New(registry)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	secret, err := auth.ResolveSecret(cfg, log)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	issuer, err := auth.NewTokenIssuer(secret, auth.TokenConfig{
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		RememberMeTTL: cfg.RememberMeTTL,
	}, nil)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	store := repository.NewStore(db,
		repository.WithLogger(log),
		repository.WithTransactionRecorder(collector),
	)
	authn := auth.NewAuthenticator(store.Users, auth.NewHasher(cfg.BcryptCost), issuer,
		auth.WithLogger(log),
		auth.WithAttemptRecorder(collector),
	)
	authorizer := policy.NewAuthorizer(store.Projects, store.Tasks,
		policy.WithLogger(log),
		policy.WithDecisionRecorder(collector),
	)

	return &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		store: store,
		svc: services.New(services.Deps{
			Store:         store,
			Authenticator: authn,
			Authorizer:    authorizer,
			Logger:        log,
		}),
		registry: registry,
		opts:     opts,
	}, nil
}

// Close flushes metrics if requested and closes the database.
func (a *app) Close() error {
	var errs []error
	if a.opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := database.Close(a.db); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// actor resolves the operator identity named by --as. Operator commands act
// with the privileges of an existing system admin.
func (a *app) actor(ctx context.Context, loginID string) (*auth.Claims, error) {
	if loginID == "" {
		return nil, fmt.Errorf("--as is required")
	}
	user, err := a.store.Users.FindByLoginID(ctx, loginID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q not found", loginID)
	}
	if user.Role != models.RoleSystemAdmin {
		return nil, fmt.Errorf("user %q is not a system admin", loginID)
	}
	return &auth.Claims{UserID: user.ID, Role: user.Role, TokenType: auth.TokenTypeAccess}, nil
}

// run wires the app, calls fn and closes the app, keeping fn's error first.
func run(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(cmd.Context(), a)
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	grpcapp "ledger-auth/internal/app/grpc"
	"ledger-auth/internal/app/rest"
	"ledger-auth/internal/config"
	v1 "ledger-auth/internal/http/v1"
	"ledger-auth/internal/lib/bus"
	"ledger-auth/internal/lib/credential"
	"ledger-auth/internal/lib/logger/sl"
	"ledger-auth/internal/lib/metrics"
	"ledger-auth/internal/lib/migrator"
	"ledger-auth/internal/lib/telemetry"
	"ledger-auth/internal/mail"
	"ledger-auth/internal/repo"
	"ledger-auth/internal/service"
	"ledger-auth/internal/storage/postgresql"
)

const (
	serviceName     = "ledger-auth"
	mailStream      = "LEDGER_MAIL"
	shutdownTimeout = 10 * time.Second
)

type App struct {
	log           *slog.Logger
	cfg           *config.Config
	storage       *postgresql.Storage
	bus           *bus.Bus
	notifier      *mail.Notifier
	stopTelemetry telemetry.Shutdown
	inviteService *service.InviteService
	restApp       *rest.App
	grpcApp       *grpcapp.App
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	const op = "app.New"

	a := &App{log: log, cfg: cfg}

	stopTelemetry, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.stopTelemetry = stopTelemetry

	storage, err := postgresql.New(ctx, cfg.Postgres, log)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.storage = storage

	if err := migrator.RunMigrations(storage.GetDB(), log); err != nil {
		a.release()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mailer, err := a.newMailer()
	if err != nil {
		a.release()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.notifier = mail.NewNotifier(log, mailer, cfg.Mail.From)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	db, timeout := storage.GetDB(), storage.QueryTimeout()
	userRepo := repo.NewUserRepo(db, timeout)
	teamRepo := repo.NewTeamRepo(db, timeout)
	inviteRepo := repo.NewInviteRepo(db, timeout)
	statsRepo := repo.NewStatsRepo(db, timeout)

	hasher := credential.NewHasher(credential.Params{
		Memory:      cfg.Auth.Argon2Memory,
		Iterations:  cfg.Auth.Argon2Time,
		Parallelism: cfg.Auth.Argon2Threads,
		SaltLength:  credential.DefaultParams.SaltLength,
		KeyLength:   credential.DefaultParams.KeyLength,
	}, cfg.Auth.HashConcurrency)

	userService := service.NewUserService(log, userRepo, hasher, a.notifier, m)
	authService := service.NewAuthService(log, userRepo, teamRepo, hasher, cfg.Auth.AdminKey, cfg.GRPC.ServiceKey, m)
	teamService := service.NewTeamService(log, teamRepo)
	a.inviteService = service.NewInviteService(log, inviteRepo, teamRepo, userRepo, a.notifier, cfg.Auth.InviteTTL, m)
	statsService := service.NewStatsService(log, statsRepo)

	routerDependencies := v1.RouterDependencies{
		Auth:           authService,
		Users:          userService,
		Teams:          teamService,
		Invites:        a.inviteService,
		Stats:          statsService,
		Metrics:        m,
		Gatherer:       reg,
		Ping:           storage.Ping,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.Timeout,
	}

	a.restApp = rest.New(log, &routerDependencies, cfg.Server.Port)
	a.grpcApp = grpcapp.New(log, authService, teamService, cfg.GRPC.Port)

	return a, nil
}

func MustNew(ctx context.Context, cfg *config.Config, log *slog.Logger) *App {
	a, err := New(ctx, cfg, log)
	if err != nil {
		panic(err)
	}
	return a
}

// Run serves HTTP and gRPC and runs the invite sweeper until ctx is done or
// one of them fails. The servers are stopped before Run returns.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	a.log.With(slog.String("op", op)).Info("starting application")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.restApp.Run)
	g.Go(a.grpcApp.Run)
	g.Go(func() error {
		return a.inviteService.RunSweeper(gctx, a.cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.stopServers()
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GracefulShutdown releases everything Run does not own: pending mail, the
// bus, the database pool and the tracer provider.
func (a *App) GracefulShutdown() error {
	const op = "app.GracefulShutdown"

	a.log.With(slog.String("op", op)).Info("shutting down application")

	return a.release()
}

func (a *App) stopServers() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.grpcApp.Stop()
	return a.restApp.Stop(ctx)
}

func (a *App) release() error {
	var result *multierror.Error

	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.stopTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.stopTelemetry(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("telemetry: %w", err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		a.log.Error("shutdown finished with errors", sl.Err(err))
		return err
	}
	return nil
}

// newMailer publishes to NATS when a URL is configured and only logs otherwise.
func (a *App) newMailer() (mail.Mailer, error) {
	if a.cfg.Mail.NatsURL == "" {
		a.log.Warn("MAIL_NATS_URL not set, outgoing mail will only be logged")
		return mail.NewLogMailer(a.log), nil
	}

	b, err := bus.New(a.cfg.Mail.NatsURL, mailStream, a.cfg.Mail.Subject, a.cfg.Mail.StreamMaxAge)
	if err != nil {
		return nil, err
	}
	a.bus = b
	return mail.NewBusMailer(b, a.cfg.Mail.Subject), nil
}

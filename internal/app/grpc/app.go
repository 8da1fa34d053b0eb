package grpcapp

import (
	"fmt"
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	authgrpc "ledger-auth/internal/grpc/auth"
	"ledger-auth/internal/grpc/authv1"
)

type App struct {
	log        *slog.Logger
	gRPCServer *grpc.Server
	health     *health.Server
	port       string
}

func New(
	log *slog.Logger,
	auth authgrpc.Authenticator,
	teams authgrpc.TeamLookup,
	port string,
) *App {
	gRPCServer := grpc.NewServer(
		authv1.ServerCodec(),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(authgrpc.ServiceKeyInterceptor(auth)),
	)

	authgrpc.Register(gRPCServer, log, auth, teams)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(gRPCServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(authv1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &App{
		log:        log,
		gRPCServer: gRPCServer,
		health:     healthServer,
		port:       port,
	}
}

// Run blocks serving gRPC until Stop.
func (a *App) Run() error {
	const op = "app.grpc.Run"

	log := a.log.With(slog.String("op", op), slog.String("port", a.port))

	l, err := net.Listen("tcp", net.JoinHostPort("", a.port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("starting gRPC server", slog.String("addr", l.Addr().String()))

	if err := a.gRPCServer.Serve(l); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (a *App) Stop() {
	const op = "app.grpc.Stop"

	a.log.With(slog.String("op", op)).Info("stopping gRPC server")

	a.health.Shutdown()
	a.gRPCServer.GracefulStop()
}

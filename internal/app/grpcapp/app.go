package grpcapp

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/KattyaCuevas/posts-service/internal/lib/errors"
)

// ServiceName is the name under which posts service health is reported
const ServiceName = "posts.v1.Posts"

// App serves grpc health checking protocol for the service
type App struct {
	log      *slog.Logger
	port     int
	timeout  time.Duration
	grpcsrvr *grpc.Server
	health   *health.Server
}

// New builds the health server. timeout bounds connection establishment of
// every incoming connection
func New(
	log *slog.Logger,
	port int,
	timeout time.Duration,
) *App {
	recoveryOpt := []recovery.Option{
		recovery.WithRecoveryHandler(
			func(p any) error {
				log.Error("recover panic", slog.Any("panic", p))

				return status.Errorf(codes.Internal, "internal error")
			},
		),
	}

	grpcsrvr := grpc.NewServer(
		grpc.ConnectionTimeout(timeout),
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpt...),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt...),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcsrvr, hs)

	return &App{
		log:      log,
		port:     port,
		timeout:  timeout,
		grpcsrvr: grpcsrvr,
		health:   hs,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic("failed to run grpc application: " + err.Error())
	}
}

func (a *App) Run() error {
	const op = "grpcapp.Run"

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return errors.Fail(op, err)
	}

	return a.Serve(l)
}

// Serve serves health checks on the listener until Stop is called
func (a *App) Serve(l net.Listener) error {
	const op = "grpcapp.Serve"
	log := a.log.With(slog.String("op", op))
	log.Info(
		"starting grpc application",
		slog.String("addr", l.Addr().String()),
		slog.Duration("connection-timeout", a.timeout),
	)

	if err := a.grpcsrvr.Serve(l); err != nil {
		return errors.Fail(op, err)
	}

	return nil
}

// SetServing switches reported status of the service
func (a *App) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	a.health.SetServingStatus(ServiceName, st)
	a.health.SetServingStatus("", st)
}

func (a *App) Stop() {
	const op = "grpcapp.Stop"

	a.log.Info("stop grpc application", slog.String("op", op))

	a.health.Shutdown()
	a.grpcsrvr.GracefulStop()

	a.log.Info("grpc application stopped", slog.String("op", op))
}

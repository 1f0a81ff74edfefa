package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	e "github.com/KattyaCuevas/posts-service/internal/lib/errors"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
)

type App struct {
	log     *slog.Logger
	srvr    *http.Server
	timeout time.Duration
}

func New(
	log *slog.Logger,
	host string,
	port int,
	handler http.Handler,
	readTimeout time.Duration,
	writeTimeout time.Duration,
	idleTimeout time.Duration,
) *App {
	return &App{
		log: log,
		srvr: &http.Server{
			Addr:              net.JoinHostPort(host, fmt.Sprint(port)),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
		},
		timeout: writeTimeout,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic("failed to run http application: " + err.Error())
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	l, err := net.Listen("tcp", a.srvr.Addr)
	if err != nil {
		return e.Fail(op, err)
	}

	return a.Serve(l)
}

// Serve serves http requests on the listener until Stop is called
func (a *App) Serve(l net.Listener) error {
	const op = "httpapp.Serve"
	log := a.log.With(slog.String("op", op))
	log.Info("starting http application", slog.String("addr", l.Addr().String()))

	err := a.srvr.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return e.Fail(op, err)
	}

	return nil
}

// Stop waits for in-flight requests no longer than write timeout
func (a *App) Stop() {
	const op = "httpapp.Stop"
	log := a.log.With(slog.String("op", op))
	log.Info("stop http application")

	ctx, cncl := context.WithTimeout(context.Background(), a.timeout)
	defer cncl()

	if err := a.srvr.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown gracefully", sl.Err(err))
		_ = a.srvr.Close()
		return
	}

	log.Info("http application stopped")
}

package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KattyaCuevas/posts-service/internal/app"
	"github.com/KattyaCuevas/posts-service/internal/config"
)

func main() {
	cfg := config.New()

	log := setUpLogger(cfg.Env, os.Stdout)

	log.Info("logger was initialized", slog.String("env", cfg.Env))

	application := app.New(log, cfg)

	application.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	sig := <-stop
	log.Info("received signal", slog.String("signal", sig.String()))

	application.Stop()
}

// setUpLogger returns set logger according to current environment
func setUpLogger(env string, w io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/KattyaCuevas/posts-service/internal/config"
	cfgStorage "github.com/KattyaCuevas/posts-service/internal/config/storage"
	"github.com/KattyaCuevas/posts-service/internal/lib/logger/sl"
)

func main() {
	var (
		migrationsPath string
		down           bool
	)

	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to directory with migration files")
	flag.BoolVar(&down, "down", false, "roll back all migrations")
	cfg := config.New().Storage

	if cfg.Kind != cfgStorage.KindPostgres {
		slog.Error("migrations are supported only for postgres storage", slog.String("kind", cfg.Kind))
		os.Exit(1)
	}

	conn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	m, err := migrate.New(
		"file://"+migrationsPath,
		conn,
	)
	if err != nil {
		slog.Error("failed to create new migrator instance", sl.Err(err))
		os.Exit(1)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no changes")
			return
		}
		slog.Error("failed to migrate", sl.Err(err))
		os.Exit(1)
	}

	slog.Info("migrations applied", slog.Bool("down", down))
}

package main

import (
	"flag"
	"fmt"
	"os"

	"parkops/internal/config"
	"parkops/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrations need STORE=%s (got %q)", config.StorePostgres, cfg.Store)
	}
	logger := cfg.NewLogger()

	conn, err := db.Open(db.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator, err := db.NewMigrator(conn, cfg.DatabaseName)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	switch *action {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
		logger.Info("migrations applied")
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
		logger.Info("last migration rolled back")
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		logger.Info("schema version", "version", version, "dirty", dirty)
	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version)", *action)
	}
	return nil
}

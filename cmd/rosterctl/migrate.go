package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/R3E-Network/service_layer/internal/platform/database"
	"github.com/R3E-Network/service_layer/internal/platform/migrations"
	"github.com/R3E-Network/service_layer/pkg/config"
)

func handleMigrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dsn := fs.String("dsn", "", "PostgreSQL DSN (defaults to DATABASE_DSN/DATABASE_URL config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dsnVal := strings.TrimSpace(*dsn)
	if dsnVal == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dsnVal = strings.TrimSpace(cfg.Database.DSN)
	}
	if dsnVal == "" {
		return errors.New("no DSN configured: pass --dsn or set DATABASE_DSN/DATABASE_URL")
	}

	db, err := database.Open(ctx, dsnVal)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

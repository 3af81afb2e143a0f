// Command migrate applies, inspects and rolls back schema migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/middleware"
)

const usage = "usage: migrate <up|auto|status|down [N]>"

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return errors.New(usage)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		middleware.Logger.Info("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema: %w", err)
		}
		middleware.Logger.Info("automigrations applied", "dialect", db.Dialector.Name())
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status: %w", err)
		}
		middleware.Logger.Info("schema status",
			"mode", status.Mode,
			"env", status.Environment,
			"dialect", status.Dialect,
			"run_sql", status.WillRunSQL,
			"run_auto", status.WillRunAutoMigrate,
			"applied", len(status.AppliedVersions),
			"pending", len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			fmt.Printf("pending: %s\n", m.String())
		}
	case "down":
		n := 1
		if flag.NArg() > 1 {
			n, err = strconv.Atoi(flag.Arg(1))
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid rollback count %q", flag.Arg(1))
			}
		}
		reverted, err := database.RollbackLast(ctx, db, n)
		if err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		middleware.Logger.Info("migrations rolled back", "versions", reverted)
	default:
		return errors.New(usage)
	}
	return nil
}

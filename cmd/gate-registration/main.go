// Package main is the entrypoint for gate-registration.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/gate-registration/internal/config"
	"github.com/morezero/gate-registration/internal/server"
	"github.com/morezero/gate-registration/pkg/db"
)

const usage = `Usage: gate-registration [command]
       gate-registration serve              Start the service (HTTP API, realtime websocket, optional COMMS).
       gate-registration migrate up         Run database migrations.
       gate-registration migrate down       Roll back (not supported; migrations are forward-only).
       gate-registration migrate status     Show migration status.
       gate-registration ensure-db [name]   Create database if missing (default name: gate_registration_test).
       gate-registration clear              Truncate registrations, vehicles, suppliers and employees; users are kept.
       gate-registration seed [file]        Seed users, employees and suppliers from a JSON file.

Commands:
  serve            (default) Start the service.
  migrate up       Run database migrations only.
  migrate down     Roll back last migration (no-op).
  migrate status   Show current migration status.
  ensure-db [name] Create database on the same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate gate data; schema and users preserved.
  seed [file]      Seed from file, SEED_FILE, config/seed.json or seed.json (first that exists).

Environment: DATABASE_URL, JWT_SECRET (required for serve), MIGRATION_PATH, HTTP_ADDR or PORT (default 3000),
COMMS_URL, CHANGE_SOURCE (postgres|comms), STATIC_DIR, CLOUDINARY_CLOUD_NAME/API_KEY/API_SECRET, SEED_FILE, LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("gate-registration migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("gate-registration migrate up: %v", err)
			}
		case "status":
			if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
			}); err != nil {
				log.Fatalf("gate-registration migrate status: %v", err)
			}
		case "down":
			if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				return db.MigrationDown(ctx, pool, cfg.MigrationPath)
			}); err != nil {
				log.Fatalf("gate-registration migrate down: %v", err)
			}
		default:
			log.Fatalf("gate-registration migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			return db.ClearGateData(ctx, pool)
		}); err != nil {
			log.Fatalf("gate-registration clear: %v", err)
		}
		return
	case "seed":
		seedFile := ""
		if len(args) > 1 {
			seedFile = args[1]
		}
		if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			return runSeed(ctx, pool, seedPaths(seedFile, cfg.SeedFile)...)
		}); err != nil {
			log.Fatalf("gate-registration seed: %v", err)
		}
		return
	case "ensure-db":
		dbName := "gate_registration_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("gate-registration ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("gate-registration: %v", err)
	}
}

// withPool loads config, opens a pool for the duration of fn and closes it.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	server.SetupLogging(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func runMigrateUp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// seedPaths orders the explicit seed sources: command argument, then SEED_FILE.
func seedPaths(arg, env string) []string {
	var paths []string
	for _, p := range []string{arg, env} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func runSeed(ctx context.Context, pool *pgxpool.Pool, paths ...string) error {
	res, err := db.Seed(ctx, pool, paths...)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d users, %d employees, %d suppliers.\n", res.Users, res.Employees, res.Suppliers)
	return nil
}

// targetDatabaseURL swaps the database name in databaseURL, keeping the query (e.g. sslmode).
func targetDatabaseURL(databaseURL, dbName string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	targetURL, err := targetDatabaseURL(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/gate-registration/pkg/auth"
	"github.com/morezero/gate-registration/pkg/bootstrap"
)

const seedLogPrefix = "db:seed"

// SeedResult counts the rows inserted by Seed. Existing rows are not counted.
type SeedResult struct {
	Users     int
	Employees int
	Suppliers int
}

// Seed loads the seed file (first existing of paths, then the default locations) and
// inserts its users, employees and suppliers in one transaction. Idempotent:
// rows that already exist are left untouched, including user passwords.
func Seed(ctx context.Context, pool *pgxpool.Pool, paths ...string) (*SeedResult, error) {
	cfg, err := bootstrap.LoadSeedConfig(paths...)
	if err != nil {
		return nil, fmt.Errorf("%s - load seed: %w", seedLogPrefix, err)
	}
	return SeedFromConfig(ctx, pool, cfg)
}

// SeedFromConfig inserts an already loaded seed.
func SeedFromConfig(ctx context.Context, pool *pgxpool.Pool, cfg *bootstrap.SeedConfig) (*SeedResult, error) {
	res := &SeedResult{}
	if cfg == nil || cfg.Empty() {
		slog.Info(fmt.Sprintf("%s - nothing to seed", seedLogPrefix))
		return res, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - begin tx: %w", seedLogPrefix, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, u := range cfg.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return nil, fmt.Errorf("%s - hash password for %s: %w", seedLogPrefix, u.Username, err)
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO users (username, password, role) VALUES ($1, $2, $3)
			 ON CONFLICT (username) DO NOTHING`, u.Username, hash, u.Role)
		if err != nil {
			return nil, fmt.Errorf("%s - insert user %s: %w", seedLogPrefix, u.Username, err)
		}
		res.Users += int(tag.RowsAffected())
	}

	for _, e := range cfg.Employees {
		tag, err := tx.Exec(ctx,
			`INSERT INTO employees (name, department) VALUES ($1, $2)
			 ON CONFLICT (name, department) DO NOTHING`, e.Name, e.Department)
		if err != nil {
			return nil, fmt.Errorf("%s - insert employee %s: %w", seedLogPrefix, e.Name, err)
		}
		res.Employees += int(tag.RowsAffected())
	}

	for _, s := range cfg.Suppliers {
		tag, err := tx.Exec(ctx,
			`INSERT INTO suppliers (name) VALUES ($1)
			 ON CONFLICT (name) DO NOTHING`, s.Name)
		if err != nil {
			return nil, fmt.Errorf("%s - insert supplier %s: %w", seedLogPrefix, s.Name, err)
		}
		res.Suppliers += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s - commit: %w", seedLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - seeded users=%d employees=%d suppliers=%d", seedLogPrefix, res.Users, res.Employees, res.Suppliers))
	return res, nil
}

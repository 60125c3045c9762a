package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearGateData truncates registrations, vehicles, suppliers and employees.
// Users are kept so operators can still sign in. The TRUNCATE fires one
// registrations change event, so connected clients refresh to an empty list.
func ClearGateData(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing gate tables", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE registrations, vehicles, suppliers, employees`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Gate data cleared", clearLogPrefix))
	return nil
}

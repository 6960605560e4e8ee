package migration

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
)

//go:embed init.sql
var initSQL string

// RunMigrations applies the schema. Every statement is idempotent so it is
// safe to run on each start.
func RunMigrations(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if _, err := db.ExecContext(ctx, initSQL); err != nil {
		return fmt.Errorf("apply init.sql: %w", err)
	}

	log.Info("migrations completed")
	return nil
}

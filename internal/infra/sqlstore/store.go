// Package sqlstore is the SQL-backed task store. SQLite is the default;
// Postgres is reached through the pgx database/sql driver.
package sqlstore

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"taskreminder/internal/config"
	"taskreminder/internal/ports"
)

var _ ports.TaskStore = (*Store)(nil)

// Store implements ports.TaskStore on top of sqlx.
type Store struct {
	db      *sqlx.DB
	dialect string
}

// Open connects to the configured database and, when AutoMigrate is set,
// applies pending migrations.
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	driverName, dialect := "sqlite", dialectSQLite
	if cfg.Driver == "postgres" {
		driverName, dialect = "pgx", dialectPostgres
	}

	db, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", cfg.Driver, err)
	}

	if dialect == dialectSQLite {
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases alive for the life of the pool.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s db: %w", cfg.Driver, err)
	}

	s := &Store{db: db, dialect: dialect}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	log.Ctx(ctx).Info().Str("driver", cfg.Driver).Msg("task store ready")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

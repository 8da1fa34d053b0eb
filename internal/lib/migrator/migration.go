package migrator

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var fs embed.FS

// Direction selects which way Run moves the schema.
type Direction int

const (
	Up Direction = iota
	Down
)

// RunMigrations applies every pending migration from the embedded set.
func RunMigrations(db *sqlx.DB, log *slog.Logger) error {
	return Run(db, Up, log)
}

func Run(db *sqlx.DB, dir Direction, log *slog.Logger) error {
	const op = "migrator.Run"

	log = log.With(slog.String("op", op))

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch dir {
	case Down:
		log.Info("rolling back database migrations")
		err = m.Down()
	default:
		log.Info("applying database migrations")
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: migration failed: %w", op, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Info("schema at version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}

	return nil
}

// newMigrate binds golang-migrate to an existing pool. The instance is not
// closed because that would close the caller's *sql.DB.
func newMigrate(db *sqlx.DB) (*migrate.Migrate, error) {
	driver, err := migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	source, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

package micromigrate

import (
	"database/sql"
	"github.com/denismitr/micromigrate/internal/database/sqlgateway"
	"github.com/denismitr/micromigrate/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"time"
)

const (
	DriverSqlite3 = "sqlite3"
	DriverSqlite  = "sqlite"
)

type sqliteOptions struct {
	migrationsTable string
}

type SqliteOptionFunc func(*sqliteOptions, *sqlgateway.ConnectOptions)

// UseSqlite migrates through an already opened database handle,
// the handle stays open when the migrator is closed
func UseSqlite(db *sql.DB, options ...SqliteOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		return useSqlx(m, sqlx.NewDb(db, DriverSqlite3), options)
	}
}

// UseSqliteFile opens the database file with the given driver,
// either "sqlite3" or the pure go "sqlite"
func UseSqliteFile(driver, path string, options ...SqliteOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		if driver != DriverSqlite3 && driver != DriverSqlite {
			return errors.Errorf("unsupported sqlite driver [%s]", driver)
		}

		db, err := sqlx.Open(driver, path)
		if err != nil {
			return errors.Wrapf(err, "could not open database %s", path)
		}

		m.closerFns = append(m.closerFns, db.Close)

		return useSqlx(m, db, options)
	}
}

func useSqlx(m *Migrator, db *sqlx.DB, options []SqliteOptionFunc) error {
	sqliteOpts := &sqliteOptions{migrationsTable: migration.DefaultTrackingTable}
	connectOpts := sqlgateway.NewDefaultConnectOptions()

	for _, oFunc := range options {
		oFunc(sqliteOpts, connectOpts)
	}

	if err := migration.ValidateTableName(sqliteOpts.migrationsTable); err != nil {
		return err
	}

	m.gateway = sqlgateway.NewSqliteGateway(db, sqliteOpts.migrationsTable, connectOpts)
	m.trackingTable = sqliteOpts.migrationsTable

	return nil
}

func WithSqliteMaxConnectionAttempts(attempts int) SqliteOptionFunc {
	return func(sqliteOpts *sqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithSqliteConnectionTimeout(timeout time.Duration) SqliteOptionFunc {
	return func(sqliteOpts *sqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithSqliteMigrationsTable(migrationsTable string) SqliteOptionFunc {
	return func(sqliteOpts *sqliteOptions, connectOpts *sqlgateway.ConnectOptions) {
		sqliteOpts.migrationsTable = migrationsTable
	}
}

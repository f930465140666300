package sqlgateway

import (
	"context"
	"github.com/denismitr/micromigrate/internal/database"
	"github.com/denismitr/micromigrate/internal/database/sqlgateway/sqlite"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/migration"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type SQLGateway struct {
	connector Connector
	txm       TxManager
	lg        logger.Logger
	dialect   Dialect
}

var _ database.Backend = (*SQLGateway)(nil)
var _ database.Forgetter = (*SQLGateway)(nil)
var _ Dialect = (*sqlite.Dialect)(nil)

type stateRow struct {
	Name      string `db:"name"`
	Checksum  string `db:"checksum"`
	Completed bool   `db:"completed"`
}

// NewSqliteGateway - creates a new SQL gateway working through
// either the sqlite3 (cgo) or the sqlite (pure go) driver
func NewSqliteGateway(db *sqlx.DB, migrationsTable string, connectOptions *ConnectOptions) *SQLGateway {
	if migrationsTable == "" {
		migrationsTable = migration.DefaultTrackingTable
	}

	return &SQLGateway{
		connector: NewRetryingConnector(db, connectOptions),
		txm:       NewTxManager(db),
		lg:        &logger.NullLogger{},
		dialect:   sqlite.NewDialect(migrationsTable),
	}
}

func (g *SQLGateway) SetLogger(lg logger.Logger) {
	g.lg = lg
}

func (g *SQLGateway) State(ctx context.Context) (database.State, error) {
	if err := g.connector.Connect(ctx); err != nil {
		return nil, err
	}

	result, err := g.txm.Transaction(ctx, func(ctx context.Context, tx Tx) (interface{}, error) {
		existsQuery, args := g.dialect.TableExistsQuery()

		var tables int
		if err := tx.GetContext(ctx, &tables, existsQuery, args...); err != nil {
			return nil, errors.Wrap(err, "could not check the migrations table")
		}

		if tables == 0 {
			return database.State(nil), nil
		}

		var rows []stateRow
		if err := tx.SelectContext(ctx, &rows, g.dialect.ReadStateQuery()); err != nil {
			return nil, errors.Wrap(err, "could not read the migrations table")
		}

		state := make(database.State, len(rows))
		for _, row := range rows {
			if row.Completed {
				state[row.Name] = row.Checksum
			} else {
				state[row.Name] = database.FailedChecksum
			}
		}

		return state, nil
	}, ReadOnly())

	if err != nil {
		return nil, err
	}

	state, ok := result.(database.State)
	if !ok {
		panic("how could result not be an instance of database.State")
	}

	return state, nil
}

// Apply records a pending row first and commits it, so that a failing
// migration stays visible as not completed after its transaction is rolled back
func (g *SQLGateway) Apply(ctx context.Context, m *migration.Migration, bootstrap bool) error {
	if err := g.connector.Connect(ctx); err != nil {
		return err
	}

	if !bootstrap {
		pendingQuery, args := g.dialect.InsertPendingQuery(m.Name, m.Checksum)

		if _, err := g.txm.WithoutTransaction(ctx, func(ctx context.Context, tx Tx) (interface{}, error) {
			return nil, g.exec(ctx, tx, pendingQuery, args...)
		}); err != nil {
			return errors.Wrapf(err, "could not record migration %s as pending", m.Name)
		}
	}

	_, err := g.txm.Transaction(ctx, func(ctx context.Context, tx Tx) (interface{}, error) {
		if err := g.exec(ctx, tx, m.SQL); err != nil {
			return nil, errors.Wrapf(err, "migration %s failed", m.Name)
		}

		var recordQuery string
		var args []interface{}
		if bootstrap {
			recordQuery, args = g.dialect.InsertCompletedQuery(m.Name, m.Checksum)
		} else {
			recordQuery, args = g.dialect.CompleteQuery(m.Name)
		}

		if err := g.exec(ctx, tx, recordQuery, args...); err != nil {
			return nil, errors.Wrapf(err, "could not mark migration %s as completed", m.Name)
		}

		return nil, nil
	})

	return err
}

func (g *SQLGateway) Forget(ctx context.Context, name string) error {
	state, err := g.State(ctx)
	if err != nil {
		return err
	}

	checksum, ok := state[name]
	if !ok {
		return errors.Wrapf(database.ErrUnknownMigration, "[%s]", name)
	}

	if checksum != database.FailedChecksum {
		return errors.Wrapf(database.ErrNotFailed, "[%s]", name)
	}

	forgetQuery, args := g.dialect.ForgetQuery(name)

	_, err = g.txm.Transaction(ctx, func(ctx context.Context, tx Tx) (interface{}, error) {
		return nil, g.exec(ctx, tx, forgetQuery, args...)
	})

	return errors.Wrapf(err, "could not forget migration %s", name)
}

func (g *SQLGateway) exec(ctx context.Context, ex ctxExecutor, query string, args ...interface{}) error {
	g.lg.SQL(query, args...)

	_, err := ex.ExecContext(ctx, query, args...)

	return err
}

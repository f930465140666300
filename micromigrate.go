package micromigrate

import (
	"context"
	"github.com/denismitr/micromigrate/internal/database"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/internal/source"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
)

var (
	ErrGatewayNotInitialized = errors.New("database gateway has not been initialized")
	ErrForgetNotSupported    = errors.New("database gateway cannot forget migrations")
)

type CloserFunc func() error

type gateway interface {
	database.Backend
	SetLogger(lg logger.Logger)
}

type selectorFactory func(lg logger.Logger) (source.Selector, error)

type Migrator struct {
	lg            logger.Logger
	gateway       gateway
	selector      source.Selector
	newSelector   selectorFactory
	trackingTable string
	noBootstrap   bool
	closerFns     []CloserFunc
}

// NewMigrator creates a migrator using option callbacks
// to customize the newly created configurator, when no custom options
// are required a number of defaults will be applied
func NewMigrator(opts ...OptionFunc) (*Migrator, CloserFunc, error) {
	m := new(Migrator)
	m.lg = &logger.NullLogger{}
	m.trackingTable = migration.DefaultTrackingTable

	for _, oFunc := range opts {
		if err := oFunc(m); err != nil {
			_ = m.close()
			return nil, nil, err
		}
	}

	if m.gateway == nil {
		_ = m.close()
		return nil, nil, ErrGatewayNotInitialized
	}

	// Default selector implementation
	if m.newSelector == nil {
		m.newSelector = func(lg logger.Logger) (source.Selector, error) {
			return source.NewLocalFileSource(source.DefaultMigrationsFolder, lg), nil
		}
	}

	selector, err := m.newSelector(m.lg)
	if err != nil {
		_ = m.close()
		return nil, nil, err
	}

	m.selector = selector
	m.gateway.SetLogger(m.lg)

	return m, m.close, nil
}

// Migrate applies every declared migration missing from the database
// and returns the state read back from the database afterwards
func (m *Migrator) Migrate(ctx context.Context) (database.State, error) {
	migrations, err := m.selector.Select(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	bootstrap, err := m.bootstrap()
	if err != nil {
		return nil, err
	}

	state, err := database.NewEngine(m.gateway, m.lg, bootstrap).Run(ctx, migrations)
	if err != nil {
		var applyErr *database.ApplyError
		if !errors.As(err, &applyErr) {
			m.lg.Error(err)
		}

		return state, err
	}

	return state, nil
}

// State reads the tracking table, nil when it does not exist yet
func (m *Migrator) State(ctx context.Context) (database.State, error) {
	return m.gateway.State(ctx)
}

// Status compares the declared migrations with the database without changing anything
func (m *Migrator) Status(ctx context.Context) (database.Report, error) {
	migrations, err := m.selector.Select(ctx)
	if err != nil {
		return database.Report{}, err
	}

	bootstrap, err := m.bootstrap()
	if err != nil {
		return database.Report{}, err
	}

	if bootstrap != nil && migrations.Find(bootstrap.Name) == nil {
		migrations = append(migration.Migrations{bootstrap}, migrations...)
	}

	state, err := m.gateway.State(ctx)
	if err != nil {
		return database.Report{}, errors.Wrap(err, "could not read migrations state")
	}

	return database.Inspect(state, migrations), nil
}

// Forget removes the tracking row of a migration that failed to complete,
// so that the fixed migration can be applied again
func (m *Migrator) Forget(ctx context.Context, name string) error {
	forgetter, ok := m.gateway.(database.Forgetter)
	if !ok {
		return ErrForgetNotSupported
	}

	if err := forgetter.Forget(ctx, name); err != nil {
		m.lg.Error(err)
		return err
	}

	m.lg.Successf("forgot migration %s", name)

	return nil
}

// Source - returns migrator selector if it implements the full source.Source interface
func (m *Migrator) Source() source.Source {
	if s, ok := m.selector.(source.Source); ok {
		return s
	}

	return nil
}

func (m *Migrator) bootstrap() (*migration.Migration, error) {
	if m.noBootstrap {
		return nil, nil
	}

	return migration.Bootstrap(m.trackingTable)
}

func (m *Migrator) close() error {
	var result error

	for i := len(m.closerFns) - 1; i >= 0; i-- {
		if err := m.closerFns[i](); err != nil {
			m.lg.Error(err)
			if result == nil {
				result = err
			}
		}
	}

	m.closerFns = nil

	return result
}

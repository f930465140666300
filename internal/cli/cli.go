package cli

import (
	"context"
	"github.com/denismitr/micromigrate"
	"github.com/denismitr/micromigrate/internal/database"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/internal/source"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
)

var ErrSourceTypeIsNotValid = errors.New("source type is not valid")

type (
	CloserFunc func() error

	App struct {
		source   source.Source
		migrator *micromigrate.Migrator
	}
)

func NewFromYaml(path string, opts ...micromigrate.OptionFunc) (*App, CloserFunc, error) {
	cfg, err := NewConfigFromYaml(path)
	if err != nil {
		return nil, nil, err
	}

	return New(cfg, opts...)
}

// New creates the app, opts are applied before the ones derived from the config
func New(cfg Config, opts ...micromigrate.OptionFunc) (*App, CloserFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	m, closer, err := createMigrator(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	s := m.Source()
	if s == nil {
		_ = closer()
		return nil, nil, ErrSourceTypeIsNotValid
	}

	return &App{
		source:   s,
		migrator: m,
	}, CloserFunc(closer), nil
}

// CreateMigration writes a new migration stub and returns its file name
func (app *App) CreateMigration(name string, after ...string) (string, error) {
	return app.source.Create(name, after...)
}

func (app *App) Migrate(ctx context.Context) (database.State, error) {
	return app.migrator.Migrate(ctx)
}

func (app *App) Status(ctx context.Context) (database.Report, error) {
	return app.migrator.Status(ctx)
}

func (app *App) Forget(ctx context.Context, name string) error {
	return app.migrator.Forget(ctx, name)
}

// WithPrinter configures the migrator logger for terminal output
func WithPrinter(p logger.Printer, colored, verbose bool) micromigrate.OptionFunc {
	if colored {
		return micromigrate.UseColorLogger(p, verbose, verbose)
	}

	return micromigrate.UseLogger(p, verbose, verbose)
}

const (
	ExitOK = iota
	ExitGeneric
	ExitIntegrity
	ExitOrdering
	ExitApply
	ExitParse
)

// ExitCode maps an error kind to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var parseErr *migration.ParseError
	var integrityErr *database.IntegrityError
	var applyErr *database.ApplyError

	switch {
	case errors.As(err, &parseErr):
		return ExitParse
	case errors.As(err, &integrityErr):
		return ExitIntegrity
	case errors.As(err, &applyErr):
		return ExitApply
	case database.IsOrderingError(err):
		return ExitOrdering
	default:
		return ExitGeneric
	}
}

package cli

import (
	"github.com/denismitr/micromigrate"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type (
	migratorFactory    func(cfg Config, opts ...micromigrate.OptionFunc) (*micromigrate.Migrator, micromigrate.CloserFunc, error)
	migratorFactoryMap map[string]migratorFactory
)

func createSqliteMigrator(cfg Config, opts ...micromigrate.OptionFunc) (*micromigrate.Migrator, micromigrate.CloserFunc, error) {
	opts = append(
		opts,
		micromigrate.UseSqliteFile(cfg.Driver, cfg.DatabasePath, micromigrate.WithSqliteMigrationsTable(cfg.Table)),
		micromigrate.UseLocalFolderSource(cfg.MigrationsFolder),
	)

	return micromigrate.NewMigrator(opts...)
}

func createScriptMigrator(cfg Config, opts ...micromigrate.OptionFunc) (*micromigrate.Migrator, micromigrate.CloserFunc, error) {
	opts = append(
		opts,
		micromigrate.UseSqliteScript(
			cfg.DatabasePath,
			micromigrate.WithScriptMigrationsTable(cfg.Table),
			micromigrate.WithScriptBinary(cfg.Binary),
		),
		micromigrate.UseLocalFolderSource(cfg.MigrationsFolder),
	)

	return micromigrate.NewMigrator(opts...)
}

func createMigrator(cfg Config, opts ...micromigrate.OptionFunc) (*micromigrate.Migrator, micromigrate.CloserFunc, error) {
	factoryMap := make(migratorFactoryMap)
	factoryMap[BackendSqlite] = createSqliteMigrator
	factoryMap[BackendScript] = createScriptMigrator

	return createMigratorFrom(cfg.Backend, factoryMap, cfg, opts...)
}

func createMigratorFrom(
	backend string,
	factoryMap migratorFactoryMap,
	cfg Config,
	opts ...micromigrate.OptionFunc,
) (*micromigrate.Migrator, micromigrate.CloserFunc, error) {
	factory, ok := factoryMap[backend]
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnsupportedBackend, "could not find factory for backend [%s]", backend)
	}

	return factory(cfg, opts...)
}

package micromigrate

import (
	"github.com/denismitr/micromigrate/internal/database/scriptgateway"
	"github.com/denismitr/micromigrate/migration"
)

type scriptOptions struct {
	migrationsTable string
	binary          string
}

type ScriptOptionFunc func(*scriptOptions)

// UseSqliteScript migrates by piping scripts into the sqlite3 command line client
func UseSqliteScript(path string, options ...ScriptOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		opts := &scriptOptions{
			migrationsTable: migration.DefaultTrackingTable,
			binary:          scriptgateway.DefaultBinary,
		}

		for _, oFunc := range options {
			oFunc(opts)
		}

		if err := migration.ValidateTableName(opts.migrationsTable); err != nil {
			return err
		}

		runner := scriptgateway.NewExecRunner(opts.binary, path)
		m.gateway = scriptgateway.NewScriptGateway(runner, opts.migrationsTable)
		m.trackingTable = opts.migrationsTable

		return nil
	}
}

func WithScriptMigrationsTable(migrationsTable string) ScriptOptionFunc {
	return func(opts *scriptOptions) {
		opts.migrationsTable = migrationsTable
	}
}

func WithScriptBinary(binary string) ScriptOptionFunc {
	return func(opts *scriptOptions) {
		opts.binary = binary
	}
}

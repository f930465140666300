package cli

import (
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
	"path/filepath"
	"testing"
)

func TestNewConfigFromYaml(t *testing.T) {
	t.Run("full config is read", func(t *testing.T) {
		dir := fs.NewDir(t, "cfg", fs.WithFile("micromigrate.yaml", `version: "1"
migrations:
  local_folder: ./db/migrations
  database: ./db/app.db
  backend: script
  table: schema_changes
  binary: /usr/local/bin/sqlite3
`))
		defer dir.Remove()

		cfg, err := NewConfigFromYaml(dir.Join("micromigrate.yaml"))
		require.NoError(t, err)

		assert.Equal(t, Config{
			DatabasePath:     "./db/app.db",
			MigrationsFolder: "./db/migrations",
			Backend:          BackendScript,
			Driver:           "sqlite3",
			Table:            "schema_changes",
			Binary:           "/usr/local/bin/sqlite3",
		}, cfg)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		dir := fs.NewDir(t, "cfg", fs.WithFile("micromigrate.yaml", `version: "1"
migrations:
  local_folder: ./migrations
  database: ./app.db
`))
		defer dir.Remove()

		cfg, err := NewConfigFromYaml(dir.Join("micromigrate.yaml"))
		require.NoError(t, err)

		assert.Equal(t, BackendSqlite, cfg.Backend)
		assert.Equal(t, "sqlite3", cfg.Driver)
		assert.Equal(t, migration.DefaultTrackingTable, cfg.Table)
		assert.Equal(t, "sqlite3", cfg.Binary)
	})

	t.Run("values can be read from the environment", func(t *testing.T) {
		t.Setenv("MICROMIGRATE_TEST_DB", "/var/lib/app.db")

		dir := fs.NewDir(t, "cfg", fs.WithFile("micromigrate.yaml", `version: "1"
migrations:
  local_folder: ./migrations
  database: "%%MICROMIGRATE_TEST_DB%%"
`))
		defer dir.Remove()

		cfg, err := NewConfigFromYaml(dir.Join("micromigrate.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/app.db", cfg.DatabasePath)
	})

	t.Run("invalid configs are rejected", func(t *testing.T) {
		tt := []struct {
			name     string
			contents string
			err      error
		}{
			{
				name:     "unsupported version",
				contents: "version: \"2\"\nmigrations:\n  local_folder: ./m\n  database: ./app.db\n",
				err:      ErrUnsupportedVersion,
			},
			{
				name:     "missing database",
				contents: "version: \"1\"\nmigrations:\n  local_folder: ./m\n",
				err:      ErrInvalidConfig,
			},
			{
				name:     "missing folder",
				contents: "version: \"1\"\nmigrations:\n  database: ./app.db\n",
				err:      ErrInvalidConfig,
			},
			{
				name:     "unknown backend",
				contents: "version: \"1\"\nmigrations:\n  local_folder: ./m\n  database: ./app.db\n  backend: mysql\n",
				err:      ErrUnsupportedBackend,
			},
			{
				name:     "unknown driver",
				contents: "version: \"1\"\nmigrations:\n  local_folder: ./m\n  database: ./app.db\n  driver: pgx\n",
				err:      ErrUnsupportedDriver,
			},
			{
				name:     "bad table name",
				contents: "version: \"1\"\nmigrations:\n  local_folder: ./m\n  database: ./app.db\n  table: drop table x\n",
				err:      migration.ErrInvalidTableName,
			},
		}

		for _, tc := range tt {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				dir := fs.NewDir(t, "cfg", fs.WithFile("micromigrate.yaml", tc.contents))
				defer dir.Remove()

				_, err := NewConfigFromYaml(dir.Join("micromigrate.yaml"))
				assert.True(t, errors.Is(err, tc.err), "%v", err)
			})
		}
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		dir := fs.NewDir(t, "cfg", fs.WithFile("micromigrate.yaml", "version: \"1\"\nmigrations:\n  folder: ./m\n"))
		defer dir.Remove()

		_, err := NewConfigFromYaml(dir.Join("micromigrate.yaml"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewConfigFromYaml(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestInitCfg(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	require.NoError(t, InitCfg(path))
	assert.True(t, FileExists(path))

	cfg, err := NewConfigFromYaml(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSqlite, cfg.Backend)
	assert.Equal(t, "./migrations", cfg.MigrationsFolder)

	err = InitCfg(path)
	assert.True(t, errors.Is(err, ErrConfigExists))
}

package cli

import (
	"bytes"
	"context"
	"github.com/denismitr/micromigrate"
	"github.com/denismitr/micromigrate/internal/database"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func newTestApp(t *testing.T, cfg Config, opts ...micromigrate.OptionFunc) *App {
	t.Helper()

	app, closer, err := New(cfg, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, closer())
	})

	return app
}

func appendSQL(t *testing.T, filename, sql string) {
	t.Helper()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString(sql)
	require.NoError(t, err)
}

func TestApp_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DatabasePath:     filepath.Join(dir, "app.db"),
		MigrationsFolder: filepath.Join(dir, "migrations"),
		Backend:          BackendSqlite,
		Driver:           "sqlite3",
		Table:            migration.DefaultTrackingTable,
	}

	ctx := context.Background()
	var buf bytes.Buffer
	app := newTestApp(t, cfg, WithPrinter(log.New(&buf, "", 0), false, false))

	users, err := app.CreateMigration("users")
	require.NoError(t, err)
	appendSQL(t, users, "create table users(id integer primary key, name);\n")

	report, err := app.Status(ctx)
	require.NoError(t, err)
	assert.False(t, report.Initialized)
	assert.Equal(t, 2, report.Count(database.StatusPending))

	state, err := app.Migrate(ctx)
	require.NoError(t, err)
	assert.Len(t, state, 2)
	assert.Contains(t, buf.String(), "applied migration users")

	// a later file name still has to wait for its dependency
	email, err := app.CreateMigration("users_email", "users")
	require.NoError(t, err)
	appendSQL(t, email, "alter table users add column email;\n")

	state, err = app.Migrate(ctx)
	require.NoError(t, err)
	assert.Contains(t, state, "users_email")

	report, err = app.Status(ctx)
	require.NoError(t, err)
	assert.True(t, report.Initialized)
	assert.Equal(t, 3, report.Count(database.StatusApplied))

	_, err = app.CreateMigration("users")
	assert.Error(t, err)

	err = app.Forget(ctx, "users")
	assert.True(t, errors.Is(err, database.ErrNotFailed))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, _, err := New(Config{MigrationsFolder: "./migrations", Backend: BackendSqlite})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestCreateMigratorFrom(t *testing.T) {
	_, _, err := createMigratorFrom("mysql", migratorFactoryMap{}, Config{})
	assert.True(t, errors.Is(err, ErrUnsupportedBackend))
}

func TestExitCode(t *testing.T) {
	tt := []struct {
		name string
		err  error
		code int
	}{
		{name: "success", err: nil, code: ExitOK},
		{name: "generic", err: errors.New("boom"), code: ExitGeneric},
		{
			name: "integrity",
			err:  errors.Wrap(&database.IntegrityError{Name: "a", Recorded: "x", Declared: "y"}, "run"),
			code: ExitIntegrity,
		},
		{name: "cycle", err: errors.Wrap(database.ErrNoMigrationReady, "stuck: a, b"), code: ExitOrdering},
		{name: "unknown dependency", err: database.ErrUnknownDependency, code: ExitOrdering},
		{name: "apply", err: &database.ApplyError{Name: "a", Err: errors.New("syntax error")}, code: ExitApply},
		{name: "parse", err: errors.Wrap(&migration.ParseError{Line: 1, Reason: migration.ReasonFirstComment}, "file a.sql"), code: ExitParse},
	}

	for _, tc := range tt {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, ExitCode(tc.err))
		})
	}
}

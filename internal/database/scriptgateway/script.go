package scriptgateway

import (
	"context"
	"fmt"
	"github.com/denismitr/micromigrate/internal/database"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

var (
	ErrUnexpectedOutput = errors.New("unexpected output from the database client")
	ErrNotCompleted     = errors.New("script finished without completing the migration")
)

// ScriptGateway talks to the database only through scripts
// executed by an external command line client
type ScriptGateway struct {
	runner Runner
	table  string
	lg     logger.Logger
}

var _ database.Backend = (*ScriptGateway)(nil)
var _ database.Forgetter = (*ScriptGateway)(nil)

func NewScriptGateway(runner Runner, migrationsTable string) *ScriptGateway {
	if migrationsTable == "" {
		migrationsTable = migration.DefaultTrackingTable
	}

	return &ScriptGateway{
		runner: runner,
		table:  migrationsTable,
		lg:     &logger.NullLogger{},
	}
}

func (g *ScriptGateway) SetLogger(lg logger.Logger) {
	g.lg = lg
}

func (g *ScriptGateway) State(ctx context.Context) (database.State, error) {
	exists, err := g.query(ctx, fmt.Sprintf(
		"select count(*) as tables from sqlite_master where type = 'table' and name = %s;\n",
		quote(g.table),
	))
	if err != nil {
		return nil, errors.Wrap(err, "could not check the migrations table")
	}

	if len(exists) != 1 {
		return nil, errors.Wrapf(ErrUnexpectedOutput, "expected one record, got %d", len(exists))
	}

	tables, err := strconv.Atoi(strings.TrimSpace(exists[0]["tables"]))
	if err != nil {
		return nil, errors.Wrapf(ErrUnexpectedOutput, "table count %q", exists[0]["tables"])
	}

	if tables == 0 {
		return nil, nil
	}

	rows, err := g.query(ctx, fmt.Sprintf(
		"select name, checksum, completed from %s order by id;\n",
		g.table,
	))
	if err != nil {
		return nil, errors.Wrap(err, "could not read the migrations table")
	}

	state := make(database.State, len(rows))
	for _, row := range rows {
		name, ok := row["name"]
		if !ok {
			return nil, errors.Wrapf(ErrUnexpectedOutput, "record without a name: %v", row)
		}

		if isCompleted(row["completed"]) {
			state[name] = row["checksum"]
		} else {
			state[name] = database.FailedChecksum
		}
	}

	return state, nil
}

// Apply commits the pending row on its own before the migration
// transaction starts, a failure leaves it behind as not completed
func (g *ScriptGateway) Apply(ctx context.Context, m *migration.Migration, bootstrap bool) error {
	script := g.applyScript(m, bootstrap)
	g.lg.SQL(script)

	if _, err := g.runner.Run(ctx, script); err != nil {
		return errors.Wrapf(err, "migration %s failed", m.Name)
	}

	return g.assertCompleted(ctx, m)
}

// assertCompleted reads the tracking row back, the client exits cleanly
// when the migration body leaves a comment or a literal open and swallows
// the statements that follow it
func (g *ScriptGateway) assertCompleted(ctx context.Context, m *migration.Migration) error {
	rows, err := g.query(ctx, fmt.Sprintf(
		"select count(*) as completed from %s where name = %s and completed = 1;\n",
		g.table, quote(m.Name),
	))
	if err != nil {
		return errors.Wrapf(err, "migration %s could not be verified", m.Name)
	}

	if len(rows) != 1 {
		return errors.Wrapf(ErrUnexpectedOutput, "migration %s: expected one record, got %d", m.Name, len(rows))
	}

	if !isCompleted(rows[0]["completed"]) {
		return errors.Wrapf(ErrNotCompleted, "migration %s", m.Name)
	}

	return nil
}

func (g *ScriptGateway) Forget(ctx context.Context, name string) error {
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

	script := fmt.Sprintf("delete from %s where name = %s and completed = 0;\n", g.table, quote(name))
	g.lg.SQL(script)

	if _, err := g.runner.Run(ctx, script); err != nil {
		return errors.Wrapf(err, "could not forget migration %s", name)
	}

	return nil
}

func (g *ScriptGateway) applyScript(m *migration.Migration, bootstrap bool) string {
	var b strings.Builder

	if !bootstrap {
		fmt.Fprintf(&b, "insert into %s (name, checksum, completed) values (%s, %s, 0);\n",
			g.table, quote(m.Name), quote(m.Checksum))
	}

	b.WriteString("begin;\n")
	b.WriteString(m.SQL)
	b.WriteString("\n;\n")

	if bootstrap {
		fmt.Fprintf(&b, "insert into %s (name, checksum, completed) values (%s, %s, 1);\n",
			g.table, quote(m.Name), quote(m.Checksum))
	} else {
		fmt.Fprintf(&b, "update %s set completed = 1 where name = %s;\n", g.table, quote(m.Name))
	}

	b.WriteString("commit;\n")

	return b.String()
}

func (g *ScriptGateway) query(ctx context.Context, script string) ([]map[string]string, error) {
	g.lg.SQL(script)

	out, err := g.runner.Run(ctx, script)
	if err != nil {
		return nil, err
	}

	return parseLineOutput(out), nil
}

func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func isCompleted(value string) bool {
	switch strings.TrimSpace(value) {
	case "", "0":
		return false
	default:
		return true
	}
}

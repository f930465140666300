package scriptgateway

import (
	"bytes"
	"context"
	"github.com/pkg/errors"
	"os/exec"
	"strings"
)

const DefaultBinary = "sqlite3"

// Runner feeds a script to a database command line client
// and returns what it printed
type Runner interface {
	Run(ctx context.Context, script string) (string, error)
}

// ExecRunner runs "<binary> -bail -line <database>" with the script on stdin.
// With -bail the client stops at the first failing statement and exits non-zero,
// an open transaction is rolled back when the process ends.
type ExecRunner struct {
	Binary   string
	Database string
}

var _ Runner = (*ExecRunner)(nil)

func NewExecRunner(binary, database string) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}

	return &ExecRunner{Binary: binary, Database: database}
}

func (r *ExecRunner) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Binary, "-bail", "-line", r.Database) //nolint:gosec // binary comes from configuration

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}

		return stdout.String(), errors.Wrapf(err, "%s %s failed: %s", r.Binary, r.Database, msg)
	}

	return stdout.String(), nil
}

// parseLineOutput reads the records printed in -line mode,
// every column is "name = value" and records are separated by blank lines
func parseLineOutput(out string) []map[string]string {
	var records []map[string]string
	var current map[string]string

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			if current != nil {
				records = append(records, current)
				current = nil
			}

			continue
		}

		idx := strings.Index(line, " = ")
		if idx < 0 {
			continue
		}

		if current == nil {
			current = make(map[string]string)
		}

		current[strings.TrimSpace(line[:idx])] = line[idx+len(" = "):]
	}

	if current != nil {
		records = append(records, current)
	}

	return records
}

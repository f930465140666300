package migration

import (
	"fmt"
	"github.com/pkg/errors"
	"regexp"
)

const (
	DefaultTrackingTable = "micromigrate_migrations"
	BootstrapName        = "micromigrate:enable"
)

const bootstrapTemplate = `-- migration %s
create table %s (
    id integer primary key,
    name unique,
    checksum,
    completed default 0
);
`

var ErrInvalidTableName = errors.New("invalid tracking table name")

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTableName makes sure the name can be interpolated into queries
func ValidateTableName(table string) error {
	if !tableNameRegexp.MatchString(table) {
		return errors.Wrapf(ErrInvalidTableName, "[%s]", table)
	}

	return nil
}

// Bootstrap creates the migration that sets up the tracking table.
// It has to be the very first migration applied to an empty database.
func Bootstrap(table string) (*Migration, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	return Parse(fmt.Sprintf(bootstrapTemplate, BootstrapName, table))
}

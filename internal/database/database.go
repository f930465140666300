package database

import (
	"context"
	"fmt"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"sort"
)

// FailedChecksum is reported instead of a checksum when the tracking
// row exists but the migration never completed
const FailedChecksum = ":failed to complete"

var (
	ErrNoMigrationReady   = errors.New("no migration is ready to be applied")
	ErrUnknownDependency  = errors.New("migration depends on an unknown migration")
	ErrNotEligible        = errors.New("migration is not eligible to be applied")
	ErrDuplicateMigration = errors.New("migration declared more than once")
	ErrStateMismatch      = errors.New("database state does not match the applied migrations")
	ErrBootstrapRequired  = errors.New("tracking table has to be created before any other migration")
	ErrUnknownMigration   = errors.New("migration is not recorded in the database")
	ErrNotFailed          = errors.New("migration completed and cannot be forgotten")
)

// State maps migration names to the recorded checksums.
// A nil State means the tracking table does not exist yet.
type State map[string]string

func (s State) Initialized() bool {
	return s != nil
}

// Completed reports whether the name is recorded and completed
func (s State) Completed(name string) bool {
	checksum, ok := s[name]
	return ok && checksum != FailedChecksum
}

func (s State) Names() []string {
	result := make([]string, 0, len(s))
	for name := range s {
		result = append(result, name)
	}

	sort.Strings(result)

	return result
}

func (s State) Clone() State {
	if s == nil {
		return nil
	}

	result := make(State, len(s))
	for name, checksum := range s {
		result[name] = checksum
	}

	return result
}

type Backend interface {
	// State re-reads the tracking table, nil when it is absent
	State(ctx context.Context) (State, error)
	// Apply runs the migration and records it. With bootstrap set
	// the migration creates the tracking table and no pending row is inserted.
	Apply(ctx context.Context, m *migration.Migration, bootstrap bool) error
}

// Forgetter removes the tracking row of a migration that failed to complete
type Forgetter interface {
	Forget(ctx context.Context, name string) error
}

type IntegrityError struct {
	Name     string
	Recorded string
	Declared string
}

func (e *IntegrityError) Failed() bool {
	return e.Recorded == FailedChecksum
}

func (e *IntegrityError) Error() string {
	if e.Failed() {
		return fmt.Sprintf("migration %s failed to complete earlier and has to be fixed by hand", e.Name)
	}

	return fmt.Sprintf(
		"migration %s was changed after it had been applied: recorded checksum %s, declared %s",
		e.Name, e.Recorded, e.Declared,
	)
}

type ApplyError struct {
	Name string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("could not apply migration %s: %v", e.Name, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

func (e *ApplyError) Cause() error {
	return e.Err
}

// IsOrderingError reports whether no valid application order exists
func IsOrderingError(err error) bool {
	return errors.Is(err, ErrNoMigrationReady) ||
		errors.Is(err, ErrUnknownDependency) ||
		errors.Is(err, ErrNotEligible) ||
		errors.Is(err, ErrBootstrapRequired) ||
		errors.Is(err, ErrDuplicateMigration)
}

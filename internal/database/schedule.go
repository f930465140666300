package database

import (
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"strings"
)

// Resolver hands out migrations one at a time so that every
// migration comes after the ones it depends on
type Resolver struct {
	remaining migration.Migrations
}

func NewResolver(working migration.Migrations) *Resolver {
	remaining := make(migration.Migrations, len(working))
	copy(remaining, working)

	return &Resolver{remaining: remaining}
}

func (r *Resolver) Len() int {
	return len(r.remaining)
}

// Next picks the first migration in declaration order that does not
// depend on anything still remaining and removes it from the working set
func (r *Resolver) Next() (*migration.Migration, error) {
	for i, m := range r.remaining {
		if r.ready(m) {
			r.remaining = append(r.remaining[:i:i], r.remaining[i+1:]...)
			return m, nil
		}
	}

	return nil, errors.Wrapf(ErrNoMigrationReady, "stuck: %s", strings.Join(r.remaining.Names(), ", "))
}

func (r *Resolver) ready(m *migration.Migration) bool {
	for _, other := range r.remaining {
		if m.After.Has(other.Name) {
			return false
		}
	}

	return true
}

// Plan orders the whole working set up front. Every dependency has to be
// either part of the working set or completed according to the state.
func Plan(working migration.Migrations, state State) (migration.Migrations, error) {
	declared := migration.NewNames(working.Names()...)

	for _, m := range working {
		for _, dep := range m.After.Sorted() {
			if dep == m.Name {
				return nil, errors.Wrapf(ErrNoMigrationReady, "migration %s depends on itself", m.Name)
			}

			if !declared.Has(dep) && !state.Completed(dep) {
				return nil, errors.Wrapf(ErrUnknownDependency, "migration %s needs %s", m.Name, dep)
			}
		}
	}

	r := NewResolver(working)
	ordered := make(migration.Migrations, 0, r.Len())

	for r.Len() > 0 {
		m, err := r.Next()
		if err != nil {
			return nil, err
		}

		ordered = append(ordered, m)
	}

	return ordered, nil
}

// Reconcile finds the declared migrations missing from the state.
// A recorded checksum that differs from the declared one is an integrity error.
func Reconcile(state State, declared migration.Migrations) (migration.Migrations, error) {
	seen := make(migration.Names, len(declared))
	var missing migration.Migrations

	for _, m := range declared {
		if seen.Has(m.Name) {
			return nil, errors.Wrapf(ErrDuplicateMigration, "[%s]", m.Name)
		}
		seen[m.Name] = struct{}{}

		recorded, ok := state[m.Name]
		if !ok {
			missing = append(missing, m)
			continue
		}

		if recorded != m.Checksum {
			return nil, &IntegrityError{Name: m.Name, Recorded: recorded, Declared: m.Checksum}
		}
	}

	return missing, nil
}

type Status string

const (
	StatusApplied Status = "applied"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
	StatusChanged Status = "changed"
)

type StatusEntry struct {
	Name   string
	Status Status
	After  []string
}

// Report is a read-only comparison of declared migrations and the state
type Report struct {
	Initialized bool
	Entries     []StatusEntry
	Undeclared  []string
}

func (r Report) Count(s Status) int {
	n := 0
	for i := range r.Entries {
		if r.Entries[i].Status == s {
			n++
		}
	}

	return n
}

func Inspect(state State, declared migration.Migrations) Report {
	report := Report{Initialized: state.Initialized()}
	names := make(migration.Names, len(declared))

	for _, m := range declared {
		names[m.Name] = struct{}{}
		entry := StatusEntry{Name: m.Name, After: m.After.Sorted()}

		recorded, ok := state[m.Name]
		switch {
		case !ok:
			entry.Status = StatusPending
		case recorded == FailedChecksum:
			entry.Status = StatusFailed
		case recorded != m.Checksum:
			entry.Status = StatusChanged
		default:
			entry.Status = StatusApplied
		}

		report.Entries = append(report.Entries, entry)
	}

	for _, name := range state.Names() {
		if !names.Has(name) {
			report.Undeclared = append(report.Undeclared, name)
		}
	}

	return report
}

package database

import (
	"fmt"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func script(name string, after ...string) *migration.Migration {
	raw := "-- migration " + name
	if len(after) > 0 {
		raw += "\n-- after"
		for _, a := range after {
			raw += " " + a
		}
	}

	return migration.MustParse(raw + "\ncreate table " + name + "(x);")
}

func TestResolver(t *testing.T) {
	t.Run("it yields every migration exactly once in dependency order", func(t *testing.T) {
		r := NewResolver(migration.Migrations{
			script("c", "b"),
			script("b", "a"),
			script("a"),
		})

		var names []string
		for r.Len() > 0 {
			before := r.Len()
			m, err := r.Next()
			require.NoError(t, err)
			assert.Equal(t, before-1, r.Len())
			names = append(names, m.Name)
		}

		assert.Equal(t, []string{"a", "b", "c"}, names)
	})

	t.Run("ties are broken by declaration order", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			ordered, err := Plan(migration.Migrations{
				script("z"),
				script("m"),
				script("a"),
				script("b", "z"),
			}, nil)

			require.NoError(t, err)
			assert.Equal(t, []string{"z", "m", "a", "b"}, ordered.Names())
		}
	})

	t.Run("a migration depending on itself is never ready", func(t *testing.T) {
		r := NewResolver(migration.Migrations{script("b"), script("a", "a")})

		m, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, "b", m.Name)

		_, err = r.Next()
		assert.True(t, errors.Is(err, ErrNoMigrationReady))
		assert.Contains(t, err.Error(), "stuck: a")
		assert.Equal(t, 1, r.Len())
	})

	t.Run("it does not modify the given working set", func(t *testing.T) {
		working := migration.Migrations{script("a"), script("b")}
		r := NewResolver(working)

		_, err := r.Next()
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, working.Names())
	})

	t.Run("a cycle leaves nothing ready", func(t *testing.T) {
		r := NewResolver(migration.Migrations{script("a", "b"), script("b", "a")})

		m, err := r.Next()
		assert.Nil(t, m)
		assert.True(t, errors.Is(err, ErrNoMigrationReady))
		assert.True(t, IsOrderingError(err))
		assert.Contains(t, err.Error(), "a, b")
	})

	t.Run("dependencies outside the batch never block", func(t *testing.T) {
		r := NewResolver(migration.Migrations{script("b", "a")})

		m, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, "b", m.Name)
	})
}

func TestPlan(t *testing.T) {
	t.Run("every migration comes after its dependencies over acyclic graphs", func(t *testing.T) {
		graphs := []migration.Migrations{
			{script("d", "b", "c"), script("c", "a"), script("b", "a"), script("a")},
			{script("a"), script("b"), script("c", "a", "b")},
			{script("e", "d"), script("d", "c"), script("c", "b"), script("b", "a"), script("a")},
		}

		for i, graph := range graphs {
			t.Run(fmt.Sprintf("graph %d", i), func(t *testing.T) {
				ordered, err := Plan(graph, State{})
				require.NoError(t, err)
				require.Len(t, ordered, len(graph))

				position := make(map[string]int)
				for p, m := range ordered {
					position[m.Name] = p
				}

				for _, m := range graph {
					for dep := range m.After {
						assert.Less(t, position[dep], position[m.Name], "%s before %s", dep, m.Name)
					}
				}
			})
		}
	})

	t.Run("a dependency satisfied by the state is accepted", func(t *testing.T) {
		a := script("a")
		ordered, err := Plan(migration.Migrations{script("b", "a")}, State{"a": a.Checksum})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ordered.Names())
	})

	t.Run("a dependency that is neither declared nor applied is rejected", func(t *testing.T) {
		_, err := Plan(migration.Migrations{script("b", "a")}, State{})
		assert.True(t, errors.Is(err, ErrUnknownDependency))
	})

	t.Run("a failed dependency does not count as applied", func(t *testing.T) {
		_, err := Plan(migration.Migrations{script("b", "a")}, State{"a": FailedChecksum})
		assert.True(t, errors.Is(err, ErrUnknownDependency))
	})

	t.Run("self dependency is a cycle", func(t *testing.T) {
		_, err := Plan(migration.Migrations{script("a", "a")}, nil)
		assert.True(t, errors.Is(err, ErrNoMigrationReady))
	})

	t.Run("three way cycle", func(t *testing.T) {
		ordered, err := Plan(migration.Migrations{
			script("x"),
			script("a", "c"),
			script("b", "a"),
			script("c", "b"),
		}, nil)

		assert.Nil(t, ordered)
		assert.True(t, errors.Is(err, ErrNoMigrationReady))
	})
}

func TestReconcile(t *testing.T) {
	a, b, c := script("a"), script("b", "a"), script("c")

	t.Run("absent state makes everything missing", func(t *testing.T) {
		missing, err := Reconcile(nil, migration.Migrations{a, b, c})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, missing.Names())
	})

	t.Run("matching checksums are satisfied", func(t *testing.T) {
		missing, err := Reconcile(State{"a": a.Checksum, "c": c.Checksum}, migration.Migrations{a, b, c})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, missing.Names())
	})

	t.Run("changed checksum is an integrity error", func(t *testing.T) {
		_, err := Reconcile(State{"a": "abc"}, migration.Migrations{a, b})

		var integrityErr *IntegrityError
		require.True(t, errors.As(err, &integrityErr))
		assert.Equal(t, "a", integrityErr.Name)
		assert.Equal(t, "abc", integrityErr.Recorded)
		assert.Equal(t, a.Checksum, integrityErr.Declared)
		assert.False(t, integrityErr.Failed())
		assert.Contains(t, err.Error(), "was changed after it had been applied")
	})

	t.Run("a failed row is reported distinctly", func(t *testing.T) {
		_, err := Reconcile(State{"a": a.Checksum, "b": FailedChecksum}, migration.Migrations{a, b})

		var integrityErr *IntegrityError
		require.True(t, errors.As(err, &integrityErr))
		assert.True(t, integrityErr.Failed())
		assert.Contains(t, err.Error(), "failed to complete")
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		_, err := Reconcile(nil, migration.Migrations{a, script("a")})
		assert.True(t, errors.Is(err, ErrDuplicateMigration))
		assert.True(t, IsOrderingError(err))
	})
}

func TestInspect(t *testing.T) {
	a, b, c, d := script("a"), script("b", "a"), script("c"), script("d")

	report := Inspect(
		State{"a": a.Checksum, "b": FailedChecksum, "c": "other", "gone": "xyz"},
		migration.Migrations{a, b, c, d},
	)

	assert.True(t, report.Initialized)
	assert.Equal(t, []StatusEntry{
		{Name: "a", Status: StatusApplied, After: []string{}},
		{Name: "b", Status: StatusFailed, After: []string{"a"}},
		{Name: "c", Status: StatusChanged, After: []string{}},
		{Name: "d", Status: StatusPending, After: []string{}},
	}, report.Entries)
	assert.Equal(t, []string{"gone"}, report.Undeclared)
	assert.Equal(t, 1, report.Count(StatusPending))

	t.Run("absent state", func(t *testing.T) {
		report := Inspect(nil, migration.Migrations{a})
		assert.False(t, report.Initialized)
		assert.Equal(t, StatusPending, report.Entries[0].Status)
		assert.Empty(t, report.Undeclared)
	})
}

package database

import (
	"context"
	"fmt"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"strings"
)

// Engine applies the missing migrations through a backend
type Engine struct {
	backend   Backend
	lg        logger.Logger
	bootstrap *migration.Migration
}

// NewEngine creates an engine. The bootstrap migration may be nil,
// then the first migration applied to an empty database has to create
// the tracking table on its own.
func NewEngine(backend Backend, lg logger.Logger, bootstrap *migration.Migration) *Engine {
	if lg == nil {
		lg = &logger.NullLogger{}
	}

	return &Engine{backend: backend, lg: lg, bootstrap: bootstrap}
}

// Run reconciles the declared migrations with the database state and applies
// the missing ones in dependency order. The returned state is always re-read
// from the backend, also when an *ApplyError is returned.
func (e *Engine) Run(ctx context.Context, declared migration.Migrations) (State, error) {
	state, err := e.backend.State(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not read migrations state")
	}

	virgin := !state.Initialized()

	missing, err := Reconcile(state, e.withBootstrap(declared))
	if err != nil {
		return state, err
	}

	plan, err := Plan(missing, state)
	if err != nil {
		return state, err
	}

	if len(plan) == 0 {
		e.lg.Successf("nothing to migrate")
		return state, nil
	}

	e.lg.Debugf("migrations to apply: %s", strings.Join(plan.Names(), ", "))

	snapshot := state.Clone()
	if snapshot == nil {
		snapshot = State{}
	}

	var runErr error

	for _, m := range plan {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = errors.Wrapf(ctxErr, "stopped before migration %s", m.Name)
			break
		}

		if err := e.assertEligible(m, snapshot, virgin); err != nil {
			runErr = err
			break
		}

		if err := e.backend.Apply(ctx, m, virgin); err != nil {
			runErr = &ApplyError{Name: m.Name, Err: err}
			e.lg.Error(runErr)
			break
		}

		snapshot[m.Name] = m.Checksum
		virgin = false

		e.lg.Successf("applied migration %s", m)
	}

	final, err := e.backend.State(context.WithoutCancel(ctx))
	if err != nil {
		if runErr != nil {
			return nil, errors.Wrapf(runErr, "could not re-read migrations state (%v)", err)
		}

		return nil, errors.Wrap(err, "could not re-read migrations state")
	}

	for name, checksum := range snapshot {
		if final[name] != checksum {
			mismatch := errors.Wrapf(
				ErrStateMismatch,
				"migration %s: expected %q, database has %q",
				name, checksum, final[name],
			)

			if runErr != nil {
				return final, fmt.Errorf("%w, run stopped with: %w", mismatch, runErr)
			}

			return final, mismatch
		}
	}

	return final, runErr
}

// withBootstrap puts the bootstrap migration in front of the declared ones.
// An identical declared copy is dropped, a different one with the same name
// is left in place so that reconciling reports the duplicate.
func (e *Engine) withBootstrap(declared migration.Migrations) migration.Migrations {
	if e.bootstrap == nil {
		return declared
	}

	result := make(migration.Migrations, 0, len(declared)+1)
	result = append(result, e.bootstrap)

	for _, m := range declared {
		if m.Name == e.bootstrap.Name && m.Checksum == e.bootstrap.Checksum {
			continue
		}

		result = append(result, m)
	}

	return result
}

func (e *Engine) assertEligible(m *migration.Migration, snapshot State, virgin bool) error {
	if virgin && e.bootstrap != nil && m.Name != e.bootstrap.Name {
		return errors.Wrapf(ErrBootstrapRequired, "got %s instead of %s", m.Name, e.bootstrap.Name)
	}

	for _, dep := range m.After.Sorted() {
		if !snapshot.Completed(dep) {
			return errors.Wrapf(ErrNotEligible, "migration %s needs %s", m.Name, dep)
		}
	}

	return nil
}

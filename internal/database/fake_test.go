package database

import (
	"context"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
)

type applyCall struct {
	name      string
	bootstrap bool
}

// fakeBackend keeps the tracking table in memory and mimics the
// pending row semantics of the sql backends
type fakeBackend struct {
	state      State
	calls      []applyCall
	stateReads int
	failOn     map[string]error
	stateErr   error
	tamper     func(State)
}

var _ Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{failOn: make(map[string]error)}
}

func (f *fakeBackend) State(_ context.Context) (State, error) {
	f.stateReads++
	if f.stateErr != nil {
		return nil, f.stateErr
	}

	return f.state.Clone(), nil
}

func (f *fakeBackend) Apply(_ context.Context, m *migration.Migration, bootstrap bool) error {
	f.calls = append(f.calls, applyCall{name: m.Name, bootstrap: bootstrap})

	if bootstrap {
		if err := f.failOn[m.Name]; err != nil {
			return err
		}

		f.state = State{m.Name: m.Checksum}
		return nil
	}

	if f.state == nil {
		return errors.New("no such table: micromigrate_migrations")
	}

	f.state[m.Name] = FailedChecksum

	if err := f.failOn[m.Name]; err != nil {
		return err
	}

	f.state[m.Name] = m.Checksum

	if f.tamper != nil {
		f.tamper(f.state)
	}

	return nil
}

func (f *fakeBackend) applied() []string {
	var result []string
	for _, c := range f.calls {
		result = append(result, c.name)
	}

	return result
}

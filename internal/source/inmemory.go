package source

import (
	"context"
	"github.com/denismitr/micromigrate/migration"
)

type InMemorySource struct {
	migrations migration.Migrations
}

var _ Selector = (*InMemorySource)(nil)

func (c *InMemorySource) Select(_ context.Context) (migration.Migrations, error) {
	if len(c.migrations) == 0 {
		return nil, ErrNoMigrations
	}

	result := make(migration.Migrations, len(c.migrations))
	copy(result, c.migrations)

	return result, nil
}

func NewInMemorySource(factories ...migration.Factory) (*InMemorySource, error) {
	m, err := migration.NewMigrations(factories...)
	if err != nil {
		return nil, err
	}

	return &InMemorySource{
		migrations: m,
	}, nil
}

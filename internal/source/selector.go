package source

import (
	"context"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
)

var (
	ErrNoMigrations     = errors.New("no migrations")
	ErrInvalidName      = errors.New("invalid migration name")
	ErrMigrationExists  = errors.New("migration already exists")
	ErrFolderNotFound   = errors.New("migrations folder does not exist")
)

type Selector interface {
	Select(ctx context.Context) (migration.Migrations, error)
}

type Source interface {
	Selector

	IsValid() bool
	AlreadyExists(name string) bool
	Create(name string, after ...string) (string, error)
}

package source

import (
	"context"
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"io/fs"
	"path"
	"strings"
)

const sqlExtension = ".sql"

// FSSource reads every *.sql file of a directory in any fs.FS,
// embedded migrations included. Files are ordered by name.
type FSSource struct {
	fsys fs.FS
	root string
	lg   logger.Logger
}

var _ Selector = (*FSSource)(nil)

func NewFSSource(fsys fs.FS, root string, lg logger.Logger) *FSSource {
	if root == "" {
		root = "."
	}

	if lg == nil {
		lg = &logger.NullLogger{}
	}

	return &FSSource{fsys: fsys, root: root, lg: lg}
}

func (s *FSSource) Select(ctx context.Context) (migration.Migrations, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, errors.Wrapf(ErrNoMigrations, "in %s", s.root)
	}

	result := make(migration.Migrations, len(files))
	g, ctx := errgroup.WithContext(ctx)

	for i := range files {
		i := i

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			m, err := s.readOne(files[i])
			if err != nil {
				s.lg.Error(err)
				return err
			}

			result[i] = m

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.lg.Debugf("read %d migrations from %s", len(result), s.root)

	return result, nil
}

func (s *FSSource) files() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, s.root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read migrations from folder %s", s.root)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sqlExtension) {
			continue
		}

		files = append(files, path.Join(s.root, entry.Name()))
	}

	return files, nil
}

func (s *FSSource) readOne(file string) (*migration.Migration, error) {
	contents, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read migration file %s", file)
	}

	m, err := migration.Parse(string(contents))
	if err != nil {
		return nil, errors.Wrapf(err, "file %s", file)
	}

	return m, nil
}

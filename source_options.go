package micromigrate

import (
	"github.com/denismitr/micromigrate/internal/logger"
	"github.com/denismitr/micromigrate/internal/source"
	"github.com/denismitr/micromigrate/migration"
	"io/fs"
)

func UseLocalFolderSource(folder string) OptionFunc {
	return func(m *Migrator) error {
		m.newSelector = func(lg logger.Logger) (source.Selector, error) {
			return source.NewLocalFileSource(folder, lg), nil
		}

		return nil
	}
}

// UseFSSource reads the migrations from a folder of any fs.FS, e.g. an embed.FS
func UseFSSource(fsys fs.FS, root string) OptionFunc {
	return func(m *Migrator) error {
		m.newSelector = func(lg logger.Logger) (source.Selector, error) {
			return source.NewFSSource(fsys, root, lg), nil
		}

		return nil
	}
}

func UseInMemorySource(scripts ...string) OptionFunc {
	return func(m *Migrator) error {
		factories := make([]migration.Factory, len(scripts))
		for i := range scripts {
			factories[i] = migration.FromScript(scripts[i])
		}

		s, err := source.NewInMemorySource(factories...)
		if err != nil {
			return err
		}

		m.newSelector = func(_ logger.Logger) (source.Selector, error) {
			return s, nil
		}

		return nil
	}
}

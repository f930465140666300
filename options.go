package micromigrate

import (
	"github.com/denismitr/micromigrate/internal/logger"
)

type OptionFunc func(*Migrator) error

func UseColorLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewColorLogger(p, printSql, printDebug)
		return nil
	}
}

func UseLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewBWLogger(p, printSql, printDebug)
		return nil
	}
}

// WithoutBootstrap leaves the creation of the tracking table
// to the first declared migration
func WithoutBootstrap() OptionFunc {
	return func(m *Migrator) error {
		m.noBootstrap = true
		return nil
	}
}

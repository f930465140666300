package main

import (
	"context"
	"fmt"
	mcli "github.com/denismitr/micromigrate/internal/cli"
	"github.com/denismitr/micromigrate/internal/database"
	"github.com/logrusorgru/aurora/v3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"io"
	"log"
	"time"
)

const migrateTimeout = 120 * time.Second

var errNameRequired = errors.New("migration name is required")

type printer struct {
	w       io.Writer
	colored bool
}

func (p *printer) success(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.label(aurora.Green), fmt.Sprintf(format, args...))
}

func (p *printer) warn(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.label(aurora.Yellow), fmt.Sprintf(format, args...))
}

func (p *printer) label(color func(arg interface{}) aurora.Value) interface{} {
	if !p.colored {
		return "micromigrate:"
	}

	return color("micromigrate:")
}

func (p *printer) status(status database.Status) interface{} {
	if !p.colored {
		return status
	}

	switch status {
	case database.StatusApplied:
		return aurora.Green(status)
	case database.StatusPending:
		return aurora.Yellow(status)
	default:
		return aurora.Red(status)
	}
}

// openApp builds the app from the config file named by the global flag
func openApp(cmd *cli.Command, p *printer) (*mcli.App, mcli.CloserFunc, error) {
	lg := log.New(p.w, "", 0)
	return mcli.NewFromYaml(cmd.String("config"), mcli.WithPrinter(lg, p.colored, cmd.Bool("verbose")))
}

func initCommand(p *printer) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a configuration file stub",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")
			if err := mcli.InitCfg(path); err != nil {
				return err
			}

			p.success("config file %s created", path)
			return nil
		},
	}
}

func migrateCommand(p *printer) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply every declared migration missing from the database",
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			app, closer, err := openApp(cmd, p)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := closer(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
			defer cancel()

			state, err := app.Migrate(ctx)
			if err != nil {
				return err
			}

			p.success("all done, %d migrations recorded", len(state))
			return nil
		},
	}
}

func statusCommand(p *printer) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show applied, pending, failed and changed migrations",
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			app, closer, err := openApp(cmd, p)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := closer(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			report, err := app.Status(ctx)
			if err != nil {
				return err
			}

			printReport(p, report)
			return nil
		},
	}
}

func printReport(p *printer, report database.Report) {
	if !report.Initialized {
		p.warn("tracking table does not exist yet")
	}

	for _, entry := range report.Entries {
		fmt.Fprintf(p.w, "%-8v %s\n", p.status(entry.Status), entry.Name)
	}

	for _, name := range report.Undeclared {
		fmt.Fprintf(p.w, "%-8s %s\n", "unknown", name)
	}

	fmt.Fprintf(
		p.w,
		"applied: %d, pending: %d, failed: %d, changed: %d\n",
		report.Count(database.StatusApplied),
		report.Count(database.StatusPending),
		report.Count(database.StatusFailed),
		report.Count(database.StatusChanged),
	)
}

func createCommand(p *printer) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new migration file in the migrations folder",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "after",
				Usage: "names of the migrations the new one depends on",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) (err error) {
			name := cmd.Args().First()
			if name == "" {
				return errNameRequired
			}

			app, closer, err := openApp(cmd, p)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := closer(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			filename, err := app.CreateMigration(name, cmd.StringSlice("after")...)
			if err != nil {
				return err
			}

			p.success("migration %s created", filename)
			return nil
		},
	}
}

func forgetCommand(p *printer) *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "Remove the record of a failed migration so it can be applied again",
		ArgsUsage: "<name>",
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			name := cmd.Args().First()
			if name == "" {
				return errNameRequired
			}

			app, closer, err := openApp(cmd, p)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := closer(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			if err := app.Forget(ctx, name); err != nil {
				return err
			}

			p.success("failed migration %s forgotten", name)
			return nil
		},
	}
}

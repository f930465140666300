package main

import (
	"context"
	"fmt"
	mcli "github.com/denismitr/micromigrate/internal/cli"
	"github.com/logrusorgru/aurora/v3"
	"github.com/urfave/cli/v3"
	"io"
	"os"
)

func main() {
	app := newApp(os.Stdout)

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, aurora.Red("micromigrate:"), err.Error())
		os.Exit(mcli.ExitCode(err))
	}
}

func newApp(out io.Writer) *cli.Command {
	p := &printer{w: out, colored: true}

	return &cli.Command{
		Name:  "micromigrate",
		Usage: "Apply SQL migrations in dependency order",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the micromigrate configuration file",
				Sources: cli.EnvVars("MICROMIGRATE_CONFIG"),
				Value:   mcli.DefaultConfigFile,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print executed SQL and debug messages",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			p.colored = !cmd.Bool("no-color")
			return ctx, nil
		},
		Commands: []*cli.Command{
			initCommand(p),
			migrateCommand(p),
			statusCommand(p),
			createCommand(p),
			forgetCommand(p),
		},
	}
}

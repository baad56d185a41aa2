package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Sketles/Takopi-sub003/cmd/taskctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{Name: "env", Usage: "path to an env file", Value: ".env"}

	app := &cli.Command{
		Name:  "taskctl",
		Usage: "operator tool for the generation task service",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create the generation_tasks table",
				Flags:  []cli.Flag{envFlag},
				Action: commands.MigrateAction,
			},
			{
				Name:  "sign",
				Usage: "print the webhook signature for a payload file",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{Name: "file", Usage: "payload file, - for stdin", Required: true},
					&cli.StringFlag{Name: "secret", Usage: "signing secret (defaults to the first WEBHOOK_SECRET)"},
				},
				Action: commands.SignAction,
			},
			{
				Name:  "tasks",
				Usage: "inspect generation tasks",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list an owner's tasks, newest first",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{Name: "owner", Usage: "owner id", Required: true},
							&cli.IntFlag{Name: "limit", Usage: "maximum rows (capped at 50)", Value: 20},
						},
						Action: commands.TasksListAction,
					},
				},
			},
			{
				Name:  "assets",
				Usage: "work with generated assets",
				Commands: []*cli.Command{
					{
						Name:  "pull",
						Usage: "download an allow-listed asset into a local directory",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{Name: "url", Usage: "asset url", Required: true},
							&cli.StringFlag{Name: "out", Usage: "target directory", Value: "assets"},
						},
						Action: commands.AssetsPullAction,
					},
					{
						Name:  "bundle",
						Usage: "zip the model and thumbnail of a succeeded task",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{Name: "task", Usage: "provider task id", Required: true},
							&cli.StringFlag{Name: "out", Usage: "zip file (defaults to <task>.zip)"},
						},
						Action: commands.AssetsBundleAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
